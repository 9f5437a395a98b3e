package mongodb

import (
	"chainsign/internal/model"
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (b Repository) SaveEmployee(ctx context.Context, employee model.Employee) error {
	coll := b.db.Collection(employeesCollection)

	stored := storedEmployee{
		Address: model.NormalizeAddress(employee.Address),
		Name:    employee.Name,
	}

	_, err := coll.ReplaceOne(ctx, bson.M{"_id": stored.Address}, stored, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.New("failed to save the employee: " + err.Error())
	}
	return nil
}

// SearchEmployees returns the employees whose name contains name, case
// insensitive. An empty name lists everyone.
func (b Repository) SearchEmployees(ctx context.Context, name string) ([]model.Employee, error) {
	coll := b.db.Collection(employeesCollection)

	filter := bson.M{}
	if name != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(name), Options: "i"}
	}

	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, errors.New("failed to find the employees: " + err.Error())
	}

	var stored []storedEmployee
	if err := cursor.All(ctx, &stored); err != nil {
		return nil, errors.New("failed to get all employees from the cursor: " + err.Error())
	}

	employees := make([]model.Employee, 0, len(stored))
	for _, s := range stored {
		employees = append(employees, model.Employee{Address: s.Address, Name: s.Name})
	}
	return employees, nil
}
