package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	documentsCollection = "documents"
	employeesCollection = "employees"
)

// Repository is the local cache of ledger data and the employee directory.
// Nothing stored here is authoritative.
type Repository struct {
	// Disconnect closes the client, errors are only logged.
	Disconnect func()

	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewConnection connects to database and creates the indexes the employee
// search relies on.
func NewConnection(logger *zap.Logger, uri, database string, timeout time.Duration) (Repository, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(context.Background(), clientOptions)
	if err != nil {
		logger.Error("db connection failed", zap.String("database", database))
		return Repository{}, err
	}

	repo := Repository{
		Disconnect: func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Error("failed to disconnect the DB: " + err.Error())
			}
		},
		client: client,
		db:     client.Database(database),
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		repo.Disconnect()
		return Repository{}, err
	}
	if err := repo.ensureIndexes(ctx); err != nil {
		repo.Disconnect()
		return Repository{}, err
	}

	logger.Info("connected to the database", zap.String("database", database))
	return repo, nil
}

// ensureIndexes backs the sort of the employee search.
func (b Repository) ensureIndexes(ctx context.Context) error {
	_, err := b.db.Collection(employeesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}},
	})
	return err
}
