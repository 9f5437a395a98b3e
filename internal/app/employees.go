package app

import (
	"chainsign/internal/blockchain/chainsignfamily"
	"chainsign/internal/model"
	"context"
	"strings"

	"go.uber.org/zap"
)

// AddEmployee registers address in the employee registry on the ledger and,
// once confirmed, keeps its display name.
func (a *App) AddEmployee(ctx context.Context, sessionID string, employee model.Employee) error {
	const op = "add employee"

	employee.Address = strings.TrimSpace(employee.Address)
	employee.Name = strings.TrimSpace(employee.Name)
	if employee.Address == "" {
		return model.NewValidationError(op, "employee address is empty")
	}
	if employee.Name == "" {
		return model.NewValidationError(op, "employee name is empty")
	}

	session, err := a.session(sessionID)
	if err != nil {
		return err
	}

	receipt, err := a.ledger.Submit(ctx, model.Call{
		EntryPoint: chainsignfamily.AddEmployee,
		Args:       []interface{}{a.contract.EmployeeRegistryID, employee.Address},
	}, session)
	if err != nil {
		return err
	}
	if !receipt.Confirmed {
		return model.NewConfirmationError(op, "transaction "+receipt.TransactionID+" is not confirmed")
	}

	event, ok := receipt.FindEvent(chainsignfamily.EventEmployeeAdded, nil)
	if !ok || !model.SameAddress(event.Attributes[chainsignfamily.AttrAddress], employee.Address) {
		return model.NewConfirmationError(op, "employee added event missing from transaction "+receipt.TransactionID)
	}

	if err := a.cache.SaveEmployee(ctx, employee); err != nil {
		return err
	}

	a.logger.Info("employee added", zap.String("address", employee.Address), zap.String("name", employee.Name))
	return nil
}

func (a *App) SearchEmployees(ctx context.Context, name string) ([]model.Employee, error) {
	return a.cache.SearchEmployees(ctx, strings.TrimSpace(name))
}
