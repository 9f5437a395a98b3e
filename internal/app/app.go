package app

import (
	"chainsign/internal/blockchain"
	"chainsign/internal/config"
	"chainsign/internal/coordinator"
	"chainsign/internal/keymanager"
	"chainsign/internal/model"
	"chainsign/internal/wallet"
	"chainsign/internal/workflow"
	"context"

	"go.uber.org/zap"
)

var ErrDocumentNotFound = blockchain.ErrDocumentNotFound

// Ledger is the authoritative store of documents.
type Ledger interface {
	workflow.Ledger
	// GetDocument returns ErrDocumentNotFound for an unknown document.
	GetDocument(ctx context.Context, docID string) (model.Document, error)
}

// Cache keeps what the ledger does not: the content reference of each
// document and the display names of the employees. Missing documents are
// reported as mongodb.ErrNotFound. SaveDocument never clears a stored content
// reference.
type Cache interface {
	SaveDocument(ctx context.Context, doc model.Document) error
	GetDocument(ctx context.Context, docID string) (model.Document, error)
	UpdateChain(ctx context.Context, docID string, chain model.ApprovalChain) error
	SaveEmployee(ctx context.Context, employee model.Employee) error
	SearchEmployees(ctx context.Context, name string) ([]model.Employee, error)
}

type BlobStore interface {
	coordinator.BlobStore
	URL(contentRef string) string
}

type App struct {
	logger      *zap.Logger
	contract    config.Contract
	ledger      Ledger
	cache       Cache
	blob        BlobStore
	keys        keymanager.KeyManager
	coordinator *coordinator.Coordinator
}

func NewApp(logger *zap.Logger, contract config.Contract, ledger Ledger, cache Cache, blob BlobStore, keys keymanager.KeyManager) *App {
	return &App{
		logger:      logger,
		contract:    contract,
		ledger:      ledger,
		cache:       cache,
		blob:        blob,
		keys:        keys,
		coordinator: coordinator.New(logger, blob, ledger, workflowOptions(contract)...),
	}
}

func workflowOptions(contract config.Contract) []workflow.Option {
	return []workflow.Option{workflow.WithContract(contract.DocumentStoreID, contract.EmployeeRegistryID)}
}

func (a *App) session(sessionID string) (wallet.Session, error) {
	if sessionID == "" {
		return nil, keymanager.ErrUnknownSession
	}
	session, err := a.keys.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return session, nil
}
