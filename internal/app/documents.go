package app

import (
	"chainsign/internal/blockchain/chainsignfamily"
	"chainsign/internal/model"
	"chainsign/internal/projection"
	"chainsign/internal/repository/mongodb"
	"chainsign/internal/workflow"
	"context"
	"errors"

	"go.uber.org/zap"
)

// DocumentView is a document with everything needed to render it.
type DocumentView struct {
	Document        model.Document
	Participants    []model.Participant
	CurrentApprover string
	Completed       bool
	BlobURL         string
	// Stale is set when the ledger could not be read and the cached copy is shown.
	Stale bool
}

func (a *App) CreateDocument(ctx context.Context, sessionID string, file []byte, firstApprover string) (DocumentView, error) {
	session, err := a.session(sessionID)
	if err != nil {
		return DocumentView{}, err
	}

	result, err := a.coordinator.Submit(ctx, session, file, firstApprover)
	if err != nil {
		return DocumentView{}, err
	}

	a.cacheDocument(ctx, result.Document)

	return a.view(ctx, result.Document, false), nil
}

// ApproveDocument approves the current step of the document as read from the
// ledger. An empty next completes the chain.
func (a *App) ApproveDocument(ctx context.Context, sessionID, docID, next string) (DocumentView, error) {
	session, err := a.session(sessionID)
	if err != nil {
		return DocumentView{}, err
	}

	doc, err := a.ledgerDocument(ctx, docID)
	if err != nil {
		return DocumentView{}, err
	}

	machine, err := workflow.Restore(doc, a.ledger, a.logger, workflowOptions(a.contract)...)
	if err != nil {
		return DocumentView{}, err
	}
	if err := machine.Approve(ctx, session, next); err != nil {
		return DocumentView{}, err
	}

	approved := machine.Document()
	a.cacheChain(ctx, approved)
	if cached, err := a.cache.GetDocument(ctx, docID); err == nil {
		approved.ContentRef = cached.ContentRef
	}

	return a.view(ctx, approved, false), nil
}

// GetDocument reads the document from the ledger, the cache only fills in the
// content reference. If the ledger is unreachable the cached copy is returned
// marked as stale.
func (a *App) GetDocument(ctx context.Context, docID string) (DocumentView, error) {
	cached, cacheErr := a.cache.GetDocument(ctx, docID)

	doc, err := a.ledgerDocument(ctx, docID)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) || cacheErr != nil {
			return DocumentView{}, err
		}
		a.logger.Warn("ledger read failed, serving the cached document", zap.String("docID", docID), zap.Error(err))
		return a.view(ctx, cached, true), nil
	}

	if cacheErr == nil {
		doc.ContentRef = cached.ContentRef
	}
	return a.view(ctx, doc, false), nil
}

// StoreDocumentHash anchors the fingerprint recorded for the document once more
// under its ID and returns the transaction ID.
func (a *App) StoreDocumentHash(ctx context.Context, sessionID, docID string) (string, error) {
	const op = "store document hash"

	session, err := a.session(sessionID)
	if err != nil {
		return "", err
	}

	doc, err := a.ledgerDocument(ctx, docID)
	if err != nil {
		return "", err
	}
	if len(doc.Fingerprint) == 0 {
		return "", model.NewValidationError(op, "document has no fingerprint")
	}

	receipt, err := a.ledger.Submit(ctx, model.Call{
		EntryPoint: chainsignfamily.StoreDocumentHash,
		Args:       []interface{}{docID, doc.Fingerprint},
	}, session)
	if err != nil {
		return "", err
	}
	if !receipt.Confirmed {
		return "", model.NewConfirmationError(op, "transaction "+receipt.TransactionID+" is not confirmed")
	}
	if _, ok := receipt.FindEvent(chainsignfamily.EventHashStored, map[string]string{chainsignfamily.AttrDocID: docID}); !ok {
		return "", model.NewConfirmationError(op, "hash stored event missing from transaction "+receipt.TransactionID)
	}

	a.logger.Info("document hash stored", zap.String("docID", docID), zap.String("transactionID", receipt.TransactionID))
	return receipt.TransactionID, nil
}

func (a *App) ledgerDocument(ctx context.Context, docID string) (model.Document, error) {
	if docID == "" {
		return model.Document{}, model.NewValidationError("get document", "document ID is empty")
	}

	doc, err := a.ledger.GetDocument(ctx, docID)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return model.Document{}, err
		}
		return model.Document{}, errors.New("failed to read the document from the ledger: " + err.Error())
	}
	return doc, nil
}

func (a *App) cacheDocument(ctx context.Context, doc model.Document) {
	// the ledger holds the truth, a failed cache write only costs the content reference
	if err := a.cache.SaveDocument(ctx, doc); err != nil {
		a.logger.Error("failed to cache the document", zap.String("docID", doc.ID), zap.Error(err))
	}
}

// cacheChain writes only the chain, the cached content reference is left alone.
func (a *App) cacheChain(ctx context.Context, doc model.Document) {
	err := a.cache.UpdateChain(ctx, doc.ID, doc.Chain)
	if errors.Is(err, mongodb.ErrNotFound) {
		a.cacheDocument(ctx, doc)
		return
	}
	if err != nil {
		a.logger.Error("failed to cache the document chain", zap.String("docID", doc.ID), zap.Error(err))
	}
}

func (a *App) view(ctx context.Context, doc model.Document, stale bool) DocumentView {
	view := DocumentView{
		Document:     doc,
		Participants: projection.Participants(doc.Chain, a.directory(ctx)),
		Completed:    doc.Chain.Completed(),
		Stale:        stale,
	}
	view.CurrentApprover, _ = doc.Chain.CurrentApprover()
	if doc.ContentRef != "" {
		view.BlobURL = a.blob.URL(doc.ContentRef)
	}
	return view
}

func (a *App) directory(ctx context.Context) *projection.Directory {
	employees, err := a.cache.SearchEmployees(ctx, "")
	if err != nil {
		a.logger.Warn("employee names unavailable", zap.Error(err))
	}
	return projection.NewDirectory(employees...)
}
