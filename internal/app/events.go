package app

import (
	"chainsign/internal/blockchain/chainsignfamily"
	"chainsign/internal/model"
	"chainsign/internal/repository/mongodb"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// HandleLedgerEvent refreshes the cached chain of the document the event is
// about. Events never drive the workflow, they only keep the cache current for
// changes made by other clients.
func (a *App) HandleLedgerEvent(timeout time.Duration) func(event model.Event) error {
	return func(event model.Event) error {
		docID := event.Attributes[chainsignfamily.AttrDocID]
		if docID == "" {
			return errors.New("event " + event.Type + " carries no document ID")
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		doc, err := a.ledger.GetDocument(ctx, docID)
		if err != nil {
			return errors.New("failed to refresh document " + docID + ": " + err.Error())
		}

		err = a.cache.UpdateChain(ctx, docID, doc.Chain)
		if errors.Is(err, mongodb.ErrNotFound) {
			// created by another client or still being cached by CreateDocument,
			// SaveDocument keeps a content reference stored meanwhile
			a.logger.Debug("caching a document seen on the ledger only", zap.String("docID", docID))
			return a.cache.SaveDocument(ctx, doc)
		}
		if err != nil {
			return err
		}

		a.logger.Debug("cached document refreshed", zap.String("docID", docID), zap.String("eventType", event.Type))
		return nil
	}
}
