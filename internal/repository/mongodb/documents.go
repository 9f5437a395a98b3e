package mongodb

import (
	"chainsign/internal/model"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("not found in the cache")

// SaveDocument upserts the cached snapshot of the document. A stored content
// reference is only replaced by a non-empty one.
func (b Repository) SaveDocument(ctx context.Context, doc model.Document) error {
	coll := b.db.Collection(documentsCollection)

	update := documentUpdate(doc, time.Now())
	filter := bson.M{"_id": doc.ID}

	if _, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return errors.New("failed to save the document: " + err.Error())
	}

	b.logger.Debug("document cached", zap.String("docID", doc.ID), zap.Int("steps", len(doc.Chain.Steps)))
	return nil
}

// GetDocument returns the cached snapshot, ErrNotFound if there is none.
func (b Repository) GetDocument(ctx context.Context, docID string) (model.Document, error) {
	coll := b.db.Collection(documentsCollection)

	var stored storedDocument
	err := coll.FindOne(ctx, bson.M{"_id": docID}).Decode(&stored)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Document{}, ErrNotFound
	}
	if err != nil {
		return model.Document{}, errors.New("failed to get the document: " + err.Error())
	}

	return stored.toModel(), nil
}

// UpdateChain refreshes the chain of a cached document, the content
// reference stays as stored.
func (b Repository) UpdateChain(ctx context.Context, docID string, chain model.ApprovalChain) error {
	coll := b.db.Collection(documentsCollection)

	steps := toStoredDocument(model.Document{Chain: chain}, time.Now()).Steps
	update := bson.M{
		"$set": bson.M{
			"steps":     steps,
			"updatedAt": time.Now().UTC(),
		},
	}

	result, err := coll.UpdateOne(ctx, bson.M{"_id": docID}, update)
	if err != nil {
		return errors.New("failed to update the document chain: " + err.Error())
	}
	if result.MatchedCount == 0 {
		b.logger.Debug("trying to update a document missing from the cache", zap.String("docID", docID))
		return ErrNotFound
	}

	return nil
}
