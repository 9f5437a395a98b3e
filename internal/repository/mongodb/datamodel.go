package mongodb

import (
	"chainsign/internal/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

type storedStep struct {
	Approver   string     `bson:"approver" json:"approver"`
	Status     string     `bson:"status" json:"status"`
	ApprovedAt *time.Time `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
}

type storedDocument struct {
	DocID       string       `bson:"_id" json:"id"`
	ContentRef  string       `bson:"contentRef" json:"contentRef"`
	Fingerprint []byte       `bson:"fingerprint" json:"fingerprint"`
	Creator     string       `bson:"creator" json:"creator"`
	Steps       []storedStep `bson:"steps" json:"steps"`
	UpdatedAt   time.Time    `bson:"updatedAt" json:"updatedAt"`
}

type storedEmployee struct {
	Address string `bson:"_id" json:"address"`
	Name    string `bson:"name" json:"name"`
}

func toStoredDocument(doc model.Document, updatedAt time.Time) storedDocument {
	stored := storedDocument{
		DocID:       doc.ID,
		ContentRef:  doc.ContentRef,
		Fingerprint: doc.Fingerprint,
		Creator:     doc.Creator,
		Steps:       make([]storedStep, 0, len(doc.Chain.Steps)),
		UpdatedAt:   updatedAt.UTC(),
	}
	for _, step := range doc.Chain.Steps {
		stored.Steps = append(stored.Steps, storedStep{
			Approver:   step.Approver,
			Status:     step.Status.String(),
			ApprovedAt: step.ApprovedAt,
		})
	}
	return stored
}

func (s storedDocument) toModel() model.Document {
	doc := model.Document{
		ID:          s.DocID,
		ContentRef:  s.ContentRef,
		Fingerprint: s.Fingerprint,
		Creator:     s.Creator,
	}
	for i, step := range s.Steps {
		var approvedAt *time.Time
		if step.ApprovedAt != nil {
			at := step.ApprovedAt.UTC()
			approvedAt = &at
		}
		doc.Chain.Steps = append(doc.Chain.Steps, model.ApprovalStep{
			Order:      i,
			Approver:   step.Approver,
			Status:     model.StepStatus(step.Status),
			ApprovedAt: approvedAt,
		})
	}
	return doc
}

// documentUpdate sets the ledger fields of the document. The content reference
// is written on insert, or when the document carries one.
func documentUpdate(doc model.Document, updatedAt time.Time) bson.M {
	stored := toStoredDocument(doc, updatedAt)

	set := bson.M{
		"fingerprint": stored.Fingerprint,
		"creator":     stored.Creator,
		"steps":       stored.Steps,
		"updatedAt":   stored.UpdatedAt,
	}
	update := bson.M{"$set": set}

	if stored.ContentRef != "" {
		set["contentRef"] = stored.ContentRef
	} else {
		update["$setOnInsert"] = bson.M{"contentRef": ""}
	}

	return update
}
