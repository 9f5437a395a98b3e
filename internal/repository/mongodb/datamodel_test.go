package mongodb

import (
	"chainsign/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestStoredDocumentBSON(t *testing.T) {
	approvedAt := time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)
	doc := model.Document{
		ID:          "doc-1",
		ContentRef:  "blob-1",
		Fingerprint: []byte{0xde, 0xad},
		Creator:     "0xcreator",
		Chain: model.ApprovalChain{Steps: []model.ApprovalStep{
			{Order: 0, Approver: "0xa", Status: model.StepApproved, ApprovedAt: &approvedAt},
			{Order: 1, Approver: "0xb", Status: model.StepPending},
		}},
	}

	data, err := bson.Marshal(toStoredDocument(doc, time.Now()))
	require.NoError(t, err)

	var raw bson.M
	require.NoError(t, bson.Unmarshal(data, &raw))
	assert.Equal(t, "doc-1", raw["_id"])
	assert.Equal(t, "blob-1", raw["contentRef"])

	var stored storedDocument
	require.NoError(t, bson.Unmarshal(data, &stored))
	restored := stored.toModel()

	assert.Equal(t, doc, restored)
	assert.NoError(t, restored.Chain.Validate())
}

func TestDocumentUpdateKeepsContentRef(t *testing.T) {
	doc := model.Document{ID: "doc-1", Creator: "0xcreator", Chain: model.NewApprovalChain("0xa")}

	update := documentUpdate(doc, time.Now())
	set := update["$set"].(bson.M)

	assert.NotContains(t, set, "contentRef")
	assert.Equal(t, bson.M{"contentRef": ""}, update["$setOnInsert"])
	assert.Equal(t, "0xcreator", set["creator"])
	assert.Len(t, set["steps"], 1)

	doc.ContentRef = "blob-1"
	update = documentUpdate(doc, time.Now())
	assert.Equal(t, "blob-1", update["$set"].(bson.M)["contentRef"])
	assert.NotContains(t, update, "$setOnInsert")
}
