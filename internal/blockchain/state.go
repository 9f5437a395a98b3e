package blockchain

import (
	"chainsign/internal/blockchain/chainsignfamily"
	"chainsign/internal/model"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fxamacker/cbor"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var ErrDocumentNotFound = errors.New("document not found")

// GetDocument reads the document record from the ledger state.
func (c *Client) GetDocument(ctx context.Context, docID string) (model.Document, error) {
	address := chainsignfamily.DocumentAddress(c.contract.DocumentStoreID, docID)

	data, err := c.getState(ctx, address)
	if err != nil {
		var status statusError
		if errors.As(err, &status) && status.code == http.StatusNotFound {
			return model.Document{}, ErrDocumentNotFound
		}
		return model.Document{}, err
	}

	var record documentRecord
	if err := cbor.Unmarshal(data, &record); err != nil {
		return model.Document{}, fmt.Errorf("failed to decode document %s: %v", docID, err)
	}

	doc := record.toModel()
	if doc.ID == "" {
		doc.ID = docID
	}
	if err := doc.Chain.Validate(); err != nil {
		c.logger.Error("ledger holds an invalid approval chain", zap.String("docID", docID), zap.Error(err))
		return model.Document{}, err
	}

	return doc, nil
}

func (c *Client) getState(ctx context.Context, address string) ([]byte, error) {
	response, err := c.sendRequest(ctx, stateAPI+"/"+address, nil, "")
	if err != nil {
		return nil, err
	}

	var unmarshalled stateResponse
	if err := yaml.Unmarshal(response, &unmarshalled); err != nil {
		return nil, fmt.Errorf("error reading response: %v", err)
	}
	if unmarshalled.Data == "" {
		return nil, statusError{code: http.StatusNotFound, message: "empty state at " + address}
	}

	return base64.StdEncoding.DecodeString(unmarshalled.Data)
}

func (r documentRecord) toModel() model.Document {
	doc := model.Document{
		ID:          r.DocID,
		Fingerprint: r.ContentHash,
		Creator:     r.Creator,
	}

	for i, approver := range r.Approvers {
		step := model.ApprovalStep{
			Order:    i,
			Approver: approver.Address,
			Status:   model.StepPending,
		}
		if approver.Approved {
			approvedAt := time.Unix(approver.ApprovedAt, 0).UTC()
			step.Status = model.StepApproved
			step.ApprovedAt = &approvedAt
		}
		doc.Chain.Steps = append(doc.Chain.Steps, step)
	}

	return doc
}
