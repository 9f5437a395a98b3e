package model_test

import (
	"chainsign/internal/model"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainAdvance(t *testing.T) {
	at := time.Date(2025, 4, 26, 14, 30, 0, 0, time.UTC)

	chain := model.NewApprovalChain("0xA")
	require.NoError(t, chain.Validate())
	approver, ok := chain.CurrentApprover()
	require.True(t, ok)
	assert.Equal(t, "0xA", approver)

	advanced, err := chain.Advance(at, "0xB")
	require.NoError(t, err)
	require.NoError(t, advanced.Validate())

	// receiver untouched
	assert.Len(t, chain.Steps, 1)
	assert.Equal(t, model.StepPending, chain.Steps[0].Status)

	require.Len(t, advanced.Steps, 2)
	assert.Equal(t, model.StepApproved, advanced.Steps[0].Status)
	assert.Equal(t, at, *advanced.Steps[0].ApprovedAt)
	assert.Equal(t, model.StepPending, advanced.Steps[1].Status)
	assert.Equal(t, 1, advanced.Steps[1].Order)

	completed, err := advanced.Advance(at, model.NoApprover)
	require.NoError(t, err)
	require.NoError(t, completed.Validate())
	assert.True(t, completed.Completed())
	assert.Equal(t, 0, completed.PendingCount())

	_, err = completed.Advance(at, "0xC")
	assert.Error(t, err)
}

func TestChainValidate(t *testing.T) {
	at := time.Now()

	tests := []struct {
		name  string
		chain model.ApprovalChain
	}{
		{"empty", model.ApprovalChain{}},
		{"pending before approved", model.ApprovalChain{Steps: []model.ApprovalStep{
			{Order: 0, Approver: "0xA", Status: model.StepPending},
			{Order: 1, Approver: "0xB", Status: model.StepApproved, ApprovedAt: &at},
		}}},
		{"two pending", model.ApprovalChain{Steps: []model.ApprovalStep{
			{Order: 0, Approver: "0xA", Status: model.StepPending},
			{Order: 1, Approver: "0xB", Status: model.StepPending},
		}}},
		{"approved without timestamp", model.ApprovalChain{Steps: []model.ApprovalStep{
			{Order: 0, Approver: "0xA", Status: model.StepApproved},
		}}},
		{"wrong order", model.ApprovalChain{Steps: []model.ApprovalStep{
			{Order: 3, Approver: "0xA", Status: model.StepPending},
		}}},
		{"missing approver", model.ApprovalChain{Steps: []model.ApprovalStep{
			{Order: 0, Status: model.StepPending},
		}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.chain.Validate())
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	at := time.Now()
	doc := model.Document{
		ID:          "1",
		Fingerprint: []byte{1, 2, 3},
		Chain: model.ApprovalChain{Steps: []model.ApprovalStep{
			{Order: 0, Approver: "0xA", Status: model.StepApproved, ApprovedAt: &at},
		}},
	}

	clone := doc.Clone()
	clone.Fingerprint[0] = 9
	clone.Chain.Steps[0].Approver = "0xZ"
	*clone.Chain.Steps[0].ApprovedAt = at.Add(time.Hour)

	assert.Equal(t, byte(1), doc.Fingerprint[0])
	assert.Equal(t, "0xA", doc.Chain.Steps[0].Approver)
	assert.Equal(t, at, *doc.Chain.Steps[0].ApprovedAt)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "validation", model.ErrorKind(model.NewValidationError("create", "missing")))
	assert.Equal(t, "upload", model.ErrorKind(model.NewUploadError("upload", errors.New("boom"))))
	assert.Equal(t, "rejection", model.ErrorKind(model.NewRejectionError("approve", "wrong signer")))
	assert.Equal(t, "confirmation", model.ErrorKind(model.NewConfirmationError("create", "no event")))
	assert.Equal(t, "signature_declined", model.ErrorKind(model.NewSignatureDeclinedError("approve")))
	assert.Equal(t, "internal", model.ErrorKind(errors.New("other")))

	// the commit error keeps the cause reachable
	commit := model.NewCommitError("submit", model.NewRejectionError("create", "not an employee"))
	assert.Equal(t, "rejection", model.ErrorKind(commit))
	var commitErr *model.CommitError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", commit), &commitErr))

	assert.True(t, errors.Is(model.NewSignatureDeclinedError("approve"), model.ErrSignatureDeclined))
	assert.True(t, errors.Is(model.WrapValidationError("approve", "session", model.ErrSessionClosed), model.ErrSessionClosed))
}

func TestAddress(t *testing.T) {
	assert.True(t, model.SameAddress("0xAbC", " 0xabc "))
	assert.False(t, model.SameAddress("0xabc", "0xabd"))
	assert.Equal(t, "0x1234ab....", model.ShortAddress("0x1234abcdef"))
	assert.Equal(t, "0x12", model.ShortAddress("0x12"))
}
