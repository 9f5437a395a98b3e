package coordinator

import (
	"chainsign/internal/hashing"
	"chainsign/internal/metrics"
	"chainsign/internal/model"
	"chainsign/internal/wallet"
	"chainsign/internal/workflow"
	"context"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"
)

const op = "submit document"

// BlobStore keeps the file bytes off chain.
type BlobStore interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

type Result struct {
	DocumentID  string
	ContentRef  string
	Fingerprint []byte
	Document    model.Document
}

// Coordinator fingerprints, uploads and commits a new document, in that order.
type Coordinator struct {
	logger  *zap.Logger
	blob    BlobStore
	ledger  workflow.Ledger
	options []workflow.Option
}

func New(logger *zap.Logger, blob BlobStore, ledger workflow.Ledger, options ...workflow.Option) *Coordinator {
	return &Coordinator{
		logger:  logger,
		blob:    blob,
		ledger:  ledger,
		options: options,
	}
}

// Submit returns an UploadError if the blob store failed, the ledger is not
// called then. A failed commit is returned as CommitError wrapping the cause.
func (c *Coordinator) Submit(ctx context.Context, session wallet.Session, file []byte, firstApprover string) (Result, error) {
	if _, ok := wallet.Connected(session); !ok {
		return Result{}, model.NewValidationError(op, "wallet is not connected")
	}
	if strings.TrimSpace(firstApprover) == model.NoApprover {
		return Result{}, model.NewValidationError(op, "first approver is empty")
	}
	if len(file) == 0 {
		return Result{}, model.NewValidationError(op, "file is empty")
	}

	fingerprint := hashing.Fingerprint(file)

	contentRef, err := c.blob.Upload(ctx, file)
	if err != nil {
		metrics.ObserveUpload("failed")
		c.logger.Error("file upload failed", zap.String("fingerprint", hex.EncodeToString(fingerprint)), zap.Error(err))
		return Result{}, model.NewUploadError(op, err)
	}
	metrics.ObserveUpload("ok")
	c.logger.Debug("file uploaded", zap.String("contentRef", contentRef), zap.Int("size", len(file)))

	machine := workflow.New(c.ledger, c.logger, c.options...)
	docID, err := machine.Create(ctx, session, fingerprint, firstApprover)
	if err != nil {
		c.logger.Warn("document commit failed, the uploaded blob is left orphaned",
			zap.String("contentRef", contentRef), zap.String("kind", model.ErrorKind(err)), zap.Error(err))
		return Result{ContentRef: contentRef, Fingerprint: fingerprint}, model.NewCommitError(op, err)
	}

	doc := machine.Document()
	doc.ContentRef = contentRef

	return Result{
		DocumentID:  docID,
		ContentRef:  contentRef,
		Fingerprint: fingerprint,
		Document:    doc,
	}, nil
}
