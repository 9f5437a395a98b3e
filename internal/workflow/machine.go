package workflow

import (
	"chainsign/internal/blockchain/chainsignfamily"
	"chainsign/internal/metrics"
	"chainsign/internal/model"
	"chainsign/internal/wallet"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Ledger submits contract calls signed by the wallet session.
type Ledger interface {
	Submit(ctx context.Context, call model.Call, session wallet.Session) (model.Receipt, error)
}

type Phase int

const (
	Uninitialized Phase = iota
	// Created is passed through by a successful create, the machine never rests in it.
	Created
	Pending
	Completed
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Created:
		return "created"
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// State is the machine phase and, while pending, the index of the current step.
type State struct {
	Phase Phase
	Step  int
}

func (s State) String() string {
	if s.Phase == Pending {
		return fmt.Sprintf("pending[%d]", s.Step)
	}
	return s.Phase.String()
}

type Option func(*Machine)

// WithContract sets the document store and employee registry the calls address.
func WithContract(documentStoreID, employeeRegistryID string) Option {
	return func(m *Machine) {
		m.storeID = documentStoreID
		m.registryID = employeeRegistryID
	}
}

// WithClock sets the time source used when the ledger event carries no approval time.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// Machine tracks the approval chain of one document. Every transition is
// computed on a copy and committed only once the ledger confirmed it.
type Machine struct {
	mu sync.Mutex

	logger     *zap.Logger
	ledger     Ledger
	storeID    string
	registryID string
	now        func() time.Time

	phase Phase
	doc   model.Document
}

func New(ledger Ledger, logger *zap.Logger, options ...Option) *Machine {
	m := &Machine{
		logger: logger,
		ledger: ledger,
		now:    time.Now,
		phase:  Uninitialized,
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Restore builds a machine from a document snapshot read from the ledger.
func Restore(doc model.Document, ledger Ledger, logger *zap.Logger, options ...Option) (*Machine, error) {
	const op = "restore document"

	if strings.TrimSpace(doc.ID) == "" {
		return nil, model.NewValidationError(op, "document ID is empty")
	}
	if err := doc.Chain.Validate(); err != nil {
		return nil, model.WrapValidationError(op, "invalid approval chain", err)
	}

	m := New(ledger, logger, options...)
	m.doc = doc.Clone()
	m.phase = phaseOf(m.doc.Chain)

	return m, nil
}

func phaseOf(chain model.ApprovalChain) Phase {
	if chain.Completed() {
		return Completed
	}
	return Pending
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := State{Phase: m.phase}
	if m.phase == Pending {
		state.Step, _ = m.doc.Chain.Current()
	}
	return state
}

// CurrentApprover returns false iff the chain is completed or not created yet.
func (m *Machine) CurrentApprover() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.Chain.CurrentApprover()
}

// Document returns a copy of the tracked document.
func (m *Machine) Document() model.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.Clone()
}

// Create submits the document with its first approver. The document ID is
// taken from the creation event only.
func (m *Machine) Create(ctx context.Context, session wallet.Session, fingerprint []byte, firstApprover string) (string, error) {
	const op = "create document"

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != Uninitialized {
		return "", model.NewValidationError(op, "document already created")
	}
	creator, ok := wallet.Connected(session)
	if !ok {
		return "", model.NewValidationError(op, "wallet is not connected")
	}
	if len(fingerprint) == 0 {
		return "", model.NewValidationError(op, "content fingerprint is empty")
	}
	firstApprover = strings.TrimSpace(firstApprover)
	if firstApprover == model.NoApprover {
		return "", model.NewValidationError(op, "first approver is empty")
	}

	call := model.Call{
		EntryPoint: chainsignfamily.CreateDocument,
		Args:       []interface{}{m.storeID, m.registryID, fingerprint, firstApprover},
	}
	receipt, err := m.submit(ctx, op, call, session)
	if err != nil {
		return "", err
	}

	event, ok := receipt.FindEvent(chainsignfamily.EventDocumentCreated, nil)
	if !ok {
		return "", model.NewConfirmationError(op, "creation event missing from transaction "+receipt.TransactionID)
	}
	docID := strings.TrimSpace(event.Attributes[chainsignfamily.AttrDocID])
	if docID == "" {
		return "", model.NewConfirmationError(op, "creation event carries no document ID")
	}

	m.doc = model.Document{
		ID:          docID,
		Fingerprint: append([]byte(nil), fingerprint...),
		Creator:     creator,
		Chain:       model.NewApprovalChain(firstApprover),
	}
	m.phase = Created
	metrics.ObserveTransition(Created.String())
	m.phase = Pending
	metrics.ObserveTransition(Pending.String())

	m.logger.Info("document created", zap.String("docID", docID), zap.String("creator", creator), zap.String("approver", firstApprover))

	return docID, nil
}

// Approve approves the current step. A non empty next appends a pending step
// for next, model.NoApprover completes the chain.
func (m *Machine) Approve(ctx context.Context, session wallet.Session, next string) error {
	const op = "approve document"

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.phase {
	case Pending:
	case Completed:
		return model.NewValidationError(op, "approval chain is already completed")
	default:
		return model.NewValidationError(op, "document is not created")
	}

	signer, ok := wallet.Connected(session)
	if !ok {
		return model.NewValidationError(op, "wallet is not connected")
	}
	// the local copy may be stale, the ledger decides
	if current, _ := m.doc.Chain.CurrentApprover(); !model.SameAddress(current, signer) {
		m.logger.Warn("signer is not the current approver of the local copy",
			zap.String("docID", m.doc.ID), zap.String("signer", signer), zap.String("approver", current))
	}

	next = strings.TrimSpace(next)
	var nextArg interface{}
	if next != model.NoApprover {
		nextArg = next
	}

	call := model.Call{
		EntryPoint: chainsignfamily.ApproveDocument,
		Args:       []interface{}{m.storeID, m.registryID, m.doc.ID, nextArg},
	}
	receipt, err := m.submit(ctx, op, call, session)
	if err != nil {
		return err
	}

	event, ok := receipt.FindEvent(chainsignfamily.EventDocumentApproved, map[string]string{chainsignfamily.AttrDocID: m.doc.ID})
	if !ok {
		return model.NewConfirmationError(op, "approval event missing from transaction "+receipt.TransactionID)
	}

	confirmedNext := strings.TrimSpace(event.Attributes[chainsignfamily.AttrNextApprover])
	if next == model.NoApprover && confirmedNext != model.NoApprover {
		return model.NewConfirmationError(op, "ledger appended next approver "+confirmedNext)
	}
	if next != model.NoApprover && !model.SameAddress(next, confirmedNext) {
		return model.NewConfirmationError(op, fmt.Sprintf("ledger confirmed next approver %q, requested %q", confirmedNext, next))
	}

	approvedAt, err := m.approvedAt(event)
	if err != nil {
		return model.NewConfirmationError(op, err.Error())
	}

	advanced, err := m.doc.Chain.Advance(approvedAt, next)
	if err != nil {
		return err
	}

	m.doc.Chain = advanced
	m.phase = phaseOf(advanced)
	metrics.ObserveTransition(m.phase.String())

	m.logger.Info("document approved", zap.String("docID", m.doc.ID), zap.String("approver", signer), zap.String("nextApprover", next))

	return nil
}

// submit sends the call and checks the result is still wanted and confirmed.
func (m *Machine) submit(ctx context.Context, op string, call model.Call, session wallet.Session) (model.Receipt, error) {
	receipt, err := m.ledger.Submit(ctx, call, session)
	if err != nil {
		m.logger.Debug("ledger submission failed", zap.String("entryPoint", call.EntryPoint), zap.Error(err))
		return model.Receipt{}, err
	}

	select {
	case <-session.Done():
		m.logger.Info("wallet disconnected while the call was in flight, discarding the result",
			zap.String("entryPoint", call.EntryPoint), zap.String("transactionID", receipt.TransactionID))
		return model.Receipt{}, model.WrapValidationError(op, "wallet session", model.ErrSessionClosed)
	default:
	}

	if !receipt.Confirmed {
		return model.Receipt{}, model.NewConfirmationError(op, "transaction "+receipt.TransactionID+" is not confirmed")
	}

	return receipt, nil
}

func (m *Machine) approvedAt(event model.Event) (time.Time, error) {
	raw := strings.TrimSpace(event.Attributes[chainsignfamily.AttrApprovedAt])
	if raw == "" {
		return m.now(), nil
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed approval time %q", raw)
	}
	return time.Unix(seconds, 0), nil
}
