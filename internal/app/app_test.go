package app_test

import (
	"chainsign/internal/app"
	"chainsign/internal/blockchain/chainsignfamily"
	"chainsign/internal/config"
	"chainsign/internal/keymanager"
	"chainsign/internal/model"
	"chainsign/internal/repository/mongodb"
	"chainsign/internal/wallet"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeLedger keeps documents the way the contract would.
type fakeLedger struct {
	mu      sync.Mutex
	docs    map[string]model.Document
	calls   []model.Call
	readErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{docs: map[string]model.Document{}}
}

func (l *fakeLedger) Submit(_ context.Context, call model.Call, session wallet.Session) (model.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls = append(l.calls, call)
	signer, _ := session.CurrentAddress()
	receipt := model.Receipt{TransactionID: fmt.Sprint("txn-", len(l.calls)), Confirmed: true}

	switch call.EntryPoint {
	case chainsignfamily.CreateDocument:
		docID := fmt.Sprint("doc-", len(l.docs)+1)
		l.docs[docID] = model.Document{
			ID:          docID,
			Fingerprint: call.Args[2].([]byte),
			Creator:     signer,
			Chain:       model.NewApprovalChain(call.Args[3].(string)),
		}
		receipt.Events = []model.Event{{
			Type:       chainsignfamily.EventDocumentCreated,
			Attributes: map[string]string{chainsignfamily.AttrDocID: docID},
		}}

	case chainsignfamily.ApproveDocument:
		docID := call.Args[2].(string)
		doc := l.docs[docID]
		if current, ok := doc.Chain.CurrentApprover(); !ok || !model.SameAddress(current, signer) {
			return model.Receipt{}, model.NewRejectionError(call.EntryPoint, "signer is not the current approver")
		}
		next, _ := call.Args[3].(string)
		chain, err := doc.Chain.Advance(time.Unix(1700000000, 0), next)
		if err != nil {
			return model.Receipt{}, err
		}
		doc.Chain = chain
		l.docs[docID] = doc
		receipt.Events = []model.Event{{
			Type: chainsignfamily.EventDocumentApproved,
			Attributes: map[string]string{
				chainsignfamily.AttrDocID:        docID,
				chainsignfamily.AttrNextApprover: next,
				chainsignfamily.AttrApprovedAt:   "1700000000",
			},
		}}

	case chainsignfamily.AddEmployee:
		receipt.Events = []model.Event{{
			Type:       chainsignfamily.EventEmployeeAdded,
			Attributes: map[string]string{chainsignfamily.AttrAddress: call.Args[1].(string)},
		}}

	case chainsignfamily.StoreDocumentHash:
		receipt.Events = []model.Event{{
			Type:       chainsignfamily.EventHashStored,
			Attributes: map[string]string{chainsignfamily.AttrDocID: call.Args[0].(string)},
		}}
	}

	return receipt, nil
}

func (l *fakeLedger) GetDocument(_ context.Context, docID string) (model.Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.readErr != nil {
		return model.Document{}, l.readErr
	}
	doc, ok := l.docs[docID]
	if !ok {
		return model.Document{}, app.ErrDocumentNotFound
	}
	return doc.Clone(), nil
}

type fakeCache struct {
	mu        sync.Mutex
	docs      map[string]model.Document
	employees []model.Employee
}

func newFakeCache() *fakeCache {
	return &fakeCache{docs: map[string]model.Document{}}
}

func (c *fakeCache) SaveDocument(_ context.Context, doc model.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	saved := doc.Clone()
	if stored, ok := c.docs[doc.ID]; ok && saved.ContentRef == "" {
		saved.ContentRef = stored.ContentRef
	}
	c.docs[doc.ID] = saved
	return nil
}

func (c *fakeCache) GetDocument(_ context.Context, docID string) (model.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[docID]
	if !ok {
		return model.Document{}, mongodb.ErrNotFound
	}
	return doc.Clone(), nil
}

func (c *fakeCache) UpdateChain(_ context.Context, docID string, chain model.ApprovalChain) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[docID]
	if !ok {
		return mongodb.ErrNotFound
	}
	doc.Chain = chain.Clone()
	c.docs[docID] = doc
	return nil
}

func (c *fakeCache) SaveEmployee(_ context.Context, employee model.Employee) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.employees = append(c.employees, employee)
	return nil
}

func (c *fakeCache) SearchEmployees(_ context.Context, name string) ([]model.Employee, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	found := []model.Employee{}
	for _, employee := range c.employees {
		if strings.Contains(strings.ToLower(employee.Name), strings.ToLower(name)) {
			found = append(found, employee)
		}
	}
	return found, nil
}

// unreadableCache fails every read, writes go through.
type unreadableCache struct {
	*fakeCache
}

func (c unreadableCache) GetDocument(context.Context, string) (model.Document, error) {
	return model.Document{}, errors.New("connection reset by peer")
}

// lateCache runs beforeMiss when UpdateChain finds nothing, the way a
// concurrent CreateDocument may cache the document in between.
type lateCache struct {
	*fakeCache
	beforeMiss func()
}

func (c *lateCache) UpdateChain(ctx context.Context, docID string, chain model.ApprovalChain) error {
	if _, err := c.fakeCache.GetDocument(ctx, docID); errors.Is(err, mongodb.ErrNotFound) {
		c.beforeMiss()
		return mongodb.ErrNotFound
	}
	return c.fakeCache.UpdateChain(ctx, docID, chain)
}

type fakeBlobStore struct {
	err error
}

func (b fakeBlobStore) Upload(context.Context, []byte) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return "blob-1", nil
}

func (b fakeBlobStore) URL(contentRef string) string {
	return "http://blobs/blob/" + contentRef
}

type fixture struct {
	app    *app.App
	ledger *fakeLedger
	cache  *fakeCache
}

func newFixture(t *testing.T) fixture {
	cache := newFakeCache()
	return newFixtureWithCache(t, cache, cache)
}

// newFixtureWithCache lets the app see a wrapped cache while the test inspects
// the underlying one.
func newFixtureWithCache(t *testing.T, cache *fakeCache, wrapped app.Cache) fixture {
	ledger := newFakeLedger()
	keys := keymanager.NewKeyManager(zap.NewNop(), time.Minute)
	contract := config.Contract{DocumentStoreID: "0xstore", EmployeeRegistryID: "0xregistry"}

	return fixture{
		app:    app.NewApp(zap.NewNop(), contract, ledger, wrapped, fakeBlobStore{}, keys),
		ledger: ledger,
		cache:  cache,
	}
}

func (f fixture) connect(t *testing.T) app.SessionInfo {
	info, err := f.app.ConnectSession(context.Background(), "")
	require.NoError(t, err)
	return info
}

func TestConnectSession(t *testing.T) {
	f := newFixture(t)

	info := f.connect(t)
	assert.NotEmpty(t, info.ID)
	assert.True(t, strings.HasPrefix(info.Address, "0x"))
	assert.NotEmpty(t, info.PublicKey)

	const privateKey = "2f1e7b7a130d7ba9da0068b3bb0ba1d79e7e77110302c9f746c3c2a63fe40088"
	first, err := f.app.ConnectSession(context.Background(), privateKey)
	require.NoError(t, err)
	second, err := f.app.ConnectSession(context.Background(), "0x"+privateKey)
	require.NoError(t, err)
	assert.Equal(t, first.Address, second.Address)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = f.app.ConnectSession(context.Background(), "not a key")
	assert.Error(t, err)

	require.NoError(t, f.app.DisconnectSession(info.ID))
	assert.True(t, errors.Is(f.app.DisconnectSession(info.ID), keymanager.ErrUnknownSession))
}

func TestDocumentFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.connect(t)
	alice := f.connect(t)
	bob := f.connect(t)

	created, err := f.app.CreateDocument(ctx, creator.ID, []byte("%PDF-1.4"), alice.Address)
	require.NoError(t, err)
	docID := created.Document.ID
	assert.Equal(t, "doc-1", docID)
	assert.Equal(t, "http://blobs/blob/blob-1", created.BlobURL)
	assert.Equal(t, alice.Address, created.CurrentApprover)
	require.Len(t, created.Participants, 1)
	assert.Equal(t, model.ParticipantWaiting, created.Participants[0].Status)

	// bob is not the current approver, the ledger rejects and nothing changes
	_, err = f.app.ApproveDocument(ctx, bob.ID, docID, model.NoApprover)
	var rejection *model.RejectionError
	require.True(t, errors.As(err, &rejection))

	approved, err := f.app.ApproveDocument(ctx, alice.ID, docID, bob.Address)
	require.NoError(t, err)
	assert.Equal(t, bob.Address, approved.CurrentApprover)
	assert.Equal(t, "blob-1", approved.Document.ContentRef)

	completed, err := f.app.ApproveDocument(ctx, bob.ID, docID, model.NoApprover)
	require.NoError(t, err)
	assert.True(t, completed.Completed)
	assert.Empty(t, completed.CurrentApprover)

	view, err := f.app.GetDocument(ctx, docID)
	require.NoError(t, err)
	assert.False(t, view.Stale)
	assert.Equal(t, "http://blobs/blob/blob-1", view.BlobURL)
	require.Len(t, view.Participants, 2)
	for _, participant := range view.Participants {
		assert.Equal(t, model.ParticipantSigned, participant.Status)
		assert.NotEmpty(t, participant.Date)
	}

	cached, err := f.cache.GetDocument(ctx, docID)
	require.NoError(t, err)
	assert.True(t, cached.Chain.Completed())
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.app.CreateDocument(context.Background(), "nope", []byte("%PDF"), "0xA")
	assert.True(t, errors.Is(err, keymanager.ErrUnknownSession))

	_, err = f.app.ApproveDocument(context.Background(), "", "doc-1", "0xA")
	assert.True(t, errors.Is(err, keymanager.ErrUnknownSession))
	assert.Empty(t, f.ledger.calls)
}

func TestGetDocumentNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.app.GetDocument(context.Background(), "doc-404")
	assert.True(t, errors.Is(err, app.ErrDocumentNotFound))
}

func TestGetDocumentStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.connect(t)

	created, err := f.app.CreateDocument(ctx, creator.ID, []byte("%PDF"), "0xA")
	require.NoError(t, err)

	f.ledger.readErr = errors.New("validator unreachable")

	view, err := f.app.GetDocument(ctx, created.Document.ID)
	require.NoError(t, err)
	assert.True(t, view.Stale)
	assert.Equal(t, "0xA", view.CurrentApprover)

	_, err = f.app.GetDocument(ctx, "doc-404")
	assert.Error(t, err)
}

func TestAddEmployee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.connect(t)

	err := f.app.AddEmployee(ctx, admin.ID, model.Employee{Address: "0xabcdef0123", Name: " Alice "})
	require.NoError(t, err)

	employees, err := f.app.SearchEmployees(ctx, "ali")
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, "Alice", employees[0].Name)

	created, err := f.app.CreateDocument(ctx, admin.ID, []byte("%PDF"), "0xABCDEF0123")
	require.NoError(t, err)
	require.Len(t, created.Participants, 1)
	assert.Equal(t, "Alice", created.Participants[0].Name)

	err = f.app.AddEmployee(ctx, admin.ID, model.Employee{Address: "0x1"})
	assert.Equal(t, "validation", model.ErrorKind(err))
}

func TestStoreDocumentHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.connect(t)

	created, err := f.app.CreateDocument(ctx, creator.ID, []byte("%PDF"), "0xA")
	require.NoError(t, err)

	transactionID, err := f.app.StoreDocumentHash(ctx, creator.ID, created.Document.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, transactionID)

	last := f.ledger.calls[len(f.ledger.calls)-1]
	assert.Equal(t, chainsignfamily.StoreDocumentHash, last.EntryPoint)
	assert.Equal(t, created.Document.Fingerprint, last.Args[1])
}

func TestHandleLedgerEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	handle := f.app.HandleLedgerEvent(time.Second)

	// a document created by another client
	f.ledger.docs["doc-9"] = model.Document{ID: "doc-9", Creator: "0xother", Chain: model.NewApprovalChain("0xA")}
	event := model.Event{Type: chainsignfamily.EventDocumentCreated, Attributes: map[string]string{chainsignfamily.AttrDocID: "doc-9"}}
	require.NoError(t, handle(event))

	cached, err := f.cache.GetDocument(ctx, "doc-9")
	require.NoError(t, err)
	assert.Equal(t, "0xother", cached.Creator)

	assert.Error(t, handle(model.Event{Type: chainsignfamily.EventDocumentApproved}))
}

func TestApproveKeepsContentRefOnCacheReadFailure(t *testing.T) {
	cache := newFakeCache()
	f := newFixtureWithCache(t, cache, unreadableCache{cache})
	ctx := context.Background()

	creator := f.connect(t)
	alice := f.connect(t)

	created, err := f.app.CreateDocument(ctx, creator.ID, []byte("%PDF"), alice.Address)
	require.NoError(t, err)
	docID := created.Document.ID

	approved, err := f.app.ApproveDocument(ctx, alice.ID, docID, model.NoApprover)
	require.NoError(t, err)
	assert.True(t, approved.Completed)

	cached, err := cache.GetDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "blob-1", cached.ContentRef)
	assert.True(t, cached.Chain.Completed())
}

func TestHandleLedgerEventKeepsContentRefCachedMeanwhile(t *testing.T) {
	ctx := context.Background()
	doc := model.Document{ID: "doc-7", Creator: "0xcreator", Fingerprint: []byte{1}, Chain: model.NewApprovalChain("0xA")}

	cache := newFakeCache()
	late := &lateCache{fakeCache: cache, beforeMiss: func() {
		withRef := doc.Clone()
		withRef.ContentRef = "blob-7"
		require.NoError(t, cache.SaveDocument(ctx, withRef))
	}}
	f := newFixtureWithCache(t, cache, late)
	f.ledger.docs[doc.ID] = doc.Clone()

	handle := f.app.HandleLedgerEvent(time.Second)
	require.NoError(t, handle(model.Event{Type: chainsignfamily.EventDocumentCreated, Attributes: map[string]string{chainsignfamily.AttrDocID: doc.ID}}))

	cached, err := cache.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "blob-7", cached.ContentRef)
	assert.Equal(t, "0xcreator", cached.Creator)
}
