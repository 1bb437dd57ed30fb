package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/cassiomorais/storekit/internal/application/continuation"
	"github.com/cassiomorais/storekit/internal/application/purchase"
	"github.com/cassiomorais/storekit/internal/domain/catalog"
	"github.com/cassiomorais/storekit/internal/domain/transaction"
)

// --- History repository mock ---

// MemoryHistory is an in-memory purchase.HistoryRepository.
type MemoryHistory struct {
	mu    sync.Mutex
	owned map[string]string // product id -> transaction id of the grant

	MarkOwnedFunc func(ctx context.Context, productID, transactionID string) (bool, error)
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{owned: make(map[string]string)}
}

func (m *MemoryHistory) MarkOwned(ctx context.Context, productID, transactionID string) (bool, error) {
	if m.MarkOwnedFunc != nil {
		return m.MarkOwnedFunc(ctx, productID, transactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.owned[productID]; ok && prev == transactionID {
		return false, nil
	}
	m.owned[productID] = transactionID
	return true, nil
}

func (m *MemoryHistory) Revoke(ctx context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.owned, productID)
	return nil
}

func (m *MemoryHistory) IsOwned(ctx context.Context, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.owned[productID]
	return ok, nil
}

func (m *MemoryHistory) All(ctx context.Context) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.owned))
	for id := range m.owned {
		out[id] = true
	}
	return out, nil
}

// --- Pending store mock ---

// MemoryPendingStore is an in-memory purchase.PendingStore.
type MemoryPendingStore struct {
	mu      sync.Mutex
	ids     []string
	saves   int
	LoadErr error
	SaveErr error
}

func NewMemoryPendingStore(ids ...string) *MemoryPendingStore {
	return &MemoryPendingStore{ids: ids}
}

func (m *MemoryPendingStore) Load(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out, nil
}

func (m *MemoryPendingStore) Save(ctx context.Context, productIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.ids = make([]string, len(productIDs))
	copy(m.ids, productIDs)
	m.saves++
	return nil
}

func (m *MemoryPendingStore) Stored() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

func (m *MemoryPendingStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// --- Store backend mock ---

// ScriptedStore is a purchase.StoreBackend driven explicitly by tests: the
// test delivers callbacks by calling the listener helpers.
type ScriptedStore struct {
	mu       sync.Mutex
	listener purchase.StoreListener

	ReadyOnInit    bool
	InitFailReason transaction.InitFailureReason
	Redeliver      []transaction.Transaction // delivered during Initialize (deferred-policy redelivery)
	RestoreTxs     []transaction.Transaction // delivered during RestoreTransactions

	InitErr     error
	InitiateErr error
	ConfirmErr  error

	InitiateCalls []string
	ConfirmCalls  []string
	RestoreCalls  int
	LoginCalls    int
}

func NewScriptedStore() *ScriptedStore {
	return &ScriptedStore{ReadyOnInit: true}
}

func (s *ScriptedStore) Initialize(ctx context.Context, cat *catalog.Catalog, listener purchase.StoreListener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	if s.InitErr != nil {
		return s.InitErr
	}
	if s.InitFailReason != "" {
		listener.OnInitializeFailed(s.InitFailReason)
		return nil
	}
	if s.ReadyOnInit {
		listener.OnStoreReady()
		for _, tx := range s.Redeliver {
			listener.OnPurchaseSucceeded(tx)
		}
	}
	return nil
}

func (s *ScriptedStore) InitiatePurchase(ctx context.Context, productID, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InitiateErr != nil {
		return s.InitiateErr
	}
	s.InitiateCalls = append(s.InitiateCalls, productID)
	return nil
}

func (s *ScriptedStore) RestoreTransactions(ctx context.Context, onDone func(restored bool)) error {
	s.mu.Lock()
	s.RestoreCalls++
	listener := s.listener
	txs := s.RestoreTxs
	s.mu.Unlock()
	for _, tx := range txs {
		listener.OnPurchaseSucceeded(tx)
	}
	onDone(true)
	return nil
}

func (s *ScriptedStore) ConfirmPendingPurchase(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ConfirmErr != nil {
		return s.ConfirmErr
	}
	s.ConfirmCalls = append(s.ConfirmCalls, productID)
	return nil
}

func (s *ScriptedStore) Login(ctx context.Context, onDone func(ok bool, err error)) error {
	s.mu.Lock()
	s.LoginCalls++
	s.mu.Unlock()
	onDone(true, nil)
	return nil
}

// DeliverSuccess pushes a success callback through the registered listener.
func (s *ScriptedStore) DeliverSuccess(tx transaction.Transaction) purchase.ProcessResult {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	return listener.OnPurchaseSucceeded(tx)
}

// DeliverFailure pushes a failure callback through the registered listener.
func (s *ScriptedStore) DeliverFailure(productID string, reason transaction.FailureReason) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	listener.OnPurchaseFailed(productID, reason)
}

// --- Purchase notifier mock ---

// RecordingNotifier captures purchase notifications in order.
type RecordingNotifier struct {
	mu       sync.Mutex
	States   []transaction.State
	Failures []transaction.FailureReason
	Payouts  map[string][]catalog.Payout
	History  []map[string]bool
	Pending  [][]string
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{Payouts: make(map[string][]catalog.Payout)}
}

func (n *RecordingNotifier) PurchaseStateChanged(state transaction.State, productID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.States = append(n.States, state)
}

func (n *RecordingNotifier) PurchaseFailed(productID string, reason transaction.FailureReason) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Failures = append(n.Failures, reason)
}

func (n *RecordingNotifier) HistoryChanged(owned map[string]bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.History = append(n.History, owned)
}

func (n *RecordingNotifier) PendingChanged(productIDs []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Pending = append(n.Pending, productIDs)
}

func (n *RecordingNotifier) PayoutGranted(productID string, payouts []catalog.Payout) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Payouts[productID] = append(n.Payouts[productID], payouts...)
}

func (n *RecordingNotifier) LastState() transaction.State {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.States) == 0 {
		return ""
	}
	return n.States[len(n.States)-1]
}

// --- Ad backend mock ---

// FakeAdBackend is a continuation.AdBackend that hands the result callback
// to the test for explicit delivery.
type FakeAdBackend struct {
	mu       sync.Mutex
	Ready    bool
	onResult func(continuation.AdResult)
	shows    int
}

func NewFakeAdBackend(ready bool) *FakeAdBackend {
	return &FakeAdBackend{Ready: ready}
}

func (f *FakeAdBackend) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Ready
}

func (f *FakeAdBackend) Show(onResult func(continuation.AdResult)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onResult = onResult
	f.shows++
}

// Deliver invokes the stored result callback, simulating the backend's
// asynchronous verdict. The callback is kept so tests can deliver a second,
// stale verdict for the same request.
func (f *FakeAdBackend) Deliver(result continuation.AdResult) {
	f.mu.Lock()
	cb := f.onResult
	f.mu.Unlock()
	if cb != nil {
		cb(result)
	}
}

func (f *FakeAdBackend) Shows() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shows
}

// --- Continuation notifier mock ---

// RecordingContinuationNotifier captures continuation notifications.
type RecordingContinuationNotifier struct {
	mu     sync.Mutex
	Offers []continuation.Offer
	Ticks  []string
	Pauses []bool
}

func NewRecordingContinuationNotifier() *RecordingContinuationNotifier {
	return &RecordingContinuationNotifier{}
}

func (n *RecordingContinuationNotifier) OfferChanged(offer continuation.Offer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Offers = append(n.Offers, offer)
}

func (n *RecordingContinuationNotifier) CountdownTick(remaining time.Duration, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Ticks = append(n.Ticks, text)
}

func (n *RecordingContinuationNotifier) PauseChanged(paused bool, timeScale float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Pauses = append(n.Pauses, paused)
}
