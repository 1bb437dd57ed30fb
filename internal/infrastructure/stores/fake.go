package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cassiomorais/storekit/internal/application/purchase"
	"github.com/cassiomorais/storekit/internal/domain/catalog"
	domainErrors "github.com/cassiomorais/storekit/internal/domain/errors"
	"github.com/cassiomorais/storekit/internal/domain/transaction"
	"github.com/google/uuid"
)

// Mode selects how the fake store resolves purchase attempts.
type Mode string

const (
	// ModeAlwaysSucceed approves every purchase.
	ModeAlwaysSucceed Mode = "always_succeed"
	// ModeAlwaysFail declines every purchase.
	ModeAlwaysFail Mode = "always_fail"
	// ModeSimulated approves or declines according to the failure rate.
	ModeSimulated Mode = "simulated"
)

// FakeStore is an in-process store backend for development builds. It honors
// the full backend contract: asynchronous delivery, redelivery of
// unconfirmed transactions on Initialize, and restore of durable purchases.
type FakeStore struct {
	mode        Mode
	latency     time.Duration
	failureRate float64 // 0.0 to 1.0

	mu          sync.Mutex
	cat         *catalog.Catalog
	listener    purchase.StoreListener
	unconfirmed map[string]transaction.Transaction
	restorable  []transaction.Transaction
}

type FakeStoreOption func(*FakeStore)

func WithMode(mode Mode) FakeStoreOption {
	return func(s *FakeStore) { s.mode = mode }
}

func WithLatency(d time.Duration) FakeStoreOption {
	return func(s *FakeStore) { s.latency = d }
}

func WithFailureRate(rate float64) FakeStoreOption {
	return func(s *FakeStore) { s.failureRate = rate }
}

func NewFakeStore(opts ...FakeStoreOption) *FakeStore {
	s := &FakeStore{
		mode:        ModeAlwaysSucceed,
		latency:     100 * time.Millisecond,
		failureRate: 0.0,
		unconfirmed: make(map[string]transaction.Transaction),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *FakeStore) Name() string { return "fake" }

// Initialize reports readiness and redelivers every transaction that was left
// unconfirmed by a previous session, mirroring real billing services.
func (s *FakeStore) Initialize(ctx context.Context, cat *catalog.Catalog, listener purchase.StoreListener) error {
	s.mu.Lock()
	s.cat = cat
	s.listener = listener
	redeliver := make([]transaction.Transaction, 0, len(s.unconfirmed))
	for _, tx := range s.unconfirmed {
		redeliver = append(redeliver, tx)
	}
	s.mu.Unlock()

	if cat.Len() == 0 {
		listener.OnInitializeFailed(transaction.InitNoProductsConfigured)
		return nil
	}

	listener.OnStoreReady()
	for _, tx := range redeliver {
		if listener.OnPurchaseSucceeded(tx) == purchase.ResultComplete {
			s.mu.Lock()
			delete(s.unconfirmed, tx.ProductID)
			s.mu.Unlock()
		}
	}
	return nil
}

// InitiatePurchase resolves the purchase on a separate goroutine after the
// configured latency, like a real billing dialog.
func (s *FakeStore) InitiatePurchase(ctx context.Context, productID, payload string) error {
	s.mu.Lock()
	listener := s.listener
	cat := s.cat
	s.mu.Unlock()
	if listener == nil {
		return domainErrors.ErrNotReady
	}
	product, ok := cat.Product(productID)
	if !ok {
		return domainErrors.ErrProductNotFound
	}

	go func() {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			listener.OnPurchaseFailed(productID, transaction.ReasonUnknown)
			return
		}

		if s.declines() {
			listener.OnPurchaseFailed(productID, transaction.ReasonPaymentDeclined)
			return
		}

		tx := s.newTransaction(product, payload)
		result := listener.OnPurchaseSucceeded(tx)

		s.mu.Lock()
		if result == purchase.ResultPending {
			s.unconfirmed[tx.ProductID] = tx
		}
		if product.Type.Durable() {
			s.restorable = append(s.restorable, tx)
		}
		s.mu.Unlock()
	}()
	return nil
}

// RestoreTransactions redelivers every durable purchase made through this
// fake store instance.
func (s *FakeStore) RestoreTransactions(ctx context.Context, onDone func(restored bool)) error {
	s.mu.Lock()
	listener := s.listener
	txs := make([]transaction.Transaction, len(s.restorable))
	copy(txs, s.restorable)
	s.mu.Unlock()
	if listener == nil {
		return domainErrors.ErrNotReady
	}

	go func() {
		for _, tx := range txs {
			listener.OnPurchaseSucceeded(tx)
		}
		onDone(true)
	}()
	return nil
}

func (s *FakeStore) ConfirmPendingPurchase(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.unconfirmed, productID)
	return nil
}

// Login always succeeds; the fake store has no channel account.
func (s *FakeStore) Login(ctx context.Context, onDone func(ok bool, err error)) error {
	go func() {
		time.Sleep(s.latency)
		onDone(true, nil)
	}()
	return nil
}

func (s *FakeStore) declines() bool {
	switch s.mode {
	case ModeAlwaysFail:
		return true
	case ModeSimulated:
		return rand.Float64() < s.failureRate
	}
	return false
}

func (s *FakeStore) newTransaction(product *catalog.Product, payload string) transaction.Transaction {
	txID := fmt.Sprintf("fake_txn_%s", uuid.New().String()[:8])
	receipt, _ := json.Marshal(map[string]string{
		"Store":         s.Name(),
		"Payload":       payload,
		"TransactionID": txID,
	})
	return transaction.Transaction{
		ProductID: product.ID,
		ID:        txID,
		Receipt:   string(receipt),
		State:     transaction.StatePurchaseInProgress,
		CreatedAt: time.Now(),
	}
}
