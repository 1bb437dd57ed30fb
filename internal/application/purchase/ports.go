package purchase

import (
	"context"
	"time"

	"github.com/cassiomorais/storekit/internal/domain/catalog"
	"github.com/cassiomorais/storekit/internal/domain/transaction"
)

// ProcessResult tells the store backend whether a delivered transaction has
// been fully handled. A pending result obliges the backend to redeliver the
// same transaction on every process start until it is confirmed.
type ProcessResult int

const (
	ResultComplete ProcessResult = iota
	ResultPending
)

// ConfirmationPolicy selects how a successful purchase is finalized.
type ConfirmationPolicy string

const (
	// PolicyImmediate completes the transaction in the success callback.
	PolicyImmediate ConfirmationPolicy = "immediate"
	// PolicyDeferred parks the transaction in the pending set and confirms
	// after a delay, surviving process restarts.
	PolicyDeferred ConfirmationPolicy = "deferred"
)

// StoreListener receives asynchronous store backend events. Implemented by
// the Controller; callbacks may arrive on any goroutine and in any order.
type StoreListener interface {
	OnStoreReady()
	OnInitializeFailed(reason transaction.InitFailureReason)
	OnPurchaseSucceeded(tx transaction.Transaction) ProcessResult
	OnPurchaseFailed(productID string, reason transaction.FailureReason)
}

// StoreBackend is the platform billing service. All result delivery is
// asynchronous through the StoreListener or the per-call callbacks; an
// in-flight purchase cannot be cancelled client-side.
type StoreBackend interface {
	// Initialize starts store initialization for the given catalog. The
	// outcome arrives via OnStoreReady or OnInitializeFailed, and any
	// unconfirmed transactions from earlier runs are redelivered through
	// OnPurchaseSucceeded.
	Initialize(ctx context.Context, cat *catalog.Catalog, listener StoreListener) error
	InitiatePurchase(ctx context.Context, productID, payload string) error
	RestoreTransactions(ctx context.Context, onDone func(restored bool)) error
	ConfirmPendingPurchase(ctx context.Context, productID string) error
	Login(ctx context.Context, onDone func(ok bool, err error)) error
}

// ReceiptClaim is one signed purchase extracted from a validated receipt.
type ReceiptClaim struct {
	ProductID     string
	TransactionID string
	Store         string
	PurchaseDate  time.Time
}

// ReceiptValidator classifies a receipt payload using store-specific trust
// material. Invalid receipts yield a *errors.SecurityError.
type ReceiptValidator interface {
	Validate(receipt string) ([]ReceiptClaim, error)
}

// HistoryRepository persists the owned/not-owned flag per product. Grants
// must be idempotent against redelivery: MarkOwned reports true only when the
// product was not owned yet or the transaction id differs from the recorded
// one (a new purchase rather than a redelivered transaction).
type HistoryRepository interface {
	MarkOwned(ctx context.Context, productID, transactionID string) (granted bool, err error)
	Revoke(ctx context.Context, productID string) error
	IsOwned(ctx context.Context, productID string) (bool, error)
	All(ctx context.Context) (map[string]bool, error)
}

// PendingStore persists the set of product ids awaiting confirmation so the
// deferred policy survives process restarts.
type PendingStore interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, productIDs []string) error
}

// Notifier pushes state changes to the presentation layer.
type Notifier interface {
	PurchaseStateChanged(state transaction.State, productID string)
	PurchaseFailed(productID string, reason transaction.FailureReason)
	HistoryChanged(owned map[string]bool)
	PendingChanged(productIDs []string)
	PayoutGranted(productID string, payouts []catalog.Payout)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) PurchaseStateChanged(transaction.State, string)   {}
func (NopNotifier) PurchaseFailed(string, transaction.FailureReason) {}
func (NopNotifier) HistoryChanged(map[string]bool)                   {}
func (NopNotifier) PendingChanged([]string)                          {}
func (NopNotifier) PayoutGranted(string, []catalog.Payout)           {}
