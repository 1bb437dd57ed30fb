package purchase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cassiomorais/storekit/internal/domain/catalog"
	domainErrors "github.com/cassiomorais/storekit/internal/domain/errors"
	"github.com/cassiomorais/storekit/internal/domain/transaction"
	"github.com/cassiomorais/storekit/internal/storefront"
	"github.com/cassiomorais/storekit/pkg/clock"
	"github.com/cassiomorais/storekit/pkg/saga"
	"github.com/rs/zerolog"
)

// Config selects the confirmation policy and the optional behaviors that the
// original build toggled at compile time.
type Config struct {
	Policy           ConfirmationPolicy
	ConfirmDelay     time.Duration
	ValidateReceipts bool
	EnablePayouts    bool
	DeveloperPayload string
}

// Controller owns the purchase lifecycle: one in-flight transaction at a
// time, a restartable pending set for deferred confirmations, and the
// owned-product history. All store backend callbacks are tolerated out of
// order; a callback that no longer matches the current state is a logged
// no-op.
type Controller struct {
	cfg       Config
	caps      storefront.Capabilities
	cat       *catalog.Catalog
	store     StoreBackend
	validator ReceiptValidator
	history   HistoryRepository
	pendStore PendingStore
	notifier  Notifier
	clk       clock.Clock
	logger    zerolog.Logger

	mu          sync.Mutex
	state       transaction.State
	current     *transaction.Transaction
	pending     map[string]string // product id -> transaction id awaiting confirmation
	restoring   bool
	loggedIn    bool
	initFailure transaction.InitFailureReason
	lastTxID    string
	lastReceipt string
}

// NewController creates an uninitialized purchase controller. validator may
// be nil when receipt validation is disabled for the active storefront.
func NewController(
	cfg Config,
	caps storefront.Capabilities,
	store StoreBackend,
	validator ReceiptValidator,
	history HistoryRepository,
	pendStore PendingStore,
	notifier Notifier,
	clk clock.Clock,
	logger zerolog.Logger,
) *Controller {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if cfg.ConfirmDelay <= 0 {
		cfg.ConfirmDelay = 5 * time.Second
	}
	return &Controller{
		cfg:       cfg,
		caps:      caps,
		store:     store,
		validator: validator,
		history:   history,
		pendStore: pendStore,
		notifier:  notifier,
		clk:       clk,
		logger:    logger.With().Str("component", "purchase").Logger(),
		state:     transaction.StateUninitialized,
		pending:   make(map[string]string),
	}
}

// Initialize loads the pending set, then hands the catalog to the store
// backend. Readiness arrives asynchronously via OnStoreReady or
// OnInitializeFailed.
func (c *Controller) Initialize(ctx context.Context, cat *catalog.Catalog) error {
	c.mu.Lock()
	next, err := transaction.Transition(c.state, transaction.StateInitializing)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = next
	c.cat = cat

	// A pending set written by a previous run may reference products that
	// were since removed from the catalog. Skip those, keep the rest.
	ids, loadErr := c.pendStore.Load(ctx)
	for _, id := range ids {
		if _, ok := cat.Product(id); !ok {
			c.logger.Warn().Str("product_id", id).Msg("pending purchase references unknown product, skipping")
			continue
		}
		c.pending[id] = ""
	}
	c.mu.Unlock()

	if loadErr != nil {
		c.logger.Error().Err(loadErr).Msg("failed to load pending set, starting empty")
	}
	c.notifyState(transaction.StateInitializing, "")

	if err := c.store.Initialize(ctx, cat, c); err != nil {
		c.mu.Lock()
		c.state = transaction.StateFailed
		c.initFailure = transaction.InitUnknown
		c.mu.Unlock()
		return fmt.Errorf("store initialize: %w", err)
	}
	return nil
}

// OnStoreReady is called by the store backend once billing is available.
func (c *Controller) OnStoreReady() {
	c.mu.Lock()
	if c.state != transaction.StateInitializing {
		c.mu.Unlock()
		c.logger.Warn().Str("state", string(c.state)).Msg("store ready in unexpected state, ignoring")
		return
	}
	c.state = transaction.StateReady
	pendingCount := len(c.pending)
	c.mu.Unlock()

	c.logger.Info().Int("pending", pendingCount).Msg("store ready")
	c.notifyState(transaction.StateReady, "")
}

// OnInitializeFailed is called by the store backend when billing cannot be
// brought up. These reasons indicate configuration errors; the controller
// stays failed and does not retry.
func (c *Controller) OnInitializeFailed(reason transaction.InitFailureReason) {
	c.mu.Lock()
	if c.state != transaction.StateInitializing {
		c.mu.Unlock()
		c.logger.Warn().Str("state", string(c.state)).Msg("initialize failure in unexpected state, ignoring")
		return
	}
	c.state = transaction.StateFailed
	c.initFailure = reason
	c.mu.Unlock()

	c.logger.Error().Str("reason", string(reason)).Msg("store initialization failed")
	c.notifyState(transaction.StateFailed, "")
}

// InitiatePurchase starts a purchase for the given product. At most one
// purchase may be in flight; a second attempt is rejected without contacting
// the store.
func (c *Controller) InitiatePurchase(ctx context.Context, productID string) error {
	c.mu.Lock()
	if c.cat == nil {
		c.mu.Unlock()
		return domainErrors.ErrNotReady
	}
	product, ok := c.cat.Product(productID)
	if !ok {
		c.mu.Unlock()
		return domainErrors.ErrProductNotFound
	}
	if !product.Enabled {
		c.mu.Unlock()
		return domainErrors.ErrProductUnavailable
	}
	if c.state == transaction.StatePurchaseInProgress || c.state == transaction.StateAwaitingConfirmation {
		c.mu.Unlock()
		c.logger.Warn().Str("product_id", productID).Msg("purchase already in progress, rejecting")
		return domainErrors.ErrPurchaseInProgress
	}
	if c.state != transaction.StateReady {
		c.mu.Unlock()
		return domainErrors.ErrNotReady
	}
	if c.caps.RequiresLogin && !c.loggedIn {
		c.logger.Warn().Msg("purchase without login, notifications will not be forwarded server-to-server")
	}
	c.state = transaction.StatePurchaseInProgress
	c.current = &transaction.Transaction{
		ProductID: productID,
		State:     transaction.StatePurchaseInProgress,
		CreatedAt: c.clk.Now(),
	}
	c.mu.Unlock()

	c.notifyState(transaction.StatePurchaseInProgress, productID)

	if err := c.store.InitiatePurchase(ctx, productID, c.cfg.DeveloperPayload); err != nil {
		c.finishCurrent(productID, transaction.StateFailed)
		return fmt.Errorf("initiate purchase %s: %w", productID, err)
	}
	return nil
}

// OnPurchaseSucceeded handles a successful transaction delivered by the
// store backend: the current purchase, a restored transaction, or a
// redelivered pending transaction from a previous run.
func (c *Controller) OnPurchaseSucceeded(tx transaction.Transaction) ProcessResult {
	ctx := context.Background()

	c.mu.Lock()
	if c.cat == nil {
		c.mu.Unlock()
		c.logger.Warn().Str("product_id", tx.ProductID).Msg("purchase delivered before initialize, ignoring")
		return ResultComplete
	}
	product, known := c.cat.Product(tx.ProductID)
	if !known {
		c.mu.Unlock()
		c.logger.Warn().Str("product_id", tx.ProductID).Msg("purchase delivered for unknown product, completing without grant")
		return ResultComplete
	}
	isCurrent := c.current != nil && c.current.ProductID == tx.ProductID
	c.lastTxID = tx.ID
	c.lastReceipt = tx.Receipt
	c.mu.Unlock()

	c.logger.Info().
		Str("product_id", tx.ProductID).
		Str("transaction_id", tx.ID).
		Bool("current", isCurrent).
		Msg("purchase succeeded")

	if c.cfg.ValidateReceipts && c.validator != nil {
		if _, err := c.validator.Validate(tx.Receipt); err != nil {
			var secErr *domainErrors.SecurityError
			if errors.As(err, &secErr) {
				// Invalid receipt: no entitlement, but the transaction
				// is terminated as handled so the store stops
				// redelivering it.
				c.logger.Error().Err(err).Str("product_id", tx.ProductID).Msg("receipt validation failed, not unlocking content")
				c.finishCurrent(tx.ProductID, transaction.StateFailed)
				return ResultComplete
			}
			c.logger.Error().Err(err).Str("product_id", tx.ProductID).Msg("receipt validation unavailable, deferring grant")
			return ResultPending
		}
	}

	if c.cfg.Policy == PolicyDeferred {
		c.mu.Lock()
		c.pending[tx.ProductID] = tx.ID
		pendingIDs := c.pendingIDsLocked()
		if isCurrent {
			c.state = transaction.StateAwaitingConfirmation
			c.current.State = transaction.StateAwaitingConfirmation
		}
		c.mu.Unlock()

		c.persistPending(ctx, pendingIDs)
		c.notifier.PendingChanged(pendingIDs)
		if isCurrent {
			c.notifyState(transaction.StateAwaitingConfirmation, tx.ProductID)
		}

		productID := tx.ProductID
		c.logger.Info().
			Str("product_id", productID).
			Dur("delay", c.cfg.ConfirmDelay).
			Msg("delaying purchase confirmation")
		c.clk.AfterFunc(c.cfg.ConfirmDelay, func() {
			if err := c.ConfirmPendingPurchase(context.Background(), productID); err != nil {
				c.logger.Error().Err(err).Str("product_id", productID).Msg("deferred confirmation failed")
			}
		})
		return ResultPending
	}

	c.grant(ctx, product, tx.ID)
	c.finishCurrent(tx.ProductID, transaction.StateCompleted)
	return ResultComplete
}

// OnPurchaseFailed handles a failed purchase attempt. A duplicate-transaction
// report for a durable product the player does not own yet is recovered by
// granting the entitlement locally instead of surfacing a failure.
func (c *Controller) OnPurchaseFailed(productID string, reason transaction.FailureReason) {
	ctx := context.Background()

	c.logger.Info().
		Str("product_id", productID).
		Str("reason", string(reason)).
		Msg("purchase failed")

	recovered := false
	if reason == transaction.ReasonDuplicateTransaction {
		if product, ok := c.catalogProduct(productID); ok && product.Type.Durable() {
			owned, err := c.history.IsOwned(ctx, productID)
			switch {
			case err != nil:
				c.logger.Error().Err(err).Str("product_id", productID).Msg("duplicate-transaction recovery failed")
			case owned:
				// Already granted, nothing to unlock.
				recovered = true
			default:
				if _, err := c.history.MarkOwned(ctx, productID, ""); err != nil {
					c.logger.Error().Err(err).Str("product_id", productID).Msg("duplicate-transaction recovery failed")
				} else {
					c.logger.Info().Str("product_id", productID).Msg("duplicate transaction detected, unlocked item")
					c.notifyHistory(ctx)
					recovered = true
				}
			}
		}
	}

	c.mu.Lock()
	if c.current == nil || c.current.ProductID != productID {
		c.mu.Unlock()
		c.logger.Warn().Str("product_id", productID).Msg("failure for non-current transaction, ignoring")
		return
	}
	c.state = transaction.StateFailed
	c.mu.Unlock()
	c.notifyState(transaction.StateFailed, productID)
	if !recovered {
		c.notifier.PurchaseFailed(productID, reason)
	}

	c.mu.Lock()
	c.state = transaction.StateReady
	c.current = nil
	c.mu.Unlock()
	c.notifyState(transaction.StateReady, "")
}

// RestoreTransactions asks the store to redeliver prior durable purchases
// through OnPurchaseSucceeded. On storefronts without restore this is a
// silent no-op.
func (c *Controller) RestoreTransactions(ctx context.Context) error {
	if !c.caps.SupportsRestore {
		c.logger.Info().Msg("restore not supported by active storefront, skipping")
		return nil
	}

	c.mu.Lock()
	if c.caps.RequiresLogin && !c.loggedIn {
		c.mu.Unlock()
		c.logger.Error().Msg("purchase restoration aborted, login incomplete")
		return domainErrors.ErrLoginRequired
	}
	if c.restoring {
		c.mu.Unlock()
		return domainErrors.ErrRestoreInProgress
	}
	switch c.state {
	case transaction.StateUninitialized, transaction.StateInitializing, transaction.StateFailed:
		c.mu.Unlock()
		return domainErrors.ErrNotReady
	}
	c.restoring = true
	c.mu.Unlock()

	return c.store.RestoreTransactions(ctx, func(restored bool) {
		c.mu.Lock()
		c.restoring = false
		c.mu.Unlock()
		c.logger.Info().Bool("restored", restored).Msg("transactions restored")
	})
}

// ConfirmPendingPurchase finalizes a deferred purchase: the entitlement is
// granted durably first, then the store is told to stop redelivering.
// Confirming a product that is not pending is a no-op.
func (c *Controller) ConfirmPendingPurchase(ctx context.Context, productID string) error {
	c.mu.Lock()
	txID, ok := c.pending[productID]
	c.mu.Unlock()
	if !ok {
		return nil
	}

	product, known := c.catalogProduct(productID)
	if !known {
		// Tolerated: the pending set may outlive a catalog change.
		c.logger.Warn().Str("product_id", productID).Msg("confirming pending purchase for unknown product")
	}

	var granted bool
	s := saga.New("confirm-pending").
		AddStep(saga.Step{
			Name: "grant-entitlement",
			Execute: func(ctx context.Context) error {
				var err error
				granted, err = c.history.MarkOwned(ctx, productID, txID)
				return err
			},
			Compensate: func(ctx context.Context) error {
				if !granted {
					return nil
				}
				return c.history.Revoke(ctx, productID)
			},
		}).
		AddStep(saga.Step{
			Name: "confirm-with-store",
			Execute: func(ctx context.Context) error {
				return c.store.ConfirmPendingPurchase(ctx, productID)
			},
		})

	if _, err := s.Execute(ctx); err != nil {
		c.logger.Error().Err(err).Str("product_id", productID).Msg("pending confirmation failed, will retry on redelivery")
		return err
	}

	c.mu.Lock()
	delete(c.pending, productID)
	pendingIDs := c.pendingIDsLocked()
	wasAwaiting := c.state == transaction.StateAwaitingConfirmation &&
		c.current != nil && c.current.ProductID == productID
	if wasAwaiting {
		c.state = transaction.StateCompleted
	}
	c.mu.Unlock()

	c.logger.Info().Str("product_id", productID).Msg("confirmed pending purchase")
	c.persistPending(ctx, pendingIDs)
	c.notifier.PendingChanged(pendingIDs)
	c.notifyHistory(ctx)

	if wasAwaiting {
		c.notifyState(transaction.StateCompleted, productID)
		c.mu.Lock()
		c.state = transaction.StateReady
		c.current = nil
		c.mu.Unlock()
		c.notifyState(transaction.StateReady, "")
	}

	if known && granted && c.cfg.EnablePayouts && c.caps.SupportsPayouts && len(product.Payouts) > 0 {
		c.notifier.PayoutGranted(productID, product.Payouts)
	}
	return nil
}

// Login authenticates with the storefront's channel account. Only meaningful
// on storefronts that require it.
func (c *Controller) Login(ctx context.Context) error {
	if !c.caps.RequiresLogin {
		return domainErrors.ErrLoginUnsupported
	}
	return c.store.Login(ctx, func(ok bool, err error) {
		c.mu.Lock()
		c.loggedIn = ok
		c.mu.Unlock()
		if err != nil {
			c.logger.Error().Err(err).Msg("login failed")
			return
		}
		c.logger.Info().Bool("logged_in", ok).Msg("login completed")
	})
}

// ValidateReceipt validates the most recent transaction's receipt on demand
// and returns its claims.
func (c *Controller) ValidateReceipt() ([]ReceiptClaim, error) {
	if c.validator == nil {
		return nil, domainErrors.ErrValidationUnavailable
	}
	c.mu.Lock()
	receipt := c.lastReceipt
	c.mu.Unlock()
	if receipt == "" {
		return nil, domainErrors.ErrNoReceipt
	}
	return c.validator.Validate(receipt)
}

// State returns the current lifecycle state.
func (c *Controller) State() transaction.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// InitFailure returns the initialization failure reason, if any.
func (c *Controller) InitFailure() transaction.InitFailureReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initFailure
}

// Restoring reports whether a restore pass is running.
func (c *Controller) Restoring() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restoring
}

// LoggedIn reports whether a storefront login has completed.
func (c *Controller) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

// Pending returns the product ids awaiting confirmation, sorted.
func (c *Controller) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingIDsLocked()
}

// History returns the owned flag per product.
func (c *Controller) History(ctx context.Context) (map[string]bool, error) {
	return c.history.All(ctx)
}

// Capabilities returns the resolved capability set.
func (c *Controller) Capabilities() storefront.Capabilities {
	return c.caps
}

func (c *Controller) catalogProduct(id string) (*catalog.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cat == nil {
		return nil, false
	}
	return c.cat.Product(id)
}

// grant records the entitlement and reports payouts for a completed
// immediate-policy purchase.
func (c *Controller) grant(ctx context.Context, product *catalog.Product, txID string) {
	granted, err := c.history.MarkOwned(ctx, product.ID, txID)
	if err != nil {
		c.logger.Error().Err(err).Str("product_id", product.ID).Msg("failed to record entitlement")
		return
	}
	if !granted {
		c.logger.Info().Str("product_id", product.ID).Msg("entitlement already granted, skipping")
		return
	}
	c.notifyHistory(ctx)
	if c.cfg.EnablePayouts && c.caps.SupportsPayouts && len(product.Payouts) > 0 {
		for _, payout := range product.Payouts {
			c.logger.Info().
				Str("product_id", product.ID).
				Str("type", string(payout.Type)).
				Str("subtype", payout.Subtype).
				Int64("quantity", payout.Quantity).
				Msg("granting payout")
		}
		c.notifier.PayoutGranted(product.ID, product.Payouts)
	}
}

// finishCurrent moves the current transaction through a transient terminal
// state and back to ready. No-op when the product is not the current
// purchase (restored or redelivered transactions).
func (c *Controller) finishCurrent(productID string, terminal transaction.State) {
	c.mu.Lock()
	if c.current == nil || c.current.ProductID != productID {
		c.mu.Unlock()
		return
	}
	c.state = terminal
	c.mu.Unlock()
	c.notifyState(terminal, productID)

	c.mu.Lock()
	c.state = transaction.StateReady
	c.current = nil
	c.mu.Unlock()
	c.notifyState(transaction.StateReady, "")
}

func (c *Controller) pendingIDsLocked() []string {
	ids := make([]string, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Controller) persistPending(ctx context.Context, ids []string) {
	if err := c.pendStore.Save(ctx, ids); err != nil {
		c.logger.Error().Err(err).Msg("failed to persist pending set")
	}
}

func (c *Controller) notifyState(state transaction.State, productID string) {
	c.notifier.PurchaseStateChanged(state, productID)
}

func (c *Controller) notifyHistory(ctx context.Context) {
	owned, err := c.history.All(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to load purchase history")
		return
	}
	c.notifier.HistoryChanged(owned)
}
