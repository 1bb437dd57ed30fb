package transaction

import (
	"time"

	"github.com/cassiomorais/storekit/internal/domain/errors"
)

// State represents the purchase lifecycle state machine.
type State string

const (
	StateUninitialized        State = "uninitialized"
	StateInitializing         State = "initializing"
	StateReady                State = "ready"
	StatePurchaseInProgress   State = "purchase_in_progress"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateCompleted            State = "completed"
	StateFailed               State = "failed"
)

// FailureReason is the closed set of purchase failure causes reported by a
// store backend.
type FailureReason string

const (
	ReasonUserCancelled        FailureReason = "user_cancelled"
	ReasonPaymentDeclined      FailureReason = "payment_declined"
	ReasonProductUnavailable   FailureReason = "product_unavailable"
	ReasonDuplicateTransaction FailureReason = "duplicate_transaction"
	ReasonUnknown              FailureReason = "unknown"
)

// ParseFailureReason normalizes a backend-reported failure code into the
// closed FailureReason set. Some backends report duplicate transactions as
// an unknown failure carrying a string code, so the raw string is consulted
// before falling back to unknown.
func ParseFailureReason(code string) FailureReason {
	switch FailureReason(code) {
	case ReasonUserCancelled, ReasonPaymentDeclined, ReasonProductUnavailable, ReasonDuplicateTransaction:
		return FailureReason(code)
	}
	if code == "DuplicateTransaction" {
		return ReasonDuplicateTransaction
	}
	return ReasonUnknown
}

// InitFailureReason is the closed set of initialization failure causes.
// These indicate configuration rather than transient errors and are not
// retried.
type InitFailureReason string

const (
	InitAppNotRecognized      InitFailureReason = "app_not_recognized"
	InitPurchasingUnavailable InitFailureReason = "purchasing_unavailable"
	InitNoProductsConfigured  InitFailureReason = "no_products_configured"
	InitUnknown               InitFailureReason = "unknown"
)

// Transaction is one in-flight purchase. The transaction id is store-assigned
// and may be empty until the store confirms the purchase.
type Transaction struct {
	ProductID string
	ID        string
	Receipt   string
	State     State
	CreatedAt time.Time
}

// transitions is the set of legal lifecycle moves. Completed and Failed are
// transient: both return to Ready once handled.
var transitions = map[State][]State{
	StateUninitialized:        {StateInitializing},
	StateInitializing:         {StateReady, StateFailed},
	StateReady:                {StatePurchaseInProgress},
	StatePurchaseInProgress:   {StateCompleted, StateAwaitingConfirmation, StateFailed},
	StateAwaitingConfirmation: {StateCompleted, StateReady},
	StateCompleted:            {StateReady},
	StateFailed:               {StateReady},
}

// CanTransition checks whether moving from one lifecycle state to another is
// legal.
func CanTransition(from, to State) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates and returns the new state, or an error when the move
// is illegal.
func Transition(from, to State) (State, error) {
	if !CanTransition(from, to) {
		return from, errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(from)+" to "+string(to),
			errors.ErrInvalidStateTransition,
		)
	}
	return to, nil
}
