package dto

import (
	"time"

	"github.com/cassiomorais/storekit/internal/application/continuation"
	"github.com/cassiomorais/storekit/internal/application/purchase"
	"github.com/cassiomorais/storekit/internal/domain/catalog"
	"github.com/cassiomorais/storekit/internal/storefront"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// CapabilitiesResponse mirrors the resolved storefront capability set.
type CapabilitiesResponse struct {
	SupportsRestore  bool `json:"supports_restore"`
	RequiresLogin    bool `json:"requires_login"`
	SupportsValidate bool `json:"supports_validate"`
	SupportsPayouts  bool `json:"supports_payouts"`
}

// StateResponse is the purchase lifecycle snapshot.
type StateResponse struct {
	State        string               `json:"state"`
	InitFailure  string               `json:"init_failure,omitempty"`
	Restoring    bool                 `json:"restoring"`
	LoggedIn     bool                 `json:"logged_in"`
	Pending      []string             `json:"pending"`
	Capabilities CapabilitiesResponse `json:"capabilities"`
}

func FromCapabilities(caps storefront.Capabilities) CapabilitiesResponse {
	return CapabilitiesResponse{
		SupportsRestore:  caps.SupportsRestore,
		RequiresLogin:    caps.RequiresLogin,
		SupportsValidate: caps.SupportsValidate,
		SupportsPayouts:  caps.SupportsPayouts,
	}
}

// PayoutResponse is one payout definition attached to a product.
type PayoutResponse struct {
	Type     string `json:"type"`
	Subtype  string `json:"subtype,omitempty"`
	Quantity int64  `json:"quantity"`
	Data     string `json:"data,omitempty"`
}

// ProductResponse is one catalog entry with its ownership flags.
type ProductResponse struct {
	ID      string           `json:"id"`
	Type    string           `json:"type"`
	Enabled bool             `json:"enabled"`
	StoreID string           `json:"store_id"`
	Payouts []PayoutResponse `json:"payouts,omitempty"`
	Owned   bool             `json:"owned"`
	Pending bool             `json:"pending"`
}

func FromProduct(p *catalog.Product, store string, owned, pending bool) *ProductResponse {
	resp := &ProductResponse{
		ID:      p.ID,
		Type:    string(p.Type),
		Enabled: p.Enabled,
		StoreID: p.StoreSpecificID(store),
		Owned:   owned,
		Pending: pending,
	}
	for _, payout := range p.Payouts {
		resp.Payouts = append(resp.Payouts, PayoutResponse{
			Type:     string(payout.Type),
			Subtype:  payout.Subtype,
			Quantity: payout.Quantity,
			Data:     payout.Data,
		})
	}
	return resp
}

// PurchaseAcceptedResponse acknowledges an initiated purchase; the outcome
// arrives asynchronously.
type PurchaseAcceptedResponse struct {
	ProductID string `json:"product_id"`
	State     string `json:"state"`
}

// ClaimResponse is one validated receipt claim.
type ClaimResponse struct {
	ProductID     string    `json:"product_id"`
	TransactionID string    `json:"transaction_id"`
	Store         string    `json:"store"`
	PurchaseDate  time.Time `json:"purchase_date"`
}

func FromClaims(claims []purchase.ReceiptClaim) []ClaimResponse {
	out := make([]ClaimResponse, 0, len(claims))
	for _, c := range claims {
		out = append(out, ClaimResponse{
			ProductID:     c.ProductID,
			TransactionID: c.TransactionID,
			Store:         c.Store,
			PurchaseDate:  c.PurchaseDate,
		})
	}
	return out
}

// OfferResponse is the continuation option presented to the player.
type OfferResponse struct {
	Kind             string `json:"kind"`
	RemainingSeconds int64  `json:"remaining_seconds,omitempty"`
	Countdown        string `json:"countdown,omitempty"`
	Continued        bool   `json:"continued"`
}

func FromOffer(offer continuation.Offer, continued bool) OfferResponse {
	resp := OfferResponse{
		Kind:      string(offer.Kind),
		Continued: continued,
	}
	if offer.Kind == continuation.OfferCooldown {
		resp.RemainingSeconds = int64(offer.Remaining.Seconds())
		resp.Countdown = offer.CountdownText()
	}
	return resp
}

// PauseResponse is the global pause state after a mutation.
type PauseResponse struct {
	Paused    bool    `json:"paused"`
	TimeScale float64 `json:"time_scale"`
}
