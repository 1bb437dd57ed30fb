package errors

import (
	"errors"
	"fmt"
)

var (
	// Catalog errors
	ErrProductNotFound    = errors.New("product not found in catalog")
	ErrProductUnavailable = errors.New("product not available for purchase")
	ErrEmptyCatalog       = errors.New("catalog has no products")

	// Purchase lifecycle errors
	ErrNotReady               = errors.New("store is not ready")
	ErrPurchaseInProgress     = errors.New("another purchase is already in progress")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrRestoreUnsupported     = errors.New("restore not supported by active storefront")
	ErrRestoreInProgress      = errors.New("restore already in progress")
	ErrLoginRequired          = errors.New("storefront requires login")
	ErrLoginUnsupported       = errors.New("login not supported by active storefront")
	ErrNoReceipt              = errors.New("no receipt available to validate")
	ErrValidationUnavailable  = errors.New("receipt validation not configured")

	// Store backend errors
	ErrStoreUnavailable = errors.New("store backend unavailable")

	// Ad errors
	ErrAdRequestOutstanding = errors.New("an ad request is already outstanding")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// SecurityError marks a receipt that failed validation. Classified separately
// from purchase failures: the transaction is still terminated as handled, but
// no entitlement is granted.
type SecurityError struct {
	ProductID string
	Reason    string
}

func (e *SecurityError) Error() string {
	if e.ProductID == "" {
		return "receipt rejected: " + e.Reason
	}
	return fmt.Sprintf("receipt rejected for %s: %s", e.ProductID, e.Reason)
}

// NewSecurityError creates a new security error
func NewSecurityError(productID, reason string) *SecurityError {
	return &SecurityError{ProductID: productID, Reason: reason}
}
