package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name: "with wrapped error",
			err: &DomainError{
				Code:    "purchase_failed",
				Message: "purchase could not be completed",
				Err:     errors.New("payment declined"),
			},
			expected: "purchase could not be completed: payment declined",
		},
		{
			name: "without wrapped error",
			err: &DomainError{
				Code:    "invalid_state",
				Message: "cannot initiate purchase in current state",
				Err:     nil,
			},
			expected: "cannot initiate purchase in current state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	domainErr := NewDomainError("test", "test message", originalErr)

	assert.Equal(t, originalErr, domainErr.Unwrap())
	assert.True(t, errors.Is(domainErr, originalErr))
}

func TestErrorUnwrapping(t *testing.T) {
	wrapped := NewDomainError("store_error", "store call failed", ErrStoreUnavailable)

	assert.ErrorIs(t, wrapped, ErrStoreUnavailable)
}

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("product_id", "cannot be empty")

	assert.Equal(t, "validation failed for field product_id: cannot be empty", err.Error())
}

func TestSecurityError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *SecurityError
		expected string
	}{
		{
			name:     "with product id",
			err:      NewSecurityError("sword", "signature mismatch"),
			expected: "receipt rejected for sword: signature mismatch",
		},
		{
			name:     "without product id",
			err:      NewSecurityError("", "malformed receipt"),
			expected: "receipt rejected: malformed receipt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestSecurityError_IsNotDomainError(t *testing.T) {
	var secErr *SecurityError
	err := error(NewSecurityError("sword", "bad payload"))

	assert.True(t, errors.As(err, &secErr))
	var domErr *DomainError
	assert.False(t, errors.As(err, &domErr))
}
