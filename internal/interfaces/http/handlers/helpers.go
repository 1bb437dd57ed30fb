package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	domainErrors "github.com/cassiomorais/storekit/internal/domain/errors"
	"github.com/cassiomorais/storekit/internal/interfaces/http/dto"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domainErrors.ErrProductNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrProductUnavailable, http.StatusUnprocessableEntity, "product_unavailable"},
	{domainErrors.ErrNotReady, http.StatusServiceUnavailable, "store_not_ready"},
	{domainErrors.ErrPurchaseInProgress, http.StatusConflict, "purchase_in_progress"},
	{domainErrors.ErrInvalidStateTransition, http.StatusConflict, "invalid_state_transition"},
	{domainErrors.ErrRestoreInProgress, http.StatusConflict, "restore_in_progress"},
	{domainErrors.ErrRestoreUnsupported, http.StatusUnprocessableEntity, "restore_unsupported"},
	{domainErrors.ErrLoginRequired, http.StatusUnauthorized, "login_required"},
	{domainErrors.ErrLoginUnsupported, http.StatusUnprocessableEntity, "login_unsupported"},
	{domainErrors.ErrNoReceipt, http.StatusNotFound, "no_receipt"},
	{domainErrors.ErrValidationUnavailable, http.StatusServiceUnavailable, "validation_unavailable"},
	{domainErrors.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
	{domainErrors.ErrAdRequestOutstanding, http.StatusConflict, "ad_request_outstanding"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := dto.ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	var secErr *domainErrors.SecurityError
	if errors.As(err, &secErr) {
		resp.Code = "invalid_receipt"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			writeJSON(w, m.status, resp)
			return
		}
	}

	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}
