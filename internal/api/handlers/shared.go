package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spendah/spendah-backend/internal/api/response"
	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/validation"
)

// parseJSON decodes a request body into the given request type.
func parseJSON[T any](r *http.Request) (T, error) {
	var req T
	err := json.NewDecoder(r.Body).Decode(&req)
	return req, err
}

// notFoundErrors are the sentinels that map to 404.
var notFoundErrors = []error{
	apperrors.ErrAccountNotFound,
	apperrors.ErrTransactionNotFound,
	apperrors.ErrRecurringGroupNotFound,
	apperrors.ErrAlertNotFound,
	apperrors.ErrImportNotFound,
	apperrors.ErrLearnedFormatNotFound,
}

// badRequestErrors are the sentinels that map to 400.
var badRequestErrors = []error{
	apperrors.ErrInvalidGroupState,
	apperrors.ErrMappingAmbiguous,
	apperrors.ErrUnsupportedFileType,
	apperrors.ErrMissingColumnMapping,
	apperrors.ErrInvalidUUID,
	apperrors.ErrEmptyID,
	apperrors.ErrInvalidFrequency,
	apperrors.ErrInvalidAmountStyle,
}

// respondServiceError maps service errors onto HTTP statuses: not-found
// sentinels to 404, business-rule violations to 400, a stale detection
// session to 409, everything else to 500 under the supplied operation error.
func respondServiceError(w http.ResponseWriter, err error, operation error) {
	for _, sentinel := range notFoundErrors {
		if errors.Is(err, sentinel) {
			response.RespondError(w, http.StatusNotFound, sentinel.Error(), err.Error())
			return
		}
	}
	for _, sentinel := range badRequestErrors {
		if errors.Is(err, sentinel) {
			response.RespondError(w, http.StatusBadRequest, sentinel.Error(), err.Error())
			return
		}
	}
	if errors.Is(err, apperrors.ErrStaleDetectionIndex) {
		response.RespondError(w, http.StatusConflict, apperrors.ErrStaleDetectionIndex.Error(), err.Error())
		return
	}
	var validationErr *validation.Error
	if errors.As(err, &validationErr) {
		response.RespondError(w, http.StatusBadRequest, "validation failed", validationErr.Fields)
		return
	}
	response.RespondError(w, http.StatusInternalServerError, operation.Error(), err.Error())
}
