package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/spendah/spendah-backend/internal/api/request"
	"github.com/spendah/spendah-backend/internal/api/response"
	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/repository"
	"github.com/spendah/spendah-backend/internal/service"
	"github.com/spendah/spendah-backend/internal/validation"
)

// AlertHandler handles HTTP requests for the alert inbox and settings.
type AlertHandler struct {
	alertService *service.AlertService
}

// NewAlertHandler creates a new AlertHandler with the provided service dependency.
func NewAlertHandler(alertService *service.AlertService) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
	}
}

// List handles GET requests for alerts. Dismissed alerts are hidden unless
// is_dismissed is given explicitly.
// Query parameters: is_read, is_dismissed, type, limit.
//
// Endpoint: GET /api/alerts
// Response: 200 OK with {items, unread_count, total}
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.AlertFilter{
		Type: r.URL.Query().Get("type"),
	}
	if v := r.URL.Query().Get("is_read"); v != "" {
		isRead := v == "true"
		filter.IsRead = &isRead
	}
	if v := r.URL.Query().Get("is_dismissed"); v != "" {
		isDismissed := v == "true"
		filter.IsDismissed = &isDismissed
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	list, err := h.alertService.List(filter)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveAlerts)
		return
	}

	response.RespondJSON(w, http.StatusOK, list)
}

// Update handles PATCH requests for alert lifecycle state. Dismissal is
// one-way; un-dismiss attempts are ignored.
//
// Endpoint: PATCH /api/alerts/{uuid}
// Request Body: UpdateAlertRequest (all fields optional)
// Response: 200 OK with updated Alert
// Error: 404 Not Found if the alert does not exist
func (h *AlertHandler) Update(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.UpdateAlertRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	alert, err := h.alertService.Update(r.Context(), alertID, req)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToUpdateAlert)
		return
	}

	response.RespondJSON(w, http.StatusOK, alert)
}

// MarkAllRead handles POST requests to mark every unread alert as read.
//
// Endpoint: POST /api/alerts/read-all
// Response: 200 OK with {updated}
func (h *AlertHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.alertService.MarkAllRead(r.Context())
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToUpdateAlert)
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

// Delete handles DELETE requests to permanently remove an alert.
//
// Endpoint: DELETE /api/alerts/{uuid}
// Response: 204 No Content
// Error: 404 Not Found if the alert does not exist
func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "uuid")

	if err := h.alertService.Delete(r.Context(), alertID); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToUpdateAlert)
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// GetSettings handles GET requests for the alert settings, creating the
// defaults on first access.
//
// Endpoint: GET /api/alerts/settings
// Response: 200 OK with AlertSettings
func (h *AlertHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.alertService.GetSettings(r.Context())
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveSettings)
		return
	}

	response.RespondJSON(w, http.StatusOK, settings)
}

// UpdateSettings handles PATCH requests for the alert settings.
//
// Endpoint: PATCH /api/alerts/settings
// Request Body: UpdateAlertSettingsRequest (all fields optional)
// Response: 200 OK with updated AlertSettings
// Error: 400 Bad Request if validation fails
func (h *AlertHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.UpdateAlertSettingsRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateUpdateAlertSettings(req); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToUpdateSettings)
		return
	}

	settings, err := h.alertService.UpdateSettings(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToUpdateSettings)
		return
	}

	response.RespondJSON(w, http.StatusOK, settings)
}
