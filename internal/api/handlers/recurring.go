package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/spendah/spendah-backend/internal/api/request"
	"github.com/spendah/spendah-backend/internal/api/response"
	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/service"
	"github.com/spendah/spendah-backend/internal/validation"
)

// RecurringHandler handles HTTP requests for recurring groups and pattern
// detection.
type RecurringHandler struct {
	recurringService *service.RecurringService
	detector         *service.RecurringDetector
}

// NewRecurringHandler creates a new RecurringHandler with the provided service dependencies.
func NewRecurringHandler(recurringService *service.RecurringService, detector *service.RecurringDetector) *RecurringHandler {
	return &RecurringHandler{
		recurringService: recurringService,
		detector:         detector,
	}
}

// List handles GET requests for recurring groups.
// Inactive groups are included when include_inactive=true.
//
// Endpoint: GET /api/recurring
// Response: 200 OK with array of RecurringGroup
func (h *RecurringHandler) List(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	groups, err := h.recurringService.List(includeInactive)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveGroups)
		return
	}

	response.RespondJSON(w, http.StatusOK, groups)
}

// Create handles POST requests to create a recurring group manually.
//
// Endpoint: POST /api/recurring
// Request Body: CreateRecurringGroupRequest
// Response: 201 Created with RecurringGroup
// Error: 400 Bad Request if validation fails
func (h *RecurringHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateRecurringGroupRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateRecurringGroup(req); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveGroups)
		return
	}

	group, err := h.recurringService.Create(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveGroups)
		return
	}

	response.RespondJSON(w, http.StatusCreated, group)
}

// Get handles GET requests for a single recurring group.
//
// Endpoint: GET /api/recurring/{uuid}
// Response: 200 OK with RecurringGroup
// Error: 404 Not Found if the group does not exist
func (h *RecurringHandler) Get(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "uuid")

	group, err := h.recurringService.Get(groupID)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveGroups)
		return
	}

	response.RespondJSON(w, http.StatusOK, group)
}

// Transactions handles GET requests for the member transactions of a group.
//
// Endpoint: GET /api/recurring/{uuid}/transactions
// Response: 200 OK with array of Transaction, newest first
// Error: 404 Not Found if the group does not exist
func (h *RecurringHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "uuid")

	transactions, err := h.recurringService.Transactions(groupID)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveTransactions)
		return
	}

	response.RespondJSON(w, http.StatusOK, transactions)
}

// Update handles PATCH requests to modify a recurring group. The next
// expected date is recomputed when the schedule inputs change.
//
// Endpoint: PATCH /api/recurring/{uuid}
// Request Body: UpdateRecurringGroupRequest (all fields optional)
// Response: 200 OK with updated RecurringGroup
// Error: 400 Bad Request if validation fails
// Error: 404 Not Found if the group does not exist
func (h *RecurringHandler) Update(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.UpdateRecurringGroupRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateUpdateRecurringGroup(req); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveGroups)
		return
	}

	group, err := h.recurringService.Update(r.Context(), groupID, req)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveGroups)
		return
	}

	response.RespondJSON(w, http.StatusOK, group)
}

// Delete handles DELETE requests to remove a recurring group. Member
// transactions are unlinked, never deleted.
//
// Endpoint: DELETE /api/recurring/{uuid}
// Response: 204 No Content
// Error: 404 Not Found if the group does not exist
func (h *RecurringHandler) Delete(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "uuid")

	if err := h.recurringService.Delete(r.Context(), groupID); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveGroups)
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// Detect handles POST requests to run recurring pattern detection across
// all accounts. Opens a new detection session, invalidating any prior one.
//
// Endpoint: POST /api/recurring/detect
// Response: 200 OK with DetectionSession {session_id, detected[], total_found}
// Error: 500 Internal Server Error if detection fails
func (h *RecurringHandler) Detect(w http.ResponseWriter, r *http.Request) {
	session, err := h.detector.Detect(r.Context())
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToDetectPatterns)
		return
	}

	response.RespondJSON(w, http.StatusOK, session)
}

// ApplyDetection handles POST requests to apply one detection result by
// session and index, creating a group and linking its transactions.
//
// Endpoint: POST /api/recurring/detect/apply
// Request Body: ApplyDetectionRequest {session_id, index}
// Response: 201 Created with RecurringGroup
// Error: 409 Conflict if the session is stale or the index already consumed
func (h *RecurringHandler) ApplyDetection(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.ApplyDetectionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateApplyDetection(req); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToApplyDetection)
		return
	}

	group, err := h.detector.Apply(r.Context(), req.SessionID, req.Index)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToApplyDetection)
		return
	}

	response.RespondJSON(w, http.StatusCreated, group)
}

// Mark handles POST requests to link a transaction into a recurring group,
// optionally creating the group inline.
//
// Endpoint: POST /api/recurring/transactions/{uuid}/mark
// Request Body: MarkRecurringRequest {group_id | create_new}
// Response: 200 OK with the group the transaction was linked to
// Error: 400 Bad Request if the group is inactive or the request invalid
// Error: 404 Not Found if the transaction or group does not exist
func (h *RecurringHandler) Mark(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.MarkRecurringRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateMarkRecurring(req); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveGroups)
		return
	}

	group, err := h.recurringService.Mark(r.Context(), transactionID, req)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveGroups)
		return
	}

	response.RespondJSON(w, http.StatusOK, group)
}

// Unmark handles POST requests to remove a transaction from its group.
//
// Endpoint: POST /api/recurring/transactions/{uuid}/unmark
// Response: 204 No Content
// Error: 404 Not Found if the transaction does not exist
func (h *RecurringHandler) Unmark(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "uuid")

	if err := h.recurringService.Unmark(r.Context(), transactionID); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveGroups)
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}
