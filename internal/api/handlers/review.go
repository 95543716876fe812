package handlers

import (
	"net/http"
	"strconv"

	"github.com/spendah/spendah-backend/internal/api/response"
	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/service"
)

// ReviewHandler handles HTTP requests for subscription reviews and renewal
// projections.
type ReviewHandler struct {
	reviewService    *service.ReviewService
	recurringService *service.RecurringService
}

// NewReviewHandler creates a new ReviewHandler with the provided service dependencies.
func NewReviewHandler(reviewService *service.ReviewService, recurringService *service.RecurringService) *ReviewHandler {
	return &ReviewHandler{
		reviewService:    reviewService,
		recurringService: recurringService,
	}
}

// TriggerReview handles POST requests to run a subscription review.
// The report is also persisted as an info alert.
//
// Endpoint: POST /api/review
// Response: 200 OK with ReviewReport
// Error: 500 Internal Server Error if the review fails
func (h *ReviewHandler) TriggerReview(w http.ResponseWriter, r *http.Request) {
	report, err := h.reviewService.Review(r.Context())
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRunReview)
		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}

// Upcoming handles GET requests for renewals expected within a window.
// Query parameter: days (default 30).
//
// Endpoint: GET /api/review/upcoming
// Response: 200 OK with RenewalProjection
// Error: 500 Internal Server Error if the projection fails
func (h *ReviewHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}

	projection, err := h.recurringService.UpcomingRenewals(days)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToProjectRenewals)
		return
	}

	response.RespondJSON(w, http.StatusOK, projection)
}
