package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/spendah/spendah-backend/internal/api/request"
	"github.com/spendah/spendah-backend/internal/api/response"
	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/service"
)

// TransactionHandler handles HTTP requests for transaction listing and edits.
type TransactionHandler struct {
	transactionService *service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler with the provided service dependency.
func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

// List handles GET requests for transactions, newest first.
//
// Endpoint: GET /api/transactions?account_id={uuid}&limit={n}
// Response: 200 OK with array of Transaction
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.RespondError(w, http.StatusBadRequest, "invalid limit", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	transactions, err := h.transactionService.List(accountID, limit)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveTransactions)
		return
	}

	response.RespondJSON(w, http.StatusOK, transactions)
}

// Get handles GET requests for a single transaction.
//
// Endpoint: GET /api/transactions/{uuid}
// Response: 200 OK with Transaction
// Error: 404 Not Found if the transaction does not exist
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "uuid")

	transaction, err := h.transactionService.Get(transactionID)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveTransactions)
		return
	}

	response.RespondJSON(w, http.StatusOK, transaction)
}

// Update handles PATCH requests to edit a transaction's mutable fields.
//
// Endpoint: PATCH /api/transactions/{uuid}
// Request Body: UpdateTransactionRequest {clean_merchant?, category_id?, notes?}
// Response: 200 OK with the updated Transaction
// Error: 404 Not Found if the transaction does not exist
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.UpdateTransactionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	transaction, err := h.transactionService.Update(r.Context(), transactionID, req)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToUpdateTransaction)
		return
	}

	response.RespondJSON(w, http.StatusOK, transaction)
}
