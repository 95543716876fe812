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

// AccountHandler handles HTTP requests for account management.
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new AccountHandler with the provided service dependency.
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// List handles GET requests for all accounts.
//
// Endpoint: GET /api/accounts
// Response: 200 OK with array of Account
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.List()
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveAccounts)
		return
	}

	response.RespondJSON(w, http.StatusOK, accounts)
}

// Create handles POST requests to create an account.
//
// Endpoint: POST /api/accounts
// Request Body: CreateAccountRequest {name, type}
// Response: 201 Created with Account
// Error: 400 Bad Request if validation fails
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateAccountRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateAccount(req); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveAccounts)
		return
	}

	account, err := h.accountService.Create(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveAccounts)
		return
	}

	response.RespondJSON(w, http.StatusCreated, account)
}

// Get handles GET requests for a single account.
//
// Endpoint: GET /api/accounts/{uuid}
// Response: 200 OK with Account
// Error: 404 Not Found if the account does not exist
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	account, err := h.accountService.Get(accountID)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveAccounts)
		return
	}

	response.RespondJSON(w, http.StatusOK, account)
}

// Delete handles DELETE requests to remove an account. The account's
// transactions are removed with it.
//
// Endpoint: DELETE /api/accounts/{uuid}
// Response: 204 No Content
// Error: 404 Not Found if the account does not exist
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	if err := h.accountService.Delete(r.Context(), accountID); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToDeleteAccount)
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}
