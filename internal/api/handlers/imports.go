package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/spendah/spendah-backend/internal/api/request"
	"github.com/spendah/spendah-backend/internal/api/response"
	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/service"
	"github.com/spendah/spendah-backend/internal/validation"
)

// maxUploadBytes bounds statement uploads. Bank exports are small; this is
// a guard against accidental multi-gigabyte posts.
const maxUploadBytes = 20 << 20

// ImportHandler handles HTTP requests for the file import pipeline.
type ImportHandler struct {
	importService *service.ImportService
}

// NewImportHandler creates a new ImportHandler with the provided service dependency.
func NewImportHandler(importService *service.ImportService) *ImportHandler {
	return &ImportHandler{
		importService: importService,
	}
}

// Upload handles POST requests to upload a statement file.
// Accepts a multipart form with a "file" field, runs format detection, and
// returns a preview plus the detected format for the user to confirm.
//
// Endpoint: POST /api/imports/upload
// Response: 200 OK with UploadResult
// Error: 400 Bad Request if the form or file type is invalid
// Error: 500 Internal Server Error if saving or parsing fails
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "file field is required", err.Error())
		return
	}
	defer file.Close()

	result, err := h.importService.Upload(r.Context(), header.Filename, file)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToSaveUpload)
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Confirm handles POST requests to finalize a pending import with a
// resolved column mapping.
//
// Endpoint: POST /api/imports/{id}/confirm
// Request Body: ConfirmImportRequest
// Response: 200 OK with ConfirmResult (counts + bounded error list)
// Error: 400 Bad Request if validation fails or the mapping is ambiguous
// Error: 404 Not Found if the pending import or account does not exist
// Error: 500 Internal Server Error if processing fails
func (h *ImportHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "id")

	req, err := parseJSON[request.ConfirmImportRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateConfirmImport(req); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToProcessImport)
		return
	}

	result, err := h.importService.Confirm(r.Context(), importID, req)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToProcessImport)
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Status handles GET requests for the state of one import.
//
// Endpoint: GET /api/imports/{id}/status
// Response: 200 OK with ImportLog
// Error: 404 Not Found if the import is unknown
func (h *ImportHandler) Status(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "id")

	status, err := h.importService.Status(importID)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveImports)
		return
	}

	response.RespondJSON(w, http.StatusOK, status)
}

// History handles GET requests for past imports, newest first.
// Optional query parameters: account_id, limit.
//
// Endpoint: GET /api/imports/history
// Response: 200 OK with array of ImportLog
// Error: 500 Internal Server Error if retrieval fails
func (h *ImportHandler) History(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	history, err := h.importService.History(accountID, limit)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveImports)
		return
	}

	response.RespondJSON(w, http.StatusOK, history)
}
