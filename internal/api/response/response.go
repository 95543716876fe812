// Package response writes the API's JSON envelopes.
package response

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse is the envelope for every non-2xx response. Details is
// optional context: a validation field map or an underlying error string.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// RespondJSON writes data as JSON with the given status. Nil data writes
// the status line only, which is what 204 responses want. An encode
// failure is logged; the status line has already gone out by then.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response body: %v", err)
	}
}

// RespondError writes an ErrorResponse with the given status.
func RespondError(w http.ResponseWriter, status int, message string, details any) {
	RespondJSON(w, status, ErrorResponse{Error: message, Details: details})
}
