package model

import "time"

// ImportStatus enumerates the lifecycle states of a file import.
type ImportStatus string

const (
	ImportPending    ImportStatus = "pending"
	ImportProcessing ImportStatus = "processing"
	ImportCompleted  ImportStatus = "completed"
	ImportFailed     ImportStatus = "failed"
)

// ImportLog records the outcome of one file import for the history view.
type ImportLog struct {
	ID                   string       `json:"import_id"`
	Filename             string       `json:"filename"`
	AccountID            string       `json:"account_id"`
	Status               ImportStatus `json:"status"`
	TransactionsImported int          `json:"transactions_imported"`
	TransactionsSkipped  int          `json:"transactions_skipped"`
	ErrorMessage         *string      `json:"error_message,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
}
