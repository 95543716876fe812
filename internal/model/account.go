package model

import "time"

// AccountType enumerates the supported account kinds.
type AccountType string

const (
	AccountCredit AccountType = "credit"
	AccountDebit  AccountType = "debit"
	AccountBank   AccountType = "bank"
	AccountCash   AccountType = "cash"
	AccountOther  AccountType = "other"
)

// Account represents a bank or card account that transactions are imported into.
type Account struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Type            AccountType `json:"type"`
	LearnedFormatID *string     `json:"learned_format_id,omitempty"`
	IsActive        bool        `json:"is_active"`
	CreatedAt       time.Time   `json:"created_at,omitempty"`
}
