package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single ledger entry imported from a bank or card
// export. The core fields (hash, date, amount, raw description, account) are
// immutable once ingested; the remaining fields are enrichment that may be
// updated by categorization, recurring linkage, or manual edits.
type Transaction struct {
	ID               string          `json:"id"`
	Hash             string          `json:"hash"`
	Date             time.Time       `json:"date"`
	Amount           decimal.Decimal `json:"amount"` // negative = outflow
	RawDescription   string          `json:"raw_description"`
	CleanMerchant    *string         `json:"clean_merchant,omitempty"`
	CategoryID       *string         `json:"category_id,omitempty"`
	AccountID        string          `json:"account_id"`
	IsRecurring      bool            `json:"is_recurring"`
	RecurringGroupID *string         `json:"recurring_group_id,omitempty"`
	Notes            *string         `json:"notes,omitempty"`
	AICategorized    bool            `json:"ai_categorized"`
	CreatedAt        time.Time       `json:"created_at,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at,omitempty"`
}

// Merchant returns the best available merchant name for the transaction:
// the cleaned merchant when present, the raw description otherwise.
func (t Transaction) Merchant() string {
	if t.CleanMerchant != nil && *t.CleanMerchant != "" {
		return *t.CleanMerchant
	}
	return t.RawDescription
}

// TransactionHash computes the content fingerprint used for deduplication.
// The hash covers date, amount, normalized description, and account so that
// re-ingesting the same file never produces a second record.
func TransactionHash(date time.Time, amount decimal.Decimal, rawDescription, accountID string) string {
	components := []string{
		date.Format("2006-01-02"),
		amount.String(),
		strings.ToLower(strings.TrimSpace(rawDescription)),
		accountID,
	}
	sum := sha256.Sum256([]byte(strings.Join(components, "|")))
	return hex.EncodeToString(sum[:])
}
