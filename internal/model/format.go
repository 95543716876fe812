package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// FileType enumerates the supported export file formats.
type FileType string

const (
	FileCSV FileType = "csv"
	FileOFX FileType = "ofx"
	FileQFX FileType = "qfx"
)

// AmountStyle describes how a file encodes transaction amounts.
type AmountStyle string

const (
	// AmountSigned: a single column with signed values.
	AmountSigned AmountStyle = "signed"
	// AmountSeparateColumns: distinct debit and credit columns.
	AmountSeparateColumns AmountStyle = "separate_columns"
	// AmountParenthesesNegative: a single column with (123.45) for outflows.
	AmountParenthesesNegative AmountStyle = "parentheses_negative"
)

// ValidAmountStyles contains the allowed amount style values.
var ValidAmountStyles = map[AmountStyle]bool{
	AmountSigned:              true,
	AmountSeparateColumns:     true,
	AmountParenthesesNegative: true,
}

// ColumnMapping assigns file columns to transaction roles. A nil index
// means the file has no column for that role.
type ColumnMapping struct {
	DateColumn        int  `json:"date_column"`
	AmountColumn      *int `json:"amount_column,omitempty"`
	DescriptionColumn int  `json:"description_column"`
	CategoryColumn    *int `json:"category_column,omitempty"`
	DebitColumn       *int `json:"debit_column,omitempty"`
	CreditColumn      *int `json:"credit_column,omitempty"`
	BalanceColumn     *int `json:"balance_column,omitempty"`
}

// DetectedFormat is the format detector's best effort at describing a file.
// Confidence below 0.5 means the caller must not auto-apply the mapping and
// must require explicit user confirmation.
type DetectedFormat struct {
	DateColumn        *int        `json:"date_column,omitempty"`
	AmountColumn      *int        `json:"amount_column,omitempty"`
	DescriptionColumn *int        `json:"description_column,omitempty"`
	CategoryColumn    *int        `json:"category_column,omitempty"`
	DebitColumn       *int        `json:"debit_column,omitempty"`
	CreditColumn      *int        `json:"credit_column,omitempty"`
	BalanceColumn     *int        `json:"balance_column,omitempty"`
	DateFormat        string      `json:"date_format,omitempty"`
	AmountStyle       AmountStyle `json:"amount_style,omitempty"`
	SkipRows          int         `json:"skip_rows"`
	SourceGuess       string      `json:"source_guess,omitempty"`
	Confidence        float64     `json:"confidence"`
}

// LearnedFormat is a confirmed column mapping saved for reuse, keyed by a
// fingerprint of the file's header row. A fingerprint match on a later
// upload yields a detection with confidence 1.0.
type LearnedFormat struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Fingerprint string        `json:"fingerprint"`
	FileType    FileType      `json:"file_type"`
	Mapping     ColumnMapping `json:"column_mapping"`
	DateFormat  string        `json:"date_format"`
	AmountStyle AmountStyle   `json:"amount_style"`
	SkipRows    int           `json:"skip_rows"`
	AccountID   *string       `json:"account_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at,omitempty"`
}

// HeaderFingerprint computes a stable fingerprint of a header row for
// learned-format lookup. Case and surrounding whitespace are ignored.
func HeaderFingerprint(headers []string) string {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(sum[:])
}
