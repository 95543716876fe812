package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TokenRecord is one row of the token_map table. Encrypted values are
// opaque to this layer; the privacy package owns the cipher.
type TokenRecord struct {
	ID              int64
	TokenType       string
	NormalizedValue string
	EncryptedValue  string
	Token           string
	CreatedAt       time.Time
}

// TokenMapRepository provides data access methods for the token_map and
// date_shift tables.
type TokenMapRepository struct {
	db *sql.DB
}

// NewTokenMapRepository creates a new TokenMapRepository with the provided
// database connection.
func NewTokenMapRepository(db *sql.DB) *TokenMapRepository {
	return &TokenMapRepository{db: db}
}

// Insert stores a new token mapping.
func (r *TokenMapRepository) Insert(ctx context.Context, rec *TokenRecord) error {
	query := `INSERT INTO token_map (token_type, normalized_value, encrypted_value, token, created_at)
		VALUES (?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		rec.TokenType,
		rec.NormalizedValue,
		rec.EncryptedValue,
		rec.Token,
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert token mapping: %w", err)
	}
	if rec.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read token mapping id: %w", err)
	}
	return nil
}

// FindByValue looks up an existing mapping for a normalized value.
func (r *TokenMapRepository) FindByValue(tokenType, normalizedValue string) (TokenRecord, bool, error) {
	row := r.db.QueryRow(
		`SELECT id, token_type, normalized_value, encrypted_value, token, created_at
		 FROM token_map WHERE token_type = ? AND normalized_value = ?`,
		tokenType, normalizedValue,
	)
	return scanTokenRecord(row)
}

// FindByToken resolves a token back to its mapping for detokenization.
func (r *TokenMapRepository) FindByToken(token string) (TokenRecord, bool, error) {
	row := r.db.QueryRow(
		`SELECT id, token_type, normalized_value, encrypted_value, token, created_at
		 FROM token_map WHERE token = ?`,
		token,
	)
	return scanTokenRecord(row)
}

// CountByType returns how many tokens of a type exist, used to number the
// next token in sequence.
func (r *TokenMapRepository) CountByType(tokenType string) (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(1) FROM token_map WHERE token_type = ?`, tokenType).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return count, nil
}

// GetDateShift returns the persistent date shift in days, or false when no
// shift has been established yet.
func (r *TokenMapRepository) GetDateShift() (int, bool, error) {
	var days int
	err := r.db.QueryRow(`SELECT shift_days FROM date_shift WHERE id = 1`).Scan(&days)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query date shift: %w", err)
	}
	return days, true, nil
}

// SetDateShift establishes the date shift. The CHECK constraint keeps the
// table to a single row.
func (r *TokenMapRepository) SetDateShift(ctx context.Context, days int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO date_shift (id, shift_days) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET shift_days = excluded.shift_days`,
		days,
	)
	if err != nil {
		return fmt.Errorf("failed to store date shift: %w", err)
	}
	return nil
}

func scanTokenRecord(row rowScanner) (TokenRecord, bool, error) {
	var rec TokenRecord
	var createdStr string

	err := row.Scan(&rec.ID, &rec.TokenType, &rec.NormalizedValue, &rec.EncryptedValue, &rec.Token, &createdStr)
	if err == sql.ErrNoRows {
		return TokenRecord{}, false, nil
	}
	if err != nil {
		return TokenRecord{}, false, fmt.Errorf("failed to scan token mapping: %w", err)
	}
	if rec.CreatedAt, err = ParseTime(createdStr); err != nil {
		return TokenRecord{}, false, err
	}
	return rec, true, nil
}
