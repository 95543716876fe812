package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/model"
)

// AccountRepository provides data access methods for the account table.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new AccountRepository with the provided
// database connection.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, name, account_type, learned_format_id, is_active, created_at`

// Insert stores a new account.
func (r *AccountRepository) Insert(ctx context.Context, a *model.Account) error {
	query := `INSERT INTO account (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.Name,
		string(a.Type),
		a.LearnedFormatID,
		a.IsActive,
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// GetByID retrieves a single account.
func (r *AccountRepository) GetByID(id string) (model.Account, error) {
	row := r.db.QueryRow(`SELECT `+accountColumns+` FROM account WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return model.Account{}, apperrors.ErrAccountNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to query account: %w", err)
	}
	return a, nil
}

// List retrieves all accounts, active first, then by name.
func (r *AccountRepository) List() ([]model.Account, error) {
	rows, err := r.db.Query(`SELECT ` + accountColumns + ` FROM account ORDER BY is_active DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query account table: %w", err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account table: %w", err)
	}
	return accounts, nil
}

// Update persists the mutable fields of an account.
func (r *AccountRepository) Update(ctx context.Context, a *model.Account) error {
	query := `UPDATE account SET name = ?, account_type = ?, learned_format_id = ?, is_active = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		a.Name,
		string(a.Type),
		a.LearnedFormatID,
		a.IsActive,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrAccountNotFound
	}
	return nil
}

// Delete removes an account. Its transactions cascade via the schema.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM account WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrAccountNotFound
	}
	return nil
}

func scanAccount(row rowScanner) (model.Account, error) {
	var a model.Account
	var accountType, createdStr string
	var learnedFormatID sql.NullString

	err := row.Scan(&a.ID, &a.Name, &accountType, &learnedFormatID, &a.IsActive, &createdStr)
	if err != nil {
		return model.Account{}, err
	}

	a.Type = model.AccountType(accountType)
	a.LearnedFormatID = nullString(learnedFormatID)
	if a.CreatedAt, err = ParseTime(createdStr); err != nil {
		return model.Account{}, err
	}
	return a, nil
}
