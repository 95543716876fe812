package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/model"
)

// TransactionRepository provides data access methods for the transaction
// table. Amounts are stored as exact decimal text and dates as ISO strings.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `
	id, hash, date, amount, raw_description, clean_merchant, category_id,
	account_id, is_recurring, recurring_group_id, notes, ai_categorized,
	created_at, updated_at`

// Insert stores a new transaction.
func (r *TransactionRepository) Insert(ctx context.Context, t *model.Transaction) error {
	query := `
		INSERT INTO "transaction" (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.Hash,
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.RawDescription,
		t.CleanMerchant,
		t.CategoryID,
		t.AccountID,
		t.IsRecurring,
		t.RecurringGroupID,
		t.Notes,
		t.AICategorized,
		t.CreatedAt.UTC().Format(time.RFC3339),
		t.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// ExistsByHash reports whether a transaction with the given content hash
// already exists for the account.
func (r *TransactionRepository) ExistsByHash(accountID, hash string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(1) FROM "transaction" WHERE account_id = ? AND hash = ?`,
		accountID, hash,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query transaction hash: %w", err)
	}
	return count > 0, nil
}

// GetByID retrieves a single transaction.
func (r *TransactionRepository) GetByID(id string) (model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM "transaction" WHERE id = ?`

	row := r.db.QueryRow(query, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to query transaction: %w", err)
	}
	return t, nil
}

// List retrieves transactions, newest first, optionally filtered by
// account and capped at limit (0 means no cap).
func (r *TransactionRepository) List(accountID string, limit int) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM "transaction"`
	var args []any

	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY date DESC, created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	return r.queryTransactions(query, args...)
}

// ListExpensesForDetection retrieves expense transactions since the cutoff
// that are not linked to any active recurring group, oldest first. Rows
// linked to an inactive group remain eligible so paused subscriptions can
// be re-detected.
func (r *TransactionRepository) ListExpensesForDetection(accountID string, since time.Time) ([]model.Transaction, error) {
	query := `
		SELECT ` + prefixColumns("t", transactionColumns) + `
		FROM "transaction" t
		LEFT JOIN recurring_group g ON t.recurring_group_id = g.id
		WHERE t.account_id = ?
		AND t.date >= ?
		AND CAST(t.amount AS REAL) < 0
		AND (t.recurring_group_id IS NULL OR g.is_active = FALSE)
		ORDER BY t.date ASC
	`
	return r.queryTransactions(query, accountID, since.Format("2006-01-02"))
}

// ListByGroup retrieves all member transactions of a recurring group,
// newest first.
func (r *TransactionRepository) ListByGroup(groupID string) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM "transaction"
		WHERE recurring_group_id = ? ORDER BY date DESC`
	return r.queryTransactions(query, groupID)
}

// CountByGroup returns the number of transactions linked to a group.
func (r *TransactionRepository) CountByGroup(groupID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(1) FROM "transaction" WHERE recurring_group_id = ?`, groupID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count group transactions: %w", err)
	}
	return count, nil
}

// UpdateMutable updates the mutable enrichment fields of a transaction.
// Only non-nil fields change; core ingested fields are never touched.
func (r *TransactionRepository) UpdateMutable(ctx context.Context, id string, cleanMerchant, categoryID, notes *string) (model.Transaction, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Format(time.RFC3339)}

	if cleanMerchant != nil {
		sets = append(sets, "clean_merchant = ?")
		args = append(args, *cleanMerchant)
	}
	if categoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, *categoryID)
	}
	if notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *notes)
	}
	args = append(args, id)

	result, err := r.db.ExecContext(ctx,
		`UPDATE "transaction" SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to update transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}

	return r.GetByID(id)
}

// LinkToGroup links the given transactions to a recurring group and flags
// them as recurring.
func (r *TransactionRepository) LinkToGroup(ctx context.Context, transactionIDs []string, groupID string) error {
	if len(transactionIDs) == 0 {
		return nil
	}

	placeholders := make([]string, len(transactionIDs))
	args := []any{groupID, time.Now().UTC().Format(time.RFC3339)}
	for i, id := range transactionIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := `UPDATE "transaction"
		SET recurring_group_id = ?, is_recurring = TRUE, updated_at = ?
		WHERE id IN (` + strings.Join(placeholders, ",") + `)`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to link transactions to group: %w", err)
	}
	return nil
}

// UnlinkTransaction removes a single transaction from its recurring group.
func (r *TransactionRepository) UnlinkTransaction(ctx context.Context, transactionID string) error {
	query := `UPDATE "transaction"
		SET recurring_group_id = NULL, is_recurring = FALSE, updated_at = ?
		WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC().Format(time.RFC3339), transactionID); err != nil {
		return fmt.Errorf("failed to unlink transaction: %w", err)
	}
	return nil
}

// UnlinkGroup removes all transactions from a recurring group. Used when
// the group itself is deleted.
func (r *TransactionRepository) UnlinkGroup(ctx context.Context, groupID string) error {
	query := `UPDATE "transaction"
		SET recurring_group_id = NULL, is_recurring = FALSE, updated_at = ?
		WHERE recurring_group_id = ?`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC().Format(time.RFC3339), groupID); err != nil {
		return fmt.Errorf("failed to unlink group transactions: %w", err)
	}
	return nil
}

// CategoryAverage returns the average outflow magnitude for a category
// over the trailing window, excluding one transaction ID so a row never
// skews its own baseline. Returns zero when the category has no history.
func (r *TransactionRepository) CategoryAverage(categoryID string, since time.Time, excludeID string) (decimal.Decimal, error) {
	var avg sql.NullFloat64
	err := r.db.QueryRow(`
		SELECT AVG(ABS(CAST(amount AS REAL)))
		FROM "transaction"
		WHERE category_id = ?
		AND CAST(amount AS REAL) < 0
		AND date >= ?
		AND id != ?
	`, categoryID, since.Format("2006-01-02"), excludeID).Scan(&avg)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute category average: %w", err)
	}
	if !avg.Valid {
		return decimal.Zero, nil
	}
	return decimal.NewFromFloat(avg.Float64).Round(2), nil
}

// CountByMerchant returns how many transactions carry the given merchant
// name, in either the cleaned or raw field, excluding one transaction ID.
func (r *TransactionRepository) CountByMerchant(merchant, excludeID string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(1) FROM "transaction"
		WHERE (clean_merchant = ? OR raw_description = ?)
		AND id != ?
	`, merchant, merchant, excludeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count merchant transactions: %w", err)
	}
	return count, nil
}

// AccountIDs returns the distinct account IDs present in the ledger.
func (r *TransactionRepository) AccountIDs() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT account_id FROM "transaction"`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger accounts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger accounts: %w", err)
	}
	return ids, nil
}

func (r *TransactionRepository) queryTransactions(query string, args ...any) ([]model.Transaction, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}
	return transactions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var t model.Transaction
	var dateStr, createdStr, updatedStr string
	var cleanMerchant, categoryID, groupID, notes sql.NullString

	err := row.Scan(
		&t.ID,
		&t.Hash,
		&dateStr,
		&t.Amount,
		&t.RawDescription,
		&cleanMerchant,
		&categoryID,
		&t.AccountID,
		&t.IsRecurring,
		&groupID,
		&notes,
		&t.AICategorized,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return model.Transaction{}, err
	}

	if t.Date, err = ParseTime(dateStr); err != nil {
		return model.Transaction{}, err
	}
	if t.CreatedAt, err = ParseTime(createdStr); err != nil {
		return model.Transaction{}, err
	}
	if t.UpdatedAt, err = ParseTime(updatedStr); err != nil {
		return model.Transaction{}, err
	}

	t.CleanMerchant = nullString(cleanMerchant)
	t.CategoryID = nullString(categoryID)
	t.RecurringGroupID = nullString(groupID)
	t.Notes = nullString(notes)

	return t, nil
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
