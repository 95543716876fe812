package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/model"
)

// RecurringRepository provides data access methods for the recurring_group
// table. Transaction counts are derived with a correlated subquery so the
// count is never stale.
type RecurringRepository struct {
	db *sql.DB
}

// NewRecurringRepository creates a new RecurringRepository with the provided database connection.
func NewRecurringRepository(db *sql.DB) *RecurringRepository {
	return &RecurringRepository{db: db}
}

const recurringSelect = `
	SELECT g.id, g.name, g.merchant_pattern, g.expected_amount, g.amount_variance,
		g.frequency, g.category_id, g.last_seen_date, g.next_expected_date,
		g.is_active, g.created_at,
		(SELECT COUNT(1) FROM "transaction" t WHERE t.recurring_group_id = g.id) AS transaction_count
	FROM recurring_group g`

// Insert stores a new recurring group.
func (r *RecurringRepository) Insert(ctx context.Context, g *model.RecurringGroup) error {
	query := `
		INSERT INTO recurring_group (
			id, name, merchant_pattern, expected_amount, amount_variance,
			frequency, category_id, last_seen_date, next_expected_date,
			is_active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		g.ID,
		g.Name,
		g.MerchantPattern,
		g.ExpectedAmount,
		g.AmountVariance,
		string(g.Frequency),
		g.CategoryID,
		formatNullDate(g.LastSeenDate),
		formatNullDate(g.NextExpectedDate),
		g.IsActive,
		g.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert recurring group: %w", err)
	}
	return nil
}

// GetByID retrieves a single recurring group with its transaction count.
func (r *RecurringRepository) GetByID(id string) (model.RecurringGroup, error) {
	row := r.db.QueryRow(recurringSelect+` WHERE g.id = ?`, id)
	g, err := scanRecurringGroup(row)
	if err == sql.ErrNoRows {
		return model.RecurringGroup{}, apperrors.ErrRecurringGroupNotFound
	}
	if err != nil {
		return model.RecurringGroup{}, fmt.Errorf("failed to query recurring group: %w", err)
	}
	return g, nil
}

// List retrieves recurring groups ordered by name. Inactive groups are
// included only on request.
func (r *RecurringRepository) List(includeInactive bool) ([]model.RecurringGroup, error) {
	query := recurringSelect
	if !includeInactive {
		query += ` WHERE g.is_active = TRUE`
	}
	query += ` ORDER BY g.name ASC`

	return r.queryGroups(query)
}

// Update rewrites all mutable fields of a recurring group.
func (r *RecurringRepository) Update(ctx context.Context, g *model.RecurringGroup) error {
	query := `
		UPDATE recurring_group SET
			name = ?, merchant_pattern = ?, expected_amount = ?, amount_variance = ?,
			frequency = ?, category_id = ?, last_seen_date = ?, next_expected_date = ?,
			is_active = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		g.Name,
		g.MerchantPattern,
		g.ExpectedAmount,
		g.AmountVariance,
		string(g.Frequency),
		g.CategoryID,
		formatNullDate(g.LastSeenDate),
		formatNullDate(g.NextExpectedDate),
		g.IsActive,
		g.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recurring group: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrRecurringGroupNotFound
	}
	return nil
}

// Delete removes a recurring group. Member transactions must be unlinked
// by the caller first.
func (r *RecurringRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM recurring_group WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recurring group: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrRecurringGroupNotFound
	}
	return nil
}

// FindActiveByMerchant returns the active group whose merchant pattern
// contains, or is contained by, the given merchant name. Used when a new
// transaction needs to be checked against existing recurring charges.
func (r *RecurringRepository) FindActiveByMerchant(merchant string) (model.RecurringGroup, bool, error) {
	query := recurringSelect + `
		WHERE g.is_active = TRUE
		AND (INSTR(UPPER(g.merchant_pattern), UPPER(?)) > 0 OR INSTR(UPPER(?), UPPER(g.merchant_pattern)) > 0)
		LIMIT 1`

	row := r.db.QueryRow(query, merchant, merchant)
	g, err := scanRecurringGroup(row)
	if err == sql.ErrNoRows {
		return model.RecurringGroup{}, false, nil
	}
	if err != nil {
		return model.RecurringGroup{}, false, fmt.Errorf("failed to query recurring group by merchant: %w", err)
	}
	return g, true, nil
}

// ListActiveDueWithin returns active groups whose next expected date falls
// between today and the cutoff, soonest first.
func (r *RecurringRepository) ListActiveDueWithin(today, cutoff time.Time) ([]model.RecurringGroup, error) {
	query := recurringSelect + `
		WHERE g.is_active = TRUE
		AND g.next_expected_date IS NOT NULL
		AND g.next_expected_date >= ?
		AND g.next_expected_date <= ?
		ORDER BY g.next_expected_date ASC`

	return r.queryGroups(query, today.Format("2006-01-02"), cutoff.Format("2006-01-02"))
}

func (r *RecurringRepository) queryGroups(query string, args ...any) ([]model.RecurringGroup, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring_group table: %w", err)
	}
	defer rows.Close()

	groups := []model.RecurringGroup{}
	for rows.Next() {
		g, err := scanRecurringGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring_group table: %w", err)
	}
	return groups, nil
}

func scanRecurringGroup(row rowScanner) (model.RecurringGroup, error) {
	var g model.RecurringGroup
	var frequency, createdStr string
	var expectedAmount, amountVariance, categoryID, lastSeen, nextExpected sql.NullString

	err := row.Scan(
		&g.ID,
		&g.Name,
		&g.MerchantPattern,
		&expectedAmount,
		&amountVariance,
		&frequency,
		&categoryID,
		&lastSeen,
		&nextExpected,
		&g.IsActive,
		&createdStr,
		&g.TransactionCount,
	)
	if err != nil {
		return model.RecurringGroup{}, err
	}

	g.Frequency = model.Frequency(frequency)
	g.CategoryID = nullString(categoryID)

	if g.ExpectedAmount, err = parseNullDecimal(expectedAmount); err != nil {
		return model.RecurringGroup{}, err
	}
	if g.AmountVariance, err = parseNullDecimal(amountVariance); err != nil {
		return model.RecurringGroup{}, err
	}
	if g.LastSeenDate, err = parseNullTime(lastSeen); err != nil {
		return model.RecurringGroup{}, err
	}
	if g.NextExpectedDate, err = parseNullTime(nextExpected); err != nil {
		return model.RecurringGroup{}, err
	}
	if g.CreatedAt, err = ParseTime(createdStr); err != nil {
		return model.RecurringGroup{}, err
	}

	return g, nil
}

func formatNullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}
