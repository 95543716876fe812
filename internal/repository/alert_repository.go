package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/model"
)

// AlertRepository provides data access methods for the alert table.
// Metadata payloads are stored as JSON text.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository creates a new AlertRepository with the provided database connection.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// AlertFilter narrows List and Count queries. Nil fields are not applied,
// except IsDismissed: when nil, dismissed alerts are hidden, matching the
// default inbox view.
type AlertFilter struct {
	IsRead      *bool
	IsDismissed *bool
	Type        string
	Limit       int
}

const alertColumns = `
	id, type, severity, title, description, transaction_id,
	recurring_group_id, metadata, is_read, is_dismissed, action_taken, created_at`

// Insert stores a new alert.
func (r *AlertRepository) Insert(ctx context.Context, a *model.Alert) error {
	var metadata any
	if a.Metadata != nil {
		encoded, err := json.Marshal(a.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode alert metadata: %w", err)
		}
		metadata = string(encoded)
	}

	query := `INSERT INTO alert (` + alertColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		string(a.Type),
		string(a.Severity),
		a.Title,
		a.Description,
		a.TransactionID,
		a.RecurringGroupID,
		metadata,
		a.IsRead,
		a.IsDismissed,
		a.ActionTaken,
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// Exists reports whether an alert of the given type already references the
// same transaction/group pair. This is the engine's idempotency check:
// re-running an evaluation pass never re-emits a semantically identical
// alert.
func (r *AlertRepository) Exists(alertType model.AlertType, transactionID, recurringGroupID *string) (bool, error) {
	query := `SELECT COUNT(1) FROM alert WHERE type = ?`
	args := []any{string(alertType)}

	if transactionID != nil {
		query += ` AND transaction_id = ?`
		args = append(args, *transactionID)
	} else {
		query += ` AND transaction_id IS NULL`
	}
	if recurringGroupID != nil {
		query += ` AND recurring_group_id = ?`
		args = append(args, *recurringGroupID)
	} else {
		query += ` AND recurring_group_id IS NULL`
	}

	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to query alert existence: %w", err)
	}
	return count > 0, nil
}

// List retrieves alerts matching the filter, newest first.
func (r *AlertRepository) List(filter AlertFilter) ([]model.Alert, error) {
	where, args := filterClauses(filter)

	query := `SELECT ` + alertColumns + ` FROM alert`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert table: %w", err)
	}
	defer rows.Close()

	alerts := []model.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert table: %w", err)
	}
	return alerts, nil
}

// Count returns the number of alerts matching the filter, ignoring Limit.
func (r *AlertRepository) Count(filter AlertFilter) (int, error) {
	where, args := filterClauses(filter)

	query := `SELECT COUNT(1) FROM alert`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}

	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}

// UnreadCount returns the number of unread, non-dismissed alerts.
func (r *AlertRepository) UnreadCount() (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(1) FROM alert WHERE is_read = FALSE AND is_dismissed = FALSE`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread alerts: %w", err)
	}
	return count, nil
}

// GetByID retrieves a single alert.
func (r *AlertRepository) GetByID(id string) (model.Alert, error) {
	row := r.db.QueryRow(`SELECT `+alertColumns+` FROM alert WHERE id = ?`, id)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return model.Alert{}, apperrors.ErrAlertNotFound
	}
	if err != nil {
		return model.Alert{}, fmt.Errorf("failed to query alert: %w", err)
	}
	return a, nil
}

// UpdateState updates the lifecycle fields of an alert. Only non-nil
// fields change.
func (r *AlertRepository) UpdateState(ctx context.Context, id string, isRead, isDismissed *bool, actionTaken *string) (model.Alert, error) {
	sets := []string{}
	args := []any{}

	if isRead != nil {
		sets = append(sets, "is_read = ?")
		args = append(args, *isRead)
	}
	if isDismissed != nil {
		sets = append(sets, "is_dismissed = ?")
		args = append(args, *isDismissed)
	}
	if actionTaken != nil {
		sets = append(sets, "action_taken = ?")
		args = append(args, *actionTaken)
	}
	if len(sets) == 0 {
		return r.GetByID(id)
	}
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, `UPDATE alert SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return model.Alert{}, fmt.Errorf("failed to update alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return model.Alert{}, fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return model.Alert{}, apperrors.ErrAlertNotFound
	}

	return r.GetByID(id)
}

// MarkAllRead marks every unread alert as read. Returns the number updated.
func (r *AlertRepository) MarkAllRead(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE alert SET is_read = TRUE WHERE is_read = FALSE`)
	if err != nil {
		return 0, fmt.Errorf("failed to mark alerts read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check update result: %w", err)
	}
	return int(affected), nil
}

// Delete permanently removes an alert.
func (r *AlertRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM alert WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrAlertNotFound
	}
	return nil
}

// LatestByType returns the newest alert of a given type, if any.
func (r *AlertRepository) LatestByType(alertType model.AlertType) (model.Alert, bool, error) {
	row := r.db.QueryRow(
		`SELECT `+alertColumns+` FROM alert WHERE type = ? ORDER BY created_at DESC LIMIT 1`,
		string(alertType),
	)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return model.Alert{}, false, nil
	}
	if err != nil {
		return model.Alert{}, false, fmt.Errorf("failed to query latest alert: %w", err)
	}
	return a, true, nil
}

func filterClauses(filter AlertFilter) ([]string, []any) {
	var where []string
	var args []any

	if filter.IsRead != nil {
		where = append(where, "is_read = ?")
		args = append(args, *filter.IsRead)
	}
	if filter.IsDismissed != nil {
		where = append(where, "is_dismissed = ?")
		args = append(args, *filter.IsDismissed)
	} else {
		where = append(where, "is_dismissed = FALSE")
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}
	return where, args
}

func scanAlert(row rowScanner) (model.Alert, error) {
	var a model.Alert
	var alertType, severity, createdStr string
	var transactionID, groupID, metadata, actionTaken sql.NullString

	err := row.Scan(
		&a.ID,
		&alertType,
		&severity,
		&a.Title,
		&a.Description,
		&transactionID,
		&groupID,
		&metadata,
		&a.IsRead,
		&a.IsDismissed,
		&actionTaken,
		&createdStr,
	)
	if err != nil {
		return model.Alert{}, err
	}

	a.Type = model.AlertType(alertType)
	a.Severity = model.Severity(severity)
	a.TransactionID = nullString(transactionID)
	a.RecurringGroupID = nullString(groupID)
	a.ActionTaken = nullString(actionTaken)

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &a.Metadata); err != nil {
			return model.Alert{}, fmt.Errorf("failed to decode alert metadata: %w", err)
		}
	}
	if a.CreatedAt, err = ParseTime(createdStr); err != nil {
		return model.Alert{}, err
	}

	return a, nil
}
