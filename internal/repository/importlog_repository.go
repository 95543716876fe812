package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/model"
)

// ImportLogRepository provides data access methods for the import_log table.
type ImportLogRepository struct {
	db *sql.DB
}

// NewImportLogRepository creates a new ImportLogRepository with the provided
// database connection.
func NewImportLogRepository(db *sql.DB) *ImportLogRepository {
	return &ImportLogRepository{db: db}
}

const importLogColumns = `
	id, filename, account_id, status, transactions_imported,
	transactions_skipped, error_message, created_at`

// Insert stores a new import log entry.
func (r *ImportLogRepository) Insert(ctx context.Context, log *model.ImportLog) error {
	query := `INSERT INTO import_log (` + importLogColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.Filename,
		log.AccountID,
		string(log.Status),
		log.TransactionsImported,
		log.TransactionsSkipped,
		log.ErrorMessage,
		log.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert import log: %w", err)
	}
	return nil
}

// SetStatus transitions an import log entry and records its final counters.
func (r *ImportLogRepository) SetStatus(ctx context.Context, id string, status model.ImportStatus, imported, skipped int, errorMessage *string) error {
	query := `UPDATE import_log SET
		status = ?, transactions_imported = ?, transactions_skipped = ?, error_message = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, string(status), imported, skipped, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrImportNotFound
	}
	return nil
}

// GetByID retrieves a single import log entry.
func (r *ImportLogRepository) GetByID(id string) (model.ImportLog, error) {
	row := r.db.QueryRow(`SELECT `+importLogColumns+` FROM import_log WHERE id = ?`, id)
	log, err := scanImportLog(row)
	if err == sql.ErrNoRows {
		return model.ImportLog{}, apperrors.ErrImportNotFound
	}
	if err != nil {
		return model.ImportLog{}, fmt.Errorf("failed to query import log: %w", err)
	}
	return log, nil
}

// List retrieves import history, newest first. A limit of 0 means no limit.
func (r *ImportLogRepository) List(accountID string, limit int) ([]model.ImportLog, error) {
	query := `SELECT ` + importLogColumns + ` FROM import_log`
	args := []any{}

	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query import_log table: %w", err)
	}
	defer rows.Close()

	logs := []model.ImportLog{}
	for rows.Next() {
		log, err := scanImportLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating import_log table: %w", err)
	}
	return logs, nil
}

func scanImportLog(row rowScanner) (model.ImportLog, error) {
	var log model.ImportLog
	var status, createdStr string
	var errorMessage sql.NullString

	err := row.Scan(
		&log.ID,
		&log.Filename,
		&log.AccountID,
		&status,
		&log.TransactionsImported,
		&log.TransactionsSkipped,
		&errorMessage,
		&createdStr,
	)
	if err != nil {
		return model.ImportLog{}, err
	}

	log.Status = model.ImportStatus(status)
	log.ErrorMessage = nullString(errorMessage)
	if log.CreatedAt, err = ParseTime(createdStr); err != nil {
		return model.ImportLog{}, err
	}
	return log, nil
}
