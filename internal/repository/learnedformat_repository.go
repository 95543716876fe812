package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/model"
)

// LearnedFormatRepository provides data access methods for the
// learned_format table.
type LearnedFormatRepository struct {
	db *sql.DB
}

// NewLearnedFormatRepository creates a new LearnedFormatRepository with the
// provided database connection.
func NewLearnedFormatRepository(db *sql.DB) *LearnedFormatRepository {
	return &LearnedFormatRepository{db: db}
}

const learnedFormatColumns = `
	id, name, fingerprint, file_type, date_column, amount_column,
	description_column, debit_column, credit_column, date_format,
	amount_style, skip_rows, account_id, created_at`

// Insert stores a confirmed format for reuse on future uploads.
func (r *LearnedFormatRepository) Insert(ctx context.Context, f *model.LearnedFormat) error {
	query := `INSERT INTO learned_format (` + learnedFormatColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		f.ID,
		f.Name,
		f.Fingerprint,
		string(f.FileType),
		f.Mapping.DateColumn,
		f.Mapping.AmountColumn,
		f.Mapping.DescriptionColumn,
		f.Mapping.DebitColumn,
		f.Mapping.CreditColumn,
		f.DateFormat,
		string(f.AmountStyle),
		f.SkipRows,
		f.AccountID,
		f.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert learned format: %w", err)
	}
	return nil
}

// GetByID retrieves a single learned format.
func (r *LearnedFormatRepository) GetByID(id string) (model.LearnedFormat, error) {
	row := r.db.QueryRow(`SELECT `+learnedFormatColumns+` FROM learned_format WHERE id = ?`, id)
	f, err := scanLearnedFormat(row)
	if err == sql.ErrNoRows {
		return model.LearnedFormat{}, apperrors.ErrLearnedFormatNotFound
	}
	if err != nil {
		return model.LearnedFormat{}, fmt.Errorf("failed to query learned format: %w", err)
	}
	return f, nil
}

// FindByFingerprint looks up a saved format by header fingerprint. The
// newest match wins when the same header set was saved more than once.
func (r *LearnedFormatRepository) FindByFingerprint(fingerprint string) (model.LearnedFormat, bool, error) {
	row := r.db.QueryRow(
		`SELECT `+learnedFormatColumns+` FROM learned_format
		 WHERE fingerprint = ? ORDER BY created_at DESC LIMIT 1`,
		fingerprint,
	)
	f, err := scanLearnedFormat(row)
	if err == sql.ErrNoRows {
		return model.LearnedFormat{}, false, nil
	}
	if err != nil {
		return model.LearnedFormat{}, false, fmt.Errorf("failed to query learned format: %w", err)
	}
	return f, true, nil
}

// List retrieves all learned formats, newest first.
func (r *LearnedFormatRepository) List() ([]model.LearnedFormat, error) {
	rows, err := r.db.Query(`SELECT ` + learnedFormatColumns + ` FROM learned_format ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query learned_format table: %w", err)
	}
	defer rows.Close()

	formats := []model.LearnedFormat{}
	for rows.Next() {
		f, err := scanLearnedFormat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan learned format: %w", err)
		}
		formats = append(formats, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating learned_format table: %w", err)
	}
	return formats, nil
}

// Delete removes a learned format. Accounts referencing it fall back to
// fresh detection on their next upload.
func (r *LearnedFormatRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM learned_format WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete learned format: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrLearnedFormatNotFound
	}
	return nil
}

func scanLearnedFormat(row rowScanner) (model.LearnedFormat, error) {
	var f model.LearnedFormat
	var fileType, amountStyle, createdStr string
	var amountCol, debitCol, creditCol sql.NullInt64
	var accountID sql.NullString

	err := row.Scan(
		&f.ID,
		&f.Name,
		&f.Fingerprint,
		&fileType,
		&f.Mapping.DateColumn,
		&amountCol,
		&f.Mapping.DescriptionColumn,
		&debitCol,
		&creditCol,
		&f.DateFormat,
		&amountStyle,
		&f.SkipRows,
		&accountID,
		&createdStr,
	)
	if err != nil {
		return model.LearnedFormat{}, err
	}

	f.FileType = model.FileType(fileType)
	f.AmountStyle = model.AmountStyle(amountStyle)
	f.Mapping.AmountColumn = nullInt(amountCol)
	f.Mapping.DebitColumn = nullInt(debitCol)
	f.Mapping.CreditColumn = nullInt(creditCol)
	f.AccountID = nullString(accountID)
	if f.CreatedAt, err = ParseTime(createdStr); err != nil {
		return model.LearnedFormat{}, err
	}
	return f, nil
}
