package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spendah/spendah-backend/internal/model"
)

// Defaults applied when the alert_settings row is first created.
var (
	defaultLargePurchaseMultiplier  = decimal.NewFromFloat(3.0)
	defaultUnusualMerchantThreshold = decimal.NewFromInt(200)
)

// AlertSettingsRepository manages the singleton alert_settings row.
type AlertSettingsRepository struct {
	db *sql.DB
}

// NewAlertSettingsRepository creates a new AlertSettingsRepository with the
// provided database connection.
func NewAlertSettingsRepository(db *sql.DB) *AlertSettingsRepository {
	return &AlertSettingsRepository{db: db}
}

const alertSettingsColumns = `
	id, large_purchase_threshold, large_purchase_multiplier,
	unusual_merchant_threshold, subscription_review_days,
	last_subscription_review, annual_charge_warning_days, alerts_enabled,
	created_at, updated_at`

// GetOrCreate returns the settings row, inserting defaults on first use.
func (r *AlertSettingsRepository) GetOrCreate(ctx context.Context) (model.AlertSettings, error) {
	settings, err := r.get()
	if err == nil {
		return settings, nil
	}
	if err != sql.ErrNoRows {
		return model.AlertSettings{}, fmt.Errorf("failed to query alert settings: %w", err)
	}

	now := time.Now().UTC()
	settings = model.AlertSettings{
		ID:                       uuid.NewString(),
		LargePurchaseMultiplier:  defaultLargePurchaseMultiplier,
		UnusualMerchantThreshold: defaultUnusualMerchantThreshold,
		SubscriptionReviewDays:   90,
		AnnualChargeWarningDays:  14,
		AlertsEnabled:            true,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	query := `INSERT INTO alert_settings (` + alertSettingsColumns + `)
		VALUES (?, NULL, ?, ?, ?, NULL, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		settings.ID,
		settings.LargePurchaseMultiplier.String(),
		settings.UnusualMerchantThreshold.String(),
		settings.SubscriptionReviewDays,
		settings.AnnualChargeWarningDays,
		settings.AlertsEnabled,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return model.AlertSettings{}, fmt.Errorf("failed to insert default alert settings: %w", err)
	}
	return settings, nil
}

// Update persists the full settings row and refreshes updated_at.
func (r *AlertSettingsRepository) Update(ctx context.Context, s *model.AlertSettings) error {
	s.UpdatedAt = time.Now().UTC()

	var threshold any
	if s.LargePurchaseThreshold != nil {
		threshold = s.LargePurchaseThreshold.String()
	}
	var lastReview any
	if s.LastSubscriptionReview != nil {
		lastReview = s.LastSubscriptionReview.UTC().Format(time.RFC3339)
	}

	query := `UPDATE alert_settings SET
		large_purchase_threshold = ?,
		large_purchase_multiplier = ?,
		unusual_merchant_threshold = ?,
		subscription_review_days = ?,
		last_subscription_review = ?,
		annual_charge_warning_days = ?,
		alerts_enabled = ?,
		updated_at = ?
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		threshold,
		s.LargePurchaseMultiplier.String(),
		s.UnusualMerchantThreshold.String(),
		s.SubscriptionReviewDays,
		lastReview,
		s.AnnualChargeWarningDays,
		s.AlertsEnabled,
		s.UpdatedAt.Format(time.RFC3339),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert settings: %w", err)
	}
	return nil
}

func (r *AlertSettingsRepository) get() (model.AlertSettings, error) {
	row := r.db.QueryRow(`SELECT ` + alertSettingsColumns + ` FROM alert_settings LIMIT 1`)

	var s model.AlertSettings
	var threshold, multiplier, unusual sql.NullString
	var lastReview sql.NullString
	var createdStr, updatedStr string

	err := row.Scan(
		&s.ID,
		&threshold,
		&multiplier,
		&unusual,
		&s.SubscriptionReviewDays,
		&lastReview,
		&s.AnnualChargeWarningDays,
		&s.AlertsEnabled,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return model.AlertSettings{}, err
	}

	if s.LargePurchaseThreshold, err = parseNullDecimal(threshold); err != nil {
		return model.AlertSettings{}, err
	}
	if multiplier.Valid {
		if s.LargePurchaseMultiplier, err = decimal.NewFromString(multiplier.String); err != nil {
			return model.AlertSettings{}, fmt.Errorf("invalid large purchase multiplier: %w", err)
		}
	}
	if unusual.Valid {
		if s.UnusualMerchantThreshold, err = decimal.NewFromString(unusual.String); err != nil {
			return model.AlertSettings{}, fmt.Errorf("invalid unusual merchant threshold: %w", err)
		}
	}
	if s.LastSubscriptionReview, err = parseNullTime(lastReview); err != nil {
		return model.AlertSettings{}, err
	}
	if s.CreatedAt, err = ParseTime(createdStr); err != nil {
		return model.AlertSettings{}, err
	}
	if s.UpdatedAt, err = ParseTime(updatedStr); err != nil {
		return model.AlertSettings{}, err
	}

	return s, nil
}
