package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertType enumerates the kinds of alerts the engine emits.
type AlertType string

const (
	AlertLargePurchase      AlertType = "large_purchase"
	AlertPriceIncrease      AlertType = "price_increase"
	AlertNewRecurring       AlertType = "new_recurring"
	AlertUnusualMerchant    AlertType = "unusual_merchant"
	AlertAnnualCharge       AlertType = "annual_charge"
	AlertSubscriptionReview AlertType = "subscription_review"
)

// ValidAlertTypes contains the allowed alert type values.
var ValidAlertTypes = map[AlertType]bool{
	AlertLargePurchase:      true,
	AlertPriceIncrease:      true,
	AlertNewRecurring:       true,
	AlertUnusualMerchant:    true,
	AlertAnnualCharge:       true,
	AlertSubscriptionReview: true,
}

// Severity enumerates alert severities, mildest first.
type Severity string

const (
	SeverityInfo      Severity = "info"
	SeverityWarning   Severity = "warning"
	SeverityAttention Severity = "attention"
)

// Alert is a user-facing notification produced by the alert engine.
// Transaction and recurring group references are lookups, not ownership:
// deleting an alert never touches the referenced entities.
type Alert struct {
	ID               string         `json:"id"`
	Type             AlertType      `json:"type"`
	Severity         Severity       `json:"severity"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	TransactionID    *string        `json:"transaction_id,omitempty"`
	RecurringGroupID *string        `json:"recurring_group_id,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	IsRead           bool           `json:"is_read"`
	IsDismissed      bool           `json:"is_dismissed"`
	ActionTaken      *string        `json:"action_taken,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// AlertSettings is the singleton configuration read by the alert engine
// before every evaluation pass.
type AlertSettings struct {
	ID                       string           `json:"id"`
	LargePurchaseThreshold   *decimal.Decimal `json:"large_purchase_threshold,omitempty"`
	LargePurchaseMultiplier  decimal.Decimal  `json:"large_purchase_multiplier"`
	UnusualMerchantThreshold decimal.Decimal  `json:"unusual_merchant_threshold"`
	SubscriptionReviewDays   int              `json:"subscription_review_days"`
	LastSubscriptionReview   *time.Time       `json:"last_subscription_review,omitempty"`
	AnnualChargeWarningDays  int              `json:"annual_charge_warning_days"`
	AlertsEnabled            bool             `json:"alerts_enabled"`
	CreatedAt                time.Time        `json:"created_at,omitempty"`
	UpdatedAt                time.Time        `json:"updated_at,omitempty"`
}
