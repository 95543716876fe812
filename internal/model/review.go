package model

import "github.com/shopspring/decimal"

// InsightType enumerates the subscription review insight categories.
type InsightType string

const (
	InsightUnused         InsightType = "unused"
	InsightPriceIncrease  InsightType = "price_increase"
	InsightHighCost       InsightType = "high_cost"
	InsightAnnualUpcoming InsightType = "annual_upcoming"
	InsightDuplicate      InsightType = "duplicate"
)

// ReviewInsight is one finding about an active recurring group.
type ReviewInsight struct {
	Type             InsightType     `json:"type"`
	RecurringGroupID string          `json:"recurring_group_id"`
	GroupName        string          `json:"group_name"`
	Detail           string          `json:"detail"`
	YearlyCost       decimal.Decimal `json:"yearly_cost"`
}

// ReviewReport aggregates active recurring groups into a cost summary with
// structured insights.
type ReviewReport struct {
	TotalMonthlyCost  decimal.Decimal `json:"total_monthly_cost"`
	TotalYearlyCost   decimal.Decimal `json:"total_yearly_cost"`
	SubscriptionCount int             `json:"subscription_count"`
	Insights          []ReviewInsight `json:"insights"`
	Summary           string          `json:"summary"`
	AlertID           string          `json:"alert_id,omitempty"`
}

// RenewalProjection is the upcoming-renewals window report.
type RenewalProjection struct {
	Renewals      []Renewal       `json:"renewals"`
	TotalUpcoming decimal.Decimal `json:"total_upcoming_30_days"`
}
