package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency enumerates how often a recurring charge repeats.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// ValidFrequencies contains the allowed frequency values.
var ValidFrequencies = map[Frequency]bool{
	FrequencyWeekly:    true,
	FrequencyBiweekly:  true,
	FrequencyMonthly:   true,
	FrequencyQuarterly: true,
	FrequencyYearly:    true,
}

// YearlyOccurrences returns how many times a charge with this frequency
// lands in a year. Unknown frequencies are treated as monthly.
func (f Frequency) YearlyOccurrences() int {
	switch f {
	case FrequencyWeekly:
		return 52
	case FrequencyBiweekly:
		return 26
	case FrequencyMonthly:
		return 12
	case FrequencyQuarterly:
		return 4
	case FrequencyYearly:
		return 1
	default:
		return 12
	}
}

// NextExpected returns the next expected occurrence after lastSeen.
// Weekly and biweekly advance by whole days; monthly, quarterly, and yearly
// advance by calendar units, clamping to day 28 when the target month is
// shorter than the anchor day.
func (f Frequency) NextExpected(lastSeen time.Time) time.Time {
	y, m, d := lastSeen.Date()

	switch f {
	case FrequencyWeekly:
		return lastSeen.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		return lastSeen.AddDate(0, 0, 14)
	case FrequencyMonthly:
		return addMonthsClamped(y, int(m), d, 1)
	case FrequencyQuarterly:
		return addMonthsClamped(y, int(m), d, 3)
	case FrequencyYearly:
		return addMonthsClamped(y, int(m), d, 12)
	default:
		return lastSeen.AddDate(0, 0, 30)
	}
}

// addMonthsClamped adds months without the normalization time.AddDate does
// (Jan 31 + 1 month must not roll into March). Days beyond the 28th in a
// shorter target month clamp to 28, matching how billing cycles behave.
func addMonthsClamped(year, month, day, months int) time.Time {
	month += months
	for month > 12 {
		month -= 12
		year++
	}
	if day > 28 && day > daysInMonth(year, month) {
		day = 28
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// RecurringGroup is a named cluster of transactions believed to represent
// the same repeating charge.
type RecurringGroup struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	MerchantPattern  string           `json:"merchant_pattern"`
	ExpectedAmount   *decimal.Decimal `json:"expected_amount,omitempty"`
	AmountVariance   *decimal.Decimal `json:"amount_variance,omitempty"` // percent tolerance
	Frequency        Frequency        `json:"frequency"`
	CategoryID       *string          `json:"category_id,omitempty"`
	LastSeenDate     *time.Time       `json:"last_seen_date,omitempty"`
	NextExpectedDate *time.Time       `json:"next_expected_date,omitempty"`
	IsActive         bool             `json:"is_active"`
	TransactionCount int              `json:"transaction_count"`
	CreatedAt        time.Time        `json:"created_at,omitempty"`
}

// DetectionResult is one candidate recurring pattern produced by a detection
// run. Results are transient: they live only inside a DetectionSession and
// are consumed by applying them by index.
type DetectionResult struct {
	MerchantPattern string          `json:"merchant_pattern"`
	SuggestedName   string          `json:"suggested_name"`
	TransactionIDs  []string        `json:"transaction_ids"`
	Frequency       Frequency       `json:"frequency"`
	AverageAmount   decimal.Decimal `json:"average_amount"`
	Confidence      float64         `json:"confidence"`
	FirstSeen       time.Time       `json:"-"`
}

// DetectionSession identifies one detection run. Apply calls must present
// the session ID so stale indices are rejected instead of mis-applied.
type DetectionSession struct {
	SessionID  string            `json:"session_id"`
	Detected   []DetectionResult `json:"detected"`
	TotalFound int               `json:"total_found"`
}

// Renewal is one upcoming expected occurrence of an active recurring group.
type Renewal struct {
	RecurringGroupID string          `json:"recurring_group_id"`
	Merchant         string          `json:"merchant"`
	Amount           decimal.Decimal `json:"amount"`
	Frequency        Frequency       `json:"frequency"`
	NextDate         time.Time       `json:"next_date"`
	DaysUntil        int             `json:"days_until"`
}
