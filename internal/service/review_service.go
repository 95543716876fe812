package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/merchant"
	"github.com/spendah/spendah-backend/internal/model"
	"github.com/spendah/spendah-backend/internal/repository"
)

const (
	// highCostPercentile flags groups at or above this share of the
	// normalized yearly cost distribution.
	highCostPercentile = 0.8
	// duplicateAmountTolerance is the relative amount difference under
	// which two similar groups count as duplicates.
	duplicateAmountTolerance = 0.2
	// annualUpcomingWindowDays is the due-soon window for yearly groups.
	annualUpcomingWindowDays = 30
)

// ReviewService aggregates active recurring groups into a subscription
// health report.
type ReviewService struct {
	recurringRepo   *repository.RecurringRepository
	transactionRepo *repository.TransactionRepository
	alertService    *AlertService
	similarity      merchant.Similarity
}

// NewReviewService creates a new ReviewService. similarity defaults to
// merchant.NormalizedPrefix when nil; alertService may be nil, which skips
// persisting the summary alert.
func NewReviewService(
	recurringRepo *repository.RecurringRepository,
	transactionRepo *repository.TransactionRepository,
	alertService *AlertService,
	similarity merchant.Similarity,
) *ReviewService {
	if similarity == nil {
		similarity = merchant.NormalizedPrefix{}
	}
	return &ReviewService{
		recurringRepo:   recurringRepo,
		transactionRepo: transactionRepo,
		alertService:    alertService,
		similarity:      similarity,
	}
}

// Review computes cost totals and per-group insights over the active
// recurring groups, and persists the result as an info alert.
func (s *ReviewService) Review(ctx context.Context) (model.ReviewReport, error) {
	groups, err := s.recurringRepo.List(false)
	if err != nil {
		return model.ReviewReport{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToRunReview, err)
	}

	today := truncateToDay(time.Now().UTC())

	yearlyCosts := make([]decimal.Decimal, len(groups))
	totalYearly := decimal.Zero
	for i, g := range groups {
		yearlyCosts[i] = yearlyCost(g)
		totalYearly = totalYearly.Add(yearlyCosts[i])
	}
	totalMonthly := decimal.Zero
	if !totalYearly.IsZero() {
		totalMonthly = totalYearly.Div(decimal.NewFromInt(12)).Round(2)
	}

	insights := []model.ReviewInsight{}
	costThreshold := percentileThreshold(yearlyCosts)

	for i, g := range groups {
		insights = append(insights, s.groupInsights(g, yearlyCosts[i], costThreshold, today, len(groups))...)
	}
	insights = append(insights, s.duplicateInsights(groups, yearlyCosts)...)

	report := model.ReviewReport{
		TotalMonthlyCost:  totalMonthly,
		TotalYearlyCost:   totalYearly,
		SubscriptionCount: len(groups),
		Insights:          insights,
		Summary: fmt.Sprintf("%d active subscriptions costing $%s/month ($%s/year); %d insights.",
			len(groups), totalMonthly.StringFixed(2), totalYearly.StringFixed(2), len(insights)),
	}

	if s.alertService != nil {
		alertID, err := s.alertService.RecordReview(ctx, report.Summary, map[string]any{
			"subscription_count": report.SubscriptionCount,
			"total_yearly_cost":  report.TotalYearlyCost.InexactFloat64(),
			"insight_count":      len(report.Insights),
		})
		if err != nil {
			log.Printf("failed to persist subscription review alert: %v", err)
		} else {
			report.AlertID = alertID
		}
	}
	return report, nil
}

// groupInsights derives the per-group findings: unused, price_increase,
// high_cost, and annual_upcoming.
func (s *ReviewService) groupInsights(g model.RecurringGroup, cost, costThreshold decimal.Decimal, today time.Time, groupCount int) []model.ReviewInsight {
	var insights []model.ReviewInsight

	cycleDays := 365 / g.Frequency.YearlyOccurrences()
	if g.LastSeenDate != nil {
		staleAfter := g.LastSeenDate.AddDate(0, 0, 2*cycleDays)
		if today.After(staleAfter) {
			insights = append(insights, model.ReviewInsight{
				Type:             model.InsightUnused,
				RecurringGroupID: g.ID,
				GroupName:        g.Name,
				Detail: fmt.Sprintf("No charge from %s since %s, more than two %s cycles ago.",
					g.Name, g.LastSeenDate.Format("2006-01-02"), g.Frequency),
				YearlyCost: cost,
			})
		}
	}

	if insight, ok := s.priceIncreaseInsight(g, cost); ok {
		insights = append(insights, insight)
	}

	// A percentile needs a population; tiny sets would flag everything.
	if groupCount >= 3 && !costThreshold.IsZero() && cost.GreaterThanOrEqual(costThreshold) {
		insights = append(insights, model.ReviewInsight{
			Type:             model.InsightHighCost,
			RecurringGroupID: g.ID,
			GroupName:        g.Name,
			Detail: fmt.Sprintf("%s costs $%s/year, in the top fifth of your subscriptions.",
				g.Name, cost.StringFixed(2)),
			YearlyCost: cost,
		})
	}

	if g.Frequency == model.FrequencyYearly && g.NextExpectedDate != nil {
		due := truncateToDay(*g.NextExpectedDate)
		if !due.Before(today) && !due.After(today.AddDate(0, 0, annualUpcomingWindowDays)) {
			insights = append(insights, model.ReviewInsight{
				Type:             model.InsightAnnualUpcoming,
				RecurringGroupID: g.ID,
				GroupName:        g.Name,
				Detail: fmt.Sprintf("%s renews on %s for $%s.",
					g.Name, due.Format("2006-01-02"), cost.StringFixed(2)),
				YearlyCost: cost,
			})
		}
	}
	return insights
}

func (s *ReviewService) priceIncreaseInsight(g model.RecurringGroup, cost decimal.Decimal) (model.ReviewInsight, bool) {
	if g.ExpectedAmount == nil || g.ExpectedAmount.IsZero() {
		return model.ReviewInsight{}, false
	}
	members, err := s.transactionRepo.ListByGroup(g.ID)
	if err != nil || len(members) == 0 {
		return model.ReviewInsight{}, false
	}

	latest := members[0]
	for _, tx := range members[1:] {
		if tx.Date.After(latest.Date) {
			latest = tx
		}
	}

	variance := defaultAmountVariance
	if g.AmountVariance != nil {
		variance = *g.AmountVariance
	}
	limit := g.ExpectedAmount.Mul(decimal.NewFromInt(100).Add(variance)).Div(decimal.NewFromInt(100))
	observed := latest.Amount.Abs()
	if !observed.GreaterThan(limit) {
		return model.ReviewInsight{}, false
	}

	return model.ReviewInsight{
		Type:             model.InsightPriceIncrease,
		RecurringGroupID: g.ID,
		GroupName:        g.Name,
		Detail: fmt.Sprintf("Latest %s charge was $%s, above the expected $%s.",
			g.Name, observed.StringFixed(2), g.ExpectedAmount.StringFixed(2)),
		YearlyCost: cost,
	}, true
}

// duplicateInsights flags pairs of active groups whose merchant patterns
// score as the same merchant and whose amounts are within tolerance.
func (s *ReviewService) duplicateInsights(groups []model.RecurringGroup, costs []decimal.Decimal) []model.ReviewInsight {
	var insights []model.ReviewInsight
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			a, b := groups[i], groups[j]
			if s.similarity.Score(a.MerchantPattern, b.MerchantPattern) < 0.8 {
				continue
			}
			if !amountsComparable(a.ExpectedAmount, b.ExpectedAmount) {
				continue
			}
			insights = append(insights, model.ReviewInsight{
				Type:             model.InsightDuplicate,
				RecurringGroupID: b.ID,
				GroupName:        b.Name,
				Detail:           fmt.Sprintf("%s looks like a duplicate of %s.", b.Name, a.Name),
				YearlyCost:       costs[j],
			})
		}
	}
	return insights
}

func amountsComparable(a, b *decimal.Decimal) bool {
	if a == nil || b == nil || a.IsZero() || b.IsZero() {
		return false
	}
	larger, smaller := a.Abs(), b.Abs()
	if smaller.GreaterThan(larger) {
		larger, smaller = smaller, larger
	}
	diff, _ := larger.Sub(smaller).Div(larger).Float64()
	return diff <= duplicateAmountTolerance
}

func yearlyCost(g model.RecurringGroup) decimal.Decimal {
	if g.ExpectedAmount == nil {
		return decimal.Zero
	}
	occurrences := decimal.NewFromInt(int64(g.Frequency.YearlyOccurrences()))
	return g.ExpectedAmount.Abs().Mul(occurrences).Round(2)
}

// percentileThreshold returns the yearly cost value at the high-cost
// percentile, ignoring zero-cost groups.
func percentileThreshold(costs []decimal.Decimal) decimal.Decimal {
	nonzero := make([]decimal.Decimal, 0, len(costs))
	for _, c := range costs {
		if !c.IsZero() {
			nonzero = append(nonzero, c)
		}
	}
	if len(nonzero) == 0 {
		return decimal.Zero
	}
	sort.Slice(nonzero, func(a, b int) bool { return nonzero[a].LessThan(nonzero[b]) })

	idx := int(highCostPercentile * float64(len(nonzero)))
	if idx >= len(nonzero) {
		idx = len(nonzero) - 1
	}
	return nonzero[idx]
}
