package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spendah/spendah-backend/internal/api/request"
	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/model"
	"github.com/spendah/spendah-backend/internal/repository"
)

// categoryAverageWindow is how far back the category historical average
// looks when sizing a purchase.
const categoryAverageWindow = 365 * 24 * time.Hour

// evalContext is the shared input to every transaction rule: the
// transaction plus the historical stats and settings the predicates need.
type evalContext struct {
	tx              model.Transaction
	settings        model.AlertSettings
	categoryAverage *decimal.Decimal
	merchantSeen    bool
	group           *model.RecurringGroup
}

// alertDraft is a rule's proposed alert before dedup and persistence.
type alertDraft struct {
	severity    model.Severity
	title       string
	description string
	groupID     *string
	metadata    map[string]any
}

// alertRule is one independent predicate over the evaluation context.
// Rules run in table order; each may emit at most one alert per pass.
type alertRule struct {
	alertType model.AlertType
	evaluate  func(evalContext) (alertDraft, bool)
}

// transactionRules is the ordered rule table applied to each new expense.
var transactionRules = []alertRule{
	{model.AlertPriceIncrease, evaluatePriceIncrease},
	{model.AlertLargePurchase, evaluateLargePurchase},
	{model.AlertUnusualMerchant, evaluateUnusualMerchant},
}

// AlertService evaluates transactions and recurring-group state against
// the configured thresholds, and owns the alert store's CRUD lifecycle.
type AlertService struct {
	alertRepo       *repository.AlertRepository
	settingsRepo    *repository.AlertSettingsRepository
	transactionRepo *repository.TransactionRepository
	recurringRepo   *repository.RecurringRepository
}

// NewAlertService creates a new AlertService with the provided repositories.
func NewAlertService(
	alertRepo *repository.AlertRepository,
	settingsRepo *repository.AlertSettingsRepository,
	transactionRepo *repository.TransactionRepository,
	recurringRepo *repository.RecurringRepository,
) *AlertService {
	return &AlertService{
		alertRepo:       alertRepo,
		settingsRepo:    settingsRepo,
		transactionRepo: transactionRepo,
		recurringRepo:   recurringRepo,
	}
}

// EvaluateTransaction runs the rule table over one transaction. Re-running
// over an unchanged ledger emits nothing: every (type, transaction, group)
// triple is checked against the store first. Income rows are skipped.
func (s *AlertService) EvaluateTransaction(ctx context.Context, tx model.Transaction) error {
	settings, err := s.settingsRepo.GetOrCreate(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFailedToEvaluateAlerts, err)
	}
	if !settings.AlertsEnabled || tx.Amount.Sign() >= 0 {
		return nil
	}

	ec, err := s.buildContext(tx, settings)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFailedToEvaluateAlerts, err)
	}

	for _, rule := range transactionRules {
		draft, hit := rule.evaluate(ec)
		if !hit {
			continue
		}
		exists, err := s.alertRepo.Exists(rule.alertType, &tx.ID, draft.groupID)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrFailedToEvaluateAlerts, err)
		}
		if exists {
			continue
		}
		if err := s.emit(ctx, rule.alertType, draft, &tx.ID); err != nil {
			return err
		}
	}
	return nil
}

// NotifyNewRecurring emits the info alert for a group freshly created from
// detection.
func (s *AlertService) NotifyNewRecurring(ctx context.Context, group model.RecurringGroup) error {
	settings, err := s.settingsRepo.GetOrCreate(ctx)
	if err != nil {
		return err
	}
	if !settings.AlertsEnabled {
		return nil
	}

	exists, err := s.alertRepo.Exists(model.AlertNewRecurring, nil, &group.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	amount := "unknown amount"
	if group.ExpectedAmount != nil {
		amount = "$" + group.ExpectedAmount.StringFixed(2)
	}
	draft := alertDraft{
		severity:    model.SeverityInfo,
		title:       fmt.Sprintf("New recurring charge: %s", group.Name),
		description: fmt.Sprintf("Detected a %s charge of %s from %s.", group.Frequency, amount, group.Name),
		groupID:     &group.ID,
		metadata: map[string]any{
			"frequency": string(group.Frequency),
		},
	}
	return s.emit(ctx, model.AlertNewRecurring, draft, nil)
}

// AnnualChargeSweep warns about yearly groups whose next expected date
// falls inside the configured warning window. Called by the daily
// scheduler and safe to re-run.
func (s *AlertService) AnnualChargeSweep(ctx context.Context) error {
	settings, err := s.settingsRepo.GetOrCreate(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFailedToEvaluateAlerts, err)
	}
	if !settings.AlertsEnabled {
		return nil
	}

	today := truncateToDay(time.Now().UTC())
	cutoff := today.AddDate(0, 0, settings.AnnualChargeWarningDays)
	groups, err := s.recurringRepo.ListActiveDueWithin(today, cutoff)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFailedToEvaluateAlerts, err)
	}

	for _, g := range groups {
		if g.Frequency != model.FrequencyYearly || g.NextExpectedDate == nil {
			continue
		}
		exists, err := s.alertRepo.Exists(model.AlertAnnualCharge, nil, &g.ID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		amount := "unknown amount"
		if g.ExpectedAmount != nil {
			amount = "$" + g.ExpectedAmount.StringFixed(2)
		}
		draft := alertDraft{
			severity: model.SeverityWarning,
			title:    fmt.Sprintf("Annual charge coming up: %s", g.Name),
			description: fmt.Sprintf("%s is expected to charge %s on %s.",
				g.Name, amount, g.NextExpectedDate.Format("2006-01-02")),
			groupID: &g.ID,
			metadata: map[string]any{
				"next_expected_date": g.NextExpectedDate.Format("2006-01-02"),
			},
		}
		if err := s.emit(ctx, model.AlertAnnualCharge, draft, nil); err != nil {
			return err
		}
	}
	return nil
}

// AlertList is the list response: items plus the counters the inbox shows.
type AlertList struct {
	Items       []model.Alert `json:"items"`
	UnreadCount int           `json:"unread_count"`
	Total       int           `json:"total"`
}

// List returns alerts matching the filter with unread and total counts.
func (s *AlertService) List(filter repository.AlertFilter) (AlertList, error) {
	items, err := s.alertRepo.List(filter)
	if err != nil {
		return AlertList{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveAlerts, err)
	}
	unread, err := s.alertRepo.UnreadCount()
	if err != nil {
		return AlertList{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveAlerts, err)
	}
	total, err := s.alertRepo.Count(filter)
	if err != nil {
		return AlertList{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveAlerts, err)
	}
	return AlertList{Items: items, UnreadCount: unread, Total: total}, nil
}

// Update patches alert lifecycle state. Dismissal is one-way: attempts to
// un-dismiss are ignored rather than rejected.
func (s *AlertService) Update(ctx context.Context, id string, req request.UpdateAlertRequest) (model.Alert, error) {
	alert, err := s.alertRepo.GetByID(id)
	if err != nil {
		return model.Alert{}, err
	}

	isDismissed := req.IsDismissed
	if alert.IsDismissed && isDismissed != nil && !*isDismissed {
		isDismissed = nil
	}
	return s.alertRepo.UpdateState(ctx, id, req.IsRead, isDismissed, req.ActionTaken)
}

// MarkAllRead marks every unread alert read and returns the count updated.
func (s *AlertService) MarkAllRead(ctx context.Context) (int, error) {
	return s.alertRepo.MarkAllRead(ctx)
}

// Delete permanently removes an alert.
func (s *AlertService) Delete(ctx context.Context, id string) error {
	return s.alertRepo.Delete(ctx, id)
}

// GetSettings returns the singleton alert settings, creating defaults on
// first access.
func (s *AlertService) GetSettings(ctx context.Context) (model.AlertSettings, error) {
	return s.settingsRepo.GetOrCreate(ctx)
}

// UpdateSettings patches the singleton alert settings.
func (s *AlertService) UpdateSettings(ctx context.Context, req request.UpdateAlertSettingsRequest) (model.AlertSettings, error) {
	settings, err := s.settingsRepo.GetOrCreate(ctx)
	if err != nil {
		return model.AlertSettings{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveSettings, err)
	}

	if req.ClearLargePurchaseThreshold {
		settings.LargePurchaseThreshold = nil
	} else if req.LargePurchaseThreshold != nil {
		threshold := decimalFromFloat(*req.LargePurchaseThreshold)
		settings.LargePurchaseThreshold = &threshold
	}
	if req.LargePurchaseMultiplier != nil {
		settings.LargePurchaseMultiplier = decimalFromFloat(*req.LargePurchaseMultiplier)
	}
	if req.UnusualMerchantThreshold != nil {
		settings.UnusualMerchantThreshold = decimalFromFloat(*req.UnusualMerchantThreshold)
	}
	if req.SubscriptionReviewDays != nil {
		settings.SubscriptionReviewDays = *req.SubscriptionReviewDays
	}
	if req.AnnualChargeWarningDays != nil {
		settings.AnnualChargeWarningDays = *req.AnnualChargeWarningDays
	}
	if req.AlertsEnabled != nil {
		settings.AlertsEnabled = *req.AlertsEnabled
	}

	if err := s.settingsRepo.Update(ctx, &settings); err != nil {
		return model.AlertSettings{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToUpdateSettings, err)
	}
	return settings, nil
}

// RecordReview persists a subscription review summary as an info alert and
// stamps the settings row so the scheduler knows when the next review is due.
func (s *AlertService) RecordReview(ctx context.Context, summary string, metadata map[string]any) (string, error) {
	alert := model.Alert{
		ID:          uuid.NewString(),
		Type:        model.AlertSubscriptionReview,
		Severity:    model.SeverityInfo,
		Title:       "Subscription review",
		Description: summary,
		Metadata:    metadata,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.alertRepo.Insert(ctx, &alert); err != nil {
		return "", err
	}

	settings, err := s.settingsRepo.GetOrCreate(ctx)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	settings.LastSubscriptionReview = &now
	if err := s.settingsRepo.Update(ctx, &settings); err != nil {
		return "", err
	}
	return alert.ID, nil
}

// ReviewDue reports whether the configured review interval has elapsed.
func (s *AlertService) ReviewDue(ctx context.Context) (bool, error) {
	settings, err := s.settingsRepo.GetOrCreate(ctx)
	if err != nil {
		return false, err
	}
	if settings.LastSubscriptionReview == nil {
		return true, nil
	}
	due := settings.LastSubscriptionReview.AddDate(0, 0, settings.SubscriptionReviewDays)
	return !time.Now().UTC().Before(due), nil
}

func (s *AlertService) buildContext(tx model.Transaction, settings model.AlertSettings) (evalContext, error) {
	ec := evalContext{tx: tx, settings: settings}

	if tx.CategoryID != nil {
		avg, err := s.transactionRepo.CategoryAverage(*tx.CategoryID, time.Now().UTC().Add(-categoryAverageWindow), tx.ID)
		if err != nil {
			return evalContext{}, err
		}
		if !avg.IsZero() {
			ec.categoryAverage = &avg
		}
	}

	count, err := s.transactionRepo.CountByMerchant(tx.Merchant(), tx.ID)
	if err != nil {
		return evalContext{}, err
	}
	ec.merchantSeen = count > 0

	if group, found, err := s.recurringRepo.FindActiveByMerchant(tx.Merchant()); err != nil {
		return evalContext{}, err
	} else if found {
		ec.group = &group
	}

	return ec, nil
}

func (s *AlertService) emit(ctx context.Context, alertType model.AlertType, draft alertDraft, transactionID *string) error {
	alert := model.Alert{
		ID:               uuid.NewString(),
		Type:             alertType,
		Severity:         draft.severity,
		Title:            draft.title,
		Description:      draft.description,
		TransactionID:    transactionID,
		RecurringGroupID: draft.groupID,
		Metadata:         draft.metadata,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.alertRepo.Insert(ctx, &alert); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFailedToEvaluateAlerts, err)
	}
	return nil
}

// evaluateLargePurchase fires when the magnitude exceeds the greater of the
// absolute threshold (if set) and multiplier x category average. Attention
// severity strictly above twice the trigger, warning otherwise.
func evaluateLargePurchase(ec evalContext) (alertDraft, bool) {
	amount := ec.tx.Amount.Abs()

	trigger := decimal.Zero
	if ec.settings.LargePurchaseThreshold != nil {
		trigger = *ec.settings.LargePurchaseThreshold
	}
	if ec.categoryAverage != nil {
		relative := ec.categoryAverage.Mul(ec.settings.LargePurchaseMultiplier)
		if relative.GreaterThan(trigger) {
			trigger = relative
		}
	}
	if trigger.IsZero() || !amount.GreaterThan(trigger) {
		return alertDraft{}, false
	}

	severity := model.SeverityWarning
	if amount.GreaterThan(trigger.Mul(decimal.NewFromInt(2))) {
		severity = model.SeverityAttention
	}
	return alertDraft{
		severity: severity,
		title:    fmt.Sprintf("Large purchase: $%s", amount.StringFixed(2)),
		description: fmt.Sprintf("A $%s charge from %s exceeds your large purchase trigger of $%s.",
			amount.StringFixed(2), ec.tx.Merchant(), trigger.StringFixed(2)),
		metadata: map[string]any{
			"amount":  amount.InexactFloat64(),
			"trigger": trigger.InexactFloat64(),
		},
	}, true
}

// evaluatePriceIncrease fires when a transaction matching an active
// recurring group deviates upward from the expected amount beyond the
// group's variance tolerance.
func evaluatePriceIncrease(ec evalContext) (alertDraft, bool) {
	g := ec.group
	if g == nil || g.ExpectedAmount == nil || g.ExpectedAmount.IsZero() {
		return alertDraft{}, false
	}

	variance := defaultAmountVariance
	if g.AmountVariance != nil {
		variance = *g.AmountVariance
	}
	limit := g.ExpectedAmount.Mul(decimal.NewFromInt(100).Add(variance)).Div(decimal.NewFromInt(100))

	amount := ec.tx.Amount.Abs()
	if !amount.GreaterThan(limit) {
		return alertDraft{}, false
	}

	return alertDraft{
		severity: model.SeverityWarning,
		title:    fmt.Sprintf("Price increase: %s", g.Name),
		description: fmt.Sprintf("%s charged $%s, up from the expected $%s.",
			g.Name, amount.StringFixed(2), g.ExpectedAmount.StringFixed(2)),
		groupID: &g.ID,
		metadata: map[string]any{
			"amount":          amount.InexactFloat64(),
			"expected_amount": g.ExpectedAmount.InexactFloat64(),
		},
	}, true
}

// evaluateUnusualMerchant fires on the first-ever charge from a merchant
// when it exceeds the unusual merchant threshold.
func evaluateUnusualMerchant(ec evalContext) (alertDraft, bool) {
	if ec.merchantSeen {
		return alertDraft{}, false
	}
	amount := ec.tx.Amount.Abs()
	if !amount.GreaterThan(ec.settings.UnusualMerchantThreshold) {
		return alertDraft{}, false
	}

	return alertDraft{
		severity: model.SeverityWarning,
		title:    fmt.Sprintf("New merchant: %s", ec.tx.Merchant()),
		description: fmt.Sprintf("First charge from %s for $%s.",
			ec.tx.Merchant(), amount.StringFixed(2)),
		metadata: map[string]any{
			"amount": amount.InexactFloat64(),
		},
	}, true
}
