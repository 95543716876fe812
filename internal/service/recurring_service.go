package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spendah/spendah-backend/internal/api/request"
	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/model"
	"github.com/spendah/spendah-backend/internal/repository"
)

// defaultAmountVariance is the percent tolerance applied to groups created
// without an explicit variance.
var defaultAmountVariance = decimal.NewFromInt(15)

// RecurringService owns the authoritative set of recurring groups:
// creation, updates, deletion with unlink, manual mark/unmark, and the
// upcoming-renewals projection.
type RecurringService struct {
	recurringRepo   *repository.RecurringRepository
	transactionRepo *repository.TransactionRepository
	alertService    *AlertService
	locks           *AccountLocks
}

// NewRecurringService creates a new RecurringService with the provided
// dependencies. alertService may be nil.
func NewRecurringService(
	recurringRepo *repository.RecurringRepository,
	transactionRepo *repository.TransactionRepository,
	alertService *AlertService,
	locks *AccountLocks,
) *RecurringService {
	return &RecurringService{
		recurringRepo:   recurringRepo,
		transactionRepo: transactionRepo,
		alertService:    alertService,
		locks:           locks,
	}
}

// List returns recurring groups, active only unless includeInactive is set.
func (s *RecurringService) List(includeInactive bool) ([]model.RecurringGroup, error) {
	return s.recurringRepo.List(includeInactive)
}

// Get returns a single recurring group.
func (s *RecurringService) Get(id string) (model.RecurringGroup, error) {
	return s.recurringRepo.GetByID(id)
}

// Transactions returns the member transactions of a group.
func (s *RecurringService) Transactions(groupID string) ([]model.Transaction, error) {
	if _, err := s.recurringRepo.GetByID(groupID); err != nil {
		return nil, err
	}
	return s.transactionRepo.ListByGroup(groupID)
}

// Create builds a group from an explicit user request.
func (s *RecurringService) Create(ctx context.Context, req request.CreateRecurringGroupRequest) (model.RecurringGroup, error) {
	group := model.RecurringGroup{
		ID:              uuid.NewString(),
		Name:            req.Name,
		MerchantPattern: req.MerchantPattern,
		Frequency:       model.Frequency(req.Frequency),
		CategoryID:      req.CategoryID,
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
	}
	if req.ExpectedAmount != nil {
		amount := decimalFromFloat(*req.ExpectedAmount)
		group.ExpectedAmount = &amount
	}
	variance := defaultAmountVariance
	if req.AmountVariance != nil {
		variance = decimalFromFloat(*req.AmountVariance)
	}
	group.AmountVariance = &variance

	if err := s.recurringRepo.Insert(ctx, &group); err != nil {
		return model.RecurringGroup{}, err
	}
	return s.recurringRepo.GetByID(group.ID)
}

// CreateFromDetection materializes a detection result: creates the group,
// links its transactions, derives last-seen from the members, and emits a
// new_recurring alert. Called by the detector under the account lock.
func (s *RecurringService) CreateFromDetection(ctx context.Context, result model.DetectionResult) (model.RecurringGroup, error) {
	average := result.AverageAmount
	variance := defaultAmountVariance
	group := model.RecurringGroup{
		ID:              uuid.NewString(),
		Name:            result.SuggestedName,
		MerchantPattern: result.MerchantPattern,
		ExpectedAmount:  &average,
		AmountVariance:  &variance,
		Frequency:       result.Frequency,
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.recurringRepo.Insert(ctx, &group); err != nil {
		return model.RecurringGroup{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToApplyDetection, err)
	}
	if err := s.transactionRepo.LinkToGroup(ctx, result.TransactionIDs, group.ID); err != nil {
		return model.RecurringGroup{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToApplyDetection, err)
	}

	if err := s.recomputeSchedule(ctx, group.ID); err != nil {
		return model.RecurringGroup{}, err
	}
	created, err := s.recurringRepo.GetByID(group.ID)
	if err != nil {
		return model.RecurringGroup{}, err
	}

	if s.alertService != nil {
		if err := s.alertService.NotifyNewRecurring(ctx, created); err != nil {
			log.Printf("failed to emit new_recurring alert for group %s: %v", created.ID, err)
		}
	}
	return created, nil
}

// Update patches a group. next_expected_date is recomputed whenever the
// frequency changes, since it is a function of last-seen and frequency.
func (s *RecurringService) Update(ctx context.Context, id string, req request.UpdateRecurringGroupRequest) (model.RecurringGroup, error) {
	group, err := s.recurringRepo.GetByID(id)
	if err != nil {
		return model.RecurringGroup{}, err
	}

	if req.Name != nil {
		group.Name = *req.Name
	}
	if req.MerchantPattern != nil {
		group.MerchantPattern = *req.MerchantPattern
	}
	if req.ExpectedAmount != nil {
		amount := decimalFromFloat(*req.ExpectedAmount)
		group.ExpectedAmount = &amount
	}
	if req.AmountVariance != nil {
		variance := decimalFromFloat(*req.AmountVariance)
		group.AmountVariance = &variance
	}
	if req.Frequency != nil {
		group.Frequency = model.Frequency(*req.Frequency)
	}
	if req.CategoryID != nil {
		if *req.CategoryID == "" {
			group.CategoryID = nil
		} else {
			group.CategoryID = req.CategoryID
		}
	}
	if req.IsActive != nil {
		group.IsActive = *req.IsActive
	}

	if group.LastSeenDate != nil {
		next := group.Frequency.NextExpected(*group.LastSeenDate)
		group.NextExpectedDate = &next
	}

	if err := s.recurringRepo.Update(ctx, &group); err != nil {
		return model.RecurringGroup{}, err
	}
	return s.recurringRepo.GetByID(id)
}

// Delete removes a group after unlinking its member transactions.
func (s *RecurringService) Delete(ctx context.Context, id string) error {
	if _, err := s.recurringRepo.GetByID(id); err != nil {
		return err
	}
	if err := s.transactionRepo.UnlinkGroup(ctx, id); err != nil {
		return err
	}
	return s.recurringRepo.Delete(ctx, id)
}

// Mark links a transaction into a group, creating the group inline when
// the request says so. The group must be live and active.
func (s *RecurringService) Mark(ctx context.Context, transactionID string, req request.MarkRecurringRequest) (model.RecurringGroup, error) {
	tx, err := s.transactionRepo.GetByID(transactionID)
	if err != nil {
		return model.RecurringGroup{}, err
	}

	s.locks.Lock(tx.AccountID)
	defer s.locks.Unlock(tx.AccountID)

	var group model.RecurringGroup
	if req.CreateNew != nil {
		create := *req.CreateNew
		if create.Name == "" {
			create.Name = tx.Merchant()
		}
		if create.MerchantPattern == "" {
			create.MerchantPattern = tx.Merchant()
		}
		if create.Frequency == "" {
			create.Frequency = string(model.FrequencyMonthly)
		}
		group, err = s.Create(ctx, create)
		if err != nil {
			return model.RecurringGroup{}, err
		}
	} else {
		group, err = s.recurringRepo.GetByID(*req.GroupID)
		if err != nil {
			return model.RecurringGroup{}, err
		}
		if !group.IsActive {
			return model.RecurringGroup{}, apperrors.ErrInvalidGroupState
		}
	}

	if err := s.transactionRepo.LinkToGroup(ctx, []string{transactionID}, group.ID); err != nil {
		return model.RecurringGroup{}, err
	}

	// last_seen only advances; an older transaction never rewinds the schedule.
	if group.LastSeenDate == nil || tx.Date.After(*group.LastSeenDate) {
		lastSeen := tx.Date
		next := group.Frequency.NextExpected(lastSeen)
		group.LastSeenDate = &lastSeen
		group.NextExpectedDate = &next
		if err := s.recurringRepo.Update(ctx, &group); err != nil {
			return model.RecurringGroup{}, err
		}
	}
	return s.recurringRepo.GetByID(group.ID)
}

// Unmark removes a transaction from its group.
func (s *RecurringService) Unmark(ctx context.Context, transactionID string) error {
	tx, err := s.transactionRepo.GetByID(transactionID)
	if err != nil {
		return err
	}

	s.locks.Lock(tx.AccountID)
	defer s.locks.Unlock(tx.AccountID)

	return s.transactionRepo.UnlinkTransaction(ctx, transactionID)
}

// UpcomingRenewals projects the next expected occurrence of every active
// group due within the window, sorted soonest first, with the window sum.
func (s *RecurringService) UpcomingRenewals(days int) (model.RenewalProjection, error) {
	if days <= 0 {
		days = 30
	}
	today := truncateToDay(time.Now().UTC())
	cutoff := today.AddDate(0, 0, days)

	groups, err := s.recurringRepo.ListActiveDueWithin(today, cutoff)
	if err != nil {
		return model.RenewalProjection{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToProjectRenewals, err)
	}

	projection := model.RenewalProjection{Renewals: []model.Renewal{}, TotalUpcoming: decimal.Zero}
	for _, g := range groups {
		if g.NextExpectedDate == nil {
			continue
		}
		amount := decimal.Zero
		if g.ExpectedAmount != nil {
			amount = *g.ExpectedAmount
		}
		daysUntil := int(truncateToDay(*g.NextExpectedDate).Sub(today).Hours() / 24)
		projection.Renewals = append(projection.Renewals, model.Renewal{
			RecurringGroupID: g.ID,
			Merchant:         g.Name,
			Amount:           amount,
			Frequency:        g.Frequency,
			NextDate:         *g.NextExpectedDate,
			DaysUntil:        daysUntil,
		})
		projection.TotalUpcoming = projection.TotalUpcoming.Add(amount)
	}
	return projection, nil
}

// recomputeSchedule rederives last-seen and next-expected from the group's
// current members.
func (s *RecurringService) recomputeSchedule(ctx context.Context, groupID string) error {
	group, err := s.recurringRepo.GetByID(groupID)
	if err != nil {
		return err
	}
	members, err := s.transactionRepo.ListByGroup(groupID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}

	latest := members[0].Date
	for _, tx := range members[1:] {
		if tx.Date.After(latest) {
			latest = tx.Date
		}
	}
	next := group.Frequency.NextExpected(latest)
	group.LastSeenDate = &latest
	group.NextExpectedDate = &next
	return s.recurringRepo.Update(ctx, &group)
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
