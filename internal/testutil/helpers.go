package testutil

import (
	"database/sql"
	"testing"

	"github.com/spendah/spendah-backend/internal/repository"
	"github.com/spendah/spendah-backend/internal/service"
)

func NewTestAlertService(t *testing.T, db *sql.DB) *service.AlertService {
	t.Helper()

	return service.NewAlertService(
		repository.NewAlertRepository(db),
		repository.NewAlertSettingsRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewRecurringRepository(db),
	)
}

func NewTestRecurringService(t *testing.T, db *sql.DB) *service.RecurringService {
	t.Helper()

	return service.NewRecurringService(
		repository.NewRecurringRepository(db),
		repository.NewTransactionRepository(db),
		NewTestAlertService(t, db),
		service.NewAccountLocks(),
	)
}

func NewTestRecurringDetector(t *testing.T, db *sql.DB) *service.RecurringDetector {
	t.Helper()

	transactionRepo := repository.NewTransactionRepository(db)
	recurringRepo := repository.NewRecurringRepository(db)
	locks := service.NewAccountLocks()
	recurring := service.NewRecurringService(
		recurringRepo,
		transactionRepo,
		NewTestAlertService(t, db),
		locks,
	)

	return service.NewRecurringDetector(
		transactionRepo,
		recurringRepo,
		recurring,
		nil,
		nil,
		nil,
		locks,
	)
}

func NewTestReviewService(t *testing.T, db *sql.DB) *service.ReviewService {
	t.Helper()

	return service.NewReviewService(
		repository.NewRecurringRepository(db),
		repository.NewTransactionRepository(db),
		NewTestAlertService(t, db),
		nil,
	)
}
