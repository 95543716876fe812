package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/spendah/spendah-backend/internal/api/request"
	"github.com/spendah/spendah-backend/internal/model"
	"github.com/spendah/spendah-backend/internal/repository"
	"github.com/spendah/spendah-backend/internal/testutil"
)

func daysAgo(n int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -n).Truncate(24 * time.Hour)
}

// TestAlertService_EvaluateTransaction_LargePurchase tests the large
// purchase rule against the category historical average.
//
// WHY: The relative trigger (multiplier x category average) is the core of
// the rule. With an average of $100 and a 3x multiplier, $600 must alert
// and $250 must not.
func TestAlertService_EvaluateTransaction_LargePurchase(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*repository.AlertRepository, func(amount string) model.Transaction) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAlertService(t, db)
		alertRepo := repository.NewAlertRepository(db)

		account := testutil.NewAccount().Build(t, db)

		// Category history averaging $100 over the past year.
		categoryID := testutil.MakeID()
		for i, amount := range []string{"-80.00", "-100.00", "-120.00"} {
			testutil.NewTransaction(account.ID).
				WithDate(daysAgo(30 + i*30)).
				WithAmount(amount).
				WithDescription("GROCERY STORE").
				WithCategory(categoryID).
				Build(t, db)
		}

		evaluate := func(amount string) model.Transaction {
			tx := testutil.NewTransaction(account.ID).
				WithDate(daysAgo(1)).
				WithAmount(amount).
				WithDescription("ELECTRONICS STORE").
				WithCategory(categoryID).
				Build(t, db)
			if err := svc.EvaluateTransaction(ctx, tx); err != nil {
				t.Fatalf("EvaluateTransaction returned unexpected error: %v", err)
			}
			return tx
		}
		return alertRepo, evaluate
	}

	t.Run("600 against a 100 average with 3x multiplier alerts", func(t *testing.T) {
		alertRepo, evaluate := setup(t)
		tx := evaluate("-600.00")

		alerts, err := alertRepo.List(repository.AlertFilter{Type: string(model.AlertLargePurchase)})
		if err != nil {
			t.Fatalf("List returned unexpected error: %v", err)
		}
		if len(alerts) != 1 {
			t.Fatalf("Expected 1 large purchase alert, got %d", len(alerts))
		}
		if alerts[0].TransactionID == nil || *alerts[0].TransactionID != tx.ID {
			t.Error("Alert does not reference the triggering transaction")
		}
		// 600 is above the 300 trigger but not strictly above 2x the trigger.
		if alerts[0].Severity != model.SeverityWarning {
			t.Errorf("Expected warning severity, got %s", alerts[0].Severity)
		}
	})

	t.Run("601 is strictly above twice the trigger and escalates", func(t *testing.T) {
		alertRepo, evaluate := setup(t)
		evaluate("-601.00")

		alerts, err := alertRepo.List(repository.AlertFilter{Type: string(model.AlertLargePurchase)})
		if err != nil {
			t.Fatalf("List returned unexpected error: %v", err)
		}
		if len(alerts) != 1 {
			t.Fatalf("Expected 1 large purchase alert, got %d", len(alerts))
		}
		if alerts[0].Severity != model.SeverityAttention {
			t.Errorf("Expected attention severity, got %s", alerts[0].Severity)
		}
	})

	t.Run("250 stays below the trigger", func(t *testing.T) {
		alertRepo, evaluate := setup(t)
		evaluate("-250.00")

		alerts, err := alertRepo.List(repository.AlertFilter{Type: string(model.AlertLargePurchase)})
		if err != nil {
			t.Fatalf("List returned unexpected error: %v", err)
		}
		if len(alerts) != 0 {
			t.Errorf("Expected no large purchase alert, got %d", len(alerts))
		}
	})

	t.Run("absolute threshold applies when higher than the relative trigger", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAlertService(t, db)
		alertRepo := repository.NewAlertRepository(db)
		account := testutil.NewAccount().Build(t, db)

		threshold := 500.0
		if _, err := svc.UpdateSettings(ctx, request.UpdateAlertSettingsRequest{
			LargePurchaseThreshold: &threshold,
		}); err != nil {
			t.Fatalf("UpdateSettings returned unexpected error: %v", err)
		}

		// Merchant seen before so unusual_merchant stays out of the way.
		testutil.NewTransaction(account.ID).
			WithDate(daysAgo(40)).
			WithAmount("-100.00").
			WithDescription("APPLIANCE OUTLET").
			Build(t, db)
		tx := testutil.NewTransaction(account.ID).
			WithDate(daysAgo(1)).
			WithAmount("-650.00").
			WithDescription("APPLIANCE OUTLET").
			Build(t, db)

		if err := svc.EvaluateTransaction(ctx, tx); err != nil {
			t.Fatalf("EvaluateTransaction returned unexpected error: %v", err)
		}

		alerts, err := alertRepo.List(repository.AlertFilter{Type: string(model.AlertLargePurchase)})
		if err != nil {
			t.Fatalf("List returned unexpected error: %v", err)
		}
		if len(alerts) != 1 {
			t.Errorf("Expected 1 alert from the absolute threshold, got %d", len(alerts))
		}
	})
}

// TestAlertService_EvaluateTransaction_Dedup tests alert idempotency.
//
// WHY: Import retries and scheduler overlap re-evaluate the same ledger;
// re-running the rules over unchanged data must not duplicate alerts.
func TestAlertService_EvaluateTransaction_Dedup(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestAlertService(t, db)
	alertRepo := repository.NewAlertRepository(db)

	account := testutil.NewAccount().Build(t, db)

	// First-ever merchant above the default $200 unusual threshold.
	tx := testutil.NewTransaction(account.ID).
		WithDate(daysAgo(1)).
		WithAmount("-350.00").
		WithDescription("JEWELRY BOUTIQUE").
		Build(t, db)

	for i := 0; i < 3; i++ {
		if err := svc.EvaluateTransaction(ctx, tx); err != nil {
			t.Fatalf("EvaluateTransaction pass %d returned unexpected error: %v", i+1, err)
		}
	}

	alerts, err := alertRepo.List(repository.AlertFilter{Type: string(model.AlertUnusualMerchant)})
	if err != nil {
		t.Fatalf("List returned unexpected error: %v", err)
	}
	if len(alerts) != 1 {
		t.Errorf("Expected exactly 1 alert after repeated evaluation, got %d", len(alerts))
	}
}

// TestAlertService_EvaluateTransaction_UnusualMerchant tests the first-seen
// merchant rule.
func TestAlertService_EvaluateTransaction_UnusualMerchant(t *testing.T) {
	ctx := context.Background()

	t.Run("known merchant does not alert", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAlertService(t, db)
		alertRepo := repository.NewAlertRepository(db)
		account := testutil.NewAccount().Build(t, db)

		testutil.NewTransaction(account.ID).
			WithDate(daysAgo(60)).
			WithAmount("-300.00").
			WithDescription("FURNITURE WAREHOUSE").
			Build(t, db)
		tx := testutil.NewTransaction(account.ID).
			WithDate(daysAgo(1)).
			WithAmount("-400.00").
			WithDescription("FURNITURE WAREHOUSE").
			Build(t, db)

		if err := svc.EvaluateTransaction(ctx, tx); err != nil {
			t.Fatalf("EvaluateTransaction returned unexpected error: %v", err)
		}

		alerts, err := alertRepo.List(repository.AlertFilter{Type: string(model.AlertUnusualMerchant)})
		if err != nil {
			t.Fatalf("List returned unexpected error: %v", err)
		}
		if len(alerts) != 0 {
			t.Errorf("Expected no unusual merchant alert for a known merchant, got %d", len(alerts))
		}
	})

	t.Run("small first charge does not alert", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAlertService(t, db)
		alertRepo := repository.NewAlertRepository(db)
		account := testutil.NewAccount().Build(t, db)

		tx := testutil.NewTransaction(account.ID).
			WithDate(daysAgo(1)).
			WithAmount("-12.00").
			WithDescription("NEW COFFEE SHOP").
			Build(t, db)

		if err := svc.EvaluateTransaction(ctx, tx); err != nil {
			t.Fatalf("EvaluateTransaction returned unexpected error: %v", err)
		}

		alerts, err := alertRepo.List(repository.AlertFilter{Type: string(model.AlertUnusualMerchant)})
		if err != nil {
			t.Fatalf("List returned unexpected error: %v", err)
		}
		if len(alerts) != 0 {
			t.Errorf("Expected no alert below the threshold, got %d", len(alerts))
		}
	})
}

// TestAlertService_EvaluateTransaction_PriceIncrease tests the recurring
// price deviation rule.
func TestAlertService_EvaluateTransaction_PriceIncrease(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*repository.AlertRepository, func(amount string), model.RecurringGroup) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAlertService(t, db)
		alertRepo := repository.NewAlertRepository(db)
		account := testutil.NewAccount().Build(t, db)

		group := testutil.NewRecurringGroup().
			WithName("Netflix").
			WithMerchantPattern("NETFLIX").
			WithExpectedAmount("15.99").
			WithAmountVariance("15").
			Build(t, db)

		// Prior occurrence so the merchant is not first-seen.
		testutil.NewTransaction(account.ID).
			WithDate(daysAgo(31)).
			WithAmount("-15.99").
			WithDescription("NETFLIX").
			WithGroup(group.ID).
			Build(t, db)

		evaluate := func(amount string) {
			tx := testutil.NewTransaction(account.ID).
				WithDate(daysAgo(1)).
				WithAmount(amount).
				WithDescription("NETFLIX").
				Build(t, db)
			if err := svc.EvaluateTransaction(ctx, tx); err != nil {
				t.Fatalf("EvaluateTransaction returned unexpected error: %v", err)
			}
		}
		return alertRepo, evaluate, group
	}

	t.Run("charge beyond the variance tolerance alerts", func(t *testing.T) {
		alertRepo, evaluate, group := setup(t)
		evaluate("-19.99") // limit is 15.99 * 1.15 = 18.39

		alerts, err := alertRepo.List(repository.AlertFilter{Type: string(model.AlertPriceIncrease)})
		if err != nil {
			t.Fatalf("List returned unexpected error: %v", err)
		}
		if len(alerts) != 1 {
			t.Fatalf("Expected 1 price increase alert, got %d", len(alerts))
		}
		if alerts[0].RecurringGroupID == nil || *alerts[0].RecurringGroupID != group.ID {
			t.Error("Alert does not reference the recurring group")
		}
	})

	t.Run("charge within tolerance stays quiet", func(t *testing.T) {
		alertRepo, evaluate, _ := setup(t)
		evaluate("-17.99")

		alerts, err := alertRepo.List(repository.AlertFilter{Type: string(model.AlertPriceIncrease)})
		if err != nil {
			t.Fatalf("List returned unexpected error: %v", err)
		}
		if len(alerts) != 0 {
			t.Errorf("Expected no price increase alert, got %d", len(alerts))
		}
	})
}

// TestAlertService_EvaluateTransaction_Gate tests the evaluation gate.
func TestAlertService_EvaluateTransaction_Gate(t *testing.T) {
	ctx := context.Background()

	t.Run("income rows never alert", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAlertService(t, db)
		alertRepo := repository.NewAlertRepository(db)
		account := testutil.NewAccount().Build(t, db)

		tx := testutil.NewTransaction(account.ID).
			WithDate(daysAgo(1)).
			WithAmount("5000.00").
			WithDescription("BRAND NEW EMPLOYER PAYROLL").
			Build(t, db)

		if err := svc.EvaluateTransaction(ctx, tx); err != nil {
			t.Fatalf("EvaluateTransaction returned unexpected error: %v", err)
		}

		count, err := alertRepo.Count(repository.AlertFilter{})
		if err != nil {
			t.Fatalf("Count returned unexpected error: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected no alerts for income, got %d", count)
		}
	})

	t.Run("disabled settings suppress everything", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAlertService(t, db)
		alertRepo := repository.NewAlertRepository(db)
		account := testutil.NewAccount().Build(t, db)

		enabled := false
		if _, err := svc.UpdateSettings(ctx, request.UpdateAlertSettingsRequest{AlertsEnabled: &enabled}); err != nil {
			t.Fatalf("UpdateSettings returned unexpected error: %v", err)
		}

		tx := testutil.NewTransaction(account.ID).
			WithDate(daysAgo(1)).
			WithAmount("-999.00").
			WithDescription("BRAND NEW MERCHANT").
			Build(t, db)

		if err := svc.EvaluateTransaction(ctx, tx); err != nil {
			t.Fatalf("EvaluateTransaction returned unexpected error: %v", err)
		}

		count, err := alertRepo.Count(repository.AlertFilter{})
		if err != nil {
			t.Fatalf("Count returned unexpected error: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected no alerts when disabled, got %d", count)
		}
	})
}

// TestAlertService_AnnualChargeSweep tests the yearly warning sweep.
//
// WHY: The sweep runs daily; it must warn once per upcoming yearly charge
// inside the window and stay silent for monthly groups and re-runs.
func TestAlertService_AnnualChargeSweep(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestAlertService(t, db)
	alertRepo := repository.NewAlertRepository(db)

	due := time.Now().UTC().AddDate(0, 0, 7)
	testutil.NewRecurringGroup().
		WithName("Domain Renewal").
		WithFrequency(model.FrequencyYearly).
		WithExpectedAmount("89.00").
		WithNextExpected(due).
		Build(t, db)
	// Monthly group inside the window must not produce an annual warning.
	testutil.NewRecurringGroup().
		WithName("Netflix").
		WithFrequency(model.FrequencyMonthly).
		WithExpectedAmount("15.99").
		WithNextExpected(due).
		Build(t, db)
	// Yearly group far outside the window.
	testutil.NewRecurringGroup().
		WithName("Insurance").
		WithFrequency(model.FrequencyYearly).
		WithExpectedAmount("420.00").
		WithNextExpected(time.Now().UTC().AddDate(0, 6, 0)).
		Build(t, db)

	for i := 0; i < 2; i++ {
		if err := svc.AnnualChargeSweep(ctx); err != nil {
			t.Fatalf("AnnualChargeSweep run %d returned unexpected error: %v", i+1, err)
		}
	}

	alerts, err := alertRepo.List(repository.AlertFilter{Type: string(model.AlertAnnualCharge)})
	if err != nil {
		t.Fatalf("List returned unexpected error: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("Expected exactly 1 annual charge alert, got %d", len(alerts))
	}
	if alerts[0].Title != "Annual charge coming up: Domain Renewal" {
		t.Errorf("Unexpected alert title %q", alerts[0].Title)
	}
}

// TestAlertService_Update_DismissIsOneWay tests alert lifecycle state.
func TestAlertService_Update_DismissIsOneWay(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestAlertService(t, db)
	account := testutil.NewAccount().Build(t, db)

	tx := testutil.NewTransaction(account.ID).
		WithDate(daysAgo(1)).
		WithAmount("-350.00").
		WithDescription("JEWELRY BOUTIQUE").
		Build(t, db)
	if err := svc.EvaluateTransaction(ctx, tx); err != nil {
		t.Fatalf("EvaluateTransaction returned unexpected error: %v", err)
	}

	list, err := svc.List(repository.AlertFilter{})
	if err != nil {
		t.Fatalf("List returned unexpected error: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(list.Items))
	}
	id := list.Items[0].ID

	dismissed := true
	updated, err := svc.Update(ctx, id, request.UpdateAlertRequest{IsDismissed: &dismissed})
	if err != nil {
		t.Fatalf("Update returned unexpected error: %v", err)
	}
	if !updated.IsDismissed {
		t.Fatal("Expected alert to be dismissed")
	}

	undo := false
	updated, err = svc.Update(ctx, id, request.UpdateAlertRequest{IsDismissed: &undo})
	if err != nil {
		t.Fatalf("Update returned unexpected error: %v", err)
	}
	if !updated.IsDismissed {
		t.Error("Dismissal must be one-way; un-dismiss was applied")
	}
}
