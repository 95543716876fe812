package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spendah/spendah-backend/internal/api/request"
	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/model"
	"github.com/spendah/spendah-backend/internal/repository"
	"github.com/spendah/spendah-backend/internal/testutil"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

// TestRecurringService_Mark tests manually linking a transaction into a
// recurring group.
//
// WHY: Detection never catches everything, so users correct the ledger by
// hand. Marking must advance the group schedule forward only and must
// refuse groups the user has deactivated.
func TestRecurringService_Mark(t *testing.T) {
	t.Run("links into an existing group and advances the schedule", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestRecurringService(t, db)
		account := testutil.NewAccount().Build(t, db)
		group := testutil.NewRecurringGroup().
			WithFrequency(model.FrequencyMonthly).
			WithLastSeen(daysAgo(40)).
			Build(t, db)
		tx := testutil.NewTransaction(account.ID).
			WithDate(daysAgo(10)).
			WithAmount("-15.99").
			Build(t, db)

		updated, err := svc.Mark(context.Background(), tx.ID, request.MarkRecurringRequest{GroupID: &group.ID})
		if err != nil {
			t.Fatalf("Mark() error = %v", err)
		}

		got, err := repository.NewTransactionRepository(db).GetByID(tx.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if !got.IsRecurring || got.RecurringGroupID == nil || *got.RecurringGroupID != group.ID {
			t.Errorf("transaction not linked: recurring=%v group=%v", got.IsRecurring, got.RecurringGroupID)
		}

		if updated.LastSeenDate == nil || !updated.LastSeenDate.Equal(tx.Date) {
			t.Errorf("LastSeenDate = %v, want %v", updated.LastSeenDate, tx.Date)
		}
		wantNext := model.FrequencyMonthly.NextExpected(tx.Date)
		if updated.NextExpectedDate == nil || !updated.NextExpectedDate.Equal(wantNext) {
			t.Errorf("NextExpectedDate = %v, want %v", updated.NextExpectedDate, wantNext)
		}
	})

	t.Run("an older transaction does not rewind the schedule", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestRecurringService(t, db)
		account := testutil.NewAccount().Build(t, db)
		lastSeen := daysAgo(5)
		group := testutil.NewRecurringGroup().
			WithLastSeen(lastSeen).
			WithNextExpected(model.FrequencyMonthly.NextExpected(lastSeen)).
			Build(t, db)
		old := testutil.NewTransaction(account.ID).
			WithDate(daysAgo(60)).
			WithAmount("-15.99").
			Build(t, db)

		updated, err := svc.Mark(context.Background(), old.ID, request.MarkRecurringRequest{GroupID: &group.ID})
		if err != nil {
			t.Fatalf("Mark() error = %v", err)
		}
		if updated.LastSeenDate == nil || !updated.LastSeenDate.Equal(lastSeen) {
			t.Errorf("LastSeenDate = %v, want unchanged %v", updated.LastSeenDate, lastSeen)
		}
	})

	t.Run("creates a group inline with defaults from the transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestRecurringService(t, db)
		account := testutil.NewAccount().Build(t, db)
		tx := testutil.NewTransaction(account.ID).
			WithDescription("HELLOFRESH NL").
			WithAmount("-64.95").
			Build(t, db)

		group, err := svc.Mark(context.Background(), tx.ID, request.MarkRecurringRequest{
			CreateNew: &request.CreateRecurringGroupRequest{},
		})
		if err != nil {
			t.Fatalf("Mark() error = %v", err)
		}
		if group.Name != "HELLOFRESH NL" {
			t.Errorf("Name = %q, want the transaction merchant", group.Name)
		}
		if group.MerchantPattern != "HELLOFRESH NL" {
			t.Errorf("MerchantPattern = %q, want the transaction merchant", group.MerchantPattern)
		}
		if group.Frequency != model.FrequencyMonthly {
			t.Errorf("Frequency = %q, want monthly default", group.Frequency)
		}
		if !group.IsActive {
			t.Error("inline group should be active")
		}
	})

	t.Run("rejects an inactive group", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestRecurringService(t, db)
		account := testutil.NewAccount().Build(t, db)
		group := testutil.NewRecurringGroup().Inactive().Build(t, db)
		tx := testutil.NewTransaction(account.ID).Build(t, db)

		_, err := svc.Mark(context.Background(), tx.ID, request.MarkRecurringRequest{GroupID: &group.ID})
		if !errors.Is(err, apperrors.ErrInvalidGroupState) {
			t.Errorf("Mark() error = %v, want ErrInvalidGroupState", err)
		}
	})
}

// TestRecurringService_Unmark tests removing a transaction from its group.
//
// WHY: Unmark must clear the link without touching sibling members or the
// group itself.
func TestRecurringService_Unmark(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestRecurringService(t, db)
	account := testutil.NewAccount().Build(t, db)
	group := testutil.NewRecurringGroup().Build(t, db)
	linked := testutil.NewTransaction(account.ID).
		WithDate(daysAgo(30)).
		WithGroup(group.ID).
		Build(t, db)
	sibling := testutil.NewTransaction(account.ID).
		WithDate(daysAgo(60)).
		WithGroup(group.ID).
		Build(t, db)

	if err := svc.Unmark(context.Background(), linked.ID); err != nil {
		t.Fatalf("Unmark() error = %v", err)
	}

	repo := repository.NewTransactionRepository(db)
	got, err := repo.GetByID(linked.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.IsRecurring || got.RecurringGroupID != nil {
		t.Errorf("transaction still linked: recurring=%v group=%v", got.IsRecurring, got.RecurringGroupID)
	}

	other, err := repo.GetByID(sibling.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !other.IsRecurring {
		t.Error("sibling transaction lost its link")
	}
}

// TestRecurringService_Update tests patching a group.
//
// WHY: next_expected_date is derived from last-seen and frequency, so a
// frequency change must recompute it or renewal projections drift.
func TestRecurringService_Update(t *testing.T) {
	t.Run("frequency change recomputes next expected date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestRecurringService(t, db)
		lastSeen := daysAgo(3)
		group := testutil.NewRecurringGroup().
			WithFrequency(model.FrequencyMonthly).
			WithLastSeen(lastSeen).
			WithNextExpected(model.FrequencyMonthly.NextExpected(lastSeen)).
			Build(t, db)

		updated, err := svc.Update(context.Background(), group.ID, request.UpdateRecurringGroupRequest{
			Frequency: strPtr(string(model.FrequencyYearly)),
		})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		wantNext := model.FrequencyYearly.NextExpected(lastSeen)
		if updated.NextExpectedDate == nil || !updated.NextExpectedDate.Equal(wantNext) {
			t.Errorf("NextExpectedDate = %v, want %v", updated.NextExpectedDate, wantNext)
		}
	})

	t.Run("patches fields independently", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestRecurringService(t, db)
		group := testutil.NewRecurringGroup().
			WithExpectedAmount("15.99").
			Build(t, db)

		updated, err := svc.Update(context.Background(), group.ID, request.UpdateRecurringGroupRequest{
			Name:           strPtr("Streaming Bundle"),
			ExpectedAmount: floatPtr(19.99),
			IsActive:       boolPtr(false),
		})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if updated.Name != "Streaming Bundle" {
			t.Errorf("Name = %q, want %q", updated.Name, "Streaming Bundle")
		}
		if updated.ExpectedAmount == nil || updated.ExpectedAmount.String() != "19.99" {
			t.Errorf("ExpectedAmount = %v, want 19.99", updated.ExpectedAmount)
		}
		if updated.IsActive {
			t.Error("group should be inactive after patch")
		}
		if updated.MerchantPattern != group.MerchantPattern {
			t.Errorf("MerchantPattern = %q, changed without being patched", updated.MerchantPattern)
		}
	})
}

// TestRecurringService_Delete tests that deletion unlinks members first.
func TestRecurringService_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestRecurringService(t, db)
	account := testutil.NewAccount().Build(t, db)
	group := testutil.NewRecurringGroup().Build(t, db)
	tx := testutil.NewTransaction(account.ID).WithGroup(group.ID).Build(t, db)

	if err := svc.Delete(context.Background(), group.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := svc.Get(group.ID); err == nil {
		t.Error("Get() after delete should fail")
	}

	got, err := repository.NewTransactionRepository(db).GetByID(tx.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.IsRecurring || got.RecurringGroupID != nil {
		t.Error("member transaction should be unlinked after group deletion")
	}
}

// TestRecurringService_UpcomingRenewals tests the renewal projection.
//
// WHY: The projection drives the "what's about to bill" view; it must
// respect the window, skip inactive groups, and sum the expected amounts.
func TestRecurringService_UpcomingRenewals(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestRecurringService(t, db)

	in := func(days int) time.Time {
		return time.Now().UTC().AddDate(0, 0, days)
	}

	soon := testutil.NewRecurringGroup().
		WithName("Netflix").
		WithExpectedAmount("9.99").
		WithNextExpected(in(5)).
		Build(t, db)
	later := testutil.NewRecurringGroup().
		WithName("Gym").
		WithExpectedAmount("30.00").
		WithNextExpected(in(20)).
		Build(t, db)
	testutil.NewRecurringGroup().
		WithName("Insurance").
		WithExpectedAmount("120.00").
		WithNextExpected(in(40)).
		Build(t, db)
	testutil.NewRecurringGroup().
		WithName("Cancelled Box").
		WithExpectedAmount("25.00").
		WithNextExpected(in(5)).
		Inactive().
		Build(t, db)

	projection, err := svc.UpcomingRenewals(30)
	if err != nil {
		t.Fatalf("UpcomingRenewals() error = %v", err)
	}

	if len(projection.Renewals) != 2 {
		t.Fatalf("len(Renewals) = %d, want 2", len(projection.Renewals))
	}
	if projection.Renewals[0].RecurringGroupID != soon.ID {
		t.Errorf("first renewal = %q, want the soonest group", projection.Renewals[0].Merchant)
	}
	if projection.Renewals[1].RecurringGroupID != later.ID {
		t.Errorf("second renewal = %q, want the later group", projection.Renewals[1].Merchant)
	}
	if projection.Renewals[0].DaysUntil != 5 {
		t.Errorf("DaysUntil = %d, want 5", projection.Renewals[0].DaysUntil)
	}
	if projection.TotalUpcoming.String() != "39.99" {
		t.Errorf("TotalUpcoming = %s, want 39.99", projection.TotalUpcoming)
	}
}
