package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spendah/spendah-backend/internal/apperrors"
	"github.com/spendah/spendah-backend/internal/model"
	"github.com/spendah/spendah-backend/internal/repository"
	"github.com/spendah/spendah-backend/internal/testutil"
)

// TestRecurringDetector_Detect tests pattern discovery over the transaction
// ledger.
//
// WHY: Detection is the core value of the recurring engine. A regular
// monthly charge must surface with high confidence, while sparse or
// irregular merchants must not, or the review queue fills with noise.
func TestRecurringDetector_Detect(t *testing.T) {
	t.Run("detects a regular monthly charge", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		detector := testutil.NewTestRecurringDetector(t, db)
		account := testutil.NewAccount().Build(t, db)

		start := time.Now().UTC().AddDate(0, -12, 0)
		testutil.CreateMonthlySeries(t, db, account.ID, "NETFLIX.COM", start, 12, "-9.99")

		session, err := detector.Detect(context.Background())
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}

		if session.SessionID == "" {
			t.Error("Detect() returned empty session ID")
		}
		if session.TotalFound != 1 {
			t.Fatalf("Detect() TotalFound = %d, want 1", session.TotalFound)
		}

		result := session.Detected[0]
		if result.MerchantPattern != "NETFLIX COM" {
			t.Errorf("MerchantPattern = %q, want %q", result.MerchantPattern, "NETFLIX COM")
		}
		if result.Frequency != model.FrequencyMonthly {
			t.Errorf("Frequency = %q, want %q", result.Frequency, model.FrequencyMonthly)
		}
		if result.Confidence < 0.8 {
			t.Errorf("Confidence = %.3f, want >= 0.8 for 12 even occurrences", result.Confidence)
		}
		if len(result.TransactionIDs) != 12 {
			t.Errorf("len(TransactionIDs) = %d, want 12", len(result.TransactionIDs))
		}
		if result.AverageAmount.String() != "10.24" {
			t.Errorf("AverageAmount = %s, want 10.24", result.AverageAmount)
		}
	})

	t.Run("ignores merchants with too few occurrences", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		detector := testutil.NewTestRecurringDetector(t, db)
		account := testutil.NewAccount().Build(t, db)

		start := time.Now().UTC().AddDate(0, -2, 0)
		testutil.CreateMonthlySeries(t, db, account.ID, "SOME GYM", start, 2, "-35.00")

		session, err := detector.Detect(context.Background())
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if session.TotalFound != 0 {
			t.Errorf("Detect() TotalFound = %d, want 0 for a two-occurrence merchant", session.TotalFound)
		}
	})

	t.Run("ignores irregular cadence", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		detector := testutil.NewTestRecurringDetector(t, db)
		account := testutil.NewAccount().Build(t, db)

		base := time.Now().UTC().AddDate(0, 0, -300)
		for _, offset := range []int{0, 5, 55, 155, 280} {
			testutil.NewTransaction(account.ID).
				WithDate(base.AddDate(0, 0, offset)).
				WithAmount("-12.00").
				WithDescription("RANDOM DINER").
				Build(t, db)
		}

		session, err := detector.Detect(context.Background())
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if session.TotalFound != 0 {
			t.Errorf("Detect() TotalFound = %d, want 0 for irregular gaps", session.TotalFound)
		}
	})

	t.Run("ignores income and already-linked transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		detector := testutil.NewTestRecurringDetector(t, db)
		account := testutil.NewAccount().Build(t, db)

		// Regular monthly deposits are not subscriptions.
		salaryStart := time.Now().UTC().AddDate(0, -6, 0)
		for i := 0; i < 6; i++ {
			testutil.NewTransaction(account.ID).
				WithDate(salaryStart.AddDate(0, i, 0)).
				WithAmount("2500.00").
				WithDescription("EMPLOYER PAYROLL").
				Build(t, db)
		}

		// Charges already linked to an active group are settled.
		group := testutil.NewRecurringGroup().Build(t, db)
		chargeStart := time.Now().UTC().AddDate(0, -6, 0)
		for i := 0; i < 6; i++ {
			testutil.NewTransaction(account.ID).
				WithDate(chargeStart.AddDate(0, i, 0)).
				WithAmount("-15.99").
				WithDescription("SPOTIFY").
				WithGroup(group.ID).
				Build(t, db)
		}

		session, err := detector.Detect(context.Background())
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if session.TotalFound != 0 {
			t.Errorf("Detect() TotalFound = %d, want 0", session.TotalFound)
		}
	})

	t.Run("orders results by confidence", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		detector := testutil.NewTestRecurringDetector(t, db)
		account := testutil.NewAccount().Build(t, db)

		// A long even series should outrank a short one.
		testutil.CreateMonthlySeries(t, db, account.ID, "NETFLIX.COM",
			time.Now().UTC().AddDate(0, -12, 0), 12, "-9.99")
		testutil.CreateMonthlySeries(t, db, account.ID, "AUDIBLE",
			time.Now().UTC().AddDate(0, -3, 0), 3, "-14.95")

		session, err := detector.Detect(context.Background())
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if session.TotalFound != 2 {
			t.Fatalf("Detect() TotalFound = %d, want 2", session.TotalFound)
		}
		if session.Detected[0].MerchantPattern != "NETFLIX COM" {
			t.Errorf("first result = %q, want the 12-occurrence merchant first",
				session.Detected[0].MerchantPattern)
		}
		if session.Detected[0].Confidence < session.Detected[1].Confidence {
			t.Errorf("results out of order: %.3f before %.3f",
				session.Detected[0].Confidence, session.Detected[1].Confidence)
		}
	})
}

// TestRecurringDetector_Apply tests consuming detection results by index.
//
// WHY: Apply materializes a candidate into a real group and links its
// transactions. Indices are only meaningful within one session, so a stale
// or reused index must be rejected rather than silently creating the wrong
// group.
func TestRecurringDetector_Apply(t *testing.T) {
	t.Run("creates a group and links its transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		detector := testutil.NewTestRecurringDetector(t, db)
		account := testutil.NewAccount().Build(t, db)
		testutil.CreateMonthlySeries(t, db, account.ID, "NETFLIX.COM",
			time.Now().UTC().AddDate(0, -12, 0), 12, "-9.99")

		session, err := detector.Detect(context.Background())
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}

		group, err := detector.Apply(context.Background(), session.SessionID, 0)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if group.MerchantPattern != "NETFLIX COM" {
			t.Errorf("group MerchantPattern = %q, want %q", group.MerchantPattern, "NETFLIX COM")
		}
		if group.Frequency != model.FrequencyMonthly {
			t.Errorf("group Frequency = %q, want %q", group.Frequency, model.FrequencyMonthly)
		}
		if !group.IsActive {
			t.Error("applied group should be active")
		}
		if group.NextExpectedDate == nil {
			t.Error("applied group should have a next expected date")
		}

		members, err := repository.NewTransactionRepository(db).ListByGroup(group.ID)
		if err != nil {
			t.Fatalf("ListByGroup() error = %v", err)
		}
		if len(members) != 12 {
			t.Errorf("len(members) = %d, want 12", len(members))
		}
		for _, tx := range members {
			if !tx.IsRecurring {
				t.Errorf("transaction %s not marked recurring", tx.ID)
			}
		}
	})

	t.Run("rejects a consumed index", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		detector := testutil.NewTestRecurringDetector(t, db)
		account := testutil.NewAccount().Build(t, db)
		testutil.CreateMonthlySeries(t, db, account.ID, "NETFLIX.COM",
			time.Now().UTC().AddDate(0, -12, 0), 12, "-9.99")

		session, err := detector.Detect(context.Background())
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if _, err := detector.Apply(context.Background(), session.SessionID, 0); err != nil {
			t.Fatalf("first Apply() error = %v", err)
		}

		_, err = detector.Apply(context.Background(), session.SessionID, 0)
		if !errors.Is(err, apperrors.ErrStaleDetectionIndex) {
			t.Errorf("second Apply() error = %v, want ErrStaleDetectionIndex", err)
		}
	})

	t.Run("rejects an unknown session and an out-of-range index", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		detector := testutil.NewTestRecurringDetector(t, db)
		account := testutil.NewAccount().Build(t, db)
		testutil.CreateMonthlySeries(t, db, account.ID, "NETFLIX.COM",
			time.Now().UTC().AddDate(0, -12, 0), 12, "-9.99")

		session, err := detector.Detect(context.Background())
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}

		if _, err := detector.Apply(context.Background(), "no-such-session", 0); !errors.Is(err, apperrors.ErrStaleDetectionIndex) {
			t.Errorf("Apply(unknown session) error = %v, want ErrStaleDetectionIndex", err)
		}
		if _, err := detector.Apply(context.Background(), session.SessionID, 5); !errors.Is(err, apperrors.ErrStaleDetectionIndex) {
			t.Errorf("Apply(out-of-range index) error = %v, want ErrStaleDetectionIndex", err)
		}
		if _, err := detector.Apply(context.Background(), session.SessionID, -1); !errors.Is(err, apperrors.ErrStaleDetectionIndex) {
			t.Errorf("Apply(negative index) error = %v, want ErrStaleDetectionIndex", err)
		}
	})

	t.Run("a new detection run invalidates the previous session", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		detector := testutil.NewTestRecurringDetector(t, db)
		account := testutil.NewAccount().Build(t, db)
		testutil.CreateMonthlySeries(t, db, account.ID, "NETFLIX.COM",
			time.Now().UTC().AddDate(0, -12, 0), 12, "-9.99")

		first, err := detector.Detect(context.Background())
		if err != nil {
			t.Fatalf("first Detect() error = %v", err)
		}
		second, err := detector.Detect(context.Background())
		if err != nil {
			t.Fatalf("second Detect() error = %v", err)
		}
		if first.SessionID == second.SessionID {
			t.Fatal("detection runs should produce distinct session IDs")
		}

		if _, err := detector.Apply(context.Background(), first.SessionID, 0); !errors.Is(err, apperrors.ErrStaleDetectionIndex) {
			t.Errorf("Apply(stale session) error = %v, want ErrStaleDetectionIndex", err)
		}
		if _, err := detector.Apply(context.Background(), second.SessionID, 0); err != nil {
			t.Errorf("Apply(current session) error = %v", err)
		}
	})

	t.Run("applied charges are excluded from the next run", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		detector := testutil.NewTestRecurringDetector(t, db)
		account := testutil.NewAccount().Build(t, db)
		testutil.CreateMonthlySeries(t, db, account.ID, "NETFLIX.COM",
			time.Now().UTC().AddDate(0, -12, 0), 12, "-9.99")

		session, err := detector.Detect(context.Background())
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if _, err := detector.Apply(context.Background(), session.SessionID, 0); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}

		rerun, err := detector.Detect(context.Background())
		if err != nil {
			t.Fatalf("rerun Detect() error = %v", err)
		}
		if rerun.TotalFound != 0 {
			t.Errorf("rerun TotalFound = %d, want 0 after applying the only candidate", rerun.TotalFound)
		}
	})
}
