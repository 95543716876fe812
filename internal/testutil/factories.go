package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spendah/spendah-backend/internal/model"
)

// MakeID returns a fresh UUID string for test entities.
func MakeID() string {
	return uuid.NewString()
}

// AccountBuilder provides a fluent interface for creating test accounts.
//
// Example usage:
//
//	account := testutil.NewAccount().Build(t, db)
//
//	account := testutil.NewAccount().
//	    WithName("Household Card").
//	    WithType(model.AccountCredit).
//	    Build(t, db)
type AccountBuilder struct {
	ID       string
	Name     string
	Type     model.AccountType
	IsActive bool
}

// NewAccount creates an AccountBuilder with sensible defaults.
func NewAccount() *AccountBuilder {
	return &AccountBuilder{
		ID:       MakeID(),
		Name:     "Test Account",
		Type:     model.AccountBank,
		IsActive: true,
	}
}

// WithID sets a custom ID.
func (b *AccountBuilder) WithID(id string) *AccountBuilder {
	b.ID = id
	return b
}

// WithName sets a custom name.
func (b *AccountBuilder) WithName(name string) *AccountBuilder {
	b.Name = name
	return b
}

// WithType sets a custom account type.
func (b *AccountBuilder) WithType(accountType model.AccountType) *AccountBuilder {
	b.Type = accountType
	return b
}

// Inactive marks the account as inactive.
func (b *AccountBuilder) Inactive() *AccountBuilder {
	b.IsActive = false
	return b
}

// Build creates the account in the database and returns it.
func (b *AccountBuilder) Build(t *testing.T, db *sql.DB) model.Account {
	t.Helper()

	query := `
		INSERT INTO account (id, name, account_type, is_active)
		VALUES (?, ?, ?, ?)
	`

	_, err := db.Exec(query, b.ID, b.Name, string(b.Type), b.IsActive)
	if err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}

	return model.Account{
		ID:       b.ID,
		Name:     b.Name,
		Type:     b.Type,
		IsActive: b.IsActive,
	}
}

// TransactionBuilder provides a fluent interface for creating test
// transactions. The hash is derived from the content fields unless
// overridden.
//
// Example usage:
//
//	tx := testutil.NewTransaction(account.ID).
//	    WithAmount("-9.99").
//	    WithDate(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)).
//	    WithDescription("NETFLIX.COM 866-579-7172").
//	    Build(t, db)
type TransactionBuilder struct {
	ID               string
	Hash             string
	Date             time.Time
	Amount           decimal.Decimal
	RawDescription   string
	CleanMerchant    *string
	CategoryID       *string
	AccountID        string
	IsRecurring      bool
	RecurringGroupID *string
}

// NewTransaction creates a TransactionBuilder with sensible defaults for
// the given account.
func NewTransaction(accountID string) *TransactionBuilder {
	return &TransactionBuilder{
		ID:             MakeID(),
		Date:           time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Amount:         decimal.RequireFromString("-42.50"),
		RawDescription: "TEST MERCHANT 001",
		AccountID:      accountID,
	}
}

// WithID sets a custom ID.
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.ID = id
	return b
}

// WithDate sets the transaction date.
func (b *TransactionBuilder) WithDate(date time.Time) *TransactionBuilder {
	b.Date = date
	return b
}

// WithAmount sets the amount from a decimal string. Negative is an outflow.
func (b *TransactionBuilder) WithAmount(amount string) *TransactionBuilder {
	b.Amount = decimal.RequireFromString(amount)
	return b
}

// WithDescription sets the raw description.
func (b *TransactionBuilder) WithDescription(desc string) *TransactionBuilder {
	b.RawDescription = desc
	return b
}

// WithCleanMerchant sets the cleaned merchant name.
func (b *TransactionBuilder) WithCleanMerchant(merchant string) *TransactionBuilder {
	b.CleanMerchant = &merchant
	return b
}

// WithCategory sets the category reference.
func (b *TransactionBuilder) WithCategory(categoryID string) *TransactionBuilder {
	b.CategoryID = &categoryID
	return b
}

// WithGroup links the transaction to a recurring group.
func (b *TransactionBuilder) WithGroup(groupID string) *TransactionBuilder {
	b.IsRecurring = true
	b.RecurringGroupID = &groupID
	return b
}

// WithHash overrides the derived content hash.
func (b *TransactionBuilder) WithHash(hash string) *TransactionBuilder {
	b.Hash = hash
	return b
}

// Build creates the transaction in the database and returns it.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	hash := b.Hash
	if hash == "" {
		hash = model.TransactionHash(b.Date, b.Amount, b.RawDescription, b.AccountID)
	}

	query := `
		INSERT INTO "transaction" (id, hash, date, amount, raw_description,
			clean_merchant, category_id, account_id, is_recurring, recurring_group_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		b.ID, hash, b.Date.Format("2006-01-02"), b.Amount.String(), b.RawDescription,
		b.CleanMerchant, b.CategoryID, b.AccountID, b.IsRecurring, b.RecurringGroupID,
	)
	if err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}

	return model.Transaction{
		ID:               b.ID,
		Hash:             hash,
		Date:             b.Date,
		Amount:           b.Amount,
		RawDescription:   b.RawDescription,
		CleanMerchant:    b.CleanMerchant,
		CategoryID:       b.CategoryID,
		AccountID:        b.AccountID,
		IsRecurring:      b.IsRecurring,
		RecurringGroupID: b.RecurringGroupID,
	}
}

// RecurringGroupBuilder provides a fluent interface for creating test
// recurring groups.
//
// Example usage:
//
//	group := testutil.NewRecurringGroup().
//	    WithName("Netflix").
//	    WithExpectedAmount("-15.99").
//	    WithFrequency(model.FrequencyMonthly).
//	    Build(t, db)
type RecurringGroupBuilder struct {
	ID               string
	Name             string
	MerchantPattern  string
	ExpectedAmount   *decimal.Decimal
	AmountVariance   *decimal.Decimal
	Frequency        model.Frequency
	CategoryID       *string
	LastSeenDate     *time.Time
	NextExpectedDate *time.Time
	IsActive         bool
}

// NewRecurringGroup creates a RecurringGroupBuilder with sensible defaults.
func NewRecurringGroup() *RecurringGroupBuilder {
	variance := decimal.NewFromInt(15)
	return &RecurringGroupBuilder{
		ID:              MakeID(),
		Name:            "Test Subscription",
		MerchantPattern: "TEST MERCHANT",
		AmountVariance:  &variance,
		Frequency:       model.FrequencyMonthly,
		IsActive:        true,
	}
}

// WithID sets a custom ID.
func (b *RecurringGroupBuilder) WithID(id string) *RecurringGroupBuilder {
	b.ID = id
	return b
}

// WithName sets a custom name.
func (b *RecurringGroupBuilder) WithName(name string) *RecurringGroupBuilder {
	b.Name = name
	return b
}

// WithMerchantPattern sets the merchant pattern.
func (b *RecurringGroupBuilder) WithMerchantPattern(pattern string) *RecurringGroupBuilder {
	b.MerchantPattern = pattern
	return b
}

// WithExpectedAmount sets the expected amount from a decimal string.
func (b *RecurringGroupBuilder) WithExpectedAmount(amount string) *RecurringGroupBuilder {
	d := decimal.RequireFromString(amount)
	b.ExpectedAmount = &d
	return b
}

// WithAmountVariance sets the percent tolerance from a decimal string.
func (b *RecurringGroupBuilder) WithAmountVariance(variance string) *RecurringGroupBuilder {
	d := decimal.RequireFromString(variance)
	b.AmountVariance = &d
	return b
}

// WithFrequency sets the schedule frequency.
func (b *RecurringGroupBuilder) WithFrequency(frequency model.Frequency) *RecurringGroupBuilder {
	b.Frequency = frequency
	return b
}

// WithLastSeen sets the last seen date.
func (b *RecurringGroupBuilder) WithLastSeen(date time.Time) *RecurringGroupBuilder {
	b.LastSeenDate = &date
	return b
}

// WithNextExpected sets the next expected date.
func (b *RecurringGroupBuilder) WithNextExpected(date time.Time) *RecurringGroupBuilder {
	b.NextExpectedDate = &date
	return b
}

// Inactive marks the group as inactive.
func (b *RecurringGroupBuilder) Inactive() *RecurringGroupBuilder {
	b.IsActive = false
	return b
}

// Build creates the recurring group in the database and returns it.
func (b *RecurringGroupBuilder) Build(t *testing.T, db *sql.DB) model.RecurringGroup {
	t.Helper()

	var expected, variance *string
	if b.ExpectedAmount != nil {
		s := b.ExpectedAmount.String()
		expected = &s
	}
	if b.AmountVariance != nil {
		s := b.AmountVariance.String()
		variance = &s
	}

	var lastSeen, nextExpected *string
	if b.LastSeenDate != nil {
		s := b.LastSeenDate.Format("2006-01-02")
		lastSeen = &s
	}
	if b.NextExpectedDate != nil {
		s := b.NextExpectedDate.Format("2006-01-02")
		nextExpected = &s
	}

	query := `
		INSERT INTO recurring_group (id, name, merchant_pattern, expected_amount,
			amount_variance, frequency, category_id, last_seen_date, next_expected_date, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		b.ID, b.Name, b.MerchantPattern, expected, variance,
		string(b.Frequency), b.CategoryID, lastSeen, nextExpected, b.IsActive,
	)
	if err != nil {
		t.Fatalf("Failed to create test recurring group: %v", err)
	}

	return model.RecurringGroup{
		ID:               b.ID,
		Name:             b.Name,
		MerchantPattern:  b.MerchantPattern,
		ExpectedAmount:   b.ExpectedAmount,
		AmountVariance:   b.AmountVariance,
		Frequency:        b.Frequency,
		CategoryID:       b.CategoryID,
		LastSeenDate:     b.LastSeenDate,
		NextExpectedDate: b.NextExpectedDate,
		IsActive:         b.IsActive,
	}
}

// Convenience functions

// CreateAccount creates an account with the given name and default values.
func CreateAccount(t *testing.T, db *sql.DB, name string) model.Account {
	t.Helper()
	return NewAccount().WithName(name).Build(t, db)
}

// dayDrift shifts each occurrence of a monthly series up to three days off
// its anchor, the way weekend and billing-cycle drift moves real charges.
var dayDrift = []int{0, 1, -2, 3, -1, 2, 0, -3, 1, 2, -1, 0}

// CreateMonthlySeries creates n transactions for the same merchant spaced
// roughly a calendar month apart, starting at start. Dates drift up to
// three days around the monthly anchor and amounts alternate slightly
// around base to resemble a real subscription.
func CreateMonthlySeries(t *testing.T, db *sql.DB, accountID, merchant string, start time.Time, n int, base string) []model.Transaction {
	t.Helper()

	amount := decimal.RequireFromString(base)
	jitter := decimal.RequireFromString("0.50")

	transactions := make([]model.Transaction, 0, n)
	for i := 0; i < n; i++ {
		a := amount
		if i%2 == 1 {
			a = amount.Sub(jitter)
		}
		tx := NewTransaction(accountID).
			WithDate(start.AddDate(0, i, dayDrift[i%len(dayDrift)])).
			WithAmount(a.String()).
			WithDescription(merchant).
			Build(t, db)
		transactions = append(transactions, tx)
	}
	return transactions
}
