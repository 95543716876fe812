package ingest_test

import (
	"testing"

	"github.com/spendah/spendah-backend/internal/ingest"
	"github.com/spendah/spendah-backend/internal/model"
)

func intPtr(i int) *int { return &i }

// TestParseAmount tests single-cell amount parsing.
//
// WHY: Bank exports disagree on amount notation. Currency symbols,
// thousands separators, and accountant-style parentheses all have to
// collapse to the same decimal value.
func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		cell    string
		want    string
		wantErr bool
	}{
		{"plain negative", "-9.99", "-9.99", false},
		{"plain positive", "1250.00", "1250", false},
		{"currency symbol", "$42.50", "42.5", false},
		{"thousands separator", "1,234.56", "1234.56", false},
		{"parentheses negative", "(123.45)", "-123.45", false},
		{"parentheses with symbol", "($1,500.00)", "-1500", false},
		{"empty cell", "   ", "", true},
		{"garbage", "N/A", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ingest.ParseAmount(tt.cell)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseAmount(%q) expected error, got %s", tt.cell, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) returned unexpected error: %v", tt.cell, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.cell, got, tt.want)
			}
		})
	}
}

// TestResolveAmount tests signed-amount resolution per amount style.
//
// WHY: With separate debit/credit columns the sign is positional, not
// lexical. A debit must come out negative even when the file writes it as
// a positive number.
func TestResolveAmount(t *testing.T) {
	t.Run("signed style reads the amount column", func(t *testing.T) {
		mapping := model.ColumnMapping{AmountColumn: intPtr(1)}
		got, err := ingest.ResolveAmount([]string{"2024-01-15", "-9.99"}, mapping, model.AmountSigned)
		if err != nil {
			t.Fatalf("ResolveAmount returned unexpected error: %v", err)
		}
		if got.String() != "-9.99" {
			t.Errorf("Expected -9.99, got %s", got)
		}
	})

	t.Run("debit column negates positive values", func(t *testing.T) {
		mapping := model.ColumnMapping{DebitColumn: intPtr(1), CreditColumn: intPtr(2)}
		got, err := ingest.ResolveAmount([]string{"2024-01-15", "42.50", ""}, mapping, model.AmountSeparateColumns)
		if err != nil {
			t.Fatalf("ResolveAmount returned unexpected error: %v", err)
		}
		if got.String() != "-42.5" {
			t.Errorf("Expected -42.5, got %s", got)
		}
	})

	t.Run("credit column stays positive", func(t *testing.T) {
		mapping := model.ColumnMapping{DebitColumn: intPtr(1), CreditColumn: intPtr(2)}
		got, err := ingest.ResolveAmount([]string{"2024-01-15", "", "1500.00"}, mapping, model.AmountSeparateColumns)
		if err != nil {
			t.Fatalf("ResolveAmount returned unexpected error: %v", err)
		}
		if got.String() != "1500" {
			t.Errorf("Expected 1500, got %s", got)
		}
	})

	t.Run("both debit and credit empty is an error", func(t *testing.T) {
		mapping := model.ColumnMapping{DebitColumn: intPtr(1), CreditColumn: intPtr(2)}
		if _, err := ingest.ResolveAmount([]string{"2024-01-15", "", ""}, mapping, model.AmountSeparateColumns); err == nil {
			t.Error("Expected error when both debit and credit are empty")
		}
	})

	t.Run("missing amount column mapping is an error", func(t *testing.T) {
		if _, err := ingest.ResolveAmount([]string{"2024-01-15", "-9.99"}, model.ColumnMapping{}, model.AmountSigned); err == nil {
			t.Error("Expected error when amount column is not mapped")
		}
	})
}
