package ingest_test

import (
	"strings"
	"testing"

	"github.com/spendah/spendah-backend/internal/ingest"
	"github.com/spendah/spendah-backend/internal/model"
)

// TestDetectFormat tests the heuristic column-role detector.
//
// WHY: Auto-detection drives the zero-configuration import path. Headered
// exports must detect with high confidence, and ambiguous files must come
// back below the 0.5 auto-apply threshold instead of guessing silently.
func TestDetectFormat(t *testing.T) {
	t.Run("standard headered export detects all roles", func(t *testing.T) {
		headers := []string{"Date", "Description", "Amount"}
		rows := [][]string{
			{"2024-01-15", "NETFLIX.COM", "-9.99"},
			{"2024-01-16", "STARBUCKS #1234", "-4.50"},
			{"2024-01-17", "PAYROLL DEPOSIT", "2500.00"},
		}

		f := ingest.DetectFormat(headers, rows)

		if f.DateColumn == nil || *f.DateColumn != 0 {
			t.Fatalf("Expected date column 0, got %v", f.DateColumn)
		}
		if f.DescriptionColumn == nil || *f.DescriptionColumn != 1 {
			t.Fatalf("Expected description column 1, got %v", f.DescriptionColumn)
		}
		if f.AmountColumn == nil || *f.AmountColumn != 2 {
			t.Fatalf("Expected amount column 2, got %v", f.AmountColumn)
		}
		if f.DateFormat != "2006-01-02" {
			t.Errorf("Expected ISO date format, got %q", f.DateFormat)
		}
		if f.AmountStyle != model.AmountSigned {
			t.Errorf("Expected signed amount style, got %q", f.AmountStyle)
		}
		if f.Confidence < 0.9 {
			t.Errorf("Expected confidence >= 0.9 for a clean export, got %v", f.Confidence)
		}
	})

	t.Run("separate debit and credit columns", func(t *testing.T) {
		headers := []string{"Date", "Description", "Debit", "Credit"}
		rows := [][]string{
			{"2024-01-15", "NETFLIX.COM", "9.99", ""},
			{"2024-01-17", "PAYROLL DEPOSIT", "", "2500.00"},
		}

		f := ingest.DetectFormat(headers, rows)

		if f.AmountStyle != model.AmountSeparateColumns {
			t.Fatalf("Expected separate_columns style, got %q", f.AmountStyle)
		}
		if f.DebitColumn == nil || *f.DebitColumn != 2 {
			t.Errorf("Expected debit column 2, got %v", f.DebitColumn)
		}
		if f.CreditColumn == nil || *f.CreditColumn != 3 {
			t.Errorf("Expected credit column 3, got %v", f.CreditColumn)
		}
	})

	t.Run("parenthesized negatives set the amount style", func(t *testing.T) {
		headers := []string{"Date", "Description", "Amount"}
		rows := [][]string{
			{"2024-01-15", "NETFLIX.COM", "(9.99)"},
			{"2024-01-17", "PAYROLL DEPOSIT", "2500.00"},
		}

		f := ingest.DetectFormat(headers, rows)

		if f.AmountStyle != model.AmountParenthesesNegative {
			t.Errorf("Expected parentheses_negative style, got %q", f.AmountStyle)
		}
	})

	t.Run("day-first dates win when a sample is unambiguous", func(t *testing.T) {
		headers := []string{"Date", "Description", "Amount"}
		rows := [][]string{
			{"15/01/2024", "NETFLIX.COM", "-9.99"},
			{"03/01/2024", "STARBUCKS", "-4.50"},
		}

		f := ingest.DetectFormat(headers, rows)

		if f.DateFormat != "02/01/2006" {
			t.Errorf("Expected day-first layout, got %q", f.DateFormat)
		}
	})

	t.Run("empty input yields zero confidence", func(t *testing.T) {
		f := ingest.DetectFormat(nil, nil)
		if f.Confidence != 0 {
			t.Errorf("Expected zero confidence, got %v", f.Confidence)
		}
	})

	t.Run("headerless numeric soup stays below the auto-apply threshold", func(t *testing.T) {
		headers := []string{"a", "b", "c"}
		rows := [][]string{
			{"x", "y", "z"},
			{"x", "y", "z"},
		}

		f := ingest.DetectFormat(headers, rows)

		if f.Confidence >= 0.5 {
			t.Errorf("Expected confidence below 0.5, got %v", f.Confidence)
		}
	})

	t.Run("recognizes a chase export", func(t *testing.T) {
		headers := []string{"Details", "Posting Date", "Description", "Amount", "Type", "Balance"}
		rows := [][]string{
			{"DEBIT", "01/15/2024", "NETFLIX.COM", "-9.99", "ACH_DEBIT", "1520.11"},
		}

		f := ingest.DetectFormat(headers, rows)

		if f.SourceGuess != "chase" {
			t.Errorf("Expected source guess %q, got %q", "chase", f.SourceGuess)
		}
		if f.BalanceColumn == nil || *f.BalanceColumn != 5 {
			t.Errorf("Expected balance column 5, got %v", f.BalanceColumn)
		}
	})
}

// TestReadCSV tests the delimiter-sniffing CSV reader.
func TestReadCSV(t *testing.T) {
	t.Run("comma-separated with BOM", func(t *testing.T) {
		content := "\ufeffDate,Description,Amount\n2024-01-15,NETFLIX.COM,-9.99\n"
		headers, rows, err := ingest.ReadCSV(strings.NewReader(content))
		if err != nil {
			t.Fatalf("ReadCSV returned unexpected error: %v", err)
		}
		if len(headers) != 3 || headers[0] != "Date" {
			t.Errorf("Unexpected headers: %v", headers)
		}
		if len(rows) != 1 || rows[0][1] != "NETFLIX.COM" {
			t.Errorf("Unexpected rows: %v", rows)
		}
	})

	t.Run("semicolon-separated", func(t *testing.T) {
		content := "Date;Description;Amount\n2024-01-15;NETFLIX.COM;-9,99\n"
		headers, rows, err := ingest.ReadCSV(strings.NewReader(content))
		if err != nil {
			t.Fatalf("ReadCSV returned unexpected error: %v", err)
		}
		if len(headers) != 3 {
			t.Errorf("Expected 3 headers, got %d", len(headers))
		}
		if len(rows) != 1 || rows[0][2] != "-9,99" {
			t.Errorf("Unexpected rows: %v", rows)
		}
	})

	t.Run("blank rows are dropped", func(t *testing.T) {
		content := "Date,Description,Amount\n2024-01-15,NETFLIX.COM,-9.99\n,,\n\n"
		_, rows, err := ingest.ReadCSV(strings.NewReader(content))
		if err != nil {
			t.Fatalf("ReadCSV returned unexpected error: %v", err)
		}
		if len(rows) != 1 {
			t.Errorf("Expected 1 data row, got %d", len(rows))
		}
	})

	t.Run("empty file yields nothing", func(t *testing.T) {
		headers, rows, err := ingest.ReadCSV(strings.NewReader("   \n"))
		if err != nil {
			t.Fatalf("ReadCSV returned unexpected error: %v", err)
		}
		if headers != nil || rows != nil {
			t.Errorf("Expected nil headers and rows, got %v / %v", headers, rows)
		}
	})
}

// TestMapRows tests row mapping with per-row error isolation.
//
// WHY: One malformed row must never abort a batch; it becomes a bounded
// error message while the remaining rows import.
func TestMapRows(t *testing.T) {
	mapping := model.ColumnMapping{
		DateColumn:        0,
		DescriptionColumn: 1,
		AmountColumn:      intPtr(2),
	}

	rows := [][]string{
		{"2024-01-15", "NETFLIX.COM", "-9.99"},
		{"not-a-date", "BAD ROW", "-1.00"},
		{"2024-01-16", "", "-2.00"},
		{"2024-01-17", "STARBUCKS", "-4.50"},
	}

	parsed, rowErrors := ingest.MapRows(rows, mapping, "2006-01-02", model.AmountSigned, 0)

	if len(parsed) != 2 {
		t.Fatalf("Expected 2 parsed rows, got %d", len(parsed))
	}
	if len(rowErrors) != 2 {
		t.Fatalf("Expected 2 row errors, got %d: %v", len(rowErrors), rowErrors)
	}
	if parsed[0].RawDescription != "NETFLIX.COM" || parsed[1].RawDescription != "STARBUCKS" {
		t.Errorf("Unexpected parsed rows: %+v", parsed)
	}

	t.Run("skip rows are not parsed", func(t *testing.T) {
		parsed, rowErrors := ingest.MapRows(rows, mapping, "2006-01-02", model.AmountSigned, 2)
		if len(parsed) != 1 {
			t.Errorf("Expected 1 parsed row after skipping 2, got %d", len(parsed))
		}
		if len(rowErrors) != 1 {
			t.Errorf("Expected 1 row error after skipping 2, got %d", len(rowErrors))
		}
	})
}

// TestFileTypeFor tests filename extension mapping.
func TestFileTypeFor(t *testing.T) {
	tests := []struct {
		filename string
		want     model.FileType
		ok       bool
	}{
		{"export.csv", model.FileCSV, true},
		{"Export.CSV", model.FileCSV, true},
		{"statement.ofx", model.FileOFX, true},
		{"statement.qfx", model.FileQFX, true},
		{"notes.txt", "", false},
		{"noextension", "", false},
	}

	for _, tt := range tests {
		got, ok := ingest.FileTypeFor(tt.filename)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FileTypeFor(%q) = (%q, %v), want (%q, %v)", tt.filename, got, ok, tt.want, tt.ok)
		}
	}
}
