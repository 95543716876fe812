package ingest

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spendah/spendah-backend/internal/model"
)

// ParseAmount parses a single amount cell. Currency symbols and thousands
// separators are stripped; "(123.45)" is treated as -123.45 regardless of
// the declared style, since parenthesized exports sometimes mix notations.
func ParseAmount(cell string) (decimal.Decimal, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", cell, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ResolveAmount produces the signed transaction amount for one row given
// the column mapping and amount style. With separate debit/credit columns
// a debit becomes a negative amount and a credit a positive one.
func ResolveAmount(row []string, mapping model.ColumnMapping, style model.AmountStyle) (decimal.Decimal, error) {
	if style == model.AmountSeparateColumns {
		if mapping.DebitColumn == nil || mapping.CreditColumn == nil {
			return decimal.Zero, fmt.Errorf("separate_columns style requires debit and credit columns")
		}
		debit := cellAt(row, *mapping.DebitColumn)
		credit := cellAt(row, *mapping.CreditColumn)

		if strings.TrimSpace(debit) != "" {
			d, err := ParseAmount(debit)
			if err != nil {
				return decimal.Zero, err
			}
			if d.IsPositive() {
				return d.Neg(), nil
			}
			return d, nil
		}
		if strings.TrimSpace(credit) != "" {
			return ParseAmount(credit)
		}
		return decimal.Zero, fmt.Errorf("both debit and credit are empty")
	}

	if mapping.AmountColumn == nil {
		return decimal.Zero, fmt.Errorf("amount column is not mapped")
	}
	return ParseAmount(cellAt(row, *mapping.AmountColumn))
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
