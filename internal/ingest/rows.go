package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendah/spendah-backend/internal/model"
)

// ParsedRow is one canonical transaction candidate produced from a file
// row, before deduplication and persistence.
type ParsedRow struct {
	Date           time.Time
	Amount         decimal.Decimal
	RawDescription string
}

// MapRows applies a resolved column mapping to raw file rows. Rows that
// fail to parse are reported as messages, not errors: a bad row never
// aborts the batch.
func MapRows(rows [][]string, mapping model.ColumnMapping, dateFormat string, style model.AmountStyle, skipRows int) ([]ParsedRow, []string) {
	parsed := make([]ParsedRow, 0, len(rows))
	var rowErrors []string

	for i, row := range rows {
		if i < skipRows {
			continue
		}

		p, err := mapRow(row, mapping, dateFormat, style)
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		parsed = append(parsed, p)
	}

	return parsed, rowErrors
}

func mapRow(row []string, mapping model.ColumnMapping, dateFormat string, style model.AmountStyle) (ParsedRow, error) {
	dateStr := strings.TrimSpace(cellAt(row, mapping.DateColumn))
	if dateStr == "" {
		return ParsedRow{}, fmt.Errorf("empty date")
	}
	date, err := time.Parse(dateFormat, dateStr)
	if err != nil {
		return ParsedRow{}, fmt.Errorf("invalid date %q: %w", dateStr, err)
	}

	amount, err := ResolveAmount(row, mapping, style)
	if err != nil {
		return ParsedRow{}, err
	}

	description := strings.TrimSpace(cellAt(row, mapping.DescriptionColumn))
	if description == "" {
		return ParsedRow{}, fmt.Errorf("empty description")
	}

	return ParsedRow{
		Date:           date,
		Amount:         amount,
		RawDescription: description,
	}, nil
}
