package ingest

import (
	"strings"
	"time"

	"github.com/spendah/spendah-backend/internal/model"
)

// Candidate date layouts, tried in order. US month-first layouts come
// before day-first ones so the ambiguity penalty below is applied
// consistently.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"01-02-2006",
	"01/02/06",
	"2 Jan 2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
}

var headerKeywords = map[string][]string{
	"date":        {"date", "posted", "transaction date", "posting date", "trans date"},
	"amount":      {"amount", "value", "transaction amount"},
	"description": {"description", "memo", "payee", "details", "narrative", "merchant", "name"},
	"debit":       {"debit", "withdrawal", "money out", "paid out"},
	"credit":      {"credit", "deposit", "money in", "paid in"},
	"balance":     {"balance", "running balance"},
	"category":    {"category"},
}

// Known export signatures for the best-effort source guess.
var sourceSignatures = []struct {
	source  string
	headers []string
}{
	{"chase", []string{"details", "posting date", "description", "amount"}},
	{"amex", []string{"date", "description", "amount"}},
	{"capital one", []string{"transaction date", "posted date", "card no.", "description"}},
	{"discover", []string{"trans. date", "post date", "description", "amount"}},
}

type columnStats struct {
	dateFraction   float64
	bestDateLayout string
	mmddExclusive  int // slash dates only parseable month-first (second part > 12)
	ddmmExclusive  int // slash dates only parseable day-first (first part > 12)
	amountFraction float64
	parenSeen      bool
	avgTextLen     float64
	letterFraction float64
	emptyFraction  float64
}

// DetectFormat infers column roles, date format, and amount sign
// convention from a header row and sample data rows. It degrades
// gracefully: malformed or empty samples yield null fields and confidence
// zero rather than an error.
func DetectFormat(headers []string, sampleRows [][]string) model.DetectedFormat {
	if len(headers) == 0 || len(sampleRows) == 0 {
		return model.DetectedFormat{}
	}

	stats := analyzeColumns(len(headers), sampleRows)
	f := model.DetectedFormat{AmountStyle: model.AmountSigned}

	dateConf := resolveDateColumn(&f, headers, stats)
	amountConf := resolveAmountColumns(&f, headers, stats)
	descConf := resolveDescriptionColumn(&f, headers, stats)
	resolveAuxColumns(&f, headers)

	f.SourceGuess = guessSource(headers)
	f.Confidence = clamp01(0.4*dateConf + 0.35*amountConf + 0.25*descConf)

	return f
}

func analyzeColumns(width int, rows [][]string) []columnStats {
	stats := make([]columnStats, width)
	layoutHits := make([]map[string]int, width)
	for i := range layoutHits {
		layoutHits[i] = make(map[string]int)
	}

	for col := 0; col < width; col++ {
		var nonEmpty, dates, amounts, letters, runes int
		var textLen int

		for _, row := range rows {
			cell := strings.TrimSpace(cellAt(row, col))
			if cell == "" {
				continue
			}
			nonEmpty++
			textLen += len(cell)

			for _, r := range cell {
				runes++
				if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
					letters++
				}
			}

			if layout := matchDateLayout(cell); layout != "" {
				dates++
				layoutHits[col][layout]++
				recordSlashExclusivity(&stats[col], cell)
			}
			if _, err := ParseAmount(cell); err == nil {
				amounts++
				if strings.HasPrefix(cell, "(") {
					stats[col].parenSeen = true
				}
			}
		}

		if nonEmpty == 0 {
			stats[col].emptyFraction = 1
			continue
		}
		stats[col].dateFraction = float64(dates) / float64(nonEmpty)
		stats[col].amountFraction = float64(amounts) / float64(nonEmpty)
		stats[col].avgTextLen = float64(textLen) / float64(nonEmpty)
		stats[col].emptyFraction = 1 - float64(nonEmpty)/float64(len(rows))
		if runes > 0 {
			stats[col].letterFraction = float64(letters) / float64(runes)
		}

		best, bestHits := "", 0
		for layout, hits := range layoutHits[col] {
			if hits > bestHits {
				best, bestHits = layout, hits
			}
		}
		stats[col].bestDateLayout = best
	}

	return stats
}

func matchDateLayout(cell string) string {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, cell); err == nil {
			return layout
		}
	}
	return ""
}

// recordSlashExclusivity notes slash-separated dates that only parse under
// one of the two slash layouts. Those cells decide month-first vs
// day-first; cells valid under both decide nothing.
func recordSlashExclusivity(cs *columnStats, cell string) {
	_, mmErr := time.Parse("01/02/2006", cell)
	_, ddErr := time.Parse("02/01/2006", cell)
	switch {
	case mmErr == nil && ddErr != nil:
		cs.mmddExclusive++
	case mmErr != nil && ddErr == nil:
		cs.ddmmExclusive++
	}
}

func resolveDateColumn(f *model.DetectedFormat, headers []string, stats []columnStats) float64 {
	col := headerMatch(headers, "date")
	headerHit := col >= 0

	if col < 0 || stats[col].dateFraction < 0.5 {
		col = -1
		best := 0.0
		for i := range stats {
			if stats[i].dateFraction > best && stats[i].dateFraction >= 0.6 {
				best = stats[i].dateFraction
				col = i
			}
		}
	}
	if col < 0 {
		return 0
	}

	f.DateColumn = &col
	layout := stats[col].bestDateLayout
	if layout == "" {
		layout = "2006-01-02"
	}

	conf := stats[col].dateFraction
	if headerHit {
		conf = clamp01(conf + 0.2)
	}

	// Slash-separated dates with both parts <= 12 in every sample cannot
	// distinguish month-first from day-first; default to month-first and
	// reduce confidence so the caller asks the user.
	if layout == "01/02/2006" || layout == "02/01/2006" {
		switch {
		case stats[col].ddmmExclusive > 0 && stats[col].mmddExclusive == 0:
			layout = "02/01/2006"
		case stats[col].mmddExclusive > 0 && stats[col].ddmmExclusive == 0:
			layout = "01/02/2006"
		default:
			layout = "01/02/2006"
			conf *= 0.8
		}
	}

	f.DateFormat = layout
	return conf
}

func resolveAmountColumns(f *model.DetectedFormat, headers []string, stats []columnStats) float64 {
	debit := headerMatch(headers, "debit")
	credit := headerMatch(headers, "credit")

	if debit >= 0 && credit >= 0 {
		f.DebitColumn = &debit
		f.CreditColumn = &credit
		f.AmountStyle = model.AmountSeparateColumns
		return 1
	}

	col := headerMatch(headers, "amount")
	headerHit := col >= 0
	if col < 0 || stats[col].amountFraction < 0.5 {
		col = -1
		best := 0.0
		for i := range stats {
			// Skip the detected date column; numeric-looking dates confuse this.
			if f.DateColumn != nil && i == *f.DateColumn {
				continue
			}
			if stats[i].amountFraction > best && stats[i].amountFraction >= 0.6 {
				best = stats[i].amountFraction
				col = i
			}
		}
	}
	if col < 0 {
		return 0
	}

	f.AmountColumn = &col
	if stats[col].parenSeen {
		f.AmountStyle = model.AmountParenthesesNegative
	} else {
		f.AmountStyle = model.AmountSigned
	}

	conf := stats[col].amountFraction
	if headerHit {
		conf = clamp01(conf + 0.2)
	}
	return conf
}

func resolveDescriptionColumn(f *model.DetectedFormat, headers []string, stats []columnStats) float64 {
	col := headerMatch(headers, "description")
	if col >= 0 {
		f.DescriptionColumn = &col
		return 1
	}

	// Fall back to the most text-heavy column that is neither the date
	// nor an amount column.
	col = -1
	best := 0.0
	for i := range stats {
		if f.DateColumn != nil && i == *f.DateColumn {
			continue
		}
		if f.AmountColumn != nil && i == *f.AmountColumn {
			continue
		}
		score := stats[i].letterFraction * stats[i].avgTextLen
		if score > best {
			best = score
			col = i
		}
	}
	if col < 0 || stats[col].letterFraction < 0.3 {
		return 0
	}

	f.DescriptionColumn = &col
	return 0.6
}

func resolveAuxColumns(f *model.DetectedFormat, headers []string) {
	if col := headerMatch(headers, "balance"); col >= 0 {
		f.BalanceColumn = &col
	}
	if col := headerMatch(headers, "category"); col >= 0 {
		f.CategoryColumn = &col
	}
}

func headerMatch(headers []string, role string) int {
	keywords := headerKeywords[role]
	for i, h := range headers {
		normalized := strings.ToLower(strings.TrimSpace(h))
		for _, kw := range keywords {
			if normalized == kw || strings.Contains(normalized, kw) {
				return i
			}
		}
	}
	return -1
}

func guessSource(headers []string) string {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}
	joined := "|" + strings.Join(normalized, "|") + "|"

	for _, sig := range sourceSignatures {
		all := true
		for _, h := range sig.headers {
			if !strings.Contains(joined, "|"+h+"|") {
				all = false
				break
			}
		}
		if all {
			return sig.source
		}
	}
	return ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FileTypeFor maps a filename extension to a supported FileType.
func FileTypeFor(filename string) (model.FileType, bool) {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return "", false
	}
	switch strings.ToLower(filename[idx+1:]) {
	case "csv":
		return model.FileCSV, true
	case "ofx":
		return model.FileOFX, true
	case "qfx":
		return model.FileQFX, true
	default:
		return "", false
	}
}
