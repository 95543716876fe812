// Package ingest turns raw bank/card export files into canonical
// transaction rows. It contains the CSV and OFX readers, the amount
// parser, and the heuristic format detector.
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// FilePreview is the slice of a file shown to the user before confirming
// an import.
type FilePreview struct {
	Headers     []string
	PreviewRows [][]string
	RowCount    int
}

// ReadCSV reads an entire CSV export: header row plus data rows.
// The delimiter is sniffed from the header row (comma, semicolon, or tab)
// and a UTF-8 BOM is stripped. Rows that are entirely empty are dropped.
func ReadCSV(r io.Reader) ([]string, [][]string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})

	if len(bytes.TrimSpace(content)) == 0 {
		return nil, nil, nil
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = sniffDelimiter(content)
	reader.FieldsPerRecord = -1 // ragged exports are common
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	headers := records[0]
	rows := make([][]string, 0, len(records)-1)
	for _, row := range records[1:] {
		if isEmptyRow(row) {
			continue
		}
		rows = append(rows, row)
	}

	return headers, rows, nil
}

// Preview returns the headers, the first n data rows, and the total data
// row count of a CSV export.
func Preview(r io.Reader, n int) (FilePreview, error) {
	headers, rows, err := ReadCSV(r)
	if err != nil {
		return FilePreview{}, err
	}

	preview := rows
	if len(preview) > n {
		preview = preview[:n]
	}

	return FilePreview{
		Headers:     headers,
		PreviewRows: preview,
		RowCount:    len(rows),
	}, nil
}

func sniffDelimiter(content []byte) rune {
	line := content
	if idx := bytes.IndexByte(content, '\n'); idx >= 0 {
		line = content[:idx]
	}

	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, cand := range []byte{';', '\t'} {
		if c := bytes.Count(line, []byte{cand}); c > bestCount {
			best, bestCount = rune(cand), c
		}
	}
	return best
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
