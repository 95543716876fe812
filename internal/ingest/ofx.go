package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

// ParseOFX reads an OFX/QFX statement and returns its transactions as
// parsed rows. Both bank and credit card statements are handled; the OFX
// sign convention (negative = debit) already matches the ledger's.
func ParseOFX(r io.Reader) ([]ParsedRow, []string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(string(content)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse ofx: %w", err)
	}

	var rows []ParsedRow
	var rowErrors []string

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			rows = appendOFXTransactions(rows, &rowErrors, stmt.BankTranList.Transactions)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			rows = appendOFXTransactions(rows, &rowErrors, stmt.BankTranList.Transactions)
		}
	}

	return rows, rowErrors, nil
}

func appendOFXTransactions(rows []ParsedRow, rowErrors *[]string, txns []ofxgo.Transaction) []ParsedRow {
	for _, tx := range txns {
		amount := decimal.NewFromBigRat(&tx.TrnAmt.Rat, 2)

		description := strings.TrimSpace(string(tx.Name))
		if tx.Payee != nil && tx.Payee.Name != "" {
			description = strings.TrimSpace(string(tx.Payee.Name))
		}
		if description == "" {
			description = strings.TrimSpace(string(tx.Memo))
		}
		if description == "" {
			*rowErrors = append(*rowErrors, fmt.Sprintf("transaction %s: empty description", tx.FiTID))
			continue
		}

		rows = append(rows, ParsedRow{
			Date:           tx.DtPosted.Time,
			Amount:         amount,
			RawDescription: description,
		})
	}
	return rows
}
