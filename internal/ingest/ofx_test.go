package ingest_test

import (
	"strings"
	"testing"

	"github.com/spendah/spendah-backend/internal/ingest"
)

const bankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240201120000
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>000123456
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101
<DTEND>20240131
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115
<TRNAMT>-9.99
<FITID>001
<NAME>NETFLIX.COM
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240120
<TRNAMT>2500.00
<FITID>002
<NAME>ACME PAYROLL
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240125
<TRNAMT>-54.20
<FITID>003
<MEMO>ALBERT HEIJN 1342
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`

// TestParseOFX tests reading an OFX 1.x bank statement.
//
// WHY: OFX amounts carry their own sign and dates their own format, so
// the parser must pass both through untouched, and fall back to the memo
// field when a transaction has no name.
func TestParseOFX(t *testing.T) {
	rows, rowErrors, err := ingest.ParseOFX(strings.NewReader(bankOFX))
	if err != nil {
		t.Fatalf("ParseOFX() error = %v", err)
	}
	if len(rowErrors) != 0 {
		t.Errorf("rowErrors = %v, want none", rowErrors)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}

	if rows[0].RawDescription != "NETFLIX.COM" {
		t.Errorf("rows[0].RawDescription = %q, want NETFLIX.COM", rows[0].RawDescription)
	}
	if rows[0].Amount.String() != "-9.99" {
		t.Errorf("rows[0].Amount = %s, want -9.99", rows[0].Amount)
	}
	if y, m, d := rows[0].Date.Date(); y != 2024 || int(m) != 1 || d != 15 {
		t.Errorf("rows[0].Date = %v, want 2024-01-15", rows[0].Date)
	}

	if rows[1].Amount.Sign() <= 0 {
		t.Errorf("rows[1].Amount = %s, want positive credit", rows[1].Amount)
	}

	// No NAME element: the memo is the only description available.
	if rows[2].RawDescription != "ALBERT HEIJN 1342" {
		t.Errorf("rows[2].RawDescription = %q, want the memo text", rows[2].RawDescription)
	}
}

// TestParseOFX_Garbage tests that non-OFX input fails cleanly.
func TestParseOFX_Garbage(t *testing.T) {
	if _, _, err := ingest.ParseOFX(strings.NewReader("not an ofx file")); err == nil {
		t.Error("ParseOFX() on garbage input should fail")
	}
}
