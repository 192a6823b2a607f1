// Package export serializes the currently filtered transaction list for
// download, as CSV or as a PDF statement.
package export

import (
	"strings"

	"tally/internal/core"
)

// csvColumns is the fixed export column order.
var csvColumns = []string{"Date", "Merchant", "Amount", "Currency", "Account", "Category", "Notes"}

// TransactionsCSV renders transactions as CSV: header row, every field
// double-quoted, CRLF line endings. Amounts are plain decimals in dollars.
// Account and category IDs resolve through the given name lookups; dangling
// references render empty.
func TransactionsCSV(txns []core.Transaction, accounts, categories map[string]string) string {
	var b strings.Builder
	writeRow(&b, csvColumns)
	for _, t := range txns {
		b.WriteString("\r\n")
		writeRow(&b, []string{
			t.Date,
			t.Merchant,
			core.FormatDecimal(t.AmountCents),
			t.Currency,
			accounts[t.AccountID],
			categories[t.CategoryID],
			t.Notes,
		})
	}
	return b.String()
}

func writeRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
}
