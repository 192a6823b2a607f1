package export

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"

	"tally/internal/core"
	"tally/internal/dateutil"
)

// TransactionsPDF renders a statement of the given transactions: one table
// row each plus a totals line. The range label describes the covered dates.
func TransactionsPDF(txns []core.Transaction, accounts, categories map[string]string, startISO, endISO string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Transaction Statement", false)
	pdf.AddPage()

	// The core fonts are cp1252, so UTF-8 text (accented merchants, the
	// en dash in the range label, currency symbols) must be translated or
	// it renders as mojibake.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Transaction Statement")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, tr(dateutil.RangeLabel(startISO, endISO)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(24, 7, "Date")
	pdf.Cell(56, 7, "Merchant")
	pdf.Cell(28, 7, "Amount")
	pdf.Cell(40, 7, "Account")
	pdf.Cell(40, 7, "Category")
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "", 11)
	for _, t := range txns {
		pdf.Cell(24, 7, t.Date)
		pdf.Cell(56, 7, tr(clip(t.Merchant, 32)))
		pdf.Cell(28, 7, core.FormatDecimal(t.AmountCents))
		pdf.Cell(40, 7, tr(clip(accounts[t.AccountID], 22)))
		pdf.Cell(40, 7, tr(clip(categories[t.CategoryID], 22)))
		pdf.Ln(7)
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Total: %s (%d transactions)",
		core.FormatCurrency(core.SumCents(txns), statementCurrency(txns)), len(txns))))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// statementCurrency picks the currency for the totals line: the first
// transaction's, or the default for an empty statement.
func statementCurrency(txns []core.Transaction) string {
	if len(txns) > 0 && txns[0].Currency != "" {
		return txns[0].Currency
	}
	return core.DefaultCurrency
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
