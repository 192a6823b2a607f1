package export

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"tally/internal/core"
)

func TestTransactionsCSVExact(t *testing.T) {
	txns := []core.Transaction{
		{
			Date:        "2025-08-09",
			Merchant:    "Farm Boy",
			AmountCents: 7550,
			Currency:    "CAD",
			AccountID:   "acc-1",
			CategoryID:  "cat-1",
			Notes:       "weekly groceries",
		},
		{
			Date:        "2025-08-10",
			Merchant:    `Bob's "Diner"`,
			AmountCents: -1200,
			Currency:    "CAD",
			AccountID:   "acc-2",
			CategoryID:  "",
			Notes:       "",
		},
	}
	accounts := map[string]string{"acc-1": "TD Visa", "acc-2": "Chequing"}
	categories := map[string]string{"cat-1": "Food"}

	want := `"Date","Merchant","Amount","Currency","Account","Category","Notes"` + "\r\n" +
		`"2025-08-09","Farm Boy","75.50","CAD","TD Visa","Food","weekly groceries"` + "\r\n" +
		`"2025-08-10","Bob's ""Diner""","-12.00","CAD","Chequing","",""`

	assert.Equal(t, want, TransactionsCSV(txns, accounts, categories))
}

func TestTransactionsCSVEmpty(t *testing.T) {
	want := `"Date","Merchant","Amount","Currency","Account","Category","Notes"`
	assert.Equal(t, want, TransactionsCSV(nil, nil, nil))
}

func TestTransactionsPDFProducesOutput(t *testing.T) {
	txns := []core.Transaction{
		{Date: "2025-08-09", Merchant: "Farm Boy", AmountCents: 7550, AccountID: "acc-1"},
	}
	out, err := TransactionsPDF(txns, map[string]string{"acc-1": "TD Visa"}, nil, "2025-08-01", "2025-08-31")
	assert.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}

// A multi-day range label carries an en dash and merchants can be any
// UTF-8 text. The core fonts are cp1252, so both must be translated to
// single bytes before hitting the page stream or they render as mojibake.
func TestTransactionsPDFNonASCIIText(t *testing.T) {
	txns := []core.Transaction{
		{Date: "2025-08-09", Merchant: "Café Crème", AmountCents: 1250, Currency: "EUR", AccountID: "acc-1", CategoryID: "cat-1"},
	}
	accounts := map[string]string{"acc-1": "Compte Chèques"}
	categories := map[string]string{"cat-1": "Boulangerie"}

	out, err := TransactionsPDF(txns, accounts, categories, "2025-08-01", "2025-08-31")
	assert.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))

	content := inflateStreams(t, out)
	// Raw UTF-8 leaking through reads back byte-for-byte as mojibake.
	assert.NotContains(t, content, "\u00e2\u0080\u0093", "en dash written as raw UTF-8")
	assert.NotContains(t, content, "Caf\u00c3\u00a9", "merchant written as raw UTF-8")
	assert.Contains(t, content, "Café Crème")
	assert.Contains(t, content, "\u0096") // cp1252 en dash in the range label
}

// inflateStreams decompresses every flate stream in the document and
// returns the concatenated contents decoded byte-for-byte, so cp1252
// bytes are comparable as code points.
func inflateStreams(t *testing.T, pdf []byte) string {
	t.Helper()
	var content []rune
	rest := pdf
	for {
		i := bytes.Index(rest, []byte("stream\n"))
		if i < 0 {
			break
		}
		rest = rest[i+len("stream\n"):]
		j := bytes.Index(rest, []byte("endstream"))
		if j < 0 {
			break
		}
		if rc, err := zlib.NewReader(bytes.NewReader(rest[:j])); err == nil {
			if raw, err := io.ReadAll(rc); err == nil {
				for _, b := range raw {
					content = append(content, rune(b))
				}
			}
			rc.Close()
		}
		rest = rest[j:]
	}
	if len(content) == 0 {
		t.Fatal("no flate streams found in pdf output")
	}
	return string(content)
}
