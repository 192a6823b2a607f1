package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/auth"
	"tally/internal/backend/memory"
	"tally/internal/budget"
	"tally/internal/core"
	"tally/internal/prefs"
)

const testSecret = "unit-test-secret-0123456789"

type testServer struct {
	srv      *Server
	verifier *auth.Verifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	verifier := auth.NewVerifier(testSecret)
	prefStore, err := prefs.Open(t.TempDir())
	require.NoError(t, err)

	srv := NewServer(Options{
		Addr:     ":0",
		Backend:  memory.New(),
		Verifier: verifier,
		Prefs:    prefStore,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testServer{srv: srv, verifier: verifier}
}

func (ts *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := ts.verifier.IssueToken(userID, userID+"@example.com", time.Hour)
	require.NoError(t, err)
	return tok
}

// do runs one request through the full middleware chain.
func (ts *testServer) do(t *testing.T, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "", http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, "", http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "", http.MethodGet, "/api/accounts", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, "not-a-token", http.MethodGet, "/api/accounts", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccountCRUD(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "user-1")

	rec := ts.do(t, tok, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Chequing", "type": "debit", "currency": "CAD",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[core.Account](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Chequing", created.Name)

	rec = ts.do(t, tok, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	accounts := decodeBody[[]core.Account](t, rec)
	require.Len(t, accounts, 1)

	rec = ts.do(t, tok, http.MethodPut, "/api/accounts/"+created.ID, map[string]any{
		"name": "Daily", "type": "debit", "currency": "CAD",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, tok, http.MethodGet, "/api/accounts", nil)
	accounts = decodeBody[[]core.Account](t, rec)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Daily", accounts[0].Name)

	rec = ts.do(t, tok, http.MethodDelete, "/api/accounts/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, tok, http.MethodGet, "/api/accounts", nil)
	accounts = decodeBody[[]core.Account](t, rec)
	assert.Empty(t, accounts)
}

func TestAccountValidation(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "user-1")

	rec := ts.do(t, tok, http.MethodPost, "/api/accounts", map[string]any{
		"name": "", "type": "debit",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(t, tok, http.MethodPost, "/api/accounts", map[string]any{
		"name": "X", "type": "debit", "bogus_field": true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields should be rejected")
}

func TestTransactionsWithSearch(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "user-1")

	rec := ts.do(t, tok, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Visa", "type": "credit", "currency": "CAD",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	acc := decodeBody[core.Account](t, rec)

	for _, tx := range []map[string]any{
		{"account_id": acc.ID, "amount": "42.50", "merchant": "Walmart"},
		{"account_id": acc.ID, "amount": "8.00", "merchant": "Cafe Luna"},
	} {
		rec = ts.do(t, tok, http.MethodPost, "/api/transactions", tx)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = ts.do(t, tok, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeBody[transactionsResponse](t, rec)
	assert.Len(t, all.Transactions, 2)
	assert.NotEmpty(t, all.Start)

	rec = ts.do(t, tok, http.MethodGet, "/api/transactions?q=walmart", nil)
	filtered := decodeBody[transactionsResponse](t, rec)
	require.Len(t, filtered.Transactions, 1)
	assert.Equal(t, "Walmart", filtered.Transactions[0].Merchant)

	rec = ts.do(t, tok, http.MethodGet, "/api/transactions?q=%3E10", nil)
	filtered = decodeBody[transactionsResponse](t, rec)
	require.Len(t, filtered.Transactions, 1)
	assert.Equal(t, int64(4250), filtered.Transactions[0].AmountCents)
}

func TestTransactionsRejectBadRange(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "user-1")

	rec := ts.do(t, tok, http.MethodGet, "/api/transactions?start=2025-13-01&end=2025-13-31", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(t, tok, http.MethodGet, "/api/transactions?preset=fortnight", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBudgetViewAndInvalidation(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "user-1")

	rec := ts.do(t, tok, http.MethodPost, "/api/categories", map[string]any{"name": "Food"})
	require.Equal(t, http.StatusCreated, rec.Code)
	cat := decodeBody[core.Category](t, rec)

	rec = ts.do(t, tok, http.MethodPut, "/api/budget/planned", map[string]any{
		"category_id": cat.ID, "planned": "300",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, tok, http.MethodPost, "/api/incomes", map[string]any{
		"source": "Payroll", "amount": "2000",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, tok, http.MethodGet, "/api/budget", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody[budget.Summary](t, rec)
	assert.Equal(t, int64(200000), view.IncomeCents)
	assert.Equal(t, int64(30000), view.PlannedCents)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "Food", view.Rows[0].CategoryName)

	// A mutation must drop the cached view.
	rec = ts.do(t, tok, http.MethodPut, "/api/budget/planned", map[string]any{
		"category_id": cat.ID, "planned": "450",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, tok, http.MethodGet, "/api/budget", nil)
	view = decodeBody[budget.Summary](t, rec)
	assert.Equal(t, int64(45000), view.PlannedCents)
}

func TestBudgetViewNotPollutedByNarrowedRange(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "user-1")

	rec := ts.do(t, tok, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Chequing", "type": "debit", "currency": "CAD",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	acc := decodeBody[core.Account](t, rec)

	rec = ts.do(t, tok, http.MethodPost, "/api/categories", map[string]any{"name": "Food"})
	require.Equal(t, http.StatusCreated, rec.Code)
	cat := decodeBody[core.Category](t, rec)

	for _, tx := range []map[string]any{
		{"account_id": acc.ID, "category_id": cat.ID, "amount": "10", "date": "2025-08-05"},
		{"account_id": acc.ID, "category_id": cat.ID, "amount": "30", "date": "2025-08-20"},
	} {
		rec = ts.do(t, tok, http.MethodPost, "/api/transactions", tx)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	// Narrow the active range to the first week, then view the budget so a
	// partial-range summary lands in the cache.
	rec = ts.do(t, tok, http.MethodGet, "/api/transactions?start=2025-08-01&end=2025-08-07", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, tok, http.MethodGet, "/api/budget", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	partial := decodeBody[budget.Summary](t, rec)
	require.Len(t, partial.Rows, 1)
	assert.Equal(t, int64(1000), partial.Rows[0].SpentCents)

	// The explicit full-month view must not be served the cached
	// partial-range summary.
	rec = ts.do(t, tok, http.MethodGet, "/api/budget?month=2025-08", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	full := decodeBody[budget.Summary](t, rec)
	require.Len(t, full.Rows, 1)
	assert.Equal(t, int64(4000), full.Rows[0].SpentCents)
}

func TestBudgetViewRejectsBadMonth(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "user-1")

	rec := ts.do(t, tok, http.MethodGet, "/api/budget?month=March", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDebtStatusFlow(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "user-1")

	rec := ts.do(t, tok, http.MethodPost, "/api/debts", map[string]any{
		"title": "Rent split", "amount": "450", "debt_type": "i_owe", "person_name": "Max",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	debt := decodeBody[core.Debt](t, rec)
	assert.Equal(t, core.DebtPending, debt.Status)

	rec = ts.do(t, tok, http.MethodPost, "/api/debts/"+debt.ID+"/status", map[string]any{"status": "paid"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, tok, http.MethodGet, "/api/debts", nil)
	debts := decodeBody[[]core.Debt](t, rec)
	require.Len(t, debts, 1)
	assert.Equal(t, core.DebtPaid, debts[0].Status)

	rec = ts.do(t, tok, http.MethodPost, "/api/debts/"+debt.ID+"/status", map[string]any{"status": "shredded"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(t, tok, http.MethodPost, "/api/debts/no-such-id/status", map[string]any{"status": "paid"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportCSV(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "user-1")

	rec := ts.do(t, tok, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Visa", "type": "credit", "currency": "CAD",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	acc := decodeBody[core.Account](t, rec)

	rec = ts.do(t, tok, http.MethodPost, "/api/transactions", map[string]any{
		"account_id": acc.ID, "amount": "10", "merchant": "Cafe",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, tok, http.MethodGet, "/api/export/csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), "Cafe")
	assert.Contains(t, rec.Body.String(), "Visa")
}

func TestExportPDF(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "user-1")

	rec := ts.do(t, tok, http.MethodGet, "/api/export/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"), "body should be a PDF document")
}

func TestPrefsPerUser(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.token(t, "alice")
	bob := ts.token(t, "bob")

	rec := ts.do(t, alice, http.MethodPut, "/api/prefs/currency", map[string]any{"value": "EUR"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, alice, http.MethodGet, "/api/prefs", nil)
	got := decodeBody[map[string]string](t, rec)
	assert.Equal(t, map[string]string{"currency": "EUR"}, got)

	rec = ts.do(t, bob, http.MethodGet, "/api/prefs", nil)
	got = decodeBody[map[string]string](t, rec)
	assert.Empty(t, got)

	// An empty value clears the preference.
	rec = ts.do(t, alice, http.MethodPut, "/api/prefs/currency", map[string]any{"value": ""})
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, alice, http.MethodGet, "/api/prefs", nil)
	assert.Empty(t, decodeBody[map[string]string](t, rec))
}

func TestUsersAreIsolated(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.token(t, "alice")
	bob := ts.token(t, "bob")

	rec := ts.do(t, alice, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Private", "type": "debit",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	acc := decodeBody[core.Account](t, rec)

	rec = ts.do(t, bob, http.MethodGet, "/api/accounts", nil)
	assert.Empty(t, decodeBody[[]core.Account](t, rec))

	rec = ts.do(t, bob, http.MethodDelete, "/api/accounts/"+acc.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimitOnMutations(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "user-1")

	var limited bool
	for i := 0; i < 70; i++ {
		rec := ts.do(t, tok, http.MethodPost, "/api/categories", map[string]any{"name": "C"})
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
			break
		}
	}
	assert.True(t, limited, "mutations past the limit should get 429")

	// Reads are never rate limited.
	rec := ts.do(t, tok, http.MethodGet, "/api/categories", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "user-1")

	rec := ts.do(t, tok, http.MethodGet, "/api/accounts", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'none'", rec.Header().Get("Content-Security-Policy"))
}
