package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/backend"
	"tally/internal/backend/memory"
	"tally/internal/core"
	"tally/internal/dateutil"
	"tally/internal/events"
)

type capturePublisher struct {
	msgs []*events.EntityChangedMessage
}

func (p *capturePublisher) PublishEntityChanged(_ context.Context, msg *events.EntityChangedMessage) error {
	p.msgs = append(p.msgs, msg)
	return nil
}

func newTestStore(t *testing.T) (*Store, *memory.Store, *capturePublisher) {
	t.Helper()
	b := memory.New()
	pub := &capturePublisher{}
	return New(b, pub, nil, "user-1"), b, pub
}

func seedAccount(t *testing.T, s *Store, name string) core.Account {
	t.Helper()
	a, err := s.AddAccount(context.Background(), AccountInput{
		Name: name, Type: core.AccountDebit, Currency: "USD",
	})
	require.NoError(t, err)
	return a
}

func TestRefreshAll(t *testing.T) {
	s, b, _ := newTestStore(t)
	ctx := context.Background()

	_, err := b.InsertAccount(ctx, core.Account{UserID: "user-1", Name: "Chequing", Type: core.AccountDebit, Currency: "CAD"})
	require.NoError(t, err)
	_, err = b.InsertCategory(ctx, core.Category{UserID: "user-1", Name: "Food"})
	require.NoError(t, err)
	_, err = b.InsertDebt(ctx, core.Debt{
		UserID: "user-1", Title: "Lunch", PersonName: "Ana",
		AmountCents: 1500, Currency: "CAD", Type: core.DebtOwedToMe,
	})
	require.NoError(t, err)

	require.NoError(t, s.RefreshAll(ctx))

	assert.Len(t, s.Accounts(), 1)
	assert.Len(t, s.Categories(), 1)
	assert.Len(t, s.Debts(), 1)
	assert.NotEmpty(t, s.Period().ID)
	assert.Equal(t, dateutil.MonthOf(dateutil.TodayISO()), s.Period().Month)
}

func TestAddTransaction(t *testing.T) {
	s, _, pub := newTestStore(t)
	ctx := context.Background()
	acc := seedAccount(t, s, "Chequing")

	created, err := s.AddTransaction(ctx, TransactionInput{
		AccountID: acc.ID,
		Amount:    "12.34",
		Merchant:  "Cafe",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1234), created.AmountCents)
	assert.Equal(t, "USD", created.Currency, "currency should default to the account's")
	assert.Equal(t, dateutil.TodayISO(), created.Date)
	assert.Len(t, s.Transactions(), 1)

	last := pub.msgs[len(pub.msgs)-1]
	assert.Equal(t, EntityTransaction, last.Entity)
	assert.Equal(t, "created", last.Action)
	assert.Equal(t, "user-1", last.UserID)
}

func TestAddTransaction_InvalidAmount(t *testing.T) {
	s, _, _ := newTestStore(t)
	acc := seedAccount(t, s, "Chequing")

	_, err := s.AddTransaction(context.Background(), TransactionInput{
		AccountID: acc.ID,
		Amount:    "zero",
	})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Empty(t, s.Transactions())
}

func TestSetRange(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	acc := seedAccount(t, s, "Chequing")

	_, err := s.AddTransaction(ctx, TransactionInput{AccountID: acc.ID, Amount: "5", Date: "2025-03-10"})
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, TransactionInput{AccountID: acc.ID, Amount: "6", Date: "2025-04-02"})
	require.NoError(t, err)

	require.NoError(t, s.SetRange(ctx, "2025-03-01", "2025-03-31"))
	require.Len(t, s.Transactions(), 1)
	assert.Equal(t, "2025-03-10", s.Transactions()[0].Date)
	assert.Equal(t, "2025-03-01", s.Period().Month)

	t.Run("reversed bounds are swapped", func(t *testing.T) {
		require.NoError(t, s.SetRange(ctx, "2025-04-30", "2025-04-01"))
		start, end := s.Range()
		assert.Equal(t, "2025-04-01", start)
		assert.Equal(t, "2025-04-30", end)
		assert.Len(t, s.Transactions(), 1)
	})

	t.Run("malformed date rejected", func(t *testing.T) {
		err := s.SetRange(ctx, "2025-13-01", "2025-03-31")
		assert.ErrorIs(t, err, core.ErrInvalidDate)
	})
}

func TestDeleteAccountCascade(t *testing.T) {
	s, _, pub := newTestStore(t)
	ctx := context.Background()
	acc := seedAccount(t, s, "Chequing")
	other := seedAccount(t, s, "Savings")

	_, err := s.AddTransaction(ctx, TransactionInput{AccountID: acc.ID, Amount: "10"})
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, TransactionInput{AccountID: other.ID, Amount: "20"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteAccount(ctx, acc.ID))

	assert.Len(t, s.Accounts(), 1)
	require.Len(t, s.Transactions(), 1)
	assert.Equal(t, other.ID, s.Transactions()[0].AccountID)

	last := pub.msgs[len(pub.msgs)-1]
	assert.Equal(t, EntityAccount, last.Entity)
	assert.Equal(t, "deleted", last.Action)
}

func TestDeleteCategoryKeepsTransactions(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	acc := seedAccount(t, s, "Chequing")

	cat, err := s.AddCategory(ctx, CategoryInput{Name: "Food"})
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, TransactionInput{AccountID: acc.ID, CategoryID: cat.ID, Amount: "10"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteCategory(ctx, cat.ID))

	assert.Empty(t, s.Categories())
	require.Len(t, s.Transactions(), 1)
	assert.Empty(t, s.Transactions()[0].CategoryID, "transaction should survive with the category cleared")
}

func TestSetPlannedAndAddIncome(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	cat, err := s.AddCategory(ctx, CategoryInput{Name: "Food"})
	require.NoError(t, err)

	require.NoError(t, s.SetPlanned(ctx, cat.ID, "200", false, false))
	require.Len(t, s.Allocations(), 1)
	assert.Equal(t, int64(20000), s.Allocations()[0].PlannedCents)

	// Updating merges onto the same allocation.
	require.NoError(t, s.SetPlanned(ctx, cat.ID, "250.50", true, false))
	require.Len(t, s.Allocations(), 1)
	assert.Equal(t, int64(25050), s.Allocations()[0].PlannedCents)
	assert.True(t, s.Allocations()[0].Rollover)

	// Clearing the plan keeps the row at zero.
	require.NoError(t, s.SetPlanned(ctx, cat.ID, "0", false, false))
	require.Len(t, s.Allocations(), 1)
	assert.Zero(t, s.Allocations()[0].PlannedCents)

	income, err := s.AddIncome(ctx, IncomeInput{Source: "Payroll", Amount: "1500"})
	require.NoError(t, err)
	assert.Equal(t, int64(150000), income.AmountCents)
	assert.Equal(t, s.Period().ID, income.PeriodID)
	assert.Len(t, s.Incomes(), 1)
}

func TestDebtLifecycle(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	d, err := s.AddDebt(ctx, DebtInput{
		Title:      "Rent split",
		Amount:     "450",
		Type:       core.DebtIOwe,
		PersonName: "Max",
	})
	require.NoError(t, err)
	assert.Equal(t, core.DebtPending, d.Status)
	assert.Equal(t, core.DefaultCurrency, d.Currency)

	require.NoError(t, s.MarkDebtPartiallyPaid(ctx, d.ID))
	assert.Equal(t, core.DebtPartiallyPaid, s.Debts()[0].Status)

	require.NoError(t, s.MarkDebtPaid(ctx, d.ID))
	assert.Equal(t, core.DebtPaid, s.Debts()[0].Status)

	require.NoError(t, s.DeleteDebt(ctx, d.ID))
	assert.Empty(t, s.Debts())
}

// hookBackend lets a test run code after a ListTransactions call has read
// its result but before that result reaches the caller, simulating an
// in-flight fetch being overtaken.
type hookBackend struct {
	backend.Backend
	onListTransactions func()
}

func (h *hookBackend) ListTransactions(ctx context.Context, userID, startISO, endISO string) ([]core.Transaction, error) {
	out, err := h.Backend.ListTransactions(ctx, userID, startISO, endISO)
	if h.onListTransactions != nil {
		fn := h.onListTransactions
		h.onListTransactions = nil
		fn()
	}
	return out, err
}

func TestStaleFetchDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	hooked := &hookBackend{Backend: mem}
	s := New(hooked, nil, nil, "user-1")

	acc, err := mem.InsertAccount(ctx, core.Account{UserID: "user-1", Name: "Chequing", Type: core.AccountDebit, Currency: "CAD"})
	require.NoError(t, err)
	_, err = mem.InsertTransaction(ctx, core.Transaction{
		UserID: "user-1", AccountID: acc.ID, AmountCents: 100, Currency: "CAD", Date: dateutil.TodayISO(),
	})
	require.NoError(t, err)

	// While the first fetch is in flight, a new transaction lands and a
	// second fetch completes. The first fetch is stale by the time it
	// returns and must not clobber the two-row cache.
	hooked.onListTransactions = func() {
		_, err := mem.InsertTransaction(ctx, core.Transaction{
			UserID: "user-1", AccountID: acc.ID, AmountCents: 200, Currency: "CAD", Date: dateutil.TodayISO(),
		})
		require.NoError(t, err)
		require.NoError(t, s.RefreshTransactions(ctx))
	}

	require.NoError(t, s.RefreshTransactions(ctx))
	assert.Len(t, s.Transactions(), 2)
}
