// Package memory is an in-memory data backend used by tests and local
// development. It mirrors the remote service's semantics, including the
// idempotent budget-period procedure and upsert merge keys.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tally/internal/core"
)

type Store struct {
	mu           sync.Mutex
	accounts     map[string]core.Account
	categories   map[string]core.Category
	transactions map[string]core.Transaction
	periods      map[string]core.BudgetPeriod
	allocations  map[string]core.BudgetAllocation
	incomes      map[string]core.Income
	debts        map[string]core.Debt
}

func New() *Store {
	return &Store{
		accounts:     make(map[string]core.Account),
		categories:   make(map[string]core.Category),
		transactions: make(map[string]core.Transaction),
		periods:      make(map[string]core.BudgetPeriod),
		allocations:  make(map[string]core.BudgetAllocation),
		incomes:      make(map[string]core.Income),
		debts:        make(map[string]core.Debt),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) InsertAccount(ctx context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = uuid.NewString()
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) UpdateAccount(ctx context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.accounts[a.ID]
	if !ok || cur.UserID != a.UserID {
		return core.ErrNotFound
	}
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.accounts[id]
	if !ok || cur.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) InsertCategory(ctx context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = uuid.NewString()
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.categories[c.ID]
	if !ok || cur.UserID != c.UserID {
		return core.ErrNotFound
	}
	s.categories[c.ID] = c
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.categories[id]
	if !ok || cur.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) ClearTransactionCategory(ctx context.Context, userID, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.transactions {
		if t.UserID == userID && t.CategoryID == categoryID {
			t.CategoryID = ""
			s.transactions[id] = t
		}
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, userID, startISO, endISO string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, t := range s.transactions {
		if t.UserID != userID {
			continue
		}
		if t.Date < startISO || t.Date > endISO {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = uuid.NewString()
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) UpsertTransaction(ctx context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.transactions[t.ID]; ok && cur.UserID != t.UserID {
		return core.ErrNotFound
	}
	s.transactions[t.ID] = t
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.transactions[id]
	if !ok || cur.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) DeleteTransactionsByAccount(ctx context.Context, userID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.transactions {
		if t.UserID == userID && t.AccountID == accountID {
			delete(s.transactions, id)
		}
	}
	return nil
}

func (s *Store) EnsureBudgetPeriod(ctx context.Context, userID, monthISO string) (core.BudgetPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.periods {
		if p.UserID == userID && p.Month == monthISO {
			return p, nil
		}
	}
	p := core.BudgetPeriod{
		ID:       uuid.NewString(),
		UserID:   userID,
		Month:    monthISO,
		Currency: core.DefaultCurrency,
	}
	s.periods[p.ID] = p
	return p, nil
}

func (s *Store) ListAllocations(ctx context.Context, periodID string) ([]core.BudgetAllocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.BudgetAllocation
	for _, a := range s.allocations {
		if a.PeriodID == periodID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

func (s *Store) UpsertAllocation(ctx context.Context, a core.BudgetAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Merge on the (period, category) unique key.
	for id, cur := range s.allocations {
		if cur.PeriodID == a.PeriodID && cur.CategoryID == a.CategoryID {
			cur.PlannedCents = a.PlannedCents
			cur.Rollover = a.Rollover
			cur.Sinking = a.Sinking
			s.allocations[id] = cur
			return nil
		}
	}
	a.ID = uuid.NewString()
	s.allocations[a.ID] = a
	return nil
}

func (s *Store) ListIncomes(ctx context.Context, periodID string) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Income
	for _, in := range s.incomes {
		if in.PeriodID == periodID {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt < out[j].ReceivedAt })
	return out, nil
}

func (s *Store) InsertIncome(ctx context.Context, in core.Income) (core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in.ID = uuid.NewString()
	in.Source = strings.TrimSpace(in.Source)
	s.incomes[in.ID] = in
	return in, nil
}

func (s *Store) ListDebts(ctx context.Context, userID string) ([]core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Debt
	for _, d := range s.debts {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) InsertDebt(ctx context.Context, d core.Debt) (core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.ID = uuid.NewString()
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.Status == "" {
		d.Status = core.DebtPending
	}
	s.debts[d.ID] = d
	return d, nil
}

func (s *Store) UpsertDebt(ctx context.Context, d core.Debt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.debts[d.ID]; ok {
		if cur.UserID != d.UserID {
			return core.ErrNotFound
		}
		d.CreatedAt = cur.CreatedAt
	} else if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	d.UpdatedAt = time.Now()
	s.debts[d.ID] = d
	return nil
}

func (s *Store) UpdateDebtStatus(ctx context.Context, userID, id string, status core.DebtStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.debts[id]
	if !ok || cur.UserID != userID {
		return core.ErrNotFound
	}
	cur.Status = status
	cur.UpdatedAt = time.Now()
	s.debts[id] = cur
	return nil
}

func (s *Store) DeleteDebt(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.debts[id]
	if !ok || cur.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.debts, id)
	return nil
}
