// Package store is the client-side data layer: a cache of the signed-in
// user's entities over a remote backend, plus every mutation the app
// performs. Mutations write through to the backend, re-fetch the affected
// cache, then notify other devices over the event bus.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"tally/internal/backend"
	"tally/internal/core"
	"tally/internal/dateutil"
	"tally/internal/events"
)

// Entity names carried in change events.
const (
	EntityAccount     = "account"
	EntityCategory    = "category"
	EntityTransaction = "transaction"
	EntityAllocation  = "allocation"
	EntityIncome      = "income"
	EntityDebt        = "debt"
)

// Date range presets.
const (
	PresetToday = "today"
	Preset7D    = "7d"
	PresetMonth = "month"
)

// Publisher sends change notifications after successful mutations.
// Publishing is best effort; failures are logged and swallowed.
type Publisher interface {
	PublishEntityChanged(ctx context.Context, msg *events.EntityChangedMessage) error
}

// Store caches one user's data. Safe for concurrent use.
type Store struct {
	backend backend.Backend
	pub     Publisher
	logger  *slog.Logger
	userID  string

	mu       sync.Mutex
	startISO string
	endISO   string

	accounts     []core.Account
	categories   []core.Category
	transactions []core.Transaction
	debts        []core.Debt
	period       core.BudgetPeriod
	allocations  []core.BudgetAllocation
	incomes      []core.Income

	accountByID  map[string]core.Account
	categoryByID map[string]core.Category

	// Per-entity fetch generations. A fetch that was superseded while its
	// backend call was in flight must not overwrite newer cache state.
	gen map[string]uint64
}

// New builds a store for one user. The publisher may be nil; the initial
// date range is the current month.
func New(b backend.Backend, pub Publisher, logger *slog.Logger, userID string) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend:      b,
		pub:          pub,
		logger:       logger,
		userID:       userID,
		startISO:     dateutil.StartOfMonthISO(""),
		endISO:       dateutil.EndOfMonthISO(""),
		accountByID:  make(map[string]core.Account),
		categoryByID: make(map[string]core.Category),
		gen:          make(map[string]uint64),
	}
}

func (s *Store) UserID() string { return s.userID }

// Range returns the active inclusive date range.
func (s *Store) Range() (startISO, endISO string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startISO, s.endISO
}

// Snapshot accessors. Slices are copies; callers may hold them across
// refreshes.

func (s *Store) Accounts() []core.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Account(nil), s.accounts...)
}

func (s *Store) Categories() []core.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.categories...)
}

func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.transactions...)
}

func (s *Store) Debts() []core.Debt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Debt(nil), s.debts...)
}

func (s *Store) Period() core.BudgetPeriod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period
}

func (s *Store) Allocations() []core.BudgetAllocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.BudgetAllocation(nil), s.allocations...)
}

func (s *Store) Incomes() []core.Income {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Income(nil), s.incomes...)
}

func (s *Store) AccountByID(id string) (core.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accountByID[id]
	return a, ok
}

func (s *Store) CategoryByID(id string) (core.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categoryByID[id]
	return c, ok
}

// AccountNames returns a lookup of account ID to display name.
func (s *Store) AccountNames() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.accountByID))
	for id, a := range s.accountByID {
		out[id] = a.Name
	}
	return out
}

// CategoryNames returns a lookup of category ID to display name.
func (s *Store) CategoryNames() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.categoryByID))
	for id, c := range s.categoryByID {
		out[id] = c.Name
	}
	return out
}

// RefreshAll re-fetches everything: accounts, categories and debts
// concurrently, then transactions and budget data for the active range.
func (s *Store) RefreshAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.RefreshAccounts(ctx) })
	g.Go(func() error { return s.RefreshCategories(ctx) })
	g.Go(func() error { return s.RefreshDebts(ctx) })
	if err := g.Wait(); err != nil {
		return err
	}
	if err := s.RefreshTransactions(ctx); err != nil {
		return err
	}
	return s.RefreshBudget(ctx)
}

// SetRange changes the active date range and re-fetches the transactions
// and budget data it covers.
func (s *Store) SetRange(ctx context.Context, startISO, endISO string) error {
	if !core.ValidDate(startISO) || !core.ValidDate(endISO) {
		return core.ErrInvalidDate
	}
	if startISO > endISO {
		startISO, endISO = endISO, startISO
	}

	s.mu.Lock()
	s.startISO = startISO
	s.endISO = endISO
	s.mu.Unlock()

	if err := s.RefreshTransactions(ctx); err != nil {
		return err
	}
	return s.RefreshBudget(ctx)
}

// SetPreset sets the range to a named preset anchored on today.
func (s *Store) SetPreset(ctx context.Context, preset string) error {
	today := dateutil.TodayISO()
	switch preset {
	case PresetToday:
		return s.SetRange(ctx, today, today)
	case Preset7D:
		start, err := dateutil.AddDaysISO(today, -6)
		if err != nil {
			return err
		}
		return s.SetRange(ctx, start, today)
	case PresetMonth:
		return s.SetRange(ctx, dateutil.StartOfMonthISO(today), dateutil.EndOfMonthISO(today))
	default:
		return fmt.Errorf("unknown range preset: %s", preset)
	}
}

func (s *Store) nextGen(entity string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen[entity]++
	return s.gen[entity]
}

// current reports whether gen is still the latest fetch for entity.
// Callers must hold s.mu.
func (s *Store) current(entity string, gen uint64) bool {
	return s.gen[entity] == gen
}

func (s *Store) RefreshAccounts(ctx context.Context) error {
	gen := s.nextGen(EntityAccount)
	list, err := s.backend.ListAccounts(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("refresh accounts: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(EntityAccount, gen) {
		return nil
	}
	s.accounts = list
	s.accountByID = make(map[string]core.Account, len(list))
	for _, a := range list {
		s.accountByID[a.ID] = a
	}
	return nil
}

func (s *Store) RefreshCategories(ctx context.Context) error {
	gen := s.nextGen(EntityCategory)
	list, err := s.backend.ListCategories(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("refresh categories: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(EntityCategory, gen) {
		return nil
	}
	s.categories = list
	s.categoryByID = make(map[string]core.Category, len(list))
	for _, c := range list {
		s.categoryByID[c.ID] = c
	}
	return nil
}

func (s *Store) RefreshTransactions(ctx context.Context) error {
	gen := s.nextGen(EntityTransaction)
	s.mu.Lock()
	start, end := s.startISO, s.endISO
	s.mu.Unlock()

	list, err := s.backend.ListTransactions(ctx, s.userID, start, end)
	if err != nil {
		return fmt.Errorf("refresh transactions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(EntityTransaction, gen) {
		return nil
	}
	s.transactions = list
	return nil
}

func (s *Store) RefreshDebts(ctx context.Context) error {
	gen := s.nextGen(EntityDebt)
	list, err := s.backend.ListDebts(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("refresh debts: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(EntityDebt, gen) {
		return nil
	}
	s.debts = list
	return nil
}

// RefreshBudget resolves the period for the range's start month and loads
// its allocations and incomes.
func (s *Store) RefreshBudget(ctx context.Context) error {
	gen := s.nextGen(EntityAllocation)
	s.mu.Lock()
	month := dateutil.MonthOf(s.startISO)
	s.mu.Unlock()

	period, err := s.backend.EnsureBudgetPeriod(ctx, s.userID, month)
	if err != nil {
		return fmt.Errorf("refresh budget period: %w", err)
	}
	allocations, err := s.backend.ListAllocations(ctx, period.ID)
	if err != nil {
		return fmt.Errorf("refresh allocations: %w", err)
	}
	incomes, err := s.backend.ListIncomes(ctx, period.ID)
	if err != nil {
		return fmt.Errorf("refresh incomes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(EntityAllocation, gen) {
		return nil
	}
	s.period = period
	s.allocations = allocations
	s.incomes = incomes
	return nil
}

func (s *Store) publish(ctx context.Context, entity, id, action string) {
	if s.pub == nil {
		return
	}
	msg := events.NewEntityChangedMessage(entity, id, action, s.userID)
	if err := s.pub.PublishEntityChanged(ctx, msg); err != nil {
		s.logger.Warn("Failed to publish change event",
			"entity", entity, "id", id, "action", action, "error", err)
	}
}
