// Package backend defines the remote data service boundary. Every entity is
// owned and mutated by the backend; the client only caches.
package backend

import (
	"context"

	"tally/internal/core"
)

// ErrNotFound is returned when a filtered select or targeted mutation
// matches no row.
var ErrNotFound = core.ErrNotFound

// Backend is the table-resource contract of the hosted data service:
// filter-select, insert, update, upsert and delete per entity, plus the
// idempotent budget-period procedure. All reads and targeted mutations are
// scoped to a user ID; the backend enforces ownership.
type Backend interface {
	// Accounts, ordered by name.
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	InsertAccount(ctx context.Context, a core.Account) (core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) error
	DeleteAccount(ctx context.Context, userID, id string) error

	// Categories, ordered by name.
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	InsertCategory(ctx context.Context, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, userID, id string) error
	// ClearTransactionCategory nulls the category reference on every
	// transaction pointing at it. Used before category deletion so the
	// transactions survive.
	ClearTransactionCategory(ctx context.Context, userID, categoryID string) error

	// Transactions within the inclusive date range.
	ListTransactions(ctx context.Context, userID, startISO, endISO string) ([]core.Transaction, error)
	InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpsertTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error
	// DeleteTransactionsByAccount removes every transaction on the account.
	// Used by the account-deletion cascade.
	DeleteTransactionsByAccount(ctx context.Context, userID, accountID string) error

	// EnsureBudgetPeriod creates-or-fetches the period row for the given
	// month (YYYY-MM-01). Idempotent.
	EnsureBudgetPeriod(ctx context.Context, userID, monthISO string) (core.BudgetPeriod, error)
	ListAllocations(ctx context.Context, periodID string) ([]core.BudgetAllocation, error)
	// UpsertAllocation merges on the (period, category) unique key.
	UpsertAllocation(ctx context.Context, a core.BudgetAllocation) error
	ListIncomes(ctx context.Context, periodID string) ([]core.Income, error)
	InsertIncome(ctx context.Context, in core.Income) (core.Income, error)

	// Debts, newest first.
	ListDebts(ctx context.Context, userID string) ([]core.Debt, error)
	InsertDebt(ctx context.Context, d core.Debt) (core.Debt, error)
	UpsertDebt(ctx context.Context, d core.Debt) error
	UpdateDebtStatus(ctx context.Context, userID, id string, status core.DebtStatus) error
	DeleteDebt(ctx context.Context, userID, id string) error

	Close() error
}

// Type selects a backend implementation.
type Type string

const (
	PostgresBackend Type = "postgres"
	SQLiteBackend   Type = "sqlite"
	MemoryBackend   Type = "memory"
)

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	switch t {
	case PostgresBackend, SQLiteBackend, MemoryBackend:
		return true
	}
	return false
}

// Config holds configuration for backend creation.
type Config struct {
	Type Type

	// Postgres specific
	PostgresURL string

	// SQLite specific
	SQLiteDBPath string
}
