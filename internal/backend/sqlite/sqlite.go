// Package sqlite is a local data backend for offline use, backed by a
// CGO-free SQLite database with embedded schema migrations.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tally/internal/core"
)

type Repository struct {
	db *sql.DB
}

func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// nullable maps the empty string to NULL on write.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func str(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func (r *Repository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, last4, currency FROM accounts WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		var last4 sql.NullString
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &last4, &a.Currency); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Last4 = str(last4)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) InsertAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, type, last4, currency) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.Type, nullable(a.Last4), a.Currency)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	slog.InfoContext(ctx, "Account saved", "id", a.ID, "name", a.Name)
	return a, nil
}

func (r *Repository) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, type = ?, last4 = ?, currency = ? WHERE id = ? AND user_id = ?`,
		a.Name, a.Type, nullable(a.Last4), a.Currency, a.ID, a.UserID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) DeleteAccount(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, color FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var color sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Color = str(color)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) InsertCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, color) VALUES (?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, nullable(c.Color))
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, color = ? WHERE id = ? AND user_id = ?`,
		c.Name, nullable(c.Color), c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) DeleteCategory(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) ClearTransactionCategory(ctx context.Context, userID, categoryID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = NULL WHERE user_id = ? AND category_id = ?`,
		userID, categoryID)
	if err != nil {
		return fmt.Errorf("clear transaction category: %w", err)
	}
	return nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID, startISO, endISO string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, account_id, category_id, amount_cents, currency, date, merchant, notes
		 FROM transactions
		 WHERE user_id = ? AND date >= ? AND date <= ?
		 ORDER BY date DESC, id`,
		userID, startISO, endISO)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var categoryID, merchant, notes sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.AccountID, &categoryID,
			&t.AmountCents, &t.Currency, &t.Date, &merchant, &notes); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.CategoryID = str(categoryID)
		t.Merchant = str(merchant)
		t.Notes = str(notes)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, account_id, category_id, amount_cents, currency, date, merchant, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.AccountID, nullable(t.CategoryID), t.AmountCents, t.Currency, t.Date,
		nullable(t.Merchant), nullable(t.Notes))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID, "amount_cents", t.AmountCents, "date", t.Date)
	return t, nil
}

func (r *Repository) UpsertTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, account_id, category_id, amount_cents, currency, date, merchant, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   account_id = excluded.account_id,
		   category_id = excluded.category_id,
		   amount_cents = excluded.amount_cents,
		   currency = excluded.currency,
		   date = excluded.date,
		   merchant = excluded.merchant,
		   notes = excluded.notes
		 WHERE transactions.user_id = excluded.user_id`,
		t.ID, t.UserID, t.AccountID, nullable(t.CategoryID), t.AmountCents, t.Currency, t.Date,
		nullable(t.Merchant), nullable(t.Notes))
	if err != nil {
		return fmt.Errorf("upsert transaction: %w", err)
	}
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) DeleteTransactionsByAccount(ctx context.Context, userID, accountID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = ? AND account_id = ?`, userID, accountID)
	if err != nil {
		return fmt.Errorf("delete transactions by account: %w", err)
	}
	return nil
}

func (r *Repository) EnsureBudgetPeriod(ctx context.Context, userID, monthISO string) (core.BudgetPeriod, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budget_periods (id, user_id, month, currency) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, month) DO NOTHING`,
		uuid.NewString(), userID, monthISO, core.DefaultCurrency)
	if err != nil {
		return core.BudgetPeriod{}, fmt.Errorf("ensure budget period: %w", err)
	}

	var p core.BudgetPeriod
	err = r.db.QueryRowContext(ctx,
		`SELECT id, user_id, month, currency FROM budget_periods WHERE user_id = ? AND month = ?`,
		userID, monthISO).Scan(&p.ID, &p.UserID, &p.Month, &p.Currency)
	if err != nil {
		return core.BudgetPeriod{}, fmt.Errorf("fetch budget period: %w", err)
	}
	return p, nil
}

func (r *Repository) ListAllocations(ctx context.Context, periodID string) ([]core.BudgetAllocation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, period_id, category_id, planned_cents, rollover, is_sinking, carryover_cents
		 FROM budget_allocations WHERE period_id = ? ORDER BY category_id`, periodID)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetAllocation
	for rows.Next() {
		var a core.BudgetAllocation
		if err := rows.Scan(&a.ID, &a.PeriodID, &a.CategoryID,
			&a.PlannedCents, &a.Rollover, &a.Sinking, &a.CarryoverCents); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) UpsertAllocation(ctx context.Context, a core.BudgetAllocation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budget_allocations (id, period_id, category_id, planned_cents, rollover, is_sinking, carryover_cents)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (period_id, category_id) DO UPDATE SET
		   planned_cents = excluded.planned_cents,
		   rollover = excluded.rollover,
		   is_sinking = excluded.is_sinking`,
		uuid.NewString(), a.PeriodID, a.CategoryID, a.PlannedCents, a.Rollover, a.Sinking, a.CarryoverCents)
	if err != nil {
		return fmt.Errorf("upsert allocation: %w", err)
	}
	return nil
}

func (r *Repository) ListIncomes(ctx context.Context, periodID string) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, period_id, source, received_at, amount_cents, account_id
		 FROM incomes WHERE period_id = ? ORDER BY received_at`, periodID)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var in core.Income
		var accountID sql.NullString
		if err := rows.Scan(&in.ID, &in.PeriodID, &in.Source, &in.ReceivedAt, &in.AmountCents, &accountID); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		in.AccountID = str(accountID)
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *Repository) InsertIncome(ctx context.Context, in core.Income) (core.Income, error) {
	in.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (id, period_id, source, received_at, amount_cents, account_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.PeriodID, in.Source, in.ReceivedAt, in.AmountCents, nullable(in.AccountID))
	if err != nil {
		return core.Income{}, fmt.Errorf("insert income: %w", err)
	}
	return in, nil
}

func (r *Repository) ListDebts(ctx context.Context, userID string) ([]core.Debt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, description, amount_cents, currency, debt_type,
		        person_name, company_name, due_date, status, created_at, updated_at
		 FROM debts WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	var out []core.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDebt(rows *sql.Rows) (core.Debt, error) {
	var d core.Debt
	var description, companyName, dueDate sql.NullString
	var createdAt, updatedAt string
	if err := rows.Scan(&d.ID, &d.UserID, &d.Title, &description, &d.AmountCents, &d.Currency,
		&d.Type, &d.PersonName, &companyName, &dueDate, &d.Status, &createdAt, &updatedAt); err != nil {
		return core.Debt{}, fmt.Errorf("scan debt: %w", err)
	}
	d.Description = str(description)
	d.CompanyName = str(companyName)
	d.DueDate = str(dueDate)
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return d, nil
}

func (r *Repository) InsertDebt(ctx context.Context, d core.Debt) (core.Debt, error) {
	d.ID = uuid.NewString()
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.Status == "" {
		d.Status = core.DebtPending
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO debts (id, user_id, title, description, amount_cents, currency, debt_type,
		                    person_name, company_name, due_date, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.Title, nullable(d.Description), d.AmountCents, d.Currency, d.Type,
		d.PersonName, nullable(d.CompanyName), nullable(d.DueDate), d.Status,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return core.Debt{}, fmt.Errorf("insert debt: %w", err)
	}
	return d, nil
}

func (r *Repository) UpsertDebt(ctx context.Context, d core.Debt) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO debts (id, user_id, title, description, amount_cents, currency, debt_type,
		                    person_name, company_name, due_date, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   title = excluded.title,
		   description = excluded.description,
		   amount_cents = excluded.amount_cents,
		   currency = excluded.currency,
		   debt_type = excluded.debt_type,
		   person_name = excluded.person_name,
		   company_name = excluded.company_name,
		   due_date = excluded.due_date,
		   status = excluded.status,
		   updated_at = excluded.updated_at
		 WHERE debts.user_id = excluded.user_id`,
		d.ID, d.UserID, d.Title, nullable(d.Description), d.AmountCents, d.Currency, d.Type,
		d.PersonName, nullable(d.CompanyName), nullable(d.DueDate), d.Status,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert debt: %w", err)
	}
	return nil
}

func (r *Repository) UpdateDebtStatus(ctx context.Context, userID, id string, status core.DebtStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE debts SET status = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		status, time.Now().Format(time.RFC3339), id, userID)
	if err != nil {
		return fmt.Errorf("update debt status: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) DeleteDebt(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM debts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
