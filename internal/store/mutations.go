package store

import (
	"context"
	"fmt"

	"tally/internal/core"
	"tally/internal/dateutil"
)

// TransactionInput is what the user types in: dollar amounts as decimal
// strings, outflows positive.
type TransactionInput struct {
	AccountID  string `json:"account_id"`
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Date       string `json:"date"`
	Merchant   string `json:"merchant"`
	Notes      string `json:"notes"`
}

type AccountInput struct {
	Name     string           `json:"name"`
	Type     core.AccountType `json:"type"`
	Last4    string           `json:"last4"`
	Currency string           `json:"currency"`
}

type CategoryInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type IncomeInput struct {
	Source     string `json:"source"`
	ReceivedAt string `json:"received_at"`
	Amount     string `json:"amount"`
	AccountID  string `json:"account_id"`
}

type DebtInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Amount      string          `json:"amount"`
	Currency    string          `json:"currency"`
	Type        core.DebtType   `json:"debt_type"`
	PersonName  string          `json:"person_name"`
	CompanyName string          `json:"company_name"`
	DueDate     string          `json:"due_date"`
	Status      core.DebtStatus `json:"status"`
}

func (s *Store) buildTransaction(in TransactionInput) (core.Transaction, error) {
	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return core.Transaction{}, err
	}

	currency := in.Currency
	if currency == "" {
		if a, ok := s.AccountByID(in.AccountID); ok && a.Currency != "" {
			currency = a.Currency
		} else {
			currency = core.DefaultCurrency
		}
	}

	date := in.Date
	if date == "" {
		date = dateutil.TodayISO()
	}

	t := core.Transaction{
		UserID:      s.userID,
		AccountID:   in.AccountID,
		CategoryID:  in.CategoryID,
		AmountCents: cents,
		Currency:    currency,
		Date:        date,
		Merchant:    in.Merchant,
		Notes:       in.Notes,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (s *Store) AddTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	t, err := s.buildTransaction(in)
	if err != nil {
		return core.Transaction{}, err
	}

	created, err := s.backend.InsertTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	if err := s.RefreshTransactions(ctx); err != nil {
		return created, err
	}
	s.publish(ctx, EntityTransaction, created.ID, "created")
	return created, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, id string, in TransactionInput) error {
	t, err := s.buildTransaction(in)
	if err != nil {
		return err
	}
	t.ID = id

	if err := s.backend.UpsertTransaction(ctx, t); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	if err := s.RefreshTransactions(ctx); err != nil {
		return err
	}
	s.publish(ctx, EntityTransaction, id, "updated")
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.backend.DeleteTransaction(ctx, s.userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if err := s.RefreshTransactions(ctx); err != nil {
		return err
	}
	s.publish(ctx, EntityTransaction, id, "deleted")
	return nil
}

func (s *Store) AddAccount(ctx context.Context, in AccountInput) (core.Account, error) {
	a := core.Account{
		UserID:   s.userID,
		Name:     in.Name,
		Type:     in.Type,
		Last4:    in.Last4,
		Currency: in.Currency,
	}
	if a.Currency == "" {
		a.Currency = core.DefaultCurrency
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	created, err := s.backend.InsertAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("add account: %w", err)
	}

	if err := s.RefreshAccounts(ctx); err != nil {
		return created, err
	}
	s.publish(ctx, EntityAccount, created.ID, "created")
	return created, nil
}

func (s *Store) UpdateAccount(ctx context.Context, id string, in AccountInput) error {
	a := core.Account{
		ID:       id,
		UserID:   s.userID,
		Name:     in.Name,
		Type:     in.Type,
		Last4:    in.Last4,
		Currency: in.Currency,
	}
	if a.Currency == "" {
		a.Currency = core.DefaultCurrency
	}
	if err := a.Validate(); err != nil {
		return err
	}

	if err := s.backend.UpdateAccount(ctx, a); err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	if err := s.RefreshAccounts(ctx); err != nil {
		return err
	}
	s.publish(ctx, EntityAccount, id, "updated")
	return nil
}

// DeleteAccount removes the account's transactions first, then the account.
// The steps are sequential, so a failure between them leaves the account in
// place with no transactions; the error says which step failed.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	if err := s.backend.DeleteTransactionsByAccount(ctx, s.userID, id); err != nil {
		return fmt.Errorf("delete account transactions: %w", err)
	}
	if err := s.backend.DeleteAccount(ctx, s.userID, id); err != nil {
		// Keep the cache honest about the transactions already gone.
		if rerr := s.RefreshTransactions(ctx); rerr != nil {
			s.logger.Warn("Failed to refresh transactions after partial account delete", "error", rerr)
		}
		return fmt.Errorf("delete account: %w", err)
	}

	if err := s.RefreshAccounts(ctx); err != nil {
		return err
	}
	if err := s.RefreshTransactions(ctx); err != nil {
		return err
	}
	s.publish(ctx, EntityAccount, id, "deleted")
	return nil
}

func (s *Store) AddCategory(ctx context.Context, in CategoryInput) (core.Category, error) {
	c := core.Category{UserID: s.userID, Name: in.Name, Color: in.Color}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	created, err := s.backend.InsertCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("add category: %w", err)
	}

	if err := s.RefreshCategories(ctx); err != nil {
		return created, err
	}
	s.publish(ctx, EntityCategory, created.ID, "created")
	return created, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id string, in CategoryInput) error {
	c := core.Category{ID: id, UserID: s.userID, Name: in.Name, Color: in.Color}
	if err := c.Validate(); err != nil {
		return err
	}

	if err := s.backend.UpdateCategory(ctx, c); err != nil {
		return fmt.Errorf("update category: %w", err)
	}

	if err := s.RefreshCategories(ctx); err != nil {
		return err
	}
	s.publish(ctx, EntityCategory, id, "updated")
	return nil
}

// DeleteCategory nulls the category reference on the user's transactions
// before deleting the category, so the transactions survive.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	if err := s.backend.ClearTransactionCategory(ctx, s.userID, id); err != nil {
		return fmt.Errorf("clear category references: %w", err)
	}
	if err := s.backend.DeleteCategory(ctx, s.userID, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	if err := s.RefreshCategories(ctx); err != nil {
		return err
	}
	if err := s.RefreshTransactions(ctx); err != nil {
		return err
	}
	s.publish(ctx, EntityCategory, id, "deleted")
	return nil
}

// SetPlanned upserts the allocation for a category in the active period.
// An empty or "0" amount clears the plan.
func (s *Store) SetPlanned(ctx context.Context, categoryID, planned string, rollover, sinking bool) error {
	var cents int64
	if planned != "" && planned != "0" {
		var err error
		cents, err = core.ParseDecimalToCents(planned)
		if err != nil {
			return err
		}
	}

	period := s.Period()
	if period.ID == "" {
		if err := s.RefreshBudget(ctx); err != nil {
			return err
		}
		period = s.Period()
	}

	a := core.BudgetAllocation{
		PeriodID:     period.ID,
		CategoryID:   categoryID,
		PlannedCents: cents,
		Rollover:     rollover,
		Sinking:      sinking,
	}
	if err := a.Validate(); err != nil {
		return err
	}

	if err := s.backend.UpsertAllocation(ctx, a); err != nil {
		return fmt.Errorf("set planned amount: %w", err)
	}

	if err := s.RefreshBudget(ctx); err != nil {
		return err
	}
	s.publish(ctx, EntityAllocation, categoryID, "updated")
	return nil
}

func (s *Store) AddIncome(ctx context.Context, in IncomeInput) (core.Income, error) {
	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return core.Income{}, err
	}

	period := s.Period()
	if period.ID == "" {
		if err := s.RefreshBudget(ctx); err != nil {
			return core.Income{}, err
		}
		period = s.Period()
	}

	income := core.Income{
		PeriodID:    period.ID,
		Source:      in.Source,
		ReceivedAt:  in.ReceivedAt,
		AmountCents: cents,
		AccountID:   in.AccountID,
	}
	if income.ReceivedAt == "" {
		income.ReceivedAt = dateutil.TodayISO()
	}
	if err := income.Validate(); err != nil {
		return core.Income{}, err
	}

	created, err := s.backend.InsertIncome(ctx, income)
	if err != nil {
		return core.Income{}, fmt.Errorf("add income: %w", err)
	}

	if err := s.RefreshBudget(ctx); err != nil {
		return created, err
	}
	s.publish(ctx, EntityIncome, created.ID, "created")
	return created, nil
}

func (s *Store) buildDebt(in DebtInput) (core.Debt, error) {
	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return core.Debt{}, err
	}

	currency := in.Currency
	if currency == "" {
		currency = core.DefaultCurrency
	}

	d := core.Debt{
		UserID:      s.userID,
		Title:       in.Title,
		Description: in.Description,
		AmountCents: cents,
		Currency:    currency,
		Type:        in.Type,
		PersonName:  in.PersonName,
		CompanyName: in.CompanyName,
		DueDate:     in.DueDate,
		Status:      in.Status,
	}
	if err := d.Validate(); err != nil {
		return core.Debt{}, err
	}
	return d, nil
}

func (s *Store) AddDebt(ctx context.Context, in DebtInput) (core.Debt, error) {
	d, err := s.buildDebt(in)
	if err != nil {
		return core.Debt{}, err
	}

	created, err := s.backend.InsertDebt(ctx, d)
	if err != nil {
		return core.Debt{}, fmt.Errorf("add debt: %w", err)
	}

	if err := s.RefreshDebts(ctx); err != nil {
		return created, err
	}
	s.publish(ctx, EntityDebt, created.ID, "created")
	return created, nil
}

func (s *Store) UpdateDebt(ctx context.Context, id string, in DebtInput) error {
	d, err := s.buildDebt(in)
	if err != nil {
		return err
	}
	d.ID = id

	if err := s.backend.UpsertDebt(ctx, d); err != nil {
		return fmt.Errorf("update debt: %w", err)
	}

	if err := s.RefreshDebts(ctx); err != nil {
		return err
	}
	s.publish(ctx, EntityDebt, id, "updated")
	return nil
}

func (s *Store) setDebtStatus(ctx context.Context, id string, status core.DebtStatus) error {
	if err := s.backend.UpdateDebtStatus(ctx, s.userID, id, status); err != nil {
		return fmt.Errorf("update debt status: %w", err)
	}

	if err := s.RefreshDebts(ctx); err != nil {
		return err
	}
	s.publish(ctx, EntityDebt, id, "updated")
	return nil
}

// SetDebtStatus moves a debt to any valid status.
func (s *Store) SetDebtStatus(ctx context.Context, id string, status core.DebtStatus) error {
	if !status.Valid() {
		return core.ErrInvalidStatus
	}
	return s.setDebtStatus(ctx, id, status)
}

func (s *Store) MarkDebtPaid(ctx context.Context, id string) error {
	return s.setDebtStatus(ctx, id, core.DebtPaid)
}

func (s *Store) MarkDebtPartiallyPaid(ctx context.Context, id string) error {
	return s.setDebtStatus(ctx, id, core.DebtPartiallyPaid)
}

func (s *Store) DeleteDebt(ctx context.Context, id string) error {
	if err := s.backend.DeleteDebt(ctx, s.userID, id); err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}

	if err := s.RefreshDebts(ctx); err != nil {
		return err
	}
	s.publish(ctx, EntityDebt, id, "deleted")
	return nil
}
