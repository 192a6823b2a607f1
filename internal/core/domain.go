package core

import (
	"errors"
	"strings"
	"time"
)

const (
	AccountCredit AccountType = "credit"
	AccountDebit  AccountType = "debit"
	AccountCash   AccountType = "cash"

	DebtOwedToMe DebtType = "owed_to_me"
	DebtIOwe     DebtType = "i_owe"

	DebtPending       DebtStatus = "pending"
	DebtPartiallyPaid DebtStatus = "partially_paid"
	DebtPaid          DebtStatus = "paid"
	DebtCancelled     DebtStatus = "cancelled"

	// DefaultCurrency is used whenever an account or debt does not carry one.
	DefaultCurrency = "CAD"
)

const dateLayout = "2006-01-02"

type (
	AccountType string
	DebtType    string
	DebtStatus  string

	Account struct {
		ID       string      `json:"id"`
		UserID   string      `json:"user_id"`
		Name     string      `json:"name"`
		Type     AccountType `json:"type"`
		Last4    string      `json:"last4,omitempty"`
		Currency string      `json:"currency"`
	}

	Category struct {
		ID     string `json:"id"`
		UserID string `json:"user_id"`
		Name   string `json:"name"`
		Color  string `json:"color,omitempty"`
	}

	Transaction struct {
		ID         string `json:"id"`
		UserID     string `json:"user_id"`
		AccountID  string `json:"account_id"`
		CategoryID string `json:"category_id,omitempty"` // empty when the category was deleted
		// AmountCents is always integer cents; outflows are stored positive.
		AmountCents int64  `json:"amount_cents"`
		Currency    string `json:"currency"`
		Date        string `json:"date"` // local calendar date, YYYY-MM-DD
		Merchant    string `json:"merchant,omitempty"`
		Notes       string `json:"notes,omitempty"`
	}

	BudgetPeriod struct {
		ID       string `json:"id"`
		UserID   string `json:"user_id"`
		Month    string `json:"month"` // first day of the month, YYYY-MM-01
		Currency string `json:"currency"`
	}

	BudgetAllocation struct {
		ID             string `json:"id"`
		PeriodID       string `json:"period_id"`
		CategoryID     string `json:"category_id"`
		PlannedCents   int64  `json:"planned_cents"`
		Rollover       bool   `json:"rollover"`
		Sinking        bool   `json:"is_sinking"`
		CarryoverCents int64  `json:"carryover_cents"`
	}

	Income struct {
		ID          string `json:"id"`
		PeriodID    string `json:"period_id"`
		Source      string `json:"source"`
		ReceivedAt  string `json:"received_at"` // YYYY-MM-DD
		AmountCents int64  `json:"amount_cents"`
		AccountID   string `json:"account_id,omitempty"`
	}

	Debt struct {
		ID          string     `json:"id"`
		UserID      string     `json:"user_id"`
		Title       string     `json:"title"`
		Description string     `json:"description,omitempty"`
		AmountCents int64      `json:"amount_cents"`
		Currency    string     `json:"currency"`
		Type        DebtType   `json:"debt_type"`
		PersonName  string     `json:"person_name"`
		CompanyName string     `json:"company_name,omitempty"`
		DueDate     string     `json:"due_date,omitempty"`
		Status      DebtStatus `json:"status"`
		CreatedAt   time.Time  `json:"created_at"`
		UpdatedAt   time.Time  `json:"updated_at"`
	}
)

var (
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidType     = errors.New("invalid type")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyAccount    = errors.New("empty account reference")
	ErrEmptyTitle      = errors.New("empty title")
	ErrEmptyPerson     = errors.New("empty counterparty name")
	ErrEmptySource     = errors.New("empty income source")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidCurrency = errors.New("invalid currency code")

	// ErrNotFound is returned by data backends when a filtered select or
	// targeted mutation matches no row.
	ErrNotFound = errors.New("not found")
)

// ValidDate reports whether s is a well-formed YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

func (t AccountType) Valid() bool {
	switch t {
	case AccountCredit, AccountDebit, AccountCash:
		return true
	}
	return false
}

func (t DebtType) Valid() bool {
	switch t {
	case DebtOwedToMe, DebtIOwe:
		return true
	}
	return false
}

func (s DebtStatus) Valid() bool {
	switch s {
	case DebtPending, DebtPartiallyPaid, DebtPaid, DebtCancelled:
		return true
	}
	return false
}

func validCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Type.Valid() {
		return ErrInvalidType
	}
	if len(a.Last4) > 4 {
		return errors.New("last4 must be at most 4 characters")
	}
	if a.Currency != "" && !validCurrency(a.Currency) {
		return ErrInvalidCurrency
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.AccountID == "" {
		return ErrEmptyAccount
	}
	if t.AmountCents == 0 {
		return ErrInvalidAmount
	}
	if !ValidDate(t.Date) {
		return ErrInvalidDate
	}
	if len(t.Merchant) > 200 {
		return errors.New("merchant too long (max 200 characters)")
	}
	if len(t.Notes) > 500 {
		return errors.New("notes too long (max 500 characters)")
	}
	return nil
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	if i.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if !ValidDate(i.ReceivedAt) {
		return ErrInvalidDate
	}
	return nil
}

func (a BudgetAllocation) Validate() error {
	if a.CategoryID == "" {
		return errors.New("empty category reference")
	}
	if a.PlannedCents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (d Debt) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(d.PersonName) == "" {
		return ErrEmptyPerson
	}
	if d.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if !d.Type.Valid() {
		return ErrInvalidType
	}
	if d.Status != "" && !d.Status.Valid() {
		return ErrInvalidStatus
	}
	if d.DueDate != "" && !ValidDate(d.DueDate) {
		return ErrInvalidDate
	}
	return nil
}

// SortNewest orders transactions newest first; ISO dates compare lexically.
func SortNewest(a, b Transaction) int {
	return strings.Compare(b.Date, a.Date)
}

// SumCents totals the amounts of the given transactions.
func SumCents(txns []Transaction) int64 {
	var s int64
	for _, t := range txns {
		s += t.AmountCents
	}
	return s
}
