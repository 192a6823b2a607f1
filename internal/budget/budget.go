// Package budget derives per-category and overall budget figures from the
// period's allocations, incomes and the transactions in the active range.
//
// Sign convention: outflows are stored as positive amounts, so spending per
// category sums the positive transaction amounts and ignores inflows.
package budget

import (
	"math"
	"sort"
	"strings"

	"tally/internal/core"
)

// Row is one category line of the budget view. Categories without an
// allocation still get a row (IsNew=true, zero planned) so unbudgeted
// spending stays visible.
type Row struct {
	AllocationID   string `json:"allocation_id,omitempty"`
	CategoryID     string `json:"category_id"`
	CategoryName   string `json:"category_name"`
	PlannedCents   int64  `json:"planned_cents"`
	CarryoverCents int64  `json:"carryover_cents"`
	SpentCents     int64  `json:"spent_cents"`
	LeftCents      int64  `json:"left_cents"`
	PercentUsed    int    `json:"percent_used"`
	IsNew          bool   `json:"is_new"`
}

// Summary is the aggregated budget state for one period.
type Summary struct {
	IncomeCents     int64 `json:"income_cents"`
	PlannedCents    int64 `json:"planned_cents"`
	UnassignedCents int64 `json:"unassigned_cents"`
	Rows            []Row `json:"rows"`
}

// SpentByCategory groups outflow cents by category ID. Inflows (negative
// amounts) contribute nothing. Transactions whose category was deleted
// group under the empty key.
func SpentByCategory(txns []core.Transaction) map[string]int64 {
	m := make(map[string]int64)
	for _, t := range txns {
		if t.AmountCents > 0 {
			m[t.CategoryID] += t.AmountCents
		}
	}
	return m
}

// PercentUsed returns round(spent/available*100) capped at 100 for display,
// or 0 when nothing is available to spend against.
func PercentUsed(spentCents, availableCents int64) int {
	if availableCents <= 0 {
		return 0
	}
	p := int(math.Round(float64(spentCents) / float64(availableCents) * 100))
	if p > 100 {
		return 100
	}
	return p
}

// Summarize computes the full budget view: totals plus one row per category,
// sorted by category name.
func Summarize(categories []core.Category, allocations []core.BudgetAllocation, incomes []core.Income, txns []core.Transaction) Summary {
	spent := SpentByCategory(txns)

	byCategory := make(map[string]core.BudgetAllocation, len(allocations))
	var plannedTotal int64
	for _, a := range allocations {
		byCategory[a.CategoryID] = a
		plannedTotal += a.PlannedCents
	}

	var incomeTotal int64
	for _, in := range incomes {
		incomeTotal += in.AmountCents
	}

	rows := make([]Row, 0, len(categories))
	for _, c := range categories {
		row := Row{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			SpentCents:   spent[c.ID],
		}
		if a, ok := byCategory[c.ID]; ok {
			row.AllocationID = a.ID
			row.PlannedCents = a.PlannedCents
			row.CarryoverCents = a.CarryoverCents
		} else {
			row.IsNew = true
		}
		available := row.PlannedCents + row.CarryoverCents
		row.LeftCents = available - row.SpentCents
		row.PercentUsed = PercentUsed(row.SpentCents, available)
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return strings.ToLower(rows[i].CategoryName) < strings.ToLower(rows[j].CategoryName)
	})

	return Summary{
		IncomeCents:     incomeTotal,
		PlannedCents:    plannedTotal,
		UnassignedCents: incomeTotal - plannedTotal,
		Rows:            rows,
	}
}
