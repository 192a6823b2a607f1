package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/core"
)

func TestSpentByCategoryIgnoresInflows(t *testing.T) {
	txns := []core.Transaction{
		{CategoryID: "food", AmountCents: 2500},
		{CategoryID: "food", AmountCents: 1000},
		{CategoryID: "food", AmountCents: -500}, // refund, not spend
		{CategoryID: "gas", AmountCents: 4000},
		{CategoryID: "", AmountCents: 700}, // dangling category
	}
	m := SpentByCategory(txns)
	assert.Equal(t, int64(3500), m["food"])
	assert.Equal(t, int64(4000), m["gas"])
	assert.Equal(t, int64(700), m[""])
}

func TestPercentUsed(t *testing.T) {
	tests := []struct {
		name      string
		spent     int64
		available int64
		want      int
	}{
		{"no budget", 500, 0, 0},
		{"negative available", 500, -100, 0},
		{"half", 50, 100, 50},
		{"rounds", 333, 1000, 33},
		{"rounds up", 335, 1000, 34},
		{"capped at 100", 2000, 1000, 100},
		{"exactly full", 1000, 1000, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PercentUsed(tt.spent, tt.available))
		})
	}
}

func TestSummarizeTotals(t *testing.T) {
	allocations := []core.BudgetAllocation{
		{ID: "al-1", CategoryID: "food", PlannedCents: 40000, CarryoverCents: 1500},
		{ID: "al-2", CategoryID: "gas", PlannedCents: 15000},
	}
	incomes := []core.Income{
		{AmountCents: 50000},
		{AmountCents: 2500},
	}
	s := Summarize(nil, allocations, incomes, nil)

	assert.Equal(t, int64(52500), s.IncomeCents)
	assert.Equal(t, int64(55000), s.PlannedCents)
	// unassigned may be negative, signaling over-allocation
	assert.Equal(t, int64(-2500), s.UnassignedCents)
}

func TestSummarizeRows(t *testing.T) {
	categories := []core.Category{
		{ID: "gas", Name: "Transport"},
		{ID: "food", Name: "Food"},
		{ID: "fun", Name: "Entertainment"},
	}
	allocations := []core.BudgetAllocation{
		{ID: "al-1", CategoryID: "food", PlannedCents: 40000, CarryoverCents: 10000},
	}
	txns := []core.Transaction{
		{CategoryID: "food", AmountCents: 20000},
		{CategoryID: "fun", AmountCents: 3000},
	}

	s := Summarize(categories, allocations, nil, txns)
	require.Len(t, s.Rows, 3)

	// sorted by category name
	assert.Equal(t, "Entertainment", s.Rows[0].CategoryName)
	assert.Equal(t, "Food", s.Rows[1].CategoryName)
	assert.Equal(t, "Transport", s.Rows[2].CategoryName)

	fun := s.Rows[0]
	assert.True(t, fun.IsNew)
	assert.Empty(t, fun.AllocationID)
	assert.Equal(t, int64(0), fun.PlannedCents)
	assert.Equal(t, int64(3000), fun.SpentCents)
	assert.Equal(t, int64(-3000), fun.LeftCents)
	assert.Equal(t, 0, fun.PercentUsed) // nothing allocated

	food := s.Rows[1]
	assert.False(t, food.IsNew)
	assert.Equal(t, "al-1", food.AllocationID)
	assert.Equal(t, int64(50000-20000), food.LeftCents)
	assert.Equal(t, 40, food.PercentUsed)

	gas := s.Rows[2]
	assert.True(t, gas.IsNew)
	assert.Equal(t, int64(0), gas.SpentCents)
}

func TestSummarizeOverBudgetRow(t *testing.T) {
	categories := []core.Category{{ID: "food", Name: "Food"}}
	allocations := []core.BudgetAllocation{
		{ID: "al-1", CategoryID: "food", PlannedCents: 1000},
	}
	txns := []core.Transaction{{CategoryID: "food", AmountCents: 2500}}

	s := Summarize(categories, allocations, nil, txns)
	require.Len(t, s.Rows, 1)
	assert.Equal(t, int64(-1500), s.Rows[0].LeftCents)
	assert.Equal(t, 100, s.Rows[0].PercentUsed)
}
