package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"tally/internal/core"
)

var (
	accounts   = Lookup{"acc-1": "TD Visa", "acc-2": "Chequing"}
	categories = Lookup{"cat-1": "Food & Dining", "cat-2": "Transport"}
)

func tx(amountCents int64, merchant, notes, accountID, categoryID string) core.Transaction {
	return core.Transaction{
		ID:          "tx-1",
		AccountID:   accountID,
		CategoryID:  categoryID,
		AmountCents: amountCents,
		Merchant:    merchant,
		Notes:       notes,
		Date:        "2025-08-09",
	}
}

func TestEmptyQueryMatchesEverything(t *testing.T) {
	assert.True(t, Matches(tx(100, "", "", "acc-1", ""), "", accounts, categories))
	assert.True(t, Matches(tx(100, "", "", "acc-1", ""), "   ", accounts, categories))
}

func TestAmountFilters(t *testing.T) {
	amounts := []int64{-7500, -5000, -1, 0, 1, 4999, 5000, 5001, 12345}
	ops := []struct {
		q    string
		pred func(a int64) bool
	}{
		{">50", func(a int64) bool { return a > 5000 }},
		{"<50", func(a int64) bool { return a < 5000 }},
		{">=50", func(a int64) bool { return a >= 5000 }},
		{"<=50", func(a int64) bool { return a <= 5000 }},
		{"=50", func(a int64) bool { return a == 5000 }},
		{"50", func(a int64) bool { return a == 5000 }},
		{"=123.45", func(a int64) bool { return a == 12345 }},
	}
	for _, op := range ops {
		for _, amt := range amounts {
			abs := amt
			if abs < 0 {
				abs = -abs
			}
			got := Matches(tx(amt, "", "", "acc-1", ""), op.q, accounts, categories)
			assert.Equal(t, op.pred(abs), got,
				fmt.Sprintf("query %q against amount %d", op.q, amt))
		}
	}
}

func TestShortTokenWholeWordOnly(t *testing.T) {
	// 1-character query must only match on word boundaries
	assert.False(t, Matches(tx(1, "bank", "", "acc-1", ""), "a", nil, nil))
	assert.True(t, Matches(tx(1, "a gift", "", "acc-1", ""), "a", nil, nil))
	assert.True(t, Matches(tx(1, "gift (a)", "", "acc-1", ""), "a", nil, nil))

	// 2-character query behaves the same
	assert.False(t, Matches(tx(1, "abcd", "", "acc-1", ""), "ab", nil, nil))
	assert.True(t, Matches(tx(1, "ab cd", "", "acc-1", ""), "ab", nil, nil))
}

func TestLongTokenSubstring(t *testing.T) {
	assert.True(t, Matches(tx(1, "something", "", "acc-1", ""), "som", nil, nil))
	assert.True(t, Matches(tx(1, "Walmart Supercentre", "", "acc-1", ""), "walmart", nil, nil))
	assert.False(t, Matches(tx(1, "Costco", "", "acc-1", ""), "walmart", nil, nil))
}

func TestPlainTokenSearchesAllFields(t *testing.T) {
	// merchant, notes, account name, category name are all searched
	assert.True(t, Matches(tx(1, "Walmart", "", "acc-1", ""), "walmart", accounts, categories))
	assert.True(t, Matches(tx(1, "", "split with Sam", "acc-1", ""), "sam", accounts, categories))
	assert.True(t, Matches(tx(1, "", "", "acc-1", ""), "visa", accounts, categories))
	assert.True(t, Matches(tx(1, "", "", "acc-1", "cat-1"), "dining", accounts, categories))
}

func TestFieldPrefixRestrictsMatching(t *testing.T) {
	// merchant named "food" in an unrelated category must not match cat:food
	foodMerchant := tx(1, "Food Basics", "", "acc-1", "cat-2")
	assert.False(t, Matches(foodMerchant, "cat:food", accounts, categories))
	assert.True(t, Matches(foodMerchant, "m:food", accounts, categories))
	assert.True(t, Matches(foodMerchant, "merchant:food", accounts, categories))

	foodCategory := tx(1, "Subway", "", "acc-1", "cat-1")
	assert.True(t, Matches(foodCategory, "cat:food", accounts, categories))
	assert.True(t, Matches(foodCategory, "c:food", accounts, categories))
	assert.False(t, Matches(foodCategory, "m:food", accounts, categories))

	withNote := tx(1, "Subway", "lunch for two", "acc-1", "cat-1")
	assert.True(t, Matches(withNote, "n:lunch", accounts, categories))
	assert.True(t, Matches(withNote, "notes:lunch", accounts, categories))
	assert.False(t, Matches(withNote, "a:lunch", accounts, categories))
	assert.True(t, Matches(withNote, "acc:visa", accounts, categories))
	assert.True(t, Matches(withNote, "any:lunch", accounts, categories))
}

func TestUnrecognizedPrefixSearchedWhole(t *testing.T) {
	withNote := tx(1, "", "meeting at 12:30", "acc-1", "")
	assert.True(t, Matches(withNote, "12:30", accounts, categories))
	assert.False(t, Matches(withNote, "xyz:food", accounts, categories))
}

func TestDanglingCategoryNeverMatches(t *testing.T) {
	orphan := tx(1, "Subway", "", "acc-1", "")
	assert.False(t, Matches(orphan, "cat:food", accounts, categories))
}

func TestConjunctiveTokens(t *testing.T) {
	txn := tx(7500, "Farm Boy", "weekly groceries", "acc-1", "cat-1")
	assert.True(t, Matches(txn, ">50 cat:food", accounts, categories))
	assert.False(t, Matches(txn, ">100 cat:food", accounts, categories))
	assert.False(t, Matches(txn, ">50 cat:transport", accounts, categories))
	// duplicate tokens collapse
	assert.True(t, Matches(txn, "groceries groceries", accounts, categories))
}

func TestEndToEndScenario(t *testing.T) {
	txns := []core.Transaction{
		tx(7500, "Farm Boy", "", "acc-1", "cat-1"),    // >50, food
		tx(-7500, "Refund", "", "acc-1", "cat-1"),     // abs >50, food
		tx(2500, "Subway", "", "acc-1", "cat-1"),      // food but <=50
		tx(9900, "Gas Station", "", "acc-1", "cat-2"), // >50 but transport
	}
	var matched []core.Transaction
	for _, txn := range txns {
		if Matches(txn, ">50 cat:food", accounts, categories) {
			matched = append(matched, txn)
		}
	}
	if assert.Len(t, matched, 2) {
		assert.Equal(t, "Farm Boy", matched[0].Merchant)
		assert.Equal(t, "Refund", matched[1].Merchant)
	}
}
