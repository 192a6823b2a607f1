// Package search implements the free-text transaction filter.
//
// A query is split on whitespace into tokens that must all match
// (conjunctive AND). Tokens come in three shapes:
//
//	>50  <=12.50  =3          amount filters against abs(amount), in dollars
//	cat:food  m:visa  n:tip   field-restricted text tokens
//	walmart                   plain text tokens, searched across all fields
//
// Short text tokens (1-2 characters) only match on word boundaries so that
// "a" does not match every merchant containing the letter.
package search

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"tally/internal/core"
)

// Lookup resolves an entity ID to its display name. Missing IDs resolve to
// the empty string, which matches nothing.
type Lookup map[string]string

var amountToken = regexp.MustCompile(`^(>=|<=|>|<|=)?([0-9]+(?:\.[0-9]{1,2})?)$`)

type field int

const (
	fieldAny field = iota
	fieldMerchant
	fieldNotes
	fieldAccount
	fieldCategory
)

var fieldPrefixes = map[string]field{
	"merchant": fieldMerchant,
	"m":        fieldMerchant,
	"note":     fieldNotes,
	"notes":    fieldNotes,
	"n":        fieldNotes,
	"acc":      fieldAccount,
	"account":  fieldAccount,
	"a":        fieldAccount,
	"cat":      fieldCategory,
	"category": fieldCategory,
	"c":        fieldCategory,
	"any":      fieldAny,
	"*":        fieldAny,
}

type amountFilter struct {
	op    string
	cents int64
}

// Matches reports whether tx satisfies every token of the free-text query.
// An empty query matches everything.
func Matches(tx core.Transaction, query string, accounts, categories Lookup) bool {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return true
	}

	hay := [5]string{} // indexed by field; fieldAny unused
	hay[fieldMerchant] = strings.ToLower(tx.Merchant)
	hay[fieldNotes] = strings.ToLower(tx.Notes)
	hay[fieldAccount] = strings.ToLower(accounts[tx.AccountID])
	if tx.CategoryID != "" {
		hay[fieldCategory] = strings.ToLower(categories[tx.CategoryID])
	}

	for _, tok := range tokens {
		if f, ok := parseAmountToken(tok); ok {
			if !f.compare(tx.AmountCents) {
				return false
			}
			continue
		}
		fld, needle := splitFieldToken(tok)
		if !matchText(hay, fld, needle) {
			return false
		}
	}
	return true
}

func tokenize(query string) []string {
	raw := strings.Fields(strings.ToLower(query))
	if len(raw) < 2 {
		return raw
	}
	seen := make(map[string]struct{}, len(raw))
	out := raw[:0]
	for _, t := range raw {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func parseAmountToken(tok string) (amountFilter, bool) {
	m := amountToken.FindStringSubmatch(tok)
	if m == nil {
		return amountFilter{}, false
	}
	op := m[1]
	if op == "" {
		op = "="
	}
	dollars, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return amountFilter{}, false
	}
	return amountFilter{op: op, cents: int64(math.Round(dollars * 100))}, true
}

func (f amountFilter) compare(amountCents int64) bool {
	a := amountCents
	if a < 0 {
		a = -a
	}
	switch f.op {
	case ">":
		return a > f.cents
	case "<":
		return a < f.cents
	case ">=":
		return a >= f.cents
	case "<=":
		return a <= f.cents
	default:
		return a == f.cents
	}
}

// splitFieldToken resolves an optional prefix:text restriction. Tokens with
// an unrecognized prefix are searched whole across all fields, colon
// included, so queries like "12:30" still behave as plain text.
func splitFieldToken(tok string) (field, string) {
	i := strings.IndexByte(tok, ':')
	if i <= 0 {
		return fieldAny, tok
	}
	if f, ok := fieldPrefixes[tok[:i]]; ok {
		return f, tok[i+1:]
	}
	return fieldAny, tok
}

func matchText(hay [5]string, fld field, needle string) bool {
	if needle == "" {
		return true
	}
	if fld != fieldAny {
		return matchOne(hay[fld], needle)
	}
	for f := fieldMerchant; f <= fieldCategory; f++ {
		if matchOne(hay[f], needle) {
			return true
		}
	}
	return false
}

// matchOne applies the length-sensitive matching rule: substrings for
// needles of three or more characters, whole words below that.
func matchOne(hay, needle string) bool {
	if hay == "" {
		return false
	}
	if len(needle) >= 3 {
		return strings.Contains(hay, needle)
	}
	return containsWord(hay, needle)
}

func containsWord(hay, needle string) bool {
	for from := 0; ; {
		i := strings.Index(hay[from:], needle)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(needle)
		if boundaryBefore(hay, start) && boundaryAfter(hay, end) {
			return true
		}
		from = start + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r := lastRune(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := firstRune(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func firstRune(s string) (rune, int) {
	for _, r := range s {
		return r, len(string(r))
	}
	return 0, 0
}

func lastRune(s string) rune {
	var last rune
	for _, r := range s {
		last = r
	}
	return last
}
