// Package core holds the domain entities shared by every other package.
//
// This file contains money parsing and formatting: decimal dollar strings to
// integer cents and cents back to localized currency strings.
package core

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ParseDecimalToCents converts a decimal dollar string to integer cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// performs half-up rounding on the third decimal place. A single leading
// minus sign is allowed so inflows can be recorded as negative amounts.
// Returns an error for malformed input or a zero amount.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("-7,5")   -> -750, nil
//	ParseDecimalToCents("12.346") -> 1235, nil (rounds up)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	// Split into integer and fractional part
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	if intPart == "0" && fracPart == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// Take first two fractional digits; then half-up rounding on third
	var fracCents int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents == 0 {
		return 0, ErrInvalidAmount
	}
	if neg {
		cents = -cents
	}
	return cents, nil
}

// FormatCurrency renders integer cents as a localized currency string,
// e.g. FormatCurrency(123456, "USD") -> "$1,234.56". Unknown currency codes
// fall back to the default currency.
func FormatCurrency(cents int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit, _ = currency.ParseISO(DefaultCurrency)
	}
	neg := cents < 0
	if neg {
		cents = -cents
	}
	p := message.NewPrinter(language.English)
	s := p.Sprintf("%v%.2f", currency.Symbol(unit), float64(cents)/100)
	if neg {
		return "-" + s
	}
	return s
}

// FormatDecimal renders integer cents as a plain unsigned-style decimal
// string with two fraction digits and no grouping, e.g. -1234 -> "-12.34".
// Used by exports where locale formatting would break downstream parsers.
func FormatDecimal(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
