package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"12", 1200, true},
		{".5", 50, true},
		{"12.345", 1234, true}, // rounds down
		{"12.346", 1235, true}, // rounds up
		{"-7.50", -750, true},
		{"+3", 300, true},
		{"0", 0, false},
		{"0.00", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"--5", 0, false},
	}
	for i, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("case %d (%q): got %d, %v; want %d", i, tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d (%q): expected error", i, tc.in)
		}
	}
}

func TestFormatDecimal(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1234, "12.34"},
		{-1234, "-12.34"},
		{123456, "1234.56"},
	}
	for i, tc := range cases {
		if got := FormatDecimal(tc.cents); got != tc.want {
			t.Fatalf("case %d: FormatDecimal(%d) = %q, want %q", i, tc.cents, got, tc.want)
		}
	}
}

func TestFormatCurrencyUSD(t *testing.T) {
	if got := FormatCurrency(123456, "USD"); got != "$1,234.56" {
		t.Fatalf("FormatCurrency = %q", got)
	}
	if got := FormatCurrency(-50, "USD"); got != "-$0.50" {
		t.Fatalf("FormatCurrency negative = %q", got)
	}
}
