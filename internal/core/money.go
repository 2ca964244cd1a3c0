// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings,
// splitting totals into installments and converting cents for display.
package core

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents. Ledger amounts are never fractional cents.
type Money struct {
	Cents int64
}

// Cents is a shorthand constructor.
func Cents(c int64) Money { return Money{Cents: c} }

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return Invalid("amount must be greater than zero")
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two decimals, e.g. "270.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Euros returns the value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

// MoneyFromDecimal rounds a currency-unit decimal half-up to cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Shift(2).Round(0).IntPart()}
}

// Split divides the total into count equal installments, each rounded
// half-up to the cent. The rounding remainder is not redistributed, so the
// installments may differ from the total by at most count cents.
func (m Money) Split(count int) []Money {
	if count < 1 {
		count = 1
	}
	per := MoneyFromDecimal(m.Decimal().Div(decimal.NewFromInt(int64(count))))
	out := make([]Money, count)
	for i := range out {
		out[i] = per
	}
	return out
}

// Ratio returns m / limit rounded to four decimals, or zero when the limit
// is not positive.
func (m Money) Ratio(limit Money) decimal.Decimal {
	if limit.Cents <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(m.Cents).DivRound(decimal.NewFromInt(limit.Cents), 4)
}

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//	ParseDecimalToCents("12.344") -> 1234, nil (rounds down)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, Invalid("amount is required")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, Invalid("amount %q must be a positive number", s)
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, Invalid("amount %q is not a number", s)
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return 0, Invalid("amount %q is not a number", s)
			}
		}
	}
	if parts[0] == "" {
		parts[0] = "0"
	}
	normalized := parts[0]
	if len(parts) == 2 && parts[1] != "" {
		normalized += "." + parts[1]
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0, Invalid("amount %q is not a number", s)
	}
	cents := MoneyFromDecimal(d).Cents
	if cents <= 0 {
		return 0, Invalid("amount must be greater than zero")
	}
	return cents, nil
}

// FormatCents renders cents as a plain decimal string, e.g. 12345 -> "123.45".
func FormatCents(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*m = Money{}
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return Invalid("amount %q is not a number", s)
	}
	*m = MoneyFromDecimal(d)
	return nil
}
