// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents so that storage-level increments stay exact.
// Conversions to and from decimal strings go through shopspring/decimal.
package core

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

var hundred = decimal.NewFromInt(100)

// maxCents keeps amounts well inside int64 after summing a year of entries.
const maxCents = int64(1) << 53

func Cents(c int64) Money { return Money{Cents: c} }

// ParseDecimalToCents converts a decimal string to cents with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Only strictly
// positive amounts are accepted.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,34")  -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	m, err := MoneyFromDecimal(d)
	if err != nil {
		return 0, err
	}
	if m.Cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return m.Cents, nil
}

// MoneyFromDecimal rounds d half away from zero to two fractional digits.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	c := d.Mul(hundred).Round(0)
	if c.Abs().GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: c.IntPart()}, nil
}

func MoneyFromFloat(f float64) (Money, error) {
	return MoneyFromDecimal(decimal.NewFromFloat(f))
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return NewValidationError("amount", "must be greater than zero")
	}
	if m.Cents > maxCents {
		return NewValidationError("amount", "too large")
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }

// String renders the amount with two fractional digits, e.g. "-12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Dollars renders the amount the way alert messages show it, e.g. "$1200.00".
func (m Money) Dollars() string {
	if m.Cents < 0 {
		return "-$" + m.Neg().String()
	}
	return "$" + m.String()
}

// Percentage returns part/whole*100 rounded to two decimals. A zero whole yields zero.
func Percentage(part, whole Money) decimal.Decimal {
	if whole.Cents == 0 {
		return decimal.Zero
	}
	return part.Decimal().Mul(hundred).Div(whole.Decimal()).Round(2)
}

// MarshalJSON encodes the amount as a JSON number with two fractional digits.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return NewValidationError("amount", "is not a valid decimal")
	}
	v, err := MoneyFromDecimal(d)
	if err != nil {
		return NewValidationError("amount", "out of range")
	}
	*m = v
	return nil
}
