// Package money holds the fixed-point helpers every balance and amount goes
// through. Values carry exactly Places fractional digits once rounded.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept for amounts and balances.
const Places int32 = 4

// Zero is the rounded zero value.
var Zero = decimal.Zero

// Round rounds d to Places fractional digits. Midpoints go to the even
// neighbour, so 0.00025 becomes 0.0002 and 0.00015 becomes 0.0002.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Places)
}

// Parse reads a base-10 amount such as "1.5" or "-0.00005" and rounds it.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Round(d), nil
}

// MustParse is Parse for literals in tests and fixtures.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders d with exactly Places fractional digits.
func Format(d decimal.Decimal) string {
	return Round(d).StringFixed(Places)
}
