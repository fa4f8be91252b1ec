// Package money holds the fixed-point representation used for every balance
// and transfer amount. Values are stored as int64 minor units (cents) so that
// repeated transfers never accumulate floating-point drift.
package money

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by an Amount.
const Scale = 2

// ErrInvalid is returned when a value cannot be represented as an Amount.
var ErrInvalid = errors.New("invalid amount")

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

// Amount is a monetary value in minor units.
type Amount int64

// FromDecimal converts a non-negative decimal with at most two fractional
// digits into an Amount.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalid, d.String())
	}
	if !d.Equal(d.Round(Scale)) {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalid, d.String(), Scale)
	}
	minor := d.Shift(Scale)
	if minor.GreaterThan(maxAmount) || minor.LessThan(minAmount) {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalid, d.String())
	}
	return Amount(minor.IntPart()), nil
}

// MustParse parses a decimal string and panics on failure. Intended for
// constants and tests.
func MustParse(s string) Amount {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	a, err := FromDecimal(d)
	if err != nil {
		panic(err)
	}
	return a
}

// Decimal returns the value as a decimal in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Scale)
}

// Add returns a+b, reporting false if the sum overflows.
func (a Amount) Add(b Amount) (Amount, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// String formats the amount for display, e.g. "$1000.00".
func (a Amount) String() string {
	return "$" + a.Decimal().StringFixed(Scale)
}

// MarshalJSON encodes the amount as a bare JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal().StringFixed(Scale)), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	v, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
