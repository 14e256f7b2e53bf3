package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Format renders minor units as a fixed two-decimal string ("1250" -> "12.50").
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ParseCents converts a major-unit amount such as "12.5" into minor units. More
// than two decimal places is rejected rather than rounded.
func ParseCents(amount string) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", amount)
	}
	return fromDecimal(d)
}

// FromFloat converts a JSON number amount into minor units.
func FromFloat(amount float64) (int64, error) {
	return fromDecimal(decimal.NewFromFloat(amount))
}

func fromDecimal(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative")
	}
	cents := d.Mul(hundred)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than two decimal places", d.String())
	}
	return cents.IntPart(), nil
}
