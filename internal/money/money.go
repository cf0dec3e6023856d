// Package money formats amounts for display. Arithmetic elsewhere stays in
// float64; rounding happens only here.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// Symbol prefixes every displayed amount.
const Symbol = "£"

func toDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// Format renders v with the currency symbol and exactly two decimals.
func Format(v float64) string {
	d := toDecimal(v)
	if d.IsNegative() {
		return "-" + Symbol + d.Neg().StringFixed(2)
	}
	return Symbol + d.StringFixed(2)
}

// Fixed renders v with exactly two decimals and no symbol.
func Fixed(v float64) string {
	return toDecimal(v).StringFixed(2)
}

// Round2 rounds v half away from zero to two decimals.
func Round2(v float64) float64 {
	f, _ := toDecimal(v).Round(2).Float64()
	return f
}

// Percent renders a rate such as 0.2 as a whole percentage, "20%".
func Percent(rate float64) string {
	return toDecimal(rate).Mul(decimal.NewFromInt(100)).StringFixed(0) + "%"
}
