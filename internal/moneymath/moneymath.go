// Package moneymath holds small decimal helpers shared by the sizing,
// pricing, and accounting packages so tick-rounding and bps conversions are
// performed exactly once, the same way everywhere.
package moneymath

import "github.com/shopspring/decimal"

// BpsDivisor converts a basis-point value into its fractional multiplier.
var BpsDivisor = decimal.NewFromInt(10000)

// BpsToFraction converts e.g. 20 (bps) into 0.0020.
func BpsToFraction(bps decimal.Decimal) decimal.Decimal {
	return bps.Div(BpsDivisor)
}

// FractionToBps converts a fraction (e.g. 0.002) into bps (20).
func FractionToBps(frac decimal.Decimal) decimal.Decimal {
	return frac.Mul(BpsDivisor)
}

// QuantizeFloor rounds qty down to the nearest multiple of tick. It is the
// caller's responsibility to have already checked qty >= tick — quantizing
// first and checking the minimum second is the classic way to silently
// produce a zero-quantity order.
func QuantizeFloor(qty, tick decimal.Decimal) decimal.Decimal {
	if tick.IsZero() {
		return qty
	}
	steps := qty.Div(tick).Floor()
	return steps.Mul(tick)
}

// SpreadBps computes 10000 * (ask-bid)/bid.
func SpreadBps(bid, ask decimal.Decimal) decimal.Decimal {
	if bid.IsZero() {
		return decimal.Zero
	}
	return ask.Sub(bid).Div(bid).Mul(BpsDivisor)
}

// WithinOneTick returns true if the absolute difference between a and b is less
// than or equal to one tick — the tolerance used throughout the spec for
// "flat within one tick" and "complete fill" checks.
func WithinOneTick(a, b, tick decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tick)
}
