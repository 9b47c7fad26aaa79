package accounting

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeRates is the immutable per-run fee model from spec §3.
type FeeRates struct {
	TakerBps decimal.Decimal // default 5
	MakerBps decimal.Decimal // default 2
}

// DefaultFeeRates matches spec §3's reference values.
func DefaultFeeRates() FeeRates {
	return FeeRates{TakerBps: decimal.NewFromInt(5), MakerBps: decimal.NewFromInt(2)}
}

func (f FeeRates) rateFor(orderType OrderType) decimal.Decimal {
	if orderType == OrderPostOnly {
		return f.MakerBps.Div(decimal.NewFromInt(10000))
	}
	return f.TakerBps.Div(decimal.NewFromInt(10000))
}

// FeeAt computes |qty| * price * fee_rate for one fill at a given order
// type, per spec §4.6. Exposed separately from Fee so a caller holding
// several placements of different Mode (a POST_ONLY partial fill followed
// by an IOC remainder) can charge each its own rate instead of collapsing
// them to a single blended fill first.
func (f FeeRates) FeeAt(orderType OrderType, price, qty decimal.Decimal) decimal.Decimal {
	return qty.Abs().Mul(price).Mul(f.rateFor(orderType))
}

// Fee computes a fill's fee at its own recorded OrderType.
func (f FeeRates) Fee(fill LegFill) decimal.Decimal {
	return f.FeeAt(fill.OrderType, fill.Price, fill.Quantity)
}

// fundingIntervalsPerDay is the 8-hour-interval convention from spec §4.6.
// It is NOT interchangeable with /24 (one per hour) — that substitution is
// the specific bug spec §8.7/S6 guards against.
var fundingIntervalsPerDay = decimal.NewFromInt(3)
var daysPerYear = decimal.NewFromInt(365)
var hoursPerDay = decimal.NewFromInt(24)

// FundingPnL computes one leg's funding accrual over holdHours given its
// notional and annualized rate, per spec §4.6:
//
//	funding_per_leg = notional * r / 365 / 3 * h
//
// A long leg with a positive rate receives funding (sign +); a short leg
// with a positive rate pays it (sign -). Signs invert for a negative rate.
func FundingPnL(direction LegDirection, notional, annualRate decimal.Decimal, holdHours decimal.Decimal) decimal.Decimal {
	magnitude := notional.Mul(annualRate).Div(daysPerYear).Div(fundingIntervalsPerDay).Mul(holdHours)
	if direction == Short {
		return magnitude.Neg()
	}
	return magnitude
}

// DirectionalPnL computes one leg's directional PnL at exit:
//
//	long:  (exit - entry) * qty
//	short: (entry - exit) * qty
//
// qty is the absolute (unsigned) traded size for the leg.
func DirectionalPnL(direction LegDirection, entryPrice, exitPrice, qty decimal.Decimal) decimal.Decimal {
	if direction == Short {
		return entryPrice.Sub(exitPrice).Mul(qty)
	}
	return exitPrice.Sub(entryPrice).Mul(qty)
}

// CloseCycleInput bundles everything the accountant needs to close out and
// record a completed (non-skip) cycle. Fees are not passed here: each
// LegFill already carries its own FeeUSD, computed by the caller from the
// placement(s) that produced it (one rate per Mode), so a POST_ONLY partial
// fill followed by an IOC remainder is never billed at a single blended rate.
type CloseCycleInput struct {
	CycleID        int64
	Direction      string
	Entries        map[string]LegFill // ticker -> entry fill
	Exits          map[string]LegFill // ticker -> exit fill
	EntryTimestamp time.Time
	ExitTimestamp  time.Time
	FundingRates   map[string]decimal.Decimal // ticker -> annualized rate
}

// Close computes the full accounting identity from spec §4.6 and returns
// an immutable CycleRecord ready to append to the Cycle Log.
func Close(in CloseCycleInput) CycleRecord {
	holdSeconds := in.ExitTimestamp.Sub(in.EntryTimestamp).Seconds()
	holdHours := decimal.NewFromFloat(holdSeconds / 3600)

	var pnlNoFee, fees, funding decimal.Decimal
	for ticker, entry := range in.Entries {
		exit, ok := in.Exits[ticker]
		if !ok {
			continue
		}
		qty := entry.Quantity.Abs()
		pnlNoFee = pnlNoFee.Add(DirectionalPnL(entry.Direction, entry.Price, exit.Price, qty))
		// entry.FeeUSD/exit.FeeUSD are computed by the caller from each
		// underlying placement's own Mode (build.go/unwind.go), not
		// recomputed here from a single blended OrderType per fill — a
		// POST_ONLY-then-IOC fallback fill would otherwise get charged
		// entirely at one rate.
		fees = fees.Add(entry.FeeUSD).Add(exit.FeeUSD)

		rate, ok := in.FundingRates[ticker]
		if !ok {
			rate = decimal.NewFromFloat(0.01) // conservative default, spec §7 FundingRateUnavailable
		}
		notional := qty.Mul(entry.Price)
		funding = funding.Add(FundingPnL(entry.Direction, notional, rate, holdHours))
	}

	pnlWithFee := pnlNoFee.Sub(fees).Add(funding)

	return CycleRecord{
		CycleID:        in.CycleID,
		Direction:      in.Direction,
		EntryFills:     in.Entries,
		EntryTimestamp: in.EntryTimestamp,
		ExitFills:      in.Exits,
		ExitTimestamp:  in.ExitTimestamp,
		HoldSeconds:    holdSeconds,
		FeesUSD:        fees,
		FundingPnLUSD:  funding,
		PnLNoFeeUSD:    pnlNoFee,
		PnLWithFeeUSD:  pnlWithFee,
	}
}

// Skip builds a non-executed CycleRecord for the given reason under a
// cycle_id the caller has already assigned. It is used only for cycles
// that got a cycle_id at the IDLE->BUILD transition and then executed no
// paired trade (a sizing skip, or neither leg filling during BUILD). A
// Spread Gate no-go never assigns a cycle_id and writes no Skip record
// (spec §8 scenario S2).
func Skip(cycleID int64, direction, reason string, entryTs time.Time) CycleRecord {
	return CycleRecord{
		CycleID:        cycleID,
		Direction:      direction,
		EntryTimestamp: entryTs,
		ExitTimestamp:  time.Now(),
		SkipReason:     reason,
	}
}
