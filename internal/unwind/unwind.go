// Package unwind implements the Emergency Unwind Handler from spec §4.7:
// given the current per-leg positions, it closes whatever is non-zero at
// IOC, never POST_ONLY, and confirms flat within one tick before
// returning. It is grounded on the teacher's reconciliation shape (query
// positions, compare to expectation) in internal/risk.SyncFromTracker, but
// implements the spec's own closing-order retry loop rather than merely
// reporting a mismatch.
package unwind

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/pairbot/internal/accounting"
	"github.com/GoPolymarket/pairbot/internal/exchangeclient"
	"github.com/GoPolymarket/pairbot/internal/pricing"
	"github.com/GoPolymarket/pairbot/internal/risk"
)

// fallbackWait bounds each closing-order attempt (BBO fetch + IOC placement)
// so a single stuck attempt can't stall the Governor's retry loop past its
// own backoff (spec §5 cancellation/timeouts).
const fallbackWait = 10 * time.Second

// LegResult is one leg's emergency-close outcome.
type LegResult struct {
	Ticker   string
	Closed   decimal.Decimal // signed quantity closed (opposite sign of the residual)
	AvgPrice decimal.Decimal
	Flat     bool
}

// Result is the handler's overall outcome.
type Result struct {
	Legs     []LegResult
	AllFlat  bool
	HaltedOn string // non-empty if a leg could not be brought flat
}

// Run queries current positions for each leg and, for any leg with a
// non-zero signed position beyond one tick, submits an IOC order of
// opposite side and equal magnitude, retrying with bounded backoff on
// failure (spec §4.7 steps 1-3). It re-queries positions afterward and
// reports whether every leg is flat within one tick (step 4) — callers
// must halt the cycle loop if AllFlat is false.
func Run(ctx context.Context, legs []exchangeclient.LegClient, leverage decimal.Decimal, gov *risk.Governor) (Result, error) {
	res := Result{AllFlat: true}

	for _, leg := range legs {
		pos, err := leg.GetAccountPosition(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("unwind: get position for %s: %w", leg.Ticker(), err)
		}
		tick := leg.TickSize()
		if pos.Abs().LessThanOrEqual(tick) {
			res.Legs = append(res.Legs, LegResult{Ticker: leg.Ticker(), Flat: true})
			continue
		}

		side := exchangeclient.SideSell
		if pos.IsNegative() {
			side = exchangeclient.SideBuy
		}
		qty := pos.Abs()

		var placement pricing.Placement
		err = gov.Retry(ctx, func(ctx context.Context, bypass bool) error {
			ctx, cancel := context.WithTimeout(ctx, fallbackWait)
			defer cancel()
			bbo, err := leg.FetchBBO(ctx)
			if err != nil {
				return fmt.Errorf("fetch bbo: %w", err)
			}
			pl, err := pricing.PlaceIOC(ctx, pricing.Params{Leg: leg, Side: side, Qty: qty, BBO: bbo, Leverage: leverage})
			if err != nil {
				return err
			}
			if !pl.Complete {
				return fmt.Errorf("emergency close incomplete: filled %s/%s", pl.FilledQty, qty)
			}
			placement = pl
			return nil
		})
		if err != nil {
			res.AllFlat = false
			res.HaltedOn = leg.Ticker()
			res.Legs = append(res.Legs, LegResult{Ticker: leg.Ticker(), Flat: false})
			continue
		}

		remaining, err := leg.GetAccountPosition(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("unwind: reverify position for %s: %w", leg.Ticker(), err)
		}
		flat := remaining.Abs().LessThanOrEqual(tick)
		if !flat {
			res.AllFlat = false
			res.HaltedOn = leg.Ticker()
		}
		res.Legs = append(res.Legs, LegResult{Ticker: leg.Ticker(), Closed: placement.FilledQty, AvgPrice: placement.AvgPrice, Flat: flat})
	}

	return res, nil
}

// ToFill converts an emergency LegResult into an accounting.LegFill for the
// cycle record, using the same direction the leg was originally entered
// with (the close is the opposite side but the record keys fills by the
// leg's entry direction so fee/PnL accounting stays consistent). Fee is
// charged at the taker rate: Run never places POST_ONLY (spec §4.7 step 2).
func ToFill(ticker string, direction accounting.LegDirection, lr LegResult, fees accounting.FeeRates) accounting.LegFill {
	qty := lr.Closed
	if direction == accounting.Long {
		qty = qty.Neg()
	}
	return accounting.LegFill{
		Ticker:    ticker,
		Direction: direction,
		Price:     lr.AvgPrice,
		Quantity:  qty,
		OrderType: accounting.OrderIOC,
		FeeUSD:    fees.FeeAt(accounting.OrderIOC, lr.AvgPrice, lr.Closed),
	}
}
