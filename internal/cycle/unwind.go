package cycle

import (
	"context"
	"fmt"
	"time"

	"github.com/GoPolymarket/pairbot/internal/accounting"
	"github.com/GoPolymarket/pairbot/internal/exchangeclient"
	"github.com/GoPolymarket/pairbot/internal/pricing"
	"github.com/GoPolymarket/pairbot/internal/unwind"
)

// unwindCycle runs spec §4.5's UNWIND phase: submit both legs' closing
// orders concurrently (opposite side, equal magnitude to entry), fall back
// to the Emergency Unwind Handler on any one-sided close, reconcile
// against live positions, and write the final accounting.CycleRecord.
func (c *Controller) unwindCycle(ctx context.Context, cycleID int64, direction string, entryFills map[string]accounting.LegFill) error {
	_, entryTimestamp := c.state.entrySnapshot()

	closeReqs := make(map[string]legRequest, len(entryFills))
	for ticker, fill := range entryFills {
		leg := c.legByTicker(ticker)
		side := exchangeclient.SideSell
		if fill.Direction == accounting.Short {
			side = exchangeclient.SideBuy
		}
		closeReqs[ticker] = legRequest{leg: leg, side: side, qty: fill.Quantity.Abs()}
	}

	outcomes := c.submitPaired(ctx, closeReqs, false) // never POST_ONLY on exit, spec §4.5/§4.7
	outA, outB := outcomes[c.legA.Ticker()], outcomes[c.legB.Ticker()]
	aOK, bOK := outA.complete(), outB.complete()

	exits := map[string]accounting.LegFill{}
	if aOK {
		exits[c.legA.Ticker()] = exitFill(c.legA.Ticker(), entryFills[c.legA.Ticker()].Direction, outA, c.fees)
	}
	if bOK {
		exits[c.legB.Ticker()] = exitFill(c.legB.Ticker(), entryFills[c.legB.Ticker()].Direction, outB, c.fees)
	}

	if !aOK || !bOK {
		res, err := unwind.Run(ctx, c.legs(), c.leverageOrOne(), c.gov)
		if err != nil {
			return fmt.Errorf("cycle: unwind reconciliation: %w", err)
		}
		if nerr := c.notifier.NotifyEmergencyUnwind(ctx, "one-sided close during UNWIND", res); nerr != nil {
			fmt.Printf("cycle: notify emergency unwind failed: %v\n", nerr)
		}
		if !res.AllFlat {
			c.gov.Halt(fmt.Sprintf("unwind could not flatten %s", res.HaltedOn))
		}
		for _, lr := range res.Legs {
			if lr.Closed.IsZero() {
				continue
			}
			if _, already := exits[lr.Ticker]; already {
				continue
			}
			dir := entryFills[lr.Ticker].Direction
			exits[lr.Ticker] = unwind.ToFill(lr.Ticker, dir, lr, c.fees)
		}
	} else if flat, err := c.confirmFlat(ctx); err != nil {
		return fmt.Errorf("cycle: confirm flat: %w", err)
	} else if !flat {
		c.gov.Halt("post-unwind reconciliation found a residual position")
	}

	rec := accounting.Close(accounting.CloseCycleInput{
		CycleID: cycleID, Direction: direction,
		Entries: entryFills, Exits: exits,
		EntryTimestamp: entryTimestamp, ExitTimestamp: time.Now(),
		FundingRates: c.fundingRates(ctx),
	})
	c.writeRecord(rec)
	c.state.clear()
	return nil
}

// confirmFlat re-queries both legs' positions and reports whether each is
// within one tick of zero, per spec §4.5's post-UNWIND reconciliation step.
func (c *Controller) confirmFlat(ctx context.Context) (bool, error) {
	for _, leg := range c.legs() {
		pos, err := leg.GetAccountPosition(ctx)
		if err != nil {
			return false, err
		}
		if pos.Abs().GreaterThan(leg.TickSize()) {
			return false, nil
		}
	}
	return true, nil
}

func exitFill(ticker string, entryDirection accounting.LegDirection, o legOutcome, fees accounting.FeeRates) accounting.LegFill {
	qty, avgPx := pricing.CombineFills(o.placements)
	signed := qty
	// the exit trades the opposite side of entry, so its signed quantity
	// carries the opposite sign convention from the entry fill.
	if entryDirection == accounting.Long {
		signed = signed.Neg()
	}
	orderType := accounting.OrderIOC
	if len(o.placements) > 0 {
		orderType = orderTypeFor(o.placements[0].Mode)
	}
	return accounting.LegFill{Ticker: ticker, Direction: entryDirection, Price: avgPx, Quantity: signed, OrderType: orderType, FeeUSD: feeAcrossPlacements(fees, o.placements)}
}
