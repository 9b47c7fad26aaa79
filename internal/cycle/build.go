package cycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/pairbot/internal/accounting"
	"github.com/GoPolymarket/pairbot/internal/exchangeclient"
	"github.com/GoPolymarket/pairbot/internal/pricing"
	"github.com/GoPolymarket/pairbot/internal/unwind"
)

// legOutcome is one leg's order-submission outcome.
type legOutcome struct {
	placements []pricing.Placement
	err        error
}

func (o legOutcome) complete() bool {
	if o.err != nil || len(o.placements) == 0 {
		return false
	}
	return o.placements[len(o.placements)-1].Complete
}

// build runs spec §4.5's BUILD phase: sizing, then concurrent paired order
// submission, then fill collection. Returns the entry fills on a fully
// paired fill, or nil (with the skip/emergency-unwind record already
// written and live state cleared) on any other outcome.
func (c *Controller) build(ctx context.Context, cycleID int64, direction string) (map[string]accounting.LegFill, error) {
	sizeA, err := c.sizeLeg(ctx, c.legA, sideForEntry(c.cfg, c.legA.Ticker()))
	if err != nil {
		return nil, fmt.Errorf("cycle: size %s: %w", c.legA.Ticker(), err)
	}
	sizeB, err := c.sizeLeg(ctx, c.legB, sideForEntry(c.cfg, c.legB.Ticker()))
	if err != nil {
		return nil, fmt.Errorf("cycle: size %s: %w", c.legB.Ticker(), err)
	}

	// A sizing skip on either leg means neither leg is ever submitted
	// (spec S5: the sibling leg's order is never placed).
	if sizeA.SkipReason != "" {
		c.writeSkip(cycleID, direction, sizeA.SkipReason)
		c.state.clear()
		return nil, nil
	}
	if sizeB.SkipReason != "" {
		c.writeSkip(cycleID, direction, sizeB.SkipReason)
		c.state.clear()
		return nil, nil
	}

	outcomes := c.submitPaired(ctx, map[string]legRequest{
		c.legA.Ticker(): {leg: c.legA, side: sideForEntry(c.cfg, c.legA.Ticker()), qty: sizeA.Quantity},
		c.legB.Ticker(): {leg: c.legB, side: sideForEntry(c.cfg, c.legB.Ticker()), qty: sizeB.Quantity},
	}, c.cfg.UsePostOnlyEntry)

	outA, outB := outcomes[c.legA.Ticker()], outcomes[c.legB.Ticker()]
	aOK, bOK := outA.complete(), outB.complete()

	switch {
	case aOK && bOK:
		fills := map[string]accounting.LegFill{
			c.legA.Ticker(): outcomeToFill(c.legA.Ticker(), legDirectionFor(c.cfg, c.legA.Ticker()), outA, c.fees),
			c.legB.Ticker(): outcomeToFill(c.legB.Ticker(), legDirectionFor(c.cfg, c.legB.Ticker()), outB, c.fees),
		}
		return fills, nil

	case aOK != bOK:
		// Exactly one leg filled: Emergency Unwind the filled leg, write a
		// one-sided-fill record, and return to IDLE (spec §4.5/§4.7).
		filledTicker := c.legA.Ticker()
		if bOK {
			filledTicker = c.legB.Ticker()
		}
		return nil, c.emergencyUnwindDuringBuild(ctx, cycleID, direction, filledTicker, outA, outB, aOK)

	default:
		c.writeSkip(cycleID, direction, "neither leg filled during BUILD")
		c.state.clear()
		return nil, nil
	}
}

type legRequest struct {
	leg  exchangeclient.LegClient
	side exchangeclient.Side
	qty  decimal.Decimal
}

// submitPaired issues both legs' order submissions concurrently — neither
// leg blocks the other, per spec §5's requirement that paired order
// operations not serialize.
func (c *Controller) submitPaired(ctx context.Context, reqs map[string]legRequest, usePostOnly bool) map[string]legOutcome {
	results := make(map[string]legOutcome, len(reqs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for ticker, req := range reqs {
		wg.Add(1)
		go func(ticker string, req legRequest) {
			defer wg.Done()
			bbo, err := c.view.BBO(ctx, req.leg.Ticker())
			if err != nil {
				mu.Lock()
				results[ticker] = legOutcome{err: err}
				mu.Unlock()
				return
			}
			placements, err := pricing.PlaceWithPolicy(ctx, pricing.Params{
				Leg:             req.leg,
				Side:            req.side,
				Qty:             req.qty,
				BBO:             bbo,
				Leverage:        c.leverageOrOne(),
				PostOnlyTimeout: time.Duration(c.cfg.PostOnlyTimeoutS) * time.Second,
			}, usePostOnly)
			mu.Lock()
			results[ticker] = legOutcome{placements: placements, err: err}
			mu.Unlock()
		}(ticker, req)
	}
	wg.Wait()
	return results
}

func (c *Controller) leverageOrOne() decimal.Decimal {
	if c.cfg.Leverage.IsZero() {
		return decimal.NewFromInt(1)
	}
	return c.cfg.Leverage
}

// emergencyUnwindDuringBuild closes out the one leg that filled during
// BUILD and writes the resulting cycle record with skip_reason
// "one-sided fill leg=<ticker>" (spec S3).
func (c *Controller) emergencyUnwindDuringBuild(ctx context.Context, cycleID int64, direction, filledTicker string, outA, outB legOutcome, aFilled bool) error {
	res, err := unwind.Run(ctx, c.legs(), c.leverageOrOne(), c.gov)
	if err != nil {
		return fmt.Errorf("cycle: emergency unwind during build: %w", err)
	}
	if nerr := c.notifier.NotifyEmergencyUnwind(ctx, fmt.Sprintf("one-sided fill leg=%s", filledTicker), res); nerr != nil {
		fmt.Printf("cycle: notify emergency unwind failed: %v\n", nerr)
	}
	if !res.AllFlat {
		c.gov.Halt(fmt.Sprintf("emergency unwind could not flatten %s", res.HaltedOn))
	}

	entries := map[string]accounting.LegFill{}
	exits := map[string]accounting.LegFill{}
	entryTS := time.Now()
	if aFilled {
		entries[c.legA.Ticker()] = outcomeToFill(c.legA.Ticker(), legDirectionFor(c.cfg, c.legA.Ticker()), outA, c.fees)
	} else {
		entries[c.legB.Ticker()] = outcomeToFill(c.legB.Ticker(), legDirectionFor(c.cfg, c.legB.Ticker()), outB, c.fees)
	}
	for _, lr := range res.Legs {
		if lr.Closed.IsZero() {
			continue
		}
		dir := legDirectionFor(c.cfg, lr.Ticker)
		exits[lr.Ticker] = unwind.ToFill(lr.Ticker, dir, lr, c.fees)
	}

	rec := accounting.Close(accounting.CloseCycleInput{
		CycleID: cycleID, Direction: direction,
		Entries: entries, Exits: exits,
		EntryTimestamp: entryTS, ExitTimestamp: time.Now(),
		FundingRates: c.fundingRates(ctx),
	})
	rec.SkipReason = fmt.Sprintf("one-sided fill leg=%s", filledTicker)
	c.writeRecord(rec)
	c.state.clear()
	return nil
}

func (c *Controller) writeSkip(cycleID int64, direction, reason string) {
	rec := accounting.Skip(cycleID, direction, reason, time.Now())
	c.writeRecord(rec)
}

func (c *Controller) writeRecord(rec accounting.CycleRecord) {
	if err := c.log.Append(rec); err != nil {
		fmt.Printf("cycle: append cycle record failed: %v\n", err)
	}
	c.summary.Record(rec)
	if c.metrics != nil {
		c.metrics.Observe(rec)
	}
	if err := c.notifier.NotifyCycleClosed(context.Background(), rec); err != nil {
		fmt.Printf("cycle: notify cycle closed failed: %v\n", err)
	}
}

// fundingRates queries each leg's current annualized funding rate. A leg
// whose rate cannot be fetched is simply omitted — Close's own default
// (spec §7 FundingRateUnavailable) covers the gap, per the rule that a
// stale/missing rate must never block a cycle.
func (c *Controller) fundingRates(ctx context.Context) map[string]decimal.Decimal {
	rates := make(map[string]decimal.Decimal, 2)
	for _, leg := range c.legs() {
		rate, err := leg.GetFundingRate(ctx)
		if err != nil {
			continue
		}
		rates[leg.Ticker()] = rate
	}
	return rates
}

func outcomeToFill(ticker string, direction accounting.LegDirection, o legOutcome, fees accounting.FeeRates) accounting.LegFill {
	qty, avgPx := pricing.CombineFills(o.placements)
	signed := qty
	if direction == accounting.Short {
		signed = signed.Neg()
	}
	orderType := accounting.OrderIOC
	if len(o.placements) > 0 {
		orderType = orderTypeFor(o.placements[0].Mode)
	}
	return accounting.LegFill{Ticker: ticker, Direction: direction, Price: avgPx, Quantity: signed, OrderType: orderType, FeeUSD: feeAcrossPlacements(fees, o.placements)}
}

// feeAcrossPlacements charges each placement at its own Mode's rate before
// summing, so a POST_ONLY partial fill followed by an IOC remainder (spec
// §9's partial-fill accounting open question) is never blended into a
// single order type's rate.
func feeAcrossPlacements(fees accounting.FeeRates, placements []pricing.Placement) decimal.Decimal {
	var total decimal.Decimal
	for _, p := range placements {
		total = total.Add(fees.FeeAt(orderTypeFor(p.Mode), p.AvgPrice, p.FilledQty))
	}
	return total
}
