// Package spreadgate implements the Spread Gate and entry-timing controller
// from spec §4.4. The per-leg bps computation is grounded on the teacher's
// strategy.Maker.ComputeQuote, which derives "marketSpreadBps" from a book's
// top bid/ask the same way; this package generalizes that single-market
// computation across a two-leg pair and adds the bounded polling wait the
// teacher's maker/taker never needed (Polymarket quoting reacts to every
// book update instead of waiting for a favorable moment).
package spreadgate

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/pairbot/internal/exchangeclient"
	"github.com/GoPolymarket/pairbot/internal/marketdata"
	"github.com/GoPolymarket/pairbot/internal/moneymath"
)

// DefaultMinSpreadBps matches spec §4.4/§6's default of 20 bps.
var DefaultMinSpreadBps = decimal.NewFromInt(20)

// DefaultMaxWait matches spec §4.4's default 30s timing-search bound.
const DefaultMaxWait = 30 * time.Second

// PollInterval is the >=2Hz polling cadence spec §4.4 requires.
const PollInterval = 400 * time.Millisecond

// LegSpread is one leg's observed spread at a gate evaluation.
type LegSpread struct {
	Ticker     string
	Bid, Ask   decimal.Decimal
	SpreadBps  decimal.Decimal
}

// Snapshot is one Spread Gate evaluation, mirroring the spread-analysis log
// record in spec §6.
type Snapshot struct {
	Timestamp    time.Time
	Legs         []LegSpread
	PairSpreadBps decimal.Decimal
	Go           bool
	SkipReason   string
}

// Evaluate reads the current BBO for both legs and applies the pre-trade
// filter from spec §4.4: pair spread = average of the two legs' bps
// spreads; go iff pair spread >= minSpreadBps.
func Evaluate(ctx context.Context, view *marketdata.View, legs []exchangeclient.LegClient, minSpreadBps decimal.Decimal) (Snapshot, error) {
	snap := Snapshot{Timestamp: time.Now(), Legs: make([]LegSpread, 0, len(legs))}

	var sum decimal.Decimal
	for _, leg := range legs {
		bbo, err := view.BBO(ctx, leg.Ticker())
		if err != nil {
			return Snapshot{}, fmt.Errorf("spreadgate: %w", err)
		}
		bps := moneymath.SpreadBps(bbo.Bid, bbo.Ask)
		snap.Legs = append(snap.Legs, LegSpread{Ticker: leg.Ticker(), Bid: bbo.Bid, Ask: bbo.Ask, SpreadBps: bps})
		sum = sum.Add(bps)
	}
	if len(legs) > 0 {
		snap.PairSpreadBps = sum.Div(decimal.NewFromInt(int64(len(legs))))
	}

	if snap.PairSpreadBps.LessThan(minSpreadBps) {
		snap.Go = false
		snap.SkipReason = fmt.Sprintf("spread too narrow %s bps < %s", snap.PairSpreadBps.StringFixed(1), minSpreadBps.StringFixed(1))
		return snap, nil
	}
	snap.Go = true
	return snap, nil
}

// WaitForSpread polls the Market-Data View at PollInterval for up to
// maxWait, returning the first snapshot that clears the threshold, or the
// best-observed snapshot if maxWait elapses first (spec §4.4's optional
// timing search).
func WaitForSpread(ctx context.Context, view *marketdata.View, legs []exchangeclient.LegClient, minSpreadBps decimal.Decimal, maxWait time.Duration) (Snapshot, error) {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	deadline := time.Now().Add(maxWait)
	var best Snapshot
	haveBest := false

	for {
		snap, err := Evaluate(ctx, view, legs, minSpreadBps)
		if err != nil {
			return Snapshot{}, err
		}
		if snap.Go {
			return snap, nil
		}
		if !haveBest || snap.PairSpreadBps.GreaterThan(best.PairSpreadBps) {
			best = snap
			haveBest = true
		}
		if time.Now().After(deadline) {
			best.SkipReason = fmt.Sprintf("spread too narrow %s bps < %s after %s wait", best.PairSpreadBps.StringFixed(1), minSpreadBps.StringFixed(1), maxWait)
			return best, nil
		}
		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-time.After(PollInterval):
		}
	}
}
