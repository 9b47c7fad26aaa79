// Package marketdata is a read-only projection of BBO and BookDepth for a
// pair's two legs. It is adapted from the teacher's internal/feed.BookSnapshot
// (a concurrency-safe mirror of a single local order book) generalized to
// hold one snapshot per leg, falling back to each leg's own synchronous BBO
// fetch when no streaming quote has arrived yet, per spec §4.1/§5.
package marketdata

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/pairbot/internal/exchangeclient"
)

// View is the shared-read projection the Spread Gate, Sizing Estimator, and
// Cycle Controller all consult. It is updated by a background streaming
// task (owned by the exchange client, out of this package's scope) calling
// UpdateBBO, or on demand by BBO's synchronous fallback fetch.
type View struct {
	mu    sync.RWMutex
	bbo   map[string]exchangeclient.BBO
	ready map[string]bool // whether a streamed quote has arrived for this leg

	legs map[string]exchangeclient.LegClient
}

// New creates a View over the given legs, keyed by Ticker().
func New(legs ...exchangeclient.LegClient) *View {
	v := &View{
		bbo:   make(map[string]exchangeclient.BBO),
		ready: make(map[string]bool),
		legs:  make(map[string]exchangeclient.LegClient, len(legs)),
	}
	for _, l := range legs {
		v.legs[l.Ticker()] = l
	}
	return v
}

// UpdateBBO is called by the background streaming task whenever a fresh
// top-of-book snapshot arrives.
func (v *View) UpdateBBO(ticker string, bbo exchangeclient.BBO) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bbo[ticker] = bbo
	v.ready[ticker] = true
}

// BBO returns the latest available snapshot for ticker. If no streamed
// quote has arrived yet it falls back to the leg's own synchronous
// FetchBBO (which, per exchangeclient.LegClient's contract, handles its
// own REST fallback), matching spec §4.1's "Fallback to REST BBO when
// handlers absent".
func (v *View) BBO(ctx context.Context, ticker string) (exchangeclient.BBO, error) {
	v.mu.RLock()
	bbo, ready := v.bbo[ticker], v.ready[ticker]
	leg, ok := v.legs[ticker]
	v.mu.RUnlock()
	if !ok {
		return exchangeclient.BBO{}, fmt.Errorf("marketdata: unknown leg %s", ticker)
	}
	if ready && bbo.Valid() {
		return bbo, nil
	}
	fresh, err := leg.FetchBBO(ctx)
	if err != nil {
		return exchangeclient.BBO{}, fmt.Errorf("marketdata: rest fallback for %s: %w", ticker, err)
	}
	if !fresh.Valid() {
		return exchangeclient.BBO{}, fmt.Errorf("marketdata: invalid bbo for %s (bid=%s ask=%s)", ticker, fresh.Bid, fresh.Ask)
	}
	v.UpdateBBO(ticker, fresh)
	return fresh, nil
}

// BookDepth returns the leg's streaming depth handle, or
// exchangeclient.ErrBookDepthUnavailable if none has attached yet. Callers
// must fall back to the conservative sizing rule in that case (spec §4.2).
func (v *View) BookDepth(ctx context.Context, ticker string) (exchangeclient.BookDepth, error) {
	v.mu.RLock()
	leg, ok := v.legs[ticker]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("marketdata: unknown leg %s", ticker)
	}
	return leg.BookDepthHandle(ctx)
}

// Mid returns (bid+ask)/2 for ticker.
func (v *View) Mid(ctx context.Context, ticker string) (decimal.Decimal, error) {
	bbo, err := v.BBO(ctx, ticker)
	if err != nil {
		return decimal.Zero, err
	}
	return bbo.Bid.Add(bbo.Ask).Div(decimal.NewFromInt(2)), nil
}
