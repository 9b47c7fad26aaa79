// Package pricing implements the Pricing & Order Placer from spec §4.3: it
// builds a marketable (IOC) or passive (POST_ONLY) limit price from BBO,
// submits the order through a exchangeclient.LegClient, and waits on the
// fill-verification primitive. Grounded on the teacher's App order-flow
// (place then poll via execution.Tracker) but collapsed into a single
// synchronous call per the spec's per-leg placer contract, since fill-wait
// here is a first-class exchange-client primitive rather than an
// asynchronous websocket callback.
package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/pairbot/internal/exchangeclient"
)

// Mode selects which order type a leg order is placed as.
type Mode string

const (
	ModeIOC      Mode = "IOC"
	ModePostOnly Mode = "POST_ONLY"
)

// defaultAggressivenessBps is the IOC marketable-price buffer (epsilon in spec
// §4.3), defaulted to 5 bps to guarantee takability.
var defaultAggressivenessBps = decimal.NewFromInt(5)

// DefaultPostOnlyTimeout matches spec §6's post_only_timeout_s default.
const DefaultPostOnlyTimeout = 5 * time.Second

// Placement is the outcome of placing and awaiting one leg order.
type Placement struct {
	OrderID    string
	Mode       Mode
	FilledQty  decimal.Decimal
	AvgPrice   decimal.Decimal
	Status     exchangeclient.OrderStatus
	Complete   bool // status==FILLED && filled >= requested-onetick, spec §4.3
}

// Params bundles everything a single leg order placement needs.
type Params struct {
	Leg              exchangeclient.LegClient
	Side             exchangeclient.Side
	Qty              decimal.Decimal
	BBO              exchangeclient.BBO
	Leverage         decimal.Decimal
	AggressivenessBps decimal.Decimal // zero means use the 5bps default
	PostOnlyTimeout  time.Duration    // zero means DefaultPostOnlyTimeout
}

func (p Params) aggressiveness() decimal.Decimal {
	if p.AggressivenessBps.IsZero() {
		return defaultAggressivenessBps
	}
	return p.AggressivenessBps
}

func (p Params) timeout() time.Duration {
	if p.PostOnlyTimeout <= 0 {
		return DefaultPostOnlyTimeout
	}
	return p.PostOnlyTimeout
}

// IOCPrice builds the marketable limit price for an IOC order: buy takes
// the ask plus epsilon, sell takes the bid minus epsilon.
func IOCPrice(side exchangeclient.Side, bbo exchangeclient.BBO, aggressivenessBps decimal.Decimal) decimal.Decimal {
	eps := aggressivenessBps.Div(decimal.NewFromInt(10000))
	if side == exchangeclient.SideBuy {
		return bbo.Ask.Mul(decimal.NewFromInt(1).Add(eps))
	}
	return bbo.Bid.Mul(decimal.NewFromInt(1).Sub(eps))
}

// PostOnlyPrice builds the passive limit price: buy rests at the bid, sell
// rests at the ask.
func PostOnlyPrice(side exchangeclient.Side, bbo exchangeclient.BBO) decimal.Decimal {
	if side == exchangeclient.SideBuy {
		return bbo.Bid
	}
	return bbo.Ask
}

func isComplete(status exchangeclient.OrderStatus, filled, requested, tick decimal.Decimal) bool {
	if status != exchangeclient.StatusFilled {
		return false
	}
	return filled.GreaterThanOrEqual(requested.Sub(tick))
}

// PlaceIOC submits a marketable IOC order and awaits its (bounded,
// exchange-governed) fill-wait outcome.
func PlaceIOC(ctx context.Context, p Params) (Placement, error) {
	price := IOCPrice(p.Side, p.BBO, p.aggressiveness())
	notional := p.Qty.Mul(price)
	marginX6 := exchangeclient.IsolatedMarginX6(notional, p.Leverage)

	res, err := p.Leg.PlaceIOCOrder(ctx, p.Side, p.Qty, price, marginX6)
	if err != nil {
		return Placement{}, fmt.Errorf("pricing: place ioc: %w", err)
	}
	fill, err := p.Leg.WaitForFill(ctx, res.OrderID, p.timeout())
	if err != nil {
		return Placement{}, fmt.Errorf("pricing: wait for ioc fill: %w", err)
	}
	return Placement{
		OrderID:   res.OrderID,
		Mode:      ModeIOC,
		FilledQty: fill.FilledSize,
		AvgPrice:  fill.AvgPrice,
		Status:    fill.Status,
		Complete:  isComplete(fill.Status, fill.FilledSize, p.Qty, p.Leg.TickSize()),
	}, nil
}

// PlacePostOnly submits a passive POST_ONLY order, waits up to the
// configured timeout, and cancels any unfilled remainder. The caller
// decides whether to IOC the remainder (spec §4.3 per-leg selection).
func PlacePostOnly(ctx context.Context, p Params) (Placement, error) {
	price := PostOnlyPrice(p.Side, p.BBO)
	notional := p.Qty.Mul(price)
	marginX6 := exchangeclient.IsolatedMarginX6(notional, p.Leverage)

	res, err := p.Leg.PlacePostOnlyOrder(ctx, p.Side, p.Qty, price, marginX6)
	if err != nil {
		return Placement{}, fmt.Errorf("pricing: place post_only: %w", err)
	}
	fill, err := p.Leg.WaitForFill(ctx, res.OrderID, p.timeout())
	if err != nil {
		return Placement{}, fmt.Errorf("pricing: wait for post_only fill: %w", err)
	}
	if fill.Status != exchangeclient.StatusFilled {
		if _, cErr := p.Leg.CancelOrder(ctx, res.OrderID); cErr != nil {
			return Placement{}, fmt.Errorf("pricing: cancel post_only: %w", cErr)
		}
	}
	return Placement{
		OrderID:   res.OrderID,
		Mode:      ModePostOnly,
		FilledQty: fill.FilledSize,
		AvgPrice:  fill.AvgPrice,
		Status:    fill.Status,
		Complete:  isComplete(fill.Status, fill.FilledSize, p.Qty, p.Leg.TickSize()),
	}, nil
}

// PlaceWithPolicy implements spec §4.3's per-leg order-type selection: if
// usePostOnly is set, attempt POST_ONLY first and fall back to IOC for any
// unfilled remainder on CANCELLED/TIMED_OUT/partial; otherwise go IOC
// directly. emergencyUnwind callers must never set usePostOnly (spec §4.7
// step 2: "Never use POST_ONLY here").
func PlaceWithPolicy(ctx context.Context, p Params, usePostOnly bool) ([]Placement, error) {
	if !usePostOnly {
		pl, err := PlaceIOC(ctx, p)
		if err != nil {
			return nil, err
		}
		return []Placement{pl}, nil
	}

	first, err := PlacePostOnly(ctx, p)
	if err != nil {
		return nil, err
	}
	if first.Complete {
		return []Placement{first}, nil
	}

	remainder := p.Qty.Sub(first.FilledQty)
	if !remainder.IsPositive() {
		return []Placement{first}, nil
	}

	bbo, err := p.Leg.FetchBBO(ctx)
	if err != nil {
		return []Placement{first}, fmt.Errorf("pricing: refresh bbo for ioc remainder: %w", err)
	}
	second, err := PlaceIOC(ctx, Params{
		Leg: p.Leg, Side: p.Side, Qty: remainder, BBO: bbo,
		Leverage: p.Leverage, AggressivenessBps: p.AggressivenessBps, PostOnlyTimeout: p.PostOnlyTimeout,
	})
	if err != nil {
		return []Placement{first}, err
	}
	return []Placement{first, second}, nil
}

// CombineFills aggregates a sequence of placements (e.g. a POST_ONLY partial
// followed by an IOC remainder) into a single filled-quantity/avg-price
// pair. The canceled portion of an earlier placement contributes nothing —
// only actually-filled size is averaged in, which is how the spec's §9
// open question on partial-fill accounting is resolved here: each
// placement's own Mode is preserved on the Placement slice so callers can
// still attribute fees per order type even after combining quantities.
func CombineFills(placements []Placement) (qty, avgPrice decimal.Decimal) {
	var notional decimal.Decimal
	for _, pl := range placements {
		if !pl.FilledQty.IsPositive() {
			continue
		}
		qty = qty.Add(pl.FilledQty)
		notional = notional.Add(pl.FilledQty.Mul(pl.AvgPrice))
	}
	if qty.IsPositive() {
		avgPrice = notional.Div(qty)
	}
	return qty, avgPrice
}
