// Package exchangeclient defines the contract the cycle engine consumes
// from a single perpetual-futures venue client. Nothing in this package
// signs orders, opens sockets, or speaks a wire protocol — per the
// specification that machinery belongs to an external collaborator. This
// package exists so the rest of the engine can depend on an interface
// instead of a concrete SDK, the same way the teacher's App depended on
// clob.Client/ws.Client/data.Client rather than reaching for a singleton.
package exchangeclient

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Side is a trading direction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// DepthSide selects which side of the book get_available_liquidity reads.
type DepthSide string

const (
	DepthBid DepthSide = "bid"
	DepthAsk DepthSide = "ask"
)

// OrderStatus mirrors the fill-wait primitive's status enum from spec §4.3.
type OrderStatus string

const (
	StatusFilled         OrderStatus = "FILLED"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusCancelled      OrderStatus = "CANCELLED"
	StatusTimedOut       OrderStatus = "TIMED_OUT"
	StatusRejected       OrderStatus = "REJECTED"
)

// InvalidSlippageBps is the sentinel estimate_slippage(qty=0) (and other
// invalid inputs) must return. It is a large finite bps value chosen so a
// naive "<= ceiling" comparison correctly rejects it — zero would look like
// a perfect fill and is never used as an "OK" result. See spec §7.
var InvalidSlippageBps = decimal.NewFromInt(999999)

// ErrBookDepthUnavailable is returned by BookDepthHandle when no streaming
// handler exists yet for a leg.
var ErrBookDepthUnavailable = errors.New("exchangeclient: bookdepth handle unavailable")

// BBO is a best-bid/best-ask snapshot. Both fields must be positive and
// Ask >= Bid for a valid quote.
type BBO struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

// Valid reports whether the quote is usable for pricing.
func (b BBO) Valid() bool {
	return b.Bid.IsPositive() && b.Ask.IsPositive() && b.Ask.GreaterThanOrEqual(b.Bid)
}

// BookDepth walks resting liquidity on one side of the book.
type BookDepth interface {
	// EstimateSlippageBps returns the notional-volume-weighted deviation
	// from the top price, in bps, of consuming qty on the given side.
	// side="buy" consumes asks, side="sell" consumes bids. qty<=0 MUST
	// return InvalidSlippageBps.
	EstimateSlippageBps(side Side, qty decimal.Decimal) decimal.Decimal
	// AvailableLiquidity returns cumulative resting size up to maxDepth
	// price levels on the given side.
	AvailableLiquidity(side DepthSide, maxDepth int) decimal.Decimal
}

// OrderResult is returned by order placement calls.
type OrderResult struct {
	OrderID    string
	Status     OrderStatus
	FilledSize decimal.Decimal
	AvgPrice   decimal.Decimal
	FeesPaid   decimal.Decimal // zero if the venue doesn't report fees inline
}

// FillInfo is returned by the fill-wait primitive.
type FillInfo struct {
	Status     OrderStatus
	FilledSize decimal.Decimal
	AvgPrice   decimal.Decimal
}

// LegClient is the capability set a single contract/leg's exchange client
// must expose. The Cycle Controller holds one of these per leg (spec §9:
// "treat each leg as a value with a capability set", not an inheritance
// hierarchy), which trivially extends to N-leg baskets.
type LegClient interface {
	// FetchBBO returns the current best bid/ask, falling back to REST
	// internally if no stream is active yet.
	FetchBBO(ctx context.Context) (BBO, error)

	// BookDepthHandle returns the streaming depth handle, or
	// ErrBookDepthUnavailable if no stream has attached yet.
	BookDepthHandle(ctx context.Context) (BookDepth, error)

	// PlaceIOCOrder submits a marketable limit order with
	// time_in_force=IOC. isolatedMarginX6 is the 1e6-scaled isolated
	// margin amount computed by the caller (spec §4.3/§6); it must be
	// passed through unmodified.
	PlaceIOCOrder(ctx context.Context, side Side, qty, price decimal.Decimal, isolatedMarginX6 int64) (OrderResult, error)

	// PlacePostOnlyOrder submits a passive limit order guaranteed to post
	// or be rejected.
	PlacePostOnlyOrder(ctx context.Context, side Side, qty, price decimal.Decimal, isolatedMarginX6 int64) (OrderResult, error)

	// CancelOrder cancels a resting order, returning its terminal status.
	CancelOrder(ctx context.Context, orderID string) (OrderStatus, error)

	// WaitForFill blocks (bounded by timeout) for an order's fill state.
	WaitForFill(ctx context.Context, orderID string, timeout time.Duration) (FillInfo, error)

	// GetAccountPosition returns this leg's current signed quantity
	// (long positive, short negative).
	GetAccountPosition(ctx context.Context) (decimal.Decimal, error)

	// GetFundingRate returns the annualized funding rate. May be served
	// from a cache; spec §7 says a stale/missing rate must never block a
	// cycle.
	GetFundingRate(ctx context.Context) (decimal.Decimal, error)

	// TickSize is the minimum quantity increment for this leg's contract.
	TickSize() decimal.Decimal

	// Ticker is a human-readable identifier used in logs and records.
	Ticker() string

	// ContractID is the venue-specific contract identifier.
	ContractID() string
}

// IsolatedMarginX6 rounds notional/leverage to the exchange's six-decimal
// integer convention. This must be applied once, at the client boundary —
// omitting it silently degrades an order to cross margin (spec §4.3/§6).
func IsolatedMarginX6(notional, leverage decimal.Decimal) int64 {
	if leverage.IsZero() {
		return 0
	}
	margin := notional.Div(leverage)
	scaled := margin.Mul(decimal.NewFromInt(1_000_000))
	return scaled.Round(0).IntPart()
}
