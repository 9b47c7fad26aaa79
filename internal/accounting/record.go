// Package accounting implements the PnL & Fee Accountant, the Cycle Log,
// and the in-memory Summary from spec §3/§4.6/§6. The position/PnL
// bookkeeping idiom (average-entry-price tracking, realized PnL on
// closing fills) is grounded on the teacher's execution.Tracker, here
// simplified to the pair engine's two-fill-per-leg-per-cycle shape instead
// of an open-ended running position.
package accounting

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType is the type an order was actually filled as.
type OrderType string

const (
	OrderIOC      OrderType = "IOC"
	OrderPostOnly OrderType = "POST_ONLY"
)

// LegDirection names which side a leg traded, for the cycle record.
type LegDirection string

const (
	Long  LegDirection = "long"
	Short LegDirection = "short"
)

// LegFill captures one leg's average fill price/quantity/order-type for
// either the entry or exit half of a cycle.
type LegFill struct {
	Ticker    string
	Direction LegDirection
	Price     decimal.Decimal
	Quantity  decimal.Decimal // signed: long positive, short negative
	OrderType OrderType       // the order type of the fill's first placement, for display only
	FeeUSD    decimal.Decimal // precomputed at fill time, one rate per underlying placement
}

// CycleRecord is the immutable record written once per cycle, per spec §3.
type CycleRecord struct {
	CycleID   int64
	Direction string // e.g. "A=long,B=short"

	EntryFills     map[string]LegFill
	EntryTimestamp time.Time

	ExitFills     map[string]LegFill
	ExitTimestamp time.Time

	HoldSeconds float64

	FeesUSD        decimal.Decimal
	FundingPnLUSD  decimal.Decimal
	PnLNoFeeUSD    decimal.Decimal
	PnLWithFeeUSD  decimal.Decimal

	SkipReason string
}

// IsSkip reports whether the cycle executed no trades.
func (r CycleRecord) IsSkip() bool { return r.SkipReason != "" }
