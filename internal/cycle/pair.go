// Package cycle implements the Cycle Controller state machine from spec
// §4.5: IDLE -> BUILD -> (MONITOR) -> UNWIND -> IDLE. It is grounded on the
// teacher's App (internal/app/app.go), which owns the same kind of
// orchestration role — holding client handles, a market-data view, a risk
// gate, and an accountant, and sequencing a scan/quote/place loop — here
// rewritten around two symmetric legs and a rigid phase sequence instead of
// an open-ended set of concurrently-quoted Polymarket markets.
package cycle

import "github.com/shopspring/decimal"

// LegConfig is one leg's immutable per-run configuration, per spec §3.
type LegConfig struct {
	Ticker     string
	ContractID string
	TickSize   decimal.Decimal
}

// PairConfig is the immutable pair configuration from spec §3.
type PairConfig struct {
	LegA, LegB       LegConfig
	NotionalUSD      decimal.Decimal // shared pair target; each leg gets NotionalUSD/2
	Leverage         decimal.Decimal
	ReverseDirection bool // swaps which leg is bought vs sold

	MinSpreadBps    decimal.Decimal
	MaxSlippageBps  decimal.Decimal
	SpreadMaxWaitS  int // 0 disables the optional timing search
	UsePostOnlyEntry bool
	PostOnlyTimeoutS int

	MonitorExitTiming bool
	MinProfitBps      decimal.Decimal
	LossLimitBps      decimal.Decimal
	MonitorTimeoutS   int
}

// perLegNotional is half the pair target when legs are symmetric, per spec
// §4.2's Inputs definition.
func (p PairConfig) perLegNotional() decimal.Decimal {
	return p.NotionalUSD.Div(decimal.NewFromInt(2))
}

// buyLeg/sellLeg resolve which leg is bought vs sold for entry, honoring
// ReverseDirection (spec §3: "default: leg A bought, leg B sold").
func (p PairConfig) buyLeg() LegConfig {
	if p.ReverseDirection {
		return p.LegB
	}
	return p.LegA
}

func (p PairConfig) sellLeg() LegConfig {
	if p.ReverseDirection {
		return p.LegA
	}
	return p.LegB
}

func (p PairConfig) directionLabel() string {
	if p.ReverseDirection {
		return "B=long,A=short"
	}
	return "A=long,B=short"
}
