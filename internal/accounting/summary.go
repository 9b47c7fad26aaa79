package accounting

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Summary holds the mutable cross-cycle counters from spec §3. It is
// mutated only by the accountant and is safe for concurrent reads from the
// status API.
type Summary struct {
	mu sync.RWMutex

	totalCycles      int64
	profitableCycles int64
	losingCycles     int64
	zeroCycles       int64

	bestPnL  decimal.Decimal
	worstPnL decimal.Decimal
	haveAny  bool

	cumulativeFees        decimal.Decimal
	cumulativePnLNoFee    decimal.Decimal
	cumulativePnLWithFee  decimal.Decimal
}

// NewSummary returns a zeroed Summary.
func NewSummary() *Summary { return &Summary{} }

// Record folds a closed (non-skip) cycle into the running counters. Skip
// records do not count toward profitable/losing/cumulative PnL (spec §8.8:
// profitable+losing+zero == total_non_skip_cycles).
func (s *Summary) Record(rec CycleRecord) {
	if rec.IsSkip() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalCycles++
	switch {
	case rec.PnLWithFeeUSD.IsPositive():
		s.profitableCycles++
	case rec.PnLWithFeeUSD.IsNegative():
		s.losingCycles++
	default:
		s.zeroCycles++
	}

	if !s.haveAny {
		s.bestPnL, s.worstPnL, s.haveAny = rec.PnLWithFeeUSD, rec.PnLWithFeeUSD, true
	} else {
		if rec.PnLWithFeeUSD.GreaterThan(s.bestPnL) {
			s.bestPnL = rec.PnLWithFeeUSD
		}
		if rec.PnLWithFeeUSD.LessThan(s.worstPnL) {
			s.worstPnL = rec.PnLWithFeeUSD
		}
	}

	s.cumulativeFees = s.cumulativeFees.Add(rec.FeesUSD)
	s.cumulativePnLNoFee = s.cumulativePnLNoFee.Add(rec.PnLNoFeeUSD)
	s.cumulativePnLWithFee = s.cumulativePnLWithFee.Add(rec.PnLWithFeeUSD)
}

// Snapshot is a point-in-time copy of the counters, safe to serialize.
type Snapshot struct {
	TotalCycles          int64           `json:"total_cycles"`
	ProfitableCycles     int64           `json:"profitable_cycles"`
	LosingCycles         int64           `json:"losing_cycles"`
	ZeroCycles           int64           `json:"zero_cycles"`
	BestPnLUSD           decimal.Decimal `json:"best_pnl_usd"`
	WorstPnLUSD          decimal.Decimal `json:"worst_pnl_usd"`
	CumulativeFeesUSD    decimal.Decimal `json:"cumulative_fees_usd"`
	CumulativePnLNoFee   decimal.Decimal `json:"cumulative_pnl_no_fee_usd"`
	CumulativePnLWithFee decimal.Decimal `json:"cumulative_pnl_with_fee_usd"`
}

// Snapshot returns a consistent copy of the counters.
func (s *Summary) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		TotalCycles:          s.totalCycles,
		ProfitableCycles:     s.profitableCycles,
		LosingCycles:         s.losingCycles,
		ZeroCycles:           s.zeroCycles,
		BestPnLUSD:           s.bestPnL,
		WorstPnLUSD:          s.worstPnL,
		CumulativeFeesUSD:    s.cumulativeFees,
		CumulativePnLNoFee:   s.cumulativePnLNoFee,
		CumulativePnLWithFee: s.cumulativePnLWithFee,
	}
}
