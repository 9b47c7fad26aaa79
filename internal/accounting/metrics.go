// Prometheus counters mirroring the Summary, exposed at /metrics by
// internal/api. Grounded on chidi150c-coinbase's metrics.go (same
// retrieval pack), which registers bot counters in package scope and
// serves them via promhttp — here scoped to a Metrics struct instead of
// package globals so a test can construct its own registry.
package accounting

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors the accountant updates on every
// cycle close.
type Metrics struct {
	CyclesTotal      *prometheus.CounterVec
	FeesUSDTotal     prometheus.Counter
	FundingUSDTotal  prometheus.Gauge
	PnLWithFeeUSD    prometheus.Gauge
	PnLCumulativeUSD prometheus.Counter
}

// NewMetrics registers a fresh set of collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pairbot_cycles_total",
			Help: "Completed cycles by result (profit|loss|zero|skip)",
		}, []string{"result"}),
		FeesUSDTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pairbot_fees_usd_total",
			Help: "Cumulative fees paid across both legs, in USD",
		}),
		FundingUSDTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pairbot_funding_pnl_usd_total",
			Help: "Cumulative signed funding accrual across both legs, in USD",
		}),
		PnLWithFeeUSD: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pairbot_last_cycle_pnl_with_fee_usd",
			Help: "pnl_with_fee_usd of the most recently closed cycle",
		}),
		PnLCumulativeUSD: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pairbot_pnl_with_fee_usd_total",
			Help: "Sum of pnl_with_fee_usd over profitable cycles only; losing cycles are not subtracted",
		}),
	}
	reg.MustRegister(m.CyclesTotal, m.FeesUSDTotal, m.FundingUSDTotal, m.PnLWithFeeUSD, m.PnLCumulativeUSD)
	return m
}

// Observe folds a closed cycle record into the collectors.
func (m *Metrics) Observe(rec CycleRecord) {
	if m == nil {
		return
	}
	if rec.IsSkip() {
		m.CyclesTotal.WithLabelValues("skip").Inc()
		return
	}
	switch {
	case rec.PnLWithFeeUSD.IsPositive():
		m.CyclesTotal.WithLabelValues("profit").Inc()
	case rec.PnLWithFeeUSD.IsNegative():
		m.CyclesTotal.WithLabelValues("loss").Inc()
	default:
		m.CyclesTotal.WithLabelValues("zero").Inc()
	}
	feesF, _ := rec.FeesUSD.Float64()
	fundingF, _ := rec.FundingPnLUSD.Float64()
	pnlF, _ := rec.PnLWithFeeUSD.Float64()
	m.FeesUSDTotal.Add(feesF)
	m.FundingUSDTotal.Add(fundingF)
	m.PnLWithFeeUSD.Set(pnlF)
	if pnlF > 0 {
		m.PnLCumulativeUSD.Add(pnlF)
	}
}
