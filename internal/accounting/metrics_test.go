package accounting

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestNewMetricsRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	if m == nil {
		t.Fatal("expected non-nil metrics")
	}
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestObserveProfitableCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	rec := cycleRecord("10")
	m.Observe(rec)

	if got := counterValue(t, m.FeesUSDTotal); got != 1 {
		t.Errorf("expected fees total=1, got %f", got)
	}
	if got := counterValue(t, m.PnLCumulativeUSD); got != 10 {
		t.Errorf("expected cumulative pnl=10, got %f", got)
	}
}

func TestObserveLosingCycleDoesNotAddToCumulative(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Observe(cycleRecord("-10"))

	if got := counterValue(t, m.PnLCumulativeUSD); got != 0 {
		t.Errorf("expected cumulative pnl unaffected by a loss, got %f", got)
	}
}

func TestObserveNilMetricsNoPanic(t *testing.T) {
	var m *Metrics
	m.Observe(cycleRecord("10")) // must not panic
}

func TestObserveNetNegativeFundingDoesNotPanic(t *testing.T) {
	// Regression guard: two legs routinely carry different annualized
	// funding rates, so FundingPnLUSD is negative on an ordinary cycle.
	// FundingUSDTotal must be a Gauge, not a Counter, or this panics.
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	rec := cycleRecord("10")
	rec.FundingPnLUSD = dec("-7.5")
	m.Observe(rec)

	if got := gaugeValue(t, m.FundingUSDTotal); got != -7.5 {
		t.Errorf("expected funding gauge=-7.5, got %f", got)
	}
}
