package cycle

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/pairbot/internal/accounting"
)

// monitorOutcome names why MONITOR ended, purely for logging — UNWIND
// always runs regardless of which condition fired (spec §4.5: MONITOR
// only decides *when* to unwind, never *whether*).
type monitorOutcome string

const (
	monitorProfitTarget monitorOutcome = "PROFIT_TARGET"
	monitorLossLimit    monitorOutcome = "LOSS_LIMIT"
	monitorTimeout      monitorOutcome = "TIMEOUT"
)

// monitor runs spec §4.5's optional MONITOR phase: poll unrealized PnL in
// bps at 1Hz until PROFIT_TARGET, LOSS_LIMIT, or TIMEOUT fires. It never
// returns an error — any BBO read failure is treated as a missed poll, and
// the phase simply falls through to its timeout like any other tick.
func (c *Controller) monitor(ctx context.Context, entryFills map[string]accounting.LegFill) monitorOutcome {
	deadline := time.Now().Add(time.Duration(c.cfg.MonitorTimeoutS) * time.Second)
	notional := entryNotionalUSD(entryFills)

	ticker := time.NewTicker(defaultMonitorPoll)
	defer ticker.Stop()

	for {
		if time.Now().After(deadline) {
			return monitorTimeout
		}

		pnlBps, err := c.unrealizedPnLBps(ctx, entryFills, notional)
		if err != nil {
			log.Printf("cycle: monitor pnl read failed: %v", err)
		} else {
			if pnlBps.GreaterThanOrEqual(c.cfg.MinProfitBps) {
				return monitorProfitTarget
			}
			if pnlBps.LessThanOrEqual(c.cfg.LossLimitBps.Neg()) {
				return monitorLossLimit
			}
		}

		select {
		case <-ctx.Done():
			return monitorTimeout
		case <-ticker.C:
		}
	}
}

// unrealizedPnLBps marks both legs to current mid and expresses the
// combined directional PnL as bps of entry notional (spec §4.5).
func (c *Controller) unrealizedPnLBps(ctx context.Context, entryFills map[string]accounting.LegFill, notional decimal.Decimal) (decimal.Decimal, error) {
	if notional.IsZero() {
		return decimal.Zero, nil
	}
	var pnl decimal.Decimal
	for ticker, fill := range entryFills {
		mid, err := c.view.Mid(ctx, ticker)
		if err != nil {
			return decimal.Zero, err
		}
		pnl = pnl.Add(accounting.DirectionalPnL(fill.Direction, fill.Price, mid, fill.Quantity.Abs()))
	}
	return pnl.Div(notional).Mul(decimal.NewFromInt(10000)), nil
}
