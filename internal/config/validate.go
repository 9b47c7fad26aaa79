package config

import "fmt"

// Validate checks high-impact runtime configuration constraints.
func (c Config) Validate() error {
	if c.LegA.Ticker == "" || c.LegB.Ticker == "" {
		return fmt.Errorf("leg_a.ticker and leg_b.ticker must both be set")
	}
	if c.LegA.Ticker == c.LegB.Ticker {
		return fmt.Errorf("leg_a.ticker and leg_b.ticker must differ, got %q twice", c.LegA.Ticker)
	}
	if DecimalOrZero(c.NotionalUSD).Sign() <= 0 {
		return fmt.Errorf("notional_usd must be > 0, got %q", c.NotionalUSD)
	}
	if DecimalOrZero(c.Leverage).Sign() <= 0 {
		return fmt.Errorf("leverage must be > 0, got %q", c.Leverage)
	}
	if DecimalOrZero(c.MinSpreadBps).Sign() < 0 {
		return fmt.Errorf("min_spread_bps must be >= 0, got %q", c.MinSpreadBps)
	}
	if DecimalOrZero(c.MaxSlippageBps).Sign() <= 0 {
		return fmt.Errorf("max_slippage_bps must be > 0, got %q", c.MaxSlippageBps)
	}
	if c.PostOnlyTimeoutS <= 0 {
		return fmt.Errorf("post_only_timeout_s must be > 0, got %d", c.PostOnlyTimeoutS)
	}
	if c.MonitorExitTiming && c.MonitorTimeoutS <= 0 {
		return fmt.Errorf("monitor_timeout_s must be > 0 when monitor_exit_timing is set, got %d", c.MonitorTimeoutS)
	}
	if c.Risk.MaxRetries < 0 {
		return fmt.Errorf("risk.max_retries must be >= 0, got %d", c.Risk.MaxRetries)
	}
	if c.Risk.MaxConsecutiveFaults <= 0 {
		return fmt.Errorf("risk.max_consecutive_faults must be > 0, got %d", c.Risk.MaxConsecutiveFaults)
	}
	if c.CycleLogPath == "" {
		return fmt.Errorf("cycle_log_path must be set")
	}
	return nil
}
