package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if DecimalOrZero(cfg.MinSpreadBps).Sign() <= 0 {
		t.Fatal("expected positive min spread bps")
	}
	if DecimalOrZero(cfg.MaxSlippageBps).Sign() <= 0 {
		t.Fatal("expected positive max slippage bps")
	}
	if cfg.PostOnlyTimeoutS != 5 {
		t.Fatalf("expected post_only_timeout_s=5 by default, got %d", cfg.PostOnlyTimeoutS)
	}
	if cfg.MonitorTimeoutS != 60 {
		t.Fatalf("expected monitor_timeout_s=60 by default, got %d", cfg.MonitorTimeoutS)
	}
	if cfg.Risk.MaxRetries != 3 {
		t.Fatalf("expected risk.max_retries=3 by default, got %d", cfg.Risk.MaxRetries)
	}
	if cfg.API.Addr != ":8080" {
		t.Fatalf("expected api.addr=:8080 by default, got %q", cfg.API.Addr)
	}
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := "leg_a:\n  ticker: BTC-PERP\nleg_b:\n  ticker: ETH-PERP\nnotional_usd: \"500\"\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.LegA.Ticker != "BTC-PERP" || cfg.LegB.Ticker != "ETH-PERP" {
		t.Fatalf("unexpected legs: %+v / %+v", cfg.LegA, cfg.LegB)
	}
	if cfg.NotionalUSD != "500" {
		t.Fatalf("expected overridden notional_usd=500, got %q", cfg.NotionalUSD)
	}
	// Fields absent from the file fall through from Default().
	if cfg.PostOnlyTimeoutS != 5 {
		t.Fatalf("expected default post_only_timeout_s to survive, got %d", cfg.PostOnlyTimeoutS)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PAIRBOT_LEG_A_API_KEY", "key-a")
	t.Setenv("PAIRBOT_DRY_RUN", "true")
	t.Setenv("PAIRBOT_ITERATIONS", "7")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.LegA.APIKey != "key-a" {
		t.Fatalf("expected leg_a api key from env, got %q", cfg.LegA.APIKey)
	}
	if !cfg.DryRun {
		t.Fatal("expected dry_run=true from env")
	}
	if cfg.Iterations != 7 {
		t.Fatalf("expected iterations=7 from env, got %d", cfg.Iterations)
	}
}
