// Package config holds the pair engine's run configuration, unmarshaled
// from YAML the same way the teacher's internal/config does, overlaid with
// PAIRBOT_* environment variables and finally CLI flags (cmd/pairbot's own
// precedence order: file, then env, then flags).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the engine's full run configuration (spec §3, §6).
type Config struct {
	LegA LegConfig `yaml:"leg_a"`
	LegB LegConfig `yaml:"leg_b"`

	NotionalUSD      string `yaml:"notional_usd"`
	Leverage         string `yaml:"leverage"`
	ReverseDirection bool   `yaml:"reverse_direction"`
	Iterations       int    `yaml:"iterations"`

	MinSpreadBps     string `yaml:"min_spread_bps"`
	MaxSlippageBps   string `yaml:"max_slippage_bps"`
	SpreadMaxWaitS   int    `yaml:"spread_max_wait_s"`
	UsePostOnlyEntry bool   `yaml:"use_post_only_entry"`
	PostOnlyTimeoutS int    `yaml:"post_only_timeout_s"`

	MonitorExitTiming bool   `yaml:"monitor_exit_timing"`
	MinProfitBps      string `yaml:"min_profit_bps"`
	LossLimitBps      string `yaml:"loss_limit_bps"`
	MonitorTimeoutS   int    `yaml:"monitor_timeout_s"`

	TakerFeeBps string `yaml:"taker_fee_bps"`
	MakerFeeBps string `yaml:"maker_fee_bps"`

	DryRun   bool   `yaml:"dry_run"`
	LogLevel string `yaml:"log_level"`

	CycleLogPath  string `yaml:"cycle_log_path"`
	SpreadLogPath string `yaml:"spread_log_path"`

	Risk     RiskConfig     `yaml:"risk"`
	Telegram TelegramConfig `yaml:"telegram"`
	API      APIConfig      `yaml:"api"`
}

// LegConfig is one leg's venue identity and credentials. The credentials
// are opaque to the engine — they are only ever handed to the external
// exchange-client collaborator (spec §1/§6), never parsed here.
type LegConfig struct {
	Ticker     string `yaml:"ticker"`
	ContractID string `yaml:"contract_id"`
	TickSize   string `yaml:"tick_size"`
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
}

// RiskConfig configures the Governor's retry/halt behavior (spec §4.5/§7).
type RiskConfig struct {
	MaxRetries           int           `yaml:"max_retries"`
	RetryBackoff         time.Duration `yaml:"retry_backoff"`
	MaxConsecutiveFaults int           `yaml:"max_consecutive_faults"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default supplies every numeric default spec §4/§6 names.
func Default() Config {
	return Config{
		NotionalUSD:       "200",
		Leverage:          "3",
		MinSpreadBps:      "20",
		MaxSlippageBps:    "10",
		SpreadMaxWaitS:    30,
		PostOnlyTimeoutS:  5,
		MonitorTimeoutS:   60,
		MinProfitBps:      "10",
		LossLimitBps:      "30",
		TakerFeeBps:       "5",
		MakerFeeBps:       "2",
		LogLevel:          "info",
		CycleLogPath:      "cycles.csv",
		SpreadLogPath:     "spreads.csv",
		Risk: RiskConfig{
			MaxRetries:           3,
			RetryBackoff:         2 * time.Second,
			MaxConsecutiveFaults: 5,
		},
		API: APIConfig{
			Enabled: true,
			Addr:    ":8080",
		},
	}
}

// LoadFile unmarshals a YAML config file over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overlays PAIRBOT_* environment variables, matching the
// teacher's POLYMARKET_*/TRADER_* overlay mechanism.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PAIRBOT_LEG_A_API_KEY"); v != "" {
		c.LegA.APIKey = v
	}
	if v := os.Getenv("PAIRBOT_LEG_A_API_SECRET"); v != "" {
		c.LegA.APISecret = v
	}
	if v := os.Getenv("PAIRBOT_LEG_B_API_KEY"); v != "" {
		c.LegB.APIKey = v
	}
	if v := os.Getenv("PAIRBOT_LEG_B_API_SECRET"); v != "" {
		c.LegB.APISecret = v
	}
	if v := os.Getenv("PAIRBOT_TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("PAIRBOT_TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := strings.TrimSpace(os.Getenv("PAIRBOT_DRY_RUN")); v != "" {
		c.DryRun = strings.EqualFold(v, "true") || v == "1"
	}
	if v := strings.TrimSpace(os.Getenv("PAIRBOT_ITERATIONS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Iterations = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("PAIRBOT_NOTIONAL_USD")); v != "" {
		c.NotionalUSD = v
	}
}

// DecimalOrZero parses a string config field, defaulting to zero on an
// empty or malformed value — used at startup rather than deep in the hot
// path. Validate rejects a zero notional_usd, leverage or max_slippage_bps,
// so a bad value there surfaces via log.Fatalf in main; for other fields
// (min_spread_bps, fees, monitor thresholds, tick sizes) a malformed value
// is used as zero without an error.
func DecimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
