// Command pairbot runs the delta-neutral pair execution engine. It wires
// two leg clients, the market-data view, the risk governor, the
// accounting log/summary/metrics, an optional Telegram notifier, and the
// status API, then drives the Cycle Controller's run loop — the same
// overall shape as the teacher's cmd/trader/main.go, rebuilt around two
// symmetric legs instead of an open market set.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/pairbot/internal/accounting"
	"github.com/GoPolymarket/pairbot/internal/api"
	"github.com/GoPolymarket/pairbot/internal/config"
	"github.com/GoPolymarket/pairbot/internal/cycle"
	"github.com/GoPolymarket/pairbot/internal/exchangeclient/simclient"
	"github.com/GoPolymarket/pairbot/internal/marketdata"
	"github.com/GoPolymarket/pairbot/internal/notify"
	"github.com/GoPolymarket/pairbot/internal/risk"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	dryRun := flag.Bool("dry_run", false, "evaluate Spread Gate/Sizing, skip order submission")
	iterations := flag.Int("iterations", 0, "cycle cap; 0 = unbounded")
	flag.Parse()

	cfg, err := config.LoadFile(*cfgPath)
	if err != nil {
		log.Printf("warning: config file: %v, using defaults", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	if *dryRun {
		cfg.DryRun = true
	}
	if *iterations != 0 {
		cfg.Iterations = *iterations
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	log.Printf("pairbot starting: %s / %s (dry_run=%t)", cfg.LegA.Ticker, cfg.LegB.Ticker, cfg.DryRun)

	// No real venue SDK is in scope for this engine (spec §1: the bit-level
	// exchange protocol is an external collaborator's concern) — both legs
	// run against the in-memory fake that implements the same
	// exchangeclient.LegClient contract a real venue client would.
	legA := simclient.New(cfg.LegA.Ticker, cfg.LegA.ContractID, config.DecimalOrZero(cfg.LegA.TickSize), decimal.NewFromFloat(0.10))
	legB := simclient.New(cfg.LegB.Ticker, cfg.LegB.ContractID, config.DecimalOrZero(cfg.LegB.TickSize), decimal.NewFromFloat(0.10))

	view := marketdata.New(legA, legB)

	cycleLog, err := accounting.OpenLog(cfg.CycleLogPath, cfg.LegA.Ticker, cfg.LegB.Ticker)
	if err != nil {
		log.Fatalf("cycle log: %v", err)
	}
	defer cycleLog.Close()

	spreadLog, err := accounting.OpenSpreadLog(cfg.SpreadLogPath)
	if err != nil {
		log.Fatalf("spread log: %v", err)
	}
	defer spreadLog.Close()

	summary := accounting.NewSummary()
	metrics := accounting.NewMetrics(prometheus.DefaultRegisterer)
	fees := accounting.FeeRates{TakerBps: config.DecimalOrZero(cfg.TakerFeeBps), MakerBps: config.DecimalOrZero(cfg.MakerFeeBps)}

	gov := risk.New(risk.Config{
		MaxRetries:           cfg.Risk.MaxRetries,
		RetryBackoff:         cfg.Risk.RetryBackoff,
		MaxConsecutiveFaults: cfg.Risk.MaxConsecutiveFaults,
	})

	var notifier cycle.Notifier
	tg := notify.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if cfg.Telegram.Enabled && tg.Enabled() {
		notifier = tg
	}

	pairCfg := cycle.PairConfig{
		LegA:             cycle.LegConfig{Ticker: cfg.LegA.Ticker, ContractID: cfg.LegA.ContractID, TickSize: config.DecimalOrZero(cfg.LegA.TickSize)},
		LegB:             cycle.LegConfig{Ticker: cfg.LegB.Ticker, ContractID: cfg.LegB.ContractID, TickSize: config.DecimalOrZero(cfg.LegB.TickSize)},
		NotionalUSD:      config.DecimalOrZero(cfg.NotionalUSD),
		Leverage:         config.DecimalOrZero(cfg.Leverage),
		ReverseDirection: cfg.ReverseDirection,
		MinSpreadBps:     config.DecimalOrZero(cfg.MinSpreadBps),
		MaxSlippageBps:   config.DecimalOrZero(cfg.MaxSlippageBps),
		SpreadMaxWaitS:   cfg.SpreadMaxWaitS,
		UsePostOnlyEntry: cfg.UsePostOnlyEntry,
		PostOnlyTimeoutS: cfg.PostOnlyTimeoutS,
		MonitorExitTiming: cfg.MonitorExitTiming,
		MinProfitBps:      config.DecimalOrZero(cfg.MinProfitBps),
		LossLimitBps:      config.DecimalOrZero(cfg.LossLimitBps),
		MonitorTimeoutS:   cfg.MonitorTimeoutS,
	}

	opts := []cycle.Option{cycle.WithMetrics(metrics), cycle.WithDryRun(cfg.DryRun)}
	if notifier != nil {
		opts = append(opts, cycle.WithNotifier(notifier))
	}
	controller := cycle.New(pairCfg, legA, legB, view, cycleLog, spreadLog, summary, fees, gov, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.API.Enabled {
		srv := api.NewServer(cfg.API.Addr, engineAdapter{controller})
		if err := srv.Start(ctx); err != nil {
			log.Fatalf("api server: %v", err)
		}
		defer srv.Shutdown(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if err := controller.RunLoop(ctx, cfg.Iterations); err != nil {
		log.Printf("run loop ended: %v", err)
	}
	log.Println("pairbot shutting down")
}

// engineAdapter satisfies api.EngineState without internal/api importing
// internal/cycle (the dependency runs main -> api, main -> cycle, never
// api -> cycle).
type engineAdapter struct{ c *cycle.Controller }

func (e engineAdapter) Snapshot() api.CycleSnapshot {
	s := e.c.Snapshot()
	return api.CycleSnapshot{CycleID: s.CycleID, Direction: s.Direction, Phase: string(s.Phase), EntryTimestamp: s.EntryTimestamp}
}

func (e engineAdapter) Summary() accounting.Snapshot { return e.c.Summary() }

func (e engineAdapter) Positions(ctx context.Context) (map[string]api.PositionView, error) {
	out := make(map[string]api.PositionView, 2)
	for _, leg := range e.c.Legs() {
		pos, err := leg.GetAccountPosition(ctx)
		if err != nil {
			return nil, err
		}
		out[leg.Ticker()] = api.PositionView{Ticker: leg.Ticker(), Qty: pos.String()}
	}
	return out, nil
}
