package cycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/pairbot/internal/accounting"
	"github.com/GoPolymarket/pairbot/internal/exchangeclient"
	"github.com/GoPolymarket/pairbot/internal/marketdata"
	"github.com/GoPolymarket/pairbot/internal/pricing"
	"github.com/GoPolymarket/pairbot/internal/risk"
	"github.com/GoPolymarket/pairbot/internal/sizing"
	"github.com/GoPolymarket/pairbot/internal/spreadgate"
	"github.com/GoPolymarket/pairbot/internal/unwind"
)

// Notifier is the alerting contract the Controller uses, defined here
// (rather than imported from internal/notify) the same way the teacher's
// App defines its own Notifier interface in package app and wires a
// concrete internal/notify.Notifier into it — callers own the dependency
// direction, not the notification package.
type Notifier interface {
	NotifyCycleClosed(ctx context.Context, rec accounting.CycleRecord) error
	NotifyEmergencyUnwind(ctx context.Context, reason string, res unwind.Result) error
	NotifyHalt(ctx context.Context, reason string) error
}

// noopNotifier is used when no notifier is configured.
type noopNotifier struct{}

func (noopNotifier) NotifyCycleClosed(context.Context, accounting.CycleRecord) error   { return nil }
func (noopNotifier) NotifyEmergencyUnwind(context.Context, string, unwind.Result) error { return nil }
func (noopNotifier) NotifyHalt(context.Context, string) error                          { return nil }

// Controller is the Cycle Controller. It exclusively owns LiveState; the
// Sizing Estimator and Pricing & Order Placer it calls are stateless.
type Controller struct {
	cfg  PairConfig
	legA exchangeclient.LegClient
	legB exchangeclient.LegClient

	view     *marketdata.View
	log      *accounting.Log
	spreadLog *accounting.SpreadLog
	summary  *accounting.Summary
	metrics  *accounting.Metrics
	fees     accounting.FeeRates
	gov      *risk.Governor
	notifier Notifier

	state *LiveState

	dryRun bool
}

// Option configures optional Controller dependencies.
type Option func(*Controller)

// WithNotifier sets the alerting sink (default: a no-op).
func WithNotifier(n Notifier) Option { return func(c *Controller) { c.notifier = n } }

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *accounting.Metrics) Option { return func(c *Controller) { c.metrics = m } }

// WithDryRun makes the controller evaluate the Spread Gate and Sizing
// Estimator but skip order submission, per spec §6's dry_run CLI option.
func WithDryRun(dry bool) Option { return func(c *Controller) { c.dryRun = dry } }

// New constructs a Controller for one pair.
func New(cfg PairConfig, legA, legB exchangeclient.LegClient, view *marketdata.View, cyclelog *accounting.Log, spreadLog *accounting.SpreadLog, summary *accounting.Summary, fees accounting.FeeRates, gov *risk.Governor, opts ...Option) *Controller {
	c := &Controller{
		cfg: cfg, legA: legA, legB: legB,
		view: view, log: cyclelog, spreadLog: spreadLog, summary: summary,
		fees: fees, gov: gov, notifier: noopNotifier{}, state: newLiveState(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Snapshot exposes the current live state for the status API.
func (c *Controller) Snapshot() Snapshot { return c.state.Snapshot() }

// Summary exposes the running Summary counters for the status API.
func (c *Controller) Summary() accounting.Snapshot { return c.summary.Snapshot() }

func (c *Controller) legs() []exchangeclient.LegClient { return []exchangeclient.LegClient{c.legA, c.legB} }

// Legs exposes both leg clients for the status API's position polling.
func (c *Controller) Legs() []exchangeclient.LegClient { return c.legs() }

// RunLoop drives cycles until iterations is reached (0 = unbounded), ctx is
// canceled, or the Governor halts the engine (spec §4.5/§6's iterations
// CLI option and halt semantics).
func (c *Controller) RunLoop(ctx context.Context, iterations int) error {
	for i := 0; iterations == 0 || i < iterations; i++ {
		if halted, reason := c.gov.Halted(); halted {
			return fmt.Errorf("cycle: engine halted: %s", reason)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := c.RunOnce(ctx); err != nil {
			log.Printf("cycle: iteration error: %v", err)
			c.gov.RecordFault(err.Error())
			continue
		}
		c.gov.RecordSuccess()
	}
	return nil
}

// RunOnce executes exactly one pass of spec §4.5's sequence: Spread Gate ->
// BUILD -> (MONITOR) -> UNWIND -> reconciliation -> accounting. A Spread
// Gate no-go is a normal, non-error outcome (cycle_id is not assigned).
func (c *Controller) RunOnce(ctx context.Context) error {
	maxWait := time.Duration(c.cfg.SpreadMaxWaitS) * time.Second
	var snap spreadgate.Snapshot
	var err error
	if c.cfg.SpreadMaxWaitS > 0 {
		snap, err = spreadgate.WaitForSpread(ctx, c.view, c.legs(), c.cfg.MinSpreadBps, maxWait)
	} else {
		snap, err = spreadgate.Evaluate(ctx, c.view, c.legs(), c.cfg.MinSpreadBps)
	}
	if err != nil {
		return fmt.Errorf("cycle: spread gate: %w", err)
	}
	if c.spreadLog != nil {
		if lerr := c.spreadLog.Append(snap); lerr != nil {
			log.Printf("cycle: spread log append failed: %v", lerr)
		}
	}
	if !snap.Go {
		return nil
	}
	if c.dryRun {
		return nil
	}

	cycleID := c.log.NextCycleID()
	direction := c.cfg.directionLabel()
	c.state.beginBuild(cycleID, direction)

	entryFills, buildErr := c.build(ctx, cycleID, direction)
	if buildErr != nil {
		return buildErr
	}
	if entryFills == nil {
		// one-sided or zero-sided fill already handled (record written,
		// state cleared) inside build().
		return nil
	}
	c.state.recordEntry(entryFills, time.Now())

	if c.cfg.MonitorExitTiming {
		c.state.setPhase(PhaseMonitor)
		outcome := c.monitor(ctx, entryFills)
		log.Printf("cycle: monitor phase ended: %s", outcome)
	}

	c.state.setPhase(PhaseUnwind)
	return c.unwindCycle(ctx, cycleID, direction, entryFills)
}

func legDirectionFor(cfg PairConfig, ticker string) accounting.LegDirection {
	buy := cfg.buyLeg()
	if ticker == buy.Ticker {
		return accounting.Long
	}
	return accounting.Short
}

func sideForEntry(cfg PairConfig, ticker string) exchangeclient.Side {
	if legDirectionFor(cfg, ticker) == accounting.Long {
		return exchangeclient.SideBuy
	}
	return exchangeclient.SideSell
}

func orderTypeFor(mode pricing.Mode) accounting.OrderType {
	if mode == pricing.ModePostOnly {
		return accounting.OrderPostOnly
	}
	return accounting.OrderIOC
}

// legByTicker resolves the LegClient for a ticker.
func (c *Controller) legByTicker(ticker string) exchangeclient.LegClient {
	if c.legA.Ticker() == ticker {
		return c.legA
	}
	return c.legB
}

// sizeLeg runs the Sizing Estimator (spec §4.2) for one leg.
func (c *Controller) sizeLeg(ctx context.Context, leg exchangeclient.LegClient, side exchangeclient.Side) (sizing.Result, error) {
	mid, err := c.view.Mid(ctx, leg.Ticker())
	if err != nil {
		return sizing.Result{}, err
	}
	depth, err := c.view.BookDepth(ctx, leg.Ticker())
	if err != nil {
		if err != exchangeclient.ErrBookDepthUnavailable {
			return sizing.Result{}, err
		}
		depth = nil
	}
	return sizing.Estimate(leg.Ticker(), leg.TickSize(), c.cfg.perLegNotional(), side, c.cfg.MaxSlippageBps, mid, depth), nil
}

var defaultMonitorPoll = time.Second
