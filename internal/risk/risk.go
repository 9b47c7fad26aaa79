// Package risk adapts the teacher's internal/risk.Manager (a Polymarket
// per-market USDC exposure gate) into the general-purpose halt governance
// spec §4.5/§7 needs: an emergency-stop latch, a consecutive-failure
// counter that latches that halt (no timed cooldown or automatic resume),
// and a bounded-retry-with-backoff helper for transient
// order-submission errors. The per-market USDC position-cap concept has no
// equivalent here (positions are already bounded by the pair's fixed
// per-leg notional target) and is dropped; see DESIGN.md.
package risk

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config mirrors the subset of spec §4.5's failure semantics that is
// engine-wide rather than per-order: how many times to retry a transient
// error, how long to back off, and when consecutive failures should halt
// the cycle loop entirely.
type Config struct {
	MaxRetries          int           // default 3, spec §4.5
	RetryBackoff        time.Duration // default 2s, spec §4.5
	MaxConsecutiveFaults int          // halt after this many consecutive cycle faults
}

// DefaultConfig matches spec §4.5's defaults.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, RetryBackoff: 2 * time.Second, MaxConsecutiveFaults: 5}
}

// Governor tracks the engine's halt state and consecutive-fault count.
// Unlike the teacher's per-market Manager, this is engine-wide: spec §4.5
// treats unrecoverable errors (auth, missing contract metadata, BBO zero
// for both legs) as a reason to halt the whole loop, not one market.
type Governor struct {
	mu      sync.RWMutex
	cfg     Config
	halted  bool
	haltMsg string
	faults  int
}

// New creates a Governor.
func New(cfg Config) *Governor {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	if cfg.MaxConsecutiveFaults <= 0 {
		cfg.MaxConsecutiveFaults = 5
	}
	return &Governor{cfg: cfg}
}

// Halted reports whether the engine has been halted and, if so, why.
func (g *Governor) Halted() (bool, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.halted, g.haltMsg
}

// Halt latches the engine into a halted state. Per spec §4.5, only
// unrecoverable errors, persistent one-sided positions, and repeated
// reconciliation failures halt the loop — everything else retries or
// skips.
func (g *Governor) Halt(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.halted = true
	g.haltMsg = reason
}

// RecordFault increments the consecutive-fault counter and halts once it
// reaches MaxConsecutiveFaults.
func (g *Governor) RecordFault(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.faults++
	if g.faults >= g.cfg.MaxConsecutiveFaults {
		g.halted = true
		g.haltMsg = fmt.Sprintf("halted after %d consecutive cycle faults: %s", g.faults, reason)
	}
}

// RecordSuccess resets the consecutive-fault counter after a clean cycle.
func (g *Governor) RecordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.faults = 0
}

// Retry calls fn up to cfg.MaxRetries+1 times with a fixed backoff between
// attempts, per spec §4.5's "retry up to a small bounded count (e.g., 3)
// with fixed backoff (e.g., 2s)". bypassOnFinal, if true, is passed to fn
// as true only on the last attempt — the "queue/liquidity-filter rejection
// bypass flag" spec §4.5 describes.
func (g *Governor) Retry(ctx context.Context, fn func(ctx context.Context, bypass bool) error) error {
	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		isFinal := attempt == g.cfg.MaxRetries
		if err := fn(ctx, isFinal); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if isFinal {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.cfg.RetryBackoff):
		}
	}
	return fmt.Errorf("risk: exhausted %d retries: %w", g.cfg.MaxRetries, lastErr)
}
