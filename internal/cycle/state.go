package cycle

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/pairbot/internal/accounting"
)

// Phase is one of the Cycle Controller's four states (spec §4.5).
type Phase string

const (
	PhaseIdle    Phase = "IDLE"
	PhaseBuild   Phase = "BUILD"
	PhaseMonitor Phase = "MONITOR"
	PhaseUnwind  Phase = "UNWIND"
)

// LiveState is the mutable live cycle state from spec §3, exclusively
// owned by the Cycle Controller and cleared at UNWIND completion.
type LiveState struct {
	mu sync.RWMutex

	cycleID   int64
	direction string
	phase     Phase

	entryFills     map[string]accounting.LegFill
	entryTimestamp time.Time
}

func newLiveState() *LiveState {
	return &LiveState{phase: PhaseIdle, entryFills: make(map[string]accounting.LegFill)}
}

// Snapshot is a read-only copy for the status API.
type Snapshot struct {
	CycleID        int64
	Direction      string
	Phase          Phase
	EntryTimestamp time.Time
}

func (s *LiveState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{CycleID: s.cycleID, Direction: s.direction, Phase: s.phase, EntryTimestamp: s.entryTimestamp}
}

func (s *LiveState) setPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

func (s *LiveState) beginBuild(cycleID int64, direction string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycleID = cycleID
	s.direction = direction
	s.phase = PhaseBuild
	s.entryFills = make(map[string]accounting.LegFill)
}

func (s *LiveState) recordEntry(fills map[string]accounting.LegFill, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entryFills = fills
	s.entryTimestamp = ts
}

func (s *LiveState) entrySnapshot() (map[string]accounting.LegFill, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]accounting.LegFill, len(s.entryFills))
	for k, v := range s.entryFills {
		out[k] = v
	}
	return out, s.entryTimestamp
}

func (s *LiveState) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseIdle
	s.entryFills = make(map[string]accounting.LegFill)
	s.entryTimestamp = time.Time{}
}

// entryNotionalUSD sums |qty|*price across entry fills, used by the
// MONITOR phase's unrealized-PnL-bps denominator (spec §4.5).
func entryNotionalUSD(fills map[string]accounting.LegFill) decimal.Decimal {
	var total decimal.Decimal
	for _, f := range fills {
		total = total.Add(f.Quantity.Abs().Mul(f.Price))
	}
	return total
}
