package accounting

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/GoPolymarket/pairbot/internal/spreadgate"
)

// cycleLogHeader matches the column order in spec §6.
var cycleLogHeader = []string{
	"cycle_id", "direction", "entry_ts", "exit_ts", "hold_s",
	"entry_A_px", "entry_A_qty", "entry_B_px", "entry_B_qty",
	"exit_A_px", "exit_A_qty", "exit_B_px", "exit_B_qty",
	"entry_A_type", "entry_B_type", "exit_A_type", "exit_B_type",
	"fees_usd", "funding_pnl_usd", "pnl_no_fee_usd", "pnl_with_fee_usd",
	"skip_reason",
}

// Log is the append-only Cycle Log file. One mutex serializes writes
// (spec §5: "a mutex is required for safety" even though only one cycle
// writes at a time); the file handle is opened once and flushed per
// record, matching the teacher's crash-safety idiom in internal/store.
type Log struct {
	mu      sync.Mutex
	f       *os.File
	w       *csv.Writer
	legA    string
	legB    string
	nextID  int64
}

// OpenLog opens (creating if needed) the Cycle Log CSV at path. legATicker
// and legBTicker name which leg fills into the "A"/"B" columns.
func OpenLog(path, legATicker, legBTicker string) (*Log, error) {
	fresh := true
	if fi, err := os.Stat(path); err == nil && fi.Size() > 0 {
		fresh = false
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("accounting: open cycle log: %w", err)
	}
	l := &Log{f: f, w: csv.NewWriter(f), legA: legATicker, legB: legBTicker, nextID: 1}
	if fresh {
		if err := l.w.Write(cycleLogHeader); err != nil {
			return nil, fmt.Errorf("accounting: write cycle log header: %w", err)
		}
		l.w.Flush()
	}
	return l, nil
}

// NextCycleID returns the next cycle_id to assign and reserves it. It is
// called exactly once, at the IDLE->BUILD transition (spec §4.5).
func (l *Log) NextCycleID() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	return id
}

// Append writes one cycle record. It is called exactly once per cycle_id,
// only after UNWIND-phase reconciliation confirms flat positions or after
// Emergency Unwind completes (spec §3 invariants).
func (l *Log) Append(rec CycleRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entryA, entryB := rec.EntryFills[l.legA], rec.EntryFills[l.legB]
	exitA, exitB := rec.ExitFills[l.legA], rec.ExitFills[l.legB]

	row := []string{
		fmt.Sprintf("%d", rec.CycleID),
		rec.Direction,
		rec.EntryTimestamp.Format(time.RFC3339),
		rec.ExitTimestamp.Format(time.RFC3339),
		fmt.Sprintf("%.3f", rec.HoldSeconds),
		entryA.Price.String(), entryA.Quantity.String(),
		entryB.Price.String(), entryB.Quantity.String(),
		exitA.Price.String(), exitA.Quantity.String(),
		exitB.Price.String(), exitB.Quantity.String(),
		string(entryA.OrderType), string(entryB.OrderType),
		string(exitA.OrderType), string(exitB.OrderType),
		rec.FeesUSD.String(), rec.FundingPnLUSD.String(),
		rec.PnLNoFeeUSD.String(), rec.PnLWithFeeUSD.String(),
		rec.SkipReason,
	}
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("accounting: write cycle record: %w", err)
	}
	l.w.Flush()
	return l.w.Error()
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	return l.f.Close()
}

// SpreadLog is the accompanying spread-analysis log from spec §6.
type SpreadLog struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

var spreadLogHeader = []string{
	"timestamp", "pair_spread_bps", "legs", "executed", "skip_reason",
}

// OpenSpreadLog opens (creating if needed) the spread-analysis log.
func OpenSpreadLog(path string) (*SpreadLog, error) {
	fresh := true
	if fi, err := os.Stat(path); err == nil && fi.Size() > 0 {
		fresh = false
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("accounting: open spread log: %w", err)
	}
	sl := &SpreadLog{f: f, w: csv.NewWriter(f)}
	if fresh {
		if err := sl.w.Write(spreadLogHeader); err != nil {
			return nil, fmt.Errorf("accounting: write spread log header: %w", err)
		}
		sl.w.Flush()
	}
	return sl, nil
}

// Append records one Spread Gate evaluation.
func (sl *SpreadLog) Append(snap spreadgate.Snapshot) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	legsDesc := ""
	for i, l := range snap.Legs {
		if i > 0 {
			legsDesc += "|"
		}
		legsDesc += fmt.Sprintf("%s:bid=%s,ask=%s,bps=%s", l.Ticker, l.Bid.String(), l.Ask.String(), l.SpreadBps.StringFixed(2))
	}

	row := []string{
		snap.Timestamp.Format(time.RFC3339),
		snap.PairSpreadBps.StringFixed(2),
		legsDesc,
		fmt.Sprintf("%t", snap.Go),
		snap.SkipReason,
	}
	if err := sl.w.Write(row); err != nil {
		return fmt.Errorf("accounting: write spread record: %w", err)
	}
	sl.w.Flush()
	return sl.w.Error()
}

// Close flushes and closes the underlying file.
func (sl *SpreadLog) Close() error {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.w.Flush()
	return sl.f.Close()
}
