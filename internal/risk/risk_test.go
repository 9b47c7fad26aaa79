package risk

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewAppliesDefaultsForZeroFields(t *testing.T) {
	g := New(Config{})
	if halted, _ := g.Halted(); halted {
		t.Fatal("expected not halted at construction")
	}
	if g.cfg.MaxRetries != 3 || g.cfg.RetryBackoff != 2*time.Second || g.cfg.MaxConsecutiveFaults != 5 {
		t.Errorf("expected defaults applied, got %+v", g.cfg)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRetries != 3 || cfg.RetryBackoff != 2*time.Second || cfg.MaxConsecutiveFaults != 5 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestHalt(t *testing.T) {
	g := New(DefaultConfig())
	g.Halt("manual stop")
	halted, reason := g.Halted()
	if !halted || reason != "manual stop" {
		t.Errorf("expected halted=true reason=manual stop, got halted=%v reason=%s", halted, reason)
	}
}

func TestRecordFaultHaltsAfterThreshold(t *testing.T) {
	g := New(Config{MaxConsecutiveFaults: 2, MaxRetries: 1, RetryBackoff: time.Millisecond})
	g.RecordFault("first")
	if halted, _ := g.Halted(); halted {
		t.Fatal("should not halt after one fault with threshold 2")
	}
	g.RecordFault("second")
	if halted, _ := g.Halted(); !halted {
		t.Fatal("expected halt after reaching consecutive fault threshold")
	}
}

func TestRecordSuccessResetsFaultCounter(t *testing.T) {
	g := New(Config{MaxConsecutiveFaults: 2, MaxRetries: 1, RetryBackoff: time.Millisecond})
	g.RecordFault("first")
	g.RecordSuccess()
	g.RecordFault("second")
	if halted, _ := g.Halted(); halted {
		t.Fatal("fault counter should have reset after RecordSuccess")
	}
}

func TestRetrySucceedsWithoutExhausting(t *testing.T) {
	g := New(Config{MaxRetries: 3, RetryBackoff: time.Millisecond})
	calls := 0
	err := g.Retry(context.Background(), func(_ context.Context, _ bool) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestRetryExhaustsAndReturnsError(t *testing.T) {
	g := New(Config{MaxRetries: 2, RetryBackoff: time.Millisecond})
	calls := 0
	err := g.Retry(context.Background(), func(_ context.Context, _ bool) error {
		calls++
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 1 initial + 2 retries = 3 calls, got %d", calls)
	}
}

func TestRetryPassesBypassOnlyOnFinalAttempt(t *testing.T) {
	g := New(Config{MaxRetries: 2, RetryBackoff: time.Millisecond})
	var bypassSeen []bool
	_ = g.Retry(context.Background(), func(_ context.Context, bypass bool) error {
		bypassSeen = append(bypassSeen, bypass)
		return errors.New("fail")
	})
	if len(bypassSeen) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(bypassSeen))
	}
	for i, b := range bypassSeen[:len(bypassSeen)-1] {
		if b {
			t.Errorf("attempt %d: expected bypass=false before final attempt", i)
		}
	}
	if !bypassSeen[len(bypassSeen)-1] {
		t.Error("expected bypass=true on final attempt")
	}
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	g := New(Config{MaxRetries: 5, RetryBackoff: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := g.Retry(ctx, func(_ context.Context, _ bool) error {
		calls++
		return errors.New("fail")
	})
	if err == nil {
		t.Fatal("expected error from cancellation")
	}
}
