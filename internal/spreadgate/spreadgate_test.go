package spreadgate

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/pairbot/internal/exchangeclient"
	"github.com/GoPolymarket/pairbot/internal/exchangeclient/simclient"
	"github.com/GoPolymarket/pairbot/internal/marketdata"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func legWithSpread(ticker, bid, ask string) *simclient.Client {
	c := simclient.New(ticker, ticker+"-id", dec("0.001"), decimal.Zero)
	c.SetBook(simclient.Book{
		Bids: []simclient.Level{{Price: dec(bid), Size: dec("10")}},
		Asks: []simclient.Level{{Price: dec(ask), Size: dec("10")}},
	})
	return c
}

func TestEvaluateGoWhenSpreadWideEnough(t *testing.T) {
	legA := legWithSpread("BTC-PERP", "100", "100.30")  // 30bps
	legB := legWithSpread("ETH-PERP", "10", "10.03")     // 30bps
	view := marketdata.New(legA, legB)
	legs := []exchangeclient.LegClient{legA, legB}

	snap, err := Evaluate(context.Background(), view, legs, dec("20"))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !snap.Go {
		t.Fatalf("expected go, reason=%s", snap.SkipReason)
	}
	if len(snap.Legs) != 2 {
		t.Fatalf("expected 2 leg spreads, got %d", len(snap.Legs))
	}
}

func TestEvaluateNoGoWhenSpreadNarrow(t *testing.T) {
	legA := legWithSpread("BTC-PERP", "100", "100.05")
	legB := legWithSpread("ETH-PERP", "10", "10.005")
	view := marketdata.New(legA, legB)
	legs := []exchangeclient.LegClient{legA, legB}

	snap, err := Evaluate(context.Background(), view, legs, dec("20"))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if snap.Go {
		t.Fatal("expected no-go for narrow spread")
	}
	if snap.SkipReason == "" {
		t.Error("expected a skip reason")
	}
}

func TestEvaluateUnknownLegErrors(t *testing.T) {
	leg := legWithSpread("BTC-PERP", "100", "100.1")
	view := marketdata.New(leg)
	other := simclient.New("GHOST-PERP", "ghost-id", dec("0.001"), decimal.Zero)

	_, err := Evaluate(context.Background(), view, []exchangeclient.LegClient{other}, dec("20"))
	if err == nil {
		t.Fatal("expected error for leg unknown to the view")
	}
}

func TestWaitForSpreadReturnsImmediatelyWhenAlreadyWide(t *testing.T) {
	legA := legWithSpread("BTC-PERP", "100", "100.30")
	legB := legWithSpread("ETH-PERP", "10", "10.03")
	view := marketdata.New(legA, legB)
	legs := []exchangeclient.LegClient{legA, legB}

	snap, err := WaitForSpread(context.Background(), view, legs, dec("20"), 2*time.Second)
	if err != nil {
		t.Fatalf("wait for spread: %v", err)
	}
	if !snap.Go {
		t.Fatal("expected go on first evaluation")
	}
}

func TestWaitForSpreadTimesOutWithBestSnapshot(t *testing.T) {
	legA := legWithSpread("BTC-PERP", "100", "100.05")
	legB := legWithSpread("ETH-PERP", "10", "10.005")
	view := marketdata.New(legA, legB)
	legs := []exchangeclient.LegClient{legA, legB}

	snap, err := WaitForSpread(context.Background(), view, legs, dec("20"), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("wait for spread: %v", err)
	}
	if snap.Go {
		t.Fatal("expected no-go after timeout with narrow spread")
	}
	if snap.SkipReason == "" {
		t.Error("expected a skip reason describing the timeout")
	}
}

func TestWaitForSpreadDefaultsMaxWait(t *testing.T) {
	legA := legWithSpread("BTC-PERP", "100", "100.30")
	legB := legWithSpread("ETH-PERP", "10", "10.03")
	view := marketdata.New(legA, legB)
	legs := []exchangeclient.LegClient{legA, legB}

	snap, err := WaitForSpread(context.Background(), view, legs, dec("20"), 0)
	if err != nil {
		t.Fatalf("wait for spread: %v", err)
	}
	if !snap.Go {
		t.Fatal("expected go with wide spread even under default timeout")
	}
}
