package moneymath

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestBpsToFraction(t *testing.T) {
	got := BpsToFraction(dec("20"))
	if !got.Equal(dec("0.0020")) {
		t.Errorf("expected 0.0020, got %s", got)
	}
}

func TestFractionToBps(t *testing.T) {
	got := FractionToBps(dec("0.002"))
	if !got.Equal(dec("20")) {
		t.Errorf("expected 20, got %s", got)
	}
}

func TestQuantizeFloor(t *testing.T) {
	cases := []struct {
		qty, tick, want string
	}{
		{"1.27", "0.1", "1.2"},
		{"1.20", "0.1", "1.2"},
		{"0.04", "0.1", "0"},
		{"5", "0", "5"},
	}
	for _, c := range cases {
		got := QuantizeFloor(dec(c.qty), dec(c.tick))
		if !got.Equal(dec(c.want)) {
			t.Errorf("QuantizeFloor(%s, %s) = %s, want %s", c.qty, c.tick, got, c.want)
		}
	}
}

func TestSpreadBps(t *testing.T) {
	got := SpreadBps(dec("100"), dec("100.20"))
	if !got.Equal(dec("20")) {
		t.Errorf("expected 20 bps, got %s", got)
	}
}

func TestSpreadBpsZeroBid(t *testing.T) {
	got := SpreadBps(decimal.Zero, dec("100"))
	if !got.IsZero() {
		t.Errorf("expected zero on zero bid, got %s", got)
	}
}

func TestWithinOneTick(t *testing.T) {
	if !WithinOneTick(dec("100.05"), dec("100.00"), dec("0.05")) {
		t.Error("expected within one tick")
	}
	if WithinOneTick(dec("100.06"), dec("100.00"), dec("0.05")) {
		t.Error("expected outside one tick")
	}
}
