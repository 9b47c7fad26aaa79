package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/pairbot/internal/exchangeclient"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeLeg struct {
	ticker   string
	tick     decimal.Decimal
	bbo      exchangeclient.BBO
	fill     exchangeclient.FillInfo
	cancels  int
	placeErr error
	waitErr  error
}

func (f *fakeLeg) FetchBBO(_ context.Context) (exchangeclient.BBO, error) { return f.bbo, nil }
func (f *fakeLeg) BookDepthHandle(_ context.Context) (exchangeclient.BookDepth, error) {
	return nil, exchangeclient.ErrBookDepthUnavailable
}
func (f *fakeLeg) PlaceIOCOrder(_ context.Context, _ exchangeclient.Side, _, _ decimal.Decimal, _ int64) (exchangeclient.OrderResult, error) {
	if f.placeErr != nil {
		return exchangeclient.OrderResult{}, f.placeErr
	}
	return exchangeclient.OrderResult{OrderID: "ioc-1"}, nil
}
func (f *fakeLeg) PlacePostOnlyOrder(_ context.Context, _ exchangeclient.Side, _, _ decimal.Decimal, _ int64) (exchangeclient.OrderResult, error) {
	if f.placeErr != nil {
		return exchangeclient.OrderResult{}, f.placeErr
	}
	return exchangeclient.OrderResult{OrderID: "post-1"}, nil
}
func (f *fakeLeg) CancelOrder(_ context.Context, _ string) (exchangeclient.OrderStatus, error) {
	f.cancels++
	return exchangeclient.StatusCancelled, nil
}
func (f *fakeLeg) WaitForFill(_ context.Context, _ string, _ time.Duration) (exchangeclient.FillInfo, error) {
	if f.waitErr != nil {
		return exchangeclient.FillInfo{}, f.waitErr
	}
	return f.fill, nil
}
func (f *fakeLeg) GetAccountPosition(_ context.Context) (decimal.Decimal, error) { return decimal.Zero, nil }
func (f *fakeLeg) GetFundingRate(_ context.Context) (decimal.Decimal, error)     { return decimal.Zero, nil }
func (f *fakeLeg) TickSize() decimal.Decimal                                    { return f.tick }
func (f *fakeLeg) Ticker() string                                               { return f.ticker }
func (f *fakeLeg) ContractID() string                                           { return f.ticker + "-id" }

var _ exchangeclient.LegClient = (*fakeLeg)(nil)

func TestIOCPriceBuyAddsEpsilon(t *testing.T) {
	bbo := exchangeclient.BBO{Bid: dec("100"), Ask: dec("100.10")}
	got := IOCPrice(exchangeclient.SideBuy, bbo, dec("5"))
	want := dec("100.10").Mul(dec("1.0005"))
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestIOCPriceSellSubtractsEpsilon(t *testing.T) {
	bbo := exchangeclient.BBO{Bid: dec("100"), Ask: dec("100.10")}
	got := IOCPrice(exchangeclient.SideSell, bbo, dec("5"))
	want := dec("100").Mul(dec("0.9995"))
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestPostOnlyPrice(t *testing.T) {
	bbo := exchangeclient.BBO{Bid: dec("100"), Ask: dec("100.10")}
	if got := PostOnlyPrice(exchangeclient.SideBuy, bbo); !got.Equal(dec("100")) {
		t.Errorf("expected bid for buy, got %s", got)
	}
	if got := PostOnlyPrice(exchangeclient.SideSell, bbo); !got.Equal(dec("100.10")) {
		t.Errorf("expected ask for sell, got %s", got)
	}
}

func TestPlaceIOCComplete(t *testing.T) {
	leg := &fakeLeg{
		ticker: "BTC-PERP", tick: dec("0.01"),
		bbo:  exchangeclient.BBO{Bid: dec("100"), Ask: dec("100.1")},
		fill: exchangeclient.FillInfo{Status: exchangeclient.StatusFilled, FilledSize: dec("1"), AvgPrice: dec("100.1")},
	}
	p := Params{Leg: leg, Side: exchangeclient.SideBuy, Qty: dec("1"), BBO: leg.bbo, Leverage: dec("3")}
	pl, err := PlaceIOC(context.Background(), p)
	if err != nil {
		t.Fatalf("place ioc: %v", err)
	}
	if !pl.Complete {
		t.Error("expected complete fill")
	}
	if pl.Mode != ModeIOC {
		t.Errorf("expected mode IOC, got %s", pl.Mode)
	}
}

func TestPlaceIOCPropagatesPlaceError(t *testing.T) {
	leg := &fakeLeg{ticker: "BTC-PERP", tick: dec("0.01"), placeErr: errors.New("boom")}
	_, err := PlaceIOC(context.Background(), Params{Leg: leg, Side: exchangeclient.SideBuy, Qty: dec("1"), BBO: exchangeclient.BBO{Bid: dec("1"), Ask: dec("1")}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestPlacePostOnlyCancelsOnIncompleteFill(t *testing.T) {
	leg := &fakeLeg{
		ticker: "BTC-PERP", tick: dec("0.01"),
		bbo:  exchangeclient.BBO{Bid: dec("100"), Ask: dec("100.1")},
		fill: exchangeclient.FillInfo{Status: exchangeclient.StatusTimedOut, FilledSize: decimal.Zero},
	}
	pl, err := PlacePostOnly(context.Background(), Params{Leg: leg, Side: exchangeclient.SideBuy, Qty: dec("1"), BBO: leg.bbo})
	if err != nil {
		t.Fatalf("place post only: %v", err)
	}
	if pl.Complete {
		t.Error("expected incomplete fill")
	}
	if leg.cancels != 1 {
		t.Errorf("expected one cancel call, got %d", leg.cancels)
	}
}

func TestPlaceWithPolicyIOCDirect(t *testing.T) {
	leg := &fakeLeg{
		ticker: "BTC-PERP", tick: dec("0.01"),
		bbo:  exchangeclient.BBO{Bid: dec("100"), Ask: dec("100.1")},
		fill: exchangeclient.FillInfo{Status: exchangeclient.StatusFilled, FilledSize: dec("1"), AvgPrice: dec("100.1")},
	}
	placements, err := PlaceWithPolicy(context.Background(), Params{Leg: leg, Side: exchangeclient.SideBuy, Qty: dec("1"), BBO: leg.bbo}, false)
	if err != nil {
		t.Fatalf("place with policy: %v", err)
	}
	if len(placements) != 1 || placements[0].Mode != ModeIOC {
		t.Fatalf("expected single IOC placement, got %+v", placements)
	}
}

func TestPlaceWithPolicyPostOnlyCompleteSkipsRemainder(t *testing.T) {
	leg := &fakeLeg{
		ticker: "BTC-PERP", tick: dec("0.01"),
		bbo:  exchangeclient.BBO{Bid: dec("100"), Ask: dec("100.1")},
		fill: exchangeclient.FillInfo{Status: exchangeclient.StatusFilled, FilledSize: dec("1"), AvgPrice: dec("100")},
	}
	placements, err := PlaceWithPolicy(context.Background(), Params{Leg: leg, Side: exchangeclient.SideBuy, Qty: dec("1"), BBO: leg.bbo}, true)
	if err != nil {
		t.Fatalf("place with policy: %v", err)
	}
	if len(placements) != 1 {
		t.Fatalf("expected single placement when post-only fully fills, got %d", len(placements))
	}
}

func TestPlaceWithPolicyFallsBackToIOCForRemainder(t *testing.T) {
	// first call (PlacePostOnly) returns a partial fill, then the second
	// WaitForFill call (post the IOC fallback) must report complete.
	calls := 0
	leg := &partialThenFullLeg{tick: dec("0.01"), ticker: "BTC-PERP"}
	_ = calls
	placements, err := PlaceWithPolicy(context.Background(), Params{Leg: leg, Side: exchangeclient.SideBuy, Qty: dec("1"), BBO: exchangeclient.BBO{Bid: dec("100"), Ask: dec("100.1")}}, true)
	if err != nil {
		t.Fatalf("place with policy: %v", err)
	}
	if len(placements) != 2 {
		t.Fatalf("expected post_only + ioc remainder, got %d placements", len(placements))
	}
	if placements[0].Mode != ModePostOnly || placements[1].Mode != ModeIOC {
		t.Errorf("expected [POST_ONLY, IOC], got [%s, %s]", placements[0].Mode, placements[1].Mode)
	}
}

// partialThenFullLeg simulates a POST_ONLY order that partially fills,
// followed by a fully-filling IOC remainder.
type partialThenFullLeg struct {
	ticker string
	tick   decimal.Decimal
	stage  int
}

func (f *partialThenFullLeg) FetchBBO(_ context.Context) (exchangeclient.BBO, error) {
	return exchangeclient.BBO{Bid: dec("100"), Ask: dec("100.1")}, nil
}
func (f *partialThenFullLeg) BookDepthHandle(_ context.Context) (exchangeclient.BookDepth, error) {
	return nil, exchangeclient.ErrBookDepthUnavailable
}
func (f *partialThenFullLeg) PlaceIOCOrder(_ context.Context, _ exchangeclient.Side, _, _ decimal.Decimal, _ int64) (exchangeclient.OrderResult, error) {
	return exchangeclient.OrderResult{OrderID: "ioc-2"}, nil
}
func (f *partialThenFullLeg) PlacePostOnlyOrder(_ context.Context, _ exchangeclient.Side, _, _ decimal.Decimal, _ int64) (exchangeclient.OrderResult, error) {
	return exchangeclient.OrderResult{OrderID: "post-2"}, nil
}
func (f *partialThenFullLeg) CancelOrder(_ context.Context, _ string) (exchangeclient.OrderStatus, error) {
	return exchangeclient.StatusCancelled, nil
}
func (f *partialThenFullLeg) WaitForFill(_ context.Context, orderID string, _ time.Duration) (exchangeclient.FillInfo, error) {
	if orderID == "post-2" {
		return exchangeclient.FillInfo{Status: exchangeclient.StatusPartiallyFilled, FilledSize: dec("0.4"), AvgPrice: dec("100")}, nil
	}
	return exchangeclient.FillInfo{Status: exchangeclient.StatusFilled, FilledSize: dec("0.6"), AvgPrice: dec("100.1")}, nil
}
func (f *partialThenFullLeg) GetAccountPosition(_ context.Context) (decimal.Decimal, error) { return decimal.Zero, nil }
func (f *partialThenFullLeg) GetFundingRate(_ context.Context) (decimal.Decimal, error)     { return decimal.Zero, nil }
func (f *partialThenFullLeg) TickSize() decimal.Decimal                                    { return f.tick }
func (f *partialThenFullLeg) Ticker() string                                               { return f.ticker }
func (f *partialThenFullLeg) ContractID() string                                           { return f.ticker + "-id" }

var _ exchangeclient.LegClient = (*partialThenFullLeg)(nil)

func TestCombineFills(t *testing.T) {
	placements := []Placement{
		{FilledQty: dec("0.4"), AvgPrice: dec("100")},
		{FilledQty: dec("0.6"), AvgPrice: dec("100.1")},
	}
	qty, avg := CombineFills(placements)
	if !qty.Equal(dec("1.0")) {
		t.Errorf("expected combined qty 1.0, got %s", qty)
	}
	wantAvg := dec("0.4").Mul(dec("100")).Add(dec("0.6").Mul(dec("100.1"))).Div(dec("1.0"))
	if !avg.Equal(wantAvg) {
		t.Errorf("expected avg %s, got %s", wantAvg, avg)
	}
}

func TestCombineFillsIgnoresZeroFills(t *testing.T) {
	placements := []Placement{{FilledQty: decimal.Zero, AvgPrice: dec("100")}}
	qty, avg := CombineFills(placements)
	if !qty.IsZero() || !avg.IsZero() {
		t.Errorf("expected zero qty/avg for no fills, got qty=%s avg=%s", qty, avg)
	}
}
