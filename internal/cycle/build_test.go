package cycle

import (
	"testing"

	"github.com/GoPolymarket/pairbot/internal/accounting"
	"github.com/GoPolymarket/pairbot/internal/pricing"
)

func TestOutcomeToFillChargesEachPlacementAtItsOwnRate(t *testing.T) {
	// A POST_ONLY partial fill (0.4 @ maker) followed by an IOC remainder
	// (0.6 @ taker), exactly as PlaceWithPolicy's fallback path produces.
	// Charging the combined 1.0 qty at a single rate would undercount fees
	// whenever the first placement's Mode is POST_ONLY (the cheaper rate).
	fees := accounting.FeeRates{TakerBps: dec("5"), MakerBps: dec("2")}
	outcome := legOutcome{placements: []pricing.Placement{
		{Mode: pricing.ModePostOnly, FilledQty: dec("0.4"), AvgPrice: dec("100"), Complete: true},
		{Mode: pricing.ModeIOC, FilledQty: dec("0.6"), AvgPrice: dec("100.1"), Complete: true},
	}}

	fill := outcomeToFill("BTC-PERP", accounting.Long, outcome, fees)

	wantFee := fees.FeeAt(accounting.OrderPostOnly, dec("100"), dec("0.4")).
		Add(fees.FeeAt(accounting.OrderIOC, dec("100.1"), dec("0.6")))
	if !fill.FeeUSD.Equal(wantFee) {
		t.Errorf("expected blended fee %s, got %s", wantFee, fill.FeeUSD)
	}

	// Billing the combined quantity wholesale at a single rate, either all
	// maker or all taker, must not be what gets charged.
	wrongAllMaker := fees.FeeAt(accounting.OrderPostOnly, fill.Price, fill.Quantity)
	wrongAllTaker := fees.FeeAt(accounting.OrderIOC, fill.Price, fill.Quantity)
	if fill.FeeUSD.Equal(wrongAllMaker) || fill.FeeUSD.Equal(wrongAllTaker) {
		t.Error("expected per-placement blended fee, not a single blended-fill rate")
	}
}

func TestExitFillChargesEachPlacementAtItsOwnRate(t *testing.T) {
	fees := accounting.FeeRates{TakerBps: dec("5"), MakerBps: dec("2")}
	outcome := legOutcome{placements: []pricing.Placement{
		{Mode: pricing.ModePostOnly, FilledQty: dec("1"), AvgPrice: dec("10"), Complete: true},
		{Mode: pricing.ModeIOC, FilledQty: dec("1"), AvgPrice: dec("10.05"), Complete: true},
	}}

	fill := exitFill("ETH-PERP", accounting.Short, outcome, fees)

	wantFee := fees.FeeAt(accounting.OrderPostOnly, dec("10"), dec("1")).
		Add(fees.FeeAt(accounting.OrderIOC, dec("10.05"), dec("1")))
	if !fill.FeeUSD.Equal(wantFee) {
		t.Errorf("expected blended fee %s, got %s", wantFee, fill.FeeUSD)
	}
}

func TestFeeAcrossPlacementsSingleIOC(t *testing.T) {
	fees := accounting.DefaultFeeRates()
	outcome := []pricing.Placement{{Mode: pricing.ModeIOC, FilledQty: dec("2"), AvgPrice: dec("50")}}
	got := feeAcrossPlacements(fees, outcome)
	want := fees.FeeAt(accounting.OrderIOC, dec("50"), dec("2"))
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}
