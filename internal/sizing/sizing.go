// Package sizing implements the liquidity-aware Sizing & Slippage Estimator
// from spec §4.2. It is a stateless transform grounded on the teacher's
// internal/strategy depth-walking idiom (strategy.Taker.Evaluate sums
// resting size across DepthLevels; strategy.Maker.ComputeQuote derives a
// bps figure from the book) generalized into a binary search over notional
// bounded by a slippage ceiling.
package sizing

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/pairbot/internal/exchangeclient"
	"github.com/GoPolymarket/pairbot/internal/moneymath"
)

// Result is the sizing estimator's output triple from spec §4.2.
type Result struct {
	Quantity             decimal.Decimal
	EstimatedSlippageBps decimal.Decimal
	SufficientLiquidity  bool
	SkipReason           string // non-empty iff Quantity is zero
}

const minBinarySearchIterations = 10
const defaultLiquidityDepthLevels = 20

// Estimate computes a per-leg order quantity bounded by ceilingBps of
// estimated slippage, per spec §4.2's algorithm.
//
//   ticker        human-readable leg name, used only in skip messages
//   tickSize      quantity quantum for this leg
//   targetUSD     target notional for this leg (half the pair notional
//                 when legs are symmetric)
//   direction     SideBuy maps to the ask side, SideSell to the bid side
//   ceilingBps    maximum tolerated estimated slippage, in bps
//   referencePrice mid-price used to convert notional to a raw quantity
//   depth         nil if no BookDepth handler has attached yet
func Estimate(ticker string, tickSize, targetUSD decimal.Decimal, direction exchangeclient.Side, ceilingBps, referencePrice decimal.Decimal, depth exchangeclient.BookDepth) Result {
	if referencePrice.IsZero() || !referencePrice.IsPositive() {
		return Result{SkipReason: fmt.Sprintf("%s reference price unavailable", ticker)}
	}

	rawQty := targetUSD.Div(referencePrice)

	// The minimum-size check MUST precede quantization: rounding first
	// and checking second is how a valid-looking request degenerates
	// into a zero-quantity order (spec §4.2 step 2, §9 "easiest bug").
	if rawQty.LessThan(tickSize) {
		return Result{
			EstimatedSlippageBps: exchangeclient.InvalidSlippageBps,
			SkipReason:           fmt.Sprintf("%s order size below exchange minimum for leg", ticker),
		}
	}

	targetQty := moneymath.QuantizeFloor(rawQty, tickSize)

	if depth == nil {
		log.Printf("sizing: no bookdepth handle for %s, using conservative half-size fallback", ticker)
		half := moneymath.QuantizeFloor(targetQty.Div(decimal.NewFromInt(2)), tickSize)
		if half.LessThan(tickSize) {
			return Result{
				EstimatedSlippageBps: exchangeclient.InvalidSlippageBps,
				SkipReason:           fmt.Sprintf("%s half-size fallback below exchange minimum for leg", ticker),
			}
		}
		return Result{
			Quantity:             half,
			EstimatedSlippageBps: decimal.NewFromInt(20),
			SufficientLiquidity:  false,
		}
	}

	depthSide := exchangeclient.DepthAsk
	if direction == exchangeclient.SideSell {
		depthSide = exchangeclient.DepthBid
	}

	targetNotional := targetQty.Mul(referencePrice)
	bestNotional := binarySearchNotional(depth, direction, targetNotional, ceilingBps, referencePrice)
	finalQty := moneymath.QuantizeFloor(bestNotional.Div(referencePrice), tickSize)
	if finalQty.LessThan(tickSize) {
		return Result{
			EstimatedSlippageBps: exchangeclient.InvalidSlippageBps,
			SkipReason:           fmt.Sprintf("%s slippage ceiling leaves no tradable size", ticker),
		}
	}

	slippage := depth.EstimateSlippageBps(direction, finalQty)
	available := depth.AvailableLiquidity(depthSide, defaultLiquidityDepthLevels)
	sufficient := available.GreaterThanOrEqual(finalQty)

	return Result{
		Quantity:             finalQty,
		EstimatedSlippageBps: slippage,
		SufficientLiquidity:  sufficient,
	}
}

// binarySearchNotional finds the largest notional in [0, 2*targetNotional]
// whose estimated slippage is <= ceilingBps. Searching over notional (not
// book levels) lets the estimator honor one uniform slippage budget across
// legs regardless of tick size or price scale (spec §4.2 rationale).
func binarySearchNotional(depth exchangeclient.BookDepth, side exchangeclient.Side, targetNotional, ceilingBps, referencePrice decimal.Decimal) decimal.Decimal {
	lo := decimal.Zero
	hi := targetNotional.Mul(decimal.NewFromInt(2))
	best := decimal.Zero

	for i := 0; i < minBinarySearchIterations; i++ {
		mid := lo.Add(hi).Div(decimal.NewFromInt(2))
		qty := mid.Div(referencePrice)
		if !qty.IsPositive() {
			lo = mid
			continue
		}
		slip := depth.EstimateSlippageBps(side, qty)
		if slip.LessThanOrEqual(ceilingBps) {
			best = mid
			lo = mid
		} else {
			hi = mid
		}
	}
	return best
}
