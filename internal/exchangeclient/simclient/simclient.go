// Package simclient is an in-memory fake implementing exchangeclient.LegClient,
// used by dry_run mode and by tests. It is adapted from the teacher's
// internal/paper.Simulator (a fake fill engine for paper trading) — the
// balance/fee bookkeeping idiom is kept, reworked to fill a single perp leg
// against an injected order book instead of crediting/debiting a USDC
// balance across many Polymarket markets.
package simclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/pairbot/internal/exchangeclient"
)

// Level is one resting price level.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Book is the injectable order book state for a leg.
type Book struct {
	Bids []Level // best first, descending price
	Asks []Level // best first, ascending price
}

func (b Book) bbo() (exchangeclient.BBO, bool) {
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return exchangeclient.BBO{}, false
	}
	return exchangeclient.BBO{Bid: b.Bids[0].Price, Ask: b.Asks[0].Price}, true
}

type order struct {
	id      string
	side    exchangeclient.Side
	qty     decimal.Decimal
	price   decimal.Decimal
	filled  decimal.Decimal
	avgPx   decimal.Decimal
	status  exchangeclient.OrderStatus
	postOnly bool
}

// Client is a single-leg fake exchange client.
type Client struct {
	mu sync.Mutex

	ticker     string
	contractID string
	tickSize   decimal.Decimal
	fundingBps decimal.Decimal // annualized rate

	book      Book
	hasDepth  bool
	position  decimal.Decimal
	orders    map[string]*order
}

// New creates a simulated leg client.
func New(ticker, contractID string, tickSize, fundingRate decimal.Decimal) *Client {
	return &Client{
		ticker:     ticker,
		contractID: contractID,
		tickSize:   tickSize,
		fundingBps: fundingRate,
		orders:     make(map[string]*order),
	}
}

// SetBook replaces the simulated order book for this leg.
func (c *Client) SetBook(book Book) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.book = book
	c.hasDepth = true
}

// ClearBookDepth simulates a leg with no streaming depth handler attached.
func (c *Client) ClearBookDepth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasDepth = false
}

func (c *Client) TickSize() decimal.Decimal { return c.tickSize }
func (c *Client) Ticker() string            { return c.ticker }
func (c *Client) ContractID() string        { return c.contractID }

func (c *Client) FetchBBO(ctx context.Context) (exchangeclient.BBO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bbo, ok := c.book.bbo()
	if !ok {
		return exchangeclient.BBO{}, fmt.Errorf("simclient: no book for %s", c.ticker)
	}
	return bbo, nil
}

func (c *Client) BookDepthHandle(ctx context.Context) (exchangeclient.BookDepth, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasDepth {
		return nil, exchangeclient.ErrBookDepthUnavailable
	}
	return &depthHandle{book: c.book}, nil
}

func (c *Client) GetAccountPosition(ctx context.Context) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position, nil
}

func (c *Client) GetFundingRate(ctx context.Context) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fundingBps, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) (exchangeclient.OrderStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.orders[orderID]
	if !ok {
		return "", fmt.Errorf("simclient: unknown order %s", orderID)
	}
	if o.status == exchangeclient.StatusFilled {
		return o.status, nil
	}
	if o.filled.IsPositive() {
		o.status = exchangeclient.StatusPartiallyFilled
	} else {
		o.status = exchangeclient.StatusCancelled
	}
	return o.status, nil
}

func (c *Client) WaitForFill(ctx context.Context, orderID string, timeout time.Duration) (exchangeclient.FillInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.orders[orderID]
	if !ok {
		return exchangeclient.FillInfo{}, fmt.Errorf("simclient: unknown order %s", orderID)
	}
	return exchangeclient.FillInfo{Status: o.status, FilledSize: o.filled, AvgPrice: o.avgPx}, nil
}

func (c *Client) PlaceIOCOrder(ctx context.Context, side exchangeclient.Side, qty, price decimal.Decimal, isolatedMarginX6 int64) (exchangeclient.OrderResult, error) {
	return c.place(side, qty, price, false)
}

func (c *Client) PlacePostOnlyOrder(ctx context.Context, side exchangeclient.Side, qty, price decimal.Decimal, isolatedMarginX6 int64) (exchangeclient.OrderResult, error) {
	return c.place(side, qty, price, true)
}

func (c *Client) place(side exchangeclient.Side, qty, price decimal.Decimal, postOnly bool) (exchangeclient.OrderResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bbo, ok := c.book.bbo()
	if !ok {
		return exchangeclient.OrderResult{}, fmt.Errorf("simclient: no book for %s", c.ticker)
	}

	id := uuid.NewString()
	o := &order{id: id, side: side, qty: qty, price: price, postOnly: postOnly}
	c.orders[id] = o

	takable := false
	if side == exchangeclient.SideBuy {
		takable = !postOnly && price.GreaterThanOrEqual(bbo.Ask)
	} else {
		takable = !postOnly && price.LessThanOrEqual(bbo.Bid)
	}

	if postOnly {
		// Resting order: this fake does not model a resting period — a
		// post-only order is filled in full immediately at the requested
		// (passive) price, so the caller's wait-for-fill always sees
		// FILLED.
		o.status = exchangeclient.StatusFilled
		o.filled = qty
		o.avgPx = price
		c.applyFill(side, qty)
		return exchangeclient.OrderResult{OrderID: id, Status: o.status, FilledSize: o.filled, AvgPrice: o.avgPx}, nil
	}

	if takable {
		o.status = exchangeclient.StatusFilled
		o.filled = qty
		o.avgPx = price
		c.applyFill(side, qty)
	} else {
		o.status = exchangeclient.StatusCancelled
	}
	return exchangeclient.OrderResult{OrderID: id, Status: o.status, FilledSize: o.filled, AvgPrice: o.avgPx}, nil
}

func (c *Client) applyFill(side exchangeclient.Side, qty decimal.Decimal) {
	if side == exchangeclient.SideBuy {
		c.position = c.position.Add(qty)
	} else {
		c.position = c.position.Sub(qty)
	}
}

type depthHandle struct {
	book Book
}

func (d *depthHandle) EstimateSlippageBps(side exchangeclient.Side, qty decimal.Decimal) decimal.Decimal {
	if !qty.IsPositive() {
		return exchangeclient.InvalidSlippageBps
	}
	levels := d.book.Asks
	if side == exchangeclient.SideSell {
		levels = d.book.Bids
	}
	if len(levels) == 0 {
		return exchangeclient.InvalidSlippageBps
	}
	top := levels[0].Price
	if top.IsZero() {
		return exchangeclient.InvalidSlippageBps
	}

	remaining := qty
	var notional, weightedDevNotional decimal.Decimal
	for _, lvl := range levels {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		take := lvl.Size
		if take.GreaterThan(remaining) {
			take = remaining
		}
		levelNotional := take.Mul(lvl.Price)
		devBps := lvl.Price.Sub(top).Abs().Div(top).Mul(decimal.NewFromInt(10000))
		weightedDevNotional = weightedDevNotional.Add(devBps.Mul(levelNotional))
		notional = notional.Add(levelNotional)
		remaining = remaining.Sub(take)
	}
	if notional.IsZero() {
		return exchangeclient.InvalidSlippageBps
	}
	if remaining.IsPositive() {
		// Book exhausted before qty filled: treat as maximally bad.
		return exchangeclient.InvalidSlippageBps
	}
	return weightedDevNotional.Div(notional)
}

func (d *depthHandle) AvailableLiquidity(side exchangeclient.DepthSide, maxDepth int) decimal.Decimal {
	levels := d.book.Asks
	if side == exchangeclient.DepthBid {
		levels = d.book.Bids
	}
	total := decimal.Zero
	for i, lvl := range levels {
		if i >= maxDepth {
			break
		}
		total = total.Add(lvl.Size)
	}
	return total
}
