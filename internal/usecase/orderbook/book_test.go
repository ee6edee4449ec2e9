package orderbook

import (
	"testing"
	"time"

	orderv1 "github.com/Karlli16/OrderMatch/internal/domain/order/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a test limit order with a controlled creation time
func createLimitOrder(userID string, side orderv1.Side, quantity, price float64, createdAt time.Time) *orderv1.Order {
	o := orderv1.NewOrder("BTC/USD", side, orderv1.TypeLimit, quantity, &price, userID, "")
	o.CreatedAt = createdAt
	return o
}

// Helper function to create a test market order
func createMarketOrder(userID string, side orderv1.Side, quantity float64, createdAt time.Time) *orderv1.Order {
	o := orderv1.NewOrder("BTC/USD", side, orderv1.TypeMarket, quantity, nil, userID, "")
	o.CreatedAt = createdAt
	return o
}

var baseTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// Test 1: Basic constructor
func TestNewBook(t *testing.T) {
	b := NewBook("BTC/USD")

	assert.NotNil(t, b)
	assert.Equal(t, "BTC/USD", b.Symbol())
	assert.Empty(t, b.RestingOrders())

	snap := b.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, "BTC/USD", snap.Symbol)
	assert.Empty(t, snap.Bids)
	assert.Empty(t, snap.Asks)
}

// Test 2: No match when the book is empty
func TestBook_Match_EmptyBook(t *testing.T) {
	b := NewBook("BTC/USD")

	buy := createLimitOrder("buyer", orderv1.SideBuy, 1.0, 100, baseTime)
	trades, err := b.Match(buy)

	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, orderv1.StatusPending, buy.Status)
}

// Test 3: No match when prices do not cross
func TestBook_Match_NoCross(t *testing.T) {
	b := NewBook("BTC/USD")

	sell := createLimitOrder("seller", orderv1.SideSell, 1.0, 101, baseTime)
	require.NoError(t, b.Rest(sell))

	buy := createLimitOrder("buyer", orderv1.SideBuy, 1.0, 100, baseTime.Add(time.Second))
	trades, err := b.Match(buy)

	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, 0.0, buy.FilledQuantity)
	assert.Equal(t, 0.0, sell.FilledQuantity)
}

// Test 4: Partial fill leaves the remainder resting
func TestBook_Match_PartialFill(t *testing.T) {
	b := NewBook("BTC/USD")

	sell1 := createLimitOrder("seller1", orderv1.SideSell, 1.0, 100, baseTime)
	sell2 := createLimitOrder("seller2", orderv1.SideSell, 0.5, 101, baseTime.Add(time.Second))
	require.NoError(t, b.Rest(sell1))
	require.NoError(t, b.Rest(sell2))

	buy := createLimitOrder("buyer", orderv1.SideBuy, 0.8, 100, baseTime.Add(2*time.Second))
	trades, err := b.Match(buy)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 0.8, trades[0].Quantity)
	assert.Equal(t, 100.0, trades[0].Price)

	// Incoming order fully filled, best ask partially consumed.
	assert.Equal(t, orderv1.StatusFilled, buy.Status)
	assert.Equal(t, orderv1.StatusPartial, sell1.Status)
	assert.InDelta(t, 0.2, sell1.Remaining(), 1e-9)
	assert.Equal(t, orderv1.StatusPending, sell2.Status)

	snap := b.RefreshSnapshot()
	require.Len(t, snap.Asks, 2)
	assert.Equal(t, 100.0, snap.Asks[0].Price)
	assert.InDelta(t, 0.2, snap.Asks[0].Quantity, 1e-9)
	assert.Equal(t, 101.0, snap.Asks[1].Price)
	assert.Equal(t, 0.5, snap.Asks[1].Quantity)
}

// Test 5: Price priority beats time priority
func TestBook_Match_PricePriority(t *testing.T) {
	b := NewBook("BTC/USD")

	// Worse-priced ask arrives first; the better ask must still trade first.
	sellHigh := createLimitOrder("seller1", orderv1.SideSell, 1.0, 101, baseTime)
	sellLow := createLimitOrder("seller2", orderv1.SideSell, 1.0, 100, baseTime.Add(time.Second))
	require.NoError(t, b.Rest(sellHigh))
	require.NoError(t, b.Rest(sellLow))

	buy := createLimitOrder("buyer", orderv1.SideBuy, 1.0, 101, baseTime.Add(2*time.Second))
	trades, err := b.Match(buy)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, sellLow.ID, trades[0].SellOrderID)
	assert.Equal(t, 100.0, trades[0].Price)
	assert.Equal(t, orderv1.StatusPending, sellHigh.Status)
}

// Test 6: Equal prices fall back to time priority
func TestBook_Match_TimePriority(t *testing.T) {
	b := NewBook("BTC/USD")

	first := createLimitOrder("seller1", orderv1.SideSell, 1.0, 100, baseTime)
	second := createLimitOrder("seller2", orderv1.SideSell, 1.0, 100, baseTime.Add(time.Second))
	require.NoError(t, b.Rest(second))
	require.NoError(t, b.Rest(first))

	buy := createLimitOrder("buyer", orderv1.SideBuy, 1.0, 100, baseTime.Add(2*time.Second))
	trades, err := b.Match(buy)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, first.ID, trades[0].SellOrderID)
	assert.Equal(t, orderv1.StatusFilled, first.Status)
	assert.Equal(t, orderv1.StatusPending, second.Status)
}

// Test 7: Market buy sweeps multiple ask levels
func TestBook_Match_MarketBuyMultipleLevels(t *testing.T) {
	b := NewBook("BTC/USD")

	sell1 := createLimitOrder("seller1", orderv1.SideSell, 1.0, 100, baseTime)
	sell2 := createLimitOrder("seller2", orderv1.SideSell, 1.0, 101, baseTime.Add(time.Second))
	require.NoError(t, b.Rest(sell1))
	require.NoError(t, b.Rest(sell2))

	buy := createMarketOrder("buyer", orderv1.SideBuy, 2.0, baseTime.Add(2*time.Second))
	trades, err := b.Match(buy)

	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, 100.0, trades[0].Price)
	assert.Equal(t, 101.0, trades[1].Price)

	// Volume-weighted average across both levels.
	require.NotNil(t, buy.AveragePrice)
	assert.InDelta(t, 100.5, *buy.AveragePrice, 1e-9)
	assert.Equal(t, orderv1.StatusFilled, buy.Status)

	// Both makers consumed and removed from the book.
	assert.Empty(t, b.RestingOrders())
}

// Test 8: Market sell against resting bids
func TestBook_Match_MarketSell(t *testing.T) {
	b := NewBook("BTC/USD")

	bid := createLimitOrder("buyer", orderv1.SideBuy, 2.0, 99, baseTime)
	require.NoError(t, b.Rest(bid))

	sell := createMarketOrder("seller", orderv1.SideSell, 1.5, baseTime.Add(time.Second))
	trades, err := b.Match(sell)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 99.0, trades[0].Price)
	assert.Equal(t, 1.5, trades[0].Quantity)
	assert.Equal(t, orderv1.StatusFilled, sell.Status)
	assert.Equal(t, orderv1.StatusPartial, bid.Status)
}

// Test 9: Limit against limit trades at the earlier order's price
func TestBook_Match_EarlierOrderPrice(t *testing.T) {
	b := NewBook("BTC/USD")

	// Resting bid created first at 102; crossing sell at 100 trades at 102.
	bid := createLimitOrder("buyer", orderv1.SideBuy, 1.0, 102, baseTime)
	require.NoError(t, b.Rest(bid))

	sell := createLimitOrder("seller", orderv1.SideSell, 1.0, 100, baseTime.Add(time.Second))
	trades, err := b.Match(sell)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 102.0, trades[0].Price)
}

// Test 10: Equal creation times resolve to the sell order's price
func TestBook_Match_CreatedAtTieUsesSellPrice(t *testing.T) {
	b := NewBook("BTC/USD")

	bid := createLimitOrder("buyer", orderv1.SideBuy, 1.0, 102, baseTime)
	require.NoError(t, b.Rest(bid))

	sell := createLimitOrder("seller", orderv1.SideSell, 1.0, 100, baseTime)
	trades, err := b.Match(sell)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 100.0, trades[0].Price)
}

// Test 11: Two market orders cannot produce a price
func TestBook_Match_BothMarketSkipped(t *testing.T) {
	b := NewBook("BTC/USD")

	restingMarket := createMarketOrder("buyer", orderv1.SideBuy, 1.0, baseTime)
	require.NoError(t, b.Rest(restingMarket))

	sell := createMarketOrder("seller", orderv1.SideSell, 1.0, baseTime.Add(time.Second))
	trades, err := b.Match(sell)

	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, 0.0, restingMarket.FilledQuantity)
	assert.Equal(t, 0.0, sell.FilledQuantity)
}

// Test 12: Remove takes an order out of the book
func TestBook_Remove(t *testing.T) {
	b := NewBook("BTC/USD")

	sell := createLimitOrder("seller", orderv1.SideSell, 1.0, 100, baseTime)
	require.NoError(t, b.Rest(sell))
	require.Len(t, b.RestingOrders(), 1)

	b.Remove(sell.ID)
	assert.Empty(t, b.RestingOrders())

	// Removing an unknown order is a no-op.
	b.Remove("missing")
	assert.Empty(t, b.RestingOrders())
}

// Test 13: Snapshot aggregates remaining quantity per exact price
func TestBook_RefreshSnapshot_Aggregation(t *testing.T) {
	b := NewBook("BTC/USD")

	require.NoError(t, b.Rest(createLimitOrder("u1", orderv1.SideBuy, 1.0, 99, baseTime)))
	require.NoError(t, b.Rest(createLimitOrder("u2", orderv1.SideBuy, 2.0, 99, baseTime)))
	require.NoError(t, b.Rest(createLimitOrder("u3", orderv1.SideBuy, 1.5, 98, baseTime)))
	require.NoError(t, b.Rest(createLimitOrder("u4", orderv1.SideSell, 3.0, 101, baseTime)))

	// Unpriced orders never appear in the aggregated levels.
	require.NoError(t, b.Rest(createMarketOrder("u5", orderv1.SideBuy, 5.0, baseTime)))

	snap := b.RefreshSnapshot()

	require.Len(t, snap.Bids, 2)
	assert.Equal(t, 99.0, snap.Bids[0].Price)
	assert.Equal(t, 3.0, snap.Bids[0].Quantity)
	assert.Equal(t, 98.0, snap.Bids[1].Price)
	assert.Equal(t, 1.5, snap.Bids[1].Quantity)

	require.Len(t, snap.Asks, 1)
	assert.Equal(t, 101.0, snap.Asks[0].Price)
	assert.Equal(t, 3.0, snap.Asks[0].Quantity)

	// Recomputing from an unchanged book yields the same levels.
	again := b.RefreshSnapshot()
	assert.Equal(t, snap.Bids, again.Bids)
	assert.Equal(t, snap.Asks, again.Asks)
}

// Test 14: Best bid and ask track the top of the refreshed book
func TestBook_BestBidAsk(t *testing.T) {
	b := NewBook("BTC/USD")

	require.NoError(t, b.Rest(createLimitOrder("u1", orderv1.SideBuy, 1.0, 98, baseTime)))
	require.NoError(t, b.Rest(createLimitOrder("u2", orderv1.SideBuy, 1.0, 99, baseTime)))
	require.NoError(t, b.Rest(createLimitOrder("u3", orderv1.SideSell, 1.0, 101, baseTime)))

	snap := b.RefreshSnapshot()

	bestBid, ok := snap.BestBid()
	require.True(t, ok)
	assert.Equal(t, 99.0, bestBid.Price)

	bestAsk, ok := snap.BestAsk()
	require.True(t, ok)
	assert.Equal(t, 101.0, bestAsk.Price)
}

// Test 15: Priority order across equal and worse price levels
func TestBook_Match_PriorityAcrossLevels(t *testing.T) {
	b := NewBook("BTC/USD")

	ask1 := createLimitOrder("seller1", orderv1.SideSell, 1.0, 100, baseTime)
	ask2 := createLimitOrder("seller2", orderv1.SideSell, 1.0, 100, baseTime.Add(time.Second))
	ask3 := createLimitOrder("seller3", orderv1.SideSell, 1.0, 101, baseTime.Add(2*time.Second))
	require.NoError(t, b.Rest(ask1))
	require.NoError(t, b.Rest(ask2))
	require.NoError(t, b.Rest(ask3))

	buy := createLimitOrder("buyer", orderv1.SideBuy, 2.0, 101, baseTime.Add(3*time.Second))
	trades, err := b.Match(buy)

	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, ask1.ID, trades[0].SellOrderID)
	assert.Equal(t, ask2.ID, trades[1].SellOrderID)
	assert.Equal(t, orderv1.StatusPending, ask3.Status)
	assert.Equal(t, 0.0, ask3.FilledQuantity)
}

// Test 16: Closed resting orders never match
func TestBook_Match_SkipsClosedOrders(t *testing.T) {
	b := NewBook("BTC/USD")

	cancelled := createLimitOrder("seller1", orderv1.SideSell, 1.0, 100, baseTime)
	open := createLimitOrder("seller2", orderv1.SideSell, 1.0, 100, baseTime.Add(time.Second))
	require.NoError(t, b.Rest(cancelled))
	require.NoError(t, b.Rest(open))

	cancelled.Cancel()

	buy := createLimitOrder("buyer", orderv1.SideBuy, 1.0, 100, baseTime.Add(2*time.Second))
	trades, err := b.Match(buy)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, open.ID, trades[0].SellOrderID)
	assert.Equal(t, 0.0, cancelled.FilledQuantity)
}
