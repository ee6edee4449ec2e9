package orderbook

import (
	"fmt"
	"sort"
	"time"

	orderv1 "github.com/Karlli16/OrderMatch/internal/domain/order/v1"
	orderbookv1 "github.com/Karlli16/OrderMatch/internal/domain/orderbook/v1"
)

// Book owns the resting-order set for a single symbol and the aggregated
// snapshot derived from it. It is not safe for concurrent use: the engine
// serializes all access through the symbol's processing lane.
type Book struct {
	symbol string

	// Resting orders by side, keyed by order id. Ordering is imposed at
	// match time; the maps are just the authoritative membership.
	buyOrders  map[string]*orderv1.Order
	sellOrders map[string]*orderv1.Order

	snapshot *orderbookv1.Book
}

// NewBook creates an empty book for the symbol.
func NewBook(symbol string) *Book {
	return &Book{
		symbol:     symbol,
		buyOrders:  make(map[string]*orderv1.Order),
		sellOrders: make(map[string]*orderv1.Order),
		snapshot: &orderbookv1.Book{
			Symbol:      symbol,
			LastUpdated: time.Now().UTC(),
		},
	}
}

// Symbol returns the symbol this book serves.
func (b *Book) Symbol() string {
	return b.symbol
}

// Match matches the incoming order greedily against the opposite side's
// resting orders in price-time priority, executing a trade for every
// compatible pair until the incoming order has no remaining quantity or
// the candidates are exhausted. Fully filled resting orders are removed
// from the book. Trades committed before an invariant breach stay final;
// the breach is returned alongside them.
func (b *Book) Match(incoming *orderv1.Order) ([]*orderv1.Trade, error) {
	if incoming == nil {
		return nil, orderv1.ErrNilOrder
	}

	var trades []*orderv1.Trade
	for _, resting := range b.candidates(incoming.Side) {
		if incoming.Remaining() <= 0 {
			break
		}

		if !priceMatches(incoming, resting) {
			continue
		}

		trade, err := b.execute(incoming, resting)
		if err != nil {
			return trades, err
		}
		if trade == nil {
			continue
		}
		trades = append(trades, trade)

		if resting.Status == orderv1.StatusFilled {
			b.remove(resting)
		}
	}

	return trades, nil
}

// candidates returns the open resting orders of the side opposite to the
// incoming side, sorted best price first with creation time as tie-break.
func (b *Book) candidates(incomingSide orderv1.Side) orderbookv1.Orders {
	var pool map[string]*orderv1.Order
	if incomingSide == orderv1.SideBuy {
		pool = b.sellOrders
	} else {
		pool = b.buyOrders
	}

	candidates := make(orderbookv1.Orders, 0, len(pool))
	for _, o := range pool {
		if o.IsOpen() {
			candidates = append(candidates, o)
		}
	}

	if incomingSide == orderv1.SideBuy {
		sort.Sort(orderbookv1.ByBestAsk{Orders: candidates})
	} else {
		sort.Sort(orderbookv1.ByBestBid{Orders: candidates})
	}

	return candidates
}

// priceMatches reports whether the pair may trade: a market leg is always
// eligible, two limit legs trade only when the buy price covers the sell
// price.
func priceMatches(a, c *orderv1.Order) bool {
	if a.IsMarket() || c.IsMarket() {
		return true
	}

	buy, sell := buySell(a, c)
	buyPrice, okBuy := buy.LimitPrice()
	sellPrice, okSell := sell.LimitPrice()
	if !okBuy || !okSell {
		return false
	}

	return buyPrice >= sellPrice
}

// execute trades min(buy remaining, sell remaining) between the pair at
// the resolved execution price and applies the fill to both orders.
// A pair with no executable quantity or no resolvable price produces no
// trade.
func (b *Book) execute(incoming, resting *orderv1.Order) (*orderv1.Trade, error) {
	buy, sell := buySell(incoming, resting)

	quantity := buy.Remaining()
	if sell.Remaining() < quantity {
		quantity = sell.Remaining()
	}
	if quantity <= 0 {
		return nil, nil
	}

	price, ok := executionPrice(buy, sell)
	if !ok {
		// Two market orders carry no price to trade at; skip the pair.
		return nil, nil
	}

	if err := buy.ApplyFill(quantity, price); err != nil {
		return nil, fmt.Errorf("buy order %s: %w", buy.ID, err)
	}
	if err := sell.ApplyFill(quantity, price); err != nil {
		return nil, fmt.Errorf("sell order %s: %w", sell.ID, err)
	}

	return orderv1.NewTrade(buy, sell, quantity, price), nil
}

// executionPrice resolves the trade price: a market leg takes the other
// leg's limit price, and a limit/limit pair trades at the price of
// whichever order was created earlier.
func executionPrice(buy, sell *orderv1.Order) (float64, bool) {
	switch {
	case buy.IsMarket():
		return sell.LimitPrice()
	case sell.IsMarket():
		return buy.LimitPrice()
	case buy.CreatedAt.Before(sell.CreatedAt):
		return buy.LimitPrice()
	default:
		return sell.LimitPrice()
	}
}

// buySell splits a pair into its buy and sell legs.
func buySell(a, c *orderv1.Order) (buy, sell *orderv1.Order) {
	if a.IsBuy() {
		return a, c
	}
	return c, a
}

// Rest inserts an unfilled or partially filled order into the resting set.
func (b *Book) Rest(o *orderv1.Order) error {
	if o == nil {
		return orderv1.ErrNilOrder
	}

	if o.IsBuy() {
		b.buyOrders[o.ID] = o
	} else {
		b.sellOrders[o.ID] = o
	}
	return nil
}

// Remove takes an order out of the resting set. Removing an unknown order
// is a no-op.
func (b *Book) Remove(orderID string) {
	delete(b.buyOrders, orderID)
	delete(b.sellOrders, orderID)
}

func (b *Book) remove(o *orderv1.Order) {
	if o.IsBuy() {
		delete(b.buyOrders, o.ID)
	} else {
		delete(b.sellOrders, o.ID)
	}
}

// RefreshSnapshot recomputes the aggregated book from scratch: the
// remaining quantity of every open resting order, grouped by exact price.
// Bids sort descending, asks ascending; empty levels are omitted, as are
// unpriced (market) orders.
func (b *Book) RefreshSnapshot() *orderbookv1.Book {
	b.snapshot = &orderbookv1.Book{
		Symbol:      b.symbol,
		Bids:        aggregateLevels(b.buyOrders, true),
		Asks:        aggregateLevels(b.sellOrders, false),
		LastUpdated: time.Now().UTC(),
	}
	return b.snapshot
}

// Snapshot returns the last computed aggregated book.
func (b *Book) Snapshot() *orderbookv1.Book {
	return b.snapshot
}

// RestingOrders returns the open resting orders on both sides, in no
// particular order.
func (b *Book) RestingOrders() []*orderv1.Order {
	orders := make([]*orderv1.Order, 0, len(b.buyOrders)+len(b.sellOrders))
	for _, o := range b.buyOrders {
		orders = append(orders, o)
	}
	for _, o := range b.sellOrders {
		orders = append(orders, o)
	}
	return orders
}

func aggregateLevels(pool map[string]*orderv1.Order, descending bool) []orderbookv1.PriceLevel {
	byPrice := make(map[float64]float64)
	for _, o := range pool {
		if !o.IsOpen() {
			continue
		}
		price, ok := o.LimitPrice()
		if !ok {
			continue
		}
		if remaining := o.Remaining(); remaining > 0 {
			byPrice[price] += remaining
		}
	}

	levels := make([]orderbookv1.PriceLevel, 0, len(byPrice))
	for price, quantity := range byPrice {
		levels = append(levels, orderbookv1.PriceLevel{Price: price, Quantity: quantity})
	}

	sort.Slice(levels, func(i, j int) bool {
		if descending {
			return levels[i].Price > levels[j].Price
		}
		return levels[i].Price < levels[j].Price
	})

	return levels
}
