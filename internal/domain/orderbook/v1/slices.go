package orderbookv1

import (
	"math"

	orderv1 "github.com/Karlli16/OrderMatch/internal/domain/order/v1"
)

// Orders is a slice of Order pointers, representing multiple resting orders.
type Orders []*orderv1.Order

// askPrice treats an unpriced (market) ask as infinitely expensive so it
// sorts behind every priced ask.
func askPrice(o *orderv1.Order) float64 {
	price, ok := o.LimitPrice()
	if !ok {
		return math.Inf(1)
	}
	return price
}

// bidPrice treats an unpriced (market) bid as a zero bid so it sorts
// behind every priced bid.
func bidPrice(o *orderv1.Order) float64 {
	price, ok := o.LimitPrice()
	if !ok {
		return 0
	}
	return price
}

// ByBestAsk orders asks for an incoming buy: ascending price, then
// ascending creation time at equal price.
type ByBestAsk struct {
	Orders
}

func (a ByBestAsk) Len() int { return len(a.Orders) }

func (a ByBestAsk) Less(i, j int) bool {
	pi, pj := askPrice(a.Orders[i]), askPrice(a.Orders[j])
	if pi == pj {
		return a.Orders[i].CreatedAt.Before(a.Orders[j].CreatedAt)
	}
	return pi < pj
}

func (a ByBestAsk) Swap(i, j int) {
	a.Orders[i], a.Orders[j] = a.Orders[j], a.Orders[i]
}

// ByBestBid orders bids for an incoming sell: descending price, then
// ascending creation time at equal price.
type ByBestBid struct {
	Orders
}

func (b ByBestBid) Len() int { return len(b.Orders) }

func (b ByBestBid) Less(i, j int) bool {
	pi, pj := bidPrice(b.Orders[i]), bidPrice(b.Orders[j])
	if pi == pj {
		return b.Orders[i].CreatedAt.Before(b.Orders[j].CreatedAt)
	}
	return pi > pj
}

func (b ByBestBid) Swap(i, j int) {
	b.Orders[i], b.Orders[j] = b.Orders[j], b.Orders[i]
}
