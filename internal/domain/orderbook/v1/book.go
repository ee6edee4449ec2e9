package orderbookv1

import "time"

// PriceLevel is an aggregated (price, total remaining quantity) pair in
// the book. Quantity sums the remaining quantity of every open resting
// order at exactly this price.
type PriceLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// Book is the per-symbol aggregated view of outstanding liquidity.
// It is derived from the resting-order set and recomputed after every
// mutation, never edited directly.
type Book struct {
	Symbol      string       `json:"symbol"`
	Bids        []PriceLevel `json:"bids"` // sorted descending by price
	Asks        []PriceLevel `json:"asks"` // sorted ascending by price
	LastUpdated time.Time    `json:"lastUpdated"`
}

// BestBid returns the top bid level and whether one exists.
func (b *Book) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the top ask level and whether one exists.
func (b *Book) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	return b.Asks[0], true
}

// Clone returns a copy of the book for handing out to callers.
func (b *Book) Clone() *Book {
	cp := &Book{
		Symbol:      b.Symbol,
		LastUpdated: b.LastUpdated,
	}
	if b.Bids != nil {
		cp.Bids = make([]PriceLevel, len(b.Bids))
		copy(cp.Bids, b.Bids)
	}
	if b.Asks != nil {
		cp.Asks = make([]PriceLevel, len(b.Asks))
		copy(cp.Asks, b.Asks)
	}
	return cp
}
