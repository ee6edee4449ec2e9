package orderv1

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Trade is the immutable record of a single execution between a buy and a
// sell order. Once created it is never mutated.
type Trade struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	BuyOrderID  string    `json:"buyOrderID"`
	SellOrderID string    `json:"sellOrderID"`
	BuyerID     string    `json:"buyerID"`
	SellerID    string    `json:"sellerID"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewTrade creates a trade record for an execution between the two orders.
func NewTrade(buy, sell *Order, quantity, price float64) *Trade {
	return &Trade{
		ID:          ulid.Make().String(),
		Symbol:      buy.Symbol,
		BuyOrderID:  buy.ID,
		SellOrderID: sell.ID,
		BuyerID:     buy.UserID,
		SellerID:    sell.UserID,
		Quantity:    quantity,
		Price:       price,
		Timestamp:   time.Now().UTC(),
	}
}
