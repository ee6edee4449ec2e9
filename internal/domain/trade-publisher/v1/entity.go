package tradepublisherv1

import (
	"encoding/json"
	"time"

	orderv1 "github.com/Karlli16/OrderMatch/internal/domain/order/v1"
)

// TradeEvent is the wire payload for an executed trade.
type TradeEvent struct {
	TradeID     string    `json:"tradeID"`
	Symbol      string    `json:"symbol"`
	BuyOrderID  string    `json:"buyOrderID"`
	SellOrderID string    `json:"sellOrderID"`
	BuyerID     string    `json:"buyerID"`
	SellerID    string    `json:"sellerID"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	Timestamp   time.Time `json:"timestamp"`
}

// CreateFromTrade creates a trade event from a trade record.
func CreateFromTrade(trade *orderv1.Trade) *TradeEvent {
	return &TradeEvent{
		TradeID:     trade.ID,
		Symbol:      trade.Symbol,
		BuyOrderID:  trade.BuyOrderID,
		SellOrderID: trade.SellOrderID,
		BuyerID:     trade.BuyerID,
		SellerID:    trade.SellerID,
		Quantity:    trade.Quantity,
		Price:       trade.Price,
		Timestamp:   trade.Timestamp,
	}
}

// ToBytes converts the trade event to a byte array.
func ToBytes(event *TradeEvent) []byte {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil
	}

	return payload
}

// FromBytes converts a byte array to a trade event.
func FromBytes(data []byte) *TradeEvent {
	var event TradeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil
	}
	return &event
}
