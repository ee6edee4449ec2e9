package api

import orderv1 "github.com/Karlli16/OrderMatch/internal/domain/order/v1"

// Request and response types for the REST endpoints and WebSocket messages.

// OrderRequest is the payload for submitting an order.
type OrderRequest struct {
	Symbol        string       `json:"symbol"`
	Side          orderv1.Side `json:"side"`
	Type          orderv1.Type `json:"type"`
	Quantity      float64      `json:"quantity"`
	Price         *float64     `json:"price,omitempty"`
	StopPrice     *float64     `json:"stopPrice,omitempty"`
	UserID        string       `json:"userID"`
	ClientOrderID string       `json:"clientOrderID"`
}

// OrderResponse reports the outcome of an order submission.
type OrderResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	OrderID string         `json:"orderID,omitempty"`
	Order   *orderv1.Order `json:"order,omitempty"`
}

// CancelResponse reports the outcome of a cancellation.
type CancelResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BalanceResponse carries a user's balances.
type BalanceResponse struct {
	UserID   string             `json:"userID"`
	Balances map[string]float64 `json:"balances"`
}

// ErrorResponse carries an error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WSSubscribeRequest is a client's subscribe/unsubscribe message.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// WSMessage is an outbound WebSocket frame.
type WSMessage struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
