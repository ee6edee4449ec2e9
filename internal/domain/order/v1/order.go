package orderv1

import (
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrNilOrder is returned when a nil order is handed to the engine.
	ErrNilOrder = errors.New("order cannot be nil")
	// ErrInvalidQuantity is returned when an order quantity is not positive.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrInvalidPrice is returned when a priced order carries a missing or non-positive price.
	ErrInvalidPrice = errors.New("price must be positive")
	// ErrOverfill is returned when a fill would push the filled quantity past the requested quantity.
	ErrOverfill = errors.New("fill exceeds requested quantity")
	// ErrInvalidFill is returned when a fill quantity or price is not positive.
	ErrInvalidFill = errors.New("fill quantity and price must be positive")
)

// Side represents the side of an order.
type Side string

const (
	// SideBuy represents a buy (bid) order.
	SideBuy Side = "buy"
	// SideSell represents a sell (ask) order.
	SideSell Side = "sell"
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Type represents the type of order.
type Type string

const (
	// TypeLimit represents a limit order.
	TypeLimit Type = "limit"
	// TypeMarket represents a market order.
	TypeMarket Type = "market"
	// TypeStop represents a stop order. Trigger logic lives outside the
	// matching core; the engine treats an accepted stop like a limit order.
	TypeStop Type = "stop"
)

// Status represents the lifecycle state of an order.
//
// Pending -> Partial -> Filled, with Cancelled reachable from Pending and
// Partial, and Rejected only reachable before the order is accepted.
// Filled, Cancelled and Rejected are terminal.
type Status string

const (
	// StatusPending represents an accepted order with no fills yet.
	StatusPending Status = "pending"
	// StatusPartial represents an order with some, but not all, quantity filled.
	StatusPartial Status = "partial"
	// StatusFilled represents a fully filled order.
	StatusFilled Status = "filled"
	// StatusCancelled represents an order removed by its owner.
	StatusCancelled Status = "cancelled"
	// StatusRejected represents an order that failed validation.
	StatusRejected Status = "rejected"
)

// Order represents a single order submitted to the matching engine.
// Identity fields are immutable after creation; fill state mutates only
// through ApplyFill and the status setters.
type Order struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Side          Side    `json:"side"`
	Type          Type    `json:"type"`
	UserID        string  `json:"userID"`
	ClientOrderID string  `json:"clientOrderID"`
	Quantity      float64 `json:"quantity"`

	// Price is nil for market orders.
	Price *float64 `json:"price,omitempty"`
	// StopPrice is carried but never triggered by this core.
	StopPrice *float64 `json:"stopPrice,omitempty"`

	FilledQuantity float64 `json:"filledQuantity"`
	// AveragePrice is nil until the first fill, then the volume-weighted mean.
	AveragePrice *float64 `json:"averagePrice,omitempty"`
	Status       Status   `json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewOrder creates a new pending order with a generated id.
func NewOrder(symbol string, side Side, orderType Type, quantity float64, price *float64, userID, clientOrderID string) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:            ulid.Make().String(),
		Symbol:        symbol,
		Side:          side,
		Type:          orderType,
		UserID:        userID,
		ClientOrderID: clientOrderID,
		Quantity:      quantity,
		Price:         price,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsBuy checks if the order is a buy (bid) order.
func (o *Order) IsBuy() bool {
	return o.Side == SideBuy
}

// IsSell checks if the order is a sell (ask) order.
func (o *Order) IsSell() bool {
	return o.Side == SideSell
}

// IsMarket checks if the order is a market order.
func (o *Order) IsMarket() bool {
	return o.Type == TypeMarket
}

// IsOpen checks if the order can still trade or be cancelled.
func (o *Order) IsOpen() bool {
	return o.Status == StatusPending || o.Status == StatusPartial
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() float64 {
	return o.Quantity - o.FilledQuantity
}

// LimitPrice returns the order's limit price and whether one exists.
func (o *Order) LimitPrice() (float64, bool) {
	if o.Price == nil {
		return 0, false
	}
	return *o.Price, true
}

// Validate checks the order's shape. The engine rejects, rather than
// errors on, orders that fail this check.
func (o *Order) Validate() error {
	if o.Quantity <= 0 {
		return fmt.Errorf("%w: got %f", ErrInvalidQuantity, o.Quantity)
	}

	// Limit and stop orders must be priced; market orders must not be.
	if o.Type == TypeLimit || o.Type == TypeStop {
		if o.Price == nil || *o.Price <= 0 {
			return fmt.Errorf("%w: %s order", ErrInvalidPrice, o.Type)
		}
	}

	return nil
}

// ApplyFill applies a fill to the order, recomputing the volume-weighted
// average price and the status. Filled quantity never decreases; a fill
// that would exceed the requested quantity is an invariant breach and is
// reported as an error without mutating the order.
func (o *Order) ApplyFill(quantity, price float64) error {
	if quantity <= 0 || price <= 0 {
		return fmt.Errorf("%w: %f @ %f", ErrInvalidFill, quantity, price)
	}

	newFilled := o.FilledQuantity + quantity
	if newFilled > o.Quantity+fillEpsilon {
		return fmt.Errorf("%w: filled %f of %f, fill %f", ErrOverfill, o.FilledQuantity, o.Quantity, quantity)
	}

	oldAvg := 0.0
	if o.AveragePrice != nil {
		oldAvg = *o.AveragePrice
	}
	newAvg := (o.FilledQuantity*oldAvg + quantity*price) / newFilled

	o.FilledQuantity = newFilled
	o.AveragePrice = &newAvg

	if o.Remaining() <= fillEpsilon {
		o.FilledQuantity = o.Quantity
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartial
	}
	o.UpdatedAt = time.Now().UTC()

	return nil
}

// Reject marks the order rejected. Only valid before the order rests.
func (o *Order) Reject() {
	o.Status = StatusRejected
	o.UpdatedAt = time.Now().UTC()
}

// Cancel marks the order cancelled.
func (o *Order) Cancel() {
	o.Status = StatusCancelled
	o.UpdatedAt = time.Now().UTC()
}

// Clone returns a copy of the order for handing out to callers.
func (o *Order) Clone() *Order {
	cp := *o
	if o.Price != nil {
		p := *o.Price
		cp.Price = &p
	}
	if o.StopPrice != nil {
		p := *o.StopPrice
		cp.StopPrice = &p
	}
	if o.AveragePrice != nil {
		p := *o.AveragePrice
		cp.AveragePrice = &p
	}
	return &cp
}

// fillEpsilon absorbs float64 rounding when comparing filled against
// requested quantity.
const fillEpsilon = 1e-9
