package orderv1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 {
	return &v
}

// Test 1: Constructor defaults
func TestNewOrder(t *testing.T) {
	o := NewOrder("BTC/USD", SideBuy, TypeLimit, 2.0, floatPtr(100), "alice", "client-1")

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "BTC/USD", o.Symbol)
	assert.Equal(t, SideBuy, o.Side)
	assert.Equal(t, TypeLimit, o.Type)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, 2.0, o.Quantity)
	assert.Equal(t, 0.0, o.FilledQuantity)
	assert.Nil(t, o.AveragePrice)
	assert.Equal(t, "alice", o.UserID)
	assert.Equal(t, "client-1", o.ClientOrderID)
	assert.False(t, o.CreatedAt.IsZero())

	// Generated ids must be unique.
	other := NewOrder("BTC/USD", SideBuy, TypeLimit, 2.0, floatPtr(100), "alice", "")
	assert.NotEqual(t, o.ID, other.ID)
}

// Test 2: Validation rules
func TestOrder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		order   *Order
		wantErr error
	}{
		{
			name:  "valid limit order",
			order: NewOrder("BTC/USD", SideBuy, TypeLimit, 1.0, floatPtr(100), "u", ""),
		},
		{
			name:  "valid market order",
			order: NewOrder("BTC/USD", SideSell, TypeMarket, 1.0, nil, "u", ""),
		},
		{
			name:  "valid stop order",
			order: NewOrder("BTC/USD", SideSell, TypeStop, 1.0, floatPtr(95), "u", ""),
		},
		{
			name:    "zero quantity",
			order:   NewOrder("BTC/USD", SideBuy, TypeLimit, 0, floatPtr(100), "u", ""),
			wantErr: ErrInvalidQuantity,
		},
		{
			name:    "negative quantity",
			order:   NewOrder("BTC/USD", SideBuy, TypeLimit, -1, floatPtr(100), "u", ""),
			wantErr: ErrInvalidQuantity,
		},
		{
			name:    "limit order without price",
			order:   NewOrder("BTC/USD", SideBuy, TypeLimit, 1.0, nil, "u", ""),
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "limit order with non-positive price",
			order:   NewOrder("BTC/USD", SideBuy, TypeLimit, 1.0, floatPtr(0), "u", ""),
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "stop order without price",
			order:   NewOrder("BTC/USD", SideSell, TypeStop, 1.0, nil, "u", ""),
			wantErr: ErrInvalidPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

// Test 3: Single fill transitions the status and sets the average price
func TestOrder_ApplyFill_Partial(t *testing.T) {
	o := NewOrder("BTC/USD", SideBuy, TypeLimit, 2.0, floatPtr(100), "u", "")

	err := o.ApplyFill(0.5, 100)

	require.NoError(t, err)
	assert.Equal(t, StatusPartial, o.Status)
	assert.Equal(t, 0.5, o.FilledQuantity)
	assert.Equal(t, 1.5, o.Remaining())
	require.NotNil(t, o.AveragePrice)
	assert.Equal(t, 100.0, *o.AveragePrice)
}

// Test 4: Average price is volume weighted across fills
func TestOrder_ApplyFill_VWAP(t *testing.T) {
	o := NewOrder("BTC/USD", SideBuy, TypeMarket, 2.0, nil, "u", "")

	require.NoError(t, o.ApplyFill(1.0, 100))
	require.NoError(t, o.ApplyFill(1.0, 101))

	assert.Equal(t, StatusFilled, o.Status)
	assert.Equal(t, 2.0, o.FilledQuantity)
	require.NotNil(t, o.AveragePrice)
	assert.InDelta(t, 100.5, *o.AveragePrice, 1e-9)
}

// Test 5: Overfill is rejected without mutating the order
func TestOrder_ApplyFill_Overfill(t *testing.T) {
	o := NewOrder("BTC/USD", SideBuy, TypeLimit, 1.0, floatPtr(100), "u", "")
	require.NoError(t, o.ApplyFill(0.6, 100))

	err := o.ApplyFill(0.5, 100)

	assert.ErrorIs(t, err, ErrOverfill)
	assert.Equal(t, 0.6, o.FilledQuantity)
	assert.Equal(t, StatusPartial, o.Status)
}

// Test 6: Non-positive fills are rejected
func TestOrder_ApplyFill_InvalidFill(t *testing.T) {
	o := NewOrder("BTC/USD", SideBuy, TypeLimit, 1.0, floatPtr(100), "u", "")

	assert.ErrorIs(t, o.ApplyFill(0, 100), ErrInvalidFill)
	assert.ErrorIs(t, o.ApplyFill(0.5, 0), ErrInvalidFill)
	assert.Equal(t, 0.0, o.FilledQuantity)
}

// Test 7: Float drift within epsilon snaps to fully filled
func TestOrder_ApplyFill_EpsilonSnap(t *testing.T) {
	o := NewOrder("BTC/USD", SideBuy, TypeLimit, 0.3, floatPtr(100), "u", "")

	require.NoError(t, o.ApplyFill(0.1, 100))
	require.NoError(t, o.ApplyFill(0.1, 100))
	require.NoError(t, o.ApplyFill(0.1, 100))

	assert.Equal(t, StatusFilled, o.Status)
	assert.Equal(t, 0.3, o.FilledQuantity)
	assert.Equal(t, 0.0, o.Remaining())
}

// Test 8: Terminal transitions
func TestOrder_TerminalTransitions(t *testing.T) {
	o := NewOrder("BTC/USD", SideBuy, TypeLimit, 1.0, floatPtr(100), "u", "")
	assert.True(t, o.IsOpen())

	o.Cancel()
	assert.Equal(t, StatusCancelled, o.Status)
	assert.False(t, o.IsOpen())

	rejected := NewOrder("BTC/USD", SideBuy, TypeLimit, 0, floatPtr(100), "u", "")
	rejected.Reject()
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.False(t, rejected.IsOpen())
}

// Test 9: Side helpers
func TestSide_Opposite(t *testing.T) {
	assert.Equal(t, SideSell, SideBuy.Opposite())
	assert.Equal(t, SideBuy, SideSell.Opposite())
}

// Test 10: Clone is a deep copy of the pointer fields
func TestOrder_Clone(t *testing.T) {
	o := NewOrder("BTC/USD", SideBuy, TypeLimit, 1.0, floatPtr(100), "u", "")
	require.NoError(t, o.ApplyFill(0.5, 100))

	cp := o.Clone()
	require.NotNil(t, cp.Price)
	require.NotNil(t, cp.AveragePrice)

	*cp.Price = 999
	*cp.AveragePrice = 999
	cp.FilledQuantity = 999

	assert.Equal(t, 100.0, *o.Price)
	assert.Equal(t, 100.0, *o.AveragePrice)
	assert.Equal(t, 0.5, o.FilledQuantity)
}

// Test 11: Trades capture both legs
func TestNewTrade(t *testing.T) {
	buy := NewOrder("BTC/USD", SideBuy, TypeLimit, 1.0, floatPtr(100), "buyer", "")
	sell := NewOrder("BTC/USD", SideSell, TypeLimit, 1.0, floatPtr(100), "seller", "")

	trade := NewTrade(buy, sell, 1.0, 100)

	assert.NotEmpty(t, trade.ID)
	assert.Equal(t, "BTC/USD", trade.Symbol)
	assert.Equal(t, buy.ID, trade.BuyOrderID)
	assert.Equal(t, sell.ID, trade.SellOrderID)
	assert.Equal(t, "buyer", trade.BuyerID)
	assert.Equal(t, "seller", trade.SellerID)
	assert.Equal(t, 1.0, trade.Quantity)
	assert.Equal(t, 100.0, trade.Price)
	assert.False(t, trade.Timestamp.IsZero())
}
