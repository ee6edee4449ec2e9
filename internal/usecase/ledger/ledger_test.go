package ledger

import (
	"testing"

	orderv1 "github.com/Karlli16/OrderMatch/internal/domain/order/v1"
	"github.com/Karlli16/OrderMatch/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T, seed map[string]map[string]float64) *Ledger {
	log, err := logger.NewLogger()
	require.NoError(t, err)
	return NewLedger(log, seed)
}

func testTrade(buyerID, sellerID string, quantity, price float64) *orderv1.Trade {
	p := price
	buy := orderv1.NewOrder("BTC/USD", orderv1.SideBuy, orderv1.TypeLimit, quantity, &p, buyerID, "")
	sell := orderv1.NewOrder("BTC/USD", orderv1.SideSell, orderv1.TypeLimit, quantity, &p, sellerID, "")
	return orderv1.NewTrade(buy, sell, quantity, price)
}

// Test 1: Seeded balances are copied, not aliased
func TestNewLedger_CopiesSeed(t *testing.T) {
	seed := map[string]map[string]float64{
		"alice": {"USD": 1000},
	}
	l := newTestLedger(t, seed)

	seed["alice"]["USD"] = 0
	assert.Equal(t, 1000.0, l.Balances("alice")["USD"])
}

// Test 2: Deposit credits and creates accounts
func TestLedger_Deposit(t *testing.T) {
	l := newTestLedger(t, nil)

	l.Deposit("alice", "BTC", 2)
	l.Deposit("alice", "BTC", 1)

	assert.Equal(t, 3.0, l.Balances("alice")["BTC"])
	assert.Empty(t, l.Balances("bob"))
}

// Test 3: Balances returns a copy
func TestLedger_Balances_Copy(t *testing.T) {
	l := newTestLedger(t, map[string]map[string]float64{
		"alice": {"USD": 100},
	})

	got := l.Balances("alice")
	got["USD"] = 0

	assert.Equal(t, 100.0, l.Balances("alice")["USD"])
}

// Test 4: Coverage checks per side
func TestLedger_CanCover(t *testing.T) {
	l := newTestLedger(t, map[string]map[string]float64{
		"alice": {"USD": 1000, "BTC": 2},
	})

	// Buy needs quantity*price of the quote asset.
	assert.True(t, l.CanCover("alice", "BTC/USD", orderv1.SideBuy, 10, 100))
	assert.False(t, l.CanCover("alice", "BTC/USD", orderv1.SideBuy, 10, 101))

	// Sell needs quantity of the base asset.
	assert.True(t, l.CanCover("alice", "BTC/USD", orderv1.SideSell, 2, 100))
	assert.False(t, l.CanCover("alice", "BTC/USD", orderv1.SideSell, 2.5, 100))

	// Unknown users and malformed symbols never cover.
	assert.False(t, l.CanCover("bob", "BTC/USD", orderv1.SideBuy, 1, 1))
	assert.False(t, l.CanCover("alice", "BTCUSD", orderv1.SideBuy, 1, 1))
}

// Test 5: Settlement moves base and quote between the parties
func TestLedger_Settle(t *testing.T) {
	l := newTestLedger(t, map[string]map[string]float64{
		"alice": {"USD": 1000, "BTC": 0},
		"bob":   {"USD": 0, "BTC": 5},
	})

	l.Settle(testTrade("alice", "bob", 2, 100))

	alice := l.Balances("alice")
	assert.Equal(t, 2.0, alice["BTC"])
	assert.Equal(t, 800.0, alice["USD"])

	bob := l.Balances("bob")
	assert.Equal(t, 3.0, bob["BTC"])
	assert.Equal(t, 200.0, bob["USD"])
}

// Test 6: Unknown parties are skipped
func TestLedger_Settle_UnknownUser(t *testing.T) {
	l := newTestLedger(t, map[string]map[string]float64{
		"alice": {"USD": 1000},
	})

	l.Settle(testTrade("alice", "stranger", 2, 100))

	assert.Equal(t, 800.0, l.Balances("alice")["USD"])
	assert.Equal(t, 2.0, l.Balances("alice")["BTC"])
	assert.Empty(t, l.Balances("stranger"))
}
