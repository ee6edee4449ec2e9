// Package ledger keeps a flat in-memory balance table for users. It sits
// downstream of the matching core: balances are checked before an order
// is handed to the engine and settled from the trades the engine returns.
package ledger

import (
	"strings"
	"sync"

	orderv1 "github.com/Karlli16/OrderMatch/internal/domain/order/v1"
	"github.com/Karlli16/OrderMatch/pkg/logger"
)

// Ledger is a per-user, per-asset balance table.
type Ledger struct {
	mu       sync.RWMutex
	balances map[string]map[string]float64 // userID -> asset -> amount
	logger   *logger.Logger
}

// NewLedger creates a ledger seeded with the given balances.
func NewLedger(log *logger.Logger, seed map[string]map[string]float64) *Ledger {
	balances := make(map[string]map[string]float64, len(seed))
	for userID, assets := range seed {
		balances[userID] = make(map[string]float64, len(assets))
		for asset, amount := range assets {
			balances[userID][asset] = amount
		}
	}

	return &Ledger{
		balances: balances,
		logger:   log,
	}
}

// Deposit credits an asset to a user, creating the account if needed.
func (l *Ledger) Deposit(userID, asset string, amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[userID] == nil {
		l.balances[userID] = make(map[string]float64)
	}
	l.balances[userID][asset] += amount
}

// Balances returns a copy of the user's balances. An unknown user has no
// balances.
func (l *Ledger) Balances(userID string) map[string]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]float64, len(l.balances[userID]))
	for asset, amount := range l.balances[userID] {
		out[asset] = amount
	}
	return out
}

// CanCover reports whether the user's balance covers the order: a buy
// needs quantity*price of the quote asset, a sell needs quantity of the
// base asset. A market buy carries no price and is not pre-checked here.
func (l *Ledger) CanCover(userID, symbol string, side orderv1.Side, quantity, price float64) bool {
	base, quote, ok := splitSymbol(symbol)
	if !ok {
		return false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	assets := l.balances[userID]
	if side == orderv1.SideBuy {
		return assets[quote] >= quantity*price
	}
	return assets[base] >= quantity
}

// Settle moves assets between buyer and seller for an executed trade.
// Unknown users are skipped: settlement for external accounts belongs to
// whatever consumes the trade stream.
func (l *Ledger) Settle(trade *orderv1.Trade) {
	base, quote, ok := splitSymbol(trade.Symbol)
	if !ok {
		l.logger.Warn("unsettleable trade symbol", logger.Field{Key: "symbol", Value: trade.Symbol})
		return
	}

	value := trade.Quantity * trade.Price

	l.mu.Lock()
	defer l.mu.Unlock()

	if buyer, known := l.balances[trade.BuyerID]; known {
		buyer[base] += trade.Quantity
		buyer[quote] -= value
	}
	if seller, known := l.balances[trade.SellerID]; known {
		seller[base] -= trade.Quantity
		seller[quote] += value
	}
}

// splitSymbol splits a "BASE/QUOTE" symbol into its two assets.
func splitSymbol(symbol string) (base, quote string, ok bool) {
	parts := strings.SplitN(symbol, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
