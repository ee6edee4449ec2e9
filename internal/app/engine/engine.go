package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	marketdatav1 "github.com/Karlli16/OrderMatch/internal/domain/marketdata/v1"
	orderv1 "github.com/Karlli16/OrderMatch/internal/domain/order/v1"
	orderbookv1 "github.com/Karlli16/OrderMatch/internal/domain/orderbook/v1"
	snapshotv1 "github.com/Karlli16/OrderMatch/internal/domain/snapshot/v1"
	tradepublisherv1 "github.com/Karlli16/OrderMatch/internal/domain/trade-publisher/v1"
	"github.com/Karlli16/OrderMatch/internal/usecase/orderbook"
	"github.com/Karlli16/OrderMatch/pkg/errors"
	"github.com/Karlli16/OrderMatch/pkg/logger"
)

// symbolState is the per-symbol processing lane: one mutex serializes
// every mutation of the symbol's book and market data, so two orders on
// the same symbol can never match against the same resting quantity.
// Different symbols mutate in parallel.
type symbolState struct {
	mu         sync.Mutex
	book       *orderbook.Book
	marketData *marketdatav1.MarketData
}

// Engine is the matching engine: it validates incoming orders, matches
// them against resting liquidity, maintains the per-symbol books and
// market data, and records every trade produced.
type Engine struct {
	tradePublisher tradepublisherv1.TradePublisher
	snapshotStore  snapshotv1.Store
	logger         *logger.Logger

	// mu guards the symbol registry and the order arena.
	mu      sync.RWMutex
	symbols map[string]*symbolState
	orders  map[string]*orderv1.Order

	// tradesMu guards the global, submission-ordered trade history.
	tradesMu sync.RWMutex
	trades   []*orderv1.Trade

	// Shutdown coordination for the snapshot manager.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	snapshotInterval time.Duration
}

// NewEngine creates a new Engine with the provided dependencies. Both the
// trade publisher and the snapshot store may be nil, disabling the
// corresponding side effects.
func NewEngine(
	tradePublisher tradepublisherv1.TradePublisher,
	snapshotStore snapshotv1.Store,
	log *logger.Logger,
) (*Engine, error) {
	return NewEngineWithOptions(tradePublisher, snapshotStore, log, DefaultEngineOptions())
}

// NewEngineWithOptions creates a new engine with custom options.
func NewEngineWithOptions(
	tradePublisher tradepublisherv1.TradePublisher,
	snapshotStore snapshotv1.Store,
	log *logger.Logger,
	options *Options,
) (*Engine, error) {
	e := &Engine{
		tradePublisher:   tradePublisher,
		snapshotStore:    snapshotStore,
		logger:           log,
		symbols:          make(map[string]*symbolState),
		orders:           make(map[string]*orderv1.Order),
		snapshotInterval: options.SnapshotInterval,
	}

	if err := e.loadSnapshot(context.Background()); err != nil {
		return nil, err
	}

	return e, nil
}

// Start launches the engine's background routines.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	if e.snapshotStore != nil {
		e.wg.Add(1)
		go e.runSnapshotManager()
	}

	e.logger.Info("matching engine started")
	return nil
}

// Stop gracefully shuts down the engine.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("matching engine stopped gracefully")
		return nil
	case <-ctx.Done():
		e.logger.Warn("engine stop timeout exceeded")
		return ctx.Err()
	}
}

// ProcessOrder is the primary entry point: it validates the order,
// matches it against the opposite side, rests any unfilled remainder,
// refreshes the symbol's book snapshot and market data, and returns every
// trade produced during this call.
//
// Validation failures reject the order and return an empty trade list
// with a nil error. A non-nil error means an invariant breach inside
// matching; trades committed before the breach are already final and are
// returned alongside it.
func (e *Engine) ProcessOrder(ctx context.Context, o *orderv1.Order) ([]*orderv1.Trade, error) {
	if o == nil {
		return nil, errors.NewTracer(string(errors.GeneralBadRequestError)).Wrap(orderv1.ErrNilOrder)
	}

	if err := o.Validate(); err != nil {
		o.Reject()
		e.logger.WarnContext(ctx, "order rejected",
			logger.Field{Key: "orderID", Value: o.ID},
			logger.Field{Key: "symbol", Value: o.Symbol},
			logger.Field{Key: "reason", Value: err.Error()},
		)
		return []*orderv1.Trade{}, nil
	}

	st := e.getOrCreateSymbol(o.Symbol)

	st.mu.Lock()
	defer st.mu.Unlock()

	e.mu.Lock()
	e.orders[o.ID] = o
	e.mu.Unlock()

	trades, matchErr := st.book.Match(o)

	if matchErr == nil && o.Status != orderv1.StatusFilled {
		if err := st.book.Rest(o); err != nil {
			return trades, errors.TracerFromError(err)
		}
	}

	st.book.RefreshSnapshot()

	if len(trades) > 0 {
		e.recordTrades(ctx, st, trades)
	}

	if matchErr != nil {
		e.logger.ErrorContext(ctx, matchErr,
			logger.Field{Key: "orderID", Value: o.ID},
			logger.Field{Key: "symbol", Value: o.Symbol},
		)
		return trades, errors.NewTracer(string(errors.OrderOverfill)).Wrap(matchErr)
	}

	e.logger.DebugContext(ctx, "order processed",
		logger.Field{Key: "orderID", Value: o.ID},
		logger.Field{Key: "symbol", Value: o.Symbol},
		logger.Field{Key: "status", Value: o.Status},
		logger.Field{Key: "trades", Value: len(trades)},
	)

	return trades, nil
}

// CancelOrder cancels a resting order. It returns false, without any
// mutation, when the order is unknown, owned by another user, or already
// terminal; callers distinguish those cases only by this boolean.
func (e *Engine) CancelOrder(ctx context.Context, orderID, userID string) bool {
	e.mu.RLock()
	o, exists := e.orders[orderID]
	e.mu.RUnlock()
	if !exists {
		return false
	}

	if o.UserID != userID {
		return false
	}

	st := e.getOrCreateSymbol(o.Symbol)

	st.mu.Lock()
	defer st.mu.Unlock()

	// Re-check under the lane: a concurrent fill may have closed it.
	if !o.IsOpen() {
		return false
	}

	o.Cancel()
	st.book.Remove(orderID)
	st.book.RefreshSnapshot()

	e.logger.InfoContext(ctx, "order cancelled",
		logger.Field{Key: "orderID", Value: orderID},
		logger.Field{Key: "symbol", Value: o.Symbol},
	)
	return true
}

// recordTrades appends the trades to the global history, folds the last
// trade into the symbol's market data, and publishes the trade events.
// Called with the symbol lane held.
func (e *Engine) recordTrades(ctx context.Context, st *symbolState, trades []*orderv1.Trade) {
	e.tradesMu.Lock()
	e.trades = append(e.trades, trades...)
	e.tradesMu.Unlock()

	last := trades[len(trades)-1]
	st.marketData.RecordTrade(last.Price)

	book := st.book.Snapshot()
	if best, ok := book.BestBid(); ok {
		st.marketData.Bid = best.Price
	} else {
		st.marketData.Bid = 0
	}
	if best, ok := book.BestAsk(); ok {
		st.marketData.Ask = best.Price
	} else {
		st.marketData.Ask = 0
	}

	for _, trade := range trades {
		e.logger.InfoContext(ctx, "trade executed",
			logger.Field{Key: "tradeID", Value: trade.ID},
			logger.Field{Key: "symbol", Value: trade.Symbol},
			logger.Field{Key: "quantity", Value: trade.Quantity},
			logger.Field{Key: "price", Value: trade.Price},
		)

		if e.tradePublisher == nil {
			continue
		}
		if err := e.tradePublisher.PublishTrade(ctx, tradepublisherv1.CreateFromTrade(trade)); err != nil {
			// The trade is already final; delivery failures must not
			// unwind it.
			e.logger.ErrorContext(ctx, err, logger.Field{Key: "tradeID", Value: trade.ID})
		}
	}
}

// getOrCreateSymbol returns the symbol's processing lane, creating it on
// first reference.
func (e *Engine) getOrCreateSymbol(symbol string) *symbolState {
	e.mu.RLock()
	st, exists := e.symbols[symbol]
	e.mu.RUnlock()
	if exists {
		return st
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if st, exists = e.symbols[symbol]; exists {
		return st
	}

	st = &symbolState{
		book:       orderbook.NewBook(symbol),
		marketData: &marketdatav1.MarketData{Symbol: symbol},
	}
	e.symbols[symbol] = st
	return st
}

func (e *Engine) getSymbol(symbol string) (*symbolState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, exists := e.symbols[symbol]
	return st, exists
}

// GetOrderbook returns the symbol's aggregated book, or false when the
// symbol has never been referenced.
func (e *Engine) GetOrderbook(symbol string) (*orderbookv1.Book, bool) {
	st, exists := e.getSymbol(symbol)
	if !exists {
		return nil, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.book.Snapshot().Clone(), true
}

// GetMarketData returns the symbol's market data, or false when no trade
// has ever been recorded for it.
func (e *Engine) GetMarketData(symbol string) (*marketdatav1.MarketData, bool) {
	st, exists := e.getSymbol(symbol)
	if !exists {
		return nil, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.marketData.Timestamp.IsZero() {
		return nil, false
	}
	return st.marketData.Clone(), true
}

// GetOrder returns a copy of the order with the given id.
func (e *Engine) GetOrder(orderID string) (*orderv1.Order, bool) {
	e.mu.RLock()
	o, exists := e.orders[orderID]
	e.mu.RUnlock()
	if !exists {
		return nil, false
	}
	return o.Clone(), true
}

// GetOrdersByUser returns copies of every order submitted by the user.
func (e *Engine) GetOrdersByUser(userID string) []*orderv1.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []*orderv1.Order
	for _, o := range e.orders {
		if o.UserID == userID {
			out = append(out, o.Clone())
		}
	}
	return out
}

// GetTrades returns up to limit trades for the symbol, most recent first.
func (e *Engine) GetTrades(symbol string, limit int) []*orderv1.Trade {
	e.tradesMu.RLock()
	var out []*orderv1.Trade
	for _, trade := range e.trades {
		if trade.Symbol == symbol {
			out = append(out, trade)
		}
	}
	e.tradesMu.RUnlock()

	return recentFirst(out, limit)
}

// GetAllTrades returns up to limit trades across all symbols, most recent
// first.
func (e *Engine) GetAllTrades(limit int) []*orderv1.Trade {
	e.tradesMu.RLock()
	out := make([]*orderv1.Trade, len(e.trades))
	copy(out, e.trades)
	e.tradesMu.RUnlock()

	return recentFirst(out, limit)
}

func recentFirst(trades []*orderv1.Trade, limit int) []*orderv1.Trade {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.After(trades[j].Timestamp)
	})
	if limit > 0 && len(trades) > limit {
		trades = trades[:limit]
	}
	return trades
}

// Stats describes the engine's aggregate state.
type Stats struct {
	TotalOrders   int      `json:"totalOrders"`
	TotalTrades   int      `json:"totalTrades"`
	ActiveSymbols []string `json:"activeSymbols"`
}

// GetStats returns aggregate engine statistics.
func (e *Engine) GetStats() Stats {
	e.mu.RLock()
	symbols := make([]string, 0, len(e.symbols))
	for symbol := range e.symbols {
		symbols = append(symbols, symbol)
	}
	totalOrders := len(e.orders)
	e.mu.RUnlock()
	sort.Strings(symbols)

	e.tradesMu.RLock()
	totalTrades := len(e.trades)
	e.tradesMu.RUnlock()

	return Stats{
		TotalOrders:   totalOrders,
		TotalTrades:   totalTrades,
		ActiveSymbols: symbols,
	}
}

// CreateSnapshot copies every open resting order across all symbols.
func (e *Engine) CreateSnapshot() *snapshotv1.Snapshot {
	e.mu.RLock()
	states := make([]*symbolState, 0, len(e.symbols))
	for _, st := range e.symbols {
		states = append(states, st)
	}
	e.mu.RUnlock()

	snapshot := &snapshotv1.Snapshot{TakenAt: time.Now().UTC()}
	for _, st := range states {
		st.mu.Lock()
		for _, o := range st.book.RestingOrders() {
			snapshot.Orders = append(snapshot.Orders, *o.Clone())
		}
		st.mu.Unlock()
	}

	return snapshot
}

// runSnapshotManager periodically persists the resting-order set.
func (e *Engine) runSnapshotManager() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.snapshotInterval)
	defer ticker.Stop()

	e.logger.Info("starting snapshot manager",
		logger.Field{Key: "interval", Value: e.snapshotInterval.String()},
	)

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("snapshot manager shutting down")
			return
		case <-ticker.C:
			if err := e.snapshotStore.Store(e.ctx, e.CreateSnapshot()); err != nil {
				e.logger.ErrorContext(e.ctx, err, logger.Field{Key: "action", Value: "store_snapshot"})
			}
		}
	}
}

// loadSnapshot restores the resting-order set from the snapshot store.
func (e *Engine) loadSnapshot(ctx context.Context) error {
	if e.snapshotStore == nil {
		return nil
	}

	snapshot, err := e.snapshotStore.Load(ctx)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}

	for i := range snapshot.Orders {
		o := snapshot.Orders[i]
		if !o.IsOpen() {
			continue
		}

		st := e.getOrCreateSymbol(o.Symbol)
		st.mu.Lock()
		restored := o
		e.mu.Lock()
		e.orders[restored.ID] = &restored
		e.mu.Unlock()
		if err := st.book.Rest(&restored); err != nil {
			st.mu.Unlock()
			return errors.TracerFromError(err)
		}
		st.book.RefreshSnapshot()
		st.mu.Unlock()
	}

	e.logger.Info("engine restored from snapshot",
		logger.Field{Key: "orders", Value: len(snapshot.Orders)},
		logger.Field{Key: "takenAt", Value: snapshot.TakenAt},
	)
	return nil
}
