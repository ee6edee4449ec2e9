package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Karlli16/OrderMatch/internal/app/engine"
	orderv1 "github.com/Karlli16/OrderMatch/internal/domain/order/v1"
	"github.com/Karlli16/OrderMatch/internal/usecase/ledger"
	"github.com/Karlli16/OrderMatch/pkg/logger"
	"github.com/Karlli16/OrderMatch/pkg/util"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Server exposes the matching engine over REST and WebSocket.
type Server struct {
	engine *engine.Engine
	ledger *ledger.Ledger
	router *mux.Router
	hub    *Hub
	logger *logger.Logger

	httpServer *http.Server
}

// NewServer creates a new API server around the engine and ledger.
func NewServer(eng *engine.Engine, led *ledger.Ledger, log *logger.Logger) *Server {
	s := &Server{
		engine: eng,
		ledger: led,
		router: mux.NewRouter(),
		hub:    NewHub(log),
		logger: log,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(requestIDMiddleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Order endpoints
	api.HandleFunc("/orders", s.handlePlaceOrder).Methods("POST")
	api.HandleFunc("/orders/{orderID}", s.handleCancelOrder).Methods("DELETE")
	api.HandleFunc("/orders/{orderID}", s.handleGetOrder).Methods("GET")

	// User endpoints
	api.HandleFunc("/users/{userID}/orders", s.handleGetUserOrders).Methods("GET")
	api.HandleFunc("/users/{userID}/balance", s.handleGetBalance).Methods("GET")

	// Market endpoints. Symbols look like BASE/QUOTE, so the variable has
	// to span the slash.
	api.HandleFunc("/orderbook/{symbol:.+}", s.handleGetOrderbook).Methods("GET")
	api.HandleFunc("/market/{symbol:.+}", s.handleGetMarketData).Methods("GET")
	api.HandleFunc("/trades", s.handleGetAllTrades).Methods("GET")
	api.HandleFunc("/trades/{symbol:.+}", s.handleGetTrades).Methods("GET")

	// System endpoints
	api.HandleFunc("/stats", s.handleGetStats).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the WebSocket hub and the HTTP server. It blocks until the
// server exits.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	})

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: c.Handler(s.router),
	}

	s.logger.Info("api server starting", logger.Field{Key: "addr", Value: addr})
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func symbolFromRequest(r *http.Request) string {
	return mux.Vars(r)["symbol"]
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	// Balance check happens before the order ever reaches the engine.
	price := 0.0
	if req.Price != nil {
		price = *req.Price
	}
	if !s.ledger.CanCover(req.UserID, req.Symbol, req.Side, req.Quantity, price) {
		writeJSON(w, http.StatusOK, OrderResponse{
			Success: false,
			Message: "insufficient balance",
		})
		return
	}

	o := orderv1.NewOrder(req.Symbol, req.Side, req.Type, req.Quantity, req.Price, req.UserID, req.ClientOrderID)
	o.StopPrice = req.StopPrice

	trades, err := s.engine.ProcessOrder(r.Context(), o)
	if err != nil {
		s.logger.ErrorContext(r.Context(), err, logger.Field{Key: "orderID", Value: o.ID})
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "order processing failed"})
		return
	}

	for _, trade := range trades {
		s.ledger.Settle(trade)
		s.hub.BroadcastToChannel("trades:"+trade.Symbol, WSMessage{
			Type:    "trade",
			Channel: "trades:" + trade.Symbol,
			Data:    trade,
		})
	}
	if len(trades) > 0 {
		s.broadcastOrderbook(o.Symbol)
	}

	if o.Status == orderv1.StatusRejected {
		writeJSON(w, http.StatusOK, OrderResponse{
			Success: false,
			Message: "order rejected",
			OrderID: o.ID,
			Order:   o,
		})
		return
	}

	writeJSON(w, http.StatusOK, OrderResponse{
		Success: true,
		Message: "order accepted",
		OrderID: o.ID,
		Order:   o,
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderID"]
	userID := r.URL.Query().Get("user_id")

	if s.engine.CancelOrder(r.Context(), orderID, userID) {
		if o, ok := s.engine.GetOrder(orderID); ok {
			s.broadcastOrderbook(o.Symbol)
		}
		writeJSON(w, http.StatusOK, CancelResponse{Success: true, Message: "order cancelled"})
		return
	}

	writeJSON(w, http.StatusOK, CancelResponse{
		Success: false,
		Message: "cancel failed: order unknown, not owned, or already closed",
	})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := s.engine.GetOrder(mux.Vars(r)["orderID"])
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleGetUserOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.engine.GetOrdersByUser(mux.Vars(r)["userID"])
	if orders == nil {
		orders = []*orderv1.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	writeJSON(w, http.StatusOK, BalanceResponse{
		UserID:   userID,
		Balances: s.ledger.Balances(userID),
	})
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	book, ok := s.engine.GetOrderbook(symbolFromRequest(r))
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "symbol not found"})
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleGetMarketData(w http.ResponseWriter, r *http.Request) {
	md, ok := s.engine.GetMarketData(symbolFromRequest(r))
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "market data not found"})
		return
	}
	writeJSON(w, http.StatusOK, md)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	trades := s.engine.GetTrades(symbolFromRequest(r), limitFromRequest(r))
	if trades == nil {
		trades = []*orderv1.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleGetAllTrades(w http.ResponseWriter, r *http.Request) {
	trades := s.engine.GetAllTrades(limitFromRequest(r))
	if trades == nil {
		trades = []*orderv1.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.GetStats())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.GetStats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"service":     "ordermatch",
		"totalOrders": stats.TotalOrders,
		"totalTrades": stats.TotalTrades,
	})
}

// broadcastOrderbook pushes the symbol's refreshed book to subscribers,
// trimmed to the top ten levels per side.
func (s *Server) broadcastOrderbook(symbol string) {
	book, ok := s.engine.GetOrderbook(symbol)
	if !ok {
		return
	}

	const depth = 10
	if len(book.Bids) > depth {
		book.Bids = book.Bids[:depth]
	}
	if len(book.Asks) > depth {
		book.Asks = book.Asks[:depth]
	}

	s.hub.BroadcastToChannel("orderbook:"+symbol, WSMessage{
		Type:    "orderbook",
		Channel: "orderbook:" + symbol,
		Data:    book,
	})
}

func limitFromRequest(r *http.Request) int {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return limit
}

// requestIDMiddleware tags each request's context with the X-Request-ID
// header, generating one when the client sends none.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := util.WithRequestID(r.Context(), r.Header.Get("X-Request-ID"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
