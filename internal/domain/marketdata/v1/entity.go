package marketdatav1

import "time"

// MarketData holds the per-symbol market statistics maintained by the
// engine. It is updated only as a side effect of a trade.
type MarketData struct {
	Symbol    string  `json:"symbol"`
	LastPrice float64 `json:"lastPrice"`
	// Bid and Ask mirror the top of the book at the time of the last
	// trade; zero when that side of the book is empty.
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
	// ChangePercent is the delta against the previously recorded last
	// price, in percent. Zero until two trades have been recorded.
	ChangePercent float64   `json:"changePercent"`
	Timestamp     time.Time `json:"timestamp"`
}

// RecordTrade folds a new trade price into the market data, computing the
// change against the previous recorded price when one exists.
func (m *MarketData) RecordTrade(price float64) {
	if m.LastPrice > 0 {
		m.ChangePercent = (price - m.LastPrice) / m.LastPrice * 100
	}
	m.LastPrice = price
	m.Timestamp = time.Now().UTC()
}

// Clone returns a copy of the market data for handing out to callers.
func (m *MarketData) Clone() *MarketData {
	cp := *m
	return &cp
}
