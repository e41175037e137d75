// Package market defines the data types shared between the exchange
// collaborators and the backtest core.
package market

import (
	"errors"
	"time"
)

// Sentinel errors surfaced by data providers and the indicator layer.
// They travel upward untouched; callers decide whether to skip the
// current pass or abort the run.
var (
	// ErrNoData indicates an empty candle series or a missing order book
	// side from the data provider.
	ErrNoData = errors.New("no market data")

	// ErrInvalidOrderBook indicates malformed level data, such as an empty
	// side or a level with a non-positive price.
	ErrInvalidOrderBook = errors.New("invalid order book")
)

// Candle is a single OHLCV bar.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// BookLevel is one price level of an order book side.
type BookLevel struct {
	Price float64
	Size  float64
}

// OrderBook holds both sides of a depth snapshot, best price first.
type OrderBook struct {
	Bids []BookLevel
	Asks []BookLevel
}

// BestBid returns the top bid level. The second return value is false
// when the bid side is empty.
func (b OrderBook) BestBid() (BookLevel, bool) {
	if len(b.Bids) == 0 {
		return BookLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the top ask level. The second return value is false
// when the ask side is empty.
func (b OrderBook) BestAsk() (BookLevel, bool) {
	if len(b.Asks) == 0 {
		return BookLevel{}, false
	}
	return b.Asks[0], true
}
