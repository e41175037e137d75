// Package indicator derives scalar metrics from order book depth.
package indicator

import (
	"fmt"

	"github.com/your-org/obi-backtest/internal/market"
)

// DepthMetrics holds the aggregate volume per book side and their raw
// signed difference. Recomputed on every evaluation, never persisted.
type DepthMetrics struct {
	BidVolume float64
	AskVolume float64
	// Imbalance is BidVolume - AskVolume. Positive means buy-side dominance.
	Imbalance float64
}

// ComputeDepthMetrics sums the level sizes of both sides of the book.
// An empty side or a level with a non-positive price or negative size
// fails with market.ErrInvalidOrderBook; the metrics never default to
// zero on bad input.
func ComputeDepthMetrics(book market.OrderBook) (DepthMetrics, error) {
	if len(book.Bids) == 0 {
		return DepthMetrics{}, fmt.Errorf("%w: bid side is empty", market.ErrInvalidOrderBook)
	}
	if len(book.Asks) == 0 {
		return DepthMetrics{}, fmt.Errorf("%w: ask side is empty", market.ErrInvalidOrderBook)
	}

	var m DepthMetrics
	for i, lvl := range book.Bids {
		if lvl.Price <= 0 || lvl.Size < 0 {
			return DepthMetrics{}, fmt.Errorf("%w: bid level %d has price=%v size=%v",
				market.ErrInvalidOrderBook, i, lvl.Price, lvl.Size)
		}
		m.BidVolume += lvl.Size
	}
	for i, lvl := range book.Asks {
		if lvl.Price <= 0 || lvl.Size < 0 {
			return DepthMetrics{}, fmt.Errorf("%w: ask level %d has price=%v size=%v",
				market.ErrInvalidOrderBook, i, lvl.Price, lvl.Size)
		}
		m.AskVolume += lvl.Size
	}
	m.Imbalance = m.BidVolume - m.AskVolume
	return m, nil
}

// MidPrice returns (best bid + best ask) / 2, the reference price the
// simulator applies entry slippage to.
func MidPrice(book market.OrderBook) (float64, error) {
	bid, ok := book.BestBid()
	if !ok {
		return 0, fmt.Errorf("%w: bid side is empty", market.ErrInvalidOrderBook)
	}
	ask, ok := book.BestAsk()
	if !ok {
		return 0, fmt.Errorf("%w: ask side is empty", market.ErrInvalidOrderBook)
	}
	return (bid.Price + ask.Price) / 2, nil
}
