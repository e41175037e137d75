package engine

import (
	"context"
	"sync"

	"github.com/your-org/obi-backtest/internal/market"
)

// CachedProvider memoizes the first successful fetch of each kind, so
// every grid point in a sweep is evaluated against the same snapshot.
// Failed fetches are not cached.
type CachedProvider struct {
	inner DataProvider

	mu      sync.Mutex
	candles []market.Candle
	book    *market.OrderBook
}

// NewCachedProvider wraps a provider with single-snapshot memoization.
func NewCachedProvider(inner DataProvider) *CachedProvider {
	return &CachedProvider{inner: inner}
}

// FetchCandles returns the memoized series, fetching it on first use.
func (p *CachedProvider) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.candles != nil {
		return p.candles, nil
	}
	candles, err := p.inner.FetchCandles(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	p.candles = candles
	return candles, nil
}

// FetchOrderBook returns the memoized snapshot, fetching it on first use.
func (p *CachedProvider) FetchOrderBook(ctx context.Context, symbol string, depth int) (market.OrderBook, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.book != nil {
		return *p.book, nil
	}
	book, err := p.inner.FetchOrderBook(ctx, symbol, depth)
	if err != nil {
		return market.OrderBook{}, err
	}
	p.book = &book
	return book, nil
}
