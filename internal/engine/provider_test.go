package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/obi-backtest/internal/market"
)

func TestCachedProviderMemoizes(t *testing.T) {
	inner := &fakeProvider{
		candles: minuteCandles(100, 101),
		book:    bidHeavyBook(),
	}
	cached := NewCachedProvider(inner)

	for i := 0; i < 3; i++ {
		candles, err := cached.FetchCandles(context.Background(), "BTCUSDT", "1m", 90)
		require.NoError(t, err)
		assert.Len(t, candles, 2)

		book, err := cached.FetchOrderBook(context.Background(), "BTCUSDT", 20)
		require.NoError(t, err)
		assert.Len(t, book.Bids, 2)
	}

	assert.Equal(t, 1, inner.candleCalls)
	assert.Equal(t, 1, inner.bookCalls)
}

func TestCachedProviderDoesNotCacheFailures(t *testing.T) {
	inner := &fakeProvider{candlesErr: market.ErrNoData, bookErr: errors.New("down")}
	cached := NewCachedProvider(inner)

	_, err := cached.FetchCandles(context.Background(), "BTCUSDT", "1m", 90)
	require.Error(t, err)
	_, err = cached.FetchCandles(context.Background(), "BTCUSDT", "1m", 90)
	require.Error(t, err)
	assert.Equal(t, 2, inner.candleCalls)

	// After the inner provider recovers, the next fetch succeeds and is
	// then served from cache.
	inner.candlesErr = nil
	inner.candles = minuteCandles(100)
	_, err = cached.FetchCandles(context.Background(), "BTCUSDT", "1m", 90)
	require.NoError(t, err)
	_, err = cached.FetchCandles(context.Background(), "BTCUSDT", "1m", 90)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.candleCalls)
}
