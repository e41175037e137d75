package datastore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/obi-backtest/internal/market"
)

const depthJSON = `{
  "lastUpdateId": 1027024,
  "bids": [["100.00", "5.0"], ["99.00", "3.0"], [98.5, 1.0]],
  "asks": [["101.00", "2.0"], ["102.00", "1.0"], [103.0, 0.5]]
}`

func writeDepthFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "depth.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOrderBookFromJSON(t *testing.T) {
	book, err := LoadOrderBookFromJSON(writeDepthFile(t, depthJSON))
	require.NoError(t, err)

	require.Len(t, book.Bids, 3)
	require.Len(t, book.Asks, 3)

	best, ok := book.BestBid()
	require.True(t, ok)
	assert.InDelta(t, 100.0, best.Price, 1e-9)
	assert.InDelta(t, 5.0, best.Size, 1e-9)

	// Numeric levels decode just like quoted ones.
	assert.InDelta(t, 98.5, book.Bids[2].Price, 1e-9)
}

func TestLoadOrderBookFromJSONMissingSide(t *testing.T) {
	path := writeDepthFile(t, `{"bids": [["100.00", "5.0"]], "asks": []}`)

	_, err := LoadOrderBookFromJSON(path)
	assert.ErrorIs(t, err, market.ErrInvalidOrderBook)
}

func TestLoadOrderBookFromJSONMalformedLevel(t *testing.T) {
	path := writeDepthFile(t, `{"bids": [["100.00"]], "asks": [["101.00", "2.0"]]}`)

	_, err := LoadOrderBookFromJSON(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bid level 0")
}

func TestFileProviderFetchCandles(t *testing.T) {
	candlesPath := writeCSV(t, `time,symbol,open,high,low,close,volume
2024-05-01T09:00:00Z,BTCUSDT,100,102,99,101,10
2024-05-01T09:01:00Z,BTCUSDT,101,103,100,102,11
2024-05-01T09:02:00Z,BTCUSDT,102,104,101,103,12
`)
	provider := NewFileProvider(candlesPath, writeDepthFile(t, depthJSON), zap.NewNop())

	candles, err := provider.FetchCandles(context.Background(), "btcusdt", "1m", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2, "limit should keep the most recent candles")
	assert.InDelta(t, 102, candles[0].Close, 1e-9)
	assert.InDelta(t, 103, candles[1].Close, 1e-9)
}

func TestFileProviderSymbolMismatch(t *testing.T) {
	candlesPath := writeCSV(t, `time,symbol,open,high,low,close,volume
2024-05-01T09:00:00Z,ETHUSDT,100,102,99,101,10
`)
	provider := NewFileProvider(candlesPath, writeDepthFile(t, depthJSON), zap.NewNop())

	_, err := provider.FetchCandles(context.Background(), "BTCUSDT", "1m", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holds ETHUSDT, want BTCUSDT")
}

func TestFileProviderFetchOrderBookTruncatesDepth(t *testing.T) {
	candlesPath := writeCSV(t, `time,symbol,open,high,low,close,volume
2024-05-01T09:00:00Z,BTCUSDT,100,102,99,101,10
`)
	provider := NewFileProvider(candlesPath, writeDepthFile(t, depthJSON), zap.NewNop())

	book, err := provider.FetchOrderBook(context.Background(), "BTCUSDT", 2)
	require.NoError(t, err)
	assert.Len(t, book.Bids, 2)
	assert.Len(t, book.Asks, 2)
}

func replayCandles(n int) []market.Candle {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	candles := make([]market.Candle, n)
	for i := range candles {
		candles[i] = market.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Close:     100 + float64(i),
		}
	}
	return candles
}

func TestReplayProviderSlidesWindow(t *testing.T) {
	book, err := LoadOrderBookFromJSON(writeDepthFile(t, depthJSON))
	require.NoError(t, err)

	replay := NewReplayProvider(replayCandles(5), book)
	ctx := context.Background()

	first, err := replay.FetchCandles(ctx, "BTCUSDT", "1m", 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.InDelta(t, 100, first[0].Close, 1e-9)
	assert.InDelta(t, 102, first[2].Close, 1e-9)

	second, err := replay.FetchCandles(ctx, "BTCUSDT", "1m", 3)
	require.NoError(t, err)
	assert.InDelta(t, 101, second[0].Close, 1e-9)
	assert.InDelta(t, 103, second[2].Close, 1e-9)

	third, err := replay.FetchCandles(ctx, "BTCUSDT", "1m", 3)
	require.NoError(t, err)
	assert.InDelta(t, 104, third[2].Close, 1e-9)

	_, err = replay.FetchCandles(ctx, "BTCUSDT", "1m", 3)
	require.ErrorIs(t, err, market.ErrNoData)
	assert.Contains(t, err.Error(), "replay exhausted after 3 passes")

	snapshot, err := replay.FetchOrderBook(ctx, "BTCUSDT", 20)
	require.NoError(t, err)
	assert.Len(t, snapshot.Bids, 3)
}

func TestReplayProviderRespectsContext(t *testing.T) {
	replay := NewReplayProvider(replayCandles(5), market.OrderBook{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := replay.FetchCandles(ctx, "BTCUSDT", "1m", 3)
	assert.ErrorIs(t, err, context.Canceled)
}
