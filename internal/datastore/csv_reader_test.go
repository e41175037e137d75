package datastore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/obi-backtest/internal/market"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCandlesFromCSV(t *testing.T) {
	// Rows are deliberately out of order to exercise the sort.
	path := writeCSV(t, `time,symbol,open,high,low,close,volume
2024-05-01T09:01:00Z,BTCUSDT,101,103,100,102,11.5
2024-05-01T09:00:00Z,BTCUSDT,100,102,99,101,10.25
`)

	candles, symbol, err := LoadCandlesFromCSV(path)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", symbol)
	require.Len(t, candles, 2)

	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), candles[0].Timestamp.UTC())
	assert.InDelta(t, 100, candles[0].Open, 1e-9)
	assert.InDelta(t, 101, candles[0].Close, 1e-9)
	assert.InDelta(t, 10.25, candles[0].Volume, 1e-9)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 1, 0, 0, time.UTC), candles[1].Timestamp.UTC())
}

func TestLoadCandlesFromCSVPostgresTimestamps(t *testing.T) {
	path := writeCSV(t, `time,symbol,open,high,low,close,volume
2025-07-14 04:11:13.484971+00,BTCUSDT,100,102,99,101,10
`)

	candles, _, err := LoadCandlesFromCSV(path)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 2025, candles[0].Timestamp.UTC().Year())
	assert.Equal(t, time.July, candles[0].Timestamp.UTC().Month())
}

func TestLoadCandlesFromCSVMalformedRow(t *testing.T) {
	path := writeCSV(t, `time,symbol,open,high,low,close,volume
2024-05-01T09:00:00Z,BTCUSDT,100,102,99,101,10
2024-05-01T09:01:00Z,BTCUSDT,not-a-price,103,100,102,11
`)

	_, _, err := LoadCandlesFromCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv row 2")
	assert.Contains(t, err.Error(), "open")
}

func TestLoadCandlesFromCSVHeaderOnly(t *testing.T) {
	path := writeCSV(t, "time,symbol,open,high,low,close,volume\n")

	_, _, err := LoadCandlesFromCSV(path)
	assert.ErrorIs(t, err, market.ErrNoData)
}

func TestLoadCandlesFromCSVMissingFile(t *testing.T) {
	_, _, err := LoadCandlesFromCSV(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open csv file")
}
