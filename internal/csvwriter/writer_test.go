package csvwriter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/obi-backtest/internal/datastore"
	"github.com/your-org/obi-backtest/internal/dbwriter"
	"github.com/your-org/obi-backtest/internal/simulator"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return records
}

func TestTradeLogWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")

	log, err := NewTradeLog(path, zap.NewNop())
	require.NoError(t, err)

	entry := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	exit := entry.Add(2 * time.Minute)
	require.NoError(t, log.Write("BTCUSDT", simulator.Outcome{
		Position: simulator.Position{
			Side:       simulator.SideLong,
			EntryPrice: 100.5,
			EntryTime:  entry,
			ExitPrice:  103,
			ExitTime:   exit,
		},
		RawProfit:      2.5,
		RealizedProfit: 2.5,
		StopThreshold:  28.14,
		TakeThreshold:  30.15,
		Win:            true,
		Booked:         true,
		DurationMin:    2,
	}))
	require.NoError(t, log.Write("BTCUSDT", simulator.Outcome{
		Position:       simulator.Position{Side: simulator.SideShort, EntryPrice: 100, ExitPrice: 101},
		RawProfit:      -1,
		RealizedProfit: -1,
		Clamped:        false,
	}))
	require.NoError(t, log.Close())

	records := readCSV(t, path)
	require.Len(t, records, 3)

	assert.Equal(t, tradeLogHeader, records[0])

	first := records[1]
	assert.Equal(t, "2024-05-01T09:00:00Z", first[0])
	assert.Equal(t, "2024-05-01T09:02:00Z", first[1])
	assert.Equal(t, "BTCUSDT", first[2])
	assert.Equal(t, "LONG", first[3])
	assert.Equal(t, "100.5", first[4])
	assert.Equal(t, "2.5", first[7])
	assert.Equal(t, "true", first[11])

	second := records[2]
	assert.Equal(t, "", second[0], "zero entry time should serialize empty")
	assert.Equal(t, "SHORT", second[3])
	assert.Equal(t, "-1", second[7])
	assert.Equal(t, "false", second[11])
}

func TestNewTradeLogBadPath(t *testing.T) {
	_, err := NewTradeLog(filepath.Join(t.TempDir(), "missing", "trades.csv"), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create CSV file")
}

func TestWriteSummaries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.csv")

	runID := uuid.New()
	summaries := []dbwriter.SummaryRecord{
		{
			RunID:  runID,
			Time:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			Symbol: "BTCUSDT",

			TotalTrades:   3,
			WinningTrades: 2,
			LosingTrades:  1,

			WinRate:          0.75,
			TotalProfit:      decimal.NewFromFloat(60),
			TotalLoss:        decimal.NewFromFloat(20),
			AvgTradeDuration: 2,
			SharpeRatio:      1.5,
			InitialCapital:   decimal.NewFromInt(10000),
			FinalCapital:     decimal.NewFromInt(10040),
		},
	}

	require.NoError(t, WriteSummaries(path, summaries))

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, summaryHeader, records[0])

	row := records[1]
	assert.Equal(t, runID.String(), row[0])
	assert.Equal(t, "2024-05-01T10:00:00Z", row[1])
	assert.Equal(t, "BTCUSDT", row[2])
	assert.Equal(t, "3", row[3])
	assert.Equal(t, "0.75", row[6])
	assert.Equal(t, "60", row[7])
	assert.Equal(t, "10040", row[17])
}

func TestWriteSummariesEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.csv")

	require.NoError(t, WriteSummaries(path, nil))

	records := readCSV(t, path)
	require.Len(t, records, 1, "only the header should be written")
}

func TestWritePerformance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "performance.csv")

	runID := uuid.New()
	rows := []datastore.PerformanceRow{
		{
			RunID:          runID,
			Time:           time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			Symbol:         "BTCUSDT",
			StrategyIndex:  decimal.NewFromFloat(102),
			BenchmarkIndex: 104,
			Alpha:          -2,
		},
	}

	require.NoError(t, WritePerformance(path, rows))

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, performanceHeader, records[0])

	row := records[1]
	assert.Equal(t, runID.String(), row[0])
	assert.Equal(t, "2024-05-01T10:00:00Z", row[1])
	assert.Equal(t, "BTCUSDT", row[2])
	assert.Equal(t, "102", row[3])
	assert.Equal(t, "104", row[4])
	assert.Equal(t, "-2", row[5])
}
