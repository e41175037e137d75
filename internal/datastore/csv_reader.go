package datastore

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/your-org/obi-backtest/internal/market"
)

// candleColumns is the expected CSV layout, after a header row:
// time, symbol, open, high, low, close, volume
const candleColumns = 7

// LoadCandlesFromCSV reads an entire candle CSV file into memory, sorted by
// time ascending. Backtest inputs must be complete, so a malformed record is
// an error rather than a skip.
func LoadCandlesFromCSV(filePath string) ([]market.Candle, string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open csv file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Read the header row
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, "", fmt.Errorf("candle csv %s: %w", filePath, market.ErrNoData)
		}
		return nil, "", fmt.Errorf("failed to read csv header: %w", err)
	}

	var candles []market.Candle
	var symbol string
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read csv record: %w", err)
		}

		if len(record) != candleColumns {
			return nil, "", fmt.Errorf("csv row %d: expected %d columns, got %d", row, candleColumns, len(record))
		}

		candleTime, err := parseTime(record[0])
		if err != nil {
			return nil, "", fmt.Errorf("csv row %d: %w", row, err)
		}
		symbol = record[1]

		fields := [5]float64{}
		for i, name := range [5]string{"open", "high", "low", "close", "volume"} {
			v, err := strconv.ParseFloat(record[i+2], 64)
			if err != nil {
				return nil, "", fmt.Errorf("csv row %d: parsing %s: %w", row, name, err)
			}
			fields[i] = v
		}

		candles = append(candles, market.Candle{
			Timestamp: candleTime,
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			Volume:    fields[4],
		})
	}

	if len(candles) == 0 {
		return nil, "", fmt.Errorf("candle csv %s: %w", filePath, market.ErrNoData)
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	return candles, symbol, nil
}

func parseTime(timeStr string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, timeStr)
	if err == nil {
		return t, nil
	}
	// Fallback for timestamps exported straight from PostgreSQL,
	// e.g. "2025-07-14 04:11:13.484971+00".
	const layout = "2006-01-02 15:04:05.999999-07"
	t, err = time.Parse(layout, timeStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse time '%s' with any known format", timeStr)
	}
	return t, nil
}
