// Package csvwriter exports backtest output as CSV files.
package csvwriter

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/obi-backtest/internal/datastore"
	"github.com/your-org/obi-backtest/internal/dbwriter"
	"github.com/your-org/obi-backtest/internal/simulator"
)

var tradeLogHeader = []string{
	"entry_time", "exit_time", "symbol", "side",
	"entry_price", "exit_price", "raw_profit", "realized_profit",
	"stop_threshold", "take_threshold", "clamped", "win", "booked", "duration_min",
}

// TradeLog appends resolved trades to a CSV file as they happen.
type TradeLog struct {
	file   *os.File
	writer *csv.Writer
	logger *zap.Logger
	mu     sync.Mutex
}

// NewTradeLog creates the file and writes the header row.
func NewTradeLog(filePath string, logger *zap.Logger) (*TradeLog, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV file: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(tradeLogHeader); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	logger.Info("trade log opened", zap.String("path", filePath))
	return &TradeLog{
		file:   file,
		writer: writer,
		logger: logger,
	}, nil
}

// Write appends one resolved trade.
func (w *TradeLog) Write(symbol string, o simulator.Outcome) error {
	record := []string{
		formatTime(o.Position.EntryTime),
		formatTime(o.Position.ExitTime),
		symbol,
		o.Position.Side.String(),
		formatFloat(o.Position.EntryPrice),
		formatFloat(o.Position.ExitPrice),
		formatFloat(o.RawProfit),
		formatFloat(o.RealizedProfit),
		formatFloat(o.StopThreshold),
		formatFloat(o.TakeThreshold),
		strconv.FormatBool(o.Clamped),
		strconv.FormatBool(o.Win),
		strconv.FormatBool(o.Booked),
		formatFloat(o.DurationMin),
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record to CSV: %w", err)
	}
	return nil
}

// Flush flushes any buffered data to the underlying file.
func (w *TradeLog) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writer.Flush()
}

// Close flushes and closes the file.
func (w *TradeLog) Close() error {
	w.Flush()
	return w.file.Close()
}

var summaryHeader = []string{
	"run_id", "time", "symbol",
	"total_trades", "winning_trades", "losing_trades",
	"win_rate", "total_profit", "total_loss",
	"avg_trade_return", "avg_winning_trade", "avg_losing_trade",
	"avg_trade_duration_min", "sharpe_ratio", "max_drawdown", "profit_factor",
	"initial_capital", "final_capital",
}

// WriteSummaries writes run summaries to one CSV file, header included.
func WriteSummaries(filePath string, summaries []dbwriter.SummaryRecord) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(summaryHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, s := range summaries {
		record := []string{
			s.RunID.String(),
			formatTime(s.Time),
			s.Symbol,
			strconv.Itoa(s.TotalTrades),
			strconv.Itoa(s.WinningTrades),
			strconv.Itoa(s.LosingTrades),
			formatFloat(s.WinRate),
			s.TotalProfit.String(),
			s.TotalLoss.String(),
			s.AvgTradeReturn.String(),
			s.AvgWinningTrade.String(),
			s.AvgLosingTrade.String(),
			formatFloat(s.AvgTradeDuration),
			formatFloat(s.SharpeRatio),
			formatFloat(s.MaxDrawdown),
			formatFloat(s.ProfitFactor),
			s.InitialCapital.String(),
			s.FinalCapital.String(),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record to CSV: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

var performanceHeader = []string{
	"run_id", "time", "symbol", "strategy_index", "benchmark_index", "alpha",
}

// WritePerformance writes strategy-versus-benchmark rows to one CSV file,
// header included.
func WritePerformance(filePath string, rows []datastore.PerformanceRow) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(performanceHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.RunID.String(),
			formatTime(r.Time),
			r.Symbol,
			r.StrategyIndex.String(),
			formatFloat(r.BenchmarkIndex),
			formatFloat(r.Alpha),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record to CSV: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
