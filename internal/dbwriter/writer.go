package dbwriter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Pool is an interface that abstracts the pgxpool.Pool for testability.
type Pool interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Close()
}

// Config controls write batching.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
}

// TimescaleWriter buffers trade and benchmark rows and copies them into
// TimescaleDB in batches. Summaries and optimizer results are written
// synchronously.
type TimescaleWriter struct {
	pool   Pool
	logger *zap.Logger
	cfg    Config

	bufferMutex     sync.Mutex
	tradeBuffer     []TradeRecord
	benchmarkBuffer []BenchmarkValue

	flushTicker  *time.Ticker
	shutdownChan chan struct{}
}

// NewTimescaleWriter creates a writer on an existing connection pool,
// which it takes ownership of. Use NewNoopWriter to run without a
// database.
func NewTimescaleWriter(pool Pool, cfg Config, logger *zap.Logger) (*TimescaleWriter, error) {
	if pool == nil {
		return nil, fmt.Errorf("dbwriter: connection pool is required")
	}
	if cfg.BatchSize <= 0 {
		logger.Warn("batch size is zero or negative, defaulting to 100", zap.Int("original", cfg.BatchSize))
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		logger.Warn("flush interval is zero or negative, defaulting to 1s", zap.Duration("original", cfg.FlushInterval))
		cfg.FlushInterval = time.Second
	}

	w := &TimescaleWriter{
		pool:            pool,
		logger:          logger,
		cfg:             cfg,
		tradeBuffer:     make([]TradeRecord, 0, cfg.BatchSize),
		benchmarkBuffer: make([]BenchmarkValue, 0, cfg.BatchSize),
		flushTicker:     time.NewTicker(cfg.FlushInterval),
		shutdownChan:    make(chan struct{}),
	}
	go w.run()
	logger.Info("started TimescaleDB batch writer",
		zap.Int("batch_size", cfg.BatchSize),
		zap.Duration("flush_interval", cfg.FlushInterval),
	)
	return w, nil
}

// Close flushes the buffers and closes the connection pool.
func (w *TimescaleWriter) Close() {
	close(w.shutdownChan)
	w.flushTicker.Stop()
	w.flushBuffers()
	w.pool.Close()
	w.logger.Info("TimescaleDB writer closed")
}

func (w *TimescaleWriter) run() {
	for {
		select {
		case <-w.flushTicker.C:
			w.flushBuffers()
		case <-w.shutdownChan:
			return
		}
	}
}

// SaveTrade adds a trade record to the buffer.
func (w *TimescaleWriter) SaveTrade(trade TradeRecord) {
	w.bufferMutex.Lock()
	w.tradeBuffer = append(w.tradeBuffer, trade)
	shouldFlush := len(w.tradeBuffer) >= w.cfg.BatchSize
	w.bufferMutex.Unlock()

	if shouldFlush {
		w.flushBuffers()
	}
}

// SaveBenchmarkValue adds a benchmark point to the buffer.
func (w *TimescaleWriter) SaveBenchmarkValue(value BenchmarkValue) {
	w.bufferMutex.Lock()
	w.benchmarkBuffer = append(w.benchmarkBuffer, value)
	shouldFlush := len(w.benchmarkBuffer) >= w.cfg.BatchSize
	w.bufferMutex.Unlock()

	if shouldFlush {
		w.flushBuffers()
	}
}

func (w *TimescaleWriter) flushBuffers() {
	w.bufferMutex.Lock()
	defer w.bufferMutex.Unlock()

	if len(w.tradeBuffer) > 0 {
		w.batchInsertTrades(context.Background(), w.tradeBuffer)
		w.tradeBuffer = w.tradeBuffer[:0]
	}
	if len(w.benchmarkBuffer) > 0 {
		w.batchInsertBenchmarkValues(context.Background(), w.benchmarkBuffer)
		w.benchmarkBuffer = w.benchmarkBuffer[:0]
	}
}

func (w *TimescaleWriter) batchInsertTrades(ctx context.Context, trades []TradeRecord) {
	w.logger.Debug("flushing trade records", zap.Int("count", len(trades)))

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"backtest_trades"},
		[]string{"id", "time", "symbol", "side", "entry_price", "exit_price", "realized_profit", "clamped", "win", "duration_min"},
		pgx.CopyFromRows(toTradeRows(trades)),
	)
	if err != nil {
		w.logger.Error("failed to batch insert trade records", zap.Error(err))
	}
}

func (w *TimescaleWriter) batchInsertBenchmarkValues(ctx context.Context, values []BenchmarkValue) {
	w.logger.Debug("flushing benchmark values", zap.Int("count", len(values)))

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"benchmark_values"},
		[]string{"time", "symbol", "price"},
		pgx.CopyFromRows(toBenchmarkRows(values)),
	)
	if err != nil {
		w.logger.Error("failed to batch insert benchmark values", zap.Error(err))
	}
}

func toTradeRows(trades []TradeRecord) [][]interface{} {
	rows := make([][]interface{}, len(trades))
	for i, t := range trades {
		rows[i] = []interface{}{t.ID, t.Time, t.Symbol, t.Side, t.EntryPrice, t.ExitPrice, t.RealizedProfit, t.Clamped, t.Win, t.DurationMin}
	}
	return rows
}

func toBenchmarkRows(values []BenchmarkValue) [][]interface{} {
	rows := make([][]interface{}, len(values))
	for i, v := range values {
		rows[i] = []interface{}{v.Time, v.Symbol, v.Price}
	}
	return rows
}

// SaveSummary writes a single run summary.
func (w *TimescaleWriter) SaveSummary(ctx context.Context, summary SummaryRecord) error {
	query := `INSERT INTO backtest_summaries (
	            run_id, time, symbol,
	            total_trades, winning_trades, losing_trades,
	            win_rate, total_profit, total_loss,
	            avg_trade_duration_min, avg_trade_return,
	            sharpe_ratio, max_drawdown, profit_factor,
	            avg_winning_trade, avg_losing_trade,
	            initial_capital, final_capital)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := w.pool.Exec(ctx, query,
		summary.RunID, summary.Time, summary.Symbol,
		summary.TotalTrades, summary.WinningTrades, summary.LosingTrades,
		summary.WinRate, summary.TotalProfit, summary.TotalLoss,
		summary.AvgTradeDuration, summary.AvgTradeReturn,
		summary.SharpeRatio, summary.MaxDrawdown, summary.ProfitFactor,
		summary.AvgWinningTrade, summary.AvgLosingTrade,
		summary.InitialCapital, summary.FinalCapital,
	)
	if err != nil {
		w.logger.Error("failed to insert run summary", zap.Error(err), zap.String("run_id", summary.RunID.String()))
		return fmt.Errorf("inserting run summary: %w", err)
	}
	w.logger.Debug("saved run summary", zap.String("run_id", summary.RunID.String()))
	return nil
}

// SaveOptimizerResult writes a single grid-search evaluation.
func (w *TimescaleWriter) SaveOptimizerResult(ctx context.Context, result OptimizerRecord) error {
	query := `INSERT INTO optimizer_results (
	            run_id, time, symbol,
	            threshold_positive, threshold_negative, hold_bars,
	            sharpe_ratio, total_trades, final_capital, is_best)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := w.pool.Exec(ctx, query,
		result.RunID, result.Time, result.Symbol,
		result.ThresholdPositive, result.ThresholdNegative, result.HoldBars,
		result.SharpeRatio, result.TotalTrades, result.FinalCapital, result.IsBest,
	)
	if err != nil {
		w.logger.Error("failed to insert optimizer result", zap.Error(err), zap.String("run_id", result.RunID.String()))
		return fmt.Errorf("inserting optimizer result: %w", err)
	}
	return nil
}
