// Package datastore provides read access to persisted backtest results and
// file-based market data sources for offline runs.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/your-org/obi-backtest/internal/dbwriter"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("datastore: not found")

// Querier is the subset of pgxpool.Pool used by the read-side repository.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// PerformanceRow is one row of the v_performance_vs_benchmark view. Both
// indices are rebased to 100 at their starting points, so Alpha reads as
// percentage-point outperformance over buy-and-hold.
type PerformanceRow struct {
	RunID          uuid.UUID       `json:"run_id"`
	Time           time.Time       `json:"time"`
	Symbol         string          `json:"symbol"`
	StrategyIndex  decimal.Decimal `json:"strategy_index"`
	BenchmarkIndex float64         `json:"benchmark_index"`
	Alpha          float64         `json:"alpha"`
}

// Repository exposes the persisted backtest results to reporting tools.
type Repository interface {
	FetchSummaries(ctx context.Context, symbol string, limit int) ([]dbwriter.SummaryRecord, error)
	FetchLatestSummary(ctx context.Context, symbol string) (*dbwriter.SummaryRecord, error)
	FetchBestOptimizerResult(ctx context.Context, symbol string) (*dbwriter.OptimizerRecord, error)
	FetchPerformanceVsBenchmark(ctx context.Context, symbol string, limit int) ([]PerformanceRow, error)
	DeleteOldSummaries(ctx context.Context, maxAgeHours int) (int64, error)
}

// TimescaleRepository reads backtest results from TimescaleDB/PostgreSQL.
type TimescaleRepository struct {
	db Querier
}

// NewTimescaleRepository creates a new TimescaleRepository.
func NewTimescaleRepository(db Querier) *TimescaleRepository {
	return &TimescaleRepository{db: db}
}

const summaryColumns = `
        run_id, time, symbol, total_trades, winning_trades, losing_trades,
        win_rate, total_profit, total_loss, avg_trade_return,
        avg_winning_trade, avg_losing_trade, avg_trade_duration_min,
        sharpe_ratio, max_drawdown, profit_factor, initial_capital, final_capital`

// FetchSummaries returns the most recent run summaries for a symbol, newest first.
func (r *TimescaleRepository) FetchSummaries(ctx context.Context, symbol string, limit int) ([]dbwriter.SummaryRecord, error) {
	query := `
        SELECT` + summaryColumns + `
        FROM backtest_summaries
        WHERE symbol = $1
        ORDER BY time DESC
        LIMIT $2;
    `
	rows, err := r.db.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch summaries: %w", err)
	}
	defer rows.Close()

	var summaries []dbwriter.SummaryRecord
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// FetchLatestSummary returns the most recent run summary for a symbol.
// It returns ErrNotFound when no run has been persisted yet.
func (r *TimescaleRepository) FetchLatestSummary(ctx context.Context, symbol string) (*dbwriter.SummaryRecord, error) {
	query := `
        SELECT` + summaryColumns + `
        FROM backtest_summaries
        WHERE symbol = $1
        ORDER BY time DESC
        LIMIT 1;
    `
	s, err := scanSummary(r.db.QueryRow(ctx, query, symbol))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest summary: %w", err)
	}
	return &s, nil
}

// FetchBestOptimizerResult returns the highest-Sharpe grid point recorded for
// a symbol. It returns ErrNotFound when no sweep has been persisted yet.
func (r *TimescaleRepository) FetchBestOptimizerResult(ctx context.Context, symbol string) (*dbwriter.OptimizerRecord, error) {
	query := `
        SELECT run_id, time, symbol, threshold_positive, threshold_negative,
               hold_bars, sharpe_ratio, total_trades, final_capital, is_best
        FROM optimizer_results
        WHERE symbol = $1 AND is_best
        ORDER BY time DESC
        LIMIT 1;
    `
	var rec dbwriter.OptimizerRecord
	err := r.db.QueryRow(ctx, query, symbol).Scan(
		&rec.RunID, &rec.Time, &rec.Symbol, &rec.ThresholdPositive, &rec.ThresholdNegative,
		&rec.HoldBars, &rec.SharpeRatio, &rec.TotalTrades, &rec.FinalCapital, &rec.IsBest,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch best optimizer result: %w", err)
	}
	return &rec, nil
}

// FetchPerformanceVsBenchmark reads the alpha view, newest rows first.
func (r *TimescaleRepository) FetchPerformanceVsBenchmark(ctx context.Context, symbol string, limit int) ([]PerformanceRow, error) {
	query := `
        SELECT run_id, time, symbol, strategy_index, benchmark_index, alpha
        FROM v_performance_vs_benchmark
        WHERE symbol = $1
        ORDER BY time DESC
        LIMIT $2;
    `
	rows, err := r.db.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch performance view: %w", err)
	}
	defer rows.Close()

	var result []PerformanceRow
	for rows.Next() {
		var p PerformanceRow
		if err := rows.Scan(&p.RunID, &p.Time, &p.Symbol, &p.StrategyIndex, &p.BenchmarkIndex, &p.Alpha); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// DeleteOldSummaries removes run summaries older than the given age and
// returns the number of rows deleted.
func (r *TimescaleRepository) DeleteOldSummaries(ctx context.Context, maxAgeHours int) (int64, error) {
	query := `
        DELETE FROM backtest_summaries
        WHERE time < now() - make_interval(hours => $1);
    `
	result, err := r.db.Exec(ctx, query, maxAgeHours)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func scanSummary(row pgx.Row) (dbwriter.SummaryRecord, error) {
	var s dbwriter.SummaryRecord
	err := row.Scan(
		&s.RunID, &s.Time, &s.Symbol, &s.TotalTrades, &s.WinningTrades, &s.LosingTrades,
		&s.WinRate, &s.TotalProfit, &s.TotalLoss, &s.AvgTradeReturn,
		&s.AvgWinningTrade, &s.AvgLosingTrade, &s.AvgTradeDuration,
		&s.SharpeRatio, &s.MaxDrawdown, &s.ProfitFactor, &s.InitialCapital, &s.FinalCapital,
	)
	return s, err
}
