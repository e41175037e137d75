package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/your-org/obi-backtest/internal/config"
	"github.com/your-org/obi-backtest/internal/datastore"
	"github.com/your-org/obi-backtest/internal/dbwriter"
	"github.com/your-org/obi-backtest/internal/engine"
	"github.com/your-org/obi-backtest/internal/exchange/binance"
	"github.com/your-org/obi-backtest/internal/notify"
	"github.com/your-org/obi-backtest/internal/optimizer"
	"github.com/your-org/obi-backtest/internal/report"
	"github.com/your-org/obi-backtest/internal/signal"
	"github.com/your-org/obi-backtest/internal/simulator"
)

// runSweep walks the configured grid, evaluating every combination
// against the same cached market snapshot.
func runSweep(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	writer, repo, err := buildWriter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer writer.Close()

	if repo != nil {
		logPreviousBest(ctx, repo, cfg.Symbol, log)
	}

	detector := signal.NewDetector(signal.Config{
		ThresholdPositive: cfg.Signal.ThresholdPositive,
		ThresholdNegative: cfg.Signal.ThresholdNegative,
		HoldBars:          cfg.Signal.HoldBars,
	})
	sim := simulator.New(simulator.Config{
		Slippage:             cfg.Risk.Slippage,
		StopLossFraction:     cfg.Risk.StopLoss,
		TakeProfitFraction:   cfg.Risk.TakeProfit,
		TrailingStopFraction: cfg.Risk.TrailingStop,
		InitialCapital:       cfg.Risk.InitialCapital,
	}, log)
	bt := engine.New(engine.Config{
		Symbol:      cfg.Symbol,
		Interval:    cfg.Interval,
		CandleLimit: cfg.CandleLimit,
		DepthLimit:  cfg.DepthLimit,
	}, buildSweepProvider(cfg, log), detector, sim, log)

	runID := uuid.New()
	var rows []notify.SweepRow
	var records []dbwriter.OptimizerRecord

	evaluate := func(ctx context.Context, p optimizer.Parameters) (report.Summary, error) {
		s, err := bt.EvaluateGridPoint(ctx, p)
		if err != nil {
			return report.Summary{}, err
		}
		rows = append(rows, notify.SweepRow{Parameters: p, Summary: s})
		records = append(records, dbwriter.OptimizerRecord{
			RunID:             runID,
			Time:              time.Now().UTC(),
			Symbol:            cfg.Symbol,
			ThresholdPositive: p.ThresholdPositive,
			ThresholdNegative: p.ThresholdNegative,
			HoldBars:          p.HoldBars,
			SharpeRatio:       s.SharpeRatio,
			TotalTrades:       s.TotalTrades,
			FinalCapital:      decimal.NewFromFloat(s.FinalCapital),
		})
		return s, nil
	}

	grid := optimizer.Grid{
		PositiveThresholds: cfg.Optimizer.PositiveThresholds,
		NegativeThresholds: cfg.Optimizer.NegativeThresholds,
		HoldBars:           cfg.Optimizer.HoldBars,
	}
	best, runErr := optimizer.New(grid, log).Run(ctx, cfg.Symbol, evaluate)
	if runErr != nil && best.Evaluated == 0 {
		return runErr
	}
	if runErr != nil {
		log.Warn("sweep aborted early, reporting partial results",
			zap.Error(runErr),
			zap.Int("evaluated", best.Evaluated),
		)
	}

	markBest(records, best.Parameters)
	persistResults(writer, records, log)
	notify.NewConsole().PrintSweep(best, rows)
	return runErr
}

// buildWriter returns the optimizer result sink and, when persistence is
// enabled, a repository over the same pool. The schema is migrated first.
func buildWriter(ctx context.Context, cfg *config.Config, log *zap.Logger) (dbwriter.Writer, datastore.Repository, error) {
	if !cfg.Database.Enabled {
		return dbwriter.NewNoopWriter(log), nil, nil
	}

	dsn := cfg.Database.DSN()
	if cfg.Database.MigrationsDir != "" {
		if err := dbwriter.RunMigrations(dsn, cfg.Database.MigrationsDir, log); err != nil {
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	writer, err := dbwriter.NewTimescaleWriter(pool, dbwriter.Config{
		BatchSize:     cfg.Database.BatchSize,
		FlushInterval: cfg.Database.FlushInterval.Std(),
	}, log)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("initializing database writer: %w", err)
	}
	return writer, datastore.NewTimescaleRepository(pool), nil
}

// logPreviousBest surfaces the stored winner from earlier sweeps.
func logPreviousBest(ctx context.Context, repo datastore.Repository, symbol string, log *zap.Logger) {
	prev, err := repo.FetchBestOptimizerResult(ctx, symbol)
	if errors.Is(err, datastore.ErrNotFound) {
		return
	}
	if err != nil {
		log.Warn("could not read previous best result", zap.Error(err))
		return
	}
	log.Info("previous best on record",
		zap.Float64("threshold_positive", prev.ThresholdPositive),
		zap.Float64("threshold_negative", prev.ThresholdNegative),
		zap.Int("hold_bars", prev.HoldBars),
		zap.Float64("sharpe_ratio", prev.SharpeRatio),
		zap.Time("recorded_at", prev.Time),
	)
}

// buildSweepProvider freezes one market snapshot for the whole sweep.
func buildSweepProvider(cfg *config.Config, log *zap.Logger) engine.DataProvider {
	if cfg.Data.Source == "file" {
		return engine.NewCachedProvider(datastore.NewFileProvider(cfg.Data.CandlesCSV, cfg.Data.DepthJSON, log))
	}
	return engine.NewCachedProvider(binance.NewClient(cfg.Exchange.BaseURL, log))
}

// markBest flags the record matching the winning combination. Grid points
// are unique, so at most one record matches.
func markBest(records []dbwriter.OptimizerRecord, best optimizer.Parameters) {
	for i := range records {
		if records[i].ThresholdPositive == best.ThresholdPositive &&
			records[i].ThresholdNegative == best.ThresholdNegative &&
			records[i].HoldBars == best.HoldBars {
			records[i].IsBest = true
			return
		}
	}
}

// persistResults writes every evaluated point on a fresh timeout rather
// than the sweep context; an aborted sweep keeps its partial results.
func persistResults(writer dbwriter.Writer, records []dbwriter.OptimizerRecord, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for _, rec := range records {
		if err := writer.SaveOptimizerResult(ctx, rec); err != nil {
			log.Error("failed to persist optimizer result", zap.Error(err))
			return
		}
	}
}
