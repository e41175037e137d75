package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/your-org/obi-backtest/internal/benchmark"
	"github.com/your-org/obi-backtest/internal/config"
	"github.com/your-org/obi-backtest/internal/csvwriter"
	"github.com/your-org/obi-backtest/internal/datastore"
	"github.com/your-org/obi-backtest/internal/dbwriter"
	"github.com/your-org/obi-backtest/internal/engine"
	"github.com/your-org/obi-backtest/internal/exchange/binance"
	"github.com/your-org/obi-backtest/internal/http/handler"
	"github.com/your-org/obi-backtest/internal/market"
	"github.com/your-org/obi-backtest/internal/notify"
	"github.com/your-org/obi-backtest/internal/report"
	"github.com/your-org/obi-backtest/internal/signal"
	"github.com/your-org/obi-backtest/internal/simulator"
)

type appOptions struct {
	TradeLogPath string
	HTTPAddr     string
	Once         bool
	Quiet        bool
}

// app holds the assembled collaborators of one backtester process.
type app struct {
	cfg    *config.Config
	opts   appOptions
	logger *zap.Logger

	runID    uuid.UUID
	bt       *engine.Backtester
	writer   dbwriter.Writer
	results  *handler.ResultsHandler
	bench    *benchmark.Service
	reporter notify.Reporter
	tradeLog *csvwriter.TradeLog
	srv      *http.Server

	// trades collects every resolved outcome for the closing report. Only
	// the Run goroutine touches it.
	trades []simulator.Outcome

	// replay marks file-backed runs, which step as fast as possible and
	// terminate when the recorded series is exhausted.
	replay bool
}

// newApp wires configuration into running collaborators: data provider,
// persistence, results API, and the backtest engine itself.
func newApp(ctx context.Context, cfg *config.Config, opts appOptions, log *zap.Logger) (*app, error) {
	var reporter notify.Reporter = notify.NewConsole()
	if opts.Quiet {
		reporter = notify.NewNoOp()
	}

	a := &app{
		cfg:      cfg,
		opts:     opts,
		logger:   log,
		runID:    uuid.New(),
		reporter: reporter,
		replay:   cfg.Data.Source == "file",
	}

	// --- TimescaleDB Writer (Optional) ---
	var repo datastore.Repository
	if cfg.Database.Enabled {
		dsn := cfg.Database.DSN()
		if cfg.Database.MigrationsDir != "" {
			if err := dbwriter.RunMigrations(dsn, cfg.Database.MigrationsDir, log); err != nil {
				return nil, fmt.Errorf("running migrations: %w", err)
			}
		}

		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		writer, err := dbwriter.NewTimescaleWriter(pool, dbwriter.Config{
			BatchSize:     cfg.Database.BatchSize,
			FlushInterval: cfg.Database.FlushInterval.Std(),
		}, log)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("initializing database writer: %w", err)
		}
		a.writer = writer
		repo = datastore.NewTimescaleRepository(pool)
		log.Info("database persistence enabled",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Name),
		)

		if cfg.Database.RetentionHours > 0 {
			deleted, err := repo.DeleteOldSummaries(ctx, cfg.Database.RetentionHours)
			if err != nil {
				log.Warn("pruning old summaries failed", zap.Error(err))
			} else if deleted > 0 {
				log.Info("pruned old summaries",
					zap.Int64("deleted", deleted),
					zap.Int("retention_hours", cfg.Database.RetentionHours),
				)
			}
		}
	} else {
		a.writer = dbwriter.NewNoopWriter(log)
		log.Info("database persistence disabled, results stay in memory")
	}

	// --- Market Data Provider ---
	provider, err := a.buildProvider(ctx)
	if err != nil {
		a.writer.Close()
		return nil, err
	}

	// --- Strategy Components ---
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
	a.bt = engine.New(engine.Config{
		Symbol:      cfg.Symbol,
		Interval:    cfg.Interval,
		CandleLimit: cfg.CandleLimit,
		DepthLimit:  cfg.DepthLimit,
	}, provider, detector, sim, log)

	a.bench = benchmark.NewService(log, a.writer)
	a.results = handler.NewResultsHandler(cfg.Symbol, 0, repo, log)

	if opts.TradeLogPath != "" {
		tradeLog, err := csvwriter.NewTradeLog(opts.TradeLogPath, log)
		if err != nil {
			a.writer.Close()
			return nil, fmt.Errorf("opening trade log: %w", err)
		}
		a.tradeLog = tradeLog
	}

	// --- Results API (live mode only) ---
	if !opts.Once && !a.replay {
		a.startServer(opts.HTTPAddr)
	}

	return a, nil
}

// buildProvider selects the market data source. File runs replay a
// recorded series; live runs poll the exchange REST API, optionally with
// a websocket depth stream on top.
func (a *app) buildProvider(ctx context.Context) (engine.DataProvider, error) {
	if a.cfg.Data.Source == "file" {
		candles, fileSymbol, err := datastore.LoadCandlesFromCSV(a.cfg.Data.CandlesCSV)
		if err != nil {
			return nil, fmt.Errorf("loading candle csv: %w", err)
		}
		if fileSymbol != "" && !strings.EqualFold(a.cfg.Symbol, fileSymbol) {
			a.logger.Warn("candle csv symbol differs from configured symbol",
				zap.String("file_symbol", fileSymbol),
				zap.String("configured", a.cfg.Symbol),
			)
		}
		book, err := datastore.LoadOrderBookFromJSON(a.cfg.Data.DepthJSON)
		if err != nil {
			return nil, fmt.Errorf("loading depth snapshot: %w", err)
		}
		a.logger.Info("replaying recorded market data",
			zap.String("candles", a.cfg.Data.CandlesCSV),
			zap.Int("bars", len(candles)),
			zap.String("depth", a.cfg.Data.DepthJSON),
		)
		return datastore.NewReplayProvider(candles, book), nil
	}

	rest := binance.NewClient(a.cfg.Exchange.BaseURL, a.logger)
	if !a.cfg.Exchange.UseStream {
		return rest, nil
	}

	stream := binance.NewBookStream(a.cfg.Exchange.StreamURL, a.cfg.Symbol, a.cfg.DepthLimit, a.logger)
	go func() {
		if err := stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("depth stream stopped", zap.Error(err))
		}
	}()
	return binance.NewStreamProvider(rest, stream), nil
}

func (a *app) startServer(addr string) {
	r := chi.NewRouter()
	r.Get("/health", handler.HealthCheckHandler)
	a.results.RegisterRoutes(r)

	a.srv = &http.Server{Addr: addr, Handler: r}
	go func() {
		a.logger.Info("results API listening", zap.String("addr", addr))
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("results API failed", zap.Error(err))
		}
	}()
}

// Run drives the pass loop until the context is cancelled or, for file
// runs, until the recorded series is exhausted. It always closes out by
// reporting and persisting the accumulated summary.
func (a *app) Run(ctx context.Context) error {
	if a.opts.Once {
		if err := a.pass(ctx); err != nil {
			return err
		}
		return a.finish()
	}

	if a.replay {
		return a.runReplay(ctx)
	}
	return a.runLive(ctx)
}

// runReplay steps passes back to back. The replay provider reports
// ErrNoData once the sliding window passes the end of the series.
func (a *app) runReplay(ctx context.Context) error {
	for {
		err := a.pass(ctx)
		switch {
		case err == nil:
			continue
		case errors.Is(err, context.Canceled):
			a.logger.Info("replay interrupted")
			return a.finish()
		case errors.Is(err, market.ErrNoData):
			a.logger.Info("replay complete")
			return a.finish()
		default:
			// Fixed input files fail the same way every pass. Close out
			// with whatever accumulated.
			if ferr := a.finish(); ferr != nil {
				a.logger.Error("failed to close out run", zap.Error(ferr))
			}
			return err
		}
	}
}

// runLive polls the exchange on the configured interval. Individual pass
// failures are logged and the loop keeps going.
func (a *app) runLive(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.PollInterval.Std())
	defer ticker.Stop()

	for {
		if err := a.pass(ctx); err != nil {
			switch {
			case errors.Is(err, context.Canceled):
				return a.finish()
			case errors.Is(err, market.ErrNoData):
				a.logger.Warn("no market data this pass", zap.Error(err))
			default:
				a.logger.Error("pass failed", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return a.finish()
		case <-ticker.C:
		}
	}
}

// pass runs one engine pass and fans the result out to the results API,
// the benchmark tracker, and the persistence layer.
func (a *app) pass(ctx context.Context) error {
	result, err := a.bt.RunOnce(ctx)
	if err != nil {
		return err
	}

	a.results.Record(result.Summary)
	a.bench.Tick(ctx, a.cfg.Symbol, result.LastPrice, result.LastTime)

	if result.Outcome != nil {
		a.trades = append(a.trades, *result.Outcome)
		a.writer.SaveTrade(dbwriter.NewTradeRecord(a.cfg.Symbol, *result.Outcome))
		if a.tradeLog != nil {
			if err := a.tradeLog.Write(a.cfg.Symbol, *result.Outcome); err != nil {
				a.logger.Warn("trade log write failed", zap.Error(err))
			}
		}
	}
	return nil
}

// finish prints the accumulated summary, compares it against buy-and-hold,
// and persists the run. The final write runs on its own timeout, not the
// loop context.
func (a *app) finish() error {
	summary := report.Compute(a.bt.Simulator().Stats())
	a.reporter.PrintTrades(a.cfg.Symbol, a.trades)
	a.reporter.PrintSummary(a.cfg.Symbol, summary)

	if hold, ok := a.bench.HoldReturn(a.cfg.Symbol); ok && summary.InitialCapital > 0 {
		strategyReturn := summary.FinalCapital/summary.InitialCapital - 1
		a.logger.Info("strategy vs buy-and-hold",
			zap.Float64("strategy_return", strategyReturn),
			zap.Float64("hold_return", hold),
			zap.Float64("alpha", strategyReturn-hold),
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	record := dbwriter.NewSummaryRecord(a.runID, a.cfg.Symbol, time.Now().UTC(), summary)
	if err := a.writer.SaveSummary(ctx, record); err != nil {
		return fmt.Errorf("saving summary: %w", err)
	}
	return nil
}

// Close releases everything newApp opened. The writer flushes pending
// batches and closes the shared connection pool.
func (a *app) Close() {
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(ctx); err != nil {
			a.logger.Warn("results API shutdown failed", zap.Error(err))
		}
	}
	if a.tradeLog != nil {
		if err := a.tradeLog.Close(); err != nil {
			a.logger.Warn("trade log close failed", zap.Error(err))
		}
	}
	a.writer.Close()
}
