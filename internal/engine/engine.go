// Package engine wires one strategy pass end to end: market data in,
// depth metrics and signal evaluation, simulated fill, summary out.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/obi-backtest/internal/indicator"
	"github.com/your-org/obi-backtest/internal/market"
	"github.com/your-org/obi-backtest/internal/optimizer"
	"github.com/your-org/obi-backtest/internal/report"
	"github.com/your-org/obi-backtest/internal/signal"
	"github.com/your-org/obi-backtest/internal/simulator"
)

// DataProvider supplies the market snapshot for one pass. Implementations
// report market.ErrNoData when the venue has nothing usable, which the
// backtester passes through without touching accumulated results.
type DataProvider interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)
	FetchOrderBook(ctx context.Context, symbol string, depth int) (market.OrderBook, error)
}

// Config carries the market parameters of a pass.
type Config struct {
	Symbol      string
	Interval    string
	CandleLimit int
	DepthLimit  int
}

// Result is the outcome of a single pass. Outcome is nil when no
// directional signal survived confirmation. LastPrice and LastTime carry
// the close and timestamp of the latest candle, the pass's reference
// point for benchmark tracking.
type Result struct {
	Metrics   indicator.DepthMetrics
	Signal    signal.Signal
	Outcome   *simulator.Outcome
	Summary   report.Summary
	LastPrice float64
	LastTime  time.Time
}

// Backtester evaluates the strategy against provider snapshots. The
// simulator it holds accumulates across passes until Reset.
type Backtester struct {
	cfg      Config
	provider DataProvider
	detector *signal.Detector
	sim      *simulator.Simulator
	logger   *zap.Logger
}

// New assembles a backtester from its collaborators.
func New(cfg Config, provider DataProvider, detector *signal.Detector, sim *simulator.Simulator, logger *zap.Logger) *Backtester {
	return &Backtester{
		cfg:      cfg,
		provider: provider,
		detector: detector,
		sim:      sim,
		logger:   logger,
	}
}

// Simulator exposes the accumulating simulator, for callers that persist
// or reset its state between runs.
func (b *Backtester) Simulator() *simulator.Simulator {
	return b.sim
}

// RunOnce performs one full pass: fetch candles and book, compute depth
// metrics, detect and confirm a signal, and, if the signal is
// directional, open and resolve a simulated position. Data errors are
// returned before any simulator state changes; a failed pass leaves
// accumulated results exactly as they were.
func (b *Backtester) RunOnce(ctx context.Context) (Result, error) {
	candles, err := b.provider.FetchCandles(ctx, b.cfg.Symbol, b.cfg.Interval, b.cfg.CandleLimit)
	if err != nil {
		return Result{}, fmt.Errorf("fetching candles: %w", err)
	}
	if len(candles) == 0 {
		return Result{}, fmt.Errorf("%w: provider returned no candles for %s", market.ErrNoData, b.cfg.Symbol)
	}

	book, err := b.provider.FetchOrderBook(ctx, b.cfg.Symbol, b.cfg.DepthLimit)
	if err != nil {
		return Result{}, fmt.Errorf("fetching order book: %w", err)
	}

	metrics, err := indicator.ComputeDepthMetrics(book)
	if err != nil {
		return Result{}, fmt.Errorf("computing depth metrics: %w", err)
	}

	// Sides are non-empty once ComputeDepthMetrics succeeds.
	bestBid, _ := book.BestBid()
	bestAsk, _ := book.BestAsk()
	micro := indicator.CalculateMicroPrice(bestBid.Price, bestAsk.Price, bestBid.Size, bestAsk.Size)

	latest := candles[len(candles)-1]
	sig := b.detector.Detect(metrics.Imbalance, latest.Close, latest.Timestamp)
	sig = b.detector.Confirm(sig, candles)

	result := Result{Metrics: metrics, Signal: sig, LastPrice: latest.Close, LastTime: latest.Timestamp}
	if !sig.Type.Directional() {
		b.logger.Debug("pass closed without a trade",
			zap.String("symbol", b.cfg.Symbol),
			zap.String("signal", sig.Type.String()),
			zap.Float64("imbalance", metrics.Imbalance),
			zap.Float64("micro_price", micro),
		)
		result.Summary = report.Compute(b.sim.Stats())
		return result, nil
	}

	side := simulator.SideLong
	if sig.Type == signal.TypeShort {
		side = simulator.SideShort
	}

	outcome, err := b.sim.OpenAndResolve(side, book, candles[0].Timestamp, latest.Close, latest.Timestamp)
	if err != nil {
		return Result{}, fmt.Errorf("resolving position: %w", err)
	}

	b.logger.Info("pass resolved a trade",
		zap.String("symbol", b.cfg.Symbol),
		zap.String("signal", sig.Type.String()),
		zap.String("side", side.String()),
		zap.Float64("micro_price", micro),
		zap.Float64("entry_price", outcome.Position.EntryPrice),
		zap.Float64("exit_price", outcome.Position.ExitPrice),
		zap.Float64("realized_profit", outcome.RealizedProfit),
		zap.Bool("clamped", outcome.Clamped),
	)

	result.Outcome = &outcome
	result.Summary = report.Compute(b.sim.Stats())
	return result, nil
}

// EvaluateGridPoint scores one parameter combination for the optimizer.
// It reconfigures the detector and resets the simulator before running a
// single pass; every combination starts from identical state.
func (b *Backtester) EvaluateGridPoint(ctx context.Context, p optimizer.Parameters) (report.Summary, error) {
	b.detector.Reconfigure(signal.Config{
		ThresholdPositive: p.ThresholdPositive,
		ThresholdNegative: p.ThresholdNegative,
		HoldBars:          p.HoldBars,
	})
	b.sim.Reset()

	result, err := b.RunOnce(ctx)
	if err != nil {
		return report.Summary{}, err
	}
	return result.Summary, nil
}
