// Package optimizer sweeps a grid of strategy parameters and keeps the
// combination with the highest Sharpe ratio.
package optimizer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/your-org/obi-backtest/internal/report"
)

// Parameters is one point of the search grid.
type Parameters struct {
	ThresholdPositive float64
	ThresholdNegative float64
	HoldBars          int
}

// Grid holds the three candidate lists. The sweep walks their Cartesian
// product in lexicographic order: positive threshold outermost, hold bars
// innermost.
type Grid struct {
	PositiveThresholds []float64
	NegativeThresholds []float64
	HoldBars           []int
}

// Size returns the number of grid points.
func (g Grid) Size() int {
	return len(g.PositiveThresholds) * len(g.NegativeThresholds) * len(g.HoldBars)
}

// Validate checks that every candidate list is non-empty. There is no
// cross-validation between the lists.
func (g Grid) Validate() error {
	if len(g.PositiveThresholds) == 0 {
		return errors.New("optimizer grid: positive threshold list is empty")
	}
	if len(g.NegativeThresholds) == 0 {
		return errors.New("optimizer grid: negative threshold list is empty")
	}
	if len(g.HoldBars) == 0 {
		return errors.New("optimizer grid: hold bars list is empty")
	}
	return nil
}

// BestParameters is the sweep outcome: the earliest combination achieving
// the highest observed Sharpe ratio, along with the summary it produced.
type BestParameters struct {
	Symbol      string
	Parameters  Parameters
	SharpeRatio float64
	Summary     report.Summary
	Evaluated   int
}

// EvaluateFunc runs one full backtest pass with the given parameters and
// returns the resulting summary. Implementations must evaluate each call
// on fresh simulator state: grid points share nothing.
type EvaluateFunc func(ctx context.Context, p Parameters) (report.Summary, error)

// Optimizer enumerates the grid sequentially. Every point is evaluated;
// there is no pruning or early termination beyond context cancellation,
// which is honored between grid points.
type Optimizer struct {
	grid   Grid
	logger *zap.Logger
}

// New creates an Optimizer over the given grid.
func New(grid Grid, logger *zap.Logger) *Optimizer {
	return &Optimizer{grid: grid, logger: logger}
}

// Run sweeps the grid. The best result starts at the first combination
// and is replaced only by a strictly higher Sharpe ratio, so ties keep
// the earliest combination in iteration order. An evaluation error aborts
// the sweep and is returned to the caller together with the best result
// found so far.
func (o *Optimizer) Run(ctx context.Context, symbol string, evaluate EvaluateFunc) (BestParameters, error) {
	if err := o.grid.Validate(); err != nil {
		return BestParameters{}, err
	}

	best := BestParameters{Symbol: symbol}
	first := true

	for _, tp := range o.grid.PositiveThresholds {
		for _, tn := range o.grid.NegativeThresholds {
			for _, hold := range o.grid.HoldBars {
				select {
				case <-ctx.Done():
					return best, ctx.Err()
				default:
				}

				p := Parameters{ThresholdPositive: tp, ThresholdNegative: tn, HoldBars: hold}
				summary, err := evaluate(ctx, p)
				if err != nil {
					return best, fmt.Errorf("evaluating %+v: %w", p, err)
				}
				best.Evaluated++

				o.logger.Debug("grid point evaluated",
					zap.Float64("threshold_positive", tp),
					zap.Float64("threshold_negative", tn),
					zap.Int("hold_bars", hold),
					zap.Float64("sharpe_ratio", summary.SharpeRatio),
					zap.Int("total_trades", summary.TotalTrades))

				if first || summary.SharpeRatio > best.SharpeRatio {
					best.Parameters = p
					best.SharpeRatio = summary.SharpeRatio
					best.Summary = summary
					first = false
				}
			}
		}
	}

	o.logger.Info("grid sweep finished",
		zap.String("symbol", symbol),
		zap.Int("evaluated", best.Evaluated),
		zap.Float64("best_sharpe", best.SharpeRatio),
		zap.Float64("best_threshold_positive", best.Parameters.ThresholdPositive),
		zap.Float64("best_threshold_negative", best.Parameters.ThresholdNegative),
		zap.Int("best_hold_bars", best.Parameters.HoldBars))

	return best, nil
}
