package optimizer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/obi-backtest/internal/report"
)

func testGrid() Grid {
	return Grid{
		PositiveThresholds: []float64{10, 20},
		NegativeThresholds: []float64{-30, -40},
		HoldBars:           []int{1, 2},
	}
}

func TestGridValidate(t *testing.T) {
	tests := []struct {
		name    string
		grid    Grid
		wantErr bool
	}{
		{"complete grid", testGrid(), false},
		{"empty positive list", Grid{NegativeThresholds: []float64{-1}, HoldBars: []int{1}}, true},
		{"empty negative list", Grid{PositiveThresholds: []float64{1}, HoldBars: []int{1}}, true},
		{"empty hold bars list", Grid{PositiveThresholds: []float64{1}, NegativeThresholds: []float64{-1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.grid.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunEnumeratesLexicographically(t *testing.T) {
	opt := New(testGrid(), zap.NewNop())

	var seen []Parameters
	best, err := opt.Run(context.Background(), "BTCUSDT", func(_ context.Context, p Parameters) (report.Summary, error) {
		seen = append(seen, p)
		return report.Summary{}, nil
	})
	require.NoError(t, err)

	want := []Parameters{
		{10, -30, 1}, {10, -30, 2}, {10, -40, 1}, {10, -40, 2},
		{20, -30, 1}, {20, -30, 2}, {20, -40, 1}, {20, -40, 2},
	}
	assert.Equal(t, want, seen)
	assert.Equal(t, testGrid().Size(), best.Evaluated)
	assert.Equal(t, "BTCUSDT", best.Symbol)
}

func TestRunKeepsFirstOfTiedSharpe(t *testing.T) {
	grid := Grid{
		PositiveThresholds: []float64{1, 2, 3, 4},
		NegativeThresholds: []float64{-1},
		HoldBars:           []int{1},
	}
	opt := New(grid, zap.NewNop())

	sharpes := map[float64]float64{1: 1.0, 2: 2.0, 3: 2.0, 4: 1.5}
	best, err := opt.Run(context.Background(), "BTCUSDT", func(_ context.Context, p Parameters) (report.Summary, error) {
		return report.Summary{SharpeRatio: sharpes[p.ThresholdPositive]}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2.0, best.Parameters.ThresholdPositive,
		"a later equal Sharpe must not displace the first one")
	assert.Equal(t, 2.0, best.SharpeRatio)
}

// When nothing beats the first grid point its parameters remain the
// answer, even if every Sharpe ratio is zero.
func TestRunFallsBackToFirstCombination(t *testing.T) {
	opt := New(testGrid(), zap.NewNop())

	best, err := opt.Run(context.Background(), "BTCUSDT", func(_ context.Context, p Parameters) (report.Summary, error) {
		return report.Summary{SharpeRatio: 0}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, Parameters{ThresholdPositive: 10, ThresholdNegative: -30, HoldBars: 1}, best.Parameters)
	assert.Equal(t, 8, best.Evaluated, "no pruning: every combination is evaluated")
}

func TestRunStopsOnCancellation(t *testing.T) {
	opt := New(testGrid(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	best, err := opt.Run(ctx, "BTCUSDT", func(_ context.Context, p Parameters) (report.Summary, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return report.Summary{SharpeRatio: float64(calls)}, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls, "cancellation takes effect before the next grid point")
	assert.Equal(t, 2, best.Evaluated)
	assert.Equal(t, 2.0, best.SharpeRatio, "the best seen so far is still reported")
}

func TestRunAbortsOnEvaluationError(t *testing.T) {
	opt := New(testGrid(), zap.NewNop())

	boom := errors.New("fetch failed")
	calls := 0
	_, err := opt.Run(context.Background(), "BTCUSDT", func(_ context.Context, p Parameters) (report.Summary, error) {
		calls++
		if calls == 3 {
			return report.Summary{}, boom
		}
		return report.Summary{}, nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRunRejectsInvalidGrid(t *testing.T) {
	opt := New(Grid{}, zap.NewNop())

	_, err := opt.Run(context.Background(), "BTCUSDT", func(_ context.Context, p Parameters) (report.Summary, error) {
		t.Fatal("evaluate must not be called for an invalid grid")
		return report.Summary{}, nil
	})
	assert.Error(t, err)
}
