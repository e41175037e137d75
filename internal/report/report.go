// Package report computes performance statistics from accumulated trade
// outcomes.
package report

import (
	"math"

	"github.com/your-org/obi-backtest/internal/simulator"
)

// Summary holds the performance statistics of one backtest run.
//
// WinRate is profit-weighted, total profit over total profit plus total
// loss magnitude, not a count-based percentage. The Sharpe ratio divides
// the mean trade return by the population standard deviation of the
// returns accumulated within the run; it is not annualized.
type Summary struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalProfit   float64 `json:"total_profit"`
	TotalLoss     float64 `json:"total_loss"`
	// AvgTradeDuration is in minutes.
	AvgTradeDuration float64 `json:"avg_trade_duration"`
	AvgTradeReturn   float64 `json:"avg_trade_return"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	ProfitFactor     float64 `json:"profit_factor"`
	AvgWinningTrade  float64 `json:"avg_winning_trade"`
	AvgLosingTrade   float64 `json:"avg_losing_trade"`
	InitialCapital   float64 `json:"initial_capital"`
	FinalCapital     float64 `json:"final_capital"`
}

// Compute derives the summary from the accumulated statistics. It never
// mutates stats and returns the same summary for the same state; every
// statistic is recomputed from scratch on each call. A run with zero
// trades yields all-zero statistics.
func Compute(stats *simulator.RunningStats) Summary {
	s := Summary{
		TotalTrades:   stats.TotalTrades,
		WinningTrades: stats.WinningTrades,
		LosingTrades:  stats.LosingTrades,
		TotalProfit:   stats.TotalProfit,
		TotalLoss:     stats.TotalLoss,
	}

	if denom := stats.TotalProfit + stats.TotalLoss; denom > 0 {
		s.WinRate = stats.TotalProfit / denom
	}

	s.AvgTradeDuration = mean(stats.Durations)
	s.AvgTradeReturn = mean(stats.Returns)
	s.SharpeRatio = sharpeRatio(stats.Returns)
	s.MaxDrawdown = maxDrawdown(stats.Returns)

	// A run without losing trades reports a zero profit factor rather
	// than an infinite one.
	if sumLosses := sum(stats.Losses); sumLosses != 0 {
		s.ProfitFactor = sum(stats.Profits) / math.Abs(sumLosses)
	}

	s.AvgWinningTrade = mean(stats.Profits)
	s.AvgLosingTrade = mean(stats.Losses)

	if len(stats.Capital) > 0 {
		s.InitialCapital = stats.Capital[0]
		s.FinalCapital = stats.Capital[len(stats.Capital)-1]
	}

	return s
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	return sum(values) / float64(len(values))
}

// populationStdDev computes the standard deviation with the population
// divisor n, not the sample divisor n-1.
func populationStdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	variance := 0.0
	for _, v := range values {
		variance += math.Pow(v-mean, 2)
	}
	return math.Sqrt(variance / float64(len(values)))
}

func sharpeRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	m := mean(returns)
	stdDev := populationStdDev(returns, m)
	if stdDev == 0 {
		return 0.0
	}
	return m / stdDev
}

// maxDrawdown walks the cumulative trade-return trajectory and reports
// the largest fractional decline from the running peak. Points where the
// running peak is zero contribute nothing.
func maxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	maxDD := 0.0
	cum := 0.0
	runningMax := math.Inf(-1)
	for _, r := range returns {
		cum += r
		if cum > runningMax {
			runningMax = cum
		}
		if runningMax == 0 {
			continue
		}
		if dd := 1 - cum/runningMax; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
