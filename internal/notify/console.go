// Package notify renders run results for humans. The console reporter
// prints summary and sweep tables; the no-op reporter is used when the
// output should stay machine-readable.
package notify

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/your-org/obi-backtest/internal/optimizer"
	"github.com/your-org/obi-backtest/internal/report"
	"github.com/your-org/obi-backtest/internal/simulator"
)

// SweepRow is one evaluated grid point collected during a sweep.
type SweepRow struct {
	Parameters optimizer.Parameters
	Summary    report.Summary
}

// Reporter is the interface for presenting run results.
type Reporter interface {
	PrintSummary(symbol string, s report.Summary)
	PrintTrades(symbol string, trades []simulator.Outcome)
	PrintSweep(best optimizer.BestParameters, rows []SweepRow)
}

// Console implements Reporter on an io.Writer.
type Console struct {
	out io.Writer
}

// NewConsole creates a reporter that writes to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a reporter for tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// PrintSummary prints the performance statistics of one run.
func (c *Console) PrintSummary(symbol string, s report.Summary) {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] %s backtest summary — %d trades\n", now, symbol, s.TotalTrades)

	if s.TotalTrades == 0 {
		fmt.Fprintln(c.out, "  no trades were executed")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")

	table.Append("Total trades", fmt.Sprintf("%d", s.TotalTrades))
	table.Append("Winning / losing", fmt.Sprintf("%d / %d", s.WinningTrades, s.LosingTrades))
	table.Append("Win rate", fmt.Sprintf("%.1f%%", s.WinRate*100))
	table.Append("Total profit", fmt.Sprintf("%.2f", s.TotalProfit))
	table.Append("Total loss", fmt.Sprintf("%.2f", s.TotalLoss))
	table.Append("Profit factor", fmt.Sprintf("%.2f", s.ProfitFactor))
	table.Append("Avg trade return", fmt.Sprintf("%.4f", s.AvgTradeReturn))
	table.Append("Avg winning trade", fmt.Sprintf("%.4f", s.AvgWinningTrade))
	table.Append("Avg losing trade", fmt.Sprintf("%.4f", s.AvgLosingTrade))
	table.Append("Avg duration (min)", fmt.Sprintf("%.1f", s.AvgTradeDuration))
	table.Append("Sharpe ratio", fmt.Sprintf("%.4f", s.SharpeRatio))
	table.Append("Max drawdown", fmt.Sprintf("%.2f%%", s.MaxDrawdown*100))
	table.Append("Initial capital", fmt.Sprintf("%.2f", s.InitialCapital))
	table.Append("Final capital", fmt.Sprintf("%.2f", s.FinalCapital))

	table.Render()

	if s.InitialCapital > 0 {
		ret := (s.FinalCapital/s.InitialCapital - 1) * 100
		fmt.Fprintf(c.out, "  Return on capital: %+.2f%%\n", ret)
	}
}

// PrintTrades prints one row per resolved trade.
func (c *Console) PrintTrades(symbol string, trades []simulator.Outcome) {
	if len(trades) == 0 {
		return
	}

	fmt.Fprintf(c.out, "\n%s trades\n", symbol)

	table := tablewriter.NewWriter(c.out)
	table.Header("Entry", "Exit", "Side", "Entry Px", "Exit Px", "Realized", "Result", "Min")

	for _, o := range trades {
		result := "LOSS"
		if o.Win {
			result = "WIN"
		}
		if o.Clamped {
			result += "*"
		}
		table.Append(
			formatTradeTime(o.Position.EntryTime),
			formatTradeTime(o.Position.ExitTime),
			o.Position.Side.String(),
			fmt.Sprintf("%.4f", o.Position.EntryPrice),
			fmt.Sprintf("%.4f", o.Position.ExitPrice),
			fmt.Sprintf("%+.4f", o.RealizedProfit),
			result,
			fmt.Sprintf("%.1f", o.DurationMin),
		)
	}

	table.Render()
	fmt.Fprintln(c.out, "  * realized profit clamped by the stop or take threshold")
}

func formatTradeTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("01-02 15:04")
}

// PrintSweep prints every evaluated grid point and the winning combination.
func (c *Console) PrintSweep(best optimizer.BestParameters, rows []SweepRow) {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] %s grid sweep — %d points evaluated\n", now, best.Symbol, best.Evaluated)

	if len(rows) == 0 {
		fmt.Fprintln(c.out, "  no grid points were evaluated")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Thr+", "Thr-", "Hold", "Trades", "Win Rate", "Sharpe", "Final", "Best")

	for _, row := range rows {
		marker := ""
		if row.Parameters == best.Parameters {
			marker = "*"
		}
		table.Append(
			fmt.Sprintf("%.2f", row.Parameters.ThresholdPositive),
			fmt.Sprintf("%.2f", row.Parameters.ThresholdNegative),
			fmt.Sprintf("%d", row.Parameters.HoldBars),
			fmt.Sprintf("%d", row.Summary.TotalTrades),
			fmt.Sprintf("%.1f%%", row.Summary.WinRate*100),
			fmt.Sprintf("%.4f", row.Summary.SharpeRatio),
			fmt.Sprintf("%.2f", row.Summary.FinalCapital),
			marker,
		)
	}

	table.Render()

	fmt.Fprintf(c.out, "  Best: thr+=%.2f thr-=%.2f hold=%d (Sharpe %.4f)\n",
		best.Parameters.ThresholdPositive,
		best.Parameters.ThresholdNegative,
		best.Parameters.HoldBars,
		best.SharpeRatio,
	)
}
