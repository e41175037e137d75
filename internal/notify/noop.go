package notify

import (
	"github.com/your-org/obi-backtest/internal/optimizer"
	"github.com/your-org/obi-backtest/internal/report"
	"github.com/your-org/obi-backtest/internal/simulator"
)

// NoOp is a reporter that prints nothing. It is used when console
// reporting is disabled.
type NoOp struct{}

// NewNoOp creates a new NoOp reporter.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// PrintSummary does nothing.
func (n *NoOp) PrintSummary(symbol string, s report.Summary) {}

// PrintTrades does nothing.
func (n *NoOp) PrintTrades(symbol string, trades []simulator.Outcome) {}

// PrintSweep does nothing.
func (n *NoOp) PrintSweep(best optimizer.BestParameters, rows []SweepRow) {}
