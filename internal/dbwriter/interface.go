package dbwriter

import (
	"context"
)

// Writer defines the interface for persisting backtest results. This
// allows for mocking in tests and for running without a database.
//
// SaveTrade and SaveBenchmarkValue buffer and report failures through
// the log only. The summary and optimizer saves are synchronous and
// return errors.
type Writer interface {
	SaveTrade(trade TradeRecord)
	SaveBenchmarkValue(value BenchmarkValue)
	SaveSummary(ctx context.Context, summary SummaryRecord) error
	SaveOptimizerResult(ctx context.Context, result OptimizerRecord) error
	Close()
}
