package dbwriter

import (
	"context"

	"go.uber.org/zap"
)

// noopWriter is used when persistence is disabled or no database is
// reachable.
type noopWriter struct {
	logger *zap.Logger
}

// NewNoopWriter creates a writer that discards everything.
func NewNoopWriter(logger *zap.Logger) Writer {
	logger.Info("database persistence disabled, results will not be stored")
	return &noopWriter{logger: logger}
}

func (n *noopWriter) SaveTrade(TradeRecord) {}

func (n *noopWriter) SaveBenchmarkValue(BenchmarkValue) {}

func (n *noopWriter) SaveSummary(_ context.Context, summary SummaryRecord) error {
	n.logger.Debug("discarding run summary", zap.String("run_id", summary.RunID.String()))
	return nil
}

func (n *noopWriter) SaveOptimizerResult(_ context.Context, result OptimizerRecord) error {
	n.logger.Debug("discarding optimizer result", zap.String("run_id", result.RunID.String()))
	return nil
}

func (n *noopWriter) Close() {}
