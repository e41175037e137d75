package dbwriter

import (
	"context"
	"sync"
)

// InMemWriter is an in-memory implementation of the Writer interface
// for testing.
type InMemWriter struct {
	mu               sync.RWMutex
	Trades           []TradeRecord
	BenchmarkValues  []BenchmarkValue
	Summaries        []SummaryRecord
	OptimizerResults []OptimizerRecord
	IsClosed         bool
}

// NewInMemWriter creates a new InMemWriter.
func NewInMemWriter() *InMemWriter {
	return &InMemWriter{}
}

// SaveTrade appends a trade record to the in-memory slice.
func (w *InMemWriter) SaveTrade(trade TradeRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Trades = append(w.Trades, trade)
}

// SaveBenchmarkValue appends a benchmark point to the in-memory slice.
func (w *InMemWriter) SaveBenchmarkValue(value BenchmarkValue) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.BenchmarkValues = append(w.BenchmarkValues, value)
}

// SaveSummary appends a run summary to the in-memory slice.
func (w *InMemWriter) SaveSummary(_ context.Context, summary SummaryRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Summaries = append(w.Summaries, summary)
	return nil
}

// SaveOptimizerResult appends a grid evaluation to the in-memory slice.
func (w *InMemWriter) SaveOptimizerResult(_ context.Context, result OptimizerRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.OptimizerResults = append(w.OptimizerResults, result)
	return nil
}

// Close marks the writer as closed.
func (w *InMemWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.IsClosed = true
}

// Clear resets all the in-memory slices.
func (w *InMemWriter) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Trades = nil
	w.BenchmarkValues = nil
	w.Summaries = nil
	w.OptimizerResults = nil
	w.IsClosed = false
}
