// Package benchmark tracks a buy-and-hold reference series alongside the
// strategy, so runs can be judged against simply holding the asset.
package benchmark

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/obi-backtest/internal/dbwriter"
)

// Service records benchmark prices and derives the hold return per symbol.
// The writer may be nil, in which case prices are only tracked in memory.
type Service struct {
	logger *zap.Logger
	writer dbwriter.Writer

	mu    sync.Mutex
	first map[string]float64
	last  map[string]float64
}

// NewService creates a benchmark tracker.
func NewService(logger *zap.Logger, writer dbwriter.Writer) *Service {
	return &Service{
		logger: logger,
		writer: writer,
		first:  make(map[string]float64),
		last:   make(map[string]float64),
	}
}

// Tick records the current reference price for a symbol. Non-positive
// prices are dropped.
func (s *Service) Tick(ctx context.Context, symbol string, price float64, at time.Time) {
	if price <= 0 {
		s.logger.Warn("dropping non-positive benchmark price",
			zap.String("symbol", symbol),
			zap.Float64("price", price),
		)
		return
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	s.mu.Lock()
	if _, ok := s.first[symbol]; !ok {
		s.first[symbol] = price
	}
	s.last[symbol] = price
	s.mu.Unlock()

	if s.writer != nil {
		s.writer.SaveBenchmarkValue(dbwriter.BenchmarkValue{
			Time:   at,
			Symbol: symbol,
			Price:  price,
		})
	}
}

// HoldReturn reports the fractional buy-and-hold return since the first
// recorded tick. The second return is false before any tick.
func (s *Service) HoldReturn(symbol string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	first, ok := s.first[symbol]
	if !ok || first == 0 {
		return 0, false
	}
	return s.last[symbol]/first - 1, true
}
