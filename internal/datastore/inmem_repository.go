package datastore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/obi-backtest/internal/dbwriter"
)

var hundred = decimal.NewFromInt(100)

// InMemRepository is an in-memory implementation of Repository for testing.
type InMemRepository struct {
	mu               sync.RWMutex
	summaries        []dbwriter.SummaryRecord
	optimizerResults []dbwriter.OptimizerRecord
	benchmarkValues  []dbwriter.BenchmarkValue
}

// NewInMemRepository creates a new InMemRepository.
func NewInMemRepository() *InMemRepository {
	return &InMemRepository{}
}

// SeedSummaries allows adding run summaries for test setup.
func (r *InMemRepository) SeedSummaries(summaries []dbwriter.SummaryRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, summaries...)
	sort.Slice(r.summaries, func(i, j int) bool {
		return r.summaries[i].Time.After(r.summaries[j].Time) // most recent first
	})
}

// SeedOptimizerResults allows adding sweep results for test setup.
func (r *InMemRepository) SeedOptimizerResults(results []dbwriter.OptimizerRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.optimizerResults = append(r.optimizerResults, results...)
	sort.Slice(r.optimizerResults, func(i, j int) bool {
		return r.optimizerResults[i].Time.After(r.optimizerResults[j].Time)
	})
}

// SeedBenchmarkValues allows adding benchmark prices for test setup.
func (r *InMemRepository) SeedBenchmarkValues(values []dbwriter.BenchmarkValue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.benchmarkValues = append(r.benchmarkValues, values...)
	sort.Slice(r.benchmarkValues, func(i, j int) bool {
		return r.benchmarkValues[i].Time.Before(r.benchmarkValues[j].Time)
	})
}

// FetchSummaries returns the most recent run summaries for a symbol, newest first.
func (r *InMemRepository) FetchSummaries(ctx context.Context, symbol string, limit int) ([]dbwriter.SummaryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []dbwriter.SummaryRecord
	for _, s := range r.summaries {
		if s.Symbol != symbol {
			continue
		}
		result = append(result, s)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// FetchLatestSummary returns the most recent run summary for a symbol.
func (r *InMemRepository) FetchLatestSummary(ctx context.Context, symbol string) (*dbwriter.SummaryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.summaries {
		if s.Symbol == symbol {
			found := s
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// FetchBestOptimizerResult returns the most recent result flagged as best.
func (r *InMemRepository) FetchBestOptimizerResult(ctx context.Context, symbol string) (*dbwriter.OptimizerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.optimizerResults {
		if rec.Symbol == symbol && rec.IsBest {
			found := rec
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// FetchPerformanceVsBenchmark computes the alpha view from the seeded data,
// mirroring the v_performance_vs_benchmark definition.
func (r *InMemRepository) FetchPerformanceVsBenchmark(ctx context.Context, symbol string, limit int) ([]PerformanceRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	basePrice := 0.0
	for _, bv := range r.benchmarkValues {
		if bv.Symbol == symbol {
			basePrice = bv.Price
			break
		}
	}

	var result []PerformanceRow
	for _, s := range r.summaries {
		if s.Symbol != symbol {
			continue
		}
		price, ok := r.latestPriceAt(symbol, s.Time)
		if !ok || basePrice == 0 || s.InitialCapital.IsZero() {
			continue
		}
		strategyIndex := s.FinalCapital.Div(s.InitialCapital).Mul(hundred)
		benchmarkIndex := price / basePrice * 100
		alpha, _ := strategyIndex.Float64()
		result = append(result, PerformanceRow{
			RunID:          s.RunID,
			Time:           s.Time,
			Symbol:         s.Symbol,
			StrategyIndex:  strategyIndex,
			BenchmarkIndex: benchmarkIndex,
			Alpha:          alpha - benchmarkIndex,
		})
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// DeleteOldSummaries removes run summaries older than the given age.
func (r *InMemRepository) DeleteOldSummaries(ctx context.Context, maxAgeHours int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	threshold := time.Now().Add(-time.Duration(maxAgeHours) * time.Hour)
	var remaining []dbwriter.SummaryRecord
	deletedCount := 0

	for _, s := range r.summaries {
		if s.Time.Before(threshold) {
			deletedCount++
		} else {
			remaining = append(remaining, s)
		}
	}

	r.summaries = remaining
	return int64(deletedCount), nil
}

// Clear clears all data from the in-memory repository.
func (r *InMemRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = nil
	r.optimizerResults = nil
	r.benchmarkValues = nil
}

func (r *InMemRepository) latestPriceAt(symbol string, at time.Time) (float64, bool) {
	price := 0.0
	found := false
	for _, bv := range r.benchmarkValues {
		if bv.Symbol != symbol || bv.Time.After(at) {
			continue
		}
		price = bv.Price
		found = true
	}
	return price, found
}
