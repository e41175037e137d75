// Package simulator opens positions, resolves them under the configured
// risk policy and accumulates realized outcomes for aggregation.
package simulator

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/obi-backtest/internal/indicator"
	"github.com/your-org/obi-backtest/internal/market"
)

// Side of a position.
type Side int

const (
	// SideLong profits when the exit price is above the entry price.
	SideLong Side = iota
	// SideShort profits when the exit price is below the entry price.
	SideShort
)

// String returns the string representation of the side.
func (s Side) String() string {
	if s == SideShort {
		return "SHORT"
	}
	return "LONG"
}

// Config holds the risk policy of one simulator instance. The stop-loss
// and take-profit fractions scale the entry price, not the move distance.
type Config struct {
	Slippage             float64
	StopLossFraction     float64
	TakeProfitFraction   float64
	TrailingStopFraction float64
	InitialCapital       float64
}

// DefaultConfig returns the stock risk policy.
func DefaultConfig() Config {
	return Config{
		Slippage:             0.005,
		StopLossFraction:     0.28,
		TakeProfitFraction:   0.30,
		TrailingStopFraction: 0.5,
		InitialCapital:       10000,
	}
}

// Position is one open-then-close record. A zero EntryTime or ExitTime
// marks the timestamp as unknown.
type Position struct {
	Side       Side
	EntryPrice float64
	EntryTime  time.Time
	ExitPrice  float64
	ExitTime   time.Time
}

// Outcome is the realized result of one resolved position.
type Outcome struct {
	Position       Position
	RawProfit      float64
	RealizedProfit float64
	// StopThreshold is the effective stop after the trailing adjustment.
	StopThreshold float64
	TakeThreshold float64
	Clamped       bool
	Win           bool
	// DurationMin and Booked describe the duration/return bookkeeping:
	// Booked is false when a timestamp was missing or the realized profit
	// was exactly zero.
	DurationMin float64
	Booked      bool
}

// RunningStats accumulates the outcomes of one backtest run. It is owned
// exclusively by a single simulator and read by the aggregator; it is not
// safe for concurrent mutation.
//
// Invariants: TotalTrades == WinningTrades + LosingTrades, and Durations
// and Returns always have equal length.
type RunningStats struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	// Profits holds realized profits of winning trades; Losses holds the
	// sign-preserved realized values of losing trades, zero included.
	Profits []float64
	Losses  []float64
	// TotalLoss accumulates loss magnitudes as a positive number.
	TotalProfit float64
	TotalLoss   float64
	// Durations (minutes) and Returns are appended pairwise per trade that
	// had both timestamps and a non-zero realized profit.
	Durations []float64
	Returns   []float64
	// Capital is the running capital trajectory, seeded with the initial
	// capital and extended by one point per resolved trade.
	Capital []float64
}

// NewRunningStats creates an empty accumulator seeded with the initial
// capital.
func NewRunningStats(initialCapital float64) *RunningStats {
	return &RunningStats{Capital: []float64{initialCapital}}
}

// Simulator resolves positions against the configured risk policy. One
// instance lives across polling iterations; Reconfigure swaps parameters
// in place and Reset starts a fresh run.
type Simulator struct {
	cfg    Config
	stats  *RunningStats
	logger *zap.Logger
}

// New creates a Simulator with a fresh RunningStats.
func New(cfg Config, logger *zap.Logger) *Simulator {
	return &Simulator{
		cfg:    cfg,
		stats:  NewRunningStats(cfg.InitialCapital),
		logger: logger,
	}
}

// Reconfigure replaces the risk parameters while keeping the accumulated
// statistics. Called between polling iterations instead of constructing a
// new simulator.
func (s *Simulator) Reconfigure(cfg Config) {
	s.cfg = cfg
}

// Config returns the active risk policy.
func (s *Simulator) Config() Config {
	return s.cfg
}

// Reset discards the accumulated statistics and seeds a fresh capital
// trajectory. The optimizer calls this per grid point.
func (s *Simulator) Reset() {
	s.stats = NewRunningStats(s.cfg.InitialCapital)
}

// Stats exposes the accumulated statistics for read-only aggregation.
func (s *Simulator) Stats() *RunningStats {
	return s.stats
}

// OpenAndResolve opens a position at the slipped book mid and immediately
// resolves it against exitPrice, booking the realized outcome:
//
//  1. entry = mid * (1 + slippage), slippage applied to the entry only
//  2. raw profit: Long exit-entry, Short entry-exit
//  3. stop = entry * StopLossFraction, take = entry * TakeProfitFraction
//  4. positive raw profit ratchets the stop up, never down:
//     stop = max(stop, entry + raw * TrailingStopFraction)
//  5. losses are clamped at -stop, profits capped at take
//  6. realized > 0 counts as a win; zero or negative counts as a loss
//  7. duration and return history record the trade only when both
//     timestamps are known and the realized profit is non-zero
//
// A book missing either side fails with market.ErrInvalidOrderBook before
// any statistics are touched. Missing timestamps are not an error; only
// the duration/return bookkeeping for that trade is skipped.
func (s *Simulator) OpenAndResolve(side Side, book market.OrderBook, entryTime time.Time, exitPrice float64, exitTime time.Time) (Outcome, error) {
	mid, err := indicator.MidPrice(book)
	if err != nil {
		return Outcome{}, err
	}
	entry := mid * (1 + s.cfg.Slippage)

	var raw float64
	switch side {
	case SideLong:
		raw = exitPrice - entry
	case SideShort:
		raw = entry - exitPrice
	default:
		return Outcome{}, fmt.Errorf("unknown position side %d", side)
	}

	stop := entry * s.cfg.StopLossFraction
	take := entry * s.cfg.TakeProfitFraction
	if raw > 0 {
		if trail := entry + raw*s.cfg.TrailingStopFraction; trail > stop {
			stop = trail
		}
	}

	realized := raw
	clamped := false
	switch {
	case raw < 0 && -raw > stop:
		realized = -stop
		clamped = true
	case raw > 0 && raw > take:
		realized = take
		clamped = true
	}

	pos := Position{
		Side:       side,
		EntryPrice: entry,
		EntryTime:  entryTime,
		ExitPrice:  exitPrice,
		ExitTime:   exitTime,
	}

	s.stats.TotalTrades++
	win := realized > 0
	if win {
		s.stats.WinningTrades++
		s.stats.Profits = append(s.stats.Profits, realized)
		s.stats.TotalProfit += realized
	} else {
		s.stats.LosingTrades++
		s.stats.Losses = append(s.stats.Losses, realized)
		s.stats.TotalLoss += -realized
	}

	booked := false
	var durationMin float64
	switch {
	case entryTime.IsZero() || exitTime.IsZero():
		s.logger.Debug("trade missing timestamp, skipping duration bookkeeping",
			zap.String("side", side.String()),
			zap.Float64("realized_profit", realized))
	case realized != 0:
		durationMin = exitTime.Sub(entryTime).Minutes()
		s.stats.Durations = append(s.stats.Durations, durationMin)
		s.stats.Returns = append(s.stats.Returns, realized)
		booked = true
	}

	last := s.stats.Capital[len(s.stats.Capital)-1]
	s.stats.Capital = append(s.stats.Capital, last+realized)

	s.logger.Debug("position resolved",
		zap.String("side", side.String()),
		zap.Float64("entry_price", entry),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("raw_profit", raw),
		zap.Float64("realized_profit", realized),
		zap.Bool("clamped", clamped))

	return Outcome{
		Position:       pos,
		RawProfit:      raw,
		RealizedProfit: realized,
		StopThreshold:  stop,
		TakeThreshold:  take,
		Clamped:        clamped,
		Win:            win,
		DurationMin:    durationMin,
		Booked:         booked,
	}, nil
}
