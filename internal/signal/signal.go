// Package signal turns order book imbalance into directional entry decisions.
package signal

import (
	"time"

	"github.com/your-org/obi-backtest/internal/market"
)

// Type represents the kind of entry signal.
type Type int

const (
	// TypeNone indicates no signal.
	TypeNone Type = iota
	// TypeLong indicates a long entry signal.
	TypeLong
	// TypeShort indicates a short entry signal.
	TypeShort
	// TypeHoldFiltered marks a directional signal that did not survive the
	// persistence filter. Downstream treats it exactly like no trade.
	TypeHoldFiltered
)

// String returns the string representation of the signal type.
func (t Type) String() string {
	switch t {
	case TypeLong:
		return "LONG"
	case TypeShort:
		return "SHORT"
	case TypeNone:
		return "NONE"
	case TypeHoldFiltered:
		return "NO ENTRY (TIME FILTER)"
	default:
		return "UNKNOWN"
	}
}

// Directional reports whether the type calls for opening a position.
func (t Type) Directional() bool {
	return t == TypeLong || t == TypeShort
}

// Signal is one detection result. TriggerPrice carries the close price the
// detection was made against and is zero for non-directional results.
type Signal struct {
	Type         Type
	TriggerPrice float64
	Imbalance    float64
	DetectedAt   time.Time
}

// Config holds the detector parameters. ThresholdPositive and
// ThresholdNegative are independent values, not a symmetric band: the
// strategy is deliberately more or less sensitive to one side of the book.
// HoldBars is the number of consecutive evaluation steps a signal must
// persist before it becomes actionable.
type Config struct {
	ThresholdPositive float64
	ThresholdNegative float64
	HoldBars          int
}

// Detector evaluates imbalance values against the configured thresholds
// and applies the persistence filter.
type Detector struct {
	cfg Config
}

// NewDetector creates a Detector with the given configuration.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Reconfigure replaces the detector parameters. The optimizer sweep calls
// this between grid points instead of constructing a new detector.
func (d *Detector) Reconfigure(cfg Config) {
	d.cfg = cfg
}

// Config returns the active configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// Detect applies the threshold rule with strict inequalities: an imbalance
// above the positive threshold is Long, below the negative threshold is
// Short, anything else including exact boundary values is None.
func (d *Detector) Detect(imbalance, closePrice float64, at time.Time) Signal {
	sig := Signal{Type: TypeNone, Imbalance: imbalance, DetectedAt: at}
	switch {
	case imbalance > d.cfg.ThresholdPositive:
		sig.Type = TypeLong
		sig.TriggerPrice = closePrice
	case imbalance < d.cfg.ThresholdNegative:
		sig.Type = TypeShort
		sig.TriggerPrice = closePrice
	}
	return sig
}

// Confirm gates a directional signal behind the persistence filter. The
// counter is seeded at 1 on the trigger bar and incremented while scanning
// forward through the candle series; it resets to zero whenever the
// running signal value is None. The scan re-checks the signal cached at
// detection time rather than recomputing one per intervening bar, so a
// directional signal confirms exactly when the series spans HoldBars
// candles. Unconfirmed signals degrade to TypeHoldFiltered.
func (d *Detector) Confirm(sig Signal, candles []market.Candle) Signal {
	if !sig.Type.Directional() {
		return sig
	}

	current := sig.Type
	count := 1
	for i := 1; i < len(candles) && count < d.cfg.HoldBars; i++ {
		if current == TypeNone {
			count = 0
			continue
		}
		count++
	}

	if count >= d.cfg.HoldBars {
		return sig
	}
	filtered := sig
	filtered.Type = TypeHoldFiltered
	return filtered
}
