// Package dbwriter persists backtest results to TimescaleDB.
package dbwriter

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/your-org/obi-backtest/internal/report"
	"github.com/your-org/obi-backtest/internal/simulator"
)

// TradeRecord is one resolved simulated trade. Trades are written in
// batches through the copy protocol, so the price fields stay float64.
type TradeRecord struct {
	ID             uuid.UUID `db:"id"`
	Time           time.Time `db:"time"`
	Symbol         string    `db:"symbol"`
	Side           string    `db:"side"`
	EntryPrice     float64   `db:"entry_price"`
	ExitPrice      float64   `db:"exit_price"`
	RealizedProfit float64   `db:"realized_profit"`
	Clamped        bool      `db:"clamped"`
	Win            bool      `db:"win"`
	DurationMin    float64   `db:"duration_min"`
}

// NewTradeRecord converts a simulator outcome for persistence. The
// record time falls back to the current time when the outcome carries
// no exit timestamp.
func NewTradeRecord(symbol string, o simulator.Outcome) TradeRecord {
	at := o.Position.ExitTime
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return TradeRecord{
		ID:             uuid.New(),
		Time:           at,
		Symbol:         symbol,
		Side:           o.Position.Side.String(),
		EntryPrice:     o.Position.EntryPrice,
		ExitPrice:      o.Position.ExitPrice,
		RealizedProfit: o.RealizedProfit,
		Clamped:        o.Clamped,
		Win:            o.Win,
		DurationMin:    o.DurationMin,
	}
}

// SummaryRecord is one aggregated run summary. Monetary fields use
// decimal so the stored values round-trip exactly.
type SummaryRecord struct {
	RunID  uuid.UUID `db:"run_id"`
	Time   time.Time `db:"time"`
	Symbol string    `db:"symbol"`

	TotalTrades   int `db:"total_trades"`
	WinningTrades int `db:"winning_trades"`
	LosingTrades  int `db:"losing_trades"`

	WinRate          float64         `db:"win_rate"`
	TotalProfit      decimal.Decimal `db:"total_profit"`
	TotalLoss        decimal.Decimal `db:"total_loss"`
	AvgTradeDuration float64         `db:"avg_trade_duration_min"`
	AvgTradeReturn   decimal.Decimal `db:"avg_trade_return"`
	SharpeRatio      float64         `db:"sharpe_ratio"`
	MaxDrawdown      float64         `db:"max_drawdown"`
	ProfitFactor     float64         `db:"profit_factor"`
	AvgWinningTrade  decimal.Decimal `db:"avg_winning_trade"`
	AvgLosingTrade   decimal.Decimal `db:"avg_losing_trade"`
	InitialCapital   decimal.Decimal `db:"initial_capital"`
	FinalCapital     decimal.Decimal `db:"final_capital"`
}

// NewSummaryRecord converts an aggregated summary for persistence.
func NewSummaryRecord(runID uuid.UUID, symbol string, at time.Time, s report.Summary) SummaryRecord {
	return SummaryRecord{
		RunID:  runID,
		Time:   at,
		Symbol: symbol,

		TotalTrades:   s.TotalTrades,
		WinningTrades: s.WinningTrades,
		LosingTrades:  s.LosingTrades,

		WinRate:          s.WinRate,
		TotalProfit:      decimal.NewFromFloat(s.TotalProfit),
		TotalLoss:        decimal.NewFromFloat(s.TotalLoss),
		AvgTradeDuration: s.AvgTradeDuration,
		AvgTradeReturn:   decimal.NewFromFloat(s.AvgTradeReturn),
		SharpeRatio:      s.SharpeRatio,
		MaxDrawdown:      s.MaxDrawdown,
		ProfitFactor:     s.ProfitFactor,
		AvgWinningTrade:  decimal.NewFromFloat(s.AvgWinningTrade),
		AvgLosingTrade:   decimal.NewFromFloat(s.AvgLosingTrade),
		InitialCapital:   decimal.NewFromFloat(s.InitialCapital),
		FinalCapital:     decimal.NewFromFloat(s.FinalCapital),
	}
}

// Summary converts the record back into the report aggregate.
func (r SummaryRecord) Summary() report.Summary {
	return report.Summary{
		TotalTrades:   r.TotalTrades,
		WinningTrades: r.WinningTrades,
		LosingTrades:  r.LosingTrades,

		WinRate:          r.WinRate,
		TotalProfit:      r.TotalProfit.InexactFloat64(),
		TotalLoss:        r.TotalLoss.InexactFloat64(),
		AvgTradeDuration: r.AvgTradeDuration,
		AvgTradeReturn:   r.AvgTradeReturn.InexactFloat64(),
		SharpeRatio:      r.SharpeRatio,
		MaxDrawdown:      r.MaxDrawdown,
		ProfitFactor:     r.ProfitFactor,
		AvgWinningTrade:  r.AvgWinningTrade.InexactFloat64(),
		AvgLosingTrade:   r.AvgLosingTrade.InexactFloat64(),
		InitialCapital:   r.InitialCapital.InexactFloat64(),
		FinalCapital:     r.FinalCapital.InexactFloat64(),
	}
}

// OptimizerRecord is one grid-search evaluation row. IsBest marks the
// combination the sweep selected.
type OptimizerRecord struct {
	RunID  uuid.UUID `db:"run_id"`
	Time   time.Time `db:"time"`
	Symbol string    `db:"symbol"`

	ThresholdPositive float64 `db:"threshold_positive"`
	ThresholdNegative float64 `db:"threshold_negative"`
	HoldBars          int     `db:"hold_bars"`

	SharpeRatio  float64         `db:"sharpe_ratio"`
	TotalTrades  int             `db:"total_trades"`
	FinalCapital decimal.Decimal `db:"final_capital"`
	IsBest       bool            `db:"is_best"`
}

// BenchmarkValue is one point of the buy-and-hold reference series.
type BenchmarkValue struct {
	Time   time.Time `db:"time"`
	Symbol string    `db:"symbol"`
	Price  float64   `db:"price"`
}
