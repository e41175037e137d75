package binance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/your-org/obi-backtest/internal/market"
)

// depthResponse is the wire shape shared by the /depth REST endpoint and
// the partial-depth WebSocket stream.
type depthResponse struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

func (r depthResponse) toOrderBook() (market.OrderBook, error) {
	bids, err := parseLevels(r.Bids)
	if err != nil {
		return market.OrderBook{}, fmt.Errorf("bid side: %w", err)
	}
	asks, err := parseLevels(r.Asks)
	if err != nil {
		return market.OrderBook{}, fmt.Errorf("ask side: %w", err)
	}
	return market.OrderBook{Bids: bids, Asks: asks}, nil
}

func parseLevels(raw [][]string) ([]market.BookLevel, error) {
	levels := make([]market.BookLevel, 0, len(raw))
	for i, lv := range raw {
		if len(lv) < 2 {
			return nil, fmt.Errorf("level %d has %d fields, want 2", i, len(lv))
		}
		price, err := strconv.ParseFloat(lv[0], 64)
		if err != nil {
			return nil, fmt.Errorf("level %d price %q: %w", i, lv[0], err)
		}
		size, err := strconv.ParseFloat(lv[1], 64)
		if err != nil {
			return nil, fmt.Errorf("level %d size %q: %w", i, lv[1], err)
		}
		levels = append(levels, market.BookLevel{Price: price, Size: size})
	}
	return levels, nil
}

// klineRow is one row of a /klines response. The venue mixes integer
// timestamps with numeric strings, both of which decode into json.Number:
//
//	[ openTime, open, high, low, close, volume, closeTime, ... ]
type klineRow []json.Number

func (r klineRow) toCandle() (market.Candle, error) {
	if len(r) < 6 {
		return market.Candle{}, fmt.Errorf("kline row has %d fields, want at least 6", len(r))
	}
	openMs, err := r[0].Int64()
	if err != nil {
		return market.Candle{}, fmt.Errorf("open time %q: %w", r[0], err)
	}
	open, err := parseField(r[1], "open")
	if err != nil {
		return market.Candle{}, err
	}
	high, err := parseField(r[2], "high")
	if err != nil {
		return market.Candle{}, err
	}
	low, err := parseField(r[3], "low")
	if err != nil {
		return market.Candle{}, err
	}
	closePx, err := parseField(r[4], "close")
	if err != nil {
		return market.Candle{}, err
	}
	volume, err := parseField(r[5], "volume")
	if err != nil {
		return market.Candle{}, err
	}
	return market.Candle{
		Timestamp: time.UnixMilli(openMs).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePx,
		Volume:    volume,
	}, nil
}

func parseField(n json.Number, field string) (float64, error) {
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, n, err)
	}
	return f, nil
}
