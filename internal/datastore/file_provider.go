package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/your-org/obi-backtest/internal/market"
)

// depthFile mirrors the exchange depth payload so recorded snapshots can be
// replayed without reshaping. Levels are [price, size] pairs and may be
// encoded as JSON strings or numbers.
type depthFile struct {
	Bids [][]json.Number `json:"bids"`
	Asks [][]json.Number `json:"asks"`
}

// LoadOrderBookFromJSON reads a recorded depth snapshot from a JSON file.
func LoadOrderBookFromJSON(filePath string) (market.OrderBook, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return market.OrderBook{}, fmt.Errorf("failed to open depth file: %w", err)
	}

	var raw depthFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return market.OrderBook{}, fmt.Errorf("failed to parse depth file %s: %w", filePath, err)
	}

	book := market.OrderBook{}
	if book.Bids, err = parseDepthLevels(raw.Bids, "bid"); err != nil {
		return market.OrderBook{}, fmt.Errorf("depth file %s: %w", filePath, err)
	}
	if book.Asks, err = parseDepthLevels(raw.Asks, "ask"); err != nil {
		return market.OrderBook{}, fmt.Errorf("depth file %s: %w", filePath, err)
	}

	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return market.OrderBook{}, fmt.Errorf("depth file %s is missing a side: %w", filePath, market.ErrInvalidOrderBook)
	}
	return book, nil
}

func parseDepthLevels(levels [][]json.Number, side string) ([]market.BookLevel, error) {
	out := make([]market.BookLevel, 0, len(levels))
	for i, level := range levels {
		if len(level) < 2 {
			return nil, fmt.Errorf("%s level %d: expected [price, size] pair", side, i)
		}
		price, err := level[0].Float64()
		if err != nil {
			return nil, fmt.Errorf("%s level %d: parsing price: %w", side, i, err)
		}
		size, err := level[1].Float64()
		if err != nil {
			return nil, fmt.Errorf("%s level %d: parsing size: %w", side, i, err)
		}
		out = append(out, market.BookLevel{Price: price, Size: size})
	}
	return out, nil
}

// FileProvider serves recorded market data from local files. Every fetch
// rereads the files, so wrap it in a caching provider for grid sweeps.
type FileProvider struct {
	candlesPath string
	depthPath   string
	logger      *zap.Logger
}

// NewFileProvider creates a provider backed by a candle CSV and a depth
// snapshot JSON file.
func NewFileProvider(candlesPath, depthPath string, logger *zap.Logger) *FileProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileProvider{candlesPath: candlesPath, depthPath: depthPath, logger: logger}
}

// FetchCandles loads the recorded series and returns at most limit of its
// most recent candles. The interval argument is ignored, the file determines
// the granularity.
func (p *FileProvider) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candles, fileSymbol, err := LoadCandlesFromCSV(p.candlesPath)
	if err != nil {
		return nil, err
	}
	if symbol != "" && fileSymbol != "" && !strings.EqualFold(symbol, fileSymbol) {
		return nil, fmt.Errorf("candle csv %s holds %s, want %s", p.candlesPath, fileSymbol, symbol)
	}

	p.logger.Debug("loaded candle csv",
		zap.String("path", p.candlesPath),
		zap.Int("candles", len(candles)),
	)

	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

// FetchOrderBook loads the recorded depth snapshot, truncated to the
// requested number of levels per side.
func (p *FileProvider) FetchOrderBook(ctx context.Context, symbol string, depth int) (market.OrderBook, error) {
	if err := ctx.Err(); err != nil {
		return market.OrderBook{}, err
	}

	book, err := LoadOrderBookFromJSON(p.depthPath)
	if err != nil {
		return market.OrderBook{}, err
	}
	if depth > 0 {
		if len(book.Bids) > depth {
			book.Bids = book.Bids[:depth]
		}
		if len(book.Asks) > depth {
			book.Asks = book.Asks[:depth]
		}
	}
	return book, nil
}

// ReplayProvider steps a sliding candle window across a recorded series so
// each engine pass sees the next bar, emulating live polling from a file.
// Once the series is exhausted FetchCandles reports ErrNoData, which gives
// callers a clean termination signal.
type ReplayProvider struct {
	mu      sync.Mutex
	candles []market.Candle
	book    market.OrderBook
	cursor  int
}

// NewReplayProvider creates a replay over an in-memory series and a fixed
// depth snapshot.
func NewReplayProvider(candles []market.Candle, book market.OrderBook) *ReplayProvider {
	return &ReplayProvider{candles: candles, book: book}
}

// FetchCandles returns the current window of up to limit candles and advances
// the replay by one bar.
func (p *ReplayProvider) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	window := limit
	if window <= 0 || window > len(p.candles) {
		window = len(p.candles)
	}
	if window == 0 || p.cursor+window > len(p.candles) {
		return nil, fmt.Errorf("replay exhausted after %d passes: %w", p.cursor, market.ErrNoData)
	}

	out := make([]market.Candle, window)
	copy(out, p.candles[p.cursor:p.cursor+window])
	p.cursor++
	return out, nil
}

// FetchOrderBook returns the fixed depth snapshot for every pass.
func (p *ReplayProvider) FetchOrderBook(ctx context.Context, symbol string, depth int) (market.OrderBook, error) {
	if err := ctx.Err(); err != nil {
		return market.OrderBook{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.book, nil
}
