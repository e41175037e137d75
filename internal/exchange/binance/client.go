// Package binance sources candles and order book snapshots from the
// Binance spot API, over REST and over the partial-depth WebSocket
// stream.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/obi-backtest/internal/market"
)

const (
	defaultBaseURL = "https://api.binance.com/api/v3"

	defaultCandleLimit = 200
	defaultDepthLimit  = 20
)

// Client is a read-only REST client for the public market data
// endpoints. It carries no credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient returns a REST client. An empty baseURL selects the public
// endpoint; tests pass an httptest server URL instead.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// FetchCandles returns up to limit OHLCV bars for the symbol, oldest
// first, as served by /klines. An empty series is reported as
// market.ErrNoData so callers can skip the pass instead of trading on a
// missing window.
func (c *Client) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if symbol == "" {
		return nil, errors.New("symbol is required")
	}
	if limit <= 0 {
		limit = defaultCandleLimit
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var rows []klineRow
	if err := c.fetchJSON(ctx, "/klines", params, &rows); err != nil {
		return nil, fmt.Errorf("fetching klines for %s: %w", symbol, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty kline series for %s", market.ErrNoData, symbol)
	}

	candles := make([]market.Candle, 0, len(rows))
	for i, row := range rows {
		candle, err := row.toCandle()
		if err != nil {
			return nil, fmt.Errorf("kline row %d for %s: %w", i, symbol, err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// FetchOrderBook returns a depth snapshot for the symbol. A snapshot
// with an empty side is reported as market.ErrNoData.
func (c *Client) FetchOrderBook(ctx context.Context, symbol string, depth int) (market.OrderBook, error) {
	if symbol == "" {
		return market.OrderBook{}, errors.New("symbol is required")
	}
	if depth <= 0 {
		depth = defaultDepthLimit
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(depth))

	var resp depthResponse
	if err := c.fetchJSON(ctx, "/depth", params, &resp); err != nil {
		return market.OrderBook{}, fmt.Errorf("fetching depth for %s: %w", symbol, err)
	}
	book, err := resp.toOrderBook()
	if err != nil {
		return market.OrderBook{}, fmt.Errorf("depth for %s: %w", symbol, err)
	}
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return market.OrderBook{}, fmt.Errorf("%w: depth for %s is missing a side", market.ErrNoData, symbol)
	}
	return book, nil
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params url.Values, target interface{}) error {
	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return fmt.Errorf("parsing request URL: %w", err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(target)
}
