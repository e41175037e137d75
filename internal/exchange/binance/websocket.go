package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/your-org/obi-backtest/internal/market"
)

const (
	defaultStreamURL = "wss://stream.binance.com:9443/ws"

	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
	pingInterval   = 30 * time.Second
	readTimeout    = 90 * time.Second
	writeTimeout   = 5 * time.Second
)

// BookStream keeps the most recent partial depth snapshot for one
// symbol, fed by the <symbol>@depth<levels> stream. Each stream message
// is a full snapshot, so the cache is a plain replace, not a diff merge.
type BookStream struct {
	url    string
	logger *zap.Logger

	mu      sync.RWMutex
	book    market.OrderBook
	updated time.Time
}

// NewBookStream builds a stream client for the given symbol and depth.
// An empty streamURL selects the public endpoint.
func NewBookStream(streamURL, symbol string, depth int, logger *zap.Logger) *BookStream {
	if streamURL == "" {
		streamURL = defaultStreamURL
	}
	if depth <= 0 {
		depth = defaultDepthLimit
	}
	return &BookStream{
		url:    fmt.Sprintf("%s/%s@depth%d@100ms", streamURL, strings.ToLower(symbol), depth),
		logger: logger,
	}
}

// Run connects and keeps the snapshot cache current until ctx is
// cancelled, redialling with exponential backoff after connection loss.
func (s *BookStream) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		err := s.readLoop(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("depth stream disconnected",
			zap.String("url", s.url),
			zap.Duration("retry_in", backoff),
			zap.Error(err),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (s *BookStream) readLoop(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dialling %s: %w", s.url, err)
	}
	defer conn.Close()
	s.logger.Info("depth stream connected", zap.String("url", s.url))

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deadline := time.Now().Add(writeTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return err
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("reading depth message: %w", err)
		}
		s.apply(message)
	}
}

// apply replaces the cached snapshot. Malformed messages are dropped
// and the previous snapshot stays current.
func (s *BookStream) apply(message []byte) {
	var resp depthResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		s.logger.Warn("dropping malformed depth message", zap.Error(err))
		return
	}
	book, err := resp.toOrderBook()
	if err != nil {
		s.logger.Warn("dropping malformed depth message", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.book = book
	s.updated = time.Now()
	s.mu.Unlock()
}

// Book returns the latest snapshot. It reports market.ErrNoData until
// the first message has been applied.
func (s *BookStream) Book() (market.OrderBook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.updated.IsZero() {
		return market.OrderBook{}, fmt.Errorf("%w: depth stream not primed", market.ErrNoData)
	}
	return s.book, nil
}

// StreamProvider pairs the REST candle endpoint with the WebSocket book
// cache. Book reads never leave the process.
type StreamProvider struct {
	rest   *Client
	stream *BookStream
}

// NewStreamProvider combines a REST client and a running BookStream.
func NewStreamProvider(rest *Client, stream *BookStream) *StreamProvider {
	return &StreamProvider{rest: rest, stream: stream}
}

// FetchCandles delegates to the REST client.
func (p *StreamProvider) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	return p.rest.FetchCandles(ctx, symbol, interval, limit)
}

// FetchOrderBook serves the cached stream snapshot.
func (p *StreamProvider) FetchOrderBook(_ context.Context, _ string, _ int) (market.OrderBook, error) {
	return p.stream.Book()
}
