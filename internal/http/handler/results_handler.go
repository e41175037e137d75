// Package handler exposes run results over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/your-org/obi-backtest/internal/datastore"
	"github.com/your-org/obi-backtest/internal/report"
	"github.com/your-org/obi-backtest/pkg/ring"
)

const defaultHistorySize = 16

// ResultEntry is one recorded engine pass.
type ResultEntry struct {
	Time    time.Time      `json:"time"`
	Symbol  string         `json:"symbol"`
	Summary report.Summary `json:"summary"`
}

// ResultsHandler serves the most recent run summaries. Recent passes are
// kept in a ring buffer fed by the run loop; the performance endpoint
// reads from the database when one is configured.
type ResultsHandler struct {
	symbol string
	repo   datastore.Repository
	logger *zap.Logger

	mu     sync.RWMutex
	recent *ring.Buffer[ResultEntry]
}

// NewResultsHandler creates a handler keeping up to historySize recent
// passes. The repository may be nil when database persistence is disabled.
func NewResultsHandler(symbol string, historySize int, repo datastore.Repository, logger *zap.Logger) *ResultsHandler {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &ResultsHandler{
		symbol: symbol,
		repo:   repo,
		logger: logger,
		recent: ring.New[ResultEntry](historySize),
	}
}

// Record stores the summary of a finished pass.
func (h *ResultsHandler) Record(s report.Summary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recent.Add(ResultEntry{Time: time.Now().UTC(), Symbol: h.symbol, Summary: s})
}

// RegisterRoutes registers the result routes on a chi router.
func (h *ResultsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/results/latest", h.GetLatestResult)
	r.Get("/results/recent", h.GetRecentResults)
	r.Get("/results/performance", h.GetPerformance)
}

// GetLatestResult returns the summary of the most recent pass. Before the
// first pass of this process completes, it serves the last persisted run
// instead, so a restart does not blank the endpoint.
func (h *ResultsHandler) GetLatestResult(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	entry, ok := h.recent.Latest()
	h.mu.RUnlock()

	if ok {
		h.writeJSON(w, entry)
		return
	}

	if h.repo != nil {
		rec, err := h.repo.FetchLatestSummary(r.Context(), h.symbol)
		switch {
		case err == nil:
			h.writeJSON(w, ResultEntry{Time: rec.Time, Symbol: rec.Symbol, Summary: rec.Summary()})
			return
		case !errors.Is(err, datastore.ErrNotFound):
			h.logger.Error("failed to fetch latest summary", zap.Error(err))
			http.Error(w, "Failed to fetch latest summary", http.StatusInternalServerError)
			return
		}
	}

	http.Error(w, "No results recorded yet", http.StatusNotFound)
}

// GetRecentResults returns the recorded passes, oldest first.
func (h *ResultsHandler) GetRecentResults(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	entries := h.recent.Items()
	h.mu.RUnlock()

	if entries == nil {
		// An empty history still serves a JSON array, not null.
		entries = []ResultEntry{}
	}
	h.writeJSON(w, entries)
}

// GetPerformance returns strategy-vs-benchmark rows from the database.
func (h *ResultsHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		http.Error(w, "Database persistence is disabled", http.StatusServiceUnavailable)
		return
	}

	limit := 30
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	rows, err := h.repo.FetchPerformanceVsBenchmark(r.Context(), h.symbol, limit)
	if err != nil {
		h.logger.Error("failed to fetch performance view", zap.Error(err))
		http.Error(w, "Failed to fetch performance data", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []datastore.PerformanceRow{}
	}
	h.writeJSON(w, rows)
}

func (h *ResultsHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
