package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/internal/marketdata"
	"github.com/wonny/sectorfolio/internal/marketdata/collector"
	"github.com/wonny/sectorfolio/pkg/logger"
)

// HistoryCollector collects daily history for tickers
type HistoryCollector interface {
	Collect(ctx context.Context, tickers []string, from, to time.Time) (*collector.Summary, error)
}

// SectorRefresher refreshes sector_data
type SectorRefresher interface {
	Refresh(ctx context.Context) (*marketdata.RefreshResult, error)
}

// DataHandler handles data maintenance endpoints
// ⭐ SSOT: data API handlers live in this struct only
type DataHandler struct {
	collector HistoryCollector
	refresher SectorRefresher
	universe  *contracts.Universe
	logger    *logger.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(col HistoryCollector, refresher SectorRefresher, u *contracts.Universe, log *logger.Logger) *DataHandler {
	return &DataHandler{
		collector: col,
		refresher: refresher,
		universe:  u,
		logger:    log,
	}
}

// CollectRequest represents a data collection request
type CollectRequest struct {
	Tickers []string `json:"tickers"` // Optional: defaults to the whole universe
	From    string   `json:"from"`    // Optional: date range start (YYYY-MM-DD)
	To      string   `json:"to"`      // Optional: date range end (YYYY-MM-DD)
}

// CollectResponse represents a data collection response
type CollectResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Results interface{} `json:"results,omitempty"`
}

// Collect triggers history collection
// POST /api/data/collect
func (h *DataHandler) Collect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CollectRequest
	if errs := readAndValidate(r, &req); errs != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tickers := req.Tickers
	if len(tickers) == 0 {
		tickers = h.universe.AllTickers()
	}

	// Parse date range
	to := time.Now().UTC()
	if req.To != "" {
		t, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
			return
		}
		to = t
	}

	// Default: one year
	from := to.AddDate(-1, 0, 0)
	if req.From != "" {
		t, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
			return
		}
		from = t
	}

	h.logger.WithFields(map[string]interface{}{
		"tickers": len(tickers),
		"from":    from.Format("2006-01-02"),
		"to":      to.Format("2006-01-02"),
	}).Info("Data collection triggered")

	summary, err := h.collector.Collect(ctx, tickers, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to collect prices")
		respondError(w, http.StatusInternalServerError, "Failed to collect prices")
		return
	}

	respondJSON(w, http.StatusOK, CollectResponse{
		Status:  StatusSuccess,
		Message: "Price data collected",
		Results: summary,
	})
}

// Refresh triggers a sector data refresh
// POST /api/data/refresh
func (h *DataHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.refresher.Refresh(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to refresh sector data")
		respondError(w, http.StatusInternalServerError, "Failed to refresh sector data")
		return
	}

	respondJSON(w, http.StatusOK, CollectResponse{
		Status:  StatusSuccess,
		Message: "Sector data refreshed",
		Results: result,
	})
}
