package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/wonny/sectorfolio/internal/analytics"
	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/logger"
)

// Comparer correlates a sector index with a crypto pair
type Comparer interface {
	Compare(ctx context.Context, sector, crypto string) (*analytics.Comparison, error)
}

// AnalyticsHandler handles market comparison endpoints
type AnalyticsHandler struct {
	comparer Comparer
	logger   *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(c Comparer, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{comparer: c, logger: log}
}

// Compare returns the sector index, the crypto series and their correlation
// GET /api/yfinance/compare?sector=...&crypto=...
func (h *AnalyticsHandler) Compare(w http.ResponseWriter, r *http.Request) {
	sector := r.URL.Query().Get("sector")
	crypto := r.URL.Query().Get("crypto")

	result, err := h.comparer.Compare(r.Context(), sector, crypto)
	switch {
	case errors.Is(err, contracts.ErrUnknownSector):
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Unknown sector: %s", sector))
		return
	case errors.Is(err, contracts.ErrUnknownAsset):
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Unknown crypto: %s", crypto))
		return
	case err != nil:
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"sector": sector,
			"crypto": crypto,
		}).Warn("Comparison failed")
		respondError(w, http.StatusInternalServerError, "Insufficient data for calculation")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
