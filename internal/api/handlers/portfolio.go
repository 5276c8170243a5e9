package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wonny/sectorfolio/internal/brain"
	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/internal/portfolio"
	"github.com/wonny/sectorfolio/pkg/logger"
)

// PortfolioBuilder runs the portfolio pipeline
type PortfolioBuilder interface {
	BuildPortfolio(ctx context.Context, req brain.Request) (*brain.Result, error)
}

// PlanReader loads stored purchase plans
type PlanReader interface {
	GetPlan(ctx context.Context, runID string) (*portfolio.StoredPlan, error)
}

// PortfolioHandler handles portfolio generation endpoints
// ⭐ SSOT: portfolio API handlers live in this struct only
type PortfolioHandler struct {
	builder  PortfolioBuilder
	universe *contracts.Universe
	analysts contracts.AnalystForecasts
	plans    PlanReader
	logger   *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler. plans may be nil.
func NewPortfolioHandler(builder PortfolioBuilder, u *contracts.Universe, analysts contracts.AnalystForecasts, plans PlanReader, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		builder:  builder,
		universe: u,
		analysts: analysts,
		plans:    plans,
		logger:   log,
	}
}

// GenerateRequest is the body of POST /api/generate-portfolio
type GenerateRequest struct {
	Sectors       []string `json:"sectors" default:"[]" validate:"max=32,dive,required"`
	MaxShare      float64  `json:"max_share" default:"0.3" validate:"gt=0,lte=1"`
	Amount        float64  `json:"amount" default:"100000" validate:"gte=0"`
	RiskLevel     float64  `json:"risk_level" default:"1.0"`
	IncludeCrypto bool     `json:"include_crypto"`
}

// GenerateResponse is the body of a successful generation
type GenerateResponse struct {
	Status          string         `json:"status"`
	RunID           string         `json:"run_id"`
	WeightsSource   string         `json:"weights_source"`
	TotalAllocated  float64        `json:"total_allocated"`
	RemainingBudget float64        `json:"remaining_budget"`
	Purchases       []PurchaseView `json:"purchases"`
}

// PurchaseView is one purchase enriched for display
type PurchaseView map[string]interface{}

// Generate builds a portfolio and returns the enriched purchase plan
// POST /api/generate-portfolio
func (h *PortfolioHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GenerateRequest
	if errs := readAndValidate(r, &req); errs != nil {
		respondStatusError(w, http.StatusBadRequest, "invalid request", errs...)
		return
	}

	result, err := h.builder.BuildPortfolio(ctx, brain.Request{
		Sectors:       req.Sectors,
		MaxShare:      req.MaxShare,
		Amount:        req.Amount,
		RiskLevel:     req.RiskLevel,
		IncludeCrypto: req.IncludeCrypto,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if brain.IsInputError(err) {
			status = http.StatusBadRequest
		}
		h.logger.WithError(err).Error("Failed to generate portfolio")
		respondStatusError(w, status, err.Error())
		return
	}

	purchases := make([]PurchaseView, 0, len(result.Plan.Purchases))
	for _, p := range result.Plan.Purchases {
		view, err := h.view(ctx, p)
		if err != nil {
			h.logger.WithError(err).Error("Failed to render purchase")
			respondStatusError(w, http.StatusInternalServerError, err.Error())
			return
		}
		purchases = append(purchases, view)
	}

	respondJSON(w, http.StatusOK, GenerateResponse{
		Status:          StatusSuccess,
		RunID:           result.RunID,
		WeightsSource:   result.WeightsSource,
		TotalAllocated:  result.Plan.TotalAllocated,
		RemainingBudget: result.Plan.RemainingBudget,
		Purchases:       purchases,
	})
}

// view merges the plan record with universe metadata and forecasts
func (h *PortfolioHandler) view(ctx context.Context, p contracts.Purchase) (PurchaseView, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	view := PurchaseView{}
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, err
	}

	ticker := p.Base().Ticker
	view["ticker"] = ticker
	view["company_name"] = "N/A"
	view["image_url"] = nil
	if spec, ok := h.universe.Asset(ticker); ok {
		view["company_name"] = spec.CompanyName
		view["image_url"] = spec.ImageURL
	}

	view["forecast"] = map[string]interface{}{}
	view["forecast_change"] = nil

	switch v := p.(type) {
	case contracts.CryptoPurchase:
		if v.CurrentPrice > 0 && v.ForecastPrice > 0 {
			change := round2((v.ForecastPrice - v.CurrentPrice) / v.CurrentPrice * 100)
			view["forecast"] = map[string]interface{}{
				"current_price":  v.CurrentPrice,
				"forecast_price": round2(v.ForecastPrice),
				"change_percent": change,
			}
			view["forecast_change"] = change
		}
	case contracts.EquityPurchase:
		if h.analysts == nil {
			break
		}
		consensus, err := h.analysts.Consensus(ctx, ticker)
		if err != nil {
			if !errors.Is(err, contracts.ErrDataUnavailable) {
				h.logger.WithError(err).WithField("ticker", ticker).Warn("Consensus lookup failed")
			}
			break
		}
		price := consensus.ConsensusPrice
		if price == 0 {
			price = v.PricePerShare
		}
		view["forecast"] = map[string]interface{}{
			"price":          price,
			"change_percent": round2(consensus.PriceChangeRel),
		}
	}
	return view, nil
}

// GetPlan returns a stored plan
// GET /api/plans/{run_id}
func (h *PortfolioHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	if h.plans == nil {
		respondError(w, http.StatusServiceUnavailable, "Plan storage is not configured")
		return
	}

	runID := mux.Vars(r)["run_id"]
	if _, err := uuid.Parse(runID); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid run id")
		return
	}

	stored, err := h.plans.GetPlan(r.Context(), runID)
	if errors.Is(err, portfolio.ErrPlanNotFound) {
		respondError(w, http.StatusNotFound, "Plan not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("run_id", runID).Error("Failed to get plan")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve plan")
		return
	}

	respondJSON(w, http.StatusOK, stored)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
