package contracts

import "context"

// Collaborators consumed by the core pipeline.
// Implementations live in internal/marketdata and internal/external.

// Quotes supplies current prices and instrument metadata.
// A missing value is reported as an error wrapping ErrDataUnavailable.
type Quotes interface {
	// LastPrice returns the spot price (RUB for equities, USD for crypto)
	LastPrice(ctx context.Context, ticker string) (float64, error)
	LotSize(ctx context.Context, ticker string) (int, error)
	Beta(ctx context.Context, ticker string) (float64, error)
}

// Consensus is the analyst consensus forecast for an equity
type Consensus struct {
	CurrentPrice   float64 `json:"current_price"`
	ConsensusPrice float64 `json:"consensus_price"`
	PriceChangeRel float64 `json:"price_change_rel"` // percent
}

// AnalystForecasts supplies analyst consensus for equities
type AnalystForecasts interface {
	Consensus(ctx context.Context, ticker string) (Consensus, error)
}

// PriceForecaster is the opaque ML model: ticker → future price sequence
type PriceForecaster interface {
	Predict(ctx context.Context, ticker string) ([]float64, error)
}

// FXRates supplies the USD/RUB exchange rate
type FXRates interface {
	USDRUB(ctx context.Context) (float64, error)
}

// PriceHistory supplies a cleaned daily close table for the given tickers
type PriceHistory interface {
	PriceTable(ctx context.Context, tickers []string, days int) (*PriceTable, error)
}

// SectorSnapshot supplies current asset metadata for the selected sectors
type SectorSnapshot interface {
	Snapshot(ctx context.Context, sectors []string) (Sectors, error)
}

// PlanRepository persists purchase plans
type PlanRepository interface {
	SavePlan(ctx context.Context, runID string, req PlanRequest, plan *PurchasePlan) error
}

// PlanRequest records the inputs a plan was built from
type PlanRequest struct {
	Sectors       []string `json:"sectors"`
	MaxShare      float64  `json:"max_share"`
	Amount        float64  `json:"amount"`
	RiskLevel     float64  `json:"risk_level"`
	IncludeCrypto bool     `json:"include_crypto"`
	ExchangeRate  float64  `json:"exchange_rate"`
	WeightsSource string   `json:"weights_source"`
}
