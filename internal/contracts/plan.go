package contracts

import "encoding/json"

// Purchase is one line of the purchase plan.
// It is either an EquityPurchase (whole lots) or a CryptoPurchase (fractional units).
// ⭐ SSOT: PurchaseCalculator → API / repository
type Purchase interface {
	Base() PurchaseBase
	isPurchase()
}

// PurchaseBase holds the fields shared by every purchase variant
type PurchaseBase struct {
	Ticker       string  `json:"-"`
	TargetWeight float64 `json:"target_weight"`
	AllocatedRUB float64 `json:"allocated_rub"`
	CostRUB      float64 `json:"cost_rub"`
}

// EquityPurchase buys whole lots at the current price
type EquityPurchase struct {
	PurchaseBase
	Lots          int     `json:"lots"`
	Shares        int     `json:"shares"`
	PricePerShare float64 `json:"price_per_share"`
}

// CryptoPurchase buys fractional units at the current spot price
type CryptoPurchase struct {
	PurchaseBase
	Quantity      float64 `json:"quantity"`
	PriceUSD      float64 `json:"price_usd"`
	CostUSD       float64 `json:"cost_usd"`
	ForecastPrice float64 `json:"forecast_price"`
	CurrentPrice  float64 `json:"current_price"`
}

func (p EquityPurchase) Base() PurchaseBase { return p.PurchaseBase }
func (p CryptoPurchase) Base() PurchaseBase { return p.PurchaseBase }

func (EquityPurchase) isPurchase() {}
func (CryptoPurchase) isPurchase() {}

// KindOfPurchase returns the asset kind of a purchase
func KindOfPurchase(p Purchase) AssetKind {
	if _, ok := p.(CryptoPurchase); ok {
		return KindCrypto
	}
	return KindEquity
}

func (p EquityPurchase) MarshalJSON() ([]byte, error) {
	type alias EquityPurchase
	return json.Marshal(struct {
		Type AssetKind `json:"type"`
		alias
	}{KindEquity, alias(p)})
}

func (p CryptoPurchase) MarshalJSON() ([]byte, error) {
	type alias CryptoPurchase
	return json.Marshal(struct {
		Type AssetKind `json:"type"`
		alias
	}{KindCrypto, alias(p)})
}

// PurchasePlan is the final output of the pipeline.
// Purchases keep the order of the weights they were computed from.
type PurchasePlan struct {
	Purchases       []Purchase `json:"purchases"`
	TotalAllocated  float64    `json:"total_allocated"`
	RemainingBudget float64    `json:"remaining_budget"`
}

// Find returns the purchase for a ticker
func (p *PurchasePlan) Find(ticker string) (Purchase, bool) {
	for _, x := range p.Purchases {
		if x.Base().Ticker == ticker {
			return x, true
		}
	}
	return nil, false
}

// Empty reports whether the plan buys nothing
func (p *PurchasePlan) Empty() bool {
	return len(p.Purchases) == 0
}
