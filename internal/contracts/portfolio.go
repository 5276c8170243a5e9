package contracts

import "encoding/json"

// Allocation is one asset's share of a sector budget.
// It is either an EquityAllocation (whole lots) or a CryptoAllocation (fractional units).
// ⭐ SSOT: InitialAllocator → WeightExtractor
type Allocation interface {
	Base() AllocationBase
	isAllocation()
}

// AllocationBase holds the fields shared by every allocation variant
type AllocationBase struct {
	Ticker    string  `json:"asset"`
	Beta      float64 `json:"beta"`
	PriceRUB  float64 `json:"price"` // unit price normalized to RUB
	LotSize   int     `json:"lot_size"`
	TotalCost float64 `json:"total_cost"` // RUB
}

// EquityAllocation buys a whole number of lots
type EquityAllocation struct {
	AllocationBase
	Lots int `json:"lots"`
}

// CryptoAllocation buys fractional units
type CryptoAllocation struct {
	AllocationBase
	Units float64 `json:"quantity"`
}

func (a EquityAllocation) Base() AllocationBase { return a.AllocationBase }
func (a CryptoAllocation) Base() AllocationBase { return a.AllocationBase }

func (EquityAllocation) isAllocation() {}
func (CryptoAllocation) isAllocation() {}

// Shares is the number of shares bought (always a multiple of LotSize)
func (a EquityAllocation) Shares() int {
	return a.Lots * a.LotSize
}

func (a EquityAllocation) MarshalJSON() ([]byte, error) {
	type alias EquityAllocation
	return json.Marshal(struct {
		Type AssetKind `json:"type"`
		alias
	}{KindEquity, alias(a)})
}

func (a CryptoAllocation) MarshalJSON() ([]byte, error) {
	type alias CryptoAllocation
	return json.Marshal(struct {
		Type AssetKind `json:"type"`
		alias
	}{KindCrypto, alias(a)})
}

// SectorAllocation is the per-sector output of the initial allocation
type SectorAllocation struct {
	Sector          string       `json:"sector"`
	Allocations     []Allocation `json:"assets"` // ascending by beta
	RemainingBudget float64      `json:"remaining_budget"`
	SectorBeta      float64      `json:"sector_beta"`
}

// Invested returns the total RUB cost of the sector's allocations
func (s SectorAllocation) Invested() float64 {
	total := 0.0
	for _, a := range s.Allocations {
		total += a.Base().TotalCost
	}
	return total
}

// PortfolioResult is the InitialAllocator output.
// Sectors keep the order in which they were allocated.
type PortfolioResult struct {
	Sectors       []SectorAllocation `json:"portfolio"`
	PortfolioBeta float64            `json:"portfolio_beta"`
}

// Sector looks up a sector allocation by name
func (p *PortfolioResult) Sector(name string) (SectorAllocation, bool) {
	for _, s := range p.Sectors {
		if s.Sector == name {
			return s, true
		}
	}
	return SectorAllocation{}, false
}

// TotalCost sums the cost of every allocation in every sector
func (p *PortfolioResult) TotalCost() float64 {
	total := 0.0
	for _, s := range p.Sectors {
		total += s.Invested()
	}
	return total
}
