package portfolio

import (
	"math"
	"sort"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/logger"
)

// AllocationRequest is the input of the initial allocation
type AllocationRequest struct {
	Sectors         contracts.Sectors
	SelectedSectors []string
	MaxAssetShare   float64 // (0, 1]
	TotalBudget     float64 // RUB
	TargetBeta      float64
	IncludeCrypto   bool
	ExchangeRate    float64 // USD/RUB
}

// Allocator is the InitialAllocator: a deterministic greedy split of the budget
// across sectors and assets.
// ⭐ SSOT: initial allocation logic lives here only
type Allocator struct {
	logger *logger.Logger
}

// NewAllocator creates a new allocator
func NewAllocator(log *logger.Logger) *Allocator {
	return &Allocator{logger: log.WithComponent("allocator")}
}

// Form splits the budget evenly across the selected sectors and, inside each sector,
// funds assets closest to the target beta first (cheaper first on ties) up to the
// per-asset cap. The function is pure: identical input yields identical output.
func (a *Allocator) Form(req AllocationRequest) *contracts.PortfolioResult {
	selected := selectSectors(req)

	budgetPerSector := 0.0
	if len(selected) > 0 {
		budgetPerSector = req.TotalBudget / float64(len(selected))
	}
	assetCap := budgetPerSector * req.MaxAssetShare

	result := &contracts.PortfolioResult{Sectors: make([]contracts.SectorAllocation, 0, len(selected))}

	for _, sector := range selected {
		assets, ok := req.Sectors[sector]
		if !ok {
			a.logger.WithField("sector", sector).Debug("Sector not in snapshot, skipped")
			continue
		}
		if len(assets) == 0 {
			continue
		}

		result.Sectors = append(result.Sectors, a.formSector(sector, assets, req, budgetPerSector, assetCap))
	}

	result.PortfolioBeta = portfolioBeta(result.Sectors)

	a.logger.WithFields(map[string]interface{}{
		"sectors":           len(result.Sectors),
		"budget_per_sector": budgetPerSector,
		"portfolio_beta":    result.PortfolioBeta,
	}).Info("Initial allocation formed")

	return result
}

func (a *Allocator) formSector(
	sector string,
	assets []contracts.Asset,
	req AllocationRequest,
	budgetPerSector, assetCap float64,
) contracts.SectorAllocation {
	ordered := sortByRiskDistance(assets, req.TargetBeta, req.ExchangeRate)

	remaining := budgetPerSector
	allocations := make([]contracts.Allocation, 0, len(ordered))

	for _, asset := range ordered {
		priceRUB := asset.PriceRUB(req.ExchangeRate)
		maxInvest := math.Min(assetCap, remaining)

		base := contracts.AllocationBase{
			Ticker:   asset.Ticker,
			Beta:     asset.Beta,
			PriceRUB: priceRUB,
			LotSize:  asset.Lot(),
		}

		if asset.IsCrypto() {
			if maxInvest <= 0 || priceRUB <= 0 {
				continue
			}
			base.TotalCost = maxInvest
			allocations = append(allocations, contracts.CryptoAllocation{
				AllocationBase: base,
				Units:          maxInvest / priceRUB,
			})
			remaining -= maxInvest
			continue
		}

		unitCost := priceRUB * float64(asset.Lot())
		if unitCost <= 0 {
			continue
		}
		lots := int(math.Floor(maxInvest / unitCost))
		if lots <= 0 {
			continue
		}

		base.TotalCost = float64(lots) * unitCost
		allocations = append(allocations, contracts.EquityAllocation{
			AllocationBase: base,
			Lots:           lots,
		})
		remaining -= base.TotalCost
	}

	sort.SliceStable(allocations, func(i, j int) bool {
		return allocations[i].Base().Beta < allocations[j].Base().Beta
	})

	return contracts.SectorAllocation{
		Sector:          sector,
		Allocations:     allocations,
		RemainingBudget: remaining,
		SectorBeta:      sectorBeta(allocations),
	}
}

// selectSectors appends the crypto pseudo-sector when requested and drops duplicates
func selectSectors(req AllocationRequest) []string {
	seen := make(map[string]bool, len(req.SelectedSectors)+1)
	selected := make([]string, 0, len(req.SelectedSectors)+1)
	for _, s := range req.SelectedSectors {
		if !seen[s] {
			seen[s] = true
			selected = append(selected, s)
		}
	}

	if req.IncludeCrypto && !seen[contracts.CryptoSector] {
		if _, ok := req.Sectors[contracts.CryptoSector]; ok {
			selected = append(selected, contracts.CryptoSector)
		}
	}
	return selected
}

// sortByRiskDistance orders by (|beta - target|, price_rub × lot) without touching the input
func sortByRiskDistance(assets []contracts.Asset, targetBeta, exchangeRate float64) []contracts.Asset {
	ordered := make([]contracts.Asset, len(assets))
	copy(ordered, assets)

	sort.SliceStable(ordered, func(i, j int) bool {
		di := math.Abs(ordered[i].Beta - targetBeta)
		dj := math.Abs(ordered[j].Beta - targetBeta)
		if di != dj {
			return di < dj
		}
		return ordered[i].PriceRUB(exchangeRate)*float64(ordered[i].Lot()) <
			ordered[j].PriceRUB(exchangeRate)*float64(ordered[j].Lot())
	})
	return ordered
}

// sectorBeta is the cost-weighted beta; 0 when nothing was invested
func sectorBeta(allocations []contracts.Allocation) float64 {
	var weighted, invested float64
	for _, a := range allocations {
		b := a.Base()
		if b.TotalCost > 0 {
			weighted += b.Beta * b.TotalCost
			invested += b.TotalCost
		}
	}
	if invested == 0 {
		return 0
	}
	return weighted / invested
}

// portfolioBeta weights sector betas by sector invested amount; 0 when nothing was invested
func portfolioBeta(sectors []contracts.SectorAllocation) float64 {
	var weighted, invested float64
	for _, s := range sectors {
		amount := s.Invested()
		if amount > 0 {
			weighted += s.SectorBeta * amount
			invested += amount
		}
	}
	if invested == 0 {
		return 0
	}
	return weighted / invested
}
