package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/logger"
)

const tolerance = 1e-9

func newTestAllocator() *Allocator {
	return NewAllocator(logger.Nop())
}

func sampleSectors() contracts.Sectors {
	return contracts.Sectors{
		"Finance": {
			contracts.NewEquity("SBER", 250, 10, 1.0),
			contracts.NewEquity("VTBR", 0.02, 10000, 1.3),
			contracts.NewEquity("MOEX", 180, 10, 0.9),
			contracts.NewEquity("T", 2800, 1, 1.2),
		},
		"Energy": {
			contracts.NewEquity("GAZP", 130, 10, 0.8),
			contracts.NewEquity("LKOH", 7000, 1, 1.1),
			contracts.NewEquity("ROSN", 450, 1, 1.0),
		},
		"IT": {
			contracts.NewEquity("YDEX", 4000, 1, 1.4),
			contracts.NewEquity("POSI", 2500, 1, 1.6),
		},
		contracts.CryptoSector: {
			contracts.NewCrypto("BTC-USD", 50000),
		},
	}
}

func TestFormSingleEquityScenario(t *testing.T) {
	result := newTestAllocator().Form(AllocationRequest{
		Sectors:         contracts.Sectors{"Finance": {contracts.NewEquity("SBER", 250, 10, 1.0)}},
		SelectedSectors: []string{"Finance"},
		MaxAssetShare:   1.0,
		TotalBudget:     10000,
		TargetBeta:      1.0,
		ExchangeRate:    90,
	})

	require.Len(t, result.Sectors, 1)
	finance := result.Sectors[0]
	require.Len(t, finance.Allocations, 1)

	alloc, ok := finance.Allocations[0].(contracts.EquityAllocation)
	require.True(t, ok)
	assert.Equal(t, 4, alloc.Lots)
	assert.Equal(t, 40, alloc.Shares())
	assert.Equal(t, 10000.0, alloc.TotalCost)
	assert.Equal(t, 0.0, finance.RemainingBudget)
	assert.Equal(t, 1.0, finance.SectorBeta)
	assert.Equal(t, 1.0, result.PortfolioBeta)
}

func TestFormCryptoScenario(t *testing.T) {
	result := newTestAllocator().Form(AllocationRequest{
		Sectors:         contracts.Sectors{contracts.CryptoSector: {contracts.NewCrypto("BTC-USD", 50000)}},
		SelectedSectors: []string{contracts.CryptoSector},
		MaxAssetShare:   1.0,
		TotalBudget:     9000,
		TargetBeta:      1.0,
		ExchangeRate:    90,
	})

	crypto, ok := result.Sector(contracts.CryptoSector)
	require.True(t, ok)
	require.Len(t, crypto.Allocations, 1)

	alloc, ok := crypto.Allocations[0].(contracts.CryptoAllocation)
	require.True(t, ok)
	assert.Equal(t, 4500000.0, alloc.PriceRUB)
	assert.InDelta(t, 0.002, alloc.Units, tolerance)
	assert.Equal(t, 9000.0, alloc.TotalCost)
	assert.Equal(t, 1.0, alloc.Beta)
	assert.Equal(t, 0.0, crypto.RemainingBudget)
}

func TestFormIncludeCryptoAppendsSector(t *testing.T) {
	result := newTestAllocator().Form(AllocationRequest{
		Sectors:         sampleSectors(),
		SelectedSectors: []string{"Finance"},
		MaxAssetShare:   1.0,
		TotalBudget:     20000,
		TargetBeta:      1.0,
		IncludeCrypto:   true,
		ExchangeRate:    90,
	})

	require.Len(t, result.Sectors, 2)
	assert.Equal(t, "Finance", result.Sectors[0].Sector)
	assert.Equal(t, contracts.CryptoSector, result.Sectors[1].Sector)
	// Budget is split across both sectors
	assert.InDelta(t, 10000.0, result.Sectors[1].Invested(), tolerance)
}

func TestFormIncludeCryptoWithoutCryptoSector(t *testing.T) {
	sectors := sampleSectors()
	delete(sectors, contracts.CryptoSector)

	result := newTestAllocator().Form(AllocationRequest{
		Sectors:         sectors,
		SelectedSectors: []string{"Finance"},
		MaxAssetShare:   1.0,
		TotalBudget:     20000,
		TargetBeta:      1.0,
		IncludeCrypto:   true,
		ExchangeRate:    90,
	})

	require.Len(t, result.Sectors, 1)
	assert.InDelta(t, 20000.0, result.Sectors[0].Invested()+result.Sectors[0].RemainingBudget, tolerance)
}

func TestFormOrdersByBetaDistanceThenCost(t *testing.T) {
	sectors := contracts.Sectors{
		"Mixed": {
			contracts.NewEquity("FAR", 10, 1, 2.0),
			contracts.NewEquity("EXPENSIVE", 300, 10, 1.0),
			contracts.NewEquity("CHEAP", 100, 10, 1.0),
		},
	}

	// Only one asset fits under the cap, so the first in priority wins
	result := newTestAllocator().Form(AllocationRequest{
		Sectors:         sectors,
		SelectedSectors: []string{"Mixed"},
		MaxAssetShare:   1.0,
		TotalBudget:     1000,
		TargetBeta:      1.0,
		ExchangeRate:    90,
	})

	mixed := result.Sectors[0]
	require.Len(t, mixed.Allocations, 1)
	assert.Equal(t, "CHEAP", mixed.Allocations[0].Base().Ticker)
}

func TestFormOmitsUnaffordableAssets(t *testing.T) {
	result := newTestAllocator().Form(AllocationRequest{
		Sectors: contracts.Sectors{
			"IT": {contracts.NewEquity("YDEX", 4000, 1, 1.4)},
		},
		SelectedSectors: []string{"IT"},
		MaxAssetShare:   0.5,
		TotalBudget:     5000,
		TargetBeta:      1.0,
		ExchangeRate:    90,
	})

	require.Len(t, result.Sectors, 1)
	it := result.Sectors[0]
	assert.Empty(t, it.Allocations)
	assert.Equal(t, 5000.0, it.RemainingBudget)
	assert.Equal(t, 0.0, it.SectorBeta)
	assert.Equal(t, 0.0, result.PortfolioBeta)
}

func TestFormSkipsMissingAndEmptySectors(t *testing.T) {
	result := newTestAllocator().Form(AllocationRequest{
		Sectors: contracts.Sectors{
			"Finance": {contracts.NewEquity("SBER", 250, 10, 1.0)},
			"Empty":   {},
		},
		SelectedSectors: []string{"Finance", "Empty", "Unknown"},
		MaxAssetShare:   1.0,
		TotalBudget:     30000,
		TargetBeta:      1.0,
		ExchangeRate:    90,
	})

	require.Len(t, result.Sectors, 1)
	assert.Equal(t, "Finance", result.Sectors[0].Sector)
	// Budget per sector counts every selected sector
	assert.InDelta(t, 10000.0, result.Sectors[0].Invested(), tolerance)
}

func TestFormAllocationsSortedByBeta(t *testing.T) {
	result := newTestAllocator().Form(AllocationRequest{
		Sectors:         sampleSectors(),
		SelectedSectors: []string{"Finance", "Energy"},
		MaxAssetShare:   0.3,
		TotalBudget:     200000,
		TargetBeta:      1.0,
		ExchangeRate:    90,
	})

	for _, s := range result.Sectors {
		for i := 1; i < len(s.Allocations); i++ {
			assert.LessOrEqual(t, s.Allocations[i-1].Base().Beta, s.Allocations[i].Base().Beta, s.Sector)
		}
	}
}

func TestFormBudgetInvariants(t *testing.T) {
	tests := []struct {
		name     string
		budget   float64
		maxShare float64
		target   float64
		crypto   bool
	}{
		{"small budget", 10000, 0.3, 1.0, false},
		{"large budget", 1000000, 0.3, 1.0, true},
		{"full share", 250000, 1.0, 0.5, true},
		{"tiny share", 500000, 0.05, 1.5, false},
	}

	sectors := sampleSectors()
	selected := []string{"Finance", "Energy", "IT"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := newTestAllocator().Form(AllocationRequest{
				Sectors:         sectors,
				SelectedSectors: selected,
				MaxAssetShare:   tt.maxShare,
				TotalBudget:     tt.budget,
				TargetBeta:      tt.target,
				IncludeCrypto:   tt.crypto,
				ExchangeRate:    90,
			})

			n := len(selected)
			if tt.crypto {
				n++
			}
			budgetPerSector := tt.budget / float64(n)
			assetCap := budgetPerSector * tt.maxShare

			for _, s := range result.Sectors {
				invested := s.Invested()
				assert.LessOrEqual(t, invested, budgetPerSector+1e-6, "sector %s over budget", s.Sector)
				assert.InDelta(t, budgetPerSector-invested, s.RemainingBudget, 1e-6)

				for _, a := range s.Allocations {
					b := a.Base()
					assert.Greater(t, b.TotalCost, 0.0)
					assert.LessOrEqual(t, b.TotalCost, assetCap+1e-6, "%s over cap", b.Ticker)

					if eq, ok := a.(contracts.EquityAllocation); ok {
						assert.Equal(t, 0, eq.Shares()%eq.LotSize, "%s not whole lots", b.Ticker)
						assert.InDelta(t, float64(eq.Lots)*eq.PriceRUB*float64(eq.LotSize), b.TotalCost, 1e-6)
					}
				}
			}

			assert.False(t, math.IsNaN(result.PortfolioBeta))
		})
	}
}

func TestFormIsIdempotent(t *testing.T) {
	req := AllocationRequest{
		Sectors:         sampleSectors(),
		SelectedSectors: []string{"Finance", "Energy", "IT"},
		MaxAssetShare:   0.4,
		TotalBudget:     300000,
		TargetBeta:      1.1,
		IncludeCrypto:   true,
		ExchangeRate:    92.5,
	}

	a := newTestAllocator()
	assert.Equal(t, a.Form(req), a.Form(req))
}

func TestFormZeroBudget(t *testing.T) {
	result := newTestAllocator().Form(AllocationRequest{
		Sectors:         sampleSectors(),
		SelectedSectors: []string{"Finance", "Energy"},
		MaxAssetShare:   0.3,
		TotalBudget:     0,
		TargetBeta:      1.0,
		IncludeCrypto:   true,
		ExchangeRate:    90,
	})

	for _, s := range result.Sectors {
		assert.Empty(t, s.Allocations, s.Sector)
		assert.Equal(t, 0.0, s.SectorBeta)
	}
	assert.Equal(t, 0.0, result.PortfolioBeta)
}

func TestFormNoSectors(t *testing.T) {
	result := newTestAllocator().Form(AllocationRequest{
		Sectors:       sampleSectors(),
		MaxAssetShare: 0.3,
		TotalBudget:   100000,
		ExchangeRate:  90,
	})

	assert.Empty(t, result.Sectors)
	assert.Equal(t, 0.0, result.PortfolioBeta)
}

func TestFormDoesNotMutateInput(t *testing.T) {
	sectors := sampleSectors()
	before := append([]contracts.Asset(nil), sectors["Finance"]...)

	newTestAllocator().Form(AllocationRequest{
		Sectors:         sectors,
		SelectedSectors: []string{"Finance"},
		MaxAssetShare:   0.5,
		TotalBudget:     50000,
		TargetBeta:      1.0,
		ExchangeRate:    90,
	})

	assert.Equal(t, before, sectors["Finance"])
}

func TestPortfolioBetaIsCostWeighted(t *testing.T) {
	sectors := []contracts.SectorAllocation{
		{Sector: "A", SectorBeta: 1.0, Allocations: []contracts.Allocation{
			contracts.EquityAllocation{AllocationBase: contracts.AllocationBase{Beta: 1.0, TotalCost: 3000}},
		}},
		{Sector: "B", SectorBeta: 2.0, Allocations: []contracts.Allocation{
			contracts.EquityAllocation{AllocationBase: contracts.AllocationBase{Beta: 2.0, TotalCost: 1000}},
		}},
		{Sector: "C", SectorBeta: 0},
	}

	assert.InDelta(t, 1.25, portfolioBeta(sectors), tolerance)
}
