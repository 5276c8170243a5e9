package brain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/internal/optimizer"
	"github.com/wonny/sectorfolio/internal/portfolio"
	"github.com/wonny/sectorfolio/pkg/config"
	"github.com/wonny/sectorfolio/pkg/logger"
)

type fakeFX struct {
	rate float64
	err  error
}

func (f fakeFX) USDRUB(context.Context) (float64, error) { return f.rate, f.err }

type fakeSnapshot struct {
	sectors   contracts.Sectors
	requested []string
}

func (f *fakeSnapshot) Snapshot(_ context.Context, sectors []string) (contracts.Sectors, error) {
	f.requested = sectors
	out := contracts.Sectors{}
	for _, s := range sectors {
		if assets, ok := f.sectors[s]; ok {
			out[s] = assets
		}
	}
	return out, nil
}

type fakeHistory struct {
	err  error
	rows int
}

func (f fakeHistory) PriceTable(_ context.Context, tickers []string, _ int) (*contracts.PriceTable, error) {
	if f.err != nil {
		return nil, f.err
	}
	table := &contracts.PriceTable{Tickers: tickers}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < f.rows; i++ {
		table.Dates = append(table.Dates, start.AddDate(0, 0, i))
		row := make([]float64, len(tickers))
		for j := range row {
			row[j] = 100 + float64(i%3)
		}
		table.Closes = append(table.Closes, row)
	}
	return table, nil
}

type fakeViews struct{}

func (fakeViews) LoadViews(_ context.Context, tickers []string) map[string]float64 {
	views := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		views[t] = 0.1
	}
	return views
}

type fakeOptimizer struct {
	weights contracts.Weights
	table   *contracts.PriceTable
}

func (f *fakeOptimizer) Optimize(_ context.Context, table *contracts.PriceTable, _ map[string]float64, _ float64) (contracts.Weights, *optimizer.Report) {
	f.table = table
	if f.weights.Empty() {
		return contracts.Weights{}, &optimizer.Report{Error: "optimization failed"}
	}
	return f.weights, &optimizer.Report{Weights: f.weights}
}

type fakeQuotes map[string]float64

func (f fakeQuotes) LastPrice(_ context.Context, ticker string) (float64, error) {
	if p, ok := f[ticker]; ok {
		return p, nil
	}
	return 0, contracts.ErrDataUnavailable
}

func (f fakeQuotes) LotSize(_ context.Context, ticker string) (int, error) {
	if contracts.KindOf(ticker) == contracts.KindCrypto {
		return 1, nil
	}
	return 10, nil
}

func (f fakeQuotes) Beta(context.Context, string) (float64, error) { return 1, nil }

type fakePlans struct {
	mu    sync.Mutex
	saved map[string]contracts.PlanRequest
}

func (f *fakePlans) SavePlan(_ context.Context, runID string, req contracts.PlanRequest, _ *contracts.PurchasePlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[runID] = req
	return nil
}

type fixture struct {
	orch     *Orchestrator
	snapshot *fakeSnapshot
	opt      *fakeOptimizer
	plans    *fakePlans
}

func newFixture(policy string, optimized contracts.Weights, history fakeHistory) *fixture {
	f := &fixture{
		snapshot: &fakeSnapshot{sectors: contracts.Sectors{
			"Finance":              {contracts.NewEquity("SBER", 250, 10, 1.0)},
			contracts.CryptoSector: {contracts.NewCrypto("BTC-USD", 50000)},
		}},
		opt:   &fakeOptimizer{weights: optimized},
		plans: &fakePlans{saved: map[string]contracts.PlanRequest{}},
	}

	log := logger.Nop()
	opts := DefaultOptions()
	opts.FallbackPolicy = policy
	quotes := fakeQuotes{"SBER": 250, "BTC-USD": 50000}

	f.orch = NewOrchestrator(Dependencies{
		FX:        fakeFX{rate: 90},
		Snapshot:  f.snapshot,
		History:   history,
		Views:     fakeViews{},
		Optimizer: f.opt,
		Purchases: portfolio.NewPurchaseCalculator(quotes, nil, log, nil),
		Plans:     f.plans,
	}, opts, log, nil)
	return f
}

func financeRequest() Request {
	return Request{Sectors: []string{"Finance"}, MaxShare: 1.0, Amount: 10000, RiskLevel: 1.0}
}

func TestBuildPortfolioOptimized(t *testing.T) {
	f := newFixture(config.FallbackNone, contracts.Weights{{Ticker: "SBER", Value: 1}}, fakeHistory{})

	result, err := f.orch.BuildPortfolio(context.Background(), financeRequest())
	require.NoError(t, err)
	f.orch.Wait()

	_, err = uuid.Parse(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, 90.0, result.ExchangeRate)
	assert.Equal(t, SourceOptimized, result.WeightsSource)
	assert.Equal(t, contracts.Weights{{Ticker: "SBER", Value: 1}}, result.InitialWeights)
	assert.Equal(t, map[string]float64{"SBER": 0.1}, result.Views)
	assert.Equal(t, []string{"allocate", "weights", "views", "optimize", "purchases"}, result.CompletedStages)

	require.Len(t, result.Plan.Purchases, 1)
	sber := result.Plan.Purchases[0].(contracts.EquityPurchase)
	assert.Equal(t, 4, sber.Lots)
	assert.Equal(t, 10000.0, result.Plan.TotalAllocated)
	assert.Equal(t, 0.0, result.Plan.RemainingBudget)

	require.Contains(t, f.plans.saved, result.RunID)
	assert.Equal(t, SourceOptimized, f.plans.saved[result.RunID].WeightsSource)
	assert.Equal(t, 90.0, f.plans.saved[result.RunID].ExchangeRate)
}

func TestBuildPortfolioRiskReport(t *testing.T) {
	f := newFixture(config.FallbackNone, contracts.Weights{{Ticker: "SBER", Value: 1}}, fakeHistory{rows: 60})

	result, err := f.orch.BuildPortfolio(context.Background(), financeRequest())
	require.NoError(t, err)
	f.orch.Wait()

	require.NotNil(t, result.Risk)
	assert.Equal(t, 59, result.Risk.Observations)
	assert.InDelta(t, 1.0, result.Risk.Coverage, 1e-9)
	assert.Greater(t, result.Risk.Historical[0].VaR, 0.0)

	short := newFixture(config.FallbackNone, contracts.Weights{{Ticker: "SBER", Value: 1}}, fakeHistory{rows: 5})
	result, err = short.orch.BuildPortfolio(context.Background(), financeRequest())
	require.NoError(t, err)
	short.orch.Wait()
	assert.Nil(t, result.Risk)
}

func TestBuildPortfolioFallbackPolicy(t *testing.T) {
	tests := []struct {
		name       string
		policy     string
		wantSource string
		wantItems  int
	}{
		{"none keeps the plan empty", config.FallbackNone, SourceNone, 0},
		{"initial uses initial weights", config.FallbackInitial, SourceInitial, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.policy, nil, fakeHistory{})

			result, err := f.orch.BuildPortfolio(context.Background(), financeRequest())
			require.NoError(t, err)
			f.orch.Wait()

			assert.Equal(t, tt.wantSource, result.WeightsSource)
			assert.Len(t, result.Plan.Purchases, tt.wantItems)
			assert.NotEmpty(t, result.Report.Error)
			if tt.wantItems == 0 {
				assert.Equal(t, 0.0, result.Plan.TotalAllocated)
				assert.Equal(t, 10000.0, result.Plan.RemainingBudget)
			}
		})
	}
}

func TestBuildPortfolioIncludesCrypto(t *testing.T) {
	f := newFixture(config.FallbackInitial, nil, fakeHistory{})

	req := financeRequest()
	req.IncludeCrypto = true
	result, err := f.orch.BuildPortfolio(context.Background(), req)
	require.NoError(t, err)
	f.orch.Wait()

	assert.Equal(t, []string{"Finance", contracts.CryptoSector}, f.snapshot.requested)
	assert.Equal(t, []string{"Finance", contracts.CryptoSector}, sectorNames(result.Initial))
	_, found := result.Plan.Find("BTC-USD")
	assert.True(t, found)
}

func TestBuildPortfolioHistoryFailureStillOptimizes(t *testing.T) {
	f := newFixture(config.FallbackNone, contracts.Weights{{Ticker: "SBER", Value: 1}}, fakeHistory{err: contracts.ErrDataUnavailable})

	result, err := f.orch.BuildPortfolio(context.Background(), financeRequest())
	require.NoError(t, err)
	f.orch.Wait()

	assert.True(t, f.opt.table.Empty())
	assert.Equal(t, SourceOptimized, result.WeightsSource)
}

func TestBuildPortfolioErrors(t *testing.T) {
	t.Run("fx unavailable", func(t *testing.T) {
		f := newFixture(config.FallbackNone, nil, fakeHistory{})
		f.orch.deps.FX = fakeFX{err: errors.New("cbr down")}

		_, err := f.orch.BuildPortfolio(context.Background(), financeRequest())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fx rate")
	})

	t.Run("invalid request", func(t *testing.T) {
		f := newFixture(config.FallbackNone, nil, fakeHistory{})
		req := financeRequest()
		req.MaxShare = 0

		_, err := f.orch.BuildPortfolio(context.Background(), req)
		require.Error(t, err)
		assert.True(t, IsInputError(err))
	})

	t.Run("nothing allocated", func(t *testing.T) {
		f := newFixture(config.FallbackNone, nil, fakeHistory{})
		req := financeRequest()
		req.Sectors = []string{"Energy"}

		result, err := f.orch.BuildPortfolio(context.Background(), req)
		assert.ErrorIs(t, err, contracts.ErrEmptyInput)
		assert.Equal(t, []string{"allocate"}, result.CompletedStages)
		f.orch.Wait()
		assert.Empty(t, f.plans.saved)
	})
}

func sectorNames(r *contracts.PortfolioResult) []string {
	names := make([]string, 0, len(r.Sectors))
	for _, s := range r.Sectors {
		names = append(names, s.Sector)
	}
	return names
}
