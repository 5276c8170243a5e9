package brain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/internal/optimizer"
	"github.com/wonny/sectorfolio/internal/portfolio"
	"github.com/wonny/sectorfolio/internal/risk"
	"github.com/wonny/sectorfolio/pkg/config"
	"github.com/wonny/sectorfolio/pkg/logger"
	"github.com/wonny/sectorfolio/pkg/metrics"
)

// Weight sources recorded on every run
const (
	SourceOptimized = "optimized"
	SourceInitial   = "initial"
	SourceNone      = "none"
)

// ViewSource produces per-ticker return views
type ViewSource interface {
	LoadViews(ctx context.Context, tickers []string) map[string]float64
}

// WeightOptimizer turns prices and views into final weights
type WeightOptimizer interface {
	Optimize(ctx context.Context, table *contracts.PriceTable, views map[string]float64, maxShare float64) (contracts.Weights, *optimizer.Report)
}

// PurchasePlanner turns final weights into a purchase plan
type PurchasePlanner interface {
	Calculate(ctx context.Context, weights contracts.Weights, totalBudget, exchangeRate float64) (*contracts.PurchasePlan, error)
}

// Dependencies are the collaborators of one orchestrator
type Dependencies struct {
	FX        contracts.FXRates
	Snapshot  contracts.SectorSnapshot
	History   contracts.PriceHistory
	Views     ViewSource
	Optimizer WeightOptimizer
	Purchases PurchasePlanner
	Plans     contracts.PlanRepository // optional
}

// Options tune the pipeline
type Options struct {
	FallbackPolicy string // config.FallbackNone | config.FallbackInitial
	HistoryDays    int
	SaveTimeout    time.Duration
	Constraints    portfolio.Constraints
}

// DefaultOptions returns the pipeline defaults
func DefaultOptions() Options {
	return Options{
		FallbackPolicy: config.FallbackNone,
		HistoryDays:    365,
		SaveTimeout:    10 * time.Second,
		Constraints:    portfolio.DefaultConstraints(),
	}
}

// Request is one portfolio build request
type Request struct {
	Sectors       []string `json:"sectors"`
	MaxShare      float64  `json:"max_share"`
	Amount        float64  `json:"amount"`
	RiskLevel     float64  `json:"risk_level"`
	IncludeCrypto bool     `json:"include_crypto"`
}

// Result holds every intermediate product of a run
type Result struct {
	RunID           string                     `json:"run_id"`
	ExchangeRate    float64                    `json:"exchange_rate"`
	Initial         *contracts.PortfolioResult `json:"initial"`
	InitialWeights  contracts.Weights          `json:"initial_weights"`
	Views           map[string]float64         `json:"views"`
	Optimized       contracts.Weights          `json:"optimized_weights"`
	WeightsSource   string                     `json:"weights_source"`
	Report          *optimizer.Report          `json:"optimizer"`
	Risk            *risk.Report               `json:"risk,omitempty"`
	Plan            *contracts.PurchasePlan    `json:"plan"`
	CompletedStages []string                   `json:"completed_stages"`
	Duration        time.Duration              `json:"duration"`
}

// Orchestrator is the PortfolioOrchestrator: FX → snapshot → initial allocation →
// weights → history + views → optimization → purchases → persistence.
// ⭐ SSOT: pipeline sequencing lives here only
type Orchestrator struct {
	deps      Dependencies
	opts      Options
	allocator *portfolio.Allocator
	logger    *logger.Logger
	metrics   *metrics.Recorder
	saves     sync.WaitGroup
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(deps Dependencies, opts Options, log *logger.Logger, rec *metrics.Recorder) *Orchestrator {
	return &Orchestrator{
		deps:      deps,
		opts:      opts,
		allocator: portfolio.NewAllocator(log),
		logger:    log.WithComponent("orchestrator"),
		metrics:   rec,
	}
}

// BuildPortfolio runs the whole pipeline for one request. Per-asset data gaps
// are absorbed; it fails when the FX rate is unavailable, the request is
// invalid or no asset ends up with a positive initial weight.
func (o *Orchestrator) BuildPortfolio(ctx context.Context, req Request) (*Result, error) {
	startTime := time.Now()
	result := &Result{
		RunID:           uuid.NewString(),
		CompletedStages: make([]string, 0, 6),
	}
	log := o.logger.WithRun(result.RunID)

	log.WithFields(map[string]interface{}{
		"sectors":        req.Sectors,
		"max_share":      req.MaxShare,
		"amount":         req.Amount,
		"risk_level":     req.RiskLevel,
		"include_crypto": req.IncludeCrypto,
	}).Info("Starting portfolio build")

	err := o.run(ctx, req, result, log)
	result.Duration = time.Since(startTime)
	if err != nil {
		o.metrics.RecordPipelineRun("error")
		log.WithError(err).WithField("stages", result.CompletedStages).Error("Portfolio build failed")
		return result, err
	}

	o.metrics.RecordPipelineRun("success")
	o.metrics.RecordWeightSource(result.WeightsSource)
	log.WithFields(map[string]interface{}{
		"duration":        result.Duration.Seconds(),
		"weights_source":  result.WeightsSource,
		"purchases":       len(result.Plan.Purchases),
		"total_allocated": result.Plan.TotalAllocated,
	}).Info("Portfolio build completed")

	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, req Request, result *Result, log *logger.Logger) error {
	// 1. FX
	fx, err := stage(o, "fx", func() (float64, error) { return o.deps.FX.USDRUB(ctx) })
	if err != nil {
		return fmt.Errorf("fx rate: %w", err)
	}
	result.ExchangeRate = fx

	allocReq := portfolio.AllocationRequest{
		SelectedSectors: req.Sectors,
		MaxAssetShare:   req.MaxShare,
		TotalBudget:     req.Amount,
		TargetBeta:      req.RiskLevel,
		IncludeCrypto:   req.IncludeCrypto,
		ExchangeRate:    fx,
	}
	if err := o.opts.Constraints.Validate(allocReq); err != nil {
		return err
	}

	// 2. Sector snapshot
	wanted := append([]string(nil), req.Sectors...)
	if req.IncludeCrypto {
		wanted = append(wanted, contracts.CryptoSector)
	}
	sectors, err := stage(o, "snapshot", func() (contracts.Sectors, error) { return o.deps.Snapshot.Snapshot(ctx, wanted) })
	if err != nil {
		return fmt.Errorf("sector snapshot: %w", err)
	}
	allocReq.Sectors = sectors

	// 3. Initial allocation
	result.Initial = o.allocator.Form(allocReq)
	result.CompletedStages = append(result.CompletedStages, "allocate")

	// 4. Initial weights
	result.InitialWeights, err = portfolio.ExtractWeights(result.Initial)
	if err != nil {
		return err
	}
	result.CompletedStages = append(result.CompletedStages, "weights")

	// 5. History and views
	tickers := result.InitialWeights.Tickers()
	table, err := stage(o, "history", func() (*contracts.PriceTable, error) {
		return o.deps.History.PriceTable(ctx, tickers, o.opts.HistoryDays)
	})
	if err != nil {
		log.WithError(err).Warn("Price history unavailable, optimizing on an empty table")
		table = &contracts.PriceTable{}
	}
	result.Views = o.deps.Views.LoadViews(ctx, tickers)
	result.CompletedStages = append(result.CompletedStages, "views")

	// 6. Optimization with fallback policy
	result.Optimized, result.Report = o.deps.Optimizer.Optimize(ctx, table, result.Views, req.MaxShare)
	final := result.Optimized
	switch {
	case !result.Optimized.Empty():
		result.WeightsSource = SourceOptimized
	case o.opts.FallbackPolicy == config.FallbackInitial:
		result.WeightsSource = SourceInitial
		final = result.InitialWeights
		log.Warn("Optimizer returned no weights, falling back to initial weights")
	default:
		result.WeightsSource = SourceNone
		log.Warn("Optimizer returned no weights, purchase plan will be empty")
	}
	result.CompletedStages = append(result.CompletedStages, "optimize")

	// Historical risk of the final mix; diagnostic only
	if !final.Empty() && !table.Empty() {
		if report, err := risk.Assess(table, final); err != nil {
			log.WithError(err).Debug("Risk report skipped")
		} else {
			result.Risk = report
		}
	}

	// 7. Purchases
	result.Plan, err = stage(o, "purchases", func() (*contracts.PurchasePlan, error) {
		return o.deps.Purchases.Calculate(ctx, final, req.Amount, fx)
	})
	if err != nil {
		return fmt.Errorf("calculate purchases: %w", err)
	}
	result.CompletedStages = append(result.CompletedStages, "purchases")

	// 8. Persist, fire-and-forget
	o.persist(result, req, log)
	return nil
}

// stage times one collaborator call
func stage[T any](o *Orchestrator, name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	o.metrics.RecordStage(name, time.Since(start).Seconds())
	return v, err
}

func (o *Orchestrator) persist(result *Result, req Request, log *logger.Logger) {
	if o.deps.Plans == nil {
		return
	}

	planReq := contracts.PlanRequest{
		Sectors:       req.Sectors,
		MaxShare:      req.MaxShare,
		Amount:        req.Amount,
		RiskLevel:     req.RiskLevel,
		IncludeCrypto: req.IncludeCrypto,
		ExchangeRate:  result.ExchangeRate,
		WeightsSource: result.WeightsSource,
	}
	plan := result.Plan
	runID := result.RunID

	o.saves.Add(1)
	go func() {
		defer o.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), o.opts.SaveTimeout)
		defer cancel()

		if err := o.deps.Plans.SavePlan(ctx, runID, planReq, plan); err != nil {
			log.WithError(err).Error("Failed to save purchase plan")
			return
		}
		log.Debug("Purchase plan saved")
	}()
}

// Wait blocks until pending plan writes finish
func (o *Orchestrator) Wait() {
	o.saves.Wait()
}

// IsInputError reports whether err comes from an invalid request
func IsInputError(err error) bool {
	var ce *portfolio.ConstraintError
	return errors.As(err, &ce)
}
