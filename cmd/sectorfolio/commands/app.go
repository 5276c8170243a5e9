package commands

import (
	"fmt"
	"time"

	"github.com/wonny/sectorfolio/internal/analytics"
	"github.com/wonny/sectorfolio/internal/brain"
	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/internal/external/cbr"
	"github.com/wonny/sectorfolio/internal/external/mlforecast"
	"github.com/wonny/sectorfolio/internal/external/tinvest"
	"github.com/wonny/sectorfolio/internal/external/yahoo"
	"github.com/wonny/sectorfolio/internal/forecast"
	"github.com/wonny/sectorfolio/internal/marketdata"
	"github.com/wonny/sectorfolio/internal/marketdata/collector"
	"github.com/wonny/sectorfolio/internal/optimizer"
	"github.com/wonny/sectorfolio/internal/portfolio"
	"github.com/wonny/sectorfolio/internal/universe"
	"github.com/wonny/sectorfolio/pkg/config"
	"github.com/wonny/sectorfolio/pkg/database"
	"github.com/wonny/sectorfolio/pkg/httputil"
	"github.com/wonny/sectorfolio/pkg/logger"
	"github.com/wonny/sectorfolio/pkg/metrics"
	"github.com/wonny/sectorfolio/pkg/redis"
)

const cachePrefix = "sectorfolio"

// app holds every wired component; commands pick what they need
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Recorder
	db       *database.DB
	redis    *redis.Client
	universe *contracts.Universe

	quotes       *marketdata.QuoteService
	fx           *cbr.Client
	forecaster   *mlforecast.Client
	prices       *marketdata.Repository
	collector    *collector.Collector
	refresher    *marketdata.Refresher
	plans        *portfolio.Repository
	orchestrator *brain.Orchestrator
	comparator   *analytics.Comparator
}

// newApp loads config and wires the full dependency graph
func newApp() (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if universePath != "" {
		cfg.Universe.Path = universePath
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	var rec *metrics.Recorder
	if cfg.MetricsEnabled {
		rec = metrics.New()
	}

	// 3. Load universe
	u, err := universe.Load(cfg.Universe.Path)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}

	// 4. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 5. Connect to redis (disabled client is a pass-through)
	rc, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(rc, cachePrefix)
	limiter := redis.NewRateLimiter(rc, cachePrefix)

	// 6. Create external API clients
	httpClient := httputil.New(cfg, log).WithMetrics(rec)
	tinvestClient := tinvest.NewClient(cfg.TInvest, httpClient, log)
	yahooClient := yahoo.NewClient(cfg.Yahoo, httpClient.WithRateLimiter(limiter, redis.RateLimitConfig{
		Key:    "yahoo",
		Limit:  60,
		Window: time.Minute,
	}), log)
	cbrClient := cbr.NewClient(cfg.CBR, httpClient, cache, log)
	forecaster := mlforecast.NewClient(cfg.MLForecast, httpClient, cache, log)

	// 7. Market data services
	quotes := marketdata.NewQuoteService(tinvestClient, yahooClient, cache, log)
	prices := marketdata.NewRepository(db.Pool, cfg.Collector.BatchSize)
	equityHistory := marketdata.NewEquityHistory(quotes, tinvestClient)
	col := collector.NewCollector(equityHistory, yahooClient, prices, collector.Config{Workers: cfg.Collector.Workers}, log, rec)
	refresher := marketdata.NewRefresher(u, quotes, prices, log, rec)
	snapshot := marketdata.NewSnapshotService(u, prices, quotes, log)
	history := marketdata.NewHistoryService(col, prices, log)

	// 8. Portfolio pipeline
	plans := portfolio.NewRepository(db.Pool)
	optCfg := optimizer.DefaultConfig()
	optCfg.RiskFreeRate = cfg.Portfolio.RiskFreeRate

	opts := brain.DefaultOptions()
	opts.FallbackPolicy = cfg.Portfolio.FallbackPolicy
	opts.HistoryDays = cfg.Portfolio.HistoryDays

	orch := brain.NewOrchestrator(brain.Dependencies{
		FX:        cbrClient,
		Snapshot:  snapshot,
		History:   history,
		Views:     forecast.NewViewLoader(quotes, forecaster, quotes, log, rec),
		Optimizer: optimizer.New(optCfg, log, rec),
		Purchases: portfolio.NewPurchaseCalculator(quotes, forecaster, log, rec),
		Plans:     plans,
	}, opts, log, rec)

	// 9. Analytics
	comparator := analytics.NewComparator(u, marketdata.NewSeriesRouter(equityHistory, yahooClient), log)

	return &app{
		cfg:          cfg,
		log:          log,
		metrics:      rec,
		db:           db,
		redis:        rc,
		universe:     u,
		quotes:       quotes,
		fx:           cbrClient,
		forecaster:   forecaster,
		prices:       prices,
		collector:    col,
		refresher:    refresher,
		plans:        plans,
		orchestrator: orch,
		comparator:   comparator,
	}, nil
}

// Close waits for pending plan saves and releases connections
func (a *app) Close() {
	a.orchestrator.Wait()
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
	a.db.Close()
}
