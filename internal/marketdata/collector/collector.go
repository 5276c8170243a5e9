package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/logger"
	"github.com/wonny/sectorfolio/pkg/metrics"
)

// Source fetches daily closes of one ticker in [from, to]
type Source interface {
	DailyCloses(ctx context.Context, ticker string, from, to time.Time) ([]contracts.PricePoint, error)
}

// Store persists closes and reports what is already stored
type Store interface {
	SavePrices(ctx context.Context, points []contracts.PricePoint) (int, error)
	LatestDates(ctx context.Context, tickers []string) (map[string]time.Time, error)
}

// Collector fetches daily history with a bounded worker pool. A failing ticker
// is logged and counted; it never aborts the batch.
// ⭐ SSOT: history collection orchestration lives here only
type Collector struct {
	equities Source
	crypto   Source
	store    Store
	logger   *logger.Logger
	metrics  *metrics.Recorder
	workers  int
}

// Config holds collector configuration
type Config struct {
	Workers int // Number of concurrent workers
}

// NewCollector creates a new Collector instance
func NewCollector(equities, crypto Source, store Store, cfg Config, log *logger.Logger, rec *metrics.Recorder) *Collector {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Collector{
		equities: equities,
		crypto:   crypto,
		store:    store,
		logger:   log.WithField("module", "collector"),
		metrics:  rec,
		workers:  workers,
	}
}

// Result is the outcome of one ticker
type Result struct {
	Ticker   string `json:"ticker"`
	Count    int    `json:"count"`
	UpToDate bool   `json:"up_to_date,omitempty"`
	Error    error  `json:"-"`
}

// Summary aggregates a collection run
type Summary struct {
	Results []Result `json:"results"`
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Points  int      `json:"points"`
}

type job struct {
	ticker string
	from   time.Time
}

// Collect fetches the missing part of [from, to] for every ticker.
// Stored history is resumed from the day after the latest stored close.
func (c *Collector) Collect(ctx context.Context, tickers []string, from, to time.Time) (*Summary, error) {
	latest, err := c.store.LatestDates(ctx, tickers)
	if err != nil {
		return nil, fmt.Errorf("get latest dates: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker_count": len(tickers),
		"from":         from.Format("2006-01-02"),
		"to":           to.Format("2006-01-02"),
		"workers":      c.workers,
	}).Info("Starting price collection")

	summary := &Summary{Results: make([]Result, 0, len(tickers))}
	jobs := make([]job, 0, len(tickers))
	for _, ticker := range tickers {
		start := from
		if last, ok := latest[ticker]; ok && !last.Before(start) {
			start = last.AddDate(0, 0, 1)
		}
		if start.After(to) {
			summary.Results = append(summary.Results, Result{Ticker: ticker, UpToDate: true})
			summary.Success++
			continue
		}
		jobs = append(jobs, job{ticker: ticker, from: start})
	}

	// Create worker pool
	resultCh := make(chan Result, len(jobs))
	jobCh := make(chan job, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.worker(ctx, workerID, jobCh, resultCh, to)
		}(i)
	}

	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for result := range resultCh {
		summary.Results = append(summary.Results, result)
		if result.Error != nil {
			summary.Failed++
		} else {
			summary.Success++
			summary.Points += result.Count
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"success": summary.Success,
		"failed":  summary.Failed,
		"points":  summary.Points,
	}).Info("Price collection completed")

	return summary, nil
}

func (c *Collector) worker(ctx context.Context, workerID int, jobCh <-chan job, resultCh chan<- Result, to time.Time) {
	for j := range jobCh {
		select {
		case <-ctx.Done():
			resultCh <- Result{Ticker: j.ticker, Error: ctx.Err()}
			continue
		default:
		}

		count, err := c.collect(ctx, j.ticker, j.from, to)
		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"ticker": j.ticker,
			}).Error("Failed to collect prices")
			c.metrics.RecordSkipped("collector", "fetch_failed")
			resultCh <- Result{Ticker: j.ticker, Count: count, Error: err}
			continue
		}

		c.logger.WithFields(map[string]interface{}{
			"worker": workerID,
			"ticker": j.ticker,
			"count":  count,
		}).Debug("Collected prices")
		resultCh <- Result{Ticker: j.ticker, Count: count}
	}
}

func (c *Collector) collect(ctx context.Context, ticker string, from, to time.Time) (int, error) {
	source := c.equities
	if contracts.KindOf(ticker) == contracts.KindCrypto {
		source = c.crypto
	}

	points, err := source.DailyCloses(ctx, ticker, from, to)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", ticker, err)
	}
	for i := range points {
		points[i].Ticker = ticker
	}
	if len(points) == 0 {
		return 0, nil
	}

	saved, err := c.store.SavePrices(ctx, points)
	if err != nil {
		return saved, fmt.Errorf("save %s: %w", ticker, err)
	}
	return saved, nil
}
