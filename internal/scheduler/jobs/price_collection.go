package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sectorfolio/internal/marketdata/collector"
	"github.com/wonny/sectorfolio/pkg/logger"
)

// HistoryCollector fetches daily closes into storage
type HistoryCollector interface {
	Collect(ctx context.Context, tickers []string, from, to time.Time) (*collector.Summary, error)
}

// PriceCollectionJob tops up stored price history for the whole universe
// ⭐ SSOT: price history collection schedule lives in this job only
type PriceCollectionJob struct {
	collector HistoryCollector
	tickers   []string
	days      int
	schedule  string
	logger    *logger.Logger
	now       func() time.Time
}

// NewPriceCollectionJob creates a new price collection job covering the last days
func NewPriceCollectionJob(c HistoryCollector, tickers []string, days int, schedule string, log *logger.Logger) *PriceCollectionJob {
	return &PriceCollectionJob{
		collector: c,
		tickers:   tickers,
		days:      days,
		schedule:  schedule,
		logger:    log,
		now:       time.Now,
	}
}

// Name returns the job name
func (j *PriceCollectionJob) Name() string {
	return "price_collection"
}

// Schedule returns the cron schedule
func (j *PriceCollectionJob) Schedule() string {
	return j.schedule
}

// Run executes the collection. Per-ticker failures are logged by the
// collector; the job fails only when every ticker failed.
func (j *PriceCollectionJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled price collection")

	to := j.now().UTC()
	from := to.AddDate(0, 0, -j.days)

	summary, err := j.collector.Collect(ctx, j.tickers, from, to)
	if err != nil {
		return fmt.Errorf("collect prices: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"success": summary.Success,
		"failed":  summary.Failed,
		"points":  summary.Points,
	}).Info("Price collection completed")

	if summary.Failed > 0 && summary.Success == 0 {
		return fmt.Errorf("collect prices: all %d tickers failed", summary.Failed)
	}

	return nil
}
