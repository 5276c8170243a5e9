package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/sectorfolio/internal/marketdata"
	"github.com/wonny/sectorfolio/pkg/logger"
)

// SectorRefresher refreshes stored sector data
type SectorRefresher interface {
	Refresh(ctx context.Context) (*marketdata.RefreshResult, error)
}

// SectorRefreshJob keeps sector_data current
// ⭐ SSOT: sector data refresh schedule lives in this job only
type SectorRefreshJob struct {
	refresher SectorRefresher
	schedule  string
	logger    *logger.Logger
}

// NewSectorRefreshJob creates a new sector refresh job
func NewSectorRefreshJob(r SectorRefresher, schedule string, log *logger.Logger) *SectorRefreshJob {
	return &SectorRefreshJob{
		refresher: r,
		schedule:  schedule,
		logger:    log,
	}
}

// Name returns the job name
func (j *SectorRefreshJob) Name() string {
	return "sector_refresh"
}

// Schedule returns the cron schedule
func (j *SectorRefreshJob) Schedule() string {
	return j.schedule
}

// Run executes the refresh
func (j *SectorRefreshJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled sector refresh")

	result, err := j.refresher.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh sector data: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"updated": result.Updated,
		"skipped": len(result.Skipped),
	}).Info("Sector refresh completed")

	return nil
}
