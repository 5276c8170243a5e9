package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sectorfolio/pkg/logger"
)

// PlanPruner deletes stored purchase plans
type PlanPruner interface {
	PrunePlans(ctx context.Context, cutoff time.Time) (int64, error)
}

// PlanCleanupJob removes purchase plans past their retention
type PlanCleanupJob struct {
	pruner    PlanPruner
	retention time.Duration
	schedule  string
	logger    *logger.Logger
	now       func() time.Time
}

// NewPlanCleanupJob creates a new plan cleanup job
func NewPlanCleanupJob(p PlanPruner, retentionDays int, schedule string, log *logger.Logger) *PlanCleanupJob {
	return &PlanCleanupJob{
		pruner:    p,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		schedule:  schedule,
		logger:    log,
		now:       time.Now,
	}
}

// Name returns the job name
func (j *PlanCleanupJob) Name() string {
	return "plan_cleanup"
}

// Schedule returns the cron schedule
func (j *PlanCleanupJob) Schedule() string {
	return j.schedule
}

// Run executes the cleanup
func (j *PlanCleanupJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled plan cleanup")

	count, err := j.pruner.PrunePlans(ctx, j.now().Add(-j.retention))
	if err != nil {
		return fmt.Errorf("prune plans: %w", err)
	}

	if count > 0 {
		j.logger.WithField("removed", count).Info("Plan cleanup completed")
	}

	return nil
}
