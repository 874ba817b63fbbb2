package scheduler

import (
	"context"
	"time"

	"leadbot_backend/platform/logger"
)

const (
	defaultPartialCleanupInterval = time.Hour
	defaultPartialRetention       = 30 * 24 * time.Hour
)

// PartialPruner deletes partial requirements last touched before a cutoff.
type PartialPruner interface {
	DeletePartialRequirementsBefore(ctx context.Context, before time.Time) (int64, error)
}

// PartialLeadCleanup periodically removes partial leads that never completed.
// Finalized requirements are never touched.
type PartialLeadCleanup struct {
	repo      PartialPruner
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewPartialLeadCleanup(repo PartialPruner, log *logger.Logger, interval, retention time.Duration) *PartialLeadCleanup {
	if interval <= 0 {
		interval = defaultPartialCleanupInterval
	}
	if retention <= 0 {
		retention = defaultPartialRetention
	}

	return &PartialLeadCleanup{
		repo:      repo,
		log:       log,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

func (c *PartialLeadCleanup) Run(ctx context.Context) {
	if c == nil || c.repo == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *PartialLeadCleanup) cleanup(ctx context.Context) {
	before := c.now().Add(-c.retention)

	deleted, err := c.repo.DeletePartialRequirementsBefore(ctx, before)
	if err != nil {
		c.log.Warn("partial lead cleanup failed", "error", err)
		return
	}

	if deleted > 0 {
		c.log.Info("partial lead cleanup deleted stale partials", "deleted", deleted)
	}
}
