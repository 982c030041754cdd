package cron

import (
	"context"
	"fmt"

	"github.com/feedlift/feedlift-backend/internal/sync"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

type autoSyncRunner interface {
	AutoSync(ctx context.Context, force bool) (*sync.BatchResult, error)
}

// AutoSyncJobParams configure the periodic order status sync.
type AutoSyncJobParams struct {
	Logger *logger.Logger
	Sync   autoSyncRunner
}

// NewAutoSyncJob builds the job that advances stale orders.
func NewAutoSyncJob(params AutoSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sync == nil {
		return nil, fmt.Errorf("sync service required")
	}
	return &autoSyncJob{
		logg: params.Logger,
		sync: params.Sync,
	}, nil
}

type autoSyncJob struct {
	logg *logger.Logger
	sync autoSyncRunner
}

func (j *autoSyncJob) Name() string { return "order-auto-sync" }

func (j *autoSyncJob) Run(ctx context.Context) error {
	batch, err := j.sync.AutoSync(ctx, false)
	if err != nil {
		return fmt.Errorf("auto sync: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"checked": batch.Checked,
		"updated": batch.Updated,
		"failed":  batch.Failed,
	})
	j.logg.Info(logCtx, "order auto sync cycle complete")
	return nil
}
