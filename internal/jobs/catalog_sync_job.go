package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CatalogSyncJobName is the scheduler name of the geography catalog sync
const CatalogSyncJobName = "geography_catalog_sync"

// GeographySyncer synchronizes the geography catalog. It returns the number
// of localities written and of catalog entries skipped.
type GeographySyncer interface {
	SyncGeography(ctx context.Context) (synced int, skipped int, err error)
}

// CatalogSyncJob runs a geography catalog sync within a timeout
type CatalogSyncJob struct {
	syncer  GeographySyncer
	logger  *zap.Logger
	timeout time.Duration
}

func NewCatalogSyncJob(syncer GeographySyncer, logger *zap.Logger, timeout time.Duration) *CatalogSyncJob {
	return &CatalogSyncJob{
		syncer:  syncer,
		logger:  logger,
		timeout: timeout,
	}
}

// Run is called by the scheduler. Failures are logged; the next run retries.
func (j *CatalogSyncJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	synced, skipped, err := j.syncer.SyncGeography(ctx)
	if err != nil {
		j.logger.Error("geography catalog sync failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("geography catalog sync job completed",
		zap.Int("synced", synced),
		zap.Int("skipped", skipped),
		zap.Duration("duration", time.Since(start)))
}

// RegisterCatalogSyncJob schedules the sync. With runAtStartup a first sync
// runs in the background right away.
func RegisterCatalogSyncJob(scheduler *Scheduler, syncer GeographySyncer, logger *zap.Logger, cronExpr string, timeout time.Duration, runAtStartup bool) error {
	job := NewCatalogSyncJob(syncer, logger, timeout)
	if runAtStartup {
		go job.Run()
	}
	return scheduler.AddJob(CatalogSyncJobName, cronExpr, job.Run)
}
