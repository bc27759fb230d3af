package di

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fiis/internal/clientdata"
	"github.com/aristath/fiis/internal/config"
	"github.com/aristath/fiis/internal/reliability"
	"github.com/aristath/fiis/internal/scheduler"
)

const (
	pageCacheCleanupSchedule = "0 */30 * * * *"
	checkDatabasesSchedule   = "0 30 3 * * *"

	fetchRunTimeout = 30 * time.Minute
)

// RegisterJobs creates the background jobs and adds them to the scheduler.
// The fetch job is created even when FETCH_SCHEDULE is empty so it can still
// be triggered by hand.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.Scheduler == nil {
		return nil, fmt.Errorf("services must be initialized before jobs")
	}

	instances := &JobInstances{
		FetchDistributions: scheduler.NewFetchDistributionsJob(container.BatchRunner, fetchRunTimeout, log),
		PageCacheCleanup:   clientdata.NewCleanupJob(container.PageCacheRepo, log),
		CheckDatabases:     scheduler.NewCheckDatabasesJob(container.Databases(), log),
	}

	if cfg.Fetch.Schedule != "" {
		if err := container.Scheduler.AddJob(cfg.Fetch.Schedule, instances.FetchDistributions); err != nil {
			return nil, fmt.Errorf("failed to register fetch job: %w", err)
		}
	}
	if err := container.Scheduler.AddJob(pageCacheCleanupSchedule, instances.PageCacheCleanup); err != nil {
		return nil, fmt.Errorf("failed to register page cache cleanup job: %w", err)
	}
	if err := container.Scheduler.AddJob(checkDatabasesSchedule, instances.CheckDatabases); err != nil {
		return nil, fmt.Errorf("failed to register database check job: %w", err)
	}

	if container.BackupService.HasObjectStore() {
		instances.Backup = reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, log)
		if err := container.Scheduler.AddJob(cfg.Backup.Schedule, instances.Backup); err != nil {
			return nil, fmt.Errorf("failed to register backup job: %w", err)
		}
	}

	log.Info().Int("jobs", container.Scheduler.JobCount()).Msg("Jobs registered")
	return instances, nil
}
