package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fiis/internal/clients/fundsexplorer"
	"github.com/aristath/fiis/internal/config"
	"github.com/aristath/fiis/internal/database"
	"github.com/aristath/fiis/internal/events"
	"github.com/aristath/fiis/internal/extraction"
	"github.com/aristath/fiis/internal/modules/batch"
	"github.com/aristath/fiis/internal/modules/reports"
	"github.com/aristath/fiis/internal/reliability"
	"github.com/aristath/fiis/internal/scheduler"
)

// InitializeServices creates the fetcher, the extraction pipeline, the batch
// runner, reporting and backups
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.LedgerRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}

	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	container.FundSiteClient = fundsexplorer.NewClient(cfg.Fetch, container.PageCacheRepo, log)
	container.Extractor = extraction.NewPipeline(log)

	container.BatchRunner = batch.NewRunner(
		container.LedgerDB.Conn(),
		container.LedgerRepo,
		container.FundSiteClient,
		container.Extractor,
		container.EventManager,
		log,
	)

	container.ReportsService = reports.NewService(container.LedgerDB.Conn(), container.LedgerRepo, log)

	var store reliability.ObjectStore
	if cfg.Backup.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s3Store, err := reliability.NewS3Store(ctx, cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to create backup store: %w", err)
		}
		store = s3Store
	}
	container.BackupService = reliability.NewBackupService(
		[]*database.DB{container.LedgerDB, container.CacheDB},
		store,
		cfg.DataDir,
		log,
	)

	container.Scheduler = scheduler.New(log)

	log.Debug().Bool("backups", store != nil).Msg("Services initialized")
	return nil
}
