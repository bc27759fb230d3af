// Package di wires databases, repositories, services and jobs into a Container.
package di

import (
	"github.com/aristath/fiis/internal/clientdata"
	"github.com/aristath/fiis/internal/clients/fundsexplorer"
	"github.com/aristath/fiis/internal/database"
	"github.com/aristath/fiis/internal/events"
	"github.com/aristath/fiis/internal/extraction"
	"github.com/aristath/fiis/internal/modules/batch"
	"github.com/aristath/fiis/internal/modules/ledger"
	"github.com/aristath/fiis/internal/modules/reports"
	"github.com/aristath/fiis/internal/reliability"
	"github.com/aristath/fiis/internal/scheduler"
)

// Container holds every long-lived dependency of the server and the CLI
type Container struct {
	LedgerDB *database.DB // Fund positions, distribution records and fetch runs
	CacheDB  *database.DB // Fetched pages, safe to delete

	EventBus     *events.Bus
	EventManager *events.Manager

	LedgerRepo    *ledger.Repository
	PageCacheRepo *clientdata.Repository

	FundSiteClient *fundsexplorer.Client
	Extractor      *extraction.Pipeline
	BatchRunner    *batch.Runner
	ReportsService *reports.Service
	BackupService  *reliability.BackupService

	Scheduler *scheduler.Scheduler
}

// JobInstances exposes the registered jobs for manual triggering.
// Backup is nil when no bucket is configured.
type JobInstances struct {
	FetchDistributions scheduler.Job
	PageCacheCleanup   scheduler.Job
	CheckDatabases     scheduler.Job
	Backup             scheduler.Job
}

// All returns the non-nil jobs keyed by name
func (j *JobInstances) All() map[string]scheduler.Job {
	jobs := make(map[string]scheduler.Job)
	for _, job := range []scheduler.Job{j.FetchDistributions, j.PageCacheCleanup, j.CheckDatabases, j.Backup} {
		if job != nil {
			jobs[job.Name()] = job
		}
	}
	return jobs
}

// Databases returns the open databases keyed by name
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB)
	if c.LedgerDB != nil {
		dbs[c.LedgerDB.Name()] = c.LedgerDB
	}
	if c.CacheDB != nil {
		dbs[c.CacheDB.Name()] = c.CacheDB
	}
	return dbs
}

// Close closes every database. It is safe on a partially built container.
func (c *Container) Close() {
	if c.CacheDB != nil {
		_ = c.CacheDB.Close()
	}
	if c.LedgerDB != nil {
		_ = c.LedgerDB.Close()
	}
}
