package scheduler

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/aristath/fiis/internal/database"
	"github.com/rs/zerolog"
)

// CheckDatabasesJob verifies integrity of the SQLite databases and reports
// WAL growth
type CheckDatabasesJob struct {
	log       zerolog.Logger
	databases map[string]*database.DB
}

// NewCheckDatabasesJob creates a new CheckDatabasesJob. Nil databases are skipped.
func NewCheckDatabasesJob(databases map[string]*database.DB, log zerolog.Logger) *CheckDatabasesJob {
	return &CheckDatabasesJob{
		log:       log.With().Str("job", "check_databases").Logger(),
		databases: databases,
	}
}

// Name returns the job name
func (j *CheckDatabasesJob) Name() string {
	return "check_databases"
}

// Run executes the integrity and WAL checks
func (j *CheckDatabasesJob) Run() error {
	names := make([]string, 0, len(j.databases))
	for name := range j.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	checked := 0
	for _, name := range names {
		db := j.databases[name]
		if db == nil {
			j.log.Warn().Str("database", name).Msg("Database not initialized, skipping")
			continue
		}

		if err := checkDatabaseIntegrity(db.Conn()); err != nil {
			j.log.Error().
				Err(err).
				Str("database", name).
				Msg("Database integrity check failed")
			return fmt.Errorf("database %s is corrupted: %w", name, err)
		}

		j.checkWAL(name, db.Conn())
		checked++
	}

	j.log.Info().Int("checked", checked).Msg("Database check completed")
	return nil
}

// checkDatabaseIntegrity runs SQLite's PRAGMA integrity_check
func checkDatabaseIntegrity(db *sql.DB) error {
	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check returned: %s", result)
	}
	return nil
}

// checkWAL runs a passive checkpoint and warns when the WAL keeps growing
func (j *CheckDatabasesJob) checkWAL(name string, db *sql.DB) {
	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, walFrames, checkpointed int
	if err := db.QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &walFrames, &checkpointed); err != nil {
		j.log.Warn().Err(err).Str("database", name).Msg("Failed to check WAL checkpoint")
		return
	}

	if walFrames > 1000 {
		j.log.Warn().
			Str("database", name).
			Int("wal_frames", walFrames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, checkpoint may be needed")
		return
	}
	j.log.Debug().Str("database", name).Int("wal_frames", walFrames).Msg("WAL checkpoint status OK")
}
