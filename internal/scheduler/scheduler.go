// Package scheduler runs the fetch, cleanup and backup jobs on cron schedules
// and keeps the outcome of each job's latest run.
package scheduler

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one unit of background work
type Job interface {
	Run() error
	Name() string
}

// RunRecord is the outcome of a job's most recent run
type RunRecord struct {
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Manual     bool      `json:"manual"`
	Error      string    `json:"error,omitempty"`
}

// Scheduler runs jobs on cron schedules. A job whose previous run has not
// finished is skipped, and a panicking job is recovered and logged.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu       sync.Mutex
	lastRuns map[string]RunRecord
}

// New creates a scheduler. Schedules carry a leading seconds field.
func New(log zerolog.Logger) *Scheduler {
	log = log.With().Str("component", "scheduler").Logger()
	cronLog := cronLogger{log: log}

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		log:      log,
		lastRuns: make(map[string]RunRecord),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers job under a cron schedule, e.g.
//   - "0 0 9 * * *"        - Every day at 09:00
//   - "0 */30 * * * *"     - Every 30 minutes
//   - "@daily"             - Every day at midnight
//   - "@every 6h"          - Every six hours
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddJob(schedule, cron.FuncJob(func() {
		_ = s.run(job, false)
	}))
	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately, outside its schedule
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.run(job, true)
}

// JobCount returns the number of scheduled jobs
func (s *Scheduler) JobCount() int {
	return len(s.cron.Entries())
}

// LastRuns returns the latest outcome per job name
func (s *Scheduler) LastRuns() map[string]RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := make(map[string]RunRecord, len(s.lastRuns))
	for name, record := range s.lastRuns {
		runs[name] = record
	}
	return runs
}

func (s *Scheduler) run(job Job, manual bool) error {
	log := s.log.With().Str("job", job.Name()).Logger()
	log.Debug().Msg("Running job")

	started := time.Now()
	err := job.Run()

	record := RunRecord{
		StartedAt:  started.UTC(),
		DurationMs: time.Since(started).Milliseconds(),
		Manual:     manual,
	}
	if err != nil {
		record.Error = err.Error()
		log.Error().Err(err).Msg("Job failed")
	} else {
		log.Debug().Dur("duration", time.Since(started)).Msg("Job completed")
	}

	s.mu.Lock()
	s.lastRuns[job.Name()] = record
	s.mu.Unlock()

	return err
}

// cronLogger adapts zerolog to cron's logger interface
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
