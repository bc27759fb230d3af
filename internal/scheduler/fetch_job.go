package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/fiis/internal/modules/batch"
	"github.com/rs/zerolog"
)

// BatchRunner is the batch surface the fetch job drives
type BatchRunner interface {
	Run(ctx context.Context) (*batch.Report, error)
}

// FetchDistributionsJob runs the batch fetch over every tracked fund
type FetchDistributionsJob struct {
	runner  BatchRunner
	timeout time.Duration
	log     zerolog.Logger
}

// NewFetchDistributionsJob creates the job. timeout bounds a whole run.
func NewFetchDistributionsJob(runner BatchRunner, timeout time.Duration, log zerolog.Logger) *FetchDistributionsJob {
	return &FetchDistributionsJob{
		runner:  runner,
		timeout: timeout,
		log:     log.With().Str("job", "fetch_distributions").Logger(),
	}
}

// Name returns the job name
func (j *FetchDistributionsJob) Name() string {
	return "fetch_distributions"
}

// Run executes one batch. An overlapping manual run is not a failure.
func (j *FetchDistributionsJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	report, err := j.runner.Run(ctx)
	if errors.Is(err, batch.ErrBatchInProgress) {
		j.log.Info().Msg("Skipping scheduled fetch, a run is already in progress")
		return nil
	}
	if err != nil {
		return err
	}

	if report.Failed() > 0 {
		j.log.Warn().
			Int("succeeded", report.Succeeded()).
			Int("failed", report.Failed()).
			Msg("Scheduled fetch finished with failures")
	}
	return nil
}
