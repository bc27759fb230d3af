package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/fiis/internal/database"
	"github.com/aristath/fiis/internal/modules/batch"
	testutil "github.com/aristath/fiis/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs int
	err  error
}

func (j *countingJob) Run() error {
	j.runs++
	return j.err
}

func (j *countingJob) Name() string { return "counting" }

func TestAddJobValidatesSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("0 0 9 * * *", &countingJob{}))
	require.NoError(t, s.AddJob("@daily", &countingJob{}))
	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))
	// Five-field specs lack the seconds field
	assert.Error(t, s.AddJob("0 9 * * *", &countingJob{}))

	assert.Equal(t, 2, s.JobCount())
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}

	err := s.RunNow(job)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, job.runs)

	record, ok := s.LastRuns()["counting"]
	require.True(t, ok)
	assert.True(t, record.Manual)
	assert.Equal(t, "boom", record.Error)

	job.err = nil
	require.NoError(t, s.RunNow(job))
	assert.Empty(t, s.LastRuns()["counting"].Error)
}

func TestScheduledJobRuns(t *testing.T) {
	s := New(zerolog.Nop())
	done := make(chan struct{}, 1)
	job := &signalJob{done: done}

	require.NoError(t, s.AddJob("@every 1s", job))
	s.Start()
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled job did not run")
	}
}

type signalJob struct {
	done chan struct{}
}

func (j *signalJob) Run() error {
	select {
	case j.done <- struct{}{}:
	default:
	}
	return nil
}

func (j *signalJob) Name() string { return "signal" }

func TestStartStop(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("@every 1h", &countingJob{}))
	s.Start()
	s.Stop()
}

type mockBatchRunner struct {
	mock.Mock
}

func (m *mockBatchRunner) Run(ctx context.Context) (*batch.Report, error) {
	args := m.Called(ctx)
	if report := args.Get(0); report != nil {
		return report.(*batch.Report), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestFetchDistributionsJob(t *testing.T) {
	runner := &mockBatchRunner{}
	runner.On("Run", mock.Anything).Return(&batch.Report{
		Results: []batch.TickerResult{{Ticker: "ABCD11", Status: batch.StatusFetchError}},
	}, nil).Once()

	job := NewFetchDistributionsJob(runner, time.Minute, zerolog.Nop())
	assert.Equal(t, "fetch_distributions", job.Name())
	// Per-ticker failures do not fail the job
	assert.NoError(t, job.Run())
	runner.AssertExpectations(t)
}

func TestFetchDistributionsJobSetsDeadline(t *testing.T) {
	runner := &mockBatchRunner{}
	runner.On("Run", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	})).Return(&batch.Report{}, nil)

	require.NoError(t, NewFetchDistributionsJob(runner, time.Minute, zerolog.Nop()).Run())
	runner.AssertExpectations(t)
}

func TestFetchDistributionsJobOverlap(t *testing.T) {
	runner := &mockBatchRunner{}
	runner.On("Run", mock.Anything).Return(nil, batch.ErrBatchInProgress)

	assert.NoError(t, NewFetchDistributionsJob(runner, time.Minute, zerolog.Nop()).Run())
}

func TestFetchDistributionsJobBatchError(t *testing.T) {
	runner := &mockBatchRunner{}
	runner.On("Run", mock.Anything).Return(nil, errors.New("failed to enumerate funds"))

	assert.Error(t, NewFetchDistributionsJob(runner, time.Minute, zerolog.Nop()).Run())
}

func TestCheckDatabasesJob(t *testing.T) {
	ledgerDB, cleanupLedger := testutil.NewTestDB(t, "ledger")
	defer cleanupLedger()
	cacheDB, cleanupCache := testutil.NewTestDB(t, "cache")
	defer cleanupCache()

	job := NewCheckDatabasesJob(map[string]*database.DB{
		"ledger":  ledgerDB,
		"cache":   cacheDB,
		"missing": nil,
	}, zerolog.Nop())

	assert.Equal(t, "check_databases", job.Name())
	assert.NoError(t, job.Run())
}

func TestCheckDatabasesJobNoDatabases(t *testing.T) {
	job := NewCheckDatabasesJob(nil, zerolog.New(nil).Level(zerolog.Disabled))
	assert.NoError(t, job.Run())
}
