// Package batch runs the fetch-extract-record loop over every tracked fund.
package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/fiis/internal/clients/fundsexplorer"
	"github.com/aristath/fiis/internal/database"
	"github.com/aristath/fiis/internal/domain"
	"github.com/aristath/fiis/internal/events"
	"github.com/aristath/fiis/internal/modules/ledger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrBatchInProgress is returned when a run is requested while another is active
var ErrBatchInProgress = errors.New("batch fetch already in progress")

// Fetcher retrieves the page of one ticker
type Fetcher interface {
	Fetch(ctx context.Context, ticker string) (*fundsexplorer.Page, error)
}

// Extractor finds the latest distribution per share in a page
type Extractor interface {
	Extract(document string, ticker string) (decimal.Decimal, error)
}

// Status is the outcome of one ticker in a run
type Status string

const (
	StatusOK              Status = "ok"
	StatusFetchError      Status = "fetch_error"
	StatusExtractionError Status = "extraction_error"
	StatusStorageError    Status = "storage_error"
)

// TickerResult is the outcome for one fund
type TickerResult struct {
	Ticker         string
	Status         Status
	AmountPerShare decimal.Decimal
	Total          decimal.Decimal
	Err            error
}

// Report summarizes a run
type Report struct {
	RunID      string
	Month      domain.Month
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []TickerResult
}

// Succeeded counts tickers whose record was written
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusOK {
			n++
		}
	}
	return n
}

// Failed counts tickers that produced no record
func (r *Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Runner executes batch runs. At most one run is active at a time.
type Runner struct {
	db        *sql.DB
	repo      *ledger.Repository
	fetcher   Fetcher
	extractor Extractor
	events    *events.Manager
	log       zerolog.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewRunner creates a new batch runner. eventManager may be nil.
func NewRunner(db *sql.DB, repo *ledger.Repository, fetcher Fetcher, extractor Extractor, eventManager *events.Manager, log zerolog.Logger) *Runner {
	return &Runner{
		db:        db,
		repo:      repo,
		fetcher:   fetcher,
		extractor: extractor,
		events:    eventManager,
		log:       log.With().Str("component", "batch").Logger(),
		now:       time.Now,
	}
}

// Run fetches every tracked fund once and records its distribution for the
// current calendar month. Per-ticker failures are reported, never returned;
// an error means the batch itself could not run. On context cancellation the
// partial report is returned alongside the error.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if !r.mu.TryLock() {
		return nil, ErrBatchInProgress
	}
	defer r.mu.Unlock()

	funds, err := r.repo.ListFunds(ctx, r.db)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate funds: %w", err)
	}

	started := r.now()
	report := &Report{
		RunID:     uuid.New().String(),
		Month:     domain.MonthOf(started),
		StartedAt: started,
		Results:   make([]TickerResult, 0, len(funds)),
	}

	r.log.Info().
		Str("run_id", report.RunID).
		Str("month", report.Month.String()).
		Int("funds", len(funds)).
		Msg("Batch fetch started")
	r.emit(&events.BatchStartedData{RunID: report.RunID, Month: report.Month.String(), Tickers: len(funds)})

	var runErr error
	for _, fund := range funds {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		result := r.processTicker(ctx, report, fund.Ticker)
		report.Results = append(report.Results, result)
	}

	report.FinishedAt = r.now()
	r.recordRun(report)

	r.log.Info().
		Str("run_id", report.RunID).
		Int("succeeded", report.Succeeded()).
		Int("failed", report.Failed()).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Batch fetch completed")
	r.emit(&events.BatchCompletedData{
		RunID:      report.RunID,
		Month:      report.Month.String(),
		Succeeded:  report.Succeeded(),
		Failed:     report.Failed(),
		DurationMs: report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	})

	if runErr != nil {
		return report, fmt.Errorf("batch fetch interrupted: %w", runErr)
	}
	return report, nil
}

func (r *Runner) processTicker(ctx context.Context, report *Report, ticker string) TickerResult {
	log := r.log.With().Str("ticker", ticker).Logger()

	page, err := r.fetcher.Fetch(ctx, ticker)
	if err != nil {
		log.Warn().Err(err).Msg("Fetch failed")
		return r.failed(report, ticker, StatusFetchError, err)
	}

	amount, err := r.extractor.Extract(page.Body, ticker)
	if err != nil {
		log.Warn().Err(err).Msg("No distribution found")
		return r.failed(report, ticker, StatusExtractionError, err)
	}

	var record domain.DividendRecord
	err = database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		// Quantity is read at write time so the total reflects current holdings
		fund, err := r.repo.GetFund(ctx, tx, ticker)
		if err != nil {
			return err
		}
		if fund == nil {
			return fmt.Errorf("fund %s is no longer tracked", ticker)
		}
		record = domain.NewDividendRecord(*fund, report.Month, amount, r.now(), page.URL)
		return r.repo.UpsertDistribution(ctx, tx, record)
	})
	if err != nil {
		storageErr := &domain.StorageError{Op: "upsert distribution", Ticker: ticker, Err: err}
		log.Error().Err(storageErr).Msg("Failed to record distribution")
		return r.failed(report, ticker, StatusStorageError, storageErr)
	}

	log.Info().
		Str("amount_per_share", amount.String()).
		Str("total", record.Total.String()).
		Msg("Distribution recorded")
	r.emit(&events.TickerFetchedData{
		RunID:          report.RunID,
		Ticker:         ticker,
		AmountPerShare: amount.String(),
		Total:          record.Total.String(),
	})

	return TickerResult{
		Ticker:         ticker,
		Status:         StatusOK,
		AmountPerShare: amount,
		Total:          record.Total,
	}
}

func (r *Runner) failed(report *Report, ticker string, status Status, err error) TickerResult {
	r.emit(&events.TickerFailedData{
		RunID:  report.RunID,
		Ticker: ticker,
		Stage:  string(status),
		Error:  err.Error(),
	})
	return TickerResult{Ticker: ticker, Status: status, Err: err}
}

// recordRun persists the run summary. A failure here does not fail the run.
func (r *Runner) recordRun(report *Report) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := r.repo.InsertRun(ctx, r.db, domain.FetchRun{
		ID:         report.RunID,
		Month:      report.Month,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Succeeded:  report.Succeeded(),
		Failed:     report.Failed(),
	})
	if err != nil {
		r.log.Error().Err(err).Str("run_id", report.RunID).Msg("Failed to record fetch run")
	}
}

// Runs lists the most recent runs, newest first
func (r *Runner) Runs(ctx context.Context, limit int) ([]domain.FetchRun, error) {
	return r.repo.ListRuns(ctx, r.db, limit)
}

func (r *Runner) emit(data events.EventData) {
	if r.events == nil {
		return
	}
	r.events.EmitTyped("batch", data)
}
