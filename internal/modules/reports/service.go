// Package reports derives portfolio-level statistics from the ledger.
package reports

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/fiis/internal/database"
	"github.com/aristath/fiis/internal/domain"
	"github.com/aristath/fiis/internal/modules/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TopYield is the fund with the largest distribution per share in a month
type TopYield struct {
	Ticker         string
	AmountPerShare decimal.Decimal
}

// TopPosition is the fund with the largest quantity held
type TopPosition struct {
	Ticker   string
	Quantity decimal.Decimal
}

// Summary aggregates the ledger for one month. Month-scoped fields are zero
// or nil when Month is nil or has no records.
type Summary struct {
	FundsCount     int
	Month          *domain.Month
	LastUpdate     *time.Time
	TotalEstimated decimal.Decimal
	AvgYield       decimal.Decimal
	TopYield       *TopYield
	TopPosition    *TopPosition
}

// Service computes reports over ledger.db
type Service struct {
	db   *sql.DB
	repo *ledger.Repository
	log  zerolog.Logger
}

// NewService creates a new reports service
func NewService(db *sql.DB, repo *ledger.Repository, log zerolog.Logger) *Service {
	return &Service{
		db:   db,
		repo: repo,
		log:  log.With().Str("service", "reports").Logger(),
	}
}

// Summary computes the summary for the latest month present in the ledger
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var summary *Summary
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		month, err := s.repo.LatestMonth(ctx, tx)
		if err != nil {
			return err
		}
		summary, err = s.summarize(ctx, tx, month)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute summary: %w", err)
	}
	return summary, nil
}

// Summarize computes the summary for month; nil month yields only the
// month-independent fields.
func (s *Service) Summarize(ctx context.Context, month *domain.Month) (*Summary, error) {
	var summary *Summary
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		summary, err = s.summarize(ctx, tx, month)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute summary: %w", err)
	}
	return summary, nil
}

// summarize reads everything through q so a transaction gives one consistent snapshot
func (s *Service) summarize(ctx context.Context, q database.Querier, month *domain.Month) (*Summary, error) {
	summary := &Summary{
		Month:          month,
		TotalEstimated: decimal.Zero,
		AvgYield:       decimal.Zero,
	}

	count, err := s.repo.CountFunds(ctx, q)
	if err != nil {
		return nil, err
	}
	summary.FundsCount = count

	if summary.LastUpdate, err = s.repo.LatestFetchTimestamp(ctx, q); err != nil {
		return nil, err
	}

	top, err := s.repo.TopPosition(ctx, q)
	if err != nil {
		return nil, err
	}
	if top != nil {
		summary.TopPosition = &TopPosition{Ticker: top.Ticker, Quantity: top.Quantity}
	}

	if month == nil {
		return summary, nil
	}

	records, err := s.repo.RecordsForMonth(ctx, q, *month)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return summary, nil
	}

	amountSum := decimal.Zero
	for _, rec := range records {
		amountSum = amountSum.Add(rec.AmountPerShare)
	}

	summary.TotalEstimated = ledger.SumTotals(records)
	summary.AvgYield = amountSum.Div(decimal.NewFromInt(int64(len(records))))
	// RecordsForMonth orders by amount descending, then ticker
	summary.TopYield = &TopYield{
		Ticker:         records[0].Ticker,
		AmountPerShare: records[0].AmountPerShare,
	}

	s.log.Debug().
		Str("month", month.String()).
		Int("records", len(records)).
		Str("total", summary.TotalEstimated.String()).
		Msg("Summary computed")

	return summary, nil
}

// Timeline returns the monthly totals of the last limit months, newest first
func (s *Service) Timeline(ctx context.Context, limit int) ([]domain.MonthlyTotal, error) {
	return s.repo.Timeline(ctx, s.db, limit)
}

// MonthRows returns the per-fund breakdown for month, or for the latest month
// when month is nil. The returned month is nil for an empty ledger.
func (s *Service) MonthRows(ctx context.Context, month *domain.Month) (*domain.Month, []domain.FundSnapshot, error) {
	if month == nil {
		latest, err := s.repo.LatestMonth(ctx, s.db)
		if err != nil {
			return nil, nil, err
		}
		if latest == nil {
			return nil, []domain.FundSnapshot{}, nil
		}
		month = latest
	}

	rows, err := s.repo.ListForMonth(ctx, s.db, *month)
	if err != nil {
		return nil, nil, err
	}
	return month, rows, nil
}
