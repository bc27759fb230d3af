package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/fiis/internal/database"
	"github.com/aristath/fiis/internal/domain"
	"github.com/aristath/fiis/internal/extraction"
	"github.com/shopspring/decimal"
)

// ErrInvalidPosition is returned for an empty ticker or a negative quantity
var ErrInvalidPosition = errors.New("invalid fund position")

const fundColumns = `id, ticker, qty, created_at`

// ParseQuantity reads a user-entered share count ("100", "1.250", "12,5").
// Signed input is rejected up front, since the numeric cleanup would
// otherwise drop the sign.
func ParseQuantity(text string) (decimal.Decimal, error) {
	if strings.ContainsAny(text, "-+\u2212") {
		return decimal.Zero, fmt.Errorf("%w: signed quantity %q", ErrInvalidPosition, strings.TrimSpace(text))
	}
	qty, err := extraction.ParseAmount(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	return qty, nil
}

// UpsertFund registers ticker with qty, or replaces an existing position
// wholesale (quantity and created_at). The fund keeps its id, so its
// distribution history survives.
func (r *Repository) UpsertFund(ctx context.Context, q database.Querier, ticker string, qty decimal.Decimal) (*domain.FundPosition, error) {
	ticker = domain.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("%w: empty ticker", ErrInvalidPosition)
	}
	if qty.IsNegative() {
		return nil, fmt.Errorf("%w: negative quantity %s for %s", ErrInvalidPosition, qty, ticker)
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO fiis (ticker, qty, created_at) VALUES (?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET qty = excluded.qty, created_at = excluded.created_at
	`, ticker, qty.String(), domain.FormatTimestamp(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert fund %s: %w", ticker, err)
	}

	fund, err := r.GetFund(ctx, q, ticker)
	if err != nil {
		return nil, err
	}
	if fund == nil {
		return nil, fmt.Errorf("fund %s missing after upsert", ticker)
	}

	r.log.Debug().Str("ticker", ticker).Str("qty", qty.String()).Msg("Fund upserted")
	return fund, nil
}

// UpsertFunds applies UpsertFund to every position and returns how many were written
func (r *Repository) UpsertFunds(ctx context.Context, q database.Querier, positions []domain.FundPosition) (int, error) {
	written := 0
	for _, p := range positions {
		if _, err := r.UpsertFund(ctx, q, p.Ticker, p.Quantity); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// GetFund returns the position for ticker, or nil if it is not tracked
func (r *Repository) GetFund(ctx context.Context, q database.Querier, ticker string) (*domain.FundPosition, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+fundColumns+" FROM fiis WHERE ticker = ?",
		domain.NormalizeTicker(ticker),
	)

	fund, err := scanFund(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fund: %w", err)
	}
	return fund, nil
}

// ListFunds returns every tracked position ordered by ticker
func (r *Repository) ListFunds(ctx context.Context, q database.Querier) ([]domain.FundPosition, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+fundColumns+" FROM fiis ORDER BY ticker")
	if err != nil {
		return nil, fmt.Errorf("failed to list funds: %w", err)
	}
	defer rows.Close()

	funds := make([]domain.FundPosition, 0)
	for rows.Next() {
		fund, err := scanFund(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}
		funds = append(funds, *fund)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating funds: %w", err)
	}
	return funds, nil
}

// DeleteFund stops tracking ticker. Its distribution records are removed by
// the foreign key cascade. Reports whether a fund was deleted.
func (r *Repository) DeleteFund(ctx context.Context, q database.Querier, ticker string) (bool, error) {
	ticker = domain.NormalizeTicker(ticker)
	result, err := q.ExecContext(ctx, "DELETE FROM fiis WHERE ticker = ?", ticker)
	if err != nil {
		return false, fmt.Errorf("failed to delete fund %s: %w", ticker, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected > 0 {
		r.log.Info().Str("ticker", ticker).Msg("Fund deleted")
	}
	return affected > 0, nil
}

// CountFunds returns the number of tracked positions
func (r *Repository) CountFunds(ctx context.Context, q database.Querier) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM fiis").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count funds: %w", err)
	}
	return count, nil
}

// TopPosition returns the fund with the largest quantity, ties going to the
// alphabetically first ticker. Returns nil when no fund is tracked.
func (r *Repository) TopPosition(ctx context.Context, q database.Querier) (*domain.FundPosition, error) {
	funds, err := r.ListFunds(ctx, q)
	if err != nil {
		return nil, err
	}

	var top *domain.FundPosition
	for i := range funds {
		// funds is ordered by ticker, so strict comparison keeps the first on ties
		if top == nil || funds[i].Quantity.GreaterThan(top.Quantity) {
			top = &funds[i]
		}
	}
	return top, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFund(row rowScanner) (*domain.FundPosition, error) {
	var (
		fund      domain.FundPosition
		qty       string
		createdAt string
	)
	if err := row.Scan(&fund.ID, &fund.Ticker, &qty, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if fund.Quantity, err = parseDecimal("qty", qty); err != nil {
		return nil, err
	}
	if fund.CreatedAt, err = domain.ParseTimestamp(createdAt); err != nil {
		return nil, err
	}
	return &fund, nil
}
