package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/aristath/fiis/internal/database"
	"github.com/aristath/fiis/internal/domain"
	"github.com/shopspring/decimal"
)

// UpsertDistribution stores record for its (fund, month), fully replacing a
// previous record for the same pair.
func (r *Repository) UpsertDistribution(ctx context.Context, q database.Querier, record domain.DividendRecord) error {
	if record.AmountPerShare.IsNegative() {
		return fmt.Errorf("negative amount per share %s for fund %d", record.AmountPerShare, record.FundID)
	}
	if _, err := domain.ParseMonth(record.AsOfMonth.String()); err != nil {
		return err
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO dividends (fii_id, as_of_month, amount_per_share, qty, total, fetched_at, source_url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fii_id, as_of_month) DO UPDATE SET
			amount_per_share = excluded.amount_per_share,
			qty = excluded.qty,
			total = excluded.total,
			fetched_at = excluded.fetched_at,
			source_url = excluded.source_url
	`,
		record.FundID,
		record.AsOfMonth.String(),
		record.AmountPerShare.String(),
		record.QuantitySnapshot.String(),
		record.Total.String(),
		domain.FormatTimestamp(record.FetchedAt),
		record.SourceURL,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert distribution for fund %d in %s: %w", record.FundID, record.AsOfMonth, err)
	}

	r.log.Debug().
		Int64("fund_id", record.FundID).
		Str("month", record.AsOfMonth.String()).
		Str("amount", record.AmountPerShare.String()).
		Msg("Distribution upserted")
	return nil
}

// LatestMonth returns the most recent month with any record, or nil for an empty ledger
func (r *Repository) LatestMonth(ctx context.Context, q database.Querier) (*domain.Month, error) {
	var month sql.NullString
	if err := q.QueryRowContext(ctx, "SELECT MAX(as_of_month) FROM dividends").Scan(&month); err != nil {
		return nil, fmt.Errorf("failed to get latest month: %w", err)
	}
	if !month.Valid {
		return nil, nil
	}
	m := domain.Month(month.String)
	return &m, nil
}

// LatestFetchTimestamp returns the newest fetched_at across all records, or nil
func (r *Repository) LatestFetchTimestamp(ctx context.Context, q database.Querier) (*time.Time, error) {
	var fetchedAt sql.NullString
	// Fixed-width timestamps make the lexical MAX the chronological one
	if err := q.QueryRowContext(ctx, "SELECT MAX(fetched_at) FROM dividends").Scan(&fetchedAt); err != nil {
		return nil, fmt.Errorf("failed to get latest fetch timestamp: %w", err)
	}
	if !fetchedAt.Valid {
		return nil, nil
	}

	t, err := domain.ParseTimestamp(fetchedAt.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListForMonth returns one row per tracked fund, ordered by ticker. Funds with
// no record for month report zero amounts and HasDividend=false.
func (r *Repository) ListForMonth(ctx context.Context, q database.Querier, month domain.Month) ([]domain.FundSnapshot, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT f.ticker, f.qty, d.amount_per_share, d.total
		FROM fiis f
		LEFT JOIN dividends d ON d.fii_id = f.id AND d.as_of_month = ?
		ORDER BY f.ticker
	`, month.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list funds for %s: %w", month, err)
	}
	defer rows.Close()

	snapshots := make([]domain.FundSnapshot, 0)
	for rows.Next() {
		var (
			s             domain.FundSnapshot
			qty           string
			amount, total sql.NullString
		)
		if err := rows.Scan(&s.Ticker, &qty, &amount, &total); err != nil {
			return nil, fmt.Errorf("failed to scan fund snapshot: %w", err)
		}

		if s.Quantity, err = parseDecimal("qty", qty); err != nil {
			return nil, err
		}
		if s.AmountPerShare, err = parseNullDecimal("amount_per_share", amount); err != nil {
			return nil, err
		}
		if s.Total, err = parseNullDecimal("total", total); err != nil {
			return nil, err
		}
		s.HasDividend = amount.Valid

		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund snapshots: %w", err)
	}
	return snapshots, nil
}

// Timeline returns per-month sums of record totals for the most recent limit
// months, newest first.
func (r *Repository) Timeline(ctx context.Context, q database.Querier, limit int) ([]domain.MonthlyTotal, error) {
	if limit <= 0 {
		return []domain.MonthlyTotal{}, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT as_of_month, total
		FROM dividends
		WHERE as_of_month IN (
			SELECT DISTINCT as_of_month FROM dividends ORDER BY as_of_month DESC LIMIT ?
		)
		ORDER BY as_of_month DESC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	defer rows.Close()

	// Totals are summed as decimals; SQL SUM over TEXT would go through floats
	items := make([]domain.MonthlyTotal, 0, limit)
	for rows.Next() {
		var month, total string
		if err := rows.Scan(&month, &total); err != nil {
			return nil, fmt.Errorf("failed to scan timeline row: %w", err)
		}

		value, err := parseDecimal("total", total)
		if err != nil {
			return nil, err
		}

		if n := len(items); n > 0 && items[n-1].Month == domain.Month(month) {
			items[n-1].Total = items[n-1].Total.Add(value)
			continue
		}
		items = append(items, domain.MonthlyTotal{Month: domain.Month(month), Total: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timeline: %w", err)
	}
	return items, nil
}

// RecordsForMonth returns the records of month joined with their tickers,
// largest amount per share first and ties by ticker.
func (r *Repository) RecordsForMonth(ctx context.Context, q database.Querier, month domain.Month) ([]domain.DividendRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT d.fii_id, f.ticker, d.as_of_month, d.amount_per_share, d.qty, d.total, d.fetched_at, d.source_url
		FROM dividends d
		JOIN fiis f ON f.id = d.fii_id
		WHERE d.as_of_month = ?
	`, month.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query records for %s: %w", month, err)
	}
	defer rows.Close()

	records := make([]domain.DividendRecord, 0)
	for rows.Next() {
		var (
			rec                    domain.DividendRecord
			asOf                   string
			amount, qty, total, at string
		)
		if err := rows.Scan(&rec.FundID, &rec.Ticker, &asOf, &amount, &qty, &total, &at, &rec.SourceURL); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		rec.AsOfMonth = domain.Month(asOf)
		if rec.AmountPerShare, err = parseDecimal("amount_per_share", amount); err != nil {
			return nil, err
		}
		if rec.QuantitySnapshot, err = parseDecimal("qty", qty); err != nil {
			return nil, err
		}
		if rec.Total, err = parseDecimal("total", total); err != nil {
			return nil, err
		}
		if rec.FetchedAt, err = domain.ParseTimestamp(at); err != nil {
			return nil, err
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if c := records[i].AmountPerShare.Cmp(records[j].AmountPerShare); c != 0 {
			return c > 0
		}
		return records[i].Ticker < records[j].Ticker
	})
	return records, nil
}

// SumTotals adds up the totals of records
func SumTotals(records []domain.DividendRecord) decimal.Decimal {
	sum := decimal.Zero
	for _, rec := range records {
		sum = sum.Add(rec.Total)
	}
	return sum
}
