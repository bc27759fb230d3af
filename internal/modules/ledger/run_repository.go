package ledger

import (
	"context"
	"fmt"

	"github.com/aristath/fiis/internal/database"
	"github.com/aristath/fiis/internal/domain"
)

// InsertRun records a finished batch run
func (r *Repository) InsertRun(ctx context.Context, q database.Querier, run domain.FetchRun) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO fetch_runs (id, as_of_month, started_at, finished_at, succeeded, failed)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Month.String(),
		domain.FormatTimestamp(run.StartedAt),
		domain.FormatTimestamp(run.FinishedAt),
		run.Succeeded,
		run.Failed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fetch run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first
func (r *Repository) ListRuns(ctx context.Context, q database.Querier, limit int) ([]domain.FetchRun, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, as_of_month, started_at, finished_at, succeeded, failed
		FROM fetch_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list fetch runs: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.FetchRun, 0)
	for rows.Next() {
		var (
			run                 domain.FetchRun
			month               string
			startedAt, finished string
		)
		if err := rows.Scan(&run.ID, &month, &startedAt, &finished, &run.Succeeded, &run.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan fetch run: %w", err)
		}
		run.Month = domain.Month(month)
		if run.StartedAt, err = domain.ParseTimestamp(startedAt); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = domain.ParseTimestamp(finished); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fetch runs: %w", err)
	}
	return runs, nil
}
