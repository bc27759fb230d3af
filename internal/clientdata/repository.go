// Package clientdata persists short-lived fetched fund pages so repeated
// fetches of the same ticker within the TTL skip the network.
// Entries are msgpack blobs with an expiration timestamp.
package clientdata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// CachedPage is one fetched page body
type CachedPage struct {
	Ticker    string    `msgpack:"ticker"`
	URL       string    `msgpack:"url"`
	Body      string    `msgpack:"body"`
	FetchedAt time.Time `msgpack:"fetched_at"`
}

// Repository provides cache operations over the pages table of cache.db.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new page cache repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Store saves page with expiration = now + ttl, replacing any previous entry.
func (r *Repository) Store(ctx context.Context, page CachedPage, ttl time.Duration) error {
	data, err := msgpack.Marshal(&page)
	if err != nil {
		return fmt.Errorf("failed to marshal page: %w", err)
	}

	expiresAt := r.now().Add(ttl).Unix()

	_, err = r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO pages (ticker, data, expires_at) VALUES (?, ?, ?)",
		page.Ticker, data, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store page for %s: %w", page.Ticker, err)
	}

	return nil
}

// GetIfFresh returns the cached page only if expires_at > now.
// Returns nil, nil if the ticker is not cached or the entry expired.
func (r *Repository) GetIfFresh(ctx context.Context, ticker string) (*CachedPage, error) {
	return r.get(ctx,
		"SELECT data FROM pages WHERE ticker = ? AND expires_at > ?",
		ticker, r.now().Unix(),
	)
}

// Get returns the cached page regardless of expiration status.
// Returns nil, nil if the ticker is not cached.
func (r *Repository) Get(ctx context.Context, ticker string) (*CachedPage, error) {
	return r.get(ctx, "SELECT data FROM pages WHERE ticker = ?", ticker)
}

func (r *Repository) get(ctx context.Context, query string, args ...interface{}) (*CachedPage, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached page: %w", err)
	}

	var page CachedPage
	if err := msgpack.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to decode cached page: %w", err)
	}
	return &page, nil
}

// Delete removes the entry for ticker.
func (r *Repository) Delete(ctx context.Context, ticker string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM pages WHERE ticker = ?", ticker); err != nil {
		return fmt.Errorf("failed to delete cached page for %s: %w", ticker, err)
	}
	return nil
}

// DeleteExpired removes all rows where expires_at <= now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM pages WHERE expires_at <= ?", r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired pages: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
