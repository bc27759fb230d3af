package clientdata

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE pages (ticker TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE INDEX idx_pages_expires ON pages(expires_at);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// :memory: is per connection
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

func testPage(ticker string) CachedPage {
	return CachedPage{
		Ticker:    ticker,
		URL:       "https://example.test/funds/" + ticker,
		Body:      "<html>Último Rendimento</html>",
		FetchedAt: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestStoreAndGetIfFresh(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, testPage("ABCD11"), time.Hour))

	page, err := repo.GetIfFresh(ctx, "ABCD11")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, "ABCD11", page.Ticker)
	assert.Equal(t, "https://example.test/funds/ABCD11", page.URL)
	assert.Equal(t, "<html>Último Rendimento</html>", page.Body)
	assert.True(t, page.FetchedAt.Equal(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)))
}

func TestGetIfFreshMissing(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	page, err := NewRepository(db).GetIfFresh(context.Background(), "NOPE11")
	require.NoError(t, err)
	assert.Nil(t, page)
}

func TestExpiredEntryOnlyVisibleThroughGet(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, testPage("ABCD11"), -time.Minute))

	fresh, err := repo.GetIfFresh(ctx, "ABCD11")
	require.NoError(t, err)
	assert.Nil(t, fresh)

	stale, err := repo.Get(ctx, "ABCD11")
	require.NoError(t, err)
	require.NotNil(t, stale)
	assert.Equal(t, "ABCD11", stale.Ticker)
}

func TestStoreReplacesEntry(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	first := testPage("ABCD11")
	require.NoError(t, repo.Store(ctx, first, time.Hour))

	second := testPage("ABCD11")
	second.Body = "<html>new</html>"
	require.NoError(t, repo.Store(ctx, second, time.Hour))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM pages").Scan(&count))
	assert.Equal(t, 1, count)

	page, err := repo.GetIfFresh(ctx, "ABCD11")
	require.NoError(t, err)
	assert.Equal(t, "<html>new</html>", page.Body)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, testPage("ABCD11"), time.Hour))
	require.NoError(t, repo.Delete(ctx, "ABCD11"))

	page, err := repo.Get(ctx, "ABCD11")
	require.NoError(t, err)
	assert.Nil(t, page)

	// Deleting a missing key is not an error
	require.NoError(t, repo.Delete(ctx, "ABCD11"))
}

func TestDeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, testPage("OLD111"), -time.Hour))
	require.NoError(t, repo.Store(ctx, testPage("OLD211"), -time.Minute))
	require.NoError(t, repo.Store(ctx, testPage("NEW111"), time.Hour))

	deleted, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	page, err := repo.GetIfFresh(ctx, "NEW111")
	require.NoError(t, err)
	assert.NotNil(t, page)
}

func TestExpiryUsesRepositoryClock(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now()
	repo.now = func() time.Time { return base }
	require.NoError(t, repo.Store(ctx, testPage("ABCD11"), 10*time.Minute))

	repo.now = func() time.Time { return base.Add(9 * time.Minute) }
	page, err := repo.GetIfFresh(ctx, "ABCD11")
	require.NoError(t, err)
	assert.NotNil(t, page)

	repo.now = func() time.Time { return base.Add(11 * time.Minute) }
	page, err = repo.GetIfFresh(ctx, "ABCD11")
	require.NoError(t, err)
	assert.Nil(t, page)
}
