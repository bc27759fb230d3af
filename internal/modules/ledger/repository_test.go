package ledger

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/aristath/fiis/internal/database"
	"github.com/aristath/fiis/internal/domain"
	testutil "github.com/aristath/fiis/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setupLedger(t *testing.T) (*Repository, *sql.DB) {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t, "ledger")
	t.Cleanup(cleanup)
	return NewRepository(zerolog.Nop()), db.Conn()
}

func mustFund(t *testing.T, repo *Repository, db *sql.DB, ticker, qty string) *domain.FundPosition {
	t.Helper()
	fund, err := repo.UpsertFund(context.Background(), db, ticker, dec(qty))
	require.NoError(t, err)
	return fund
}

func mustRecord(t *testing.T, repo *Repository, db *sql.DB, fund *domain.FundPosition, month, amount string, fetchedAt time.Time) {
	t.Helper()
	rec := domain.NewDividendRecord(*fund, domain.Month(month), dec(amount), fetchedAt, "https://example.test/"+fund.Ticker)
	require.NoError(t, repo.UpsertDistribution(context.Background(), db, rec))
}

func TestUpsertFundNormalizesAndReplacesQuantity(t *testing.T) {
	repo, db := setupLedger(t)
	ctx := context.Background()

	first := mustFund(t, repo, db, " abcd11 ", "100")
	assert.Equal(t, "ABCD11", first.Ticker)
	assert.True(t, first.Quantity.Equal(dec("100")))

	second := mustFund(t, repo, db, "ABCD11", "150.5")
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Quantity.Equal(dec("150.5")))

	count, err := repo.CountFunds(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertFundRejectsInvalidPositions(t *testing.T) {
	repo, db := setupLedger(t)
	ctx := context.Background()

	_, err := repo.UpsertFund(ctx, db, "  ", dec("1"))
	assert.ErrorIs(t, err, ErrInvalidPosition)

	_, err = repo.UpsertFund(ctx, db, "ABCD11", dec("-1"))
	assert.ErrorIs(t, err, ErrInvalidPosition)
}

func TestUpsertFundReplacesCreatedAt(t *testing.T) {
	repo, db := setupLedger(t)
	ctx := context.Background()

	first := mustFund(t, repo, db, "ABCD11", "100")
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := db.ExecContext(ctx, "UPDATE fiis SET created_at = ? WHERE ticker = ?", domain.FormatTimestamp(old), "ABCD11")
	require.NoError(t, err)

	second := mustFund(t, repo, db, "ABCD11", "200")
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.CreatedAt.After(old))
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"100", "100"},
		{"1.250", "1250"},
		{"12,5", "12.5"},
		{" 7 ", "7"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			qty, err := ParseQuantity(tt.input)
			require.NoError(t, err)
			assert.True(t, qty.Equal(dec(tt.want)), qty.String())
		})
	}

	for _, input := range []string{"-5", "+5", "\u22125", "abc", ""} {
		_, err := ParseQuantity(input)
		assert.ErrorIs(t, err, ErrInvalidPosition, input)
	}
}

func TestUpsertFunds(t *testing.T) {
	repo, db := setupLedger(t)
	ctx := context.Background()

	written, err := repo.UpsertFunds(ctx, db, testutil.NewFundFixtures())
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	funds, err := repo.ListFunds(ctx, db)
	require.NoError(t, err)
	require.Len(t, funds, 3)
	assert.Equal(t, []string{"ABCD11", "HGLG11", "MXRF11"}, []string{funds[0].Ticker, funds[1].Ticker, funds[2].Ticker})
}

func TestGetFundMissing(t *testing.T) {
	repo, db := setupLedger(t)

	fund, err := repo.GetFund(context.Background(), db, "NOPE11")
	require.NoError(t, err)
	assert.Nil(t, fund)
}

func TestUpsertDistributionReplacesSameMonth(t *testing.T) {
	repo, db := setupLedger(t)
	ctx := context.Background()

	fund := mustFund(t, repo, db, "ABCD11", "100")
	mustRecord(t, repo, db, fund, "2024-05", "1.00", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	mustRecord(t, repo, db, fund, "2024-05", "1.20", time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM dividends").Scan(&count))
	assert.Equal(t, 1, count)

	records, err := repo.RecordsForMonth(ctx, db, "2024-05")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].AmountPerShare.Equal(dec("1.20")))
	assert.True(t, records[0].Total.Equal(dec("120")))
	assert.Equal(t, "ABCD11", records[0].Ticker)
	assert.True(t, records[0].FetchedAt.Equal(time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)))
}

func TestTotalKeepsQuantityAtFetchTime(t *testing.T) {
	repo, db := setupLedger(t)
	ctx := context.Background()

	fund := mustFund(t, repo, db, "ABCD11", "100")
	mustRecord(t, repo, db, fund, "2024-04", "1.00", time.Now())
	mustFund(t, repo, db, "ABCD11", "200")

	records, err := repo.RecordsForMonth(ctx, db, "2024-04")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].QuantitySnapshot.Equal(dec("100")))
	assert.True(t, records[0].Total.Equal(dec("100")))
}

func TestUpsertDistributionRejectsNegativeAmount(t *testing.T) {
	repo, db := setupLedger(t)

	fund := mustFund(t, repo, db, "ABCD11", "100")
	rec := domain.NewDividendRecord(*fund, "2024-05", dec("-0.01"), time.Now(), "")
	assert.Error(t, repo.UpsertDistribution(context.Background(), db, rec))
}

func TestEmptyLedger(t *testing.T) {
	repo, db := setupLedger(t)
	ctx := context.Background()

	month, err := repo.LatestMonth(ctx, db)
	require.NoError(t, err)
	assert.Nil(t, month)

	ts, err := repo.LatestFetchTimestamp(ctx, db)
	require.NoError(t, err)
	assert.Nil(t, ts)

	timeline, err := repo.Timeline(ctx, db, 3)
	require.NoError(t, err)
	assert.Empty(t, timeline)

	top, err := repo.TopPosition(ctx, db)
	require.NoError(t, err)
	assert.Nil(t, top)
}

func TestLatestMonthAndFetchTimestamp(t *testing.T) {
	repo, db := setupLedger(t)
	ctx := context.Background()

	a := mustFund(t, repo, db, "ABCD11", "10")
	b := mustFund(t, repo, db, "WXYZ11", "10")
	newest := time.Date(2024, 5, 3, 8, 30, 0, 123000, time.UTC)
	mustRecord(t, repo, db, a, "2024-05", "1", time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	mustRecord(t, repo, db, b, "2024-03", "1", newest)

	month, err := repo.LatestMonth(ctx, db)
	require.NoError(t, err)
	require.NotNil(t, month)
	assert.Equal(t, domain.Month("2024-05"), *month)

	ts, err := repo.LatestFetchTimestamp(ctx, db)
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.True(t, ts.Equal(newest))
}

func TestListForMonthReportsZeroRows(t *testing.T) {
	repo, db := setupLedger(t)

	a := mustFund(t, repo, db, "ABCD11", "100")
	mustFund(t, repo, db, "BBBB11", "50")
	mustRecord(t, repo, db, a, "2024-05", "1.20", time.Now())

	rows, err := repo.ListForMonth(context.Background(), db, "2024-05")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "ABCD11", rows[0].Ticker)
	assert.True(t, rows[0].HasDividend)
	assert.True(t, rows[0].Total.Equal(dec("120")))

	assert.Equal(t, "BBBB11", rows[1].Ticker)
	assert.False(t, rows[1].HasDividend)
	assert.True(t, rows[1].AmountPerShare.IsZero())
	assert.True(t, rows[1].Total.IsZero())
	assert.True(t, rows[1].Quantity.Equal(dec("50")))
}

func TestTimelineLimitAndOrder(t *testing.T) {
	repo, db := setupLedger(t)
	ctx := context.Background()

	a := mustFund(t, repo, db, "ABCD11", "10")
	b := mustFund(t, repo, db, "WXYZ11", "20")
	mustRecord(t, repo, db, a, "2024-03", "1.00", time.Now())
	mustRecord(t, repo, db, a, "2024-04", "1.10", time.Now())
	mustRecord(t, repo, db, a, "2024-05", "0.10", time.Now())
	mustRecord(t, repo, db, b, "2024-05", "0.20", time.Now())

	items, err := repo.Timeline(ctx, db, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, domain.Month("2024-05"), items[0].Month)
	// 10 x 0.10 + 20 x 0.20, exact
	assert.True(t, items[0].Total.Equal(dec("5.00")))
	assert.Equal(t, domain.Month("2024-04"), items[1].Month)
	assert.True(t, items[1].Total.Equal(dec("11")))

	all, err := repo.Timeline(ctx, db, 12)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := repo.Timeline(ctx, db, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordsForMonthOrdering(t *testing.T) {
	repo, db := setupLedger(t)
	ctx := context.Background()

	for _, tc := range []struct{ ticker, amount string }{
		{"ZZZZ11", "1.20"},
		{"AAAA11", "0.50"},
		{"BBBB11", "1.20"},
	} {
		fund := mustFund(t, repo, db, tc.ticker, "1")
		mustRecord(t, repo, db, fund, "2024-05", tc.amount, time.Now())
	}

	records, err := repo.RecordsForMonth(ctx, db, "2024-05")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"BBBB11", "ZZZZ11", "AAAA11"}, []string{records[0].Ticker, records[1].Ticker, records[2].Ticker})
	assert.True(t, SumTotals(records).Equal(dec("2.90")))
}

func TestDeleteFundCascades(t *testing.T) {
	repo, db := setupLedger(t)
	ctx := context.Background()

	fund := mustFund(t, repo, db, "ABCD11", "100")
	mustRecord(t, repo, db, fund, "2024-05", "1.20", time.Now())

	deleted, err := repo.DeleteFund(ctx, db, "abcd11")
	require.NoError(t, err)
	assert.True(t, deleted)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM dividends").Scan(&count))
	assert.Equal(t, 0, count)

	deleted, err = repo.DeleteFund(ctx, db, "ABCD11")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestTopPositionTieBreaksByTicker(t *testing.T) {
	repo, db := setupLedger(t)

	mustFund(t, repo, db, "ZZZZ11", "300")
	mustFund(t, repo, db, "MMMM11", "300")
	mustFund(t, repo, db, "AAAA11", "299.99")

	top, err := repo.TopPosition(context.Background(), db)
	require.NoError(t, err)
	require.NotNil(t, top)
	assert.Equal(t, "MMMM11", top.Ticker)
}

func TestWritesInsideTransactionRollBack(t *testing.T) {
	repo, db := setupLedger(t)
	ctx := context.Background()

	err := database.WithTransaction(ctx, db, func(tx *sql.Tx) error {
		if _, err := repo.UpsertFund(ctx, tx, "ABCD11", dec("1")); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	count, err := repo.CountFunds(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRuns(t *testing.T) {
	repo, db := setupLedger(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		start := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.InsertRun(ctx, db, domain.FetchRun{
			ID:         id,
			Month:      "2024-05",
			StartedAt:  start,
			FinishedAt: start.Add(time.Minute),
			Succeeded:  i,
			Failed:     1,
		}))
	}

	runs, err := repo.ListRuns(ctx, db, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)
	assert.Equal(t, 2, runs[0].Succeeded)
	assert.True(t, runs[0].FinishedAt.Equal(base.Add(2*time.Hour+time.Minute)))
}
