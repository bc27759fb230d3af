package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-06")
	require.NoError(t, err)
	assert.Equal(t, Month("2024-06"), m)

	m, err = ParseMonth(" 2024-12 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-12", m.String())

	for _, bad := range []string{"", "2024-13", "2024/06", "06-2024", "2024-6-1"} {
		_, err := ParseMonth(bad)
		assert.Error(t, err, bad)
	}
}

func TestMonthOf(t *testing.T) {
	ts := time.Date(2024, time.June, 30, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, Month("2024-06"), MonthOf(ts))
}

func TestTimestampRoundTripAndOrdering(t *testing.T) {
	a := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	b := a.Add(1500 * time.Microsecond)

	sa, sb := FormatTimestamp(a), FormatTimestamp(b)
	assert.Less(t, sa, sb)

	parsed, err := ParseTimestamp(sb)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(b))

	parsed, err = ParseTimestamp("2024-06-01T10:00:00Z")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(a))

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestNormalizeTicker(t *testing.T) {
	assert.Equal(t, "ABCD11", NormalizeTicker(" abcd11 "))
}

func TestNewDividendRecordComputesTotal(t *testing.T) {
	fund := FundPosition{ID: 7, Ticker: "ABCD11", Quantity: decimal.NewFromInt(100)}
	fetchedAt := time.Date(2024, 6, 10, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))

	rec := NewDividendRecord(fund, "2024-06", decimal.RequireFromString("1.20"), fetchedAt, "https://example.test/abcd11")

	assert.Equal(t, int64(7), rec.FundID)
	assert.True(t, rec.Total.Equal(decimal.RequireFromString("120.00")))
	assert.True(t, rec.QuantitySnapshot.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, time.UTC, rec.FetchedAt.Location())
}

func TestErrorTaxonomy(t *testing.T) {
	var err error = fmt.Errorf("strategy: %w", &ParseError{Text: "abc"})
	assert.True(t, errors.Is(err, ErrParse))
	assert.Contains(t, err.Error(), `"abc"`)

	cause := errors.New("connection reset")
	err = &FetchError{Ticker: "ABCD11", URL: "u", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")

	err = &FetchError{Ticker: "ABCD11", URL: "u", StatusCode: 503}
	assert.Contains(t, err.Error(), "503")

	var extraction *ExtractionError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", &ExtractionError{Ticker: "ABCD11"}), &extraction))
	assert.Equal(t, "ABCD11", extraction.Ticker)

	err = &StorageError{Op: "upsert", Ticker: "ABCD11", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "upsert")
}
