// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MonthLayout is the calendar-month key format used by the ledger ("2024-05")
const MonthLayout = "2006-01"

// TimestampLayout is a fixed-width UTC layout so that stored timestamps sort lexically
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Month is a calendar month key. The zero value is not a valid month.
type Month string

// ParseMonth validates a "YYYY-MM" key
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid month %q: expected YYYY-MM", s)
	}
	return Month(t.Format(MonthLayout)), nil
}

// MonthOf returns the month key containing t (in t's location)
func MonthOf(t time.Time) Month {
	return Month(t.Format(MonthLayout))
}

// String returns the "YYYY-MM" form
func (m Month) String() string {
	return string(m)
}

// FormatTimestamp renders t in the stored layout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a stored timestamp. RFC3339 values written by older
// tooling are accepted too.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// NormalizeTicker returns the canonical uppercase form of a ticker
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// FundPosition is a tracked fund and the number of shares held
type FundPosition struct {
	ID        int64           `json:"id"`
	Ticker    string          `json:"ticker"`
	Quantity  decimal.Decimal `json:"qty"`
	CreatedAt time.Time       `json:"created_at"`
}

// DividendRecord is the distribution captured for one fund in one month.
// Total is computed once at write time from the quantity held then.
type DividendRecord struct {
	FundID           int64           `json:"fund_id"`
	Ticker           string          `json:"ticker,omitempty"`
	AsOfMonth        Month           `json:"as_of_month"`
	AmountPerShare   decimal.Decimal `json:"amount_per_share"`
	QuantitySnapshot decimal.Decimal `json:"qty"`
	Total            decimal.Decimal `json:"total"`
	FetchedAt        time.Time       `json:"fetched_at"`
	SourceURL        string          `json:"source_url"`
}

// NewDividendRecord builds a record for fund, computing the total from the
// amount per share and the quantity currently held.
func NewDividendRecord(fund FundPosition, month Month, amount decimal.Decimal, fetchedAt time.Time, sourceURL string) DividendRecord {
	return DividendRecord{
		FundID:           fund.ID,
		Ticker:           fund.Ticker,
		AsOfMonth:        month,
		AmountPerShare:   amount,
		QuantitySnapshot: fund.Quantity,
		Total:            amount.Mul(fund.Quantity),
		FetchedAt:        fetchedAt.UTC(),
		SourceURL:        sourceURL,
	}
}

// FundSnapshot is one row of the monthly breakdown. Funds without a record
// for the month report zero amounts and HasDividend=false.
type FundSnapshot struct {
	Ticker         string
	Quantity       decimal.Decimal
	AmountPerShare decimal.Decimal
	Total          decimal.Decimal
	HasDividend    bool
}

// MonthlyTotal is the sum of record totals across all funds for a month
type MonthlyTotal struct {
	Month Month
	Total decimal.Decimal
}

// FetchRun summarizes one persisted batch run
type FetchRun struct {
	ID         string    `json:"id"`
	Month      Month     `json:"month"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
}
