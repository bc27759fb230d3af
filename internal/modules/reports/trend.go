package reports

import (
	"context"
	"math"

	"github.com/aristath/fiis/internal/domain"
	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// TrendPoint is one month of the trend series. MovingAverage is nil until
// enough months precede it.
type TrendPoint struct {
	Month         domain.Month
	Total         float64
	MovingAverage *float64
}

// Trend describes how monthly totals evolve. Values are presentation-only
// floats and are never written back to the ledger.
type Trend struct {
	Points []TrendPoint // Oldest first
	Window int
	Mean   float64
	StdDev float64
	// LastVsAverage is the latest total minus the latest moving average
	LastVsAverage *float64
}

// Trend analyses the last limit monthly totals with a window-month simple
// moving average. A window below 2 or above the number of months yields no average.
func (s *Service) Trend(ctx context.Context, limit, window int) (*Trend, error) {
	totals, err := s.repo.Timeline(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}
	return buildTrend(totals, window), nil
}

func buildTrend(newestFirst []domain.MonthlyTotal, window int) *Trend {
	n := len(newestFirst)
	trend := &Trend{Points: make([]TrendPoint, n), Window: window}
	if n == 0 {
		return trend
	}

	values := make([]float64, n)
	for i, mt := range newestFirst {
		j := n - 1 - i
		values[j] = mt.Total.InexactFloat64()
		trend.Points[j] = TrendPoint{Month: mt.Month, Total: values[j]}
	}

	trend.Mean = stat.Mean(values, nil)
	if n > 1 {
		trend.StdDev = stat.StdDev(values, nil)
	}

	if window < 2 || window > n {
		return trend
	}

	sma := talib.Sma(values, window)
	for i := window - 1; i < n && i < len(sma); i++ {
		if math.IsNaN(sma[i]) {
			continue
		}
		avg := sma[i]
		trend.Points[i].MovingAverage = &avg
	}

	if last := trend.Points[n-1]; last.MovingAverage != nil {
		diff := last.Total - *last.MovingAverage
		trend.LastVsAverage = &diff
	}
	return trend
}
