package decision

import (
	"math"
	"time"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/domain"
)

const (
	// TrendWindowDays is the minimum half-window; shorter lookbacks are reported as stable.
	TrendWindowDays = 14

	trendChangeThreshold = 0.15
	trendMaxRatio        = 1.5
	trendMinRatio        = 0.7
	trendEmergingRatio   = 1.3
)

// TrendResult is the direction of demand and the multiplier applied to the projection.
type TrendResult struct {
	Trend domain.Trend `json:"trend"`
	Ratio float64      `json:"ratio"`
}

var stableTrend = TrendResult{Trend: domain.TrendStable, Ratio: 1.0}

// AnalyzeTrend compares the average daily quantity of the two halves of the
// lookback window ending at now.
func AnalyzeTrend(sales []domain.SalesEvent, lookbackDays int, now time.Time) TrendResult {
	if lookbackDays < 2*TrendWindowDays {
		return stableTrend
	}

	mid := float64(lookbackDays) / 2
	windowStart := daysBefore(now, float64(lookbackDays))
	midpoint := daysBefore(now, mid)

	var qtyFirst, qtySecond float64
	for _, s := range sales {
		qty := finiteOrZero(s.Qty)
		switch {
		case !s.Date.Before(midpoint):
			qtySecond += qty
		case !s.Date.Before(windowStart):
			qtyFirst += qty
		}
	}

	avgFirst := qtyFirst / mid
	avgSecond := qtySecond / mid

	if avgFirst == 0 {
		if avgSecond > 0 {
			return TrendResult{Trend: domain.TrendIncreasing, Ratio: trendEmergingRatio}
		}
		return stableTrend
	}

	change := (avgSecond - avgFirst) / avgFirst
	switch {
	case change > trendChangeThreshold:
		return TrendResult{Trend: domain.TrendIncreasing, Ratio: 1.0 + math.Min(change, trendMaxRatio-1.0)}
	case change < -trendChangeThreshold:
		return TrendResult{Trend: domain.TrendDecreasing, Ratio: math.Max(trendMinRatio, 1.0+change)}
	default:
		return stableTrend
	}
}

func daysBefore(now time.Time, days float64) time.Time {
	return now.Add(-time.Duration(days * float64(24*time.Hour)))
}
