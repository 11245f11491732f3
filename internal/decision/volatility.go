package decision

import (
	"math"
	"time"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/domain"
)

// DailyStdDev returns the population standard deviation of daily quantities
// inside the lookback window.
//
// Only days with at least one recorded sale enter the sample unless zeroFill
// is set, in which case every UTC date the window touches counts and quiet
// days add a zero. Intermittent sellers look steadier without zeroFill.
func DailyStdDev(sales []domain.SalesEvent, lookbackDays int, now time.Time, zeroFill bool) float64 {
	cutoff := daysBefore(now, float64(lookbackDays))

	buckets := make(map[string]float64)
	for _, s := range sales {
		if s.Date.Before(cutoff) {
			continue
		}
		buckets[s.Date.UTC().Format("2006-01-02")] += finiteOrZero(s.Qty)
	}

	if len(buckets) == 0 {
		return 0
	}

	n := float64(len(buckets))
	if days := calendarDays(cutoff, now); zeroFill && days > len(buckets) {
		n = float64(days)
	}
	quietDays := n - float64(len(buckets))

	var sum float64
	for _, v := range buckets {
		sum += v
	}
	mean := sum / n

	variance := quietDays * mean * mean
	for _, v := range buckets {
		variance += (v - mean) * (v - mean)
	}
	variance /= n

	return finiteOrZero(math.Sqrt(variance))
}

// calendarDays counts the UTC dates touched by [from, to], both ends included.
func calendarDays(from, to time.Time) int {
	start := from.UTC().Truncate(24 * time.Hour)
	end := to.UTC().Truncate(24 * time.Hour)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start)/(24*time.Hour)) + 1
}
