package decision

import (
	"time"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/domain"
)

// RecencyHorizonDays is how far back a sale keeps a SKU alive. It is fixed and
// independent of the lookback window.
const RecencyHorizonDays = 30

// HasRecentSales reports whether any sale happened within the recency horizon.
func HasRecentSales(sales []domain.SalesEvent, now time.Time) bool {
	cutoff := daysBefore(now, RecencyHorizonDays)
	for _, s := range sales {
		if !s.Date.Before(cutoff) {
			return true
		}
	}
	return false
}
