package decision

import "math"

const (
	baseServiceZ = 1.65
	maxServiceZ  = 2.5
	// lead times are normalized to a 30 day reference period
	referencePeriodDays = 30
)

// SafetyStock sizes the buffer held above projected demand. The service-level
// z-score grows with the coefficient of variation and the alert threshold is
// an absolute floor.
func SafetyStock(velocity, stdDev float64, leadDays int, threshold float64) float64 {
	if velocity <= 0 {
		return 0
	}

	cv := stdDev / (velocity + epsilon)
	z := math.Min(maxServiceZ, baseServiceZ+cv*0.5)
	ss := math.Ceil(z * stdDev * math.Sqrt(float64(leadDays)/referencePeriodDays))
	ss = finiteOrZero(ss)

	return math.Max(threshold, ss)
}
