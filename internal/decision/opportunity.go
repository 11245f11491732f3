package decision

import "math"

const (
	// fallbackCostRatio estimates cost from price when no cost is recorded
	fallbackCostRatio = 0.6
	profitWeight      = 0.7
	roiWeight         = 10
	epsilon           = 0.001
)

// Opportunity ranks a SKU as an investment candidate. It never gates reordering.
type Opportunity struct {
	Price          float64
	Cost           float64
	Margin         float64
	ROI            float64
	ExpectedProfit float64
	Score          float64
}

// Score computes margin, ROI, expected profit and the opportunity score. All
// outputs are finite.
func Score(price float64, cost *float64, projected, trendRatio float64) Opportunity {
	price = finiteOrZero(price)

	c := price * fallbackCostRatio
	if cost != nil && isFinite(*cost) && *cost > 0 {
		c = *cost
	}

	margin := price - c

	var roi float64
	if c > 0 {
		roi = finiteOrZero(margin / c * 100)
	}

	profit := finiteOrZero(margin * projected)

	return Opportunity{
		Price:          price,
		Cost:           c,
		Margin:         margin,
		ROI:            roi,
		ExpectedProfit: profit,
		Score:          finiteOrZero(profit*profitWeight + roi*roiWeight*trendRatio),
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteOrZero(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
