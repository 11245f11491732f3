package forecast

import (
	"context"
	"math"
)

const minRegressionPoints = 5

// Regression forecasts demand by fitting a least-squares trend line to the
// daily series and summing its extension over the horizon. Short series fall
// back to the mean.
type Regression struct{}

var _ Provider = (*Regression)(nil)

func NewRegression() *Regression {
	return &Regression{}
}

func (r *Regression) Name() string {
	return "regression"
}

func (r *Regression) Forecast(ctx context.Context, req Request) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	return r.Predict(req.Series, req.Horizon), nil
}

// Predict is the synchronous core, shared by the provider and the HTTP handler.
func (r *Regression) Predict(history []float64, horizon int) Prediction {
	clean := make([]float64, len(history))
	for i, v := range history {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		clean[i] = v
	}

	return Prediction{
		Total:      round2(projectTotal(clean, horizon)),
		Confidence: round2(seriesConfidence(clean)),
	}
}

func projectTotal(y []float64, horizon int) float64 {
	if horizon <= 0 {
		return 0
	}

	n := len(y)
	if n < minRegressionPoints {
		if n == 0 {
			return 0
		}
		return math.Max(0, mean(y)*float64(horizon))
	}

	slope, intercept := fitLine(y)

	// sum of intercept + slope*x for x in [n, n+horizon)
	h := float64(horizon)
	sumX := h*float64(n) + h*(h-1)/2
	total := h*intercept + slope*sumX

	return math.Max(0, total)
}

// fitLine returns the ordinary least squares slope and intercept of y over x = 0..n-1.
func fitLine(y []float64) (slope, intercept float64) {
	n := float64(len(y))
	mx := (n - 1) / 2
	my := mean(y)

	var sxy, sxx float64
	for i, v := range y {
		dx := float64(i) - mx
		sxy += dx * (v - my)
		sxx += dx * dx
	}
	if sxx == 0 {
		return 0, my
	}

	slope = sxy / sxx
	intercept = my - slope*mx
	return slope, intercept
}

// seriesConfidence shrinks as the variance-to-mean ratio of the history grows.
func seriesConfidence(y []float64) float64 {
	if len(y) == 0 {
		return 0.95
	}

	m := mean(y)
	variance := 0.0
	for _, v := range y {
		variance += (v - m) * (v - m)
	}
	variance /= float64(len(y))

	var dispersion float64
	switch {
	case m == 0 && variance == 0:
		dispersion = 0
	case m == 0:
		dispersion = 1
	default:
		dispersion = variance / m
	}
	if math.IsNaN(dispersion) {
		dispersion = 1
	}

	return clamp(1-dispersion*0.5, 0.1, 0.95)
}

func mean(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	var sum float64
	for _, v := range y {
		sum += v
	}
	return sum / float64(len(y))
}
