package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/config"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/domain"
)

var (
	// ErrNoPrediction is returned when a provider answered without a result for the SKU.
	ErrNoPrediction = errors.New("forecast: no prediction returned")
	// ErrNoAPIKey is returned by LLM providers configured without credentials.
	ErrNoAPIKey = errors.New("forecast: api key not configured")
	// ErrInvalidPrediction flags a non-finite total or a confidence outside [0,1].
	ErrInvalidPrediction = errors.New("forecast: invalid prediction")
)

// Request is one SKU's daily demand history, oldest day first.
type Request struct {
	SKU     string
	Series  []float64
	Horizon int
}

// Prediction is the projected total demand over the horizon and how much the
// provider trusts it. The confidence doubles as the blend weight.
type Prediction struct {
	Total      float64 `json:"prediction"`
	Confidence float64 `json:"confidence"`
}

// Validate rejects predictions that must not reach the blend.
func (p Prediction) Validate() error {
	if math.IsNaN(p.Total) || math.IsInf(p.Total, 0) || p.Total < 0 {
		return fmt.Errorf("%w: total %v", ErrInvalidPrediction, p.Total)
	}
	if math.IsNaN(p.Confidence) || p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v", ErrInvalidPrediction, p.Confidence)
	}
	return nil
}

// Provider is a pluggable demand forecaster.
type Provider interface {
	Name() string
	Forecast(ctx context.Context, req Request) (Prediction, error)
}

// NewProvider builds the provider selected in config. It returns a nil
// Provider for "none", which disables blending.
func NewProvider(ctx context.Context, cfg config.ForecastConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none", "off":
		return nil, nil
	case "regression":
		return NewRegression(), nil
	case "http":
		return NewHTTPClient(cfg.URL, cfg.Timeout())
	case "gemini":
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("unknown forecast provider %q", cfg.Provider)
	}
}

// DailySeries buckets sales into a zero-filled series of the last `days`
// calendar days (UTC), ending with the day of now.
func DailySeries(sales []domain.SalesEvent, days int, now time.Time) []float64 {
	if days <= 0 {
		return nil
	}

	series := make([]float64, days)
	today := truncateDay(now)
	first := today.AddDate(0, 0, -(days - 1))

	for _, s := range sales {
		day := truncateDay(s.Date)
		if day.Before(first) || day.After(today) {
			continue
		}
		idx := int(day.Sub(first).Hours() / 24)
		if idx >= 0 && idx < days {
			series[idx] += s.Qty
		}
	}

	return series
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
