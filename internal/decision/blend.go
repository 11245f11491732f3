package decision

import (
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/domain"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/forecast"
)

// BlendResult is the projection after the external forecast was considered.
type BlendResult struct {
	Projected float64
	AI        *domain.AIPrediction
	UsedAI    bool
}

// Blend interpolates between the classical projection and a forecast, weighted
// by the forecast's confidence. Forecasts at or below minConfidence, or that
// fail validation, leave the classical projection untouched.
func Blend(classical float64, p forecast.Prediction, minConfidence float64) BlendResult {
	if err := p.Validate(); err != nil || p.Confidence <= minConfidence {
		return BlendResult{Projected: classical}
	}

	w := p.Confidence
	return BlendResult{
		Projected: p.Total*w + classical*(1-w),
		AI:        &domain.AIPrediction{Total: p.Total, Confidence: p.Confidence},
		UsedAI:    true,
	}
}
