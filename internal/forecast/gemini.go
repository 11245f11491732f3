package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// contentGenerator is the slice of *genai.GenerativeModel the provider needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini model for a demand total and a self-reported confidence.
type Gemini struct {
	client *genai.Client
	model  contentGenerator
}

var _ Provider = (*Gemini)(nil)

func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.1)

	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string {
	return "gemini"
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *Gemini) Forecast(ctx context.Context, req Request) (Prediction, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(buildForecastPrompt(req)))
	if err != nil {
		return Prediction{}, fmt.Errorf("gemini generate content: %w", err)
	}
	return parseGeminiPrediction(resp)
}

func buildForecastPrompt(req Request) string {
	values := make([]string, len(req.Series))
	for i, v := range req.Series {
		values[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}

	return fmt.Sprintf(`You are a retail demand forecaster.
Product SKU: %s
Daily units sold over the last %d days, oldest first:
[%s]

Predict the total units that will sell over the next %d days.
Respond with a single JSON object and nothing else:
{"prediction": number, "confidence": number between 0 and 1}`,
		req.SKU, len(req.Series), strings.Join(values, ","), req.Horizon)
}

func parseGeminiPrediction(resp *genai.GenerateContentResponse) (Prediction, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Prediction{}, ErrNoPrediction
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}

	raw := extractJSON(text.String())
	if raw == "" {
		return Prediction{}, ErrNoPrediction
	}

	var out struct {
		Prediction *float64 `json:"prediction"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Prediction{}, fmt.Errorf("failed to parse gemini forecast: %w", err)
	}
	if out.Prediction == nil {
		return Prediction{}, ErrNoPrediction
	}

	p := Prediction{Total: *out.Prediction}
	if out.Confidence != nil {
		p.Confidence = clamp(*out.Confidence, 0, 1)
	}
	if err := p.Validate(); err != nil {
		return Prediction{}, err
	}
	if p.Total < 0 {
		p.Total = 0
	}
	return p, nil
}

func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}
