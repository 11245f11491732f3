package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// BatchItem is one SKU in a batch prediction request.
type BatchItem struct {
	SKU     string    `json:"sku"`
	History []float64 `json:"history"`
}

// BatchRequest is the body of POST /api/predict.
type BatchRequest struct {
	Details []BatchItem `json:"details"`
	Horizon int         `json:"horizon"`
}

// BatchResponse maps SKU to its prediction.
type BatchResponse map[string]Prediction

// HTTPClient calls a remote forecasting service speaking the batch predict protocol.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

var _ Provider = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("forecast url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid forecast url %q: %w", baseURL, err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		endpoint: baseURL + "/api/predict",
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (c *HTTPClient) Name() string {
	return "http"
}

func (c *HTTPClient) Forecast(ctx context.Context, req Request) (Prediction, error) {
	batch, err := c.ForecastBatch(ctx, []BatchItem{{SKU: req.SKU, History: req.Series}}, req.Horizon)
	if err != nil {
		return Prediction{}, err
	}

	p, ok := batch[req.SKU]
	if !ok {
		return Prediction{}, fmt.Errorf("%w for sku %s", ErrNoPrediction, req.SKU)
	}
	if err := p.Validate(); err != nil {
		return Prediction{}, err
	}
	return p, nil
}

// ForecastBatch sends several SKUs in one request.
func (c *HTTPClient) ForecastBatch(ctx context.Context, items []BatchItem, horizon int) (BatchResponse, error) {
	body, err := json.Marshal(BatchRequest{Details: items, Horizon: horizon})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal predict request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build predict request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("predict request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("predict request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode predict response: %w", err)
	}
	return out, nil
}
