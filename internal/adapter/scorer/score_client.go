package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"omsearch/internal/domain"
)

// ScoreClient talks to a pooling server exposing a /score endpoint that
// evaluates one (text_1, text_2) pair per request.
type ScoreClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// Config configures a scoring client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

type scoreRequest struct {
	Model string `json:"model"`
	Text1 string `json:"text_1"`
	Text2 string `json:"text_2"`
}

type scoreResponse struct {
	Data []scoreEntry `json:"data"`
}

type scoreEntry struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// NewScoreClient creates a /score pairwise scorer.
func NewScoreClient(cfg Config) *ScoreClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ScoreClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Score evaluates one (problem, definition) pair.
func (c *ScoreClient) Score(ctx context.Context, problem, definition string) (float64, error) {
	reqBody := scoreRequest{
		Model: c.model,
		Text1: problem,
		Text2: definition,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: score request failed: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read response: %v", domain.ErrServiceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: score API returned status %d", domain.ErrServiceUnavailable, resp.StatusCode)
	}

	var scoreResp scoreResponse
	if err := json.Unmarshal(body, &scoreResp); err != nil {
		return 0, fmt.Errorf("%w: failed to parse score response", domain.ErrMalformedResponse)
	}
	if len(scoreResp.Data) == 0 {
		return 0, fmt.Errorf("%w: score response contained no data", domain.ErrMalformedResponse)
	}

	return scoreResp.Data[0].Score, nil
}

// Healthy reports whether the scoring server answers its health endpoint.
func (c *ScoreClient) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: health check failed: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health endpoint returned status %d", domain.ErrServiceUnavailable, resp.StatusCode)
	}
	return nil
}

// ModelName returns the scoring model identity.
func (c *ScoreClient) ModelName() string {
	return c.model
}
