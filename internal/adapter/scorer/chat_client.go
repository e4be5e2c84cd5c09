package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"omsearch/internal/domain"
)

const chatSystemPrompt = `You are a mathematical relevance scorer. Your task is to rate how relevant a mathematical definition is to solving a given problem.

Score from 0.0 (completely irrelevant) to 1.0 (highly relevant).

Respond with ONLY a JSON object containing a "score" field with a number.

Example response: {"score": 0.85}`

// ChatScorer scores pairs by prompting a chat-style LLM endpoint for a JSON
// score object. Less accurate than a proper cross-encoder but needs nothing
// beyond a generic chat API.
type ChatScorer struct {
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// ChatConfig configures a chat-based scorer.
type ChatConfig struct {
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format"`
	Options  chatOptions   `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// NewChatScorer creates a chat-LLM pairwise scorer.
func NewChatScorer(cfg ChatConfig) *ChatScorer {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1")

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 50
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &ChatScorer{
		baseURL:     baseURL,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout},
	}
}

// Score prompts the LLM to rate the pair and parses its reply permissively.
func (c *ChatScorer) Score(ctx context.Context, problem, definition string) (float64, error) {
	userPrompt := fmt.Sprintf(`Rate relevance 0.0-1.0. ONLY output JSON: {"score": number}

Problem: %s

Definition: %s`, problem, definition)

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: chatSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
		Format: "json",
		Options: chatOptions{
			NumPredict:  c.maxTokens,
			Temperature: c.temperature,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: chat request failed: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read response: %v", domain.ErrServiceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: chat API returned status %d", domain.ErrServiceUnavailable, resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return 0, fmt.Errorf("%w: failed to parse chat response", domain.ErrMalformedResponse)
	}

	return ExtractScore(chatResp.Message.Content)
}

// ModelName returns the scoring model identity.
func (c *ChatScorer) ModelName() string {
	return c.model
}

var numberPattern = regexp.MustCompile(`\d+\.?\d*`)

// scoreKeys are the JSON keys a model might put its rating under.
var scoreKeys = []string{"score", "relevance", "rating", "value"}

// ExtractScore parses an LLM reply into a score clamped to [0, 1]. It
// accepts a JSON object with a known score key, a bare JSON number, or the
// first number found in free text; values above 1 are treated as
// percentages.
func ExtractScore(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: empty scorer reply", domain.ErrMalformedResponse)
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		switch v := parsed.(type) {
		case map[string]any:
			for _, key := range scoreKeys {
				if num, ok := v[key].(float64); ok {
					return rescale(num), nil
				}
			}
		case float64:
			return rescale(v), nil
		}
	}

	if match := numberPattern.FindString(raw); match != "" {
		num, err := strconv.ParseFloat(match, 64)
		if err == nil {
			return rescale(num), nil
		}
	}

	return 0, fmt.Errorf("%w: no score in scorer reply", domain.ErrMalformedResponse)
}

// rescale treats values above 1 as percentages, then clamps to [0, 1].
func rescale(v float64) float64 {
	if v > 1.0 {
		v /= 100.0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
