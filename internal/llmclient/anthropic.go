// internal/llmclient/anthropic.go
package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer/internal/config"
)

const (
	defaultAnthropicEndpoint = "https://api.anthropic.com/v1"
	anthropicVersion         = "2023-06-01"
)

// AnthropicClient implements Client against the Anthropic messages API.
type AnthropicClient struct {
	http   *resty.Client
	model  string
	logger *zap.Logger
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature float32            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicClient initializes the client.
func NewAnthropicClient(cfg config.LLMConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultAnthropicEndpoint
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-20241022"
	}

	httpClient := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(cfg.APITimeout).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError)
		})

	return &AnthropicClient{
		http:   httpClient,
		model:  model,
		logger: logger.Named("llm_client.anthropic"),
	}, nil
}

// Generate sends the prompts to the messages endpoint. The messages API has
// no native JSON mode, so ForceJSON is handled by prompt contract alone.
func (c *AnthropicClient) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := req.Options.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	payload := anthropicRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		System:      req.SystemPrompt,
		Temperature: req.Options.Temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.UserPrompt},
		},
	}

	startTime := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/messages")
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("failed to decode anthropic response: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("anthropic API error (%s): %s", parsed.Error.Type, parsed.Error.Message)
		}
		return "", fmt.Errorf("anthropic API error: status %d", resp.StatusCode())
	}

	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("anthropic API returned no content blocks")
	}

	c.logger.Debug("LLM generation complete (Anthropic)",
		zap.Duration("duration", time.Since(startTime)),
		zap.String("model", c.model),
		zap.String("stop_reason", parsed.StopReason),
	)

	return parsed.Content[0].Text, nil
}

func (c *AnthropicClient) Close() error {
	return nil
}
