// internal/llmclient/openai.go
package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultOpenAIEndpoint = "https://api.openai.com/v1"

// OpenAIClient implements Client against the OpenAI chat completions API.
type OpenAIClient struct {
	http   *resty.Client
	model  string
	logger *zap.Logger
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAIClient initializes the client.
func NewOpenAIClient(cfg config.LLMConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	httpClient := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(cfg.APITimeout).
		SetAuthToken(cfg.APIKey).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError)
		})

	return &OpenAIClient{
		http:   httpClient,
		model:  model,
		logger: logger.Named("llm_client.openai"),
	}, nil
}

// Generate sends the prompts to the chat completions endpoint.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	payload := openAIRequest{
		Model:       c.model,
		Temperature: req.Options.Temperature,
		MaxTokens:   req.Options.MaxTokens,
	}
	if req.SystemPrompt != "" {
		payload.Messages = append(payload.Messages, openAIMessage{Role: "system", Content: req.SystemPrompt})
	}
	payload.Messages = append(payload.Messages, openAIMessage{Role: "user", Content: req.UserPrompt})
	if req.Options.ForceJSON {
		payload.ResponseFormat = &struct {
			Type string `json:"type"`
		}{Type: "json_object"}
	}

	startTime := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("failed to decode openai response: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("openai API error (%s): %s", parsed.Error.Type, parsed.Error.Message)
		}
		return "", fmt.Errorf("openai API error: status %d", resp.StatusCode())
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai API returned no choices")
	}

	c.logger.Debug("LLM generation complete (OpenAI)",
		zap.Duration("duration", time.Since(startTime)),
		zap.String("model", c.model),
		zap.String("finish_reason", parsed.Choices[0].FinishReason),
	)

	return parsed.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Close() error {
	return nil
}
