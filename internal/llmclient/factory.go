// internal/llmclient/factory.go
package llmclient

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/wayfarer/internal/config"
)

// NewClient creates a Client for the configured provider and wraps it in a
// rate limiter when requests_per_minute is set.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	var (
		client Client
		err    error
	)

	switch cfg.Provider {
	case config.ProviderGemini:
		client, err = NewGeminiClient(cfg, logger)
	case config.ProviderOpenAI:
		client, err = NewOpenAIClient(cfg, logger)
	case config.ProviderAnthropic:
		client, err = NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: %s, %s, %s)",
			cfg.Provider, config.ProviderGemini, config.ProviderOpenAI, config.ProviderAnthropic)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerMinute > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), 1)
		client = &rateLimitedClient{inner: client, limiter: limiter}
	}

	return client, nil
}
