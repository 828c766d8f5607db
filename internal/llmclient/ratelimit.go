// internal/llmclient/ratelimit.go
package llmclient

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// rateLimitedClient throttles calls to the underlying provider.
type rateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

func (c *rateLimitedClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait aborted: %w", err)
	}
	return c.inner.Generate(ctx, req)
}

func (c *rateLimitedClient) Close() error {
	return c.inner.Close()
}
