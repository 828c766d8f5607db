// internal/llmclient/models.go
package llmclient

import "context"

// Options tunes a single generation call.
type Options struct {
	Temperature float32
	MaxTokens   int
	// ForceJSON asks the provider for a JSON-only response where the API
	// supports it. Providers without native JSON mode ignore it.
	ForceJSON bool
}

// Request carries the prompts for one generation call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Options      Options
}

// Client is the reasoning oracle abstraction. Implementations must be safe
// for concurrent use.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
	Close() error
}
