// File: internal/agent/interfaces.go
package agent

import (
	"context"

	"github.com/xkilldash9x/wayfarer/internal/guardrail"
)

// Executor performs concrete browsing operations. It is the sole owner of
// the live browsing surface; the loop serializes all calls into it.
type Executor interface {
	// Navigate loads the URL and returns the raw page markup.
	Navigate(ctx context.Context, url string) (string, error)
	// Click raises an error wrapping ErrElementNotFound when the selector
	// matches nothing.
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	// Submit presses Enter in the focused element.
	Submit(ctx context.Context) error
	Scroll(ctx context.Context, direction string, distance int) error
	Screenshot(ctx context.Context) ([]byte, error)
	// Extract returns the raw markup of the current page.
	Extract(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
}

// Screener classifies sanitized content before it reaches the oracle.
type Screener interface {
	Scan(ctx context.Context, content string) guardrail.ScanResult
}

// StepObserver receives each step record as the loop completes it. Observer
// panics are contained and never abort the run.
type StepObserver func(step Step)
