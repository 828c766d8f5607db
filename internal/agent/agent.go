// File: internal/agent/agent.go
// Package agent implements the observe-think-act loop that drives a
// browsing session toward a natural language goal. Page content is
// sanitized and screened before it ever reaches the planning oracle.
package agent

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer/internal/config"
	"github.com/xkilldash9x/wayfarer/internal/guardrail"
	"github.com/xkilldash9x/wayfarer/internal/llmclient"
	"github.com/xkilldash9x/wayfarer/internal/sanitize"
)

// blockedPlaceholder replaces dangerous page content in observations. The
// raw text must never reach the oracle.
const blockedPlaceholder = "[GUARDRAIL: Content blocked - potential prompt injection detected]"

// extractLimit caps the result text of an explicit extract action.
const extractLimit = 3000

// Agent runs the decision loop. One Agent drives exactly one browsing
// session; Run is not reentrant.
type Agent struct {
	cfg          config.AgentConfig
	sanitizeOpts sanitize.Options
	executor     Executor
	oracle       llmclient.Client
	screener     Screener
	onStep       StepObserver
	logger       *zap.Logger

	runMu   sync.Mutex
	stopped atomic.Bool

	mu    sync.Mutex
	steps []*Step
}

// Option configures an Agent.
type Option func(*Agent)

// WithStepObserver registers a callback fired after each completed step.
func WithStepObserver(fn StepObserver) Option {
	return func(a *Agent) { a.onStep = fn }
}

// WithSanitizeOptions overrides the default sanitizer settings.
func WithSanitizeOptions(opts sanitize.Options) Option {
	return func(a *Agent) { a.sanitizeOpts = opts }
}

// New creates an agent bound to an executor, a planning oracle, and a
// guardrail screener.
func New(cfg config.AgentConfig, executor Executor, oracle llmclient.Client, screener Screener, logger *zap.Logger, opts ...Option) *Agent {
	a := &Agent{
		cfg:          cfg,
		sanitizeOpts: sanitize.DefaultOptions(),
		executor:     executor,
		oracle:       oracle,
		screener:     screener,
		logger:       logger.Named("agent"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Steps returns a snapshot of the step history so far.
func (a *Agent) Steps() []*Step {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Step, len(a.steps))
	copy(out, a.steps)
	return out
}

// Stop requests cooperative cancellation. The loop exits before starting
// the next step; the in-flight step is not preempted.
func (a *Agent) Stop() {
	a.stopped.Store(true)
}

// Run drives the loop until a terminal action, a think failure, a stop
// signal, or step budget exhaustion. It always returns a Result and never
// propagates an error to the caller.
func (a *Agent) Run(ctx context.Context, goal string) Result {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	a.logger.Info("Agent starting", zap.String("goal", goal))
	start := time.Now()
	a.stopped.Store(false)
	a.mu.Lock()
	a.steps = nil
	a.mu.Unlock()

	maxSteps := a.cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 15
	}

	finish := func(success bool, summary string) Result {
		return Result{
			Goal:      goal,
			Success:   success,
			Summary:   summary,
			Steps:     a.Steps(),
			TotalTime: time.Since(start),
		}
	}

	for num := 1; num <= maxSteps; num++ {
		if a.stopped.Load() || ctx.Err() != nil {
			return finish(false, "Stopped before completing goal")
		}

		step := &Step{Number: num, Status: StepRunning, Timestamp: time.Now()}
		a.mu.Lock()
		a.steps = append(a.steps, step)
		history := make([]*Step, len(a.steps)-1)
		copy(history, a.steps[:len(a.steps)-1])
		a.mu.Unlock()

		obs := a.observe(ctx)

		decision := a.think(ctx, goal, obs, history)
		if decision == nil {
			step.Thought = "LLM call failed"
			step.Status = StepFailed
			a.notify(step)
			return finish(false, "Planning failed: reasoning oracle returned no decision")
		}

		step.Thought = decision.Thought
		step.Action = decision.Action
		step.Args = decision.Args

		a.logger.Info("Step decided",
			zap.Int("step", num),
			zap.String("thought", truncateRunes(decision.Thought, 80)),
			zap.String("action", string(decision.Action)),
			zap.Any("args", decision.Args),
		)

		switch decision.Action {
		case ActionDone:
			step.Observation = stringArg(decision.Args, "summary", "Goal achieved")
			step.Status = StepCompleted
			if shot, err := a.executor.Screenshot(ctx); err == nil {
				step.Screenshot = shot
			}
			a.notify(step)
			return finish(true, step.Observation)

		case ActionFail:
			step.Observation = stringArg(decision.Args, "reason", "Agent gave up")
			step.Status = StepFailed
			a.notify(step)
			return finish(false, step.Observation)
		}

		observation, err := a.act(ctx, decision.Action, decision.Args)
		if err != nil {
			step.Observation = fmt.Sprintf("Action failed: %s", err)
			step.Status = StepFailed
			a.logger.Error("Step action failed",
				zap.Int("step", num),
				zap.String("error_code", string(CodeOf(err))),
				zap.Error(err),
			)
		} else {
			step.Observation = observation
			step.Status = StepCompleted
			if shot, shotErr := a.executor.Screenshot(ctx); shotErr == nil {
				step.Screenshot = shot
			}
		}

		a.notify(step)
	}

	return finish(false, fmt.Sprintf("Reached max steps (%d) without completing goal", maxSteps))
}

// observe captures the current page state. Content is sanitized, screened,
// and truncated before it is shown to the oracle. Failures degrade to an
// error description instead of aborting the loop.
func (a *Agent) observe(ctx context.Context) Observation {
	url, err := a.executor.URL(ctx)
	if err != nil {
		a.logger.Error("Observe failed", zap.Error(err))
		return Observation{URL: "unknown", Title: "unknown", Content: fmt.Sprintf("Error: %s", err)}
	}
	title, err := a.executor.Title(ctx)
	if err != nil {
		a.logger.Error("Observe failed", zap.Error(err))
		return Observation{URL: url, Title: "unknown", Content: fmt.Sprintf("Error: %s", err)}
	}
	raw, err := a.executor.Extract(ctx)
	if err != nil {
		a.logger.Error("Observe failed", zap.Error(err))
		return Observation{URL: url, Title: title, Content: fmt.Sprintf("Error: %s", err)}
	}

	content := sanitize.Transform(raw, a.sanitizeOpts)

	scan := a.screener.Scan(ctx, content)
	if scan.Level == guardrail.LevelDangerous {
		content = blockedPlaceholder
	} else {
		content = scan.Content
	}

	limit := a.cfg.ObservationLimit
	if limit <= 0 {
		limit = 8000
	}
	if len([]rune(content)) > limit {
		content = truncateRunes(content, limit) + sanitize.TruncationMarker
	}

	return Observation{URL: url, Title: title, Content: content}
}

// think asks the oracle for the next decision. Any failure yields nil.
func (a *Agent) think(ctx context.Context, goal string, obs Observation, history []*Step) *Decision {
	timeout := a.cfg.ThinkTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	apiCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	userPrompt := buildUserPrompt(goal, obs, history, a.cfg.HistoryResultLimit)

	response, err := a.oracle.Generate(apiCtx, llmclient.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Options:      llmclient.Options{Temperature: 0, MaxTokens: 1024, ForceJSON: true},
	})
	if err != nil {
		a.logger.Error("Oracle call failed",
			zap.String("error_code", string(CodeOracleUnavailable)),
			zap.Error(err),
		)
		return nil
	}

	decision, err := parseDecision(response)
	if err != nil {
		a.logger.Error("Failed to parse oracle response",
			zap.String("error_code", string(CodeOracleUnavailable)),
			zap.String("raw_response", truncateRunes(response, 500)),
			zap.Error(err),
		)
		return nil
	}
	return decision
}

// act executes a non-terminal action and describes the outcome. Untrusted
// page markup in the result is sanitized before entering the history.
func (a *Agent) act(ctx context.Context, action ActionType, args map[string]any) (string, error) {
	limit := a.cfg.ActionResultLimit
	if limit <= 0 {
		limit = 2000
	}

	switch action {
	case ActionNavigate:
		url := stringArg(args, "url", "")
		raw, err := a.executor.Navigate(ctx, url)
		if err != nil {
			return "", err
		}
		content := sanitize.Transform(raw, a.sanitizeOpts)
		return fmt.Sprintf("Navigated to %s. Page content:\n%s", url, truncateRunes(content, limit)), nil

	case ActionClick:
		selector := stringArg(args, "selector", "")
		if err := a.executor.Click(ctx, selector); err != nil {
			return "", err
		}
		content, err := a.extractClean(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Clicked %s. Page content:\n%s", selector, truncateRunes(content, limit)), nil

	case ActionTypeText:
		selector := stringArg(args, "selector", "")
		text := stringArg(args, "text", "")
		if err := a.executor.Type(ctx, selector, text); err != nil {
			return "", err
		}
		return fmt.Sprintf("Typed %q into %s", text, selector), nil

	case ActionSubmit:
		if err := a.executor.Submit(ctx); err != nil {
			return "", err
		}
		content, err := a.extractClean(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Pressed Enter to submit. Page content:\n%s", truncateRunes(content, limit)), nil

	case ActionScroll:
		direction := stringArg(args, "direction", "down")
		distance := intArg(args, "distance", 500)
		if err := a.executor.Scroll(ctx, direction, distance); err != nil {
			return "", err
		}
		content, err := a.extractClean(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Scrolled %s %dpx. Content:\n%s", direction, distance, truncateRunes(content, limit)), nil

	case ActionScreenshot:
		if _, err := a.executor.Screenshot(ctx); err != nil {
			return "", err
		}
		return "Screenshot taken", nil

	case ActionExtract:
		content, err := a.extractClean(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Extracted content:\n%s", truncateRunes(content, extractLimit)), nil

	default:
		return fmt.Sprintf("Unknown action: %s", action), nil
	}
}

func (a *Agent) extractClean(ctx context.Context) (string, error) {
	raw, err := a.executor.Extract(ctx)
	if err != nil {
		return "", err
	}
	return sanitize.Transform(raw, a.sanitizeOpts), nil
}

// notify delivers the step to the registered observer. Observer panics are
// contained.
func (a *Agent) notify(step *Step) {
	if a.onStep == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("Step observer panicked", zap.Any("panic_value", r), zap.Int("step", step.Number))
		}
	}()
	a.onStep(*step)
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
