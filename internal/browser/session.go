// File: internal/browser/session.go
// Package browser owns the live Chrome session and exposes it to the agent
// through the Executor. One Session maps to one browser instance; concurrent
// goals need separate sessions, never a shared global.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer/internal/config"
)

// Session manages the allocator and browser context lifecycle.
type Session struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	mu            sync.Mutex
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	started       bool
}

// NewSession creates an unstarted session.
func NewSession(cfg config.BrowserConfig, logger *zap.Logger) *Session {
	return &Session{
		cfg:    cfg,
		logger: logger.Named("browser"),
	}
}

// Start launches the browser process. Calling Start on a started session is
// an error.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("browser session already started")
	}

	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(ctx, allocatorOptions(s.cfg)...)
	s.browserCtx, s.browserCancel = chromedp.NewContext(s.allocCtx)

	if err := chromedp.Run(s.browserCtx); err != nil {
		s.cleanupLocked()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	s.started = true
	s.logger.Info("Browser session started",
		zap.Bool("headless", s.cfg.Headless),
		zap.Int("viewport_width", s.cfg.ViewportWidth),
		zap.Int("viewport_height", s.cfg.ViewportHeight),
	)
	return nil
}

// Context returns the browser context all CDP calls run against.
func (s *Session) Context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browserCtx
}

// Stop tears down the browser and allocator. Safe to call more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.logger.Info("Browser session stopping")
	}
	s.cleanupLocked()
}

func (s *Session) cleanupLocked() {
	if s.browserCancel != nil {
		s.browserCancel()
		s.browserCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
	s.browserCtx = nil
	s.allocCtx = nil
	s.started = false
}

// allocatorOptions maps config onto chromedp allocator flags. Extra args
// accept both "--flag" and "--flag=value" forms.
func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	for _, arg := range cfg.Args {
		name, value := splitArg(arg)
		if name == "" {
			continue
		}
		if value == "" {
			opts = append(opts, chromedp.Flag(name, true))
		} else {
			opts = append(opts, chromedp.Flag(name, value))
		}
	}
	return opts
}

func splitArg(arg string) (name, value string) {
	arg = strings.TrimLeft(arg, "-")
	if i := strings.IndexByte(arg, '='); i >= 0 {
		return arg[:i], arg[i+1:]
	}
	return arg, ""
}
