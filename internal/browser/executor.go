// File: internal/browser/executor.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer/internal/agent"
	"github.com/xkilldash9x/wayfarer/internal/config"
)

// elementWait bounds how long interactions wait for a selector to appear.
const elementWait = 5 * time.Second

// Executor implements agent.Executor against a chromedp session. All calls
// are serialized; the browser context is never used concurrently.
type Executor struct {
	session *Session
	cfg     config.BrowserConfig
	logger  *zap.Logger
	mu      sync.Mutex
}

var _ agent.Executor = (*Executor)(nil)

// NewExecutor binds an executor to a started session.
func NewExecutor(session *Session, cfg config.BrowserConfig, logger *zap.Logger) *Executor {
	return &Executor{
		session: session,
		cfg:     cfg,
		logger:  logger.Named("executor"),
	}
}

// Navigate loads the URL and returns the raw page markup. A navigation
// timeout degrades to whatever the page has rendered so far instead of
// failing the step.
func (e *Executor) Navigate(ctx context.Context, url string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	timeout := e.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	navCtx, cancel := context.WithTimeout(e.browserCtx(ctx), timeout)
	err := chromedp.Run(navCtx, chromedp.Navigate(url))
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.logger.Warn("Navigation timed out, continuing with partial page", zap.String("url", url))
		} else {
			return "", fmt.Errorf("%w: %s: %v", agent.ErrNavigation, url, err)
		}
	}

	e.settle(ctx, e.cfg.PostLoadWait)
	return e.outerHTML(ctx)
}

// Click waits briefly for the selector, then clicks it. A selector that
// never appears maps to agent.ErrElementNotFound.
func (e *Executor) Click(ctx context.Context, selector string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	clickCtx, cancel := context.WithTimeout(e.browserCtx(ctx), elementWait)
	defer cancel()

	err := chromedp.Run(clickCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("click %q: %w", selector, agent.ErrElementNotFound)
		}
		return fmt.Errorf("click %q: %w", selector, err)
	}

	e.settle(ctx, time.Second)
	return nil
}

func (e *Executor) Type(ctx context.Context, selector, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	typeCtx, cancel := context.WithTimeout(e.browserCtx(ctx), elementWait)
	defer cancel()

	err := chromedp.Run(typeCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("type into %q: %w", selector, agent.ErrElementNotFound)
		}
		return fmt.Errorf("type into %q: %w", selector, err)
	}
	return nil
}

// Submit presses Enter in the focused element, typically after Type.
func (e *Executor) Submit(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := chromedp.Run(e.browserCtx(ctx), chromedp.KeyEvent(kb.Enter)); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	wait := e.cfg.PostLoadWait
	if wait <= 0 {
		wait = 2 * time.Second
	}
	e.settle(ctx, wait)
	return nil
}

func (e *Executor) Scroll(ctx context.Context, direction string, distance int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if distance <= 0 {
		distance = 500
	}
	if direction == "up" {
		distance = -distance
	}

	script := fmt.Sprintf("window.scrollBy(0, %d)", distance)
	if err := chromedp.Run(e.browserCtx(ctx), chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

func (e *Executor) Screenshot(ctx context.Context) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var buf []byte
	if err := chromedp.Run(e.browserCtx(ctx), chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// Extract returns the raw outer HTML of the current document.
func (e *Executor) Extract(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outerHTML(ctx)
}

func (e *Executor) URL(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var url string
	if err := chromedp.Run(e.browserCtx(ctx), chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("get url: %w", err)
	}
	return url, nil
}

func (e *Executor) Title(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var title string
	if err := chromedp.Run(e.browserCtx(ctx), chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("get title: %w", err)
	}
	return title, nil
}

// browserCtx binds the session context to the caller's cancellation.
func (e *Executor) browserCtx(ctx context.Context) context.Context {
	browser := e.session.Context()
	if browser == nil {
		return ctx
	}
	return browser
}

func (e *Executor) outerHTML(ctx context.Context) (string, error) {
	var html string
	err := chromedp.Run(e.browserCtx(ctx),
		chromedp.ActionFunc(func(ctx context.Context) error {
			node, err := dom.GetDocument().Do(ctx)
			if err != nil {
				return err
			}
			html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return "", fmt.Errorf("extract html: %w", err)
	}
	return html, nil
}

func (e *Executor) settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	_ = chromedp.Run(e.browserCtx(ctx), chromedp.Sleep(d))
}
