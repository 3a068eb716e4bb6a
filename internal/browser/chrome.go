package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/google/renameio/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("schedule-extractor/internal/browser")

// Chrome is an Engine backed by chromedp.
type Chrome struct {
	// ExecPath is the chrome binary, chromedp looks up a default when empty.
	ExecPath string

	// RemoteURL connects to an already running browser (ws:// or http://
	// devtools endpoint) instead of starting one.
	RemoteURL string

	// NoSandbox is needed when running as root inside containers.
	NoSandbox bool

	// OperationTimeout bounds script evaluation and screenshots,
	// DefaultOperationTimeout when zero.
	OperationTimeout time.Duration
}

const DefaultOperationTimeout = 30 * time.Second

func (c Chrome) operationTimeout() time.Duration {
	if c.OperationTimeout <= 0 {
		return DefaultOperationTimeout
	}
	return c.OperationTimeout
}

func (c Chrome) allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(ctx, c.RemoteURL)
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}
	if c.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	return chromedp.NewExecAllocator(ctx, opts...)
}

func (c Chrome) Launch(ctx context.Context) (Session, error) {
	ctx, span := tracer.Start(ctx, "Chrome.Launch")
	defer span.End()

	allocCtx, cancelAlloc := c.allocator(ctx)
	return &chromeSession{
		timeout:     c.operationTimeout(),
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
	}, nil
}

type chromeSession struct {
	timeout     time.Duration
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	pages       []context.CancelFunc
}

func (s *chromeSession) NewPage(identity Identity) (Page, error) {
	pageCtx, cancel := chromedp.NewContext(s.allocCtx)
	s.pages = append(s.pages, cancel)

	// the first Run on a fresh context is what actually starts the browser
	// and opens the tab.
	err := chromedp.Run(pageCtx, emulation.SetUserAgentOverride(identity.UserAgent))
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	return &chromePage{ctx: pageCtx, timeout: s.timeout}, nil
}

func (s *chromeSession) Close() error {
	for i := len(s.pages) - 1; i >= 0; i-- {
		s.pages[i]()
	}
	s.pages = nil
	s.cancelAlloc()
	return nil
}

type chromePage struct {
	ctx context.Context
	// timeout bounds every call that is not given its own.
	timeout time.Duration
}

// run executes actions on the tab under a deadline, a passed deadline is
// reported as ErrTimeout.
func (p *chromePage) run(ctx context.Context, op string, timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return timeoutError(op, timeout, chromedp.Run(ctx, actions...))
}

func timeoutError(op string, timeout time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s: %w", ErrTimeout, op, timeout, err)
	}
	return err
}

func (p *chromePage) Navigate(url string, timeout time.Duration) error {
	ctx, span := tracer.Start(p.ctx, "Page.Navigate")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	err := p.run(ctx, "navigate", timeout, chromedp.Navigate(url))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigation failed")
		return err
	}
	return nil
}

func (p *chromePage) WaitIdle(d time.Duration) error {
	return p.run(p.ctx, "wait", d+p.timeout, chromedp.Sleep(d))
}

func (p *chromePage) Evaluate(script string) (string, error) {
	var out string
	err := p.run(p.ctx, "evaluate", p.timeout, chromedp.Evaluate(script, &out))
	if err != nil {
		return "", err
	}
	return out, nil
}

func (p *chromePage) Screenshot(path string) error {
	var buf []byte
	// quality 100 makes chromedp capture a png rather than a jpeg
	err := p.run(p.ctx, "screenshot", p.timeout, chromedp.FullScreenshot(&buf, 100))
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, buf, os.FileMode(0644))
}
