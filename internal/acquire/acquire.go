// Package acquire drives a browser until the schedule container renders,
// retrying with backoff and capturing screenshots of failed attempts.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"schedule-extractor/internal/assert"
	"schedule-extractor/internal/browser"
	"schedule-extractor/internal/components/chrono"
	"schedule-extractor/internal/components/telemetry"
	"schedule-extractor/lib/textutil"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_controller_acquire    = "controller.acquire"
	report_controller_attempt    = "controller.attempt"
	report_controller_screenshot = "controller.screenshot"
	report_controller_close      = "controller.close"
	report_controller_attempts   = "controller.attempts"
)

var tracer = otel.Tracer("schedule-extractor/internal/acquire")
var meter = otel.Meter("schedule-extractor/internal/acquire")
var attemptCounter, _ = meter.Int64Counter(
	"acquire.attempts",
	metric.WithDescription("acquisition attempts by outcome"),
)

type Options struct {
	URL         string
	ContainerID string
	MaxAttempts int
	// InitialDelay is the wait after the first failed attempt, hard errors
	// double it for every following attempt.
	InitialDelay      time.Duration
	NavigationTimeout time.Duration
	// SettleDelay is how long to wait after navigation for the page to
	// populate the container.
	SettleDelay time.Duration
	Identity    browser.Identity
}

func DefaultOptions() Options {
	return Options{
		URL:               "https://daddylive.mp/",
		ContainerID:       "main-schedule-container",
		MaxAttempts:       3,
		InitialDelay:      5 * time.Second,
		NavigationTimeout: 60 * time.Second,
		SettleDelay:       15 * time.Second,
		Identity:          browser.Identity{UserAgent: browser.DefaultUserAgent},
	}
}

// Processor handles the markup of a successful attempt while its page is
// still open. Errors wrapped with Permanent stop the controller, any other
// error fails the attempt like a browser error would.
type Processor interface {
	Process(ctx context.Context, markup string) error
}

type ProcessorFunc func(ctx context.Context, markup string) error

func (f ProcessorFunc) Process(ctx context.Context, markup string) error {
	return f(ctx, markup)
}

type Result struct {
	Markup string
	// Attempts is how many attempts were made, including the last one.
	Attempts int
}

type Controller struct {
	engine    browser.Engine
	artifacts Artifacts
	processor Processor
	time      chrono.TimeAPI
	tel       telemetry.API
	opts      Options
}

func NewController(
	engine browser.Engine,
	artifacts Artifacts,
	processor Processor,
	time chrono.TimeAPI,
	tel telemetry.API,
	opts Options,
) *Controller {
	assert.NotNil(engine)
	assert.NotNil(processor)
	assert.NotNil(time)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.URL)
	assert.NotEmptyStr(opts.ContainerID)
	assert.Positive(opts.MaxAttempts, "max attempts")

	return &Controller{
		engine:    engine,
		artifacts: artifacts,
		processor: processor,
		time:      time,
		tel:       telemetry.NewScopedAPI("acquire", tel),
		opts:      opts,
	}
}

// Acquire cleans up after the previous run and then makes up to
// MaxAttempts attempts at extracting the container.
func (c *Controller) Acquire(ctx context.Context) (Result, error) {
	// best effort, every failure has already been reported
	_ = c.artifacts.Clean(c.tel)

	c.tel.ReportDebug("accessing page", c.opts.URL, c.opts.ContainerID)

	delay := c.opts.InitialDelay
	var last error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		c.tel.ReportDebug("attempt", attempt, c.opts.MaxAttempts)
		c.tel.ReportCount(report_controller_attempts, int64(attempt))

		out := c.attempt(ctx, attempt)
		switch out.kind {
		case outcomeSuccess:
			return Result{Markup: out.markup, Attempts: attempt}, nil
		case outcomeFatal:
			return Result{Attempts: attempt}, out.err
		}

		last = out.err
		if attempt == c.opts.MaxAttempts {
			break
		}

		c.tel.ReportDebug("waiting before next attempt", delay.String())
		err := c.time.Sleep(ctx, delay)
		if err != nil {
			return Result{Attempts: attempt}, fmt.Errorf("acquire: interrupted: %w", errors.Join(err, last))
		}
		if out.kind == outcomeHardError {
			delay *= 2
		}
	}

	err := fmt.Errorf("%w (%d attempts): %w", ErrExhausted, c.opts.MaxAttempts, last)
	c.tel.ReportBroken(report_controller_acquire, err)
	return Result{Attempts: c.opts.MaxAttempts}, err
}

func (c *Controller) attempt(ctx context.Context, n int) outcome {
	ctx, span := tracer.Start(ctx, "acquire.attempt", trace.WithAttributes(
		attribute.Int("attempt", n),
		attribute.String("url", c.opts.URL),
	))
	defer span.End()

	out := c.try(ctx, n)

	span.SetAttributes(attribute.String("outcome", out.kind.String()))
	if out.err != nil {
		span.RecordError(out.err)
		span.SetStatus(codes.Error, out.kind.String())
	}
	attemptCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", out.kind.String())))
	return out
}

// try runs a single attempt, the session it opens is closed on every path.
func (c *Controller) try(ctx context.Context, n int) outcome {
	session, err := c.engine.Launch(ctx)
	if err != nil {
		c.tel.ReportWarning(report_controller_attempt, n, fmt.Errorf("launch browser: %w", err))
		return hardError(n, ErrAcquisition, err)
	}
	defer c.close(session)

	page, err := session.NewPage(c.opts.Identity)
	if err != nil {
		c.tel.ReportWarning(report_controller_attempt, n, fmt.Errorf("new page: %w", err))
		return hardError(n, ErrAcquisition, err)
	}

	markup, kind, err := c.extract(page)
	if err != nil {
		c.tel.ReportWarning(report_controller_attempt, n, err)
		c.screenshot(page, c.artifacts.ErrorScreenshotPath(n))
		return hardError(n, kind, err)
	}

	if markup == "" {
		c.tel.ReportWarning(report_controller_attempt, n, "container found but empty, or not present", c.opts.ContainerID)
		return softEmpty(n)
	}
	c.tel.ReportDebug("extracted container", len(markup), textutil.Truncate(markup, 80))

	err = c.processor.Process(ctx, markup)
	if err != nil {
		c.screenshot(page, c.artifacts.ErrorScreenshotPath(n))
		if IsPermanent(err) {
			c.tel.ReportBroken(report_controller_attempt, n, err)
			return fatal(err)
		}
		c.tel.ReportWarning(report_controller_attempt, n, fmt.Errorf("process markup: %w", err))
		return hardError(n, ErrAcquisition, err)
	}

	c.screenshot(page, c.artifacts.ScreenshotPath())
	return success(markup)
}

// extract returns the container markup, on error kind is the taxonomy
// error the failure belongs to.
func (c *Controller) extract(page browser.Page) (markup string, kind error, err error) {
	c.tel.ReportDebug("navigating", c.opts.URL)
	err = page.Navigate(c.opts.URL, c.opts.NavigationTimeout)
	if errors.Is(err, browser.ErrTimeout) {
		return "", ErrNavigationTimeout, fmt.Errorf("navigate: %w", err)
	}
	if err != nil {
		return "", ErrAcquisition, fmt.Errorf("navigate: %w", err)
	}

	c.tel.ReportDebug("waiting for content to settle", c.opts.SettleDelay.String())
	err = page.WaitIdle(c.opts.SettleDelay)
	if err != nil {
		return "", ErrAcquisition, fmt.Errorf("wait for content: %w", err)
	}

	markup, err = page.Evaluate(browser.ContainerScript(c.opts.ContainerID))
	if err != nil {
		return "", ErrAcquisition, fmt.Errorf("extract container: %w", err)
	}
	return markup, nil, nil
}

// screenshot is best effort, a failure here never replaces the error that
// caused it.
func (c *Controller) screenshot(page browser.Page, path string) {
	err := page.Screenshot(path)
	if err != nil {
		c.tel.ReportWarning(report_controller_screenshot, path, err)
		return
	}
	c.tel.ReportDebug("saved screenshot", path)
}

func (c *Controller) close(session browser.Session) {
	err := session.Close()
	if err != nil {
		c.tel.ReportWarning(report_controller_close, err)
	}
}
