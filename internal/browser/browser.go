// Package browser is the contract the acquisition loop needs from a headless
// browser, plus a chromedp implementation of it.
package browser

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ErrTimeout is wrapped by Page methods whose deadline passed.
var ErrTimeout = errors.New("browser: timed out")

// DefaultUserAgent is the desktop client identity pages are opened with.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0.0.0 Safari/537.36"

// Identity is what a page presents itself as to the remote site.
type Identity struct {
	UserAgent string
}

// Engine launches browser sessions.
type Engine interface {
	Launch(ctx context.Context) (Session, error)
}

// Session is a single isolated browser instance. Close releases it and every
// page opened from it.
type Session interface {
	NewPage(identity Identity) (Page, error)
	Close() error
}

type Page interface {
	Navigate(url string, timeout time.Duration) error
	// WaitIdle blocks for d so client side rendering can finish.
	WaitIdle(d time.Duration) error
	// Evaluate runs script in the page and returns its string result.
	Evaluate(script string) (string, error)
	// Screenshot writes a PNG of the full page to path.
	Screenshot(path string) error
}

// ContainerScript returns a script evaluating to the outer markup of the
// element with the given id, or the empty string when there is none.
func ContainerScript(id string) string {
	return `(() => {
	const container = document.getElementById(` + strconv.Quote(id) + `);
	return container ? container.outerHTML : '';
})()`
}
