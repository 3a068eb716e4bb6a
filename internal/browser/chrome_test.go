package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestContainerScriptQuotesId(t *testing.T) {
	script := ContainerScript(`main"container`)
	require.Contains(t, script, `document.getElementById("main\"container")`)
	require.Contains(t, script, "outerHTML")
}

func TestTimeoutError(t *testing.T) {
	err := timeoutError("evaluate", time.Second, fmt.Errorf("run: %w", context.DeadlineExceeded))
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Contains(t, err.Error(), "evaluate")

	other := errors.New("target closed")
	require.Equal(t, other, timeoutError("evaluate", time.Second, other))
	require.NoError(t, timeoutError("evaluate", time.Second, nil))
}

func TestChromeOperationTimeoutDefault(t *testing.T) {
	require.Equal(t, DefaultOperationTimeout, Chrome{}.operationTimeout())
	require.Equal(t, time.Second, Chrome{OperationTimeout: time.Second}.operationTimeout())
}

const schedulePage = `<html><body>
<div id="main-schedule-container"></div>
<script>
setTimeout(() => {
	document.getElementById("main-schedule-container").innerHTML =
		"<table><tr class=\"date-row\"><td><strong>Monday</strong></td></tr></table>";
}, 100);
</script>
</body></html>`

// Launches a real chrome, set SCHEDULE_BROWSER_TEST=1 to run it.
func TestChromeRendersContainer(t *testing.T) {
	if os.Getenv("SCHEDULE_BROWSER_TEST") != "1" {
		t.Skip("SCHEDULE_BROWSER_TEST is not set")
	}

	userAgents := make(chan string, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case userAgents <- r.UserAgent():
		default:
		}
		fmt.Fprint(w, schedulePage)
	}))
	defer srv.Close()

	engine := Chrome{
		ExecPath:  os.Getenv("SCHEDULE_CHROME_PATH"),
		NoSandbox: true,
	}
	session, err := engine.Launch(context.Background())
	require.NoError(t, err)
	defer session.Close()

	page, err := session.NewPage(Identity{UserAgent: DefaultUserAgent})
	require.NoError(t, err)

	require.NoError(t, page.Navigate(srv.URL, 30*time.Second))
	require.NoError(t, page.WaitIdle(time.Second))
	require.Equal(t, DefaultUserAgent, <-userAgents)

	markup, err := page.Evaluate(ContainerScript("main-schedule-container"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(markup, `<div id="main-schedule-container">`), markup)
	require.Contains(t, markup, "date-row")

	missing, err := page.Evaluate(ContainerScript("nope"))
	require.NoError(t, err)
	require.Empty(t, missing)

	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, page.Screenshot(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}

func TestChromeNavigateTimeout(t *testing.T) {
	if os.Getenv("SCHEDULE_BROWSER_TEST") != "1" {
		t.Skip("SCHEDULE_BROWSER_TEST is not set")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	session, err := Chrome{NoSandbox: true}.Launch(context.Background())
	require.NoError(t, err)
	defer session.Close()

	page, err := session.NewPage(Identity{UserAgent: DefaultUserAgent})
	require.NoError(t, err)

	err = page.Navigate(srv.URL, 500*time.Millisecond)
	require.True(t, errors.Is(err, ErrTimeout), err)
}

func TestChromeEvaluateTimeout(t *testing.T) {
	if os.Getenv("SCHEDULE_BROWSER_TEST") != "1" {
		t.Skip("SCHEDULE_BROWSER_TEST is not set")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, schedulePage)
	}))
	defer srv.Close()

	session, err := Chrome{NoSandbox: true, OperationTimeout: time.Second}.Launch(context.Background())
	require.NoError(t, err)
	defer session.Close()

	page, err := session.NewPage(Identity{UserAgent: DefaultUserAgent})
	require.NoError(t, err)
	require.NoError(t, page.Navigate(srv.URL, 30*time.Second))

	_, err = page.Evaluate(`(() => { while (true) {} })()`)
	require.True(t, errors.Is(err, ErrTimeout), err)
}
