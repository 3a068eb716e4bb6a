package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"schedule-extractor/internal/acquire"
	"schedule-extractor/internal/browser"
	"schedule-extractor/internal/components/telemetry"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const recordJson = `{
    "Monday 01 Jan": {
        "Football</span>": [
            {
                "time": "20:00",
                "event": "Team A vs Team B",
                "channels": [
                    {
                        "channel_name": "Channel One",
                        "channel_id": "101"
                    }
                ]
            }
        ],
        "Tennis</span>": [
            {
                "time": "11:00",
                "event": "Final",
                "channels": []
            }
        ]
    }
}
`

const containerMarkup = `<div id="main-schedule-container"><table>
<tr class="date-row"><td><strong>Monday 01 Jan</strong></td></tr>
<tr class="category-row"><td><strong>Football</strong></td></tr>
<tr class="event-row"><td><div class="event-time"><strong>20:00</strong></div><div class="event-info">Team A vs Team B</div></td></tr>
</table></div>`

func TestDefaultConfigOptions(t *testing.T) {
	opts, err := defaultConfig().options()
	require.NoError(t, err)
	require.Equal(t, acquire.DefaultOptions(), opts)
}

func TestConfigOptionsRejectsBadValues(t *testing.T) {
	c := defaultConfig()
	c.SettleDelay = "soon"
	_, err := c.options()
	require.ErrorContains(t, err, "settle_delay")

	c = defaultConfig()
	c.MaxAttempts = 0
	_, err = c.options()
	require.Error(t, err)
}

func TestConfigEngine(t *testing.T) {
	c := defaultConfig()
	engine, err := c.engine()
	require.NoError(t, err)
	require.Equal(t, browser.DefaultOperationTimeout, engine.OperationTimeout)

	c.Chrome.OperationTimeout = "never"
	_, err = c.engine()
	require.ErrorContains(t, err, "chrome.operation_timeout")
}

func TestPerfStatsInterval(t *testing.T) {
	c := defaultConfig()
	interval, err := c.perfStatsInterval()
	require.NoError(t, err)
	require.Zero(t, interval)

	c.PerfStatsInterval = "30s"
	interval, err = c.perfStatsInterval()
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, interval)
}

func TestRenderRecordFilters(t *testing.T) {
	record, err := readRecord(strings.NewReader(recordJson))
	require.NoError(t, err)

	var all bytes.Buffer
	renderRecord(&all, record, recordFilter{})
	require.Contains(t, all.String(), "Team A vs Team B")
	require.Contains(t, all.String(), "Channel One (101)")
	require.Contains(t, all.String(), "Final")
	require.NotContains(t, all.String(), "</span>")

	var football bytes.Buffer
	renderRecord(&football, record, recordFilter{categories: []string{"foot ball"}})
	require.Contains(t, football.String(), "Team A vs Team B")
	require.NotContains(t, football.String(), "Final")
}

func TestParseCommandWritesRecordFile(t *testing.T) {
	dir := t.TempDir()
	markup := filepath.Join(dir, "container.html")
	require.NoError(t, os.WriteFile(markup, []byte(containerMarkup), 0644))

	path := filepath.Join(dir, "nested", "record.json")
	require.NoError(t, parseCmd.Flags().Set("out", path))
	defer parseCmd.Flags().Set("out", "")
	require.NoError(t, parseCmd.RunE(parseCmd, []string{markup}))

	reread, err := readRecordFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"Monday 01 Jan"}, reread.Dates())
	require.Equal(t, 1, reread.EventCount())
}

func TestCleanCommandIgnoresRemovalFailures(t *testing.T) {
	dir := t.TempDir()
	artifacts := acquire.Artifacts{Dir: dir}
	require.NoError(t, os.MkdirAll(filepath.Join(artifacts.RawMarkupPath(), "inner"), 0755))
	require.NoError(t, os.WriteFile(artifacts.ScreenshotPath(), []byte("png"), 0644))

	require.NoError(t, cleanCmd.Flags().Set("out", dir))
	defer cleanCmd.Flags().Set("out", "")
	require.NoError(t, cleanCmd.RunE(cleanCmd, nil))

	_, err := os.Stat(artifacts.ScreenshotPath())
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(artifacts.RawMarkupPath())
	require.NoError(t, err)
}

func TestCleanOutputReportsFailures(t *testing.T) {
	artifacts := acquire.Artifacts{Dir: t.TempDir()}
	require.NoError(t, os.MkdirAll(filepath.Join(artifacts.RawMarkupPath(), "inner"), 0755))

	tel := &telemetry.RecordingAPI{}
	cleanOutput(artifacts, tel)
	require.Len(t, tel.Find(telemetry.LevelWarning, "artifacts.clean"), 1)
}
