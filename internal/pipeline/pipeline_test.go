package pipeline

import (
	"context"
	"errors"
	"os"
	"schedule-extractor/internal/acquire"
	"schedule-extractor/internal/components/telemetry"
	"schedule-extractor/internal/schedule"
	"testing"

	"github.com/stretchr/testify/require"
)

const markup = `<div id="main-schedule-container"><table><tbody>
<tr class="date-row"><td><strong>Monday 01 Jan</strong></td></tr>
<tr class="category-row"><td><strong>Football</strong></td></tr>
<tr class="event-row"><td><div class="event-time"><strong>20:00</strong></div><div class="event-info">Team A vs Team B</div></td></tr>
</tbody></table></div>`

func TestProcessWritesArtifacts(t *testing.T) {
	artifacts := acquire.Artifacts{Dir: t.TempDir()}
	p := New(artifacts, &telemetry.RecordingAPI{})

	require.Nil(t, p.Record())
	require.NoError(t, p.Process(context.Background(), markup))

	raw, err := os.ReadFile(artifacts.RawMarkupPath())
	require.NoError(t, err)
	require.Equal(t, markup, string(raw))

	file, err := os.Open(artifacts.RecordPath())
	require.NoError(t, err)
	defer file.Close()
	record, err := schedule.ReadJSON(file)
	require.NoError(t, err)
	require.Equal(t, []string{"Monday 01 Jan"}, record.Dates())
	require.Equal(t, 1, p.Record().EventCount())
}

func TestProcessStructuralErrorIsPermanent(t *testing.T) {
	artifacts := acquire.Artifacts{Dir: t.TempDir()}
	p := New(artifacts, &telemetry.RecordingAPI{})

	broken := `<table><tr class="date-row"><td>no label</td></tr></table>`
	err := p.Process(context.Background(), broken)
	require.True(t, acquire.IsPermanent(err))
	require.True(t, errors.Is(err, schedule.ErrStructural))

	// the raw markup is kept for inspection, the record is not written
	_, err = os.Stat(artifacts.RawMarkupPath())
	require.NoError(t, err)
	_, err = os.Stat(artifacts.RecordPath())
	require.True(t, os.IsNotExist(err))
}
