package acquire

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"schedule-extractor/internal/components/telemetry"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArtifactPaths(t *testing.T) {
	a := Artifacts{Dir: "out"}
	require.Equal(t, "out/main_schedule_container.html", a.RawMarkupPath())
	require.Equal(t, "out/daddyliveSchedule.json", a.RecordPath())
	require.Equal(t, "out/schedule_screenshot.png", a.ScreenshotPath())
	require.Equal(t, "out/error_screenshot_attempt_2.png", a.ErrorScreenshotPath(2))
}

func TestWriteRecordKeepsPreviousOnError(t *testing.T) {
	a := Artifacts{Dir: t.TempDir()}
	require.NoError(t, a.WriteRecord(func(w io.Writer) error {
		_, err := io.WriteString(w, "{}\n")
		return err
	}))

	failure := errors.New("encode failed")
	err := a.WriteRecord(func(w io.Writer) error {
		_, _ = io.WriteString(w, `{"partial":`)
		return failure
	})
	require.ErrorIs(t, err, failure)

	contents, err := os.ReadFile(a.RecordPath())
	require.NoError(t, err)
	require.Equal(t, "{}\n", string(contents))
}

func TestCleanWithNothingToRemove(t *testing.T) {
	tel := &telemetry.RecordingAPI{}
	a := Artifacts{Dir: t.TempDir()}
	require.NoError(t, a.Clean(tel))
	require.Empty(t, tel.Find(telemetry.LevelWarning, report_artifacts_clean))
}

func TestWriteRawMarkupCreatesDir(t *testing.T) {
	a := Artifacts{Dir: t.TempDir() + "/nested/out"}
	require.NoError(t, a.WriteRawMarkup("<div></div>"))

	contents, err := os.ReadFile(a.RawMarkupPath())
	require.NoError(t, err)
	require.Equal(t, "<div></div>", string(contents))
}

func TestWriteFileAtomicCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "record.json")
	require.NoError(t, WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "{}")
		return err
	}))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{}", string(contents))
}

func TestCleanKeepsGoingAfterFailure(t *testing.T) {
	tel := &telemetry.RecordingAPI{}
	a := Artifacts{Dir: t.TempDir()}

	// a non-empty directory in place of the raw markup cannot be removed
	require.NoError(t, os.MkdirAll(filepath.Join(a.RawMarkupPath(), "inner"), 0755))
	require.NoError(t, os.WriteFile(a.RecordPath(), []byte("{}"), 0644))

	err := a.Clean(tel)
	require.Error(t, err)
	require.Len(t, tel.Find(telemetry.LevelWarning, report_artifacts_clean), 1)

	_, err = os.Stat(a.RecordPath())
	require.True(t, os.IsNotExist(err))
}
