package acquire

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"schedule-extractor/internal/components/telemetry"

	"github.com/google/renameio/v2"
)

const (
	report_artifacts_clean = "artifacts.clean"
)

const (
	RawMarkupFile         = "main_schedule_container.html"
	RecordFile            = "daddyliveSchedule.json"
	ScreenshotFile        = "schedule_screenshot.png"
	errorScreenshotPrefix = "error_screenshot_attempt_"
)

// Artifacts are the files a run leaves behind, all of them live in Dir and
// are overwritten by the next run.
type Artifacts struct {
	Dir string
}

func (a Artifacts) path(name string) string {
	return filepath.Join(a.Dir, name)
}

func (a Artifacts) RawMarkupPath() string {
	return a.path(RawMarkupFile)
}

func (a Artifacts) RecordPath() string {
	return a.path(RecordFile)
}

func (a Artifacts) ScreenshotPath() string {
	return a.path(ScreenshotFile)
}

func (a Artifacts) ErrorScreenshotPath(attempt int) string {
	return a.path(fmt.Sprintf("%s%d.png", errorScreenshotPrefix, attempt))
}

// previous lists the artifacts of an earlier run that currently exist.
func (a Artifacts) previous() ([]string, error) {
	var found []string
	for _, path := range []string{a.RawMarkupPath(), a.RecordPath(), a.ScreenshotPath()} {
		_, err := os.Stat(path)
		if err == nil {
			found = append(found, path)
		}
	}
	screenshots, err := filepath.Glob(a.path(errorScreenshotPrefix + "*"))
	if err != nil {
		return found, err
	}
	return append(found, screenshots...), nil
}

// Clean removes every artifact of a previous run. It keeps going when a
// file cannot be removed and returns all such failures joined.
func (a Artifacts) Clean(tel telemetry.API) error {
	paths, err := a.previous()
	if err != nil {
		tel.ReportWarning(report_artifacts_clean, fmt.Errorf("list previous artifacts: %w", err))
	}

	var errs []error
	for _, path := range paths {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			tel.ReportWarning(report_artifacts_clean, fmt.Errorf("could not remove %s: %w", path, err))
			errs = append(errs, err)
			continue
		}
		tel.ReportDebug("removed previous file", path)
	}
	return errors.Join(errs...)
}

func (a Artifacts) WriteRawMarkup(markup string) error {
	err := os.MkdirAll(a.Dir, 0755)
	if err != nil {
		return err
	}
	return renameio.WriteFile(a.RawMarkupPath(), []byte(markup), 0644)
}

// WriteRecord replaces the record file atomically with whatever write
// produces, on error the previous file (if any) is left untouched.
func (a Artifacts) WriteRecord(write func(w io.Writer) error) error {
	return WriteFileAtomic(a.RecordPath(), write)
}

// WriteFileAtomic creates the parent directories of path and replaces path
// with whatever write produces by renaming a temporary file over it.
func WriteFileAtomic(path string, write func(w io.Writer) error) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644))
	if err != nil {
		return err
	}
	defer pending.Cleanup()

	err = write(pending)
	if err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}
