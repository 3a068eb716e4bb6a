package telemetry

import (
	"strings"
	"sync"
)

// Level is the kind of report a RecordingAPI captured.
type Level int

const (
	LevelBroken Level = iota
	LevelWarning
	LevelDebug
	LevelCount
)

// Report is a single captured call on a RecordingAPI.
type Report struct {
	Level  Level
	Id     string
	Params []any
	Count  int64
}

// RecordingAPI keeps every report in memory so tests can assert on
// what a component logged.
type RecordingAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func (r *RecordingAPI) record(report Report) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, report)
}

func (r *RecordingAPI) ReportBroken(id string, params ...any) {
	r.record(Report{Level: LevelBroken, Id: id, Params: params})
}

func (r *RecordingAPI) ReportWarning(id string, params ...any) {
	r.record(Report{Level: LevelWarning, Id: id, Params: params})
}

func (r *RecordingAPI) ReportDebug(msg string, params ...any) {
	r.record(Report{Level: LevelDebug, Id: msg, Params: params})
}

func (r *RecordingAPI) ReportCount(id string, count int64) {
	r.record(Report{Level: LevelCount, Id: id, Count: count})
}

// Reports returns a copy of everything recorded so far.
func (r *RecordingAPI) Reports() []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Find returns the reports of the given level whose id ends with suffix,
// scoped ids carry a namespace prefix so an exact match is rarely useful.
func (r *RecordingAPI) Find(level Level, suffix string) []Report {
	var out []Report
	for _, report := range r.Reports() {
		if report.Level == level && strings.HasSuffix(report.Id, suffix) {
			out = append(out, report)
		}
	}
	return out
}
