package telemetry

import (
	"strings"
	"sync"
)

// Report is a single report captured by a Recorder.
type Report struct {
	ID     string
	Params []any
}

// Recorder is an API that keeps every broken and warning report in memory so tests
// can assert that a component reported what it should have.
type Recorder struct {
	mu       sync.Mutex
	broken   []Report
	warnings []Report
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broken = append(r.broken, Report{ID: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, Report{ID: id, Params: params})
}

func (r *Recorder) ReportDebug(string, ...any) {}

func (r *Recorder) ReportCount(string, int64) {}

// Broken returns a copy of the broken reports.
func (r *Recorder) Broken() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.broken...)
}

// Warnings returns a copy of the warning reports.
func (r *Recorder) Warnings() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.warnings...)
}

// HasWarning returns true if any warning id ends with the given suffix.
func (r *Recorder) HasWarning(suffix string) bool {
	for _, w := range r.Warnings() {
		if strings.HasSuffix(w.ID, suffix) {
			return true
		}
	}
	return false
}
