// Package report collects per-branch results of a run and renders them as
// JSON, Markdown or HTML.
package report

import (
	"slices"
	"sync"
	"time"

	"git.home.luguber.info/inful/branchbuilder/internal/forge"
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/runner"
)

// ErrSealed is returned by Append after Finish.
var ErrSealed = errors.InternalError("run report is sealed").Build()

// Reasons a branch was skipped without a build.
const (
	SkipLastSuccess = "last_success"
	SkipLocked      = "locked"
	SkipNoCIFile    = "no_ci_file"
)

// Entry is the result recorded for one branch.
type Entry struct {
	Branch     forge.BranchRef
	Outcome    runner.Outcome
	Duration   time.Duration
	Published  bool
	Skipped    bool
	SkipReason string
	ExitCode   int
	Error      string
	Output     string
	StartedAt  time.Time
	BuildDir   string
}

// RunReport is the ordered list of entries of one run, in completion order.
// Append is safe for concurrent use. Finish seals the report.
type RunReport struct {
	mu         sync.Mutex
	runID      string
	startedAt  time.Time
	finishedAt time.Time
	entries    []Entry
	sealed     bool
}

// New starts a report for runID.
func New(runID string) *RunReport {
	return &RunReport{runID: runID, startedAt: time.Now()}
}

func (r *RunReport) RunID() string { return r.runID }

func (r *RunReport) StartedAt() time.Time { return r.startedAt }

// FinishedAt is zero until Finish is called.
func (r *RunReport) FinishedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finishedAt
}

// Append records an entry.
func (r *RunReport) Append(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	r.entries = append(r.entries, e)
	return nil
}

// Finish seals the report. Later calls are no-ops.
func (r *RunReport) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return
	}
	r.sealed = true
	r.finishedAt = time.Now()
}

// Sealed reports whether Finish was called.
func (r *RunReport) Sealed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sealed
}

// Entries returns a copy of the entries in completion order.
func (r *RunReport) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

// Len returns the number of entries.
func (r *RunReport) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Summary counts entries by result.
type Summary struct {
	Total         int `json:"total" yaml:"total"`
	Success       int `json:"success" yaml:"success"`
	BuildFailure  int `json:"build_failure" yaml:"build_failure"`
	InternalError int `json:"internal_error" yaml:"internal_error"`
	Skipped       int `json:"skipped" yaml:"skipped"`
	Published     int `json:"published" yaml:"published"`
}

// Summary returns the counts for the current entries.
func (r *RunReport) Summary() Summary {
	var s Summary
	for _, e := range r.Entries() {
		s.Total++
		switch e.Outcome {
		case runner.OutcomeSuccess:
			s.Success++
		case runner.OutcomeBuildFailure:
			s.BuildFailure++
		default:
			s.InternalError++
		}
		if e.Skipped {
			s.Skipped++
		}
		if e.Published {
			s.Published++
		}
	}
	return s
}
