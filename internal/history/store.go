// Package history keeps an append-only audit log of runs and branch outcomes
// in SQLite. It is never consulted when deciding whether to build.
package history

import (
	"context"
	"time"

	"git.home.luguber.info/inful/branchbuilder/internal/report"
	"git.home.luguber.info/inful/branchbuilder/internal/runner"
)

// Store persists run history.
type Store interface {
	// BeginRun records the start of a run.
	BeginRun(ctx context.Context, runID string, startedAt time.Time) error

	// Record appends one branch outcome for runID.
	Record(ctx context.Context, runID string, e report.Entry) error

	// FinishRun stores the end time and counts of a run.
	FinishRun(ctx context.Context, runID string, finishedAt time.Time, s report.Summary) error

	// Recent returns the newest outcomes, optionally filtered by repository full name.
	Recent(ctx context.Context, repository string, limit int) ([]Outcome, error)

	Close() error
}

// Outcome is one stored branch result.
type Outcome struct {
	ID         int64
	RunID      string
	Repository string
	Branch     string
	Kind       string
	Commit     string
	Outcome    runner.Outcome
	ExitCode   int
	Skipped    bool
	Published  bool
	Duration   time.Duration
	StartedAt  time.Time
	Error      string
}
