package build

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"git.home.luguber.info/inful/branchbuilder/internal/events"
	"git.home.luguber.info/inful/branchbuilder/internal/forge"
	"git.home.luguber.info/inful/branchbuilder/internal/logfields"
	"git.home.luguber.info/inful/branchbuilder/internal/observability"
	"git.home.luguber.info/inful/branchbuilder/internal/report"
	"git.home.luguber.info/inful/branchbuilder/internal/runner"
	"git.home.luguber.info/inful/branchbuilder/internal/status"
)

// Run executes one complete pass over all selected branches and returns the
// sealed report. A non-nil error means the run could not start.
func (s *Service) Run(ctx context.Context) (*report.RunReport, error) {
	start := time.Now()
	runID := s.newRunID()
	ctx = observability.WithRunID(ctx, runID)
	rep := report.New(runID)

	if err := s.policy.Validate(); err != nil {
		return nil, err
	}
	if err := s.workspace.Create(); err != nil {
		return nil, err
	}
	if err := s.checkAccess(ctx); err != nil {
		return nil, err
	}
	branches, err := s.Discover(ctx)
	if err != nil {
		return nil, err
	}

	if s.history != nil {
		if err := s.history.BeginRun(ctx, runID, rep.StartedAt()); err != nil {
			observability.WarnContext(ctx, "Failed to record run start", logfields.Error(err))
		}
	}

	s.process(ctx, rep, branches)
	rep.Finish()

	if ctx.Err() != nil {
		observability.WarnContext(ctx, "Run interrupted, remaining branches were not processed",
			logfields.Count(len(branches)-rep.Len()))
	}
	s.finish(ctx, rep)
	s.recorder.ObserveRunDuration(time.Since(start))
	return rep, nil
}

// process runs every branch through the pool bounded by the configured
// concurrency. It stops scheduling when ctx is done.
func (s *Service) process(ctx context.Context, rep *report.RunReport, branches []forge.BranchRef) {
	workers := max(1, s.cfg.Concurrency)
	s.recorder.SetConcurrency(workers)
	observability.InfoContext(ctx, "Processing branches",
		logfields.Count(len(branches)),
		logfields.Concurrency(workers))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
schedule:
	for _, b := range branches {
		select {
		case <-ctx.Done():
			break schedule
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			<-sem
			break
		}
		wg.Add(1)
		go func(b forge.BranchRef) {
			defer wg.Done()
			defer func() { <-sem }()
			entry := s.safeProcess(ctx, rep.RunID(), b)
			if err := rep.Append(entry); err != nil {
				observability.ErrorContext(ctx, "Failed to record branch outcome", logfields.Error(err))
				return
			}
			s.afterEntry(ctx, rep.RunID(), entry)
		}(b)
	}
	wg.Wait()
}

// safeProcess isolates a panic inside one unit and records it as an internal error.
func (s *Service) safeProcess(ctx context.Context, runID string, b forge.BranchRef) (entry report.Entry) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			observability.ErrorContext(ctx, "Branch processing panicked",
				logfields.Repository(b.Repository.FullName()),
				logfields.Branch(b.Name),
				logfields.Error(fmt.Errorf("%v", r)))
			observability.DebugContext(ctx, string(debug.Stack()))
			entry = report.Entry{
				Branch:    b,
				Outcome:   runner.OutcomeInternalError,
				ExitCode:  runner.ExitUnknown,
				StartedAt: start,
				Error:     fmt.Sprintf("panic: %v", r),
			}
			entry.Published = s.publishRecovered(ctx, b)
			entry.Duration = time.Since(start)
		}
	}()
	return s.processBranch(ctx, runID, b)
}

// publishRecovered reports the error state for a unit that panicked.
func (s *Service) publishRecovered(ctx context.Context, b forge.BranchRef) bool {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalPublishTimeout)
	defer cancel()
	res, err := s.reporter.Publish(pctx, b, status.Update{
		State:       forge.StateError,
		Context:     s.cfg.ReportingContext,
		Description: describe(runner.OutcomeInternalError),
	})
	if err != nil {
		observability.ErrorContext(ctx, "Failed to publish error status", logfields.Error(err))
		return false
	}
	return res.Published
}

// afterEntry feeds metrics, history and events. Failures are logged only.
func (s *Service) afterEntry(ctx context.Context, runID string, e report.Entry) {
	s.recorder.IncBranchOutcome(e.Outcome.String(), e.Skipped)
	s.recorder.ObserveBranchDuration(e.Duration)

	// Bookkeeping must complete even when the run is being cancelled.
	ctx = context.WithoutCancel(ctx)
	if s.history != nil {
		if err := s.history.Record(ctx, runID, e); err != nil {
			observability.WarnContext(ctx, "Failed to record branch history", logfields.Error(err))
		}
	}
	if err := s.events.Publish(ctx, events.NewOutcomeEvent(runID, e)); err != nil {
		observability.WarnContext(ctx, "Failed to publish outcome event", logfields.Error(err))
	}
}

// finish persists the run summary and writes the report file.
func (s *Service) finish(ctx context.Context, rep *report.RunReport) {
	ctx = context.WithoutCancel(ctx)
	if s.history != nil {
		if err := s.history.FinishRun(ctx, rep.RunID(), rep.FinishedAt(), rep.Summary()); err != nil {
			observability.WarnContext(ctx, "Failed to record run end", logfields.Error(err))
		}
	}
	if s.cfg.ReportFile == "" {
		return
	}
	if err := s.writer.Write(rep, s.cfg.ReportFile); err != nil {
		observability.ErrorContext(ctx, "Failed to write report file",
			logfields.Path(s.cfg.ReportFile),
			logfields.Error(err))
		return
	}
	observability.InfoContext(ctx, "Report written", logfields.Path(s.cfg.ReportFile))
}
