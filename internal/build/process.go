package build

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/branchbuilder/internal/forge"
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/logfields"
	"git.home.luguber.info/inful/branchbuilder/internal/observability"
	"git.home.luguber.info/inful/branchbuilder/internal/report"
	"git.home.luguber.info/inful/branchbuilder/internal/runner"
	"git.home.luguber.info/inful/branchbuilder/internal/status"
	"git.home.luguber.info/inful/branchbuilder/internal/workspace"
)

// unit carries the working state of one branch through processBranch.
type unit struct {
	machine
	branch forge.BranchRef
	runID  string
	vars   runner.Variables
	entry  report.Entry
}

// fail records err as an internal error on the unit.
func (u *unit) fail(err error) {
	u.entry.Outcome = runner.OutcomeInternalError
	if u.entry.Error == "" && err != nil {
		u.entry.Error = err.Error()
	}
}

// processBranch drives one branch from Pending to a terminal state. It never
// returns an error: every failure is folded into the entry.
func (s *Service) processBranch(ctx context.Context, runID string, b forge.BranchRef) (entry report.Entry) {
	start := time.Now()
	ctx = observability.WithBranch(ctx, b.Repository.FullName(), b.Name, b.HeadCommit)
	paths := s.workspace.Paths(b)
	u := &unit{
		branch: b,
		runID:  runID,
		vars:   s.variables(b, runID, paths.Source, ""),
		entry: report.Entry{
			Branch:    b,
			Outcome:   runner.OutcomeSuccess,
			ExitCode:  runner.ExitUnknown,
			StartedAt: start,
		},
	}
	defer func() { entry.Duration = time.Since(start) }()

	if err := u.advance(StateEvaluated); err != nil {
		u.fail(err)
		return u.entry
	}

	skip, err := s.evaluate(ctx, b)
	switch {
	case err != nil:
		u.fail(err)
	case skip:
		if s.skip(ctx, u, report.SkipLastSuccess, "Last build succeeded, skipping") {
			return u.entry
		}
	default:
		if s.lockedWork(ctx, u, paths) {
			return u.entry
		}
	}

	s.publishFinal(ctx, u)
	if err := u.advance(StateBuilt); err != nil {
		u.fail(err)
	}
	observability.InfoContext(ctx, "Branch processed",
		logfields.Outcome(u.entry.Outcome.String()),
		logfields.ExitCode(u.entry.ExitCode),
		logfields.Published(u.entry.Published),
		logfields.Duration(time.Since(start)))
	return u.entry
}

// evaluate decides whether the branch needs a build.
func (s *Service) evaluate(ctx context.Context, b forge.BranchRef) (skip bool, err error) {
	if s.cfg.ForceRebuild || !s.cfg.SkipIfLastSuccess {
		return false, nil
	}
	last, err := s.reporter.FetchLastStatus(ctx, b, s.cfg.ReportingContext)
	if err != nil {
		observability.ErrorContext(ctx, "Failed to fetch last status", logfields.Error(err))
		return false, err
	}
	if last == nil {
		return false, nil
	}
	observability.DebugContext(ctx, "Last status", logfields.State(string(last.State)))
	return last.State == forge.StateSuccess, nil
}

// skip ends the unit as skipped. It returns false when the transition is
// not allowed, leaving the unit failed.
func (s *Service) skip(ctx context.Context, u *unit, reason, msg string) bool {
	if err := u.advance(StateSkipped); err != nil {
		u.fail(err)
		return false
	}
	u.entry.Skipped = true
	u.entry.SkipReason = reason
	u.entry.ExitCode = runner.ExitSuccess
	observability.InfoContext(ctx, msg, logfields.Outcome("skipped"))
	return true
}

// lockedWork holds the branch lock file while the working tree is touched.
// A branch locked by another process is skipped. It returns true when the
// unit ended as skipped and nothing is left to publish.
func (s *Service) lockedWork(ctx context.Context, u *unit, paths workspace.BranchPaths) (skipped bool) {
	unlockBranch, ok, err := s.workspace.TryLockBranch(u.branch)
	if err != nil {
		observability.ErrorContext(ctx, "Failed to lock branch", logfields.Error(err))
		u.fail(err)
		return false
	}
	if !ok {
		return s.skip(ctx, u, report.SkipLocked, "Branch is locked by another process, skipping")
	}
	defer unlockBranch()

	unlock := s.locker.Lock(u.branch.Repository.FullName())
	defer unlock()
	return s.checkoutAndBuild(ctx, u, paths.Source)
}

// checkoutAndBuild materializes the branch, checks for the CI file, reports
// pending and runs the build.
func (s *Service) checkoutAndBuild(ctx context.Context, u *unit, sourceDir string) (skipped bool) {
	if err := u.advance(StateCheckingOut); err != nil {
		u.fail(err)
		return false
	}
	checkoutStart := time.Now()
	_, err := s.checkout.Materialize(observability.WithStage(ctx, "checkout"), u.branch, sourceDir)
	s.recorder.ObserveCheckoutDuration(time.Since(checkoutStart), err == nil)
	s.recorder.ObserveStageDuration("checkout", time.Since(checkoutStart))
	if err != nil {
		observability.ErrorContext(ctx, "Checkout failed", logfields.Error(err))
		u.fail(err)
		return false
	}

	found, err := s.hasCIFile(sourceDir)
	if err != nil {
		observability.ErrorContext(ctx, "Failed to look up CI file", logfields.Error(err))
		u.fail(err)
		return false
	}
	if !found {
		return s.skip(ctx, u, report.SkipNoCIFile, "No CI file in checkout, skipping")
	}

	if _, err := s.reporter.Publish(ctx, u.branch, s.update(u, forge.StatePending, "Build started")); err != nil {
		observability.ErrorContext(ctx, "Failed to publish pending status", logfields.Error(err))
		u.fail(err)
		return false
	}

	buildDir, err := s.workspace.NewBuildDir(u.branch)
	if err != nil {
		observability.ErrorContext(ctx, "Failed to create build directory", logfields.Error(err))
		u.fail(err)
		return false
	}
	u.vars = s.variables(u.branch, u.runID, sourceDir, buildDir)
	u.entry.BuildDir = buildDir

	if err := u.advance(StateBuilding); err != nil {
		u.fail(err)
		return false
	}
	s.runBuild(observability.WithStage(ctx, "build"), u, sourceDir, buildDir)
	s.cleanup(ctx, u)
	return false
}

// hasCIFile reports whether the configured CI file exists in the checkout.
// An empty ci_file disables the check.
func (s *Service) hasCIFile(sourceDir string) (bool, error) {
	if s.cfg.Build.CIFile == "" {
		return true, nil
	}
	path := filepath.Join(sourceDir, s.cfg.Build.CIFile)
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, errors.FileSystemError("failed to stat CI file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
}

func (s *Service) runBuild(ctx context.Context, u *unit, sourceDir, buildDir string) {
	inv := runner.Invocation{
		Command: s.cfg.Build.Command,
		Args:    u.vars.ExpandAll(s.cfg.Build.Args),
		Dir:     sourceDir,
		Env:     u.vars.Environ(),
		Timeout: s.cfg.Build.Timeout,
		LogFile: filepath.Join(buildDir, buildLogName),
	}
	observability.InfoContext(ctx, "Running build",
		logfields.Command(inv.Command),
		logfields.Path(buildDir))

	res := s.runner.Run(ctx, inv)
	s.recorder.ObserveStageDuration("build", res.Duration)
	u.entry.Outcome = res.Outcome
	u.entry.ExitCode = res.ExitCode
	u.entry.Output = res.Output
	if res.Err != nil {
		u.entry.Error = res.Err.Error()
	}
	if res.Outcome != runner.OutcomeSuccess {
		observability.WarnContext(ctx, "Build did not succeed",
			logfields.Outcome(res.Outcome.String()),
			logfields.ExitCode(res.ExitCode),
			logfields.Error(res.Err))
	}
}

// cleanup drops the build directory of an internal error and prunes old builds.
func (s *Service) cleanup(ctx context.Context, u *unit) {
	if u.entry.Outcome == runner.OutcomeInternalError && u.entry.BuildDir != "" {
		if err := s.workspace.RemoveBuildDir(u.entry.BuildDir); err != nil {
			observability.WarnContext(ctx, "Failed to remove build directory", logfields.Error(err))
		} else {
			u.entry.BuildDir = ""
		}
	}
	removed, err := s.workspace.Prune(u.branch)
	if err != nil {
		observability.WarnContext(ctx, "Failed to prune build directories", logfields.Error(err))
		return
	}
	if len(removed) > 0 {
		observability.DebugContext(ctx, "Pruned build directories", logfields.Count(len(removed)))
	}
}

// publishFinal reports the mapped outcome. It runs detached from the run
// context so an interrupted build does not leave the commit pending.
func (s *Service) publishFinal(ctx context.Context, u *unit) {
	if err := u.advance(StatePublishing); err != nil {
		u.fail(err)
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalPublishTimeout)
	defer cancel()

	state := u.entry.Outcome.ToState()
	res, err := s.reporter.Publish(pctx, u.branch, s.update(u, state, describe(u.entry.Outcome)))
	if err != nil {
		observability.ErrorContext(ctx, "Failed to publish final status",
			logfields.State(string(state)),
			logfields.Error(err))
		u.fail(err)
		u.entry.Published = false
		return
	}
	u.entry.Published = res.Published
}

func (s *Service) update(u *unit, state forge.StatusState, description string) status.Update {
	return status.Update{
		State:       state,
		Context:     s.cfg.ReportingContext,
		Description: description,
		TargetURL:   u.vars.Expand(s.cfg.Build.TargetURL),
	}
}

func (s *Service) variables(b forge.BranchRef, runID, sourceDir, buildDir string) runner.Variables {
	reportFile := ""
	if buildDir != "" {
		reportFile = filepath.Join(buildDir, buildReportName)
	}
	return runner.NewVariables(runner.VariableInput{
		Branch:     b,
		SourceDir:  sourceDir,
		BuildDir:   buildDir,
		CIFile:     s.cfg.Build.CIFile,
		ReportFile: reportFile,
		RunID:      runID,
	})
}

func describe(o runner.Outcome) string {
	switch o {
	case runner.OutcomeSuccess:
		return "Build succeeded"
	case runner.OutcomeBuildFailure:
		return "Build failed"
	default:
		return "Build could not complete"
	}
}
