package runner

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/logfields"
)

// ExitUnknown is recorded when the process never produced an exit status.
const ExitUnknown = -1

// waitDelay bounds how long Wait blocks on output pipes after the process is killed.
const waitDelay = 5 * time.Second

// Invocation describes one run of the build command.
type Invocation struct {
	Command string
	Args    []string
	// Dir is the working directory, normally the checkout.
	Dir string
	// Env is appended to the current process environment.
	Env []string
	// Timeout kills the process when exceeded. Zero means unbounded.
	Timeout time.Duration
	// LogFile, when set, receives the full combined output.
	LogFile string
}

// Result is the classified termination of an Invocation.
type Result struct {
	Outcome  Outcome
	ExitCode int
	// Output is the tail of the combined stdout and stderr.
	Output   string
	Duration time.Duration
	TimedOut bool
	// Err explains internal errors. It is nil for success and build failure.
	Err error
}

// Runner executes build commands.
type Runner struct {
	outputTail int
}

// New returns a Runner that keeps the last outputTail bytes of output.
func New(outputTail int) *Runner {
	if outputTail <= 0 {
		outputTail = 64 * 1024
	}
	return &Runner{outputTail: outputTail}
}

// Run starts the command and blocks until it terminates.
func (r *Runner) Run(ctx context.Context, inv Invocation) Result {
	start := time.Now()
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	tail := newTailBuffer(r.outputTail)
	var out io.Writer = tail
	if inv.LogFile != "" {
		f, err := os.Create(inv.LogFile)
		if err != nil {
			slog.Warn("Failed to create build log file", logfields.Path(inv.LogFile), logfields.Error(err))
		} else {
			defer func() { _ = f.Close() }()
			out = io.MultiWriter(tail, f)
		}
	}

	cmd := exec.CommandContext(ctx, inv.Command, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = append(os.Environ(), inv.Env...)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	slog.Debug("Running build command",
		logfields.Command(inv.Command),
		slog.Any("args", inv.Args),
		logfields.Path(inv.Dir))

	err := cmd.Run()
	res := Result{Duration: time.Since(start), Output: tail.String()}
	return classify(ctx, res, inv, err)
}

func classify(ctx context.Context, res Result, inv Invocation, err error) Result {
	if err == nil {
		res.ExitCode = ExitSuccess
		res.Outcome = OutcomeSuccess
		return res
	}

	var exitErr *exec.ExitError
	if !stderrors.As(err, &exitErr) {
		res.ExitCode = ExitUnknown
		res.Outcome = OutcomeInternalError
		res.Err = errors.BuildError("build command could not be started").
			WithCause(err).
			WithContext("command", inv.Command).
			Build()
		return res
	}

	res.ExitCode = exitCode(exitErr)
	res.Outcome = MapExitCode(res.ExitCode)

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.Outcome = OutcomeInternalError
		res.TimedOut = stderrors.Is(ctxErr, context.DeadlineExceeded)
		msg := "build command cancelled"
		if res.TimedOut {
			msg = "build command timed out"
		}
		res.Err = errors.BuildError(msg).
			WithCause(ctxErr).
			WithContext("command", inv.Command).
			WithContext("timeout", inv.Timeout.String()).
			Build()
		return res
	}

	if res.Outcome == OutcomeInternalError {
		res.Err = errors.BuildError("build command exited unexpectedly").
			WithCause(err).
			WithContext("command", inv.Command).
			WithContext("exit_code", res.ExitCode).
			Build()
	}
	return res
}

// exitCode reports signal terminations the way shells do, as 128+signal.
func exitCode(exitErr *exec.ExitError) int {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return exitErr.ExitCode()
}
