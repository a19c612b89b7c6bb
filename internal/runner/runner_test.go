package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "build.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestRunSuccess(t *testing.T) {
	script := writeScript(t, `echo "building $1"; exit 0`)
	res := New(1024).Run(context.Background(), Invocation{Command: script, Args: []string{"site"}, Dir: t.TempDir()})

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Output, "building site")
	assert.NoError(t, res.Err)
}

func TestRunBuildFailure(t *testing.T) {
	script := writeScript(t, `echo "broken link" >&2; exit 2`)
	res := New(1024).Run(context.Background(), Invocation{Command: script, Dir: t.TempDir()})

	assert.Equal(t, OutcomeBuildFailure, res.Outcome)
	assert.Equal(t, 2, res.ExitCode)
	assert.Contains(t, res.Output, "broken link")
	assert.NoError(t, res.Err)
}

func TestRunUnexpectedExitCodes(t *testing.T) {
	for _, code := range []string{"1", "3", "137"} {
		t.Run(code, func(t *testing.T) {
			script := writeScript(t, "exit "+code)
			res := New(1024).Run(context.Background(), Invocation{Command: script, Dir: t.TempDir()})

			assert.Equal(t, OutcomeInternalError, res.Outcome)
			require.Error(t, res.Err)
			assert.True(t, errors.HasCategory(res.Err, errors.CategoryBuild))
		})
	}
}

func TestRunKilledBySignal(t *testing.T) {
	script := writeScript(t, `kill -9 $$`)
	res := New(1024).Run(context.Background(), Invocation{Command: script, Dir: t.TempDir()})

	assert.Equal(t, OutcomeInternalError, res.Outcome)
	assert.Equal(t, 137, res.ExitCode)
}

func TestRunTimeout(t *testing.T) {
	script := writeScript(t, `exec sleep 10`)
	res := New(1024).Run(context.Background(), Invocation{Command: script, Dir: t.TempDir(), Timeout: 100 * time.Millisecond})

	assert.Equal(t, OutcomeInternalError, res.Outcome)
	assert.True(t, res.TimedOut)
	assert.Less(t, res.Duration, 5*time.Second)
	require.Error(t, res.Err)
}

func TestRunCommandNotFound(t *testing.T) {
	res := New(1024).Run(context.Background(), Invocation{Command: filepath.Join(t.TempDir(), "missing"), Dir: t.TempDir()})

	assert.Equal(t, OutcomeInternalError, res.Outcome)
	assert.Equal(t, ExitUnknown, res.ExitCode)
	require.Error(t, res.Err)
}

func TestRunWorkingDirAndEnv(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, `pwd; echo "repo=$BRANCHBUILDER_REPOSITORY"`)
	vars := Variables{"REPOSITORY": "acme/site"}
	res := New(1024).Run(context.Background(), Invocation{Command: script, Dir: dir, Env: vars.Environ()})

	require.Equal(t, OutcomeSuccess, res.Outcome)
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Contains(t, res.Output, filepath.Base(resolved))
	assert.Contains(t, res.Output, "repo=acme/site")
}

func TestRunWritesLogFile(t *testing.T) {
	script := writeScript(t, `i=0; while [ $i -lt 200 ]; do echo "line $i"; i=$((i+1)); done`)
	logFile := filepath.Join(t.TempDir(), "build.log")
	res := New(64).Run(context.Background(), Invocation{Command: script, Dir: t.TempDir(), LogFile: logFile})

	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.True(t, strings.HasPrefix(res.Output, "[output truncated]"))
	assert.Contains(t, res.Output, "line 199")

	full, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(full), "line 0\n")
	assert.Contains(t, string(full), "line 199\n")
}

func TestTailBuffer(t *testing.T) {
	tb := newTailBuffer(5)
	_, _ = tb.Write([]byte("abc"))
	assert.Equal(t, "abc", tb.String())
	_, _ = tb.Write([]byte("def"))
	assert.Equal(t, "[output truncated]\nbcdef", tb.String())
	_, _ = tb.Write([]byte("0123456789"))
	assert.Equal(t, "[output truncated]\n56789", tb.String())
}
