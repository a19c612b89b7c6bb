package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field names shared across packages.
const (
	KeyRunID       = "run_id"
	KeyRepo        = "repository"
	KeyBranch      = "branch"
	KeyCommit      = "commit"
	KeyRefKind     = "ref_kind"
	KeyStage       = "stage"
	KeyOutcome     = "outcome"
	KeyState       = "state"
	KeyContext     = "context"
	KeyExitCode    = "exit_code"
	KeyDurationMS  = "duration_ms"
	KeyPath        = "path"
	KeyPublished   = "published"
	KeyReason      = "reason"
	KeyError       = "error"
	KeyCount       = "count"
	KeyForge       = "forge"
	KeyCommand     = "command"
	KeyConcurrency = "concurrency"
)

func RunID(id string) slog.Attr           { return slog.String(KeyRunID, id) }
func Repository(r string) slog.Attr       { return slog.String(KeyRepo, r) }
func Branch(b string) slog.Attr           { return slog.String(KeyBranch, b) }
func Commit(sha string) slog.Attr         { return slog.String(KeyCommit, sha) }
func RefKind(kind string) slog.Attr       { return slog.String(KeyRefKind, kind) }
func Stage(name string) slog.Attr         { return slog.String(KeyStage, name) }
func Outcome(o string) slog.Attr          { return slog.String(KeyOutcome, o) }
func State(s string) slog.Attr            { return slog.String(KeyState, s) }
func StatusContext(c string) slog.Attr    { return slog.String(KeyContext, c) }
func ExitCode(code int) slog.Attr         { return slog.Int(KeyExitCode, code) }
func Path(p string) slog.Attr             { return slog.String(KeyPath, p) }
func Published(p bool) slog.Attr          { return slog.Bool(KeyPublished, p) }
func Reason(r string) slog.Attr           { return slog.String(KeyReason, r) }
func Count(n int) slog.Attr               { return slog.Int(KeyCount, n) }
func Forge(kind string) slog.Attr         { return slog.String(KeyForge, kind) }
func Command(cmd string) slog.Attr        { return slog.String(KeyCommand, cmd) }
func Concurrency(n int) slog.Attr         { return slog.Int(KeyConcurrency, n) }
func Duration(d time.Duration) slog.Attr  { return slog.Int64(KeyDurationMS, d.Milliseconds()) }

// Error renders err as a string attribute; nil yields an empty value.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
