package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"git.home.luguber.info/inful/branchbuilder/internal/config"
)

func captureDefault(t *testing.T, format config.LogFormat) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(NewLogger(&buf, slog.LevelDebug, format))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestContextLayering(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithBranch(ctx, "foo/bar", "main", "abc")
	ctx = WithStage(ctx, "checkout")

	lc := GetContext(ctx)
	if lc.RunID != "run-1" || lc.Repository != "foo/bar" || lc.Branch != "main" || lc.Commit != "abc" || lc.Stage != "checkout" {
		t.Fatalf("unexpected log context %+v", lc)
	}
	if GetContext(context.Background()) != (LogContext{}) {
		t.Fatal("empty context must yield zero LogContext")
	}
}

func TestInfoContextIncludesBranchFields(t *testing.T) {
	buf := captureDefault(t, config.LogFormatText)
	ctx := WithBranch(WithRunID(context.Background(), "run-9"), "foo/bar", "dev", "c0ffee")

	InfoContext(ctx, "Build finished", slog.String("outcome", "success"))

	out := buf.String()
	for _, want := range []string{"run_id=run-9", "repository=foo/bar", "branch=dev", "commit=c0ffee", "outcome=success"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestNewLoggerJSON(t *testing.T) {
	buf := captureDefault(t, config.LogFormatJSON)
	WarnContext(WithStage(context.Background(), "publish"), "Status publish failed")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON log line: %v (%q)", err, buf.String())
	}
	if rec["stage"] != "publish" || rec["level"] != "WARN" {
		t.Errorf("unexpected record %v", rec)
	}
}
