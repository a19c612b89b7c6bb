package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "config.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		file, ok := err.Context().GetString("file")
		if !ok || file != "config.yaml" {
			t.Errorf("expected context file=config.yaml, got %v", file)
		}
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", GitError("clone failed").Build())

		if !IsClassified(err) {
			t.Fatal("expected wrapped error to be classified")
		}
		if !HasCategory(err, CategoryGit) {
			t.Error("expected git category")
		}
		if GetRetryStrategy(err) != RetryBackoff {
			t.Errorf("expected backoff retry, got %s", GetRetryStrategy(err))
		}
	})

	t.Run("Unclassified defaults", func(t *testing.T) {
		err := stderrors.New("plain")
		if GetCategory(err) != CategoryInternal {
			t.Errorf("expected internal category, got %s", GetCategory(err))
		}
		if GetRetryStrategy(err) != RetryNever {
			t.Errorf("expected no retry, got %s", GetRetryStrategy(err))
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := WrapError(cause, CategoryNetwork, "status publish failed").
		Warning().
		Retryable().
		WithContext("commit", "abc123").
		Build()

	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable through errors.Is")
	}
	if !err.CanRetry() {
		t.Error("expected retryable error")
	}
	if err.IsFatal() {
		t.Error("warning must not be fatal")
	}
	if got := err.Error(); got != "[network:warning] status publish failed: connection reset" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestBuildDoesNotShareContext(t *testing.T) {
	b := ForgeError("list failed").WithContext("page", 1)
	first := b.Build()
	b.WithContext("page", 2)
	second := b.Build()

	if v, _ := first.Context().Get("page"); v != 1 {
		t.Errorf("first error context mutated: %v", v)
	}
	if v, _ := second.Context().Get("page"); v != 2 {
		t.Errorf("second error context = %v, want 2", v)
	}
}

func TestSentinelComparison(t *testing.T) {
	sentinel := ForgeError("unsupported forge type").Fatal().Build()
	err := fmt.Errorf("factory: %w", ForgeError("unsupported forge type").WithContext("type", "svn").Build())
	if !stderrors.Is(err, sentinel) {
		t.Error("expected errors built with the same category and message to match")
	}
	if ConfigError("a").Build().CanRetry() {
		t.Error("config errors must not be retryable")
	}
	if AuthError("x").Build().IsFatal() {
		t.Error("auth errors default to error severity")
	}
}
