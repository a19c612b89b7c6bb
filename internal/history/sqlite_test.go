package history

import (
	stderrors "errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/branchbuilder/internal/forge"
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/report"
	"git.home.luguber.info/inful/branchbuilder/internal/runner"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testEntry(repo, branch string, outcome runner.Outcome) report.Entry {
	ref, _ := forge.ParseFullName(repo)
	return report.Entry{
		Branch:    forge.BranchRef{Repository: ref, Name: branch, HeadCommit: "abc123", Kind: forge.RefBranch},
		Outcome:   outcome,
		ExitCode:  2,
		Duration:  1200 * time.Millisecond,
		StartedAt: time.UnixMilli(1_700_000_000_000),
		Published: true,
		Error:     "boom",
	}
}

func TestRecordAndRecent(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	require.NoError(t, store.BeginRun(ctx, "run-1", time.Now()))
	require.NoError(t, store.Record(ctx, "run-1", testEntry("acme/site", "main", runner.OutcomeSuccess)))
	require.NoError(t, store.Record(ctx, "run-1", testEntry("foo/bar", "main", runner.OutcomeBuildFailure)))
	require.NoError(t, store.Record(ctx, "run-1", testEntry("acme/site", "dev", runner.OutcomeInternalError)))
	require.NoError(t, store.FinishRun(ctx, "run-1", time.Now(), report.Summary{Total: 3, Success: 1, BuildFailure: 1, InternalError: 1}))

	all, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "dev", all[0].Branch, "newest first")

	site, err := store.Recent(ctx, "acme/site", 10)
	require.NoError(t, err)
	require.Len(t, site, 2)
	got := site[1]
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, runner.OutcomeSuccess, got.Outcome)
	assert.Equal(t, "branch", got.Kind)
	assert.Equal(t, 2, got.ExitCode)
	assert.True(t, got.Published)
	assert.False(t, got.Skipped)
	assert.Equal(t, 1200*time.Millisecond, got.Duration)
	assert.Equal(t, int64(1_700_000_000_000), got.StartedAt.UnixMilli())
	assert.Equal(t, "boom", got.Error)

	limited, err := store.Recent(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestBeginRunDuplicate(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	require.NoError(t, store.BeginRun(ctx, "run-1", time.Now()))

	err := store.BeginRun(ctx, "run-1", time.Now())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrRecordFailed))
	assert.True(t, errors.HasCategory(err, errors.CategoryHistory))
}

func TestPersistentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(t.Context(), "run-1", testEntry("acme/site", "main", runner.OutcomeSuccess)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	rows, err := reopened.Recent(t.Context(), "", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
