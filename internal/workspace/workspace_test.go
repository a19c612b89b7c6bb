package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/branchbuilder/internal/forge"
)

func testBranch(name string) forge.BranchRef {
	return forge.BranchRef{
		Repository: forge.RepositoryRef{Owner: "acme", Name: "site"},
		Name:       name,
		HeadCommit: "0123456789abcdef0123456789abcdef01234567",
	}
}

func TestPathsLayout(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root, 3)

	p := mgr.Paths(testBranch("main"))
	assert.Equal(t, filepath.Join(root, "acme", "site", "main"), p.Root)
	assert.Equal(t, filepath.Join(root, "acme", "site", "main", "src"), p.Source)
	assert.Equal(t, filepath.Join(root, "acme", "site", "main", "builds"), p.Builds)
}

func TestPathsBranchWithSlashDoesNotNest(t *testing.T) {
	mgr := NewManager(t.TempDir(), 3)

	plain := mgr.Paths(testBranch("feature"))
	nested := mgr.Paths(testBranch("feature/src"))
	if strings.HasPrefix(nested.Root, plain.Root+string(filepath.Separator)) {
		t.Fatalf("branch %q nested inside %q", nested.Root, plain.Root)
	}
	assert.Equal(t, filepath.Dir(plain.Root), filepath.Dir(nested.Root))
}

func TestPathsTagAndBranchOfSameNameDiffer(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root, 3)

	branch := testBranch("v1")
	branch.Kind = forge.RefBranch
	tag := testBranch("v1")
	tag.Kind = forge.RefTag

	bp, tp := mgr.Paths(branch), mgr.Paths(tag)
	assert.NotEqual(t, bp.Root, tp.Root)
	assert.NotEqual(t, bp.Source, tp.Source)
	assert.Equal(t, filepath.Join(root, "acme", "site", "v1"), bp.Root)
	assert.Equal(t, filepath.Join(root, "acme", "site", "~tags", "v1"), tp.Root)
	assert.NotEqual(t, mgr.LockPath(branch), mgr.LockPath(tag))
}

func TestTryLockBranchAcrossManagers(t *testing.T) {
	root := t.TempDir()
	first := NewManager(root, 1)
	second := NewManager(root, 1)
	b := testBranch("main")

	unlock, ok, err := first.TryLockBranch(b)
	require.NoError(t, err)
	require.True(t, ok)
	assert.FileExists(t, first.LockPath(b))

	_, ok, err = second.TryLockBranch(b)
	require.NoError(t, err)
	assert.False(t, ok, "a held branch lock must not be taken twice")

	other, ok, err := second.TryLockBranch(testBranch("dev"))
	require.NoError(t, err)
	require.True(t, ok, "other branches stay available")
	other()

	unlock()
	again, ok, err := second.TryLockBranch(b)
	require.NoError(t, err)
	assert.True(t, ok)
	again()
}

func TestNewBuildDirUnique(t *testing.T) {
	mgr := NewManager(t.TempDir(), 3)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mgr.now = func() time.Time { return fixed }

	first, err := mgr.NewBuildDir(testBranch("main"))
	require.NoError(t, err)
	second, err := mgr.NewBuildDir(testBranch("main"))
	require.NoError(t, err)

	assert.Equal(t, "20260102T030405Z_0123456789ab", filepath.Base(first))
	assert.NotEqual(t, first, second)
	assert.DirExists(t, first)
	assert.DirExists(t, second)
}

func TestPruneKeepsNewest(t *testing.T) {
	mgr := NewManager(t.TempDir(), 2)
	b := testBranch("main")
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var dirs []string
	for i := range 4 {
		mgr.now = func() time.Time { return start.Add(time.Duration(i) * time.Hour) }
		dir, err := mgr.NewBuildDir(b)
		require.NoError(t, err)
		dirs = append(dirs, dir)
	}

	removed, err := mgr.Prune(b)
	require.NoError(t, err)
	assert.Equal(t, dirs[:2], removed)
	assert.NoDirExists(t, dirs[0])
	assert.NoDirExists(t, dirs[1])
	assert.DirExists(t, dirs[2])
	assert.DirExists(t, dirs[3])

	removed, err = mgr.Prune(testBranch("never-built"))
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestRemoveBuildDir(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root, 2)
	dir, err := mgr.NewBuildDir(testBranch("main"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("x"), 0o600))

	require.NoError(t, mgr.RemoveBuildDir(dir))
	assert.NoDirExists(t, dir)

	outside := t.TempDir()
	assert.Error(t, mgr.RemoveBuildDir(outside))
	assert.DirExists(t, outside)
	assert.Error(t, mgr.RemoveBuildDir(root))
}

func TestCreate(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out", "nested")
	require.NoError(t, NewManager(root, 1).Create())
	assert.DirExists(t, root)
}
