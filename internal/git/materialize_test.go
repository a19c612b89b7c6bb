package git

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/branchbuilder/internal/config"
	"git.home.luguber.info/inful/branchbuilder/internal/forge"
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/retry"
)

type remoteFixture struct {
	bare     string
	work     *git.Repository
	workPath string
}

func newRemote(t *testing.T) *remoteFixture {
	t.Helper()
	tmp := t.TempDir()
	bare := filepath.Join(tmp, "remote.git")
	if _, err := git.PlainInit(bare, true); err != nil {
		t.Fatalf("init bare: %v", err)
	}
	workPath := filepath.Join(tmp, "seed")
	work, err := git.PlainInit(workPath, false)
	if err != nil {
		t.Fatalf("init work: %v", err)
	}
	if _, err := work.CreateRemote(&ggitcfg.RemoteConfig{Name: "origin", URLs: []string{bare}}); err != nil {
		t.Fatalf("create remote: %v", err)
	}
	return &remoteFixture{bare: bare, work: work, workPath: workPath}
}

// commit writes a file, commits it and pushes all heads and tags.
func (f *remoteFixture) commit(t *testing.T, name, content string) string {
	t.Helper()
	wt, err := f.work.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(f.workPath, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("add: %v", err)
	}
	hash, err := wt.Commit("add "+name, &git.CommitOptions{Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()}})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	f.push(t)
	return hash.String()
}

func (f *remoteFixture) tag(t *testing.T, name, commit string) {
	t.Helper()
	if _, err := f.work.CreateTag(name, plumbing.NewHash(commit), nil); err != nil {
		t.Fatalf("tag: %v", err)
	}
	f.push(t)
}

func (f *remoteFixture) push(t *testing.T) {
	t.Helper()
	err := f.work.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []ggitcfg.RefSpec{"+refs/heads/*:refs/heads/*", "+refs/tags/*:refs/tags/*"},
	})
	if err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		t.Fatalf("push: %v", err)
	}
}

func (f *remoteFixture) branch(name, commit string) forge.BranchRef {
	return forge.BranchRef{
		Repository: forge.RepositoryRef{Owner: "acme", Name: "site", CloneURL: f.bare},
		Name:       name,
		HeadCommit: commit,
		Kind:       forge.RefBranch,
	}
}

func testClient() *Client {
	policy := retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 1).
		WithSleep(func(context.Context, time.Duration) error { return nil })
	return NewClient(Options{Policy: policy})
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestMaterializeClonesExactCommit(t *testing.T) {
	f := newRemote(t)
	first := f.commit(t, "index.md", "v1")
	f.commit(t, "index.md", "v2")

	dir := filepath.Join(t.TempDir(), "acme", "site", "master", "src")
	path, err := testClient().Materialize(context.Background(), f.branch("master", first), dir)
	require.NoError(t, err)
	assert.Equal(t, dir, path)

	head, err := Head(dir)
	require.NoError(t, err)
	assert.Equal(t, first, head)
	assert.Equal(t, "v1", readFile(t, filepath.Join(dir, "index.md")))
}

func TestMaterializeUpdatesExistingTree(t *testing.T) {
	f := newRemote(t)
	first := f.commit(t, "index.md", "v1")
	dir := filepath.Join(t.TempDir(), "src")
	c := testClient()

	_, err := c.Materialize(context.Background(), f.branch("master", first), dir)
	require.NoError(t, err)

	// Local edits and untracked files must not survive an update.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.md"), []byte("local edit"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "public"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public", "out.html"), []byte("x"), 0o600))

	second := f.commit(t, "index.md", "v2")
	_, err = c.Materialize(context.Background(), f.branch("master", second), dir)
	require.NoError(t, err)

	head, err := Head(dir)
	require.NoError(t, err)
	assert.Equal(t, second, head)
	assert.Equal(t, "v2", readFile(t, filepath.Join(dir, "index.md")))
	assert.NoDirExists(t, filepath.Join(dir, "public"))
}

func TestMaterializeTag(t *testing.T) {
	f := newRemote(t)
	first := f.commit(t, "index.md", "v1")
	f.tag(t, "v1.0.0", first)
	f.commit(t, "index.md", "v2")

	b := f.branch("v1.0.0", first)
	b.Kind = forge.RefTag
	dir := filepath.Join(t.TempDir(), "src")
	_, err := testClient().Materialize(context.Background(), b, dir)
	require.NoError(t, err)
	assert.Equal(t, "v1", readFile(t, filepath.Join(dir, "index.md")))
}

func TestMaterializeRecloneCorruptTree(t *testing.T) {
	f := newRemote(t)
	first := f.commit(t, "index.md", "v1")
	dir := filepath.Join(t.TempDir(), "src")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("garbage"), 0o600))

	_, err := testClient().Materialize(context.Background(), f.branch("master", first), dir)
	require.NoError(t, err)
	head, err := Head(dir)
	require.NoError(t, err)
	assert.Equal(t, first, head)
}

func TestMaterializeUnknownCommit(t *testing.T) {
	f := newRemote(t)
	f.commit(t, "index.md", "v1")
	missing := "0123456789abcdef0123456789abcdef01234567"

	_, err := testClient().Materialize(context.Background(), f.branch("master", missing), filepath.Join(t.TempDir(), "src"))
	require.Error(t, err)

	var ce *CheckoutError
	require.True(t, stderrors.As(err, &ce))
	assert.True(t, errors.HasCategory(err, errors.CategoryGit))
	var diverged *RemoteDivergedError
	assert.True(t, stderrors.As(err, &diverged))
}

func TestMaterializeMissingRemote(t *testing.T) {
	b := forge.BranchRef{
		Repository: forge.RepositoryRef{Owner: "acme", Name: "gone", CloneURL: filepath.Join(t.TempDir(), "nope.git")},
		Name:       "main",
		HeadCommit: "0123456789abcdef0123456789abcdef01234567",
	}
	_, err := testClient().Materialize(context.Background(), b, filepath.Join(t.TempDir(), "src"))
	require.Error(t, err)
	var ce *CheckoutError
	assert.True(t, stderrors.As(err, &ce))
}

func TestMaterializeRejectsBadInput(t *testing.T) {
	c := testClient()
	_, err := c.Materialize(context.Background(), forge.BranchRef{Name: "main", HeadCommit: "abc"}, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))

	b := forge.BranchRef{Repository: forge.RepositoryRef{CloneURL: "https://git.example.com/a/b.git"}, Name: "main", HeadCommit: "abc"}
	_, err = c.Materialize(context.Background(), b, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestAuthFor(t *testing.T) {
	c := NewClient(Options{Token: "secret"})
	auth, err := c.authFor("https://git.example.com/acme/site.git")
	require.NoError(t, err)
	basic, ok := auth.(*http.BasicAuth)
	require.True(t, ok)
	assert.Equal(t, "token", basic.Username)
	assert.Equal(t, "secret", basic.Password)

	auth, err = c.authFor("/srv/git/site.git")
	require.NoError(t, err)
	assert.Nil(t, auth)

	auth, err = NewClient(Options{}).authFor("https://git.example.com/acme/site.git")
	require.NoError(t, err)
	assert.Nil(t, auth)
}

func TestClassify(t *testing.T) {
	err := classify("clone", "u", typeError("clone", "u", stderrors.New("authentication required")))
	assert.True(t, errors.HasCategory(err, errors.CategoryAuth))
	assert.False(t, retry.Retryable(err))

	err = classify("fetch", "u", typeError("fetch", "u", context.DeadlineExceeded))
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
	assert.True(t, retry.Retryable(err))

	assert.NoError(t, classify("fetch", "u", nil))
}
