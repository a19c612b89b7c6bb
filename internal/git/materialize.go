package git

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/branchbuilder/internal/forge"
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/logfields"
)

var fetchRefSpecs = []ggitcfg.RefSpec{
	"+refs/heads/*:refs/remotes/origin/*",
	"+refs/tags/*:refs/tags/*",
}

// Materialize makes dir a clean working tree of branch at exactly
// branch.HeadCommit and returns dir. An existing tree is fetched and hard
// reset; local modifications and untracked files are discarded. When the
// existing tree cannot be updated it is removed and cloned again once.
func (c *Client) Materialize(ctx context.Context, branch forge.BranchRef, dir string) (string, error) {
	if branch.Repository.CloneURL == "" {
		return "", &CheckoutError{Branch: branch, Dir: dir, Err: errors.ValidationError("repository has no clone URL").Build()}
	}
	if !plumbing.IsHash(branch.HeadCommit) {
		return "", &CheckoutError{Branch: branch, Dir: dir, Err: errors.ValidationError("head commit is not a full hash").
			WithContext("commit", branch.HeadCommit).
			Build()}
	}

	if isWorkingTree(dir) {
		err := c.update(ctx, branch, dir)
		if err == nil {
			return dir, nil
		}
		if ctx.Err() != nil {
			return "", &CheckoutError{Branch: branch, Dir: dir, Err: err}
		}
		slog.Warn("Updating working tree failed, cloning again",
			logfields.Repository(branch.Repository.FullName()),
			logfields.Branch(branch.Name),
			logfields.Path(dir),
			logfields.Error(err))
	}

	if err := c.clone(ctx, branch, dir); err != nil {
		return "", &CheckoutError{Branch: branch, Dir: dir, Err: err}
	}
	return dir, nil
}

func (c *Client) clone(ctx context.Context, branch forge.BranchRef, dir string) error {
	url := branch.Repository.CloneURL
	auth, err := c.authFor(url)
	if err != nil {
		return classify("clone", url, err)
	}
	slog.Debug("Cloning repository",
		logfields.Repository(branch.Repository.FullName()),
		logfields.Branch(branch.Name),
		logfields.Path(dir))

	var repo *git.Repository
	err = c.attempt(ctx, "clone", url, func(ctx context.Context) error {
		if err := os.RemoveAll(dir); err != nil {
			return errors.FileSystemError("failed to remove existing directory").WithCause(err).WithContext("path", dir).Build()
		}
		if err := os.MkdirAll(filepath.Dir(dir), 0o750); err != nil {
			return errors.FileSystemError("failed to create checkout parent").WithCause(err).WithContext("path", dir).Build()
		}
		r, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:           url,
			Auth:          auth,
			CABundle:      c.opts.CABundle,
			ReferenceName: referenceName(branch),
			SingleBranch:  true,
			Depth:         c.opts.Depth,
		})
		if err != nil {
			return err
		}
		repo = r
		return nil
	})
	if err != nil {
		return err
	}
	if err := resetTo(repo, branch, "clone"); err != nil {
		return err
	}
	slog.Info("Repository cloned",
		logfields.Repository(branch.Repository.FullName()),
		logfields.Branch(branch.Name),
		logfields.Commit(branch.ShortCommit()),
		logfields.Path(dir))
	return nil
}

func (c *Client) update(ctx context.Context, branch forge.BranchRef, dir string) error {
	url := branch.Repository.CloneURL
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return classify("open", url, err)
	}
	if err := checkOrigin(repo, url); err != nil {
		return classify("open", url, err)
	}
	auth, err := c.authFor(url)
	if err != nil {
		return classify("fetch", url, err)
	}

	err = c.attempt(ctx, "fetch", url, func(ctx context.Context) error {
		err := repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName: "origin",
			RefSpecs:   fetchRefSpecs,
			Force:      true,
			Auth:       auth,
			CABundle:   c.opts.CABundle,
			Depth:      c.opts.Depth,
			Tags:       git.NoTags,
		})
		if stderrors.Is(err, git.NoErrAlreadyUpToDate) {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	if err := resetTo(repo, branch, "update"); err != nil {
		return err
	}
	slog.Info("Repository updated",
		logfields.Repository(branch.Repository.FullName()),
		logfields.Branch(branch.Name),
		logfields.Commit(branch.ShortCommit()),
		logfields.Path(dir))
	return nil
}

// resetTo hard resets the worktree to the branch head and removes untracked files.
func resetTo(repo *git.Repository, branch forge.BranchRef, op string) error {
	url := branch.Repository.CloneURL
	hash := plumbing.NewHash(branch.HeadCommit)
	if _, err := repo.CommitObject(hash); err != nil {
		return classify(op, url, &RemoteDivergedError{Op: op, URL: url, Branch: branch.Name, Commit: branch.HeadCommit, Err: err})
	}
	wt, err := repo.Worktree()
	if err != nil {
		return classify(op, url, err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: hash, Mode: git.HardReset}); err != nil {
		return classify(op, url, err)
	}
	if err := wt.Clean(&git.CleanOptions{Dir: true}); err != nil {
		return classify(op, url, err)
	}
	return nil
}

func checkOrigin(repo *git.Repository, url string) error {
	remote, err := repo.Remote("origin")
	if err != nil {
		return err
	}
	urls := remote.Config().URLs
	if len(urls) == 0 || urls[0] != url {
		return errors.GitError("origin does not match clone URL").
			Permanent().
			WithContext("origin", urls).
			WithContext("url", url).
			Build()
	}
	return nil
}

func referenceName(branch forge.BranchRef) plumbing.ReferenceName {
	if branch.Kind == forge.RefTag {
		return plumbing.NewTagReferenceName(branch.Name)
	}
	return plumbing.NewBranchReferenceName(branch.Name)
}

func isWorkingTree(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Head returns the commit checked out in the working tree at dir.
func Head(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}
