package workspace

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/branchbuilder/internal/forge"
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/logfields"
)

const (
	sourceDirName = "src"
	buildsDirName = "builds"
	stampLayout   = "20060102T150405Z"

	// tagsDirName holds tag directories next to branch directories. "~" is
	// not allowed in git ref names, so no branch can take this name.
	tagsDirName = "~tags"
)

// BranchPaths are the directories owned by one branch.
type BranchPaths struct {
	Root   string
	Source string
	Builds string
}

// Manager handles workspace operations under a fixed output directory.
type Manager struct {
	root string
	keep int
	now  func() time.Time
}

// NewManager creates a workspace manager rooted at root that retains the
// newest keepBuilds build directories per branch.
func NewManager(root string, keepBuilds int) *Manager {
	if keepBuilds < 1 {
		keepBuilds = 1
	}
	return &Manager{root: root, keep: keepBuilds, now: time.Now}
}

// Root returns the output directory.
func (m *Manager) Root() string { return m.root }

// Create ensures the output directory exists.
func (m *Manager) Create() error {
	if err := os.MkdirAll(m.root, 0o750); err != nil {
		return errors.FileSystemError("failed to create output directory").
			WithCause(err).
			WithContext("path", m.root).
			Build()
	}
	slog.Debug("Using output directory", logfields.Path(m.root))
	return nil
}

// Paths returns the directories for branch without creating them.
// Tags live under a separate directory so a tag and a branch of the same
// name never share a checkout.
func (m *Manager) Paths(branch forge.BranchRef) BranchPaths {
	repo := filepath.Join(m.root,
		url.PathEscape(branch.Repository.Owner),
		url.PathEscape(branch.Repository.Name))
	if branch.Kind == forge.RefTag {
		repo = filepath.Join(repo, tagsDirName)
	}
	root := filepath.Join(repo, url.PathEscape(branch.Name))
	return BranchPaths{
		Root:   root,
		Source: filepath.Join(root, sourceDirName),
		Builds: filepath.Join(root, buildsDirName),
	}
}

// NewBuildDir creates a fresh build directory for branch.
func (m *Manager) NewBuildDir(branch forge.BranchRef) (string, error) {
	builds := m.Paths(branch).Builds
	if err := os.MkdirAll(builds, 0o750); err != nil {
		return "", errors.FileSystemError("failed to create builds directory").
			WithCause(err).
			WithContext("path", builds).
			Build()
	}
	base := m.now().UTC().Format(stampLayout) + "_" + branch.ShortCommit()
	name := base
	for i := 1; ; i++ {
		dir := filepath.Join(builds, name)
		err := os.Mkdir(dir, 0o750)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", errors.FileSystemError("failed to create build directory").
				WithCause(err).
				WithContext("path", dir).
				Build()
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
}

// RemoveBuildDir deletes a build directory created by NewBuildDir.
func (m *Manager) RemoveBuildDir(dir string) error {
	if !m.contains(dir) {
		return errors.ValidationError("refusing to remove directory outside output").
			WithContext("path", dir).
			Build()
	}
	if err := os.RemoveAll(dir); err != nil {
		return errors.FileSystemError("failed to remove build directory").
			WithCause(err).
			WithContext("path", dir).
			Build()
	}
	return nil
}

// Prune removes all but the newest build directories of branch and returns
// the removed paths.
func (m *Manager) Prune(branch forge.BranchRef) ([]string, error) {
	builds := m.Paths(branch).Builds
	entries, err := os.ReadDir(builds)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.FileSystemError("failed to read builds directory").
			WithCause(err).
			WithContext("path", builds).
			Build()
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) <= m.keep {
		return nil, nil
	}
	// Names start with a UTC timestamp, so lexical order is chronological.
	slices.Sort(names)
	var removed []string
	for _, name := range names[:len(names)-m.keep] {
		dir := filepath.Join(builds, name)
		if err := os.RemoveAll(dir); err != nil {
			return removed, errors.FileSystemError("failed to prune build directory").
				WithCause(err).
				WithContext("path", dir).
				Build()
		}
		removed = append(removed, dir)
	}
	return removed, nil
}

func (m *Manager) contains(dir string) bool {
	rel, err := filepath.Rel(m.root, dir)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
