package workspace

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"git.home.luguber.info/inful/branchbuilder/internal/forge"
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/logfields"
)

const lockFileName = ".lock"

// LockPath returns the lock file guarding branch.
func (m *Manager) LockPath(branch forge.BranchRef) string {
	return filepath.Join(m.Paths(branch).Root, lockFileName)
}

// TryLockBranch takes the cross-process lock of branch without waiting.
// ok is false when another process (or another Manager) holds it. The lock
// file is left in place after unlock.
func (m *Manager) TryLockBranch(branch forge.BranchRef) (unlock func(), ok bool, err error) {
	root := m.Paths(branch).Root
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, false, errors.FileSystemError("failed to create branch directory").
			WithCause(err).
			WithContext("path", root).
			Build()
	}
	path := filepath.Join(root, lockFileName)
	fl := flock.New(path)
	ok, err = fl.TryLock()
	if err != nil {
		return nil, false, errors.FileSystemError("failed to lock branch").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			slog.Warn("Failed to release branch lock", logfields.Path(path), logfields.Error(err))
		}
	}, true, nil
}
