// Package testforge provides an in-memory forge.Client for tests.
package testforge

import (
	"context"
	"slices"
	"sync"
	"time"

	"git.home.luguber.info/inful/branchbuilder/internal/config"
	"git.home.luguber.info/inful/branchbuilder/internal/forge"
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
)

// FailMode defines how the test forge should fail an operation.
type FailMode int

const (
	FailModeNone FailMode = iota
	FailModeAuth
	FailModeNetwork
	FailModeRateLimit
	FailModeNotFound
	FailModePermanent
)

// Operation names used for call counting and per-operation failures.
const (
	OpCurrentUser      = "CurrentUser"
	OpListRepositories = "ListRepositories"
	OpListBranches     = "ListBranches"
	OpListTags         = "ListTags"
	OpListStatuses     = "ListStatuses"
	OpCreateStatus     = "CreateStatus"
)

// Published records a CreateStatus call.
type Published struct {
	Repository string
	Commit     string
	Status     forge.Status
}

// TestForge is a concurrency-safe in-memory forge.
type TestForge struct {
	mu sync.Mutex

	forgeType config.ForgeType
	login     string
	repos     []forge.RepositoryRef
	branches  map[string][]forge.BranchRef
	tags      map[string][]forge.BranchRef
	statuses  map[string][]forge.Status // keyed by full name + "@" + commit, newest first

	failures map[string][]FailMode // queued failures per operation
	always   map[string]FailMode
	calls    map[string]int
	created  []Published
	now      func() time.Time
}

// NewTestForge creates an empty forge of the given type.
func NewTestForge(forgeType config.ForgeType) *TestForge {
	return &TestForge{
		forgeType: forgeType,
		login:     "ci-bot",
		branches:  make(map[string][]forge.BranchRef),
		tags:      make(map[string][]forge.BranchRef),
		statuses:  make(map[string][]forge.Status),
		failures:  make(map[string][]FailMode),
		always:    make(map[string]FailMode),
		calls:     make(map[string]int),
		now:       time.Now,
	}
}

// AddRepository registers a repository by full name and returns its ref.
func (tf *TestForge) AddRepository(fullName, cloneURL string) forge.RepositoryRef {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	ref, _ := forge.ParseFullName(fullName)
	ref.CloneURL = cloneURL
	ref.DefaultBranch = "main"
	tf.repos = append(tf.repos, ref)
	return ref
}

// ArchiveRepository marks a registered repository as archived.
func (tf *TestForge) ArchiveRepository(fullName string) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	for i := range tf.repos {
		if tf.repos[i].FullName() == fullName {
			tf.repos[i].Archived = true
		}
	}
}

// AddBranch registers a branch head for a repository and returns the build unit.
func (tf *TestForge) AddBranch(repo forge.RepositoryRef, name, commit string) forge.BranchRef {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	b := forge.BranchRef{Repository: repo, Name: name, HeadCommit: commit, Kind: forge.RefBranch}
	tf.branches[repo.FullName()] = append(tf.branches[repo.FullName()], b)
	return b
}

// AddTag registers a tag for a repository.
func (tf *TestForge) AddTag(repo forge.RepositoryRef, name, commit string) forge.BranchRef {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	b := forge.BranchRef{Repository: repo, Name: name, HeadCommit: commit, Kind: forge.RefTag}
	tf.tags[repo.FullName()] = append(tf.tags[repo.FullName()], b)
	return b
}

// SetStatus seeds an existing status as if published earlier.
func (tf *TestForge) SetStatus(branch forge.BranchRef, state forge.StatusState, context string) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	key := statusKey(branch.Repository, branch.HeadCommit)
	s := forge.Status{State: state, Context: context, CreatedAt: tf.now()}
	tf.statuses[key] = append([]forge.Status{s}, tf.statuses[key]...)
}

// FailNext queues failures for op. Each call consumes one entry.
func (tf *TestForge) FailNext(op string, modes ...FailMode) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	tf.failures[op] = append(tf.failures[op], modes...)
}

// FailAlways makes every call to op fail with mode until Reset.
func (tf *TestForge) FailAlways(op string, mode FailMode) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	tf.always[op] = mode
}

// Reset clears queued failures and call counters.
func (tf *TestForge) Reset() {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	tf.failures = make(map[string][]FailMode)
	tf.always = make(map[string]FailMode)
	tf.calls = make(map[string]int)
	tf.created = nil
}

// Calls returns how many times op was invoked.
func (tf *TestForge) Calls(op string) int {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return tf.calls[op]
}

// Created returns the published statuses in call order.
func (tf *TestForge) Created() []Published {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return slices.Clone(tf.created)
}

// CreatedFor returns the states published for a branch, in order.
func (tf *TestForge) CreatedFor(branch forge.BranchRef) []forge.StatusState {
	var out []forge.StatusState
	for _, p := range tf.Created() {
		if p.Repository == branch.Repository.FullName() && p.Commit == branch.HeadCommit {
			out = append(out, p.Status.State)
		}
	}
	return out
}

func (tf *TestForge) enter(op string) error {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	tf.calls[op]++
	queue := tf.failures[op]
	if len(queue) == 0 {
		return failure(op, tf.always[op])
	}
	mode := queue[0]
	tf.failures[op] = queue[1:]
	return failure(op, mode)
}

func failure(op string, mode FailMode) error {
	switch mode {
	case FailModeAuth:
		return errors.AuthError(op + ": bad credentials").Build()
	case FailModeNetwork:
		return errors.NetworkError(op + ": connection refused").Build()
	case FailModeRateLimit:
		return errors.ForgeError(op + ": rate limited").RateLimit().Build()
	case FailModeNotFound:
		return errors.NotFoundError(op + ": not found").Build()
	case FailModePermanent:
		return errors.ForgeError(op + ": unprocessable").Permanent().Build()
	default:
		return nil
	}
}

func statusKey(repo forge.RepositoryRef, commit string) string {
	return repo.FullName() + "@" + commit
}

func (tf *TestForge) Type() config.ForgeType { return tf.forgeType }

func (tf *TestForge) CurrentUser(context.Context) (string, error) {
	if err := tf.enter(OpCurrentUser); err != nil {
		return "", err
	}
	return tf.login, nil
}

func (tf *TestForge) ListRepositories(context.Context) ([]forge.RepositoryRef, error) {
	if err := tf.enter(OpListRepositories); err != nil {
		return nil, err
	}
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return slices.Clone(tf.repos), nil
}

func (tf *TestForge) ListBranches(_ context.Context, repo forge.RepositoryRef) ([]forge.BranchRef, error) {
	if err := tf.enter(OpListBranches); err != nil {
		return nil, err
	}
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return slices.Clone(tf.branches[repo.FullName()]), nil
}

func (tf *TestForge) ListTags(_ context.Context, repo forge.RepositoryRef) ([]forge.BranchRef, error) {
	if err := tf.enter(OpListTags); err != nil {
		return nil, err
	}
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return slices.Clone(tf.tags[repo.FullName()]), nil
}

func (tf *TestForge) ListStatuses(_ context.Context, repo forge.RepositoryRef, commit string) ([]forge.Status, error) {
	if err := tf.enter(OpListStatuses); err != nil {
		return nil, err
	}
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return slices.Clone(tf.statuses[statusKey(repo, commit)]), nil
}

func (tf *TestForge) CreateStatus(_ context.Context, repo forge.RepositoryRef, commit string, status forge.Status) error {
	if err := tf.enter(OpCreateStatus); err != nil {
		return err
	}
	tf.mu.Lock()
	defer tf.mu.Unlock()
	status.CreatedAt = tf.now()
	key := statusKey(repo, commit)
	tf.statuses[key] = append([]forge.Status{status}, tf.statuses[key]...)
	tf.created = append(tf.created, Published{Repository: repo.FullName(), Commit: commit, Status: status})
	return nil
}

var _ forge.Client = (*TestForge)(nil)
