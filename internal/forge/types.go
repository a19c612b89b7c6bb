package forge

import (
	"context"
	"strings"
	"time"

	"git.home.luguber.info/inful/branchbuilder/internal/config"
)

// RepositoryRef identifies a repository on the forge by owner and name.
type RepositoryRef struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	CloneURL      string `json:"clone_url,omitempty"`
	DefaultBranch string `json:"default_branch,omitempty"`
	Private       bool   `json:"private,omitempty"`
	Archived      bool   `json:"archived,omitempty"`
}

// FullName returns owner/name, the identity key used for filtering and status scoping.
func (r RepositoryRef) FullName() string { return r.Owner + "/" + r.Name }

func (r RepositoryRef) String() string { return r.FullName() }

// ParseFullName splits "owner/name". ok is false for anything else.
func ParseFullName(fullName string) (RepositoryRef, bool) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return RepositoryRef{}, false
	}
	return RepositoryRef{Owner: owner, Name: name}, true
}

// RefKind distinguishes branches from tags.
type RefKind string

const (
	RefBranch RefKind = "branch"
	RefTag    RefKind = "tag"
)

// BranchRef is one build unit: a repository ref at a fixed head commit.
// HeadCommit does not change for the lifetime of a run.
type BranchRef struct {
	Repository RepositoryRef `json:"repository"`
	Name       string        `json:"name"`
	HeadCommit string        `json:"head_commit"`
	Kind       RefKind       `json:"kind,omitempty"`
}

// Key identifies the branch within a run.
func (b BranchRef) Key() string {
	return b.Repository.FullName() + "@" + b.Name
}

// ShortSHALength is the abbreviated commit length used in logs, reports and build directory names.
const ShortSHALength = 12

// ShortSHA abbreviates a commit hash to ShortSHALength characters.
func ShortSHA(sha string) string {
	if len(sha) > ShortSHALength {
		return sha[:ShortSHALength]
	}
	return sha
}

// ShortCommit returns the abbreviated head commit.
func (b BranchRef) ShortCommit() string {
	return ShortSHA(b.HeadCommit)
}

// StatusState is a commit status state understood by both GitHub and Forgejo.
type StatusState string

const (
	StatePending StatusState = "pending"
	StateSuccess StatusState = "success"
	StateFailure StatusState = "failure"
	StateError   StatusState = "error"
)

// Valid reports whether s is one of the four publishable states.
func (s StatusState) Valid() bool {
	switch s {
	case StatePending, StateSuccess, StateFailure, StateError:
		return true
	}
	return false
}

// Status is a commit status as stored on the forge.
type Status struct {
	State       StatusState `json:"state"`
	Context     string      `json:"context"`
	Description string      `json:"description,omitempty"`
	TargetURL   string      `json:"target_url,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Client is the subset of a forge API used by the orchestrator.
type Client interface {
	Type() config.ForgeType

	// CurrentUser returns the login of the authenticated user. It is used as a
	// startup check of credentials and TLS configuration.
	CurrentUser(ctx context.Context) (string, error)

	// ListRepositories returns every repository visible to the authenticated user.
	ListRepositories(ctx context.Context) ([]RepositoryRef, error)

	ListBranches(ctx context.Context, repo RepositoryRef) ([]BranchRef, error)
	ListTags(ctx context.Context, repo RepositoryRef) ([]BranchRef, error)

	// ListStatuses returns the statuses of a commit, newest first.
	ListStatuses(ctx context.Context, repo RepositoryRef, commit string) ([]Status, error)

	CreateStatus(ctx context.Context, repo RepositoryRef, commit string, status Status) error
}
