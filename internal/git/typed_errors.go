package git

import (
	"fmt"

	"git.home.luguber.info/inful/branchbuilder/internal/forge"
)

// Typed git errors enabling structured classification without string parsing upstream.

type AuthError struct {
	Op, URL string
	Err     error
}

func (e *AuthError) Error() string { return fmt.Sprintf("%s auth error for %s: %v", e.Op, e.URL, e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Op, URL string
	Err     error
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found %s: %v", e.Op, e.URL, e.Err) }
func (e *NotFoundError) Unwrap() error { return e.Err }

type UnsupportedProtocolError struct {
	Op, URL string
	Err     error
}

func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("%s unsupported protocol %s: %v", e.Op, e.URL, e.Err)
}
func (e *UnsupportedProtocolError) Unwrap() error { return e.Err }

type RateLimitError struct {
	Op, URL string
	Err     error
}

func (e *RateLimitError) Error() string { return fmt.Sprintf("%s rate limited %s: %v", e.Op, e.URL, e.Err) }
func (e *RateLimitError) Unwrap() error { return e.Err }

type NetworkTimeoutError struct {
	Op, URL string
	Err     error
}

func (e *NetworkTimeoutError) Error() string {
	return fmt.Sprintf("%s network timeout %s: %v", e.Op, e.URL, e.Err)
}
func (e *NetworkTimeoutError) Unwrap() error { return e.Err }

// RemoteDivergedError reports that the requested head commit is not reachable
// from the fetched refs, usually after a force push.
type RemoteDivergedError struct {
	Op, URL, Branch, Commit string
	Err                     error
}

func (e *RemoteDivergedError) Error() string {
	return fmt.Sprintf("%s remote diverged %s@%s (commit %s): %v", e.Op, e.URL, e.Branch, e.Commit, e.Err)
}
func (e *RemoteDivergedError) Unwrap() error { return e.Err }

// CheckoutError is returned by Materialize for any failure.
type CheckoutError struct {
	Branch forge.BranchRef
	Dir    string
	Err    error
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("checkout %s@%s (%s): %v", e.Branch.Repository.FullName(), e.Branch.Name, e.Branch.ShortCommit(), e.Err)
}
func (e *CheckoutError) Unwrap() error { return e.Err }
