package git

import (
	"context"
	stderrors "errors"
	"net"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
)

// typeError wraps a go-git error into a typed variant when one applies.
func typeError(op, url string, err error) error {
	if err == nil {
		return nil
	}
	l := strings.ToLower(err.Error())
	var nerr net.Error
	switch {
	case stderrors.Is(err, transport.ErrAuthenticationRequired),
		stderrors.Is(err, transport.ErrAuthorizationFailed),
		strings.Contains(l, "authentication") || strings.Contains(l, "invalid username or password"):
		return &AuthError{Op: op, URL: url, Err: err}
	case stderrors.Is(err, transport.ErrRepositoryNotFound),
		strings.Contains(l, "repository not found") || strings.Contains(l, "repository does not exist"):
		return &NotFoundError{Op: op, URL: url, Err: err}
	case stderrors.Is(err, transport.ErrInvalidAuthMethod),
		strings.Contains(l, "unsupported protocol") || strings.Contains(l, "protocol not supported"):
		return &UnsupportedProtocolError{Op: op, URL: url, Err: err}
	case strings.Contains(l, "rate limit") || strings.Contains(l, "too many requests"):
		return &RateLimitError{Op: op, URL: url, Err: err}
	case stderrors.Is(err, context.DeadlineExceeded),
		stderrors.As(err, &nerr) && nerr.Timeout(),
		strings.Contains(l, "timeout"):
		return &NetworkTimeoutError{Op: op, URL: url, Err: err}
	}
	return err
}

// classify converts a typed git error into a ClassifiedError so the retry
// policy and the CLI adapter can act on it.
func classify(op, url string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	var b *errors.ErrorBuilder
	switch {
	case stderrors.As(err, new(*AuthError)):
		b = errors.AuthError("git authentication failed")
	case stderrors.As(err, new(*NotFoundError)):
		b = errors.NotFoundError("git repository not found")
	case stderrors.As(err, new(*UnsupportedProtocolError)):
		b = errors.ConfigError("unsupported git protocol")
	case stderrors.As(err, new(*RateLimitError)):
		b = errors.NetworkError("git remote rate limited").RateLimit()
	case stderrors.As(err, new(*NetworkTimeoutError)):
		b = errors.NetworkError("git network timeout")
	case stderrors.As(err, new(*RemoteDivergedError)),
		stderrors.Is(err, plumbing.ErrObjectNotFound),
		stderrors.Is(err, plumbing.ErrReferenceNotFound):
		b = errors.GitError("commit not available from remote").Permanent()
	case stderrors.Is(err, context.Canceled):
		b = errors.GitError("git operation cancelled").Permanent()
	default:
		b = errors.GitError("git operation failed")
	}
	return b.WithCause(err).
		WithContext("op", op).
		WithContext("url", url).
		Build()
}
