package forge

import (
	"net/http"

	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
)

var (
	// ErrForgeUnsupported signals that the forge type is not supported.
	ErrForgeUnsupported = errors.ConfigError("unsupported forge type").Build()

	// ErrInvalidState signals an attempt to publish an unknown status state.
	ErrInvalidState = errors.ValidationError("invalid commit status state").Build()
)

// classifyStatus builds the error for a failed API response.
// Rate limits and server errors are retryable, other client errors are permanent.
func classifyStatus(code int, message string) *errors.ErrorBuilder {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errors.AuthError(message)
	case code == http.StatusNotFound:
		return errors.NotFoundError(message)
	case code == http.StatusTooManyRequests:
		return errors.ForgeError(message).RateLimit()
	case code >= 500:
		return errors.ForgeError(message).Retryable()
	default:
		return errors.ForgeError(message).Permanent()
	}
}
