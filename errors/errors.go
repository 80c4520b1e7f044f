package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized covers missing, malformed, or expired credentials.
	ErrUnauthorized = fmt.Errorf("unauthorized")
	// ErrNotTeamMember means the identity is valid but lacks access to the team.
	ErrNotTeamMember = fmt.Errorf("not a team member")
	ErrEmptyContent   = fmt.Errorf("message content is empty")
	ErrInvalidRequest = fmt.Errorf("invalid request")
	ErrTeamNotFound   = fmt.Errorf("team not found")
	// ErrStoreUnavailable marks transient persistence failures; callers may retry.
	ErrStoreUnavailable = fmt.Errorf("message store unavailable")
	ErrWorkerPanic      = fmt.Errorf("worker panic")
)

// HTTPStatus maps a domain error to the status code exposed at the
// protocol boundary. Unknown errors are treated as internal.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotTeamMember):
		return http.StatusForbidden
	case errors.Is(err, ErrEmptyContent), errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrTeamNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the short machine-readable code used in error envelopes.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrNotTeamMember):
		return "NOT_MEMBER"
	case errors.Is(err, ErrEmptyContent), errors.Is(err, ErrInvalidRequest):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrTeamNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrStoreUnavailable):
		return "TRANSIENT"
	default:
		return "INTERNAL"
	}
}
