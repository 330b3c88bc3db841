package classtrack

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the upstream rejects the bearer
	// token. The client has already invoked its OnUnauthorized callback by
	// the time callers see this.
	ErrUnauthorized = errors.New("classtrack: unauthorized")

	// ErrNotFound is returned for upstream 404 responses.
	ErrNotFound = errors.New("classtrack: not found")

	// ErrForbidden is returned when the authenticated user lacks the role
	// the endpoint requires.
	ErrForbidden = errors.New("classtrack: forbidden")
)

// APIError carries the upstream status code and detail message for
// responses outside the 2xx range.
type APIError struct {
	StatusCode int
	Detail     string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("classtrack: %s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("classtrack: %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Detail)
}

// Unwrap maps well-known status codes onto sentinel errors so callers can
// branch with errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	default:
		return nil
	}
}
