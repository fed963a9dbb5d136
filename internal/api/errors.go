package api

import (
	"errors"
	"fmt"
)

// Distinguished error kinds for failed calls. Callers match with
// errors.Is; the concrete chain usually carries method, path, and the
// server-provided message.
var (
	// ErrSessionExpired is returned on HTTP 401. The client has already
	// invoked its session-expired hook by the time the caller sees it.
	ErrSessionExpired = errors.New("session expired")

	// ErrPermissionDenied is returned on HTTP 403. The session remains valid.
	ErrPermissionDenied = errors.New("insufficient permissions")

	// ErrNotFound is returned on HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrServer is returned on any 5xx status. Transient; callers may retry,
	// this layer does not.
	ErrServer = errors.New("transient server error")

	// ErrNetwork is returned when no response was received at all,
	// including request timeouts.
	ErrNetwork = errors.New("network unavailable")
)

// StatusError carries a non-2xx status that does not map to one of the
// distinguished kinds, along with the server's message if it sent one.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned unexpected status %d", e.StatusCode)
}
