package remote

import (
	"errors"
	"fmt"
)

// Classified request failures. The store branches on these: a missing record
// means "new user" while transport trouble means "stop talking to the
// remote for the rest of the session", so the two must never be conflated.
var (
	ErrNotFound     = errors.New("record not found")
	ErrUnauthorized = errors.New("credential missing or rejected")
	ErrConflict     = errors.New("conflict")
	ErrInvalid      = errors.New("invalid request")
)

// TransportError wraps network failures, timeouts and 5xx responses.
type TransportError struct {
	Op     string // short request description, e.g. "fetch progress"
	Status int    // HTTP status, 0 for network-level failures
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
