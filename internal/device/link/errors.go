package link

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCandidate is returned when none of the configured networks is in range.
	ErrNoCandidate = errors.New("no configured network in range")

	// ErrInvalidRetry is returned for a retry policy with unusable settings.
	ErrInvalidRetry = errors.New("invalid retry settings")
)

// LinkFailure reports a failed link operation. It is always recoverable.
type LinkFailure struct {
	// Op is the failed operation, e.g. "scan" or "connect".
	Op string

	// SSID is the network involved, if any.
	SSID string

	// Attempt is the consecutive failure count.
	Attempt int

	// Err is the cause.
	Err error
}

// Error implements the error interface.
func (e *LinkFailure) Error() string {
	if e.SSID != "" {
		return fmt.Sprintf("link %s %q (attempt %d): %v", e.Op, e.SSID, e.Attempt, e.Err)
	}
	return fmt.Sprintf("link %s (attempt %d): %v", e.Op, e.Attempt, e.Err)
}

// Unwrap returns the underlying error.
func (e *LinkFailure) Unwrap() error {
	return e.Err
}
