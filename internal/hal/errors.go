package hal

import (
	"errors"
	"fmt"
)

// Sentinel errors for hardware access.
var (
	// ErrPinInUse is returned when a pin is claimed twice.
	ErrPinInUse = errors.New("pin already in use")

	// ErrNoSuchPin is returned for a pin number the board does not have.
	ErrNoSuchPin = errors.New("no such pin")

	// ErrUnsupported is returned for a resource the board cannot provide.
	ErrUnsupported = errors.New("unsupported on this board")

	// ErrClosed is returned when using a released resource.
	ErrClosed = errors.New("resource closed")
)

// HardwareInitError reports a resource that could not be initialised.
type HardwareInitError struct {
	// Resource names the kind of resource, e.g. "input", "station".
	Resource string

	// Pin is the pin number, or -1 when not applicable.
	Pin int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HardwareInitError) Error() string {
	if e.Pin >= 0 {
		return fmt.Sprintf("hardware init %s pin %d: %v", e.Resource, e.Pin, e.Err)
	}
	return fmt.Sprintf("hardware init %s: %v", e.Resource, e.Err)
}

// Unwrap returns the underlying error.
func (e *HardwareInitError) Unwrap() error {
	return e.Err
}
