package loop

import "errors"

var (
	// ErrNotManual is returned by Advance when the loop runs on a real clock.
	ErrNotManual = errors.New("loop clock is not a manual clock")

	// ErrAlreadyRunning is returned when Run is called twice concurrently.
	ErrAlreadyRunning = errors.New("loop already running")
)
