package dispatch

import "time"

// Pull is a single subscriber invocation. It returns the continue flag.
type Pull func() bool

// Result is the outcome of one pull.
type Result struct {
	// Next is the continue flag. A panicking pull reports true.
	Next bool

	Panicked   bool
	PanicValue any
	PanicStack []byte

	// Duration is how long the pull held the loop.
	Duration time.Duration
}

// IsVeto reports whether the pull asked to stop delivery.
func (r Result) IsVeto() bool {
	return !r.Next && !r.Panicked
}

// PanicHandler is told about a panicking pull.
type PanicHandler func(panicValue any, stack []byte)

func defaultPanicHandler(any, []byte) {}
