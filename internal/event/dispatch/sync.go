package dispatch

import (
	"runtime/debug"
	"sync/atomic"
	"time"
)

// SyncDispatcher runs pulls on the caller's goroutine behind panic
// recovery and keeps timing statistics.
type SyncDispatcher struct {
	onPanic PanicHandler
	now     func() time.Time

	dispatched atomic.Uint64
	vetoed     atomic.Uint64
	panicked   atomic.Uint64
	totalNs    atomic.Int64
	maxNs      atomic.Int64
}

// SyncOption configures a SyncDispatcher.
type SyncOption func(*SyncDispatcher)

// WithPanicHandler sets the handler told about panicking pulls.
func WithPanicHandler(h PanicHandler) SyncOption {
	return func(d *SyncDispatcher) {
		if h != nil {
			d.onPanic = h
		}
	}
}

// WithNow replaces the time source used to measure pulls.
func WithNow(now func() time.Time) SyncOption {
	return func(d *SyncDispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewSyncDispatcher creates a new synchronous dispatcher.
func NewSyncDispatcher(opts ...SyncOption) *SyncDispatcher {
	d := &SyncDispatcher{
		onPanic: defaultPanicHandler,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs pull and reports its outcome. A panic is recovered and
// turned into a pass-through result.
func (d *SyncDispatcher) Dispatch(pull Pull) (result Result) {
	d.dispatched.Add(1)
	start := d.now()

	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Next:       true,
				Panicked:   true,
				PanicValue: r,
				PanicStack: debug.Stack(),
			}
			d.panicked.Add(1)
			d.report(r, result.PanicStack)
		} else if !result.Next {
			d.vetoed.Add(1)
		}
		result.Duration = d.now().Sub(start)
		d.record(result.Duration)
	}()

	result.Next = pull()
	return result
}

// report calls the panic handler; a panic inside it is swallowed.
func (d *SyncDispatcher) report(v any, stack []byte) {
	defer func() {
		_ = recover()
	}()
	d.onPanic(v, stack)
}

func (d *SyncDispatcher) record(elapsed time.Duration) {
	ns := elapsed.Nanoseconds()
	d.totalNs.Add(ns)
	for {
		cur := d.maxNs.Load()
		if ns <= cur || d.maxNs.CompareAndSwap(cur, ns) {
			return
		}
	}
}

// DispatchUntilVeto runs pulls in order until one vetoes and returns the
// results up to and including the veto.
func (d *SyncDispatcher) DispatchUntilVeto(pulls []Pull) []Result {
	results := make([]Result, 0, len(pulls))
	for _, pull := range pulls {
		result := d.Dispatch(pull)
		results = append(results, result)
		if result.IsVeto() {
			break
		}
	}
	return results
}

// SyncDispatcherStats contains statistics for a sync dispatcher.
type SyncDispatcherStats struct {
	Dispatched    uint64
	Vetoed        uint64
	Panicked      uint64
	TotalDuration time.Duration
	AvgDuration   time.Duration
	MaxDuration   time.Duration
}

// Stats returns dispatch statistics. Counters are read one by one and may
// be slightly inconsistent while pulls run.
func (d *SyncDispatcher) Stats() SyncDispatcherStats {
	n := d.dispatched.Load()
	total := d.totalNs.Load()
	s := SyncDispatcherStats{
		Dispatched:    n,
		Vetoed:        d.vetoed.Load(),
		Panicked:      d.panicked.Load(),
		TotalDuration: time.Duration(total),
		MaxDuration:   time.Duration(d.maxNs.Load()),
	}
	if n > 0 {
		s.AvgDuration = time.Duration(total / int64(n))
	}
	return s
}

// ResetStats zeroes every counter.
func (d *SyncDispatcher) ResetStats() {
	d.dispatched.Store(0)
	d.vetoed.Store(0)
	d.panicked.Store(0)
	d.totalNs.Store(0)
	d.maxNs.Store(0)
}
