package loop

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// DefaultQueueSize is the default capacity of the callback queue.
const DefaultQueueSize = 256

// Loop runs deferred callbacks one at a time, in the order they were scheduled.
type Loop struct {
	queue   chan func()
	clock   Clock
	logger  *slog.Logger
	running atomic.Bool

	// Stats
	scheduled atomic.Uint64
	executed  atomic.Uint64
	dropped   atomic.Uint64
	deferred  atomic.Uint64
	panics    atomic.Uint64
}

// Option configures a Loop.
type Option func(*Loop)

// WithQueueSize sets the callback queue capacity.
func WithQueueSize(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.queue = make(chan func(), n)
		}
	}
}

// WithClock sets the time source for timers created by the loop.
func WithClock(c Clock) Option {
	return func(l *Loop) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithLogger sets the logger used for dropped and panicking callbacks.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a loop. It does not start running until Run is called.
func New(opts ...Option) *Loop {
	l := &Loop{
		queue:  make(chan func(), DefaultQueueSize),
		clock:  RealClock{},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Clock returns the loop's time source.
func (l *Loop) Clock() Clock {
	return l.clock
}

// Schedule queues fn to run on the loop. It never blocks and is safe to
// call from any goroutine. It returns false if the queue was full and fn
// was dropped.
func (l *Loop) Schedule(fn func()) bool {
	if fn == nil {
		return true
	}
	if l.offer(fn) {
		return true
	}
	l.dropped.Add(1)
	l.logger.Warn("loop queue full, callback dropped", "capacity", cap(l.queue))
	return false
}

func (l *Loop) offer(fn func()) bool {
	select {
	case l.queue <- fn:
		l.scheduled.Add(1)
		return true
	default:
		return false
	}
}

// Run executes callbacks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			l.execute(fn)
		}
	}
}

// RunPending executes queued callbacks until the queue is empty, including
// callbacks scheduled while draining. It returns the number executed.
// It is meant for tests and for draining after Run has returned.
func (l *Loop) RunPending() int {
	n := 0
	for {
		select {
		case fn := <-l.queue:
			l.execute(fn)
			n++
		default:
			return n
		}
	}
}

// Advance moves a manual clock forward by d, draining the queue after every
// timer expiry so that timers armed by callbacks are honoured in order.
func (l *Loop) Advance(d time.Duration) error {
	mc, ok := l.clock.(*ManualClock)
	if !ok {
		return ErrNotManual
	}
	l.RunPending()
	mc.AdvanceFunc(d, func() { l.RunPending() })
	l.RunPending()
	return nil
}

// execute runs one callback behind panic recovery.
func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.panics.Add(1)
			l.logger.Error("loop callback panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	l.executed.Add(1)
	fn()
}

// Stats contains loop statistics.
type Stats struct {
	Scheduled uint64
	Executed  uint64
	Dropped   uint64
	Panics    uint64
	Queued    int

	// Deferred counts timer expiries that found the queue full and were
	// retried after RetryDelay.
	Deferred uint64
}

// Stats returns loop statistics.
func (l *Loop) Stats() Stats {
	return Stats{
		Scheduled: l.scheduled.Load(),
		Executed:  l.executed.Load(),
		Dropped:   l.dropped.Load(),
		Panics:    l.panics.Load(),
		Queued:    len(l.queue),
		Deferred:  l.deferred.Load(),
	}
}
