package loop

import (
	"sync"
	"time"
)

// RetryDelay is how long a timer waits before handing its expiry to the
// loop again when the queue was full.
const RetryDelay = 10 * time.Millisecond

// Timer is a cancellable one-shot timer whose callback runs on the loop.
//
// Thread-safety: Start and Cancel are safe to call from any goroutine,
// including pin edge handlers. The callback never runs concurrently with
// itself.
type Timer struct {
	mu       sync.Mutex
	loop     *Loop
	callback func()
	stopper  Stopper
	armed    bool
	gen      uint64 // generation number to detect stale expiries
}

// NewTimer creates a disarmed timer that calls callback on the loop.
func (l *Loop) NewTimer(callback func()) *Timer {
	return &Timer{
		loop:     l,
		callback: callback,
	}
}

// Start arms the timer to fire once after d, replacing any pending expiry.
func (t *Timer) Start(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopper != nil {
		t.stopper.Stop()
	}

	t.gen++
	gen := t.gen
	t.armed = true

	t.stopper = t.loop.clock.AfterFunc(d, func() { t.expire(gen) })
}

// expire hands the expiry to the loop. A full queue never loses it: the
// timer stays armed and tries again after RetryDelay.
func (t *Timer) expire(gen uint64) {
	if t.loop.offer(func() { t.fire(gen) }) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed || t.gen != gen {
		return
	}
	t.loop.deferred.Add(1)
	t.loop.logger.Debug("loop queue full, timer expiry deferred", "retry", RetryDelay)
	t.stopper = t.loop.clock.AfterFunc(RetryDelay, func() { t.expire(gen) })
}

// Cancel disarms the timer. An expiry already queued on the loop is
// discarded. Cancel is idempotent.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopper != nil {
		t.stopper.Stop()
		t.stopper = nil
	}
	// Increment gen to invalidate any queued expiry
	t.gen++
	t.armed = false
}

// Active returns true if the timer is armed and has not fired.
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// fire runs the callback if gen is still the current generation.
func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if !t.armed || t.gen != gen {
		t.mu.Unlock()
		return
	}
	t.armed = false
	t.stopper = nil
	t.mu.Unlock()

	if t.callback != nil {
		t.callback()
	}
}
