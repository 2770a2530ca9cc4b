// Package loop provides the single cooperative run loop that every
// component callback executes on.
//
// Interrupt-style producers (pin edge handlers, timer expiries) never run
// component logic directly. They Schedule a callback, which the loop runs
// later in FIFO order on its own goroutine. Schedule never blocks: when the
// queue is full the callback is dropped and counted.
//
// Timers are one-shot and owned by exactly one component. Each arm bumps a
// generation number; an expiry that was already queued when the timer was
// cancelled or re-armed is discarded when it reaches the front of the queue.
//
// Time comes from a Clock. RealClock wraps the time package; ManualClock
// lets tests move time forward explicitly with Loop.Advance.
package loop
