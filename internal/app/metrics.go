package app

import (
	"sync/atomic"
	"time"

	"github.com/dshills/homebus/internal/event"
	"github.com/dshills/homebus/internal/loop"
)

// Metrics tracks runtime counters.
type Metrics struct {
	built      atomic.Uint64
	skipped    atomic.Uint64
	disabled   atomic.Uint64
	reloads    atomic.Uint64
	broadcasts atomic.Uint64
	invokes    atomic.Uint64
	failures   atomic.Uint64

	// Start time for uptime calculation
	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordBuilt records a component built from the configuration.
func (m *Metrics) RecordBuilt() { m.built.Add(1) }

// RecordSkipped records a configuration entry left out because of an error.
func (m *Metrics) RecordSkipped() { m.skipped.Add(1) }

// RecordDisabled records a configuration entry left out on purpose.
func (m *Metrics) RecordDisabled() { m.disabled.Add(1) }

// RecordReload records a configuration reload.
func (m *Metrics) RecordReload() { m.reloads.Add(1) }

// RecordBroadcast records a hub broadcast.
func (m *Metrics) RecordBroadcast() { m.broadcasts.Add(1) }

// RecordInvoke records an action invocation and whether it failed.
func (m *Metrics) RecordInvoke(failed bool) {
	m.invokes.Add(1)
	if failed {
		m.failures.Add(1)
	}
}

// Snapshot is a point-in-time copy of the runtime metrics.
type Snapshot struct {
	Uptime time.Duration

	Built    uint64
	Skipped  uint64
	Disabled uint64
	Reloads  uint64

	Broadcasts     uint64
	Invokes        uint64
	InvokeFailures uint64

	Router event.Stats
	Loop   loop.Stats
}

// Snapshot returns the current counters combined with router and loop
// statistics. Either source may be nil.
func (m *Metrics) Snapshot(r *event.Router, l *loop.Loop) Snapshot {
	s := Snapshot{
		Uptime:         time.Since(m.startTime),
		Built:          m.built.Load(),
		Skipped:        m.skipped.Load(),
		Disabled:       m.disabled.Load(),
		Reloads:        m.reloads.Load(),
		Broadcasts:     m.broadcasts.Load(),
		Invokes:        m.invokes.Load(),
		InvokeFailures: m.failures.Load(),
	}
	if r != nil {
		s.Router = r.Stats()
	}
	if l != nil {
		s.Loop = l.Stats()
	}
	return s
}

// Reset zeroes the build counters. Reloads and invocation counters are
// cumulative and survive.
func (m *Metrics) Reset() {
	m.built.Store(0)
	m.skipped.Store(0)
	m.disabled.Store(0)
}
