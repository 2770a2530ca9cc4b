package sensor

import (
	"sync"
	"time"

	"github.com/dshills/homebus/internal/component"
	"github.com/dshills/homebus/internal/event"
	"github.com/dshills/homebus/internal/hal"
	"github.com/dshills/homebus/internal/loop"
)

// DefaultPolling is the read interval of an unconfigured sensor.
const DefaultPolling = 1000 * time.Millisecond

// Options configures a polled sensor.
type Options struct {
	// Driver names the board driver, e.g. "mpu6886".
	Driver string

	// Params are handed to the driver unchanged.
	Params map[string]any

	// Polling is the read interval.
	Polling time.Duration
}

// Validate checks the options for the component with the given topic.
func (o Options) Validate(owner string) error {
	if o.Driver == "" {
		return event.NewConfigError(owner, "driver", "is required")
	}
	if o.Polling < 0 {
		return event.NewConfigError(owner, "polling", "must not be negative")
	}
	return nil
}

// Sensor is a polled publisher.
type Sensor struct {
	*component.Component

	opts   Options
	source hal.Sensor
	timer  *loop.Timer

	mu      sync.Mutex
	running bool
	reading any
	errors  int
}

// New builds a sensor. Polling begins when the component starts.
func New(cfg component.Config, opts Options, board hal.Board, env component.Env) (*Sensor, error) {
	if err := opts.Validate(cfg.Topic); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if env.Loop == nil {
		return nil, &event.ConfigError{Component: cfg.Topic, Field: "loop", Err: component.ErrNoLoop}
	}
	if opts.Polling == 0 {
		opts.Polling = DefaultPolling
	}

	source, err := board.Sensor(opts.Driver, opts.Params)
	if err != nil {
		return nil, err
	}

	c, err := component.New(cfg, env)
	if err != nil {
		return nil, err
	}

	s := &Sensor{
		Component: c,
		opts:      opts,
		source:    source,
	}
	s.timer = c.NewTimer(s.tick)

	c.SetValueFunc(s.Reading)
	c.MustRegister("read", component.Get(func() any { return s.read() }))
	c.OnStart(s.Resume)
	c.OnStop(s.Pause)

	return s, nil
}

// Resume starts polling.
func (s *Sensor) Resume() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	s.timer.Start(s.opts.Polling)
}

// Pause stops polling. A paused sensor never publishes.
func (s *Sensor) Pause() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.timer.Cancel()
}

// Running reports whether the sensor is polling.
func (s *Sensor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Reading returns the last reading.
func (s *Sensor) Reading() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reading
}

// Errors returns how many reads failed.
func (s *Sensor) Errors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors
}

func (s *Sensor) tick() {
	if !s.Running() {
		return
	}
	s.timer.Start(s.opts.Polling)

	if v := s.read(); v != nil {
		s.Push(v)
	}
}

// read samples the source once. Failures count and read as nil.
func (s *Sensor) read() any {
	v, err := s.source.Read()
	if err != nil {
		s.mu.Lock()
		s.errors++
		s.mu.Unlock()
		s.Logger().Warn("sensor read failed", "driver", s.opts.Driver, "error", err)
		return nil
	}
	if v != nil {
		s.mu.Lock()
		s.reading = v
		s.mu.Unlock()
	}
	return v
}
