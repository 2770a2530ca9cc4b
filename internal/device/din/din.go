package din

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dshills/homebus/internal/component"
	"github.com/dshills/homebus/internal/event"
	"github.com/dshills/homebus/internal/hal"
	"github.com/dshills/homebus/internal/loop"
)

// Gesture is a published input event.
type Gesture string

const (
	None        Gesture = ""
	Pressed     Gesture = "P"
	Clicked     Gesture = "C"
	LongPressed Gesture = "L"
)

// Phase is the state of the gesture machine.
type Phase int

const (
	Idle Phase = iota
	Debouncing
	LongPending
	Held
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case LongPending:
		return "long-pending"
	case Held:
		return "held"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Defaults.
const (
	DefaultDebounce = 50 * time.Millisecond
	DefaultLong     = 1000 * time.Millisecond
	DefaultFilter   = "PCL"
)

// Options configures a digital input.
type Options struct {
	// Pin is the input pin number. Required.
	Pin int

	// Inverted means the input is active low (pull-up, pressed = Low).
	Inverted bool

	// Debounce is how long a level must hold before it counts.
	Debounce time.Duration

	// Long is how long a press must hold to become a long press.
	Long time.Duration

	// RawValue makes the status value the pin state (on/off) instead of
	// the last gesture.
	RawValue bool

	// Filter lists the gestures that are published.
	Filter string
}

// DefaultOptions returns the options of an unconfigured input on pin.
func DefaultOptions(pin int) Options {
	return Options{
		Pin:      pin,
		Inverted: true,
		Debounce: DefaultDebounce,
		Long:     DefaultLong,
		Filter:   DefaultFilter,
	}
}

// Validate checks the options for the component with the given topic.
func (o Options) Validate(owner string) error {
	if o.Pin < 0 {
		return event.NewConfigError(owner, "pin", "an input pin number is required")
	}
	if o.Debounce <= 0 {
		return event.NewConfigError(owner, "debounce", "must be positive")
	}
	if o.Long <= 0 {
		return event.NewConfigError(owner, "long", "must be positive")
	}
	for _, r := range o.Filter {
		if !strings.ContainsRune(DefaultFilter, r) {
			return event.NewConfigError(owner, "filter", fmt.Sprintf("unknown gesture %q", r))
		}
	}
	return nil
}

// Input is a digital input component.
type Input struct {
	*component.Component

	opts Options
	pin  hal.InputPin

	debounceTimer *loop.Timer
	longTimer     *loop.Timer

	mu         sync.Mutex
	debouncing bool
	suppress   bool
	target     hal.Level
	last       Gesture
	phase      Phase
}

// New builds a digital input. The pin is claimed from board before the
// component is registered, so a hardware failure leaves no trace on the bus.
func New(cfg component.Config, opts Options, board hal.Board, env component.Env) (*Input, error) {
	if err := opts.Validate(cfg.Topic); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if env.Loop == nil {
		return nil, &event.ConfigError{Component: cfg.Topic, Field: "loop", Err: component.ErrNoLoop}
	}

	pull := hal.PullDown
	if opts.Inverted {
		pull = hal.PullUp
	}
	pin, err := board.Input(opts.Pin, pull)
	if err != nil {
		return nil, err
	}

	c, err := component.New(cfg, env)
	if err != nil {
		_ = pin.Close()
		return nil, err
	}

	d := &Input{
		Component: c,
		opts:      opts,
		pin:       pin,
	}
	d.debounceTimer = c.NewTimer(d.onDebounce)
	d.longTimer = c.NewTimer(d.onLong)

	c.SetValueFunc(d.value)
	c.OnStart(func() { pin.OnEdge(d.onEdge) })
	c.OnStop(d.reset)

	return d, nil
}

// Options returns the input's options.
func (d *Input) Options() Options {
	return d.opts
}

// Phase returns the current state of the gesture machine.
func (d *Input) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// Last returns the last detected gesture, published or filtered.
func (d *Input) Last() Gesture {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Close stops the input and releases its pin.
func (d *Input) Close() error {
	err := d.Component.Close()
	if perr := d.pin.Close(); err == nil {
		err = perr
	}
	return err
}

// onEdge runs in interrupt context.
func (d *Input) onEdge(level hal.Level) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.target = level
	if d.debouncing || d.suppress {
		d.debouncing = false
		d.suppress = false
		d.debounceTimer.Cancel()
		d.longTimer.Cancel()
		d.phase = Idle
		return
	}

	d.longTimer.Cancel()
	d.debounceTimer.Start(d.opts.Debounce)
	d.debouncing = true
	d.phase = Debouncing
}

// onDebounce runs on the loop when the debounce timer expires.
func (d *Input) onDebounce() {
	d.mu.Lock()
	d.debouncing = false
	if d.pin.Read() != d.target {
		d.phase = Idle
		d.mu.Unlock()
		return
	}

	g := Pressed
	if d.released(d.target) {
		g = Clicked
	}
	d.last = g
	if g == Pressed {
		d.phase = LongPending
		d.longTimer.Start(d.opts.Long)
	} else {
		d.phase = Idle
	}
	d.mu.Unlock()

	d.publish(g)
}

// onLong runs on the loop when the long-press timer expires.
func (d *Input) onLong() {
	d.mu.Lock()
	if d.pin.Read() != d.target {
		d.phase = Idle
		d.mu.Unlock()
		return
	}
	d.suppress = true
	d.last = LongPressed
	d.phase = Held
	d.mu.Unlock()

	d.publish(LongPressed)
}

// released reports whether level is the idle (not pressed) level.
func (d *Input) released(level hal.Level) bool {
	if d.opts.Inverted {
		return level == hal.High
	}
	return level == hal.Low
}

func (d *Input) publish(g Gesture) {
	if !strings.Contains(d.opts.Filter, string(g)) {
		return
	}
	d.Push(string(g))
}

func (d *Input) value() any {
	if d.opts.RawValue {
		if d.released(d.pin.Read()) {
			return "off"
		}
		return "on"
	}
	if g := d.Last(); g != None {
		return string(g)
	}
	return nil
}

// reset detaches the interrupt and clears the gesture machine.
func (d *Input) reset() {
	d.pin.OnEdge(nil)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.debouncing = false
	d.suppress = false
	d.phase = Idle
}
