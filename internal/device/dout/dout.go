package dout

import (
	"sync"

	"github.com/dshills/homebus/internal/component"
	"github.com/dshills/homebus/internal/event"
	"github.com/dshills/homebus/internal/hal"
)

// Values published and reported by an output.
const (
	On  = "on"
	Off = "off"
)

// Options configures a digital output.
type Options struct {
	// Pin is the output pin number. Required.
	Pin int

	// Inverted means the output is active low.
	Inverted bool
}

// DefaultOptions returns the options of an unconfigured output on pin.
func DefaultOptions(pin int) Options {
	return Options{Pin: pin, Inverted: true}
}

// Validate checks the options for the component with the given topic.
func (o Options) Validate(owner string) error {
	if o.Pin < 0 {
		return event.NewConfigError(owner, "pin", "an output pin number is required")
	}
	return nil
}

// Output is a digital output component.
type Output struct {
	*component.Component

	opts Options
	pin  hal.OutputPin
	mu   sync.Mutex
}

// New builds a digital output and drives it off.
func New(cfg component.Config, opts Options, board hal.Board, env component.Env) (*Output, error) {
	if err := opts.Validate(cfg.Topic); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pin, err := board.Output(opts.Pin)
	if err != nil {
		return nil, err
	}

	c, err := component.New(cfg, env)
	if err != nil {
		_ = pin.Close()
		return nil, err
	}

	o := &Output{
		Component: c,
		opts:      opts,
		pin:       pin,
	}
	pin.Set(o.level(false))

	c.SetValueFunc(func() any { return o.State() })
	c.MustRegister("on", component.Do(o.On))
	c.MustRegister("off", component.Do(o.Off))
	c.MustRegister("toggle", component.Do(o.Toggle))
	c.MustRegister("set", component.With(func(v any) { o.Set(component.Truthy(v)) }))

	return o, nil
}

// IsOn reports whether the output is active.
func (o *Output) IsOn() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.isOn()
}

// State returns On or Off.
func (o *Output) State() string {
	if o.IsOn() {
		return On
	}
	return Off
}

// On activates the output.
func (o *Output) On() { o.Set(true) }

// Off deactivates the output.
func (o *Output) Off() { o.Set(false) }

// Toggle flips the output.
func (o *Output) Toggle() {
	o.mu.Lock()
	on := !o.isOn()
	o.mu.Unlock()
	o.Set(on)
}

// Set drives the output and publishes the new state if it changed.
func (o *Output) Set(on bool) {
	o.mu.Lock()
	if o.isOn() == on {
		o.mu.Unlock()
		return
	}
	o.pin.Set(o.level(on))
	o.mu.Unlock()

	if on {
		o.Push(On)
	} else {
		o.Push(Off)
	}
}

// Close releases the pin.
func (o *Output) Close() error {
	err := o.Component.Close()
	if perr := o.pin.Close(); err == nil {
		err = perr
	}
	return err
}

func (o *Output) isOn() bool {
	return o.pin.Get() == o.level(true)
}

func (o *Output) level(on bool) hal.Level {
	if on != o.opts.Inverted {
		return hal.High
	}
	return hal.Low
}
