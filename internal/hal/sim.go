package hal

import (
	"fmt"
	"sync"
)

// DefaultSimPins is the number of pins a SimBoard has unless configured.
const DefaultSimPins = 40

// SimBoard is an in-memory Board.
type SimBoard struct {
	mu      sync.Mutex
	pins    int
	claimed map[int]bool
	inputs  map[int]*SimInput
	outputs map[int]*SimOutput
	station *SimStation
	sensors map[string]Sensor
}

// SimOption configures a SimBoard.
type SimOption func(*SimBoard)

// WithPins sets the number of pins.
func WithPins(n int) SimOption {
	return func(b *SimBoard) {
		if n > 0 {
			b.pins = n
		}
	}
}

// WithStation installs a station; without one Station fails.
func WithStation(s *SimStation) SimOption {
	return func(b *SimBoard) {
		b.station = s
	}
}

// WithSensor registers a sensor under a driver name.
func WithSensor(driver string, s Sensor) SimOption {
	return func(b *SimBoard) {
		b.sensors[driver] = s
	}
}

// NewSimBoard creates a simulated board.
func NewSimBoard(opts ...SimOption) *SimBoard {
	b := &SimBoard{
		pins:    DefaultSimPins,
		claimed: make(map[int]bool),
		inputs:  make(map[int]*SimInput),
		outputs: make(map[int]*SimOutput),
		sensors: make(map[string]Sensor),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Platform implements Board.
func (b *SimBoard) Platform() string {
	return "sim"
}

// claim reserves pin or returns a HardwareInitError.
func (b *SimBoard) claim(resource string, pin int) error {
	if pin < 0 || pin >= b.pins {
		return &HardwareInitError{Resource: resource, Pin: pin, Err: ErrNoSuchPin}
	}
	if b.claimed[pin] {
		return &HardwareInitError{Resource: resource, Pin: pin, Err: ErrPinInUse}
	}
	b.claimed[pin] = true
	return nil
}

func (b *SimBoard) release(pin int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.claimed, pin)
	delete(b.inputs, pin)
	delete(b.outputs, pin)
}

// Input implements Board. A pulled-up input idles high.
func (b *SimBoard) Input(pin int, pull Pull) (InputPin, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.claim("input", pin); err != nil {
		return nil, err
	}
	in := &SimInput{board: b, number: pin}
	if pull == PullUp {
		in.level = High
	}
	b.inputs[pin] = in
	return in, nil
}

// Output implements Board.
func (b *SimBoard) Output(pin int) (OutputPin, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.claim("output", pin); err != nil {
		return nil, err
	}
	out := &SimOutput{board: b, number: pin}
	b.outputs[pin] = out
	return out, nil
}

// Station implements Board.
func (b *SimBoard) Station() (Station, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.station == nil {
		return nil, &HardwareInitError{Resource: "station", Pin: -1, Err: ErrUnsupported}
	}
	return b.station, nil
}

// Sensor implements Board.
func (b *SimBoard) Sensor(driver string, _ map[string]any) (Sensor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sensors[driver]
	if !ok {
		return nil, &HardwareInitError{
			Resource: "sensor",
			Pin:      -1,
			Err:      fmt.Errorf("driver %q: %w", driver, ErrUnsupported),
		}
	}
	return s, nil
}

// SimInputAt returns the claimed input on pin, if any.
func (b *SimBoard) SimInputAt(pin int) (*SimInput, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	in, ok := b.inputs[pin]
	return in, ok
}

// SimOutputAt returns the claimed output on pin, if any.
func (b *SimBoard) SimOutputAt(pin int) (*SimOutput, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out, ok := b.outputs[pin]
	return out, ok
}

// SimInput is a simulated input pin.
type SimInput struct {
	board   *SimBoard
	number  int
	mu      sync.Mutex
	level   Level
	handler EdgeHandler
	closed  bool
}

// Number implements InputPin.
func (p *SimInput) Number() int {
	return p.number
}

// Read implements InputPin.
func (p *SimInput) Read() Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// OnEdge implements InputPin.
func (p *SimInput) OnEdge(h EdgeHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
}

// Drive sets the pin level. A change calls the edge handler synchronously.
func (p *SimInput) Drive(l Level) {
	p.mu.Lock()
	if p.closed || p.level == l {
		p.level = l
		p.mu.Unlock()
		return
	}
	p.level = l
	h := p.handler
	p.mu.Unlock()

	if h != nil {
		h(l)
	}
}

// Close implements InputPin.
func (p *SimInput) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.handler = nil
	p.mu.Unlock()

	p.board.release(p.number)
	return nil
}

// SimOutput is a simulated output pin.
type SimOutput struct {
	board  *SimBoard
	number int
	mu     sync.Mutex
	level  Level
	writes int
	closed bool
}

// Number implements OutputPin.
func (p *SimOutput) Number() int {
	return p.number
}

// Set implements OutputPin.
func (p *SimOutput) Set(l Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.level = l
	p.writes++
}

// Get implements OutputPin.
func (p *SimOutput) Get() Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Writes returns how many times Set was called.
func (p *SimOutput) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// Close implements OutputPin.
func (p *SimOutput) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.board.release(p.number)
	return nil
}
