package hal

import "fmt"

// Level is a digital pin level.
type Level uint8

const (
	Low  Level = 0
	High Level = 1
)

// String returns the level as 0 or 1.
func (l Level) String() string {
	if l == Low {
		return "0"
	}
	return "1"
}

// Not returns the opposite level.
func (l Level) Not() Level {
	if l == Low {
		return High
	}
	return Low
}

// Pull selects an input pin's bias resistor.
type Pull int

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// EdgeHandler is called on every level change of an input pin.
// It runs in interrupt context: it must not block.
type EdgeHandler func(level Level)

// InputPin is a digital input with edge interrupts.
type InputPin interface {
	// Number returns the pin number.
	Number() int

	// Read returns the current level.
	Read() Level

	// OnEdge installs the handler for both edges, replacing any previous one.
	// A nil handler disables the interrupt.
	OnEdge(h EdgeHandler)

	// Close releases the pin.
	Close() error
}

// OutputPin is a digital output.
type OutputPin interface {
	// Number returns the pin number.
	Number() int

	// Set drives the pin.
	Set(l Level)

	// Get returns the driven level.
	Get() Level

	// Close releases the pin.
	Close() error
}

// Sensor produces readings on demand.
type Sensor interface {
	// Read returns the current reading. A nil reading means no data.
	Read() (any, error)
}

// SensorFunc adapts a function to the Sensor interface.
type SensorFunc func() (any, error)

// Read implements Sensor.
func (f SensorFunc) Read() (any, error) {
	return f()
}

// Board hands out hardware resources.
type Board interface {
	// Platform names the board, e.g. "esp32" or "sim".
	Platform() string

	// Input claims a pin as a digital input.
	Input(pin int, pull Pull) (InputPin, error)

	// Output claims a pin as a digital output.
	Output(pin int) (OutputPin, error)

	// Station returns the WLAN station interface.
	Station() (Station, error)

	// Sensor opens a sensor by driver name.
	Sensor(driver string, params map[string]any) (Sensor, error)
}

// Status is a WLAN station status.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusWrongPassword
	StatusNoAPFound
	StatusConnectFail
	StatusGotIP
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusWrongPassword:
		return "wrong-password"
	case StatusNoAPFound:
		return "no-ap-found"
	case StatusConnectFail:
		return "connect-fail"
	case StatusGotIP:
		return "got-ip"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Network is one scan result.
type Network struct {
	SSID    string `json:"ssid"`
	BSSID   string `json:"bssid,omitempty"`
	Channel int    `json:"channel,omitempty"`
	RSSI    int    `json:"rssi"`
	Hidden  bool   `json:"hidden,omitempty"`
}

// IPConfig is a static interface configuration.
type IPConfig struct {
	IP      string
	Mask    string
	Gateway string
	DNS     string
}

// Station is a WLAN station interface.
type Station interface {
	// Activate powers the radio on or off.
	Activate(on bool) error

	// IsConnected returns true once the station has an address.
	IsConnected() bool

	// Status returns the current connection status.
	Status() Status

	// Scan lists visible networks.
	Scan() ([]Network, error)

	// SetHostname sets the DHCP hostname.
	SetHostname(name string) error

	// ConfigureStatic switches to a static address.
	ConfigureStatic(cfg IPConfig) error

	// Connect starts joining a network. It does not wait for an address.
	Connect(ssid, password string) error

	// SSID returns the network the station is joined to, if any.
	SSID() string
}
