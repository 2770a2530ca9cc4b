package config

import (
	"time"

	"github.com/dshills/homebus/internal/component"
	"github.com/dshills/homebus/internal/device/din"
	"github.com/dshills/homebus/internal/device/dout"
	"github.com/dshills/homebus/internal/device/link"
	"github.com/dshills/homebus/internal/device/sensor"
	"github.com/dshills/homebus/internal/rule"
)

// Section keys of the document.
const (
	KeyName          = "name"
	KeyHostname      = "hostname"
	KeyDebug         = "debug"
	KeyPlatform      = "platform"
	KeyRule          = "rule"
	KeySubscriptions = "subscriptions"
	KeyNetwork       = "network"
	KeyInputs        = "digital-inputs"
	KeyOutputs       = "digital-outputs"
	KeySensors       = "sensors"
	KeyStore         = "store"
	KeyDisable       = "disable"
	KeyRulePolicy    = "rule-policy"
	KeyRuleTimeout   = "rule-timeout"
)

// DefaultNetworkTopic is the topic of a network section without one.
const DefaultNetworkTopic = "net"

// Document is a decoded configuration document.
type Document struct {
	// Name identifies the device. Required.
	Name string

	// Hostname defaults to Name + ".local".
	Hostname string

	// Debug turns on debug logging.
	Debug bool

	// Platform selects the board, e.g. "sim".
	Platform string

	// Hub is the host component's configuration. Its topic is assigned by
	// the host.
	Hub component.Config

	// Network is nil when the document has no enabled network section.
	Network *Network

	Inputs  []Input
	Outputs []Output
	Sensors []Sensor

	Store Store

	// RulePolicy decides what a failing rule does to its event.
	RulePolicy rule.Policy

	// RuleTimeout bounds one rule evaluation. Zero uses the evaluator
	// default.
	RuleTimeout time.Duration

	// Disabled lists the entries skipped because of their disable flag.
	Disabled []string

	// Problems lists the entries left out because they were malformed.
	Problems []error
}

// Network is the WLAN link entry.
type Network struct {
	Component component.Config
	Options   link.Options
}

// Input is a digital input entry.
type Input struct {
	Component component.Config
	Options   din.Options
}

// Output is a digital output entry.
type Output struct {
	Component component.Config
	Options   dout.Options
}

// Sensor is a polled sensor entry.
type Sensor struct {
	Component component.Config
	Options   sensor.Options
}

// Store selects the persistent key/value backend.
type Store struct {
	// Driver is "json", "sqlite" or empty for none.
	Driver string

	// Path is the backing file.
	Path string
}

// Entries returns the number of component entries in the document.
func (d *Document) Entries() int {
	n := len(d.Inputs) + len(d.Outputs) + len(d.Sensors)
	if d.Network != nil {
		n++
	}
	return n
}

// RuleOptions returns the evaluator options selected by the document.
func (d *Document) RuleOptions() []rule.Option {
	opts := []rule.Option{rule.WithPolicy(d.RulePolicy)}
	if d.RuleTimeout > 0 {
		opts = append(opts, rule.WithTimeout(d.RuleTimeout))
	}
	return opts
}
