package event

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/homebus/internal/event/topic"
)

// Sentinel errors for the event bus.
var (
	// ErrInvalidTopic is returned when a topic is empty or malformed.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrNilSubscriber is returned when a nil subscriber is registered.
	ErrNilSubscriber = errors.New("subscriber cannot be nil")

	// ErrNilPublisher is returned when a nil publisher is registered.
	ErrNilPublisher = errors.New("publisher cannot be nil")

	// ErrNilContext is returned when Deliver is called without a context.
	ErrNilContext = errors.New("event context cannot be nil")

	// ErrDeliveryCycle is returned when a delivery would re-enter a topic
	// that is already being delivered, or exceed the maximum depth.
	ErrDeliveryCycle = errors.New("delivery cycle detected")

	// ErrInvalidConfig is the sentinel matched by every ConfigError.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ConfigError reports a missing or invalid configuration field.
// It is fatal for the component being constructed and nothing else.
type ConfigError struct {
	// Component is the topic (or section) of the component being configured.
	Component string

	// Field is the offending configuration key.
	Field string

	// Message describes what is wrong.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// NewConfigError creates a ConfigError.
func NewConfigError(component, field, message string) *ConfigError {
	return &ConfigError{Component: component, Field: field, Message: message}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config error")
	if e.Component != "" {
		b.WriteString(" in ")
		b.WriteString(e.Component)
	}
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match ConfigError with ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// CycleError describes a delivery refused by the cycle guard.
type CycleError struct {
	// Topic is the topic whose delivery was refused.
	Topic topic.Topic

	// Stack is the chain of topics in flight, outermost first.
	Stack []topic.Topic
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Stack)+1)
	for _, t := range e.Stack {
		parts = append(parts, t.String())
	}
	parts = append(parts, e.Topic.String())
	return fmt.Sprintf("delivery cycle detected: %s", strings.Join(parts, " -> "))
}

// Is allows errors.Is to match CycleError with ErrDeliveryCycle.
func (e *CycleError) Is(target error) bool {
	return target == ErrDeliveryCycle
}
