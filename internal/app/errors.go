package app

import (
	"errors"
	"fmt"
)

// Runtime errors.
var (
	// ErrAlreadyRunning indicates the runtime is already running.
	ErrAlreadyRunning = errors.New("runtime already running")

	// ErrNotConfigured indicates an operation that needs Configure first.
	ErrNotConfigured = errors.New("runtime not configured")

	// ErrShutdown indicates use of a runtime after Shutdown.
	ErrShutdown = errors.New("runtime shut down")

	// ErrUnknownComponent indicates a topic with no component.
	ErrUnknownComponent = errors.New("unknown component")

	// ErrUnknownPlatform indicates a platform with no board.
	ErrUnknownPlatform = errors.New("unknown platform")
)

// OperationError represents an error that occurred during a specific operation.
type OperationError struct {
	Op     string // Operation name (e.g., "invoke", "restore")
	Target string // Target of the operation (e.g., a topic or a file path)
	Err    error  // Underlying error
}

// NewOperationError creates a new OperationError.
func NewOperationError(op, target string, err error) *OperationError {
	return &OperationError{
		Op:     op,
		Target: target,
		Err:    err,
	}
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}

	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Target)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ComponentError reports a configuration entry that could not be built.
type ComponentError struct {
	Component string // Topic or section of the entry
	Kind      string // Entry kind, e.g. "digital-input"
	Err       error  // Underlying error
}

// NewComponentError creates a new ComponentError.
func NewComponentError(component, kind string, err error) *ComponentError {
	return &ComponentError{
		Component: component,
		Kind:      kind,
		Err:       err,
	}
}

func (e *ComponentError) Error() string {
	if e == nil {
		return ""
	}
	if e.Kind != "" {
		return fmt.Sprintf("%s %s: %v", e.Kind, e.Component, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Component, e.Err)
}

func (e *ComponentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
