package component

import "errors"

var (
	// ErrUnknownAction is returned when invoking an action that was not registered.
	ErrUnknownAction = errors.New("unknown action")

	// ErrActionExists is returned when registering an action name twice.
	ErrActionExists = errors.New("action already registered")

	// ErrNoRouter is returned when a component is built without a router.
	ErrNoRouter = errors.New("component requires a router")

	// ErrNoLoop is returned when a component that owns timers is built without a loop.
	ErrNoLoop = errors.New("component requires a run loop")
)
