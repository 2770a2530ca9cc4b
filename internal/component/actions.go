package component

import (
	"fmt"
	"sort"
)

// Action is an operation a component exposes to rules and to the host.
// It takes zero or one argument; arg is nil when none was given.
type Action func(arg any) (any, error)

// Actions is a component's action table.
type Actions struct {
	fns map[string]Action
}

// NewActions creates an empty action table.
func NewActions() *Actions {
	return &Actions{fns: make(map[string]Action)}
}

// Register adds an action under name.
func (a *Actions) Register(name string, fn Action) error {
	if name == "" || fn == nil {
		return fmt.Errorf("register action %q: name and function are required", name)
	}
	if _, exists := a.fns[name]; exists {
		return fmt.Errorf("register action %q: %w", name, ErrActionExists)
	}
	a.fns[name] = fn
	return nil
}

// Names returns the registered names, sorted.
func (a *Actions) Names() []string {
	names := make([]string, 0, len(a.fns))
	for name := range a.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has returns true if name is registered.
func (a *Actions) Has(name string) bool {
	_, ok := a.fns[name]
	return ok
}

// Call invokes the named action.
func (a *Actions) Call(name string, arg any) (any, error) {
	fn, ok := a.fns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	return fn(arg)
}

// Do adapts a function without arguments or results.
func Do(fn func()) Action {
	return func(any) (any, error) {
		fn()
		return nil, nil
	}
}

// With adapts a function taking the argument.
func With(fn func(arg any)) Action {
	return func(arg any) (any, error) {
		fn(arg)
		return nil, nil
	}
}

// Get adapts a function returning a value.
func Get(fn func() any) Action {
	return func(any) (any, error) {
		return fn(), nil
	}
}
