package rule

import (
	"errors"
	"fmt"
)

// Errors for rule evaluation.
var (
	// ErrEvaluatorClosed is returned when evaluating on a closed evaluator.
	ErrEvaluatorClosed = errors.New("rule evaluator is closed")

	// ErrTimeout is returned when a rule runs past its deadline.
	ErrTimeout = errors.New("rule execution timeout")

	// ErrRuntime is matched by every rule runtime failure.
	ErrRuntime = errors.New("rule runtime error")

	// ErrNilProgram is returned when evaluating a nil program.
	ErrNilProgram = errors.New("rule program cannot be nil")
)

// CompileError reports a rule that failed to parse or compile.
type CompileError struct {
	// Name is the rule's chunk name.
	Name string

	// Err is the parser or compiler error.
	Err error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("rule %s: compile: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// RuleEvaluationError reports a rule that failed while running.
// It is always recoverable: the Policy decides what happens to the event.
type RuleEvaluationError struct {
	// Name is the rule's chunk name.
	Name string

	// Topic is the topic of the event being evaluated.
	Topic string

	// Err is the cause, ErrTimeout or a Lua error.
	Err error
}

// Error implements the error interface.
func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("rule %s on %q: %v", e.Name, e.Topic, e.Err)
}

// Unwrap returns the underlying error.
func (e *RuleEvaluationError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match any RuleEvaluationError with ErrRuntime.
func (e *RuleEvaluationError) Is(target error) bool {
	return target == ErrRuntime
}
