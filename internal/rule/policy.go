package rule

import (
	"fmt"
	"strings"
)

// Policy decides the outcome of a rule that fails to evaluate.
type Policy int

const (
	// FailOpen lets the event propagate as if the rule had not run.
	FailOpen Policy = iota

	// FailClosed stops the event.
	FailClosed
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case FailOpen:
		return "fail-open"
	case FailClosed:
		return "fail-closed"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses a policy name. The empty string is FailOpen.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "open", "fail-open":
		return FailOpen, nil
	case "closed", "fail-closed":
		return FailClosed, nil
	default:
		return FailOpen, fmt.Errorf("unknown rule policy %q", s)
	}
}
