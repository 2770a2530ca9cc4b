// Package rule evaluates reactive rules: small Lua programs that decide
// whether an event keeps propagating.
//
// Each component owns one Evaluator, which wraps a sandboxed gopher-lua
// state. Rules are compiled once and then evaluated for every event they
// are bound to. A rule sees these bindings:
//
//	event    the event payload
//	topic    the topic the event is delivered on
//	state    the shared blackboard; reads and writes go straight through
//	next     continue flag, initially true
//	emit     status-line flag, initially true
//	action   the component's actions, e.g. action.toggle()
//
// For example:
//
//	if event == "L" then
//	    state.armed = not state.armed
//	    next = false
//	end
//
// A table read from state is a copy that is written back when the rule
// returns, if it changed. Edits to nested tables therefore reach the
// blackboard once the evaluation ends, not while it runs.
//
// Bindings live in a per-evaluation environment whose globals fall back to
// the sandbox, so a rule that triggers another rule on the same component
// does not disturb the outer evaluation.
//
// # Sandbox
//
// Only the base, table, string and math libraries are opened. File and
// module loading functions, _G and rawset are removed and print goes to
// the logger. Library tables are read-only and assignments to globals stay
// in the evaluation's own environment, so one rule cannot change what
// another sees.
//
// # Failures
//
// A runtime error, or a rule running past its deadline, yields a
// RuleEvaluationError. Under the default FailOpen policy the event then
// propagates as if the rule had not run (next and emit true). FailClosed
// stops it instead.
package rule
