package rule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/dshills/homebus/internal/event"
)

// DefaultTimeout bounds a single rule evaluation.
const DefaultTimeout = 100 * time.Millisecond

// Actions is the action namespace a rule can call through `action`.
type Actions interface {
	// Names returns the registered action names.
	Names() []string

	// Call invokes the named action with an optional argument.
	Call(name string, arg any) (any, error)
}

// Program is a compiled rule.
type Program struct {
	name  string
	proto *lua.FunctionProto
}

// Name returns the rule's chunk name.
func (p *Program) Name() string {
	return p.name
}

// Scope is what a rule is evaluated against.
type Scope struct {
	// Event is the context being delivered. Next and Emit are written back.
	Event *event.Context

	// Actions is the owning component's action namespace. May be nil.
	Actions Actions
}

// Result is the outcome of an evaluation.
type Result struct {
	// Next is the continue flag.
	Next bool

	// Emit is the status-line flag.
	Emit bool

	// Err is a *RuleEvaluationError if the rule failed.
	Err error
}

// Evaluator runs compiled rules in a sandboxed Lua state.
//
// gopher-lua's LState is not goroutine-safe: an Evaluator must only be
// used from the run loop. Evaluations may nest, for instance when a rule
// calls an action that publishes an event handled by the same component.
type Evaluator struct {
	L      *lua.LState
	base   *lua.LTable
	bridge *Bridge
	logger *slog.Logger

	timeout time.Duration
	policy  Policy

	depth  int
	closed bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithTimeout sets the deadline for a single evaluation.
func WithTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithPolicy sets the failure policy.
func WithPolicy(p Policy) Option {
	return func(e *Evaluator) {
		e.policy = p
	}
}

// WithLogger sets the logger for rule failures and print output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEvaluator creates an evaluator with a fresh sandboxed state.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		logger:  slog.New(slog.DiscardHandler),
		timeout: DefaultTimeout,
		policy:  FailOpen,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.L, e.base = newSandboxedState(e.logger)
	e.bridge = NewBridge(e.L)
	return e
}

// Compile parses and compiles source into a reusable program.
func Compile(name, source string) (*Program, error) {
	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, &CompileError{Name: name, Err: err}
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, &CompileError{Name: name, Err: err}
	}
	return &Program{name: name, proto: proto}, nil
}

// Evaluate runs p against scope and writes Next and Emit back to
// scope.Event. A nil scope.Event is evaluated against an empty context.
func (e *Evaluator) Evaluate(p *Program, scope Scope) Result {
	ctx := scope.Event
	if ctx == nil {
		ctx = event.NewContext("", nil)
	}

	res := e.run(p, ctx, scope.Actions)
	if res.Err != nil {
		e.logger.Warn("rule evaluation failed",
			"rule", ruleName(p),
			"topic", ctx.Topic,
			"id", ctx.ID,
			"policy", e.policy.String(),
			"error", res.Err,
		)
		res.Next, res.Emit = e.policy == FailOpen, true
	}

	ctx.Next = res.Next
	ctx.Emit = res.Emit
	return res
}

// run executes the program and reads back the flags.
func (e *Evaluator) run(p *Program, ctx *event.Context, actions Actions) Result {
	fail := func(err error) Result {
		return Result{Err: &RuleEvaluationError{
			Name:  ruleName(p),
			Topic: ctx.Topic.String(),
			Err:   err,
		}}
	}

	if e.closed {
		return fail(ErrEvaluatorClosed)
	}
	if p == nil {
		return fail(ErrNilProgram)
	}

	L := e.L
	env := newEnv(L, e.base)
	env.RawSetString("event", e.bridge.ToLua(ctx.Payload))
	env.RawSetString("topic", lua.LString(ctx.Topic))
	stateUD, flush := e.stateProxy(ctx.State)
	env.RawSetString("state", stateUD)
	env.RawSetString("next", lua.LTrue)
	env.RawSetString("emit", lua.LTrue)
	env.RawSetString("action", e.actionTable(actions))

	fn := L.NewFunctionFromProto(p.proto)
	fn.Env = env

	// Only the outermost evaluation owns the deadline
	var deadline context.Context
	if e.depth == 0 {
		var cancel context.CancelFunc
		deadline, cancel = context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		L.SetContext(deadline)
		defer L.RemoveContext()
	}
	e.depth++
	defer func() { e.depth-- }()

	var callErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				callErr = fmt.Errorf("lua panic: %v", r)
			}
		}()
		L.Push(fn)
		callErr = L.PCall(0, 0, nil)
	}()
	flush()

	if callErr != nil {
		if deadline != nil && deadline.Err() != nil {
			return fail(ErrTimeout)
		}
		return fail(errors.New(describe(callErr)))
	}

	return Result{
		Next: lua.LVAsBool(env.RawGetString("next")),
		Emit: lua.LVAsBool(env.RawGetString("emit")),
	}
}

// tableRead is a table handed out by the state proxy during one
// evaluation, with the value it had when read.
type tableRead struct {
	t        *lua.LTable
	snapshot any
}

// stateProxy exposes the blackboard as userdata with field access.
// A table read from it is the same Lua table for the rest of the
// evaluation; flush writes changed tables back to the blackboard.
func (e *Evaluator) stateProxy(state *event.State) (lua.LValue, func()) {
	if state == nil {
		state = event.NewState()
	}
	L := e.L
	reads := make(map[string]tableRead)

	ud := L.NewUserData()
	ud.Value = state

	meta := L.NewTable()
	meta.RawSetString("__index", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(2)
		if r, ok := reads[key]; ok {
			L.Push(r.t)
			return 1
		}
		v, _ := state.Get(key)
		lv := e.bridge.ToLua(v)
		if t, ok := lv.(*lua.LTable); ok {
			reads[key] = tableRead{t: t, snapshot: e.bridge.ToGo(t)}
		}
		L.Push(lv)
		return 1
	}))
	meta.RawSetString("__newindex", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(2)
		delete(reads, key)
		state.Set(key, e.bridge.ToGo(L.Get(3)))
		return 0
	}))
	meta.RawSetString("__len", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(state.Len()))
		return 1
	}))
	L.SetMetatable(ud, meta)

	flush := func() {
		for _, key := range slices.Sorted(maps.Keys(reads)) {
			r := reads[key]
			if now := e.bridge.ToGo(r.t); !reflect.DeepEqual(now, r.snapshot) {
				state.Set(key, now)
			}
		}
	}
	return ud, flush
}

// actionTable builds the `action` namespace for one evaluation.
func (e *Evaluator) actionTable(actions Actions) *lua.LTable {
	L := e.L
	t := L.NewTable()
	if actions == nil {
		return t
	}

	for _, name := range actions.Names() {
		t.RawSetString(name, L.NewFunction(func(L *lua.LState) int {
			var arg any
			if L.GetTop() >= 1 {
				arg = e.bridge.ToGo(L.Get(1))
			}
			result, err := actions.Call(name, arg)
			if err != nil {
				L.RaiseError("action %s: %s", name, err.Error())
				return 0
			}
			if result == nil {
				return 0
			}
			L.Push(e.bridge.ToLua(result))
			return 1
		}))
	}
	return t
}

// Close releases the Lua state. Evaluating afterwards fails.
func (e *Evaluator) Close() error {
	if e.closed {
		return nil
	}
	e.L.Close()
	e.closed = true
	return nil
}

func ruleName(p *Program) string {
	if p == nil {
		return "<nil>"
	}
	return p.name
}
