package component

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dshills/homebus/internal/event"
	"github.com/dshills/homebus/internal/event/topic"
	"github.com/dshills/homebus/internal/loop"
	"github.com/dshills/homebus/internal/rule"
)

// Env carries the shared runtime collaborators a component is built with.
type Env struct {
	// Router is the event bus. Required.
	Router *event.Router

	// Loop runs timer callbacks. Required by components that own timers.
	Loop *loop.Loop

	// Console receives status lines. Nil discards them.
	Console io.Writer

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger

	// State is the blackboard attached to pushed events. Nil gives the
	// component its own.
	State *event.State

	// RuleOptions configure the component's rule evaluator.
	RuleOptions []rule.Option
}

// Component is the Publisher and Subscriber base of every device.
type Component struct {
	topic    topic.Topic
	priority event.Priority

	router  *event.Router
	loop    *loop.Loop
	console io.Writer
	logger  *slog.Logger
	state   *event.State

	evaluator *rule.Evaluator
	own       *rule.Program
	rules     map[topic.Topic]*rule.Program
	subs      []topic.Topic

	actions *Actions
	muted   atomic.Bool
	value   func() any
	last    any

	mu      sync.Mutex
	timers  []*loop.Timer
	started bool
	onStart []func()
	onStop  []func()
}

// New validates cfg, builds the component and registers it with the router
// as the publisher of its topic and a subscriber of each subscription.
func New(cfg Config, env Env) (*Component, error) {
	if env.Router == nil {
		return nil, &event.ConfigError{Component: cfg.Topic, Field: "router", Err: ErrNoRouter}
	}

	cc, err := cfg.compile()
	if err != nil {
		return nil, err
	}

	logger := env.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("component", cc.topic.String())

	console := env.Console
	if console == nil {
		console = io.Discard
	}

	state := env.State
	if state == nil {
		state = event.NewState()
	}

	c := &Component{
		topic:    cc.topic,
		priority: cc.priority,
		router:   env.Router,
		loop:     env.Loop,
		console:  console,
		logger:   logger,
		state:    state,
		own:      cc.own,
		rules:    cc.rules,
		subs:     cc.order,
		actions:  NewActions(),
	}
	c.muted.Store(cfg.Mute)

	if c.own != nil || len(c.rules) > 0 {
		opts := append([]rule.Option{rule.WithLogger(logger)}, env.RuleOptions...)
		c.evaluator = rule.NewEvaluator(opts...)
	}

	c.MustRegister("mute", func(arg any) (any, error) {
		if arg == nil {
			return c.Mute(), nil
		}
		c.SetMute(Truthy(arg))
		return nil, nil
	})
	c.MustRegister("value", Get(c.Value))
	c.MustRegister("start", Do(c.Start))
	c.MustRegister("stop", Do(c.Stop))

	if err := c.router.RegisterPublisher(c); err != nil {
		return nil, err
	}
	for _, t := range c.subs {
		if err := c.router.RegisterSubscriber(c, t, c.priority); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Topic implements event.Publisher and event.Subscriber.
func (c *Component) Topic() topic.Topic {
	return c.topic
}

// Priority returns the delivery priority of the component's subscriptions.
func (c *Component) Priority() event.Priority {
	return c.priority
}

// Subscriptions returns the topics the component listens to.
func (c *Component) Subscriptions() []topic.Topic {
	out := make([]topic.Topic, len(c.subs))
	copy(out, c.subs)
	return out
}

// Logger returns the component's logger.
func (c *Component) Logger() *slog.Logger {
	return c.logger
}

// Loop returns the run loop the component was built with.
func (c *Component) Loop() *loop.Loop {
	return c.loop
}

// Push publishes payload on the component's own topic.
//
// The component's own rule runs first and may suppress the event entirely.
// The status line is printed, unless muted or suppressed by the rule,
// before the event is delivered.
func (c *Component) Push(payload any) {
	ctx := event.NewContext(c.topic, c.state)
	ctx.Begin(payload)
	c.last = payload

	if c.own != nil {
		c.evaluator.Evaluate(c.own, rule.Scope{Event: ctx, Actions: c.actions})
		if !ctx.Next {
			c.logger.Debug("push suppressed by rule", "id", ctx.ID)
			return
		}
	}

	if !c.Mute() && ctx.Emit {
		c.Print()
	}

	if err := c.router.Deliver(ctx); err != nil {
		c.logger.Warn("push not delivered", "id", ctx.ID, "error", err)
	}
}

// Pull implements event.Subscriber.
// Events on the component's own topic pass through untouched.
func (c *Component) Pull(in *event.Context) bool {
	if in.Topic == c.topic {
		return true
	}

	p := c.rules[in.Topic]
	if p == nil {
		return true
	}

	ctx := event.NewContext(c.topic, nil)
	ctx.Adopt(in)
	c.evaluator.Evaluate(p, rule.Scope{Event: ctx, Actions: c.actions})
	return ctx.Next
}

// Print writes the status line for the current value.
func (c *Component) Print() {
	_, _ = io.WriteString(c.console, StatusLine(c.topic.String(), c.Value())+"\n")
}

// Mute reports whether the status line is suppressed.
func (c *Component) Mute() bool {
	return c.muted.Load()
}

// SetMute sets whether the status line is suppressed.
func (c *Component) SetMute(m bool) {
	c.muted.Store(m)
}

// Value returns the value shown on the status line.
func (c *Component) Value() any {
	if c.value != nil {
		return c.value()
	}
	return c.last
}

// SetValueFunc overrides how Value is computed.
func (c *Component) SetValueFunc(fn func() any) {
	c.value = fn
}

// Actions returns the component's action table.
func (c *Component) Actions() *Actions {
	return c.actions
}

// MustRegister registers an action and panics on a duplicate name.
// It is meant for construction code with fixed names.
func (c *Component) MustRegister(name string, fn Action) {
	if err := c.actions.Register(name, fn); err != nil {
		panic(err)
	}
}

// Invoke calls an action by name.
func (c *Component) Invoke(name string, arg any) (any, error) {
	return c.actions.Call(name, arg)
}

// NewTimer creates a timer owned by the component. Owned timers are
// cancelled by Stop.
func (c *Component) NewTimer(fn func()) *loop.Timer {
	t := c.loop.NewTimer(fn)
	c.mu.Lock()
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	return t
}

// OnStart adds a hook run by Start.
func (c *Component) OnStart(fn func()) {
	c.onStart = append(c.onStart, fn)
}

// OnStop adds a hook run by Stop before timers are cancelled.
func (c *Component) OnStop(fn func()) {
	c.onStop = append(c.onStop, fn)
}

// Start runs the start hooks once.
func (c *Component) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	for _, fn := range c.onStart {
		fn()
	}
}

// Stop runs the stop hooks and cancels every owned timer.
func (c *Component) Stop() {
	c.mu.Lock()
	wasStarted := c.started
	c.started = false
	timers := append([]*loop.Timer(nil), c.timers...)
	c.mu.Unlock()

	if wasStarted {
		for _, fn := range c.onStop {
			fn()
		}
	}
	for _, t := range timers {
		t.Cancel()
	}
}

// Close stops the component and releases its rule evaluator.
func (c *Component) Close() error {
	c.Stop()
	if c.evaluator != nil {
		return c.evaluator.Close()
	}
	return nil
}

// Started reports whether Start has run since the last Stop.
func (c *Component) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Truthy interprets an action argument as a boolean.
func Truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	case int:
		return val != 0
	case float64:
		return val != 0
	case string:
		switch val {
		case "", "0", "false", "False", "off":
			return false
		}
		return true
	default:
		return v != nil
	}
}
