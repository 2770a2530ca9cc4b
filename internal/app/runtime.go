package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/homebus/internal/component"
	"github.com/dshills/homebus/internal/config"
	"github.com/dshills/homebus/internal/device/din"
	"github.com/dshills/homebus/internal/device/dout"
	"github.com/dshills/homebus/internal/device/link"
	"github.com/dshills/homebus/internal/device/sensor"
	"github.com/dshills/homebus/internal/event"
	"github.com/dshills/homebus/internal/event/topic"
	"github.com/dshills/homebus/internal/hal"
	"github.com/dshills/homebus/internal/loop"
	"github.com/dshills/homebus/internal/rule"
	"github.com/dshills/homebus/internal/store"
)

// HubTopic is the topic of the runtime's own component.
const HubTopic = "homebus"

// Entry kinds, used in logs and errors.
const (
	KindNetwork = "network"
	KindInput   = "digital-input"
	KindOutput  = "digital-output"
	KindSensor  = "sensor"
)

// Device is a component built by the runtime.
type Device interface {
	Topic() topic.Topic
	Start()
	Stop()
	Close() error
	Invoke(name string, arg any) (any, error)
	Actions() *component.Actions
}

// Options configures a Runtime.
type Options struct {
	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger

	// Console receives status lines. Nil discards them.
	Console io.Writer

	// Board overrides the board chosen from the document's platform.
	Board hal.Board

	// Clock drives timers. Nil uses the real clock.
	Clock loop.Clock

	// QueueSize is the run loop capacity. Zero uses the loop default.
	QueueSize int

	// RuleOptions configure every rule evaluator, after the document's
	// rule-policy and rule-timeout.
	RuleOptions []rule.Option

	// Advertiser announces the hostname once the network is up. Nil logs
	// the announcement.
	Advertiser link.Advertiser

	// Store overrides the store named by the document.
	Store store.Store

	// SlowPull is the pull duration above which the router warns.
	SlowPull time.Duration
}

type built struct {
	kind   string
	device Device
}

// Runtime hosts the components of one configuration document.
type Runtime struct {
	opts    Options
	logger  *slog.Logger
	console io.Writer
	loop    *loop.Loop
	metrics *Metrics
	state   *event.State

	mu      sync.Mutex
	doc     *config.Document
	board   hal.Board
	router  *event.Router
	hub     *component.Component
	devices []built
	byTopic map[topic.Topic]built
	skipped []error
	store   store.Store
	started bool
	closed  bool
}

// New creates a runtime. Configure must be called before Run.
func New(opts Options) *Runtime {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	console := opts.Console
	if console == nil {
		console = io.Discard
	}

	loopOpts := []loop.Option{loop.WithLogger(WithComponent(logger, "loop"))}
	if opts.Clock != nil {
		loopOpts = append(loopOpts, loop.WithClock(opts.Clock))
	}
	if opts.QueueSize > 0 {
		loopOpts = append(loopOpts, loop.WithQueueSize(opts.QueueSize))
	}

	return &Runtime{
		opts:    opts,
		logger:  logger,
		console: console,
		loop:    loop.New(loopOpts...),
		metrics: NewMetrics(),
		state:   event.NewState(),
		byTopic: make(map[topic.Topic]built),
	}
}

// Configure builds the hub and every enabled entry of doc, in the order
// network, inputs, outputs, sensors. An entry that fails to build is
// logged and skipped; only a failure to set up the runtime itself is
// returned.
func (r *Runtime) Configure(doc *config.Document) error {
	if doc == nil {
		return ErrNotConfigured
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrShutdown
	}
	board := r.opts.Board
	if board == nil {
		var err error
		if board, err = BoardFor(doc); err != nil {
			return NewOperationError("configure", doc.Name, err)
		}
	}
	if err := r.openStore(doc.Store); err != nil {
		return err
	}

	r.doc = doc
	r.board = board
	r.router = event.NewRouter(
		event.WithLogger(WithComponent(r.logger, "router")),
		event.WithSlowPull(r.opts.SlowPull),
	)
	r.devices = nil
	r.byTopic = make(map[topic.Topic]built)
	r.skipped = nil
	r.metrics.Reset()

	env := r.env()
	hub, err := r.buildHub(doc, env)
	if err != nil {
		return NewOperationError("configure", HubTopic, err)
	}
	r.hub = hub

	for _, name := range doc.Disabled {
		r.metrics.RecordDisabled()
		r.logger.Info("entry disabled", "entry", name)
	}
	for _, p := range doc.Problems {
		r.skip(p)
	}

	if n := doc.Network; n != nil {
		l, err := link.New(n.Component, n.Options, board, r.advertiser(), env)
		r.add(KindNetwork, n.Component.Topic, l, err)
	}
	for _, in := range doc.Inputs {
		d, err := din.New(in.Component, in.Options, board, env)
		r.add(KindInput, in.Component.Topic, d, err)
	}
	for _, out := range doc.Outputs {
		o, err := dout.New(out.Component, out.Options, board, env)
		r.add(KindOutput, out.Component.Topic, o, err)
	}
	for _, s := range doc.Sensors {
		sen, err := sensor.New(s.Component, s.Options, board, env)
		r.add(KindSensor, s.Component.Topic, sen, err)
	}

	r.logger.Info("configured",
		"name", doc.Name,
		"platform", board.Platform(),
		"components", len(r.devices),
		"skipped", len(r.skipped),
	)
	return nil
}

func (r *Runtime) env() component.Env {
	return component.Env{
		Router:      r.router,
		Loop:        r.loop,
		Console:     r.console,
		Logger:      r.logger,
		State:       r.state,
		RuleOptions: append(r.doc.RuleOptions(), r.opts.RuleOptions...),
	}
}

func (r *Runtime) buildHub(doc *config.Document, env component.Env) (*component.Component, error) {
	cfg := doc.Hub
	cfg.Topic = HubTopic
	cfg.Priority = int(event.MaxPriority)

	hub, err := component.New(cfg, env)
	if err != nil {
		return nil, err
	}
	hub.SetValueFunc(func() any { return doc.Name })
	hub.MustRegister("ping", component.Do(func() {
		_, _ = io.WriteString(r.console, "#pong\n")
	}))
	hub.MustRegister("broadcast", func(arg any) (any, error) {
		m, ok := arg.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("broadcast: want a table with topic and event, got %T", arg)
		}
		t, _ := m["topic"].(string)
		return nil, r.broadcast(t, m["event"])
	})
	return hub, nil
}

// add records a built device, or logs and skips a failed entry.
func (r *Runtime) add(kind, name string, d Device, err error) {
	if err != nil {
		r.skip(NewComponentError(name, kind, err))
		return
	}
	b := built{kind: kind, device: d}
	r.devices = append(r.devices, b)
	r.byTopic[d.Topic()] = b
	r.metrics.RecordBuilt()
}

func (r *Runtime) skip(err error) {
	r.skipped = append(r.skipped, err)
	r.metrics.RecordSkipped()
	r.logger.Warn("entry skipped", "error", err)
}

func (r *Runtime) advertiser() link.Advertiser {
	if r.opts.Advertiser != nil {
		return r.opts.Advertiser
	}
	logger := WithComponent(r.logger, "mdns")
	return link.AdvertiserFunc(func(hostname string) error {
		logger.Debug("advertise", "hostname", hostname)
		return nil
	})
}

// openStore opens the configured store and restores the blackboard from
// it. Called with r.mu held.
func (r *Runtime) openStore(cfg config.Store) error {
	if r.store != nil {
		return nil
	}
	s := r.opts.Store
	if s == nil {
		if cfg.Driver == "" {
			return nil
		}
		var err error
		if s, err = store.Open(cfg.Driver, cfg.Path); err != nil {
			return NewOperationError("open store", cfg.Path, err)
		}
	}
	r.store = s

	n, err := store.Restore(context.Background(), s, r.state)
	if err != nil {
		return NewOperationError("restore", cfg.Path, err)
	}
	r.logger.Info("state restored", "entries", n)
	return nil
}

// Run starts every component on the loop and runs the loop until ctx is
// cancelled.
func (r *Runtime) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.hub == nil {
		r.mu.Unlock()
		return ErrNotConfigured
	}
	r.mu.Unlock()

	r.loop.Schedule(r.Start)
	err := r.loop.Run(ctx)
	if errors.Is(err, loop.ErrAlreadyRunning) {
		return ErrAlreadyRunning
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Start starts the hub and every device. It must run on the loop, or
// before the loop runs.
func (r *Runtime) Start() {
	r.mu.Lock()
	if r.hub == nil || r.started || r.closed {
		r.mu.Unlock()
		return
	}
	r.started = true
	hub, devices := r.hub, append([]built(nil), r.devices...)
	r.mu.Unlock()

	hub.Start()
	for _, b := range devices {
		b.device.Start()
	}
	r.logger.Info("started", "components", len(devices))
}

// Shutdown stops every component, saves the blackboard and releases all
// hardware. Call it after Run returns. Callbacks still queued on the loop
// run afterwards. From then on Start does nothing and Configure and Reload
// return ErrShutdown.
func (r *Runtime) Shutdown() error {
	r.mu.Lock()
	r.closed = true
	errs := r.teardown()
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, err)
		}
		r.store = nil
	}
	r.mu.Unlock()

	r.loop.RunPending()
	return errors.Join(errs...)
}

// teardown stops and closes every component. Called with r.mu held.
func (r *Runtime) teardown() []error {
	var errs []error
	for i := len(r.devices) - 1; i >= 0; i-- {
		b := r.devices[i]
		b.device.Stop()
		if err := b.device.Close(); err != nil {
			errs = append(errs, NewComponentError(b.device.Topic().String(), b.kind, err))
		}
	}
	if r.hub != nil {
		r.hub.Stop()
		if err := r.hub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.store != nil {
		if err := store.Save(context.Background(), r.store, r.state); err != nil {
			errs = append(errs, NewOperationError("save", "state", err))
		}
	}
	r.devices = nil
	r.byTopic = make(map[topic.Topic]built)
	r.hub = nil
	r.started = false
	return errs
}

// Reload replaces the running configuration with doc. Components are
// stopped and released, a fresh router is built and, if the runtime was
// started, the new components are started. The blackboard survives. It
// must run on the loop.
func (r *Runtime) Reload(doc *config.Document) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrShutdown
	}
	wasStarted := r.started
	if errs := r.teardown(); len(errs) > 0 {
		r.logger.Warn("teardown before reload", "error", errors.Join(errs...))
	}
	if r.doc != nil && r.doc.Store != doc.Store && r.opts.Store == nil && r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Warn("close store", "error", err)
		}
		r.store = nil
	}
	r.mu.Unlock()

	r.metrics.RecordReload()
	if err := r.Configure(doc); err != nil {
		return err
	}
	if wasStarted {
		r.Start()
	}
	return nil
}

// Broadcast publishes payload on an arbitrary topic on behalf of the hub.
func (r *Runtime) Broadcast(t string, payload any) error {
	return r.broadcast(t, payload)
}

func (r *Runtime) broadcast(t string, payload any) error {
	tp, ok := topic.Parse(t)
	if !ok {
		return NewOperationError("broadcast", t, event.ErrInvalidTopic)
	}

	r.mu.Lock()
	router := r.router
	r.mu.Unlock()
	if router == nil {
		return ErrNotConfigured
	}

	ctx := event.NewContext(tp, r.state)
	ctx.Begin(payload)
	r.metrics.RecordBroadcast()
	r.logger.Debug("broadcast", "topic", t, "id", ctx.ID)
	return router.Deliver(ctx)
}

// Invoke calls action on the component with topic t. An empty topic
// invokes the action on every device that has it. Invoke must run on the
// loop.
func (r *Runtime) Invoke(t, action string, arg any) (any, error) {
	r.mu.Lock()
	if r.hub == nil {
		r.mu.Unlock()
		return nil, ErrNotConfigured
	}
	var targets []Device
	switch {
	case t == "":
		for _, b := range r.devices {
			if b.device.Actions().Has(action) {
				targets = append(targets, b.device)
			}
		}
	case t == HubTopic:
		targets = []Device{r.hub}
	default:
		b, ok := r.byTopic[topic.Topic(t)]
		if !ok {
			r.mu.Unlock()
			r.metrics.RecordInvoke(true)
			return nil, NewOperationError("invoke", t, ErrUnknownComponent)
		}
		targets = []Device{b.device}
	}
	r.mu.Unlock()

	if len(targets) == 0 {
		r.metrics.RecordInvoke(true)
		return nil, NewOperationError("invoke", action, component.ErrUnknownAction)
	}

	var (
		result any
		errs   []error
	)
	for _, d := range targets {
		v, err := d.Invoke(action, arg)
		if err != nil {
			errs = append(errs, NewOperationError("invoke "+action, d.Topic().String(), err))
			continue
		}
		result = v
	}
	err := errors.Join(errs...)
	r.metrics.RecordInvoke(err != nil)
	if err != nil {
		r.logger.Warn("invoke failed", "topic", t, "action", action, "error", err)
	}
	return result, err
}

// Loop returns the run loop.
func (r *Runtime) Loop() *loop.Loop { return r.loop }

// State returns the shared blackboard.
func (r *Runtime) State() *event.State { return r.state }

// Router returns the current router.
func (r *Runtime) Router() *event.Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.router
}

// Document returns the current configuration.
func (r *Runtime) Document() *config.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc
}

// Components returns the topics of the built devices in build order.
func (r *Runtime) Components() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.devices))
	for _, b := range r.devices {
		out = append(out, b.device.Topic().String())
	}
	return out
}

// Component returns the device with topic t.
func (r *Runtime) Component(t string) (Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t == HubTopic && r.hub != nil {
		return r.hub, true
	}
	b, ok := r.byTopic[topic.Topic(t)]
	return b.device, ok
}

// Skipped returns the errors of the entries left out by the last
// Configure.
func (r *Runtime) Skipped() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.skipped...)
}

// Metrics returns a snapshot of the runtime counters.
func (r *Runtime) Metrics() Snapshot {
	return r.metrics.Snapshot(r.Router(), r.loop)
}
