package event

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dshills/homebus/internal/event/dispatch"
	"github.com/dshills/homebus/internal/event/topic"
)

// Router is the in-process event bus.
//
// Delivery is synchronous with the emitting call: Deliver returns once every
// eligible subscriber has pulled or one of them vetoed. A pull may publish
// again, which nests a delivery on the same goroutine.
type Router struct {
	registry   *Registry
	dispatcher *dispatch.SyncDispatcher
	config     routerConfig
	logger     *slog.Logger

	pubMu      sync.RWMutex
	publishers map[topic.Topic]Publisher

	flightMu sync.Mutex
	inFlight []topic.Topic

	// Stats
	published atomic.Uint64
	dropped   atomic.Uint64
	pulls     atomic.Uint64
	vetoed    atomic.Uint64
	cycles    atomic.Uint64
	panics    atomic.Uint64
}

// NewRouter creates a new router with the given options.
func NewRouter(opts ...RouterOption) *Router {
	config := defaultRouterConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.panicHandler == nil {
		config.panicHandler = logPanicHandler(config.logger)
	}

	return &Router{
		registry:   NewRegistry(),
		dispatcher: dispatch.NewSyncDispatcher(),
		config:     config,
		logger:     config.logger,
		publishers: make(map[topic.Topic]Publisher),
	}
}

// RegisterPublisher records p as the origin of its topic.
// If the topic already has a publisher, the last registration wins.
func (r *Router) RegisterPublisher(p Publisher) error {
	if p == nil {
		return ErrNilPublisher
	}
	t := p.Topic()
	if !t.IsValid() {
		return NewConfigError(t.String(), "topic", ErrInvalidTopic.Error())
	}

	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	if prev, exists := r.publishers[t]; exists && prev != p {
		r.logger.Warn("publisher replaced", "topic", t)
	}
	r.publishers[t] = p
	return nil
}

// RegisterSubscriber subscribes s to topic t at the given priority.
func (r *Router) RegisterSubscriber(s Subscriber, t topic.Topic, p Priority) error {
	if s == nil {
		return &ConfigError{Field: "subscriber", Message: "nil subscriber", Err: ErrNilSubscriber}
	}
	if !t.IsValid() {
		return &ConfigError{
			Component: s.Topic().String(),
			Field:     "subscriptions",
			Message:   "invalid topic " + `"` + t.String() + `"`,
			Err:       ErrInvalidTopic,
		}
	}

	r.registry.Add(s, t, p)
	r.logger.Debug("subscribed", "topic", t, "subscriber", s.Topic(), "priority", int(p))
	return nil
}

// Deliver hands ctx to every subscriber of ctx.Topic in descending priority.
// The first subscriber that returns false stops delivery. An event without
// subscribers is dropped. The only error is a refused nested delivery.
func (r *Router) Deliver(ctx *Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	t := ctx.Topic

	if err := r.enter(t); err != nil {
		r.cycles.Add(1)
		r.logger.Warn("delivery dropped", "topic", t, "id", ctx.ID, "error", err)
		return err
	}
	defer r.leave()

	r.published.Add(1)

	subs := r.registry.Match(t)
	if len(subs) == 0 {
		r.dropped.Add(1)
		return nil
	}

	for _, s := range subs {
		sub := s.Subscriber()
		result := r.dispatcher.Dispatch(func() bool {
			return sub.Pull(ctx)
		})
		r.pulls.Add(1)
		if r.config.slowPull > 0 && result.Duration > r.config.slowPull {
			r.logger.Warn("slow pull", "topic", t, "subscriber", sub.Topic(), "duration", result.Duration)
		}

		if result.Panicked {
			r.panics.Add(1)
			r.reportPanic(ctx, sub, result.PanicValue)
			continue
		}
		if !result.Next {
			r.vetoed.Add(1)
			r.logger.Debug("delivery vetoed", "topic", t, "id", ctx.ID, "by", sub.Topic())
			return nil
		}
	}

	return nil
}

// enter pushes t on the in-flight stack, refusing cycles and excessive depth.
func (r *Router) enter(t topic.Topic) error {
	r.flightMu.Lock()
	defer r.flightMu.Unlock()

	if slices.Contains(r.inFlight, t) || len(r.inFlight) >= r.config.maxDepth {
		return &CycleError{Topic: t, Stack: slices.Clone(r.inFlight)}
	}
	r.inFlight = append(r.inFlight, t)
	return nil
}

// leave pops the innermost in-flight topic.
func (r *Router) leave() {
	r.flightMu.Lock()
	defer r.flightMu.Unlock()

	if n := len(r.inFlight); n > 0 {
		r.inFlight = r.inFlight[:n-1]
	}
}

// reportPanic calls the panic handler without letting it escape.
func (r *Router) reportPanic(ctx *Context, sub Subscriber, recovered any) {
	defer func() {
		_ = recover()
	}()
	r.config.panicHandler(ctx, sub, recovered)
}

// Subscribers returns the subscriptions for t in delivery order.
func (r *Router) Subscribers(t topic.Topic) []*Subscription {
	return r.registry.Match(t)
}

// Topics returns every topic with at least one subscriber.
func (r *Router) Topics() []topic.Topic {
	return r.registry.Topics()
}

// Publisher returns the registered origin of t.
func (r *Router) Publisher(t topic.Topic) (Publisher, bool) {
	r.pubMu.RLock()
	defer r.pubMu.RUnlock()

	p, ok := r.publishers[t]
	return p, ok
}

// Depth returns the number of deliveries currently in flight.
func (r *Router) Depth() int {
	r.flightMu.Lock()
	defer r.flightMu.Unlock()
	return len(r.inFlight)
}

// Stats returns router statistics.
func (r *Router) Stats() Stats {
	r.pubMu.RLock()
	publishers := len(r.publishers)
	r.pubMu.RUnlock()

	pullStats := r.dispatcher.Stats()
	return Stats{
		EventsPublished: r.published.Load(),
		EventsDropped:   r.dropped.Load(),
		PullsExecuted:   r.pulls.Load(),
		EventsVetoed:    r.vetoed.Load(),
		CyclesBlocked:   r.cycles.Load(),
		PullPanics:      r.panics.Load(),
		AvgPullTimeNs:   pullStats.AvgDuration.Nanoseconds(),
		MaxPullTimeNs:   pullStats.MaxDuration.Nanoseconds(),
		Publishers:      publishers,
		Subscriptions:   r.registry.Count(),
	}
}
