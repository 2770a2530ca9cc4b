package event

import (
	"log/slog"

	"github.com/dshills/homebus/internal/event/topic"
)

// Priority determines subscriber delivery order.
// Higher values are delivered first.
type Priority int

const (
	// PriorityDefault is the priority of a component that does not set one.
	PriorityDefault Priority = 0

	// MaxPriority is reserved for the runtime hub so it sees every event first.
	MaxPriority Priority = 100
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch {
	case p >= MaxPriority:
		return "max"
	case p > PriorityDefault:
		return "high"
	case p == PriorityDefault:
		return "default"
	default:
		return "low"
	}
}

// Publisher is the capability of originating events on a topic.
type Publisher interface {
	// Topic returns the topic the publisher owns.
	Topic() topic.Topic
}

// Subscriber is the capability of receiving events from the bus.
type Subscriber interface {
	// Topic returns the subscriber's own topic.
	Topic() topic.Topic

	// Pull is invoked once per delivered event. Returning false vetoes
	// delivery to every lower-priority subscriber of the same event.
	Pull(ctx *Context) bool
}

// SubscriberFunc adapts a function to the Subscriber interface.
// It is mostly useful in tests and for the runtime hub.
type SubscriberFunc struct {
	Name topic.Topic
	Fn   func(ctx *Context) bool
}

// Topic implements Subscriber.
func (f SubscriberFunc) Topic() topic.Topic {
	return f.Name
}

// Pull implements Subscriber.
func (f SubscriberFunc) Pull(ctx *Context) bool {
	if f.Fn == nil {
		return true
	}
	return f.Fn(ctx)
}

// Stats contains router statistics.
type Stats struct {
	// EventsPublished is the number of Deliver calls that reached the subscriber table.
	EventsPublished uint64

	// EventsDropped is the number of events with no subscriber for their topic.
	EventsDropped uint64

	// PullsExecuted is the total number of subscriber pulls invoked.
	PullsExecuted uint64

	// EventsVetoed is the number of deliveries stopped by a subscriber.
	EventsVetoed uint64

	// CyclesBlocked is the number of deliveries refused by the cycle guard.
	CyclesBlocked uint64

	// PullPanics is the number of pulls that panicked.
	PullPanics uint64

	// AvgPullTimeNs is the average pull duration in nanoseconds.
	AvgPullTimeNs int64

	// MaxPullTimeNs is the longest pull seen, in nanoseconds.
	MaxPullTimeNs int64

	// Publishers is the number of registered publisher topics.
	Publishers int

	// Subscriptions is the number of registered subscriptions.
	Subscriptions int
}

// PanicHandler is called when a subscriber pull panics.
type PanicHandler func(ctx *Context, sub Subscriber, recovered any)

// logPanicHandler returns a PanicHandler that logs to the given logger.
func logPanicHandler(logger *slog.Logger) PanicHandler {
	return func(ctx *Context, sub Subscriber, recovered any) {
		logger.Error("subscriber panicked",
			"topic", ctx.Topic,
			"subscriber", sub.Topic(),
			"panic", recovered,
		)
	}
}
