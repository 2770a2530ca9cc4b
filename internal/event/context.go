package event

import (
	"github.com/google/uuid"

	"github.com/dshills/homebus/internal/event/topic"
)

// Context is the mutable record describing one event in flight.
//
// A Context is owned by the publishing component and passed by pointer to
// each subscriber in turn. Subscribers may change State, Next and Emit;
// Topic and Emitter stay fixed for the whole delivery.
type Context struct {
	// ID correlates log lines produced by one delivery chain.
	ID string

	// Topic is the channel the event is delivered on.
	Topic topic.Topic

	// Emitter is the topic of the component that built the context.
	Emitter topic.Topic

	// Payload is the event value. The bus never inspects it.
	Payload any

	// State is the long-lived blackboard shared across deliveries.
	State *State

	// Next is the continue flag read back after rule evaluation.
	Next bool

	// Emit controls whether the status line is printed.
	Emit bool
}

// NewContext creates a context owned by the component publishing on owner.
// A nil state gets a fresh blackboard.
func NewContext(owner topic.Topic, state *State) *Context {
	if state == nil {
		state = NewState()
	}
	return &Context{
		Topic:   owner,
		Emitter: owner,
		State:   state,
		Next:    true,
		Emit:    true,
	}
}

// Begin refreshes the context for a new event carrying payload.
func (c *Context) Begin(payload any) {
	c.ID = uuid.NewString()
	c.Topic = c.Emitter
	c.Payload = payload
	c.Next = true
	c.Emit = true
}

// Adopt copies the fields of an incoming event into c so that a rule
// evaluated against c sees the incoming topic, payload and blackboard.
// The receiver keeps its own Emitter.
func (c *Context) Adopt(in *Context) {
	c.ID = in.ID
	c.Topic = in.Topic
	c.Payload = in.Payload
	c.State = in.State
	c.Next = true
	c.Emit = true
}
