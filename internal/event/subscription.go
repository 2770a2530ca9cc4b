package event

import (
	"github.com/dshills/homebus/internal/event/topic"
)

// Subscription binds a subscriber to a topic at a priority.
// Subscriptions are created at configuration time and never change.
type Subscription struct {
	subscriber Subscriber
	topic      topic.Topic
	priority   Priority
	seq        uint64
}

// Subscriber returns the subscribed component.
func (s *Subscription) Subscriber() Subscriber {
	return s.subscriber
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() topic.Topic {
	return s.topic
}

// Priority returns the delivery priority.
func (s *Subscription) Priority() Priority {
	return s.priority
}

// Seq returns the registration sequence number used to break priority ties.
func (s *Subscription) Seq() uint64 {
	return s.seq
}
