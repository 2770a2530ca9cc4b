package event

import (
	"sort"
	"sync"

	"github.com/dshills/homebus/internal/event/topic"
)

// Registry manages subscriptions organized by topic.
// It is thread-safe for concurrent access.
type Registry struct {
	mu   sync.RWMutex
	subs map[topic.Topic][]*Subscription
	seq  uint64
}

// NewRegistry creates a new subscription registry.
func NewRegistry() *Registry {
	return &Registry{
		subs: make(map[topic.Topic][]*Subscription),
	}
}

// Add adds a subscription for a topic.
// The list stays sorted by descending priority; ties keep registration order.
func (r *Registry) Add(sub Subscriber, t topic.Topic, p Priority) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	s := &Subscription{
		subscriber: sub,
		topic:      t,
		priority:   p,
		seq:        r.seq,
	}

	subs := append(r.subs[t], s)
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].priority > subs[j].priority
	})
	r.subs[t] = subs

	return s
}

// Match returns the subscriptions for a topic in delivery order.
// Returns a copy so callers can iterate while subscriptions are added.
func (r *Registry) Match(t topic.Topic) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.subs[t]
	if len(subs) == 0 {
		return nil
	}

	result := make([]*Subscription, len(subs))
	copy(result, subs)
	return result
}

// Count returns the total number of subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, subs := range r.subs {
		n += len(subs)
	}
	return n
}

// Topics returns all topics with at least one subscription, sorted by name.
func (r *Registry) Topics() []topic.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.subs) == 0 {
		return nil
	}

	topics := make([]topic.Topic, 0, len(r.subs))
	for t := range r.subs {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}
