package event

// State is the blackboard shared by every subscriber of a delivery chain.
// Keys keep their insertion order.
//
// State is deliberately unsynchronized: it is only touched from the run loop.
// A rule or component that blocks while holding a reference stalls the bus.
type State struct {
	keys   []string
	values map[string]any
}

// NewState creates an empty blackboard.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key. Existing keys keep their position.
// Setting a nil value deletes the key.
func (s *State) Set(key string, value any) {
	if value == nil {
		s.Delete(key)
		return
	}
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Delete removes key from the blackboard.
func (s *State) Delete(key string) {
	if _, exists := s.values[key]; !exists {
		return
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys.
func (s *State) Len() int {
	return len(s.keys)
}

// Keys returns the keys in insertion order.
func (s *State) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Range calls fn for each key in insertion order until fn returns false.
func (s *State) Range(fn func(key string, value any) bool) {
	for _, k := range s.Keys() {
		v, ok := s.values[k]
		if !ok {
			continue
		}
		if !fn(k, v) {
			return
		}
	}
}

// Snapshot returns a copy of the blackboard as a plain map.
func (s *State) Snapshot() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Clear removes every key.
func (s *State) Clear() {
	s.keys = nil
	s.values = make(map[string]any)
}
