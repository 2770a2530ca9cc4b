package topic

import (
	"strings"
	"unicode"
)

// Topic names a logical channel on the bus.
// Examples: "btn1", "led.kitchen", "net"
type Topic string

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// IsValid returns true if the topic can be registered on the bus.
// A valid topic:
//   - Is not empty
//   - Contains no whitespace or control characters
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	for _, r := range string(t) {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// Parse trims s and returns it as a Topic.
// The second return value is false if the result is not a valid topic.
func Parse(s string) (Topic, bool) {
	t := Topic(strings.TrimSpace(s))
	return t, t.IsValid()
}
