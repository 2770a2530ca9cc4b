package component

import (
	"errors"
	"fmt"

	"github.com/dshills/homebus/internal/event"
	"github.com/dshills/homebus/internal/event/topic"
	"github.com/dshills/homebus/internal/rule"
)

// Config is the configuration record every component accepts.
type Config struct {
	// Topic is the component's own topic. Required.
	Topic string

	// Priority orders this component among the subscribers of a topic.
	Priority int

	// Mute suppresses the status line.
	Mute bool

	// Rule runs before every push and may suppress it.
	Rule string

	// Subscriptions lists the topics this component listens to.
	Subscriptions []Subscription
}

// Subscription binds a set of topics to an optional rule.
type Subscription struct {
	Topics []string
	Rule   string
}

// compiled is a validated Config.
type compiled struct {
	topic    topic.Topic
	priority event.Priority
	own      *rule.Program
	rules    map[topic.Topic]*rule.Program
	order    []topic.Topic
}

// Validate checks c without building anything.
func (c Config) Validate() error {
	_, err := c.compile()
	return err
}

// compile validates the record and compiles its rules.
func (c Config) compile() (*compiled, error) {
	t, ok := topic.Parse(c.Topic)
	if !ok {
		return nil, &event.ConfigError{
			Component: c.Topic,
			Field:     "topic",
			Message:   "a non-empty topic without whitespace is required",
			Err:       event.ErrInvalidTopic,
		}
	}

	out := &compiled{
		topic:    t,
		priority: event.Priority(c.Priority),
		rules:    make(map[topic.Topic]*rule.Program),
	}
	if c.Priority > int(event.MaxPriority) {
		return nil, event.NewConfigError(c.Topic, "priority",
			fmt.Sprintf("must not exceed %d", int(event.MaxPriority)))
	}

	if c.Rule != "" {
		p, err := rule.Compile(c.Topic, c.Rule)
		if err != nil {
			return nil, ruleError(c.Topic, "rule", err)
		}
		out.own = p
	}

	for i, sub := range c.Subscriptions {
		field := fmt.Sprintf("subscriptions[%d]", i)
		if len(sub.Topics) == 0 {
			return nil, event.NewConfigError(c.Topic, field, "at least one topic is required")
		}

		var p *rule.Program
		if sub.Rule != "" {
			var err error
			p, err = rule.Compile(c.Topic+"/"+field, sub.Rule)
			if err != nil {
				return nil, ruleError(c.Topic, field+".rule", err)
			}
		}

		for _, raw := range sub.Topics {
			st, ok := topic.Parse(raw)
			if !ok {
				return nil, &event.ConfigError{
					Component: c.Topic,
					Field:     field + ".topics",
					Message:   fmt.Sprintf("invalid topic %q", raw),
					Err:       event.ErrInvalidTopic,
				}
			}
			if _, dup := out.rules[st]; !dup {
				out.order = append(out.order, st)
			}
			out.rules[st] = p
		}
	}

	return out, nil
}

func ruleError(component, field string, err error) error {
	msg := err.Error()
	var compileErr *rule.CompileError
	if errors.As(err, &compileErr) {
		msg = compileErr.Err.Error()
	}
	return &event.ConfigError{Component: component, Field: field, Message: msg, Err: err}
}
