package config

import (
	"fmt"
	"math"
	"time"

	"github.com/dshills/homebus/internal/component"
	"github.com/dshills/homebus/internal/device/din"
	"github.com/dshills/homebus/internal/device/dout"
	"github.com/dshills/homebus/internal/device/link"
	"github.com/dshills/homebus/internal/device/sensor"
	"github.com/dshills/homebus/internal/event"
	"github.com/dshills/homebus/internal/rule"
)

// Decode builds a Document from a parsed configuration map.
func Decode(raw map[string]any) (*Document, error) {
	if raw == nil {
		return nil, ErrNotObject
	}

	root := newSection("document", raw)
	doc := &Document{
		Name:     root.String(KeyName, ""),
		Debug:    root.Bool(KeyDebug, false),
		Platform: root.String(KeyPlatform, ""),
	}
	if doc.Name == "" && root.err == nil {
		root.fail(KeyName, "is required")
	}
	doc.Hostname = root.String(KeyHostname, doc.Name+".local")
	doc.Hub = component.Config{
		Rule:          root.String(KeyRule, ""),
		Subscriptions: root.Subscriptions(KeySubscriptions),
	}
	doc.Store = decodeStore(root)
	doc.RuleTimeout = root.Millis(KeyRuleTimeout, 0)
	if p, err := rule.ParsePolicy(root.String(KeyRulePolicy, "")); err != nil {
		root.fail(KeyRulePolicy, err.Error())
	} else {
		doc.RulePolicy = p
	}
	if root.err != nil {
		return nil, root.err
	}

	if m, ok := raw[KeyNetwork]; ok && m != nil {
		s, err := asSection(KeyNetwork, m)
		switch {
		case err != nil:
			doc.Problems = append(doc.Problems, err)
		case s.Bool(KeyDisable, false):
			doc.Disabled = append(doc.Disabled, KeyNetwork)
		default:
			if n, err := decodeNetwork(s, doc.Hostname); err != nil {
				doc.Problems = append(doc.Problems, err)
			} else {
				doc.Network = n
			}
		}
	}

	eachEntry(doc, raw, KeyInputs, func(s *section) error {
		in, err := decodeInput(s)
		if err == nil {
			doc.Inputs = append(doc.Inputs, in)
		}
		return err
	})
	eachEntry(doc, raw, KeyOutputs, func(s *section) error {
		out, err := decodeOutput(s)
		if err == nil {
			doc.Outputs = append(doc.Outputs, out)
		}
		return err
	})
	eachEntry(doc, raw, KeySensors, func(s *section) error {
		sen, err := decodeSensor(s)
		if err == nil {
			doc.Sensors = append(doc.Sensors, sen)
		}
		return err
	})

	return doc, nil
}

// eachEntry decodes every enabled entry of a list section.
func eachEntry(doc *Document, raw map[string]any, key string, fn func(*section) error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return
	}
	list, ok := v.([]any)
	if !ok {
		doc.Problems = append(doc.Problems, event.NewConfigError(key, "", "must be a list"))
		return
	}
	for i, item := range list {
		name := fmt.Sprintf("%s[%d]", key, i)
		s, err := asSection(name, item)
		if err != nil {
			doc.Problems = append(doc.Problems, err)
			continue
		}
		if t := s.String("topic", ""); t != "" {
			s.owner = t
		}
		if s.Bool(KeyDisable, false) {
			doc.Disabled = append(doc.Disabled, s.owner)
			continue
		}
		if err := fn(s); err != nil {
			doc.Problems = append(doc.Problems, err)
		}
	}
}

func decodeStore(root *section) Store {
	v, ok := root.m[KeyStore]
	if !ok || v == nil {
		return Store{}
	}
	s, err := asSection(KeyStore, v)
	if err != nil {
		root.setErr(err)
		return Store{}
	}
	st := Store{
		Driver: s.String("driver", ""),
		Path:   s.String("path", ""),
	}
	switch st.Driver {
	case "", "json", "sqlite":
	default:
		s.fail("driver", fmt.Sprintf("unknown driver %q", st.Driver))
	}
	if st.Driver != "" && st.Path == "" {
		s.fail("path", "is required")
	}
	root.setErr(s.err)
	return st
}

// decodeComponent reads the keys shared by every component.
func decodeComponent(s *section, defaultTopic string) component.Config {
	return component.Config{
		Topic:         s.String("topic", defaultTopic),
		Priority:      s.Int("priority", 0),
		Mute:          s.Bool("mute", false),
		Rule:          s.String(KeyRule, ""),
		Subscriptions: s.Subscriptions(KeySubscriptions),
	}
}

func decodeNetwork(s *section, hostname string) (*Network, error) {
	n := &Network{Component: decodeComponent(s, DefaultNetworkTopic)}
	if n.Component.Topic != DefaultNetworkTopic {
		s.owner = n.Component.Topic
	}
	n.Options = link.Options{
		Hostname:  s.String(KeyHostname, hostname),
		Polling:   s.Millis("polling", 0),
		ShortPoll: s.Millis("short_poll", 0),
		Retry:     decodeRetry(s),
	}
	for i, item := range s.List("wifi") {
		w, err := asSection(fmt.Sprintf("%s.wifi[%d]", s.owner, i), item)
		if err != nil {
			return nil, err
		}
		pwd := w.String("pwd", "")
		if pwd == "" {
			pwd = w.String("password", "")
		}
		n.Options.Candidates = append(n.Options.Candidates, link.Candidate{
			SSID:     w.String("ssid", ""),
			Password: pwd,
			DHCP:     w.Bool("dhcp", true),
			IP:       w.String("ip", ""),
			Mask:     w.String("mask", ""),
			Gateway:  w.String("gateway", ""),
			DNS:      w.String("dns", ""),
		})
		if w.err != nil {
			return nil, w.err
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if err := n.Options.Validate(n.Component.Topic); err != nil {
		return nil, err
	}
	return n, nil
}

// decodeRetry reads either a constant interval in milliseconds or a
// backoff table.
func decodeRetry(s *section) link.RetryPolicy {
	v, ok := s.m["retry"]
	if !ok || v == nil {
		return nil
	}
	if _, isTable := v.(map[string]any); !isTable {
		return link.ConstantRetry{Interval: s.Millis("retry", 0)}
	}
	r, err := asSection(s.owner+".retry", v)
	if err != nil {
		s.setErr(err)
		return nil
	}
	b := link.BackoffRetry{
		Initial: r.Millis("initial", link.DefaultShortPoll),
		Factor:  r.Float("factor", 2),
		Max:     r.Millis("max", 0),
		Jitter:  r.Float("jitter", 0),
	}
	s.setErr(r.err)
	return b
}

func decodeInput(s *section) (Input, error) {
	in := Input{Component: decodeComponent(s, "")}
	opts := din.DefaultOptions(s.Int("pin", -1))
	opts.Inverted = s.Bool("inverted", opts.Inverted)
	opts.Debounce = s.Millis("debounce", opts.Debounce)
	opts.Long = s.Millis("long", opts.Long)
	opts.RawValue = s.Bool("raw_value", false)
	opts.Filter = s.String("filter", opts.Filter)
	in.Options = opts

	if s.err != nil {
		return Input{}, s.err
	}
	if err := in.Component.Validate(); err != nil {
		return Input{}, err
	}
	return in, opts.Validate(in.Component.Topic)
}

func decodeOutput(s *section) (Output, error) {
	out := Output{Component: decodeComponent(s, "")}
	opts := dout.DefaultOptions(s.Int("pin", -1))
	opts.Inverted = s.Bool("inverted", opts.Inverted)
	out.Options = opts

	if s.err != nil {
		return Output{}, s.err
	}
	if err := out.Component.Validate(); err != nil {
		return Output{}, err
	}
	return out, opts.Validate(out.Component.Topic)
}

func decodeSensor(s *section) (Sensor, error) {
	sen := Sensor{Component: decodeComponent(s, "")}
	sen.Options = sensor.Options{
		Driver:  s.String("driver", ""),
		Polling: s.Millis("polling", 0),
	}
	if p, ok := s.m["params"]; ok && p != nil {
		params, isMap := p.(map[string]any)
		if !isMap {
			s.fail("params", "must be a table")
		}
		sen.Options.Params = params
	}

	if s.err != nil {
		return Sensor{}, s.err
	}
	if err := sen.Component.Validate(); err != nil {
		return Sensor{}, err
	}
	return sen, sen.Options.Validate(sen.Component.Topic)
}

// section reads typed keys from one table of the document. The first
// problem is kept in err; later reads return their defaults.
type section struct {
	owner string
	m     map[string]any
	err   error
}

func newSection(owner string, m map[string]any) *section {
	return &section{owner: owner, m: m}
}

func asSection(owner string, v any) (*section, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, event.NewConfigError(owner, "", "must be a table")
	}
	return newSection(owner, m), nil
}

func (s *section) fail(field, msg string) {
	s.setErr(event.NewConfigError(s.owner, field, msg))
}

func (s *section) setErr(err error) {
	if s.err == nil && err != nil {
		s.err = err
	}
}

func (s *section) String(key, def string) string {
	v, ok := s.m[key]
	if !ok || v == nil {
		return def
	}
	str, ok := v.(string)
	if !ok {
		s.fail(key, fmt.Sprintf("must be a string, got %T", v))
		return def
	}
	return str
}

func (s *section) Bool(key string, def bool) bool {
	v, ok := s.m[key]
	if !ok || v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		s.fail(key, fmt.Sprintf("must be a boolean, got %T", v))
		return def
	}
	return b
}

func (s *section) Int(key string, def int) int {
	v, ok := s.m[key]
	if !ok || v == nil {
		return def
	}
	n, ok := toInt(v)
	if !ok {
		s.fail(key, fmt.Sprintf("must be an integer, got %v", v))
		return def
	}
	return n
}

func (s *section) Float(key string, def float64) float64 {
	v, ok := s.m[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	}
	if n, ok := toInt(v); ok {
		return float64(n)
	}
	s.fail(key, fmt.Sprintf("must be a number, got %T", v))
	return def
}

// Millis reads a duration given in milliseconds.
func (s *section) Millis(key string, def time.Duration) time.Duration {
	v, ok := s.m[key]
	if !ok || v == nil {
		return def
	}
	n, ok := toInt(v)
	if !ok || n < 0 {
		s.fail(key, fmt.Sprintf("must be a non-negative number of milliseconds, got %v", v))
		return def
	}
	return time.Duration(n) * time.Millisecond
}

func (s *section) List(key string) []any {
	v, ok := s.m[key]
	if !ok || v == nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		s.fail(key, "must be a list")
		return nil
	}
	return list
}

// Subscriptions reads a list of {topics, rule} tables. A single "topic"
// key is accepted in place of "topics".
func (s *section) Subscriptions(key string) []component.Subscription {
	var subs []component.Subscription
	for i, item := range s.List(key) {
		sub, err := asSection(fmt.Sprintf("%s.%s[%d]", s.owner, key, i), item)
		if err != nil {
			s.setErr(err)
			return nil
		}
		topics := sub.Strings("topics")
		if t := sub.String("topic", ""); t != "" {
			topics = append(topics, t)
		}
		subs = append(subs, component.Subscription{
			Topics: topics,
			Rule:   sub.String(KeyRule, ""),
		})
		s.setErr(sub.err)
	}
	return subs
}

func (s *section) Strings(key string) []string {
	list := s.List(key)
	out := make([]string, 0, len(list))
	for _, item := range list {
		str, ok := item.(string)
		if !ok {
			s.fail(key, fmt.Sprintf("must contain strings, got %T", item))
			return nil
		}
		out = append(out, str)
	}
	return out
}

// toInt accepts the integer types produced by the TOML, YAML and JSON
// decoders, and floats with no fractional part.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
