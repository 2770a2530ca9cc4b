package event

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dshills/homebus/internal/event/topic"
)

// spy records the order in which subscribers are pulled.
type spy struct {
	calls []string
}

func (s *spy) sub(name string, next bool) SubscriberFunc {
	return SubscriberFunc{
		Name: topic.Topic(name),
		Fn: func(*Context) bool {
			s.calls = append(s.calls, name)
			return next
		},
	}
}

type pub topic.Topic

func (p pub) Topic() topic.Topic { return topic.Topic(p) }

func TestRouter_PriorityOrder(t *testing.T) {
	r := NewRouter()
	s := &spy{}

	mustSubscribe(t, r, s.sub("low", true), "t", -5)
	mustSubscribe(t, r, s.sub("a", true), "t", 10)
	mustSubscribe(t, r, s.sub("default", true), "t", PriorityDefault)
	mustSubscribe(t, r, s.sub("b", true), "t", 10)
	mustSubscribe(t, r, s.sub("max", true), "t", MaxPriority)

	if err := r.Deliver(newEvent("t", 1)); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	want := []string{"max", "a", "b", "default", "low"}
	if fmt.Sprint(s.calls) != fmt.Sprint(want) {
		t.Errorf("pull order = %v, want %v", s.calls, want)
	}
}

func TestRouter_VetoStopsLowerPriorities(t *testing.T) {
	r := NewRouter()
	s := &spy{}

	mustSubscribe(t, r, s.sub("first", true), "t", 3)
	mustSubscribe(t, r, s.sub("veto", false), "t", 2)
	mustSubscribe(t, r, s.sub("never", true), "t", 1)

	if err := r.Deliver(newEvent("t", nil)); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	if fmt.Sprint(s.calls) != "[first veto]" {
		t.Errorf("pull order = %v, want [first veto]", s.calls)
	}
	if got := r.Stats().EventsVetoed; got != 1 {
		t.Errorf("EventsVetoed = %d, want 1", got)
	}
}

func TestRouter_NoSubscribersIsDropped(t *testing.T) {
	r := NewRouter()

	if err := r.Deliver(newEvent("nobody", "x")); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	stats := r.Stats()
	if stats.EventsPublished != 1 || stats.EventsDropped != 1 {
		t.Errorf("stats = %+v, want 1 published and 1 dropped", stats)
	}
}

func TestRouter_RegisterSubscriberErrors(t *testing.T) {
	r := NewRouter()

	err := r.RegisterSubscriber(nil, "t", 0)
	if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, ErrNilSubscriber) {
		t.Errorf("nil subscriber: err = %v", err)
	}

	err = r.RegisterSubscriber(SubscriberFunc{Name: "s"}, "", 0)
	if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic: err = %v", err)
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Component != "s" {
		t.Errorf("expected ConfigError for component s, got %v", err)
	}
}

func TestRouter_LastPublisherWins(t *testing.T) {
	r := NewRouter()

	first := &struct{ pub }{pub("p")}
	second := &struct{ pub }{pub("p")}

	if err := r.RegisterPublisher(first); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterPublisher(second); err != nil {
		t.Fatal(err)
	}

	got, ok := r.Publisher("p")
	if !ok {
		t.Fatal("Publisher(p) not found")
	}
	if got != second {
		t.Error("expected the last registered publisher to win")
	}
	if r.Stats().Publishers != 1 {
		t.Errorf("Publishers = %d, want 1", r.Stats().Publishers)
	}
}

func TestRouter_RegisterPublisherErrors(t *testing.T) {
	r := NewRouter()

	if err := r.RegisterPublisher(nil); !errors.Is(err, ErrNilPublisher) {
		t.Errorf("nil publisher: err = %v", err)
	}
	if err := r.RegisterPublisher(pub("")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("empty topic: err = %v", err)
	}
}

// A publishes on P1; S subscribes to P1 and vetoes; the rank-3 subscriber
// must never run, while the higher-ranked subscriber still sees the event
// and the blackboard write made by S survives.
func TestRouter_EndToEndVetoScenario(t *testing.T) {
	r := NewRouter()
	var order []string

	hub := SubscriberFunc{Name: "hub", Fn: func(ctx *Context) bool {
		order = append(order, "hub")
		return true
	}}
	s := SubscriberFunc{Name: "S", Fn: func(ctx *Context) bool {
		order = append(order, "S")
		ctx.State.Set("seen", ctx.Payload)
		return false
	}}
	rank3 := SubscriberFunc{Name: "rank3", Fn: func(ctx *Context) bool {
		order = append(order, "rank3")
		return true
	}}

	mustSubscribe(t, r, hub, "P1", MaxPriority)
	mustSubscribe(t, r, s, "P1", 5)
	mustSubscribe(t, r, rank3, "P1", 3)

	ctx := NewContext("P1", nil)
	ctx.Begin("C")
	if err := r.Deliver(ctx); err != nil {
		t.Fatal(err)
	}

	if fmt.Sprint(order) != "[hub S]" {
		t.Errorf("order = %v, want [hub S]", order)
	}
	if v, _ := ctx.State.Get("seen"); v != "C" {
		t.Errorf("state[seen] = %v, want C", v)
	}
}

func TestRouter_ReentrantDelivery(t *testing.T) {
	r := NewRouter()
	var got []string

	relay := SubscriberFunc{Name: "relay", Fn: func(ctx *Context) bool {
		got = append(got, "relay:"+ctx.Topic.String())
		out := NewContext("relay", ctx.State)
		out.Begin(ctx.Payload)
		if err := r.Deliver(out); err != nil {
			t.Errorf("nested Deliver() error = %v", err)
		}
		return true
	}}
	sink := SubscriberFunc{Name: "sink", Fn: func(ctx *Context) bool {
		got = append(got, "sink:"+ctx.Topic.String())
		return true
	}}

	mustSubscribe(t, r, relay, "src", 0)
	mustSubscribe(t, r, sink, "relay", 0)

	if err := r.Deliver(newEvent("src", 1)); err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(got) != "[relay:src sink:relay]" {
		t.Errorf("got %v", got)
	}
	if r.Depth() != 0 {
		t.Errorf("Depth() = %d after delivery, want 0", r.Depth())
	}
}

func TestRouter_CycleGuard(t *testing.T) {
	r := NewRouter()
	var nestedErr error
	calls := 0

	// a -> b -> a
	a := SubscriberFunc{Name: "a", Fn: func(ctx *Context) bool {
		calls++
		return r.Deliver(newEvent("a", nil)) == nil
	}}
	b := SubscriberFunc{Name: "b", Fn: func(ctx *Context) bool {
		calls++
		nestedErr = r.Deliver(newEvent("b", nil))
		return true
	}}

	mustSubscribe(t, r, a, "b", 0)
	mustSubscribe(t, r, b, "a", 0)

	if err := r.Deliver(newEvent("a", nil)); err != nil {
		t.Fatalf("outer Deliver() error = %v", err)
	}

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if nestedErr != nil {
		t.Errorf("b's delivery error = %v, want nil", nestedErr)
	}
	if r.Stats().CyclesBlocked != 1 {
		t.Errorf("CyclesBlocked = %d, want 1", r.Stats().CyclesBlocked)
	}
	if r.Depth() != 0 {
		t.Errorf("Depth() = %d, want 0", r.Depth())
	}
}

func TestRouter_MaxDepth(t *testing.T) {
	r := NewRouter(WithMaxDepth(3))
	var last error

	for i := 0; i < 5; i++ {
		from := topic.Topic(fmt.Sprintf("t%d", i))
		to := topic.Topic(fmt.Sprintf("t%d", i+1))
		mustSubscribe(t, r, SubscriberFunc{Name: to, Fn: func(*Context) bool {
			if err := r.Deliver(newEvent(to, nil)); err != nil {
				last = err
			}
			return true
		}}, from, 0)
	}

	if err := r.Deliver(newEvent("t0", nil)); err != nil {
		t.Fatal(err)
	}

	var cycleErr *CycleError
	if !errors.As(last, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", last)
	}
	if !errors.Is(last, ErrDeliveryCycle) {
		t.Error("CycleError should match ErrDeliveryCycle")
	}
	if len(cycleErr.Stack) != 3 {
		t.Errorf("stack depth = %d, want 3", len(cycleErr.Stack))
	}
}

func TestRouter_PanicIsPassThrough(t *testing.T) {
	var handled any
	r := NewRouter(WithPanicHandler(func(ctx *Context, sub Subscriber, recovered any) {
		handled = recovered
	}))
	s := &spy{}

	mustSubscribe(t, r, SubscriberFunc{Name: "bad", Fn: func(*Context) bool {
		panic("boom")
	}}, "t", 2)
	mustSubscribe(t, r, s.sub("after", true), "t", 1)

	if err := r.Deliver(newEvent("t", nil)); err != nil {
		t.Fatal(err)
	}

	if handled != "boom" {
		t.Errorf("panic handler got %v, want boom", handled)
	}
	if fmt.Sprint(s.calls) != "[after]" {
		t.Errorf("calls = %v, want [after]", s.calls)
	}
	if r.Stats().PullPanics != 1 {
		t.Errorf("PullPanics = %d, want 1", r.Stats().PullPanics)
	}
}

func TestRouter_SlowPullWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := NewRouter(WithLogger(logger), WithSlowPull(time.Nanosecond))

	mustSubscribe(t, r, SubscriberFunc{
		Name: "sleepy",
		Fn: func(*Context) bool {
			time.Sleep(time.Millisecond)
			return true
		},
	}, "t", PriorityDefault)

	if err := r.Deliver(newEvent("t", 1)); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if !strings.Contains(buf.String(), "slow pull") {
		t.Errorf("log = %q, want a slow pull warning", buf.String())
	}
	if r.Stats().MaxPullTimeNs < int64(time.Millisecond) {
		t.Errorf("MaxPullTimeNs = %d, want >= 1ms", r.Stats().MaxPullTimeNs)
	}
}

func TestRouter_DeliverNilContext(t *testing.T) {
	r := NewRouter()
	if err := r.Deliver(nil); !errors.Is(err, ErrNilContext) {
		t.Errorf("Deliver(nil) = %v, want ErrNilContext", err)
	}
}

func TestRouter_SubscribersSnapshot(t *testing.T) {
	r := NewRouter()
	mustSubscribe(t, r, SubscriberFunc{Name: "x"}, "t", 1)

	subs := r.Subscribers("t")
	mustSubscribe(t, r, SubscriberFunc{Name: "y"}, "t", 2)

	if len(subs) != 1 {
		t.Errorf("snapshot changed: len = %d", len(subs))
	}
	if got := r.Subscribers("t"); len(got) != 2 || got[0].Subscriber().Topic() != "y" {
		t.Errorf("Subscribers(t) = %v", got)
	}
	if topics := r.Topics(); len(topics) != 1 || topics[0] != "t" {
		t.Errorf("Topics() = %v", topics)
	}
}

func mustSubscribe(t *testing.T, r *Router, s Subscriber, tp topic.Topic, p Priority) {
	t.Helper()
	if err := r.RegisterSubscriber(s, tp, p); err != nil {
		t.Fatalf("RegisterSubscriber(%s) error = %v", tp, err)
	}
}

func newEvent(t topic.Topic, payload any) *Context {
	ctx := NewContext(t, nil)
	ctx.Begin(payload)
	return ctx
}
