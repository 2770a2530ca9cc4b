package rule

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/dshills/homebus/internal/event"
	"github.com/dshills/homebus/internal/event/topic"
)

// fakeActions records action calls.
type fakeActions struct {
	calls []string
	fns   map[string]func(any) (any, error)
}

func (f *fakeActions) Names() []string {
	names := make([]string, 0, len(f.fns))
	for n := range f.fns {
		names = append(names, n)
	}
	return names
}

func (f *fakeActions) Call(name string, arg any) (any, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s(%v)", name, arg))
	return f.fns[name](arg)
}

func mustCompile(t *testing.T, src string) *Program {
	t.Helper()
	p, err := Compile(t.Name(), src)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return p
}

func newEvent(tp string, payload any) *event.Context {
	ctx := event.NewContext(topic.Topic(tp), nil)
	ctx.Begin(payload)
	return ctx
}

func TestEvaluate_Defaults(t *testing.T) {
	e := NewEvaluator()
	defer e.Close()

	ctx := newEvent("btn", "C")
	res := e.Evaluate(mustCompile(t, `local x = 1`), Scope{Event: ctx})

	if res.Err != nil {
		t.Fatalf("Evaluate() error = %v", res.Err)
	}
	if !res.Next || !res.Emit {
		t.Errorf("defaults = %+v, want next and emit true", res)
	}
}

func TestEvaluate_Veto(t *testing.T) {
	e := NewEvaluator()
	defer e.Close()

	p := mustCompile(t, `
		if event == "L" then
			next = false
		end
		emit = topic ~= "quiet"
	`)

	tests := []struct {
		topic    string
		payload  string
		wantNext bool
		wantEmit bool
	}{
		{"btn", "C", true, true},
		{"btn", "L", false, true},
		{"quiet", "P", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.topic+"/"+tt.payload, func(t *testing.T) {
			ctx := newEvent(tt.topic, tt.payload)
			res := e.Evaluate(p, Scope{Event: ctx})
			if res.Err != nil {
				t.Fatal(res.Err)
			}
			if ctx.Next != tt.wantNext || ctx.Emit != tt.wantEmit {
				t.Errorf("next/emit = %v/%v, want %v/%v", ctx.Next, ctx.Emit, tt.wantNext, tt.wantEmit)
			}
		})
	}
}

func TestEvaluate_StateIsShared(t *testing.T) {
	e := NewEvaluator()
	defer e.Close()

	p := mustCompile(t, `
		state.count = (state.count or 0) + 1
		state.last = event
	`)

	ctx := newEvent("btn", "P")
	for i := 0; i < 3; i++ {
		if res := e.Evaluate(p, Scope{Event: ctx}); res.Err != nil {
			t.Fatal(res.Err)
		}
	}

	if v, _ := ctx.State.Get("count"); v != int64(3) {
		t.Errorf("state.count = %v (%T), want 3", v, v)
	}
	if v, _ := ctx.State.Get("last"); v != "P" {
		t.Errorf("state.last = %v, want P", v)
	}

	// Assigning nil removes the key
	if res := e.Evaluate(mustCompile(t, `state.last = nil`), Scope{Event: ctx}); res.Err != nil {
		t.Fatal(res.Err)
	}
	if _, ok := ctx.State.Get("last"); ok {
		t.Error("state.last should be deleted")
	}
}

func TestEvaluate_StateTablesWriteBack(t *testing.T) {
	e := NewEvaluator()
	defer e.Close()

	ctx := newEvent("btn", "P")
	ctx.State.Set("counts", []any{int64(0), int64(0)})
	ctx.State.Set("cfg", map[string]any{"mode": "auto"})

	p := mustCompile(t, `
		state.counts[1] = 5
		state.counts[2] = state.counts[1] + 1
		state.cfg.mode = "manual"
	`)
	if res := e.Evaluate(p, Scope{Event: ctx}); res.Err != nil {
		t.Fatal(res.Err)
	}

	counts, _ := ctx.State.Get("counts")
	if !reflect.DeepEqual(counts, []any{int64(5), int64(6)}) {
		t.Errorf("state.counts = %v, want [5 6]", counts)
	}
	cfg, _ := ctx.State.Get("cfg")
	if !reflect.DeepEqual(cfg, map[string]any{"mode": "manual"}) {
		t.Errorf("state.cfg = %v, want mode=manual", cfg)
	}

	// Reassigning a table wins over edits to the copy read before it
	p = mustCompile(t, `
		local c = state.counts
		state.counts = {9}
		c[1] = 1
	`)
	if res := e.Evaluate(p, Scope{Event: ctx}); res.Err != nil {
		t.Fatal(res.Err)
	}
	counts, _ = ctx.State.Get("counts")
	if !reflect.DeepEqual(counts, []any{int64(9)}) {
		t.Errorf("state.counts = %v, want [9]", counts)
	}
}

func TestEvaluate_Actions(t *testing.T) {
	e := NewEvaluator()
	defer e.Close()

	lit := false
	actions := &fakeActions{fns: map[string]func(any) (any, error){
		"toggle": func(any) (any, error) { lit = !lit; return nil, nil },
		"value":  func(any) (any, error) { return lit, nil },
		"set":    func(v any) (any, error) { lit = v == true; return nil, nil },
	}}

	p := mustCompile(t, `
		action.toggle()
		if action.value() then
			action.set(false)
		end
	`)

	res := e.Evaluate(p, Scope{Event: newEvent("btn", "C"), Actions: actions})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if lit {
		t.Error("expected set(false) to run")
	}
	if got := fmt.Sprint(actions.calls); got != "[toggle(<nil>) value(<nil>) set(false)]" {
		t.Errorf("calls = %s", got)
	}
}

func TestEvaluate_FailOpen(t *testing.T) {
	e := NewEvaluator()
	defer e.Close()

	ctx := newEvent("btn", "C")
	res := e.Evaluate(mustCompile(t, `next = false; error("boom")`), Scope{Event: ctx})

	var evalErr *RuleEvaluationError
	if !errors.As(res.Err, &evalErr) {
		t.Fatalf("expected RuleEvaluationError, got %v", res.Err)
	}
	if !errors.Is(res.Err, ErrRuntime) {
		t.Error("RuleEvaluationError should match ErrRuntime")
	}
	if !res.Next || !res.Emit || !ctx.Next || !ctx.Emit {
		t.Errorf("fail-open should let the event through, got %+v", res)
	}
}

func TestEvaluate_FailClosed(t *testing.T) {
	e := NewEvaluator(WithPolicy(FailClosed))
	defer e.Close()

	ctx := newEvent("btn", "C")
	res := e.Evaluate(mustCompile(t, `action.missing()`), Scope{Event: ctx})

	if res.Err == nil {
		t.Fatal("expected an error")
	}
	if res.Next || ctx.Next {
		t.Error("fail-closed should stop the event")
	}
}

func TestEvaluate_ActionError(t *testing.T) {
	e := NewEvaluator()
	defer e.Close()

	actions := &fakeActions{fns: map[string]func(any) (any, error){
		"fail": func(any) (any, error) { return nil, errors.New("nope") },
	}}
	res := e.Evaluate(mustCompile(t, `action.fail()`), Scope{Event: newEvent("btn", 1), Actions: actions})
	if res.Err == nil {
		t.Fatal("expected an error from the failing action")
	}
}

func TestEvaluate_Timeout(t *testing.T) {
	e := NewEvaluator(WithTimeout(20 * time.Millisecond))
	defer e.Close()

	start := time.Now()
	res := e.Evaluate(mustCompile(t, `while true do end`), Scope{Event: newEvent("btn", 1)})

	if !errors.Is(res.Err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", res.Err)
	}
	if !res.Next {
		t.Error("timeout should fail open")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("runaway rule took %v to stop", elapsed)
	}

	// The state remains usable afterwards
	if res := e.Evaluate(mustCompile(t, `next = false`), Scope{Event: newEvent("btn", 1)}); res.Err != nil || res.Next {
		t.Errorf("evaluation after timeout = %+v", res)
	}
}

func TestEvaluate_Nested(t *testing.T) {
	e := NewEvaluator()
	defer e.Close()

	inner := mustCompile(t, `next = false`)
	var innerRes Result
	actions := &fakeActions{fns: map[string]func(any) (any, error){
		"relay": func(any) (any, error) {
			innerRes = e.Evaluate(inner, Scope{Event: newEvent("other", 2)})
			return nil, nil
		},
	}}

	outer := e.Evaluate(mustCompile(t, `action.relay()`), Scope{Event: newEvent("btn", 1), Actions: actions})
	if outer.Err != nil {
		t.Fatal(outer.Err)
	}
	if innerRes.Next {
		t.Error("inner evaluation should veto")
	}
	if !outer.Next {
		t.Error("inner evaluation leaked into the outer one")
	}
}

func TestEvaluate_Closed(t *testing.T) {
	e := NewEvaluator()
	p := mustCompile(t, `next = false`)
	_ = e.Close()
	_ = e.Close()

	res := e.Evaluate(p, Scope{Event: newEvent("btn", 1)})
	if !errors.Is(res.Err, ErrEvaluatorClosed) {
		t.Errorf("expected ErrEvaluatorClosed, got %v", res.Err)
	}
}

func TestCompile_SyntaxError(t *testing.T) {
	_, err := Compile("bad", `if then`)
	var compileErr *CompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("expected CompileError, got %v", err)
	}
	if compileErr.Name != "bad" {
		t.Errorf("Name = %q, want bad", compileErr.Name)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", FailOpen, false},
		{"open", FailOpen, false},
		{"Fail-Closed", FailClosed, false},
		{"sideways", FailOpen, true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePolicy(%q) = %v, %v", tt.in, got, err)
		}
	}
}
