package rule

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSandbox_RemovedGlobals(t *testing.T) {
	e := NewEvaluator()
	defer e.Close()

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "io", "os", "debug", "package", "_G", "rawset"} {
		t.Run(name, func(t *testing.T) {
			p := mustCompile(t, `next = (`+name+` == nil)`)
			res := e.Evaluate(p, Scope{Event: newEvent("btn", nil)})
			if res.Err != nil {
				t.Fatal(res.Err)
			}
			if !res.Next {
				t.Errorf("%s should not be reachable from a rule", name)
			}
		})
	}
}

func TestSandbox_SafeLibraries(t *testing.T) {
	e := NewEvaluator()
	defer e.Close()

	p := mustCompile(t, `
		local parts = {}
		for w in string.gmatch("a b c", "%a") do
			table.insert(parts, w)
		end
		next = (#parts == 3) and (math.max(1, 2) == 2) and (string.upper("x") == "X")
	`)
	res := e.Evaluate(p, Scope{Event: newEvent("btn", nil)})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if !res.Next {
		t.Error("string, table and math should be available")
	}
}

func TestSandbox_GlobalsDoNotLeak(t *testing.T) {
	e := NewEvaluator()
	defer e.Close()

	if res := e.Evaluate(mustCompile(t, `leaked = 1`), Scope{Event: newEvent("btn", nil)}); res.Err != nil {
		t.Fatal(res.Err)
	}
	res := e.Evaluate(mustCompile(t, `next = (leaked == nil)`), Scope{Event: newEvent("btn", nil)})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if !res.Next {
		t.Error("globals assigned by one rule should not be visible to the next evaluation")
	}
}

func TestSandbox_PrintGoesToLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	e := NewEvaluator(WithLogger(logger))
	defer e.Close()

	res := e.Evaluate(mustCompile(t, `print("hello", topic)`), Scope{Event: newEvent("btn", nil)})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if !strings.Contains(buf.String(), `text="hello\tbtn"`) {
		t.Errorf("log output = %q", buf.String())
	}
}

func TestSandbox_RulesCannotAlterSharedGlobals(t *testing.T) {
	e := NewEvaluator()
	defer e.Close()

	tamper := []string{
		`string.lower = nil`,
		`math.max = function() return 0 end`,
		`table.insert = nil`,
		`getmetatable("").__index = {}`,
		`setmetatable(string, {})`,
		`getmetatable(string).__index = {}`,
	}
	for _, src := range tamper {
		res := e.Evaluate(mustCompile(t, src), Scope{Event: newEvent("btn", nil)})
		if res.Err == nil {
			t.Errorf("%q should fail", src)
		}
	}

	// A rule may shadow a library in its own environment only.
	if res := e.Evaluate(mustCompile(t, `string = nil; armed = true`), Scope{Event: newEvent("btn", nil)}); res.Err != nil {
		t.Fatal(res.Err)
	}

	res := e.Evaluate(mustCompile(t, `
		next = armed == nil
			and string.lower("X") == "x"
			and ("Y"):lower() == "y"
			and math.max(1, 2) == 2
	`), Scope{Event: newEvent("btn", nil)})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if !res.Next {
		t.Error("a later rule should see the untouched libraries and no leaked globals")
	}
}
