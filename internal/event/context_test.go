package event

import "testing"

func TestContext_Begin(t *testing.T) {
	ctx := NewContext("btn", nil)
	if ctx.State == nil {
		t.Fatal("NewContext should allocate a state")
	}

	ctx.Topic = "other"
	ctx.Next = false
	ctx.Emit = false
	ctx.Begin("P")

	if ctx.Topic != "btn" {
		t.Errorf("Topic = %s, want btn", ctx.Topic)
	}
	if ctx.Payload != "P" || !ctx.Next || !ctx.Emit {
		t.Errorf("Begin left %+v", ctx)
	}
	if ctx.ID == "" {
		t.Error("Begin should assign a correlation id")
	}

	first := ctx.ID
	ctx.Begin("C")
	if ctx.ID == first {
		t.Error("each Begin should assign a fresh id")
	}
}

func TestContext_Adopt(t *testing.T) {
	shared := NewState()
	shared.Set("k", 1)

	in := NewContext("src", shared)
	in.Begin(42)

	own := NewContext("dst", nil)
	own.Next = false
	own.Adopt(in)

	if own.Topic != "src" || own.Emitter != "dst" {
		t.Errorf("Topic/Emitter = %s/%s, want src/dst", own.Topic, own.Emitter)
	}
	if own.Payload != 42 || own.ID != in.ID {
		t.Errorf("Adopt did not copy payload/id: %+v", own)
	}
	if own.State != shared {
		t.Error("Adopt should share the incoming blackboard")
	}
	if !own.Next || !own.Emit {
		t.Error("Adopt should reset Next and Emit")
	}
}
