package loop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newManualLoop(opts ...Option) (*Loop, *ManualClock) {
	clock := NewManualClock(epoch)
	return New(append([]Option{WithClock(clock)}, opts...)...), clock
}

func TestLoop_FIFO(t *testing.T) {
	l, _ := newManualLoop()

	var got []int
	for i := range 5 {
		require.True(t, l.Schedule(func() { got = append(got, i) }))
	}

	assert.Equal(t, 5, l.RunPending())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoop_ScheduleDuringDrain(t *testing.T) {
	l, _ := newManualLoop()

	var got []string
	l.Schedule(func() {
		got = append(got, "outer")
		l.Schedule(func() { got = append(got, "inner") })
	})

	assert.Equal(t, 2, l.RunPending())
	assert.Equal(t, []string{"outer", "inner"}, got)
}

func TestLoop_ScheduleDropsWhenFull(t *testing.T) {
	l, _ := newManualLoop(WithQueueSize(2))

	assert.True(t, l.Schedule(func() {}))
	assert.True(t, l.Schedule(func() {}))
	assert.False(t, l.Schedule(func() {}))

	stats := l.Stats()
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, 2, stats.Queued)
}

func TestLoop_PanicRecovered(t *testing.T) {
	l, _ := newManualLoop()

	ran := false
	l.Schedule(func() { panic("boom") })
	l.Schedule(func() { ran = true })

	assert.NotPanics(t, func() { l.RunPending() })
	assert.True(t, ran)
	assert.Equal(t, uint64(1), l.Stats().Panics)
}

func TestLoop_Run(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	ran := make(chan struct{})
	l.Schedule(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not run")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLoop_AdvanceRequiresManualClock(t *testing.T) {
	l := New()
	assert.ErrorIs(t, l.Advance(time.Second), ErrNotManual)
}
