package loop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_FiresOnceOnLoop(t *testing.T) {
	l, clock := newManualLoop()

	fired := 0
	tm := l.NewTimer(func() { fired++ })
	tm.Start(50 * time.Millisecond)
	assert.True(t, tm.Active())

	require.NoError(t, l.Advance(49*time.Millisecond))
	assert.Equal(t, 0, fired)

	require.NoError(t, l.Advance(time.Millisecond))
	assert.Equal(t, 1, fired)
	assert.False(t, tm.Active())
	assert.Equal(t, 0, clock.Pending())

	require.NoError(t, l.Advance(time.Second))
	assert.Equal(t, 1, fired)
}

func TestTimer_CancelIsIdempotent(t *testing.T) {
	l, _ := newManualLoop()

	fired := false
	tm := l.NewTimer(func() { fired = true })
	tm.Start(10 * time.Millisecond)
	tm.Cancel()
	tm.Cancel()

	require.NoError(t, l.Advance(time.Second))
	assert.False(t, fired)
	assert.False(t, tm.Active())
}

func TestTimer_StaleExpiryDiscarded(t *testing.T) {
	l, clock := newManualLoop()

	fired := 0
	tm := l.NewTimer(func() { fired++ })
	tm.Start(10 * time.Millisecond)

	// Expire on the clock without draining the loop, then cancel: the
	// queued expiry belongs to an old generation.
	clock.Advance(10 * time.Millisecond)
	assert.Equal(t, 1, l.Stats().Queued)
	tm.Cancel()

	l.RunPending()
	assert.Equal(t, 0, fired)
}

func TestTimer_RestartReplacesExpiry(t *testing.T) {
	l, _ := newManualLoop()

	fired := 0
	tm := l.NewTimer(func() { fired++ })
	tm.Start(10 * time.Millisecond)
	require.NoError(t, l.Advance(5*time.Millisecond))
	tm.Start(10 * time.Millisecond)

	require.NoError(t, l.Advance(9*time.Millisecond))
	assert.Equal(t, 0, fired)

	require.NoError(t, l.Advance(time.Millisecond))
	assert.Equal(t, 1, fired)
}

func TestTimer_ChainedTimersWithinOneAdvance(t *testing.T) {
	l, clock := newManualLoop()

	var at []time.Duration
	var second *Timer
	first := l.NewTimer(func() {
		at = append(at, clock.Now().Sub(epoch))
		second.Start(100 * time.Millisecond)
	})
	second = l.NewTimer(func() {
		at = append(at, clock.Now().Sub(epoch))
	})

	first.Start(50 * time.Millisecond)
	require.NoError(t, l.Advance(time.Second))

	assert.Equal(t, []time.Duration{50 * time.Millisecond, 150 * time.Millisecond}, at)
	assert.Equal(t, epoch.Add(time.Second), clock.Now())
}

func TestTimer_RealClock(t *testing.T) {
	l := New()

	tm := l.NewTimer(func() {})
	tm.Start(time.Millisecond)

	require.Eventually(t, func() bool {
		return l.Stats().Queued == 1
	}, time.Second, time.Millisecond)

	l.RunPending()
	assert.False(t, tm.Active())
}

func TestTimer_FullQueueDefersExpiry(t *testing.T) {
	l, clock := newManualLoop(WithQueueSize(1))

	fired := 0
	tm := l.NewTimer(func() { fired++ })
	tm.Start(10 * time.Millisecond)

	require.True(t, l.Schedule(func() {}))
	clock.Advance(10 * time.Millisecond)
	assert.Equal(t, uint64(1), l.Stats().Deferred)
	assert.True(t, tm.Active(), "a deferred expiry keeps the timer armed")
	assert.Equal(t, 1, clock.Pending())

	l.RunPending()
	require.NoError(t, l.Advance(RetryDelay))
	assert.Equal(t, 1, fired)
	assert.False(t, tm.Active())
	assert.Equal(t, uint64(0), l.Stats().Dropped)

	require.NoError(t, l.Advance(time.Second))
	assert.Equal(t, 1, fired)
}

func TestTimer_CancelStopsDeferredExpiry(t *testing.T) {
	l, clock := newManualLoop(WithQueueSize(1))

	fired := false
	tm := l.NewTimer(func() { fired = true })
	tm.Start(10 * time.Millisecond)

	require.True(t, l.Schedule(func() {}))
	clock.Advance(10 * time.Millisecond)
	tm.Cancel()
	assert.Equal(t, 0, clock.Pending())

	require.NoError(t, l.Advance(time.Second))
	assert.False(t, fired)
}
