package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimersFires(t *testing.T) {
	timers := NewTimers()
	defer timers.Close()

	fired := make(chan struct{})
	timers.At("req-1", time.Now().Add(10*time.Millisecond), func(context.Context) {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
	assert.False(t, timers.Cancel("req-1"), "fired timer should no longer be pending")
}

func TestTimersCancel(t *testing.T) {
	timers := NewTimers()
	defer timers.Close()

	var fired atomic.Bool
	timers.At("req-1", time.Now().Add(50*time.Millisecond), func(context.Context) {
		fired.Store(true)
	})
	require.True(t, timers.Cancel("req-1"))

	time.Sleep(100 * time.Millisecond)
	assert.False(t, fired.Load(), "cancelled timer must not fire")
}

func TestTimersRescheduleReplaces(t *testing.T) {
	timers := NewTimers()
	defer timers.Close()

	var count atomic.Int32
	fired := make(chan struct{})
	timers.At("req-1", time.Now().Add(time.Hour), func(context.Context) {
		count.Add(1)
	})
	timers.At("req-1", time.Now().Add(10*time.Millisecond), func(context.Context) {
		count.Add(1)
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement timer never fired")
	}
	assert.Equal(t, int32(1), count.Load())
}

func TestTimersClose(t *testing.T) {
	timers := NewTimers()

	var fired atomic.Bool
	timers.At("req-1", time.Now().Add(50*time.Millisecond), func(context.Context) {
		fired.Store(true)
	})
	timers.Close()

	// closed scheduler ignores new work
	timers.At("req-2", time.Now(), func(context.Context) {
		fired.Store(true)
	})

	time.Sleep(100 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestManual(t *testing.T) {
	m := NewManual()

	var fired atomic.Bool
	deadline := time.Date(2026, 3, 14, 9, 31, 0, 0, time.UTC)
	m.At("req-1", deadline, func(context.Context) { fired.Store(true) })

	got, ok := m.Deadline("req-1")
	require.True(t, ok)
	assert.Equal(t, deadline, got)
	assert.False(t, fired.Load(), "manual scheduler must not fire on its own")

	require.True(t, m.Fire(context.Background(), "req-1"))
	assert.True(t, fired.Load())
	assert.False(t, m.Fire(context.Background(), "req-1"), "second fire is a no-op")
	assert.Zero(t, m.Pending())
}
