package schedule

import (
	"context"
	"sync"
	"time"
)

// Manual is a Scheduler for tests: nothing fires until the test calls Fire.
type Manual struct {
	mu      sync.Mutex
	pending map[string]entry
}

type entry struct {
	when time.Time
	fn   func(context.Context)
}

// NewManual creates an empty manual scheduler.
func NewManual() *Manual {
	return &Manual{pending: make(map[string]entry)}
}

// At records the callback without arming a timer.
func (m *Manual) At(key string, when time.Time, fn func(context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[key] = entry{when: when, fn: fn}
}

// Cancel drops a pending callback.
func (m *Manual) Cancel(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[key]
	delete(m.pending, key)
	return ok
}

// Fire runs the callback under key synchronously. It reports whether one
// was pending.
func (m *Manual) Fire(ctx context.Context, key string) bool {
	m.mu.Lock()
	e, ok := m.pending[key]
	delete(m.pending, key)
	m.mu.Unlock()
	if !ok {
		return false
	}
	e.fn(ctx)
	return true
}

// Deadline returns the scheduled time for key.
func (m *Manual) Deadline(key string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.pending[key]
	return e.when, ok
}

// Pending returns the number of scheduled callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
