// Package schedule runs deferred callbacks for verification deadlines. The
// in-process timer covers a single instance; a clustered deployment would
// replace it with a durable queue behind the same interface.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// deadline callbacks get their own context; the scheduling request's
// context is long gone when the timer fires.
const callbackTimeout = 30 * time.Second

// Scheduler defers a callback to a point in time, keyed so it can be
// cancelled when the deadline is resolved early.
type Scheduler interface {
	At(key string, when time.Time, fn func(context.Context))
	Cancel(key string) bool
}

// Timers is an in-process Scheduler backed by time.AfterFunc.
type Timers struct {
	logger *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// Option configures Timers.
type Option func(*Timers)

// WithLogger sets the logger used when callbacks fire.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Timers) { t.logger = logger }
}

// NewTimers creates an empty scheduler.
func NewTimers(opts ...Option) *Timers {
	t := &Timers{
		logger: slog.Default(),
		timers: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// At schedules fn to run once when the deadline passes. Scheduling again
// under the same key replaces the earlier timer. A deadline already in the
// past fires immediately.
func (t *Timers) At(key string, when time.Time, fn func(context.Context)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if prev, ok := t.timers[key]; ok {
		prev.Stop()
	}
	t.timers[key] = time.AfterFunc(time.Until(when), func() {
		t.mu.Lock()
		delete(t.timers, key)
		t.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
		defer cancel()
		t.logger.DebugContext(ctx, "scheduled deadline fired", "key", key)
		fn(ctx)
	})
}

// Cancel stops a pending timer. It reports whether a timer was still
// pending; false means the callback already fired or was never scheduled.
func (t *Timers) Cancel(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	timer, ok := t.timers[key]
	if !ok {
		return false
	}
	delete(t.timers, key)
	return timer.Stop()
}

// Close cancels every pending timer. Callbacks already running are not
// interrupted.
func (t *Timers) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
}
