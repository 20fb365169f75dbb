// Package clock isolates time acquisition so domain logic never calls
// time.Now directly and tests can pin the current instant.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fixed always returns the same instant. Advance moves it forward.
type Fixed struct {
	current time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{current: t}
}

func (f *Fixed) Now() time.Time { return f.current }

func (f *Fixed) Advance(d time.Duration) { f.current = f.current.Add(d) }

// Set pins the clock to a specific instant.
func (f *Fixed) Set(t time.Time) { f.current = t }
