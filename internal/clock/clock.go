// Package clock abstracts wall-clock time so that expiry logic can be tested
// with a fixed instant instead of sleeping.
package clock

import "time"

// Clock supplies the current time to services and the reaper.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now in UTC.
func NewSystem() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Fixed is a clock pinned to a single instant, useful in tests.  Advance
// moves it forward in place.
type Fixed struct {
	Current time.Time
}

// NewFixed returns a clock that always reports t (in UTC) until advanced.
func NewFixed(t time.Time) *Fixed { return &Fixed{Current: t.UTC()} }

func (f *Fixed) Now() time.Time { return f.Current }

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.Current = f.Current.Add(d) }
