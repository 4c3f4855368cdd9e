// Package clock provides the time source for phase computation and record
// expiry. Production code uses System; tests inject a Fixed clock so phase
// transitions and PIN lockouts are deterministic.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed is a settable clock for tests.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixed creates a Fixed clock frozen at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

// DateIn formats t as YYYY-MM-DD in loc. Date-bucket keys in the snapshot
// use this format, so lexicographic comparison orders them correctly.
func DateIn(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// TimeIn formats t as HH:mm in loc.
func TimeIn(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}
