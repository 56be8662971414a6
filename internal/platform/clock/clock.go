// Package clock separates the two time domains of the game: a monotonic
// clock for in-session elapsed time and a wall clock for offline duration
// across restarts.
package clock

import (
	"sync"
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	// Now returns a reading suitable for elapsed-time math within a
	// process. Real implementations carry a monotonic component.
	Now() time.Time
	// Wall returns the calendar time, meaningful across processes.
	Wall() time.Time
}

type RealClock struct{}

// Now returns the current time using the system clock, monotonic reading
// included.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Wall returns the current wall-clock time with the monotonic reading
// stripped.
func (RealClock) Wall() time.Time {
	return time.Now().Round(0)
}

// Fake is a manually driven Clock. Its two domains advance independently so
// tests can model a process restart after time offline.
type Fake struct {
	mu   sync.Mutex
	mono time.Time
	wall time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{mono: start, wall: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mono
}

func (f *Fake) Wall() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wall
}

// Advance moves both domains forward.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mono = f.mono.Add(d)
	f.wall = f.wall.Add(d)
}

// AdvanceWall moves only the wall clock, as if the process had been stopped.
func (f *Fake) AdvanceWall(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wall = f.wall.Add(d)
}

// SetMono jumps the monotonic reading, typically to model a fresh process
// whose monotonic origin is unrelated to the previous run.
func (f *Fake) SetMono(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mono = t
}
