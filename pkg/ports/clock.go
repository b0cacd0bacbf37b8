package ports

import "time"

// Clock separates wall-clock stamps (sentTime on the wire, which other
// nodes interpret) from monotonic timers (local scheduling, timeouts).
// A real system clock satisfies both from time.Now(): Go's runtime
// already attaches a monotonic reading to every time.Time produced by
// time.Now(), so duration arithmetic between two such values never
// regresses even if the wall clock is adjusted.
type Clock interface {
	// WallNowMillis returns the current wall-clock time in Unix
	// milliseconds, used to stamp outgoing sentTime fields.
	WallNowMillis() int64
	// Now returns a time.Time suitable for monotonic duration math
	// (time.Since, deadlines, timers).
	Now() time.Time
}

// SystemClock is the default Clock backed by the OS.
type SystemClock struct{}

func (SystemClock) WallNowMillis() int64 { return time.Now().UnixMilli() }
func (SystemClock) Now() time.Time       { return time.Now() }

// FakeClock is a manually-advanced Clock for deterministic tests.
type FakeClock struct {
	t time.Time
}

// NewFakeClock returns a FakeClock starting at t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{t: t}
}

func (f *FakeClock) WallNowMillis() int64 { return f.t.UnixMilli() }
func (f *FakeClock) Now() time.Time       { return f.t }

// Advance moves the fake clock forward by d.
func (f *FakeClock) Advance(d time.Duration) {
	f.t = f.t.Add(d)
}
