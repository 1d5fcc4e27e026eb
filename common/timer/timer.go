// Package timer measures monotonic elapsed time for a single owner.
package timer

import "time"

type Timer struct {
	start time.Time
}

// Started returns a timer whose reference instant is now.
func Started() Timer {
	return Timer{start: time.Now()}
}

func (t *Timer) Start() {
	t.start = time.Now()
}

// Elapsed is zero for a timer that was never started.
func (t *Timer) Elapsed() time.Duration {
	if t.start.IsZero() {
		return 0
	}
	return time.Since(t.start)
}

func (t *Timer) TimedOut(limit time.Duration) bool {
	return t.Elapsed() >= limit
}

// Remaining returns how much of limit is left, never negative.
func (t *Timer) Remaining(limit time.Duration) time.Duration {
	remaining := limit - t.Elapsed()
	if remaining < 0 {
		return 0
	}
	return remaining
}
