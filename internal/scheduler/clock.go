package scheduler

import "time"

// Clock abstracts wall time so the cadence loop is testable without real
// waiting.
type Clock interface {
	Now() time.Time
	// After fires once the given duration has passed. Non-positive
	// durations fire immediately.
	After(d time.Duration) <-chan time.Time
}

// realClock is the production clock.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time {
	if d <= 0 {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
	return time.After(d)
}
