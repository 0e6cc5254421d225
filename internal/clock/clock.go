// Package clock abstracts wall time and deferred callbacks so timing logic can
// run against a simulated clock in tests.
package clock

import "time"

// Timer is a cancellable handle for one deferred callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped a pending callback.
	Stop() bool
}

// Clock supplies the current instant and schedules deferred callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
