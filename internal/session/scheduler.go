package session

import (
	"time"

	"github.com/rbright/shotclock/internal/clock"
)

// loopScheduler is a clock.Clock whose callbacks run on the session loop
// instead of the timer goroutine.
type loopScheduler struct {
	base     clock.Clock
	deferred chan<- func()
	done     <-chan struct{}
}

func (s loopScheduler) Now() time.Time {
	return s.base.Now()
}

func (s loopScheduler) AfterFunc(d time.Duration, f func()) clock.Timer {
	return s.base.AfterFunc(d, func() {
		select {
		case s.deferred <- f:
		case <-s.done:
		}
	})
}
