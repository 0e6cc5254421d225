// Package timer implements the corrected elapsed-time stopwatch behind every shot.
//
// The timer never schedules work on its own. Callers drive Tick at their
// display cadence and pass the current instant into every call.
package timer

import (
	"time"

	"github.com/rbright/shotclock/internal/fsm"
	"github.com/rbright/shotclock/internal/shot"
)

// Settings holds pre-roll and post-roll corrections.
type Settings struct {
	// StartOffset shifts the start instant. A negative value backdates the
	// start so the display already shows |StartOffset| when Start returns.
	StartOffset time.Duration
	// EndOffset is added to the measured duration on Stop.
	EndOffset time.Duration
	// ClampNegative floors the final duration at zero.
	ClampNegative bool
}

// SettingsUpdate merges non-nil fields into Settings.
type SettingsUpdate struct {
	StartOffset   *time.Duration
	EndOffset     *time.Duration
	ClampNegative *bool
}

type TickFunc func(formatted string, elapsed time.Duration)

type FinishFunc func(final time.Duration)

type Options struct {
	Settings Settings
	OnTick   TickFunc
	OnFinish FinishFunc
}

type Timer struct {
	state         fsm.State
	settings      Settings
	adjustedStart time.Time
	elapsed       time.Duration
	onTick        TickFunc
	onFinish      FinishFunc
}

func New(opts Options) *Timer {
	t := &Timer{
		state:    fsm.StateIdle,
		settings: opts.Settings,
		onTick:   opts.OnTick,
		onFinish: opts.OnFinish,
	}
	if t.onTick == nil {
		t.onTick = func(string, time.Duration) {}
	}
	if t.onFinish == nil {
		t.onFinish = func(time.Duration) {}
	}
	return t
}

// Start enters Running from Idle or Finished. It reports false when the timer was already running.
func (t *Timer) Start(now time.Time) bool {
	next, err := fsm.Transition(t.state, fsm.EventStart)
	if err != nil {
		return false
	}
	t.state = next
	t.adjustedStart = now.Add(t.settings.StartOffset)
	t.elapsed = sinceFloor(now, t.adjustedStart)
	t.onTick(shot.Format(t.elapsed), t.elapsed)
	return true
}

func (t *Timer) Tick(now time.Time) {
	if t.state != fsm.StateRunning {
		return
	}
	t.elapsed = sinceFloor(now, t.adjustedStart)
	t.onTick(shot.Format(t.elapsed), t.elapsed)
}

// Stop finishes a running timer. retroactive backdates the stop instant.
// The returned duration may be negative unless ClampNegative is set.
func (t *Timer) Stop(now time.Time, retroactive time.Duration) (time.Duration, bool) {
	next, err := fsm.Transition(t.state, fsm.EventStop)
	if err != nil {
		return 0, false
	}
	t.state = next

	final := sinceFloor(now.Add(-retroactive), t.adjustedStart) + t.settings.EndOffset
	if t.settings.ClampNegative && final < 0 {
		final = 0
	}
	t.elapsed = final

	display := max(final, 0)
	t.onTick(shot.Format(display), display)
	t.onFinish(final)
	return final, true
}

// Reset returns to Idle from any state and emits a zero tick. Settings are kept.
func (t *Timer) Reset() {
	next, err := fsm.Transition(t.state, fsm.EventReset)
	if err != nil {
		next = fsm.StateIdle
	}
	t.state = next
	t.elapsed = 0
	t.adjustedStart = time.Time{}
	t.onTick(shot.Format(0), 0)
}

// UpdateSettings applies without validation. Start offset changes take effect
// on the next Start, end offset changes on the next Stop.
func (t *Timer) UpdateSettings(update SettingsUpdate) {
	if update.StartOffset != nil {
		t.settings.StartOffset = *update.StartOffset
	}
	if update.EndOffset != nil {
		t.settings.EndOffset = *update.EndOffset
	}
	if update.ClampNegative != nil {
		t.settings.ClampNegative = *update.ClampNegative
	}
}

func (t *Timer) Settings() Settings {
	return t.settings
}

func (t *Timer) State() fsm.State {
	return t.state
}

func (t *Timer) IsRunning() bool {
	return t.state == fsm.StateRunning
}

// Elapsed reports the live value while running and the frozen value otherwise.
func (t *Timer) Elapsed(now time.Time) time.Duration {
	if t.state == fsm.StateRunning {
		return sinceFloor(now, t.adjustedStart)
	}
	return t.elapsed
}

// StartedAt is the corrected start instant of the current or last run.
func (t *Timer) StartedAt() time.Time {
	return t.adjustedStart
}

func sinceFloor(now, start time.Time) time.Duration {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return d
}
