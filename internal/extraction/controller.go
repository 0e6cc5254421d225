// Package extraction couples the signal gate to the shot timer and applies the
// pre-infusion guard to early silences.
package extraction

import (
	"sync"
	"time"

	"github.com/rbright/shotclock/internal/clock"
	"github.com/rbright/shotclock/internal/fsm"
	"github.com/rbright/shotclock/internal/gate"
	"github.com/rbright/shotclock/internal/shot"
	"github.com/rbright/shotclock/internal/timer"
)

type Status string

const (
	StatusNoiseStarted       Status = "noise_started"
	StatusSilenceConfirmed   Status = "silence_confirmed"
	StatusProvisionalSilence Status = "provisional_silence"
	StatusSilenceCommitted   Status = "silence_committed"
)

// Guard configures how early silences are treated.
type Guard struct {
	// Window is the elapsed time below which a silence is only provisional.
	Window time.Duration
	// RecheckDelay is how long a provisional silence waits before re-sampling the gate.
	RecheckDelay time.Duration
	// ImmediateRetroactive backdates stops committed outside the window.
	ImmediateRetroactive time.Duration
	// BackdateRecheck backdates re-check commits by RecheckDelay.
	BackdateRecheck bool
}

func DefaultGuard() Guard {
	return Guard{
		Window:               6 * time.Second,
		RecheckDelay:         5 * time.Second,
		ImmediateRetroactive: 500 * time.Millisecond,
	}
}

// Finish describes one Running to Finished transition.
type Finish struct {
	Duration  time.Duration
	Trigger   shot.Trigger
	StartedAt time.Time
	StoppedAt time.Time
}

type Options struct {
	Threshold    float64
	SilenceDelay time.Duration
	Timer        timer.Settings
	Guard        Guard
	Clock        clock.Clock

	OnTick   timer.TickFunc
	OnFinish func(Finish)
	OnStatus func(Status)
}

// Snapshot is a point-in-time view for status reporting.
type Snapshot struct {
	State       fsm.State
	Elapsed     time.Duration
	Noisy       bool
	Provisional bool
	Threshold   float64
}

// Controller serializes gate observations, manual commands, and re-checks.
// Callbacks run with the controller locked and must not call back into it.
type Controller struct {
	mu    sync.Mutex
	clock clock.Clock
	guard Guard
	gate  *gate.Gate
	timer *timer.Timer

	recheck    clock.Timer
	generation uint64

	trigger   shot.Trigger
	stoppedAt time.Time

	onFinish func(Finish)
	onStatus func(Status)
}

func New(opts Options) *Controller {
	c := &Controller{
		clock:    opts.Clock,
		guard:    opts.Guard,
		gate:     gate.New(opts.Threshold, opts.SilenceDelay),
		onFinish: opts.OnFinish,
		onStatus: opts.OnStatus,
	}
	if c.clock == nil {
		c.clock = clock.Real()
	}
	if c.onFinish == nil {
		c.onFinish = func(Finish) {}
	}
	if c.onStatus == nil {
		c.onStatus = func(Status) {}
	}
	c.timer = timer.New(timer.Options{
		Settings: opts.Timer,
		OnTick:   opts.OnTick,
		OnFinish: c.finished,
	})
	return c
}

// Observe feeds one RMS reading taken at now.
func (c *Controller) Observe(rms float64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	transition, ok := c.gate.Observe(rms, now)
	if !ok {
		return
	}

	switch transition {
	case gate.NoiseStarted:
		c.cancelRecheckLocked()
		c.onStatus(StatusNoiseStarted)
		if !c.timer.IsRunning() {
			c.timer.Start(now)
		}
	case gate.SilenceConfirmed:
		c.onStatus(StatusSilenceConfirmed)
		if !c.timer.IsRunning() {
			return
		}
		if c.timer.Elapsed(now) < c.guard.Window {
			c.armRecheckLocked()
			c.onStatus(StatusProvisionalSilence)
			return
		}
		c.commitLocked(now, c.guard.ImmediateRetroactive, shot.TriggerSilence)
	}
}

// Start begins a manual run. It reports false if the timer was already running.
func (c *Controller) Start(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer.Start(now)
}

// Stop ends a run manually and voids any pending re-check.
func (c *Controller) Stop(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelRecheckLocked()
	return c.stopTimerLocked(now, 0, shot.TriggerManual)
}

// Toggle starts an idle or finished timer and stops a running one.
func (c *Controller) Toggle(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer.IsRunning() {
		c.cancelRecheckLocked()
		return c.stopTimerLocked(now, 0, shot.TriggerManual)
	}
	return c.timer.Start(now)
}

// Reset returns timer and gate to their initial state without touching settings.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelRecheckLocked()
	c.gate.Reset()
	c.timer.Reset()
}

func (c *Controller) Tick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer.Tick(now)
}

// UpdateGate applies new gate settings. Invalid values are clamped by the gate.
func (c *Controller) UpdateGate(threshold float64, silenceDelay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate.SetThreshold(threshold)
	c.gate.SetSilenceDelay(silenceDelay)
}

func (c *Controller) UpdateTimer(update timer.SettingsUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer.UpdateSettings(update)
}

// UpdateGuard takes effect for the next silence; an armed re-check keeps its schedule.
func (c *Controller) UpdateGuard(guard Guard) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guard = guard
}

func (c *Controller) Snapshot(now time.Time) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:       c.timer.State(),
		Elapsed:     c.timer.Elapsed(now),
		Noisy:       c.gate.IsNoisy(),
		Provisional: c.recheck != nil,
		Threshold:   c.gate.Threshold(),
	}
}

func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer.IsRunning()
}

func (c *Controller) armRecheckLocked() {
	c.cancelRecheckLocked()
	c.generation++
	gen := c.generation
	c.recheck = c.clock.AfterFunc(c.guard.RecheckDelay, func() {
		c.fireRecheck(gen)
	})
}

func (c *Controller) cancelRecheckLocked() {
	if c.recheck != nil {
		c.recheck.Stop()
		c.recheck = nil
	}
	c.generation++
}

func (c *Controller) fireRecheck(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}
	c.recheck = nil
	c.generation++

	if !c.timer.IsRunning() || c.gate.IsNoisy() {
		return
	}

	var retroactive time.Duration
	if c.guard.BackdateRecheck {
		retroactive = c.guard.RecheckDelay
	}
	c.commitLocked(c.clock.Now(), retroactive, shot.TriggerRecheck)
}

// commitLocked stops a running timer on behalf of the gate. Callers check IsRunning.
func (c *Controller) commitLocked(now time.Time, retroactive time.Duration, trigger shot.Trigger) {
	c.onStatus(StatusSilenceCommitted)
	c.stopTimerLocked(now, retroactive, trigger)
}

func (c *Controller) stopTimerLocked(now time.Time, retroactive time.Duration, trigger shot.Trigger) bool {
	c.trigger = trigger
	c.stoppedAt = now.Add(-retroactive)
	_, ok := c.timer.Stop(now, retroactive)
	return ok
}

// finished is the timer's finish callback; it runs inside stopTimerLocked.
func (c *Controller) finished(final time.Duration) {
	c.onFinish(Finish{
		Duration:  final,
		Trigger:   c.trigger,
		StartedAt: c.timer.StartedAt(),
		StoppedAt: c.stoppedAt,
	})
}
