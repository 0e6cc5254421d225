// Package session runs one listening session: it serializes audio levels,
// display ticks, deferred guard re-checks, and IPC actions on a single loop.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/shotclock/internal/clock"
	"github.com/rbright/shotclock/internal/extraction"
	"github.com/rbright/shotclock/internal/fsm"
	"github.com/rbright/shotclock/internal/ipc"
	"github.com/rbright/shotclock/internal/shot"
	"github.com/rbright/shotclock/internal/timer"
)

type action int

const (
	actionStart action = iota + 1
	actionStop
	actionToggle
	actionReset
	actionCancel
)

func (a action) String() string {
	switch a {
	case actionStart:
		return "start"
	case actionStop:
		return "stop"
	case actionToggle:
		return "toggle"
	case actionReset:
		return "reset"
	case actionCancel:
		return "cancel"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Snapshot is the externally visible session state.
type Snapshot struct {
	Listening  bool
	State      fsm.State
	Elapsed    time.Duration
	Formatted  string
	LastStatus extraction.Status
	Level      float64
	Last       *shot.Shot
	Device     string
}

type Options struct {
	Logger    *slog.Logger
	Source    Source
	Recorder  Recorder
	Indicator Indicator
	Sinks     []Sink
	Clock     clock.Clock
	Settings  Settings
}

// Controller orchestrates one listening session and its side effects.
type Controller struct {
	logger    *slog.Logger
	source    Source
	recorder  Recorder
	indicator Indicator
	sink      multiSink
	clock     clock.Clock

	mu       sync.RWMutex
	snapshot Snapshot
	settings Settings

	actions    chan action
	settingsCh chan Settings
	deferred   chan func()
	done       chan struct{}

	// Loop-owned; written only from Run's goroutine.
	finished    *extraction.Finish
	resetTimer  clock.Timer
	provisional bool
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(opts Options) *Controller {
	c := &Controller{
		logger:     opts.Logger,
		source:     opts.Source,
		recorder:   opts.Recorder,
		indicator:  opts.Indicator,
		sink:       multiSink(opts.Sinks),
		clock:      opts.Clock,
		settings:   opts.Settings,
		actions:    make(chan action, 4),
		settingsCh: make(chan Settings, 1),
		deferred:   make(chan func(), 16),
		done:       make(chan struct{}),
	}
	if c.recorder == nil {
		c.recorder = RecordFunc(func(context.Context, shot.Shot) error { return nil })
	}
	if c.indicator == nil {
		c.indicator = noopIndicator{}
	}
	if c.clock == nil {
		c.clock = clock.Real()
	}
	if c.settings.TickInterval <= 0 {
		c.settings.TickInterval = 50 * time.Millisecond
	}
	c.snapshot = Snapshot{State: fsm.StateIdle, Formatted: shot.Format(0)}
	return c
}

// Snapshot returns the current externally visible state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// State returns the current timer state.
func (c *Controller) State() fsm.State {
	return c.Snapshot().State
}

// ApplySettings hands new settings to the loop. Only the latest pending update is kept.
func (c *Controller) ApplySettings(s Settings) {
	for {
		select {
		case c.settingsCh <- s:
			return
		default:
		}
		select {
		case <-c.settingsCh:
		default:
		}
	}
}

// Run listens until a shot finishes (or, in continuous mode, until cancelled).
func (c *Controller) Run(ctx context.Context) Result {
	defer close(c.done)

	result := Result{StartedAt: c.clock.Now()}
	if c.source == nil {
		result.Err = fmt.Errorf("%w: no audio source configured", ErrCaptureUnavailable)
		result.FinishedAt = c.clock.Now()
		return result
	}

	c.indicator.ShowListening(ctx)
	if err := c.source.Start(ctx); err != nil {
		if !IsCaptureUnavailable(err) {
			err = fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
		}
		c.indicator.ShowError(context.Background(), err.Error())
		result.Err = err
		result.FinishedAt = c.clock.Now()
		return result
	}

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
		defer cancel()
		c.indicator.Hide(cleanupCtx)
	}()

	c.updateSnapshot(func(s *Snapshot) {
		s.Listening = true
		s.Device = c.source.Device()
	})
	defer c.updateSnapshot(func(s *Snapshot) { s.Listening = false })

	settings := c.currentSettings()
	ext := extraction.New(extraction.Options{
		Threshold:    settings.Threshold,
		SilenceDelay: settings.SilenceDelay,
		Timer:        settings.Timer,
		Guard:        settings.Guard,
		Clock:        loopScheduler{base: c.clock, deferred: c.deferred, done: c.done},
		OnTick:       c.onTick,
		OnFinish:     func(f extraction.Finish) { c.finished = &f },
		OnStatus:     c.onStatus,
	})

	ticker := time.NewTicker(settings.TickInterval)
	defer ticker.Stop()

	levels := c.source.Levels()

	finish := func() Result {
		stats, err := c.source.Stop()
		if err != nil && result.Err == nil && !IsCaptureUnavailable(err) {
			result.Err = err
		}
		result.Capture = stats
		result.FinishedAt = c.clock.Now()
		if c.resetTimer != nil {
			c.resetTimer.Stop()
		}
		return result
	}
	cancelled := func() Result {
		c.indicator.CueCancel(context.Background())
		result.Err = ctx.Err()
		return finish()
	}

	for {
		wasRunning := ext.IsRunning()

		select {
		case <-ctx.Done():
			return cancelled()

		case level, ok := <-levels:
			if !ok {
				// Capture shuts down with ctx, so a closed stream may just be cancellation.
				if ctx.Err() != nil {
					return cancelled()
				}
				c.indicator.ShowError(context.Background(), ErrCaptureEnded.Error())
				result.Err = ErrCaptureEnded
				return finish()
			}
			ext.Observe(level.RMS, level.At)
			c.updateSnapshot(func(s *Snapshot) { s.Level = level.RMS })
			c.sink.OnLevel(level)

		case <-ticker.C:
			ext.Tick(c.clock.Now())

		case f := <-c.deferred:
			f()

		case next := <-c.settingsCh:
			c.applySettings(ext, next)
			ticker.Reset(c.currentSettings().TickInterval)

		case a := <-c.actions:
			now := c.clock.Now()
			switch a {
			case actionStart:
				ext.Start(now)
			case actionStop:
				ext.Stop(now)
			case actionToggle:
				ext.Toggle(now)
			case actionReset:
				c.cancelReset()
				ext.Reset()
				c.indicator.ShowListening(ctx)
			case actionCancel:
				c.indicator.CueCancel(context.Background())
				result.Cancelled = true
				return finish()
			default:
				c.logWarn("ignoring unknown session action", "action", a.String())
			}
		}

		if !wasRunning && ext.IsRunning() {
			c.onStarted(ctx)
		}
		c.updateSnapshot(func(s *Snapshot) { s.State = ext.Snapshot(c.clock.Now()).State })

		if c.finished == nil {
			continue
		}
		f := *c.finished
		c.finished = nil

		sh := c.recordShot(ctx, f)
		result.Shots = append(result.Shots, sh)

		if !c.currentSettings().Continuous {
			return finish()
		}
		c.scheduleReset(ext)
	}
}

// Handle serves IPC commands for the active session.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	snap := c.Snapshot()
	switch req.Command {
	case ipc.CommandStatus:
		return c.statusResponse(snap)
	case ipc.CommandStart:
		if snap.State == fsm.StateRunning {
			return ipc.Response{OK: false, State: string(snap.State), Error: "timer already running"}
		}
		return c.enqueue(snap, actionStart)
	case ipc.CommandStop:
		if snap.State != fsm.StateRunning {
			return ipc.Response{OK: false, State: string(snap.State), Error: fmt.Sprintf("cannot stop from state %s", snap.State)}
		}
		return c.enqueue(snap, actionStop)
	case ipc.CommandToggle:
		return c.enqueue(snap, actionToggle)
	case ipc.CommandReset:
		return c.enqueue(snap, actionReset)
	case ipc.CommandCancel:
		return c.enqueue(snap, actionCancel)
	default:
		return ipc.Response{OK: false, State: string(snap.State), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) statusResponse(snap Snapshot) ipc.Response {
	resp := ipc.Response{
		OK:        true,
		State:     string(snap.State),
		Message:   "status",
		Elapsed:   snap.Formatted,
		ElapsedMS: snap.Elapsed.Milliseconds(),
		Status:    string(snap.LastStatus),
		Listening: snap.Listening,
	}
	if snap.Last != nil {
		resp.LastShot = &ipc.ShotSummary{
			ID:         snap.Last.ID,
			DurationMS: snap.Last.Duration.Milliseconds(),
			Verdict:    string(snap.Last.Verdict),
			Trigger:    string(snap.Last.Trigger),
			FinishedAt: snap.Last.FinishedAt,
		}
	}
	return resp
}

// enqueue hands an action to the loop without blocking the IPC handler.
func (c *Controller) enqueue(snap Snapshot, a action) ipc.Response {
	if !snap.Listening {
		return ipc.Response{OK: false, State: string(snap.State), Error: "no active listening session"}
	}
	select {
	case c.actions <- a:
		return ipc.Response{OK: true, State: string(snap.State), Message: a.String() + " requested"}
	default:
		return ipc.Response{OK: false, State: string(snap.State), Error: "session busy; try again"}
	}
}

func (c *Controller) onTick(formatted string, elapsed time.Duration) {
	c.updateSnapshot(func(s *Snapshot) {
		s.Formatted = formatted
		s.Elapsed = elapsed
	})
	c.sink.OnTick(formatted, elapsed)
}

func (c *Controller) onStatus(status extraction.Status) {
	c.updateSnapshot(func(s *Snapshot) { s.LastStatus = status })
	c.sink.OnStatus(status)
	c.logDebug("extraction status", "status", string(status))

	switch status {
	case extraction.StatusProvisionalSilence:
		c.provisional = true
		c.indicator.ShowPreInfusion(context.Background())
	case extraction.StatusNoiseStarted:
		if c.provisional {
			c.provisional = false
			c.indicator.ShowExtracting(context.Background())
		}
	case extraction.StatusSilenceCommitted:
		c.provisional = false
	}
}

func (c *Controller) onStarted(ctx context.Context) {
	c.cancelReset()
	c.provisional = false
	c.indicator.CueStart(ctx)
	c.indicator.ShowExtracting(ctx)
	c.logInfo("extraction started")
}

// recordShot turns a finish event into a classified, persisted shot.
func (c *Controller) recordShot(ctx context.Context, f extraction.Finish) shot.Shot {
	settings := c.currentSettings()
	sh := shot.Shot{
		ID:         uuid.NewString(),
		StartedAt:  f.StartedAt,
		FinishedAt: f.StoppedAt,
		Duration:   f.Duration,
		Target:     settings.Target,
		Verdict:    shot.Classify(f.Duration, settings.Target, settings.Tolerance),
		Trigger:    f.Trigger,
		Device:     c.source.Device(),
	}

	c.provisional = false
	c.indicator.CueFinish(context.Background())
	c.indicator.ShowResult(context.Background(), sh)

	if err := c.recorder.Record(ctx, sh); err != nil {
		c.logWarn("record shot failed", "error", err.Error(), "shot_id", sh.ID)
	}

	c.updateSnapshot(func(s *Snapshot) {
		last := sh
		s.Last = &last
	})
	c.sink.OnShot(sh)
	c.logInfo("shot finished",
		"shot_id", sh.ID,
		"duration_ms", sh.Duration.Milliseconds(),
		"verdict", string(sh.Verdict),
		"trigger", string(sh.Trigger),
	)
	return sh
}

// scheduleReset returns a finished timer to idle after ResetAfter in continuous mode.
func (c *Controller) scheduleReset(ext *extraction.Controller) {
	c.cancelReset()
	after := c.currentSettings().ResetAfter
	sched := loopScheduler{base: c.clock, deferred: c.deferred, done: c.done}

	var handle clock.Timer
	handle = sched.AfterFunc(after, func() {
		if c.resetTimer != handle {
			return
		}
		c.resetTimer = nil
		if ext.Snapshot(c.clock.Now()).State != fsm.StateFinished {
			return
		}
		ext.Reset()
		c.indicator.ShowListening(context.Background())
	})
	c.resetTimer = handle
}

func (c *Controller) cancelReset() {
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
}

func (c *Controller) applySettings(ext *extraction.Controller, next Settings) {
	c.mu.Lock()
	if next.TickInterval <= 0 {
		next.TickInterval = c.settings.TickInterval
	}
	c.settings = next
	c.mu.Unlock()

	startOffset := next.Timer.StartOffset
	endOffset := next.Timer.EndOffset
	clampNegative := next.Timer.ClampNegative
	ext.UpdateGate(next.Threshold, next.SilenceDelay)
	ext.UpdateTimer(timer.SettingsUpdate{
		StartOffset:   &startOffset,
		EndOffset:     &endOffset,
		ClampNegative: &clampNegative,
	})
	ext.UpdateGuard(next.Guard)
	c.logInfo("settings applied", "threshold", next.Threshold, "silence_delay_ms", next.SilenceDelay.Milliseconds())
}

func (c *Controller) currentSettings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

func (c *Controller) updateSnapshot(mutate func(*Snapshot)) {
	c.mu.Lock()
	mutate(&c.snapshot)
	snap := c.snapshot
	c.mu.Unlock()
	c.sink.OnSnapshot(snap)
}

func (c *Controller) logInfo(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Controller) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Controller) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
