package session

import (
	"context"
	"errors"
	"time"

	"github.com/rbright/shotclock/internal/extraction"
	"github.com/rbright/shotclock/internal/shot"
	"github.com/rbright/shotclock/internal/timer"
)

var (
	// ErrCaptureUnavailable marks failures to acquire the microphone.
	ErrCaptureUnavailable = errors.New("microphone capture unavailable")
	// ErrCaptureEnded indicates the level stream closed while the session was still listening.
	ErrCaptureEnded = errors.New("audio capture ended unexpectedly")
)

// Level is one conditioned RMS reading and the instant it was taken.
type Level struct {
	RMS float64
	At  time.Time
}

// CaptureStats summarizes one capture run for logs and results.
type CaptureStats struct {
	Device         string
	Backend        string
	BytesCaptured  int64
	Chunks         int
	DebugAudioPath string
}

// Source abstracts the capture pipeline feeding the session.
type Source interface {
	Start(context.Context) error
	Levels() <-chan Level
	Stop() (CaptureStats, error)
	Device() string
}

// Recorder persists finished shots.
type Recorder interface {
	Record(context.Context, shot.Shot) error
}

// RecordFunc adapts a function to the Recorder interface.
type RecordFunc func(context.Context, shot.Shot) error

func (f RecordFunc) Record(ctx context.Context, s shot.Shot) error {
	return f(ctx, s)
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowListening(context.Context)
	ShowExtracting(context.Context)
	ShowPreInfusion(context.Context)
	ShowResult(context.Context, shot.Shot)
	ShowError(context.Context, string)
	CueStart(context.Context)
	CueFinish(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowListening(context.Context)         {}
func (noopIndicator) ShowExtracting(context.Context)        {}
func (noopIndicator) ShowPreInfusion(context.Context)       {}
func (noopIndicator) ShowResult(context.Context, shot.Shot) {}
func (noopIndicator) ShowError(context.Context, string)     {}
func (noopIndicator) CueStart(context.Context)              {}
func (noopIndicator) CueFinish(context.Context)             {}
func (noopIndicator) CueCancel(context.Context)             {}
func (noopIndicator) Hide(context.Context)                  {}

// Sink observes live session events. Calls happen on the session loop and must not block.
type Sink interface {
	OnLevel(Level)
	OnTick(formatted string, elapsed time.Duration)
	OnStatus(extraction.Status)
	OnShot(shot.Shot)
	OnSnapshot(Snapshot)
}

type multiSink []Sink

func (m multiSink) OnLevel(l Level) {
	for _, s := range m {
		s.OnLevel(l)
	}
}

func (m multiSink) OnTick(formatted string, elapsed time.Duration) {
	for _, s := range m {
		s.OnTick(formatted, elapsed)
	}
}

func (m multiSink) OnStatus(status extraction.Status) {
	for _, s := range m {
		s.OnStatus(status)
	}
}

func (m multiSink) OnShot(sh shot.Shot) {
	for _, s := range m {
		s.OnShot(sh)
	}
}

func (m multiSink) OnSnapshot(snap Snapshot) {
	for _, s := range m {
		s.OnSnapshot(snap)
	}
}

// Settings is everything the loop needs to build and tune its extraction controller.
type Settings struct {
	Threshold    float64
	SilenceDelay time.Duration
	Timer        timer.Settings
	Guard        extraction.Guard
	Target       time.Duration
	Tolerance    time.Duration
	TickInterval time.Duration
	Continuous   bool
	ResetAfter   time.Duration
}

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	Shots      []shot.Shot
	Cancelled  bool
	Err        error
	Capture    CaptureStats
	StartedAt  time.Time
	FinishedAt time.Time
}

// Last returns the most recent finished shot.
func (r Result) Last() (shot.Shot, bool) {
	if len(r.Shots) == 0 {
		return shot.Shot{}, false
	}
	return r.Shots[len(r.Shots)-1], true
}

// IsCaptureUnavailable reports whether an error represents a microphone acquisition failure.
func IsCaptureUnavailable(err error) bool {
	return errors.Is(err, ErrCaptureUnavailable)
}
