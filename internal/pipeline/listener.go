// Package pipeline turns a live capture stream into conditioned RMS levels.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbright/shotclock/internal/audio"
	"github.com/rbright/shotclock/internal/clock"
	"github.com/rbright/shotclock/internal/config"
	"github.com/rbright/shotclock/internal/dsp"
	"github.com/rbright/shotclock/internal/session"
)

// Listener owns one capture -> low-pass -> RMS pipeline instance.
type Listener struct {
	cfg    config.Config
	logger *slog.Logger
	clock  clock.Clock

	mu      sync.Mutex
	started bool

	selection audio.Selection
	capture   *audio.Capture
	levels    chan session.Level
	quit      chan struct{}
	done      chan struct{}
	chunks    int
}

// NewListener constructs a listener from runtime config.
func NewListener(cfg config.Config, logger *slog.Logger, clk clock.Clock) *Listener {
	if clk == nil {
		clk = clock.Real()
	}
	return &Listener{cfg: cfg, logger: logger, clock: clk}
}

// Start resolves device selection and starts capture. Failures wrap
// session.ErrCaptureUnavailable.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return fmt.Errorf("listener already started")
	}

	backend := audio.Backend(l.cfg.Audio.Backend)
	selection, err := audio.SelectDevice(ctx, backend, l.cfg.Audio.Input, l.cfg.Audio.Fallback)
	if err != nil {
		return fmt.Errorf("%w: %w", session.ErrCaptureUnavailable, err)
	}
	l.selection = selection
	if selection.Warning != "" {
		l.logWarn(selection.Warning)
	}

	capture, err := audio.StartCapture(ctx, backend, selection.Device, audio.CaptureOptions{
		KeepRaw: l.cfg.Debug.EnableAudioDump,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", session.ErrCaptureUnavailable, err)
	}
	l.capture = capture
	l.levels = make(chan session.Level, 64)
	l.quit = make(chan struct{})
	l.done = make(chan struct{})

	meter := dsp.NewMeter(l.cfg.Gate.LowpassHz, audio.SampleRate)
	go l.meterLoop(capture.Chunks(), meter, l.levels, l.quit, l.done)

	l.started = true
	return nil
}

// Levels delivers one reading per 20ms chunk and closes when capture stops.
func (l *Listener) Levels() <-chan session.Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.levels
}

// Stop halts capture, drains the meter loop, and writes the debug dump if enabled.
func (l *Listener) Stop() (session.CaptureStats, error) {
	l.mu.Lock()
	capture := l.capture
	quit := l.quit
	done := l.done
	selection := l.selection
	l.capture = nil
	l.mu.Unlock()

	if capture == nil {
		return session.CaptureStats{}, session.ErrCaptureUnavailable
	}

	close(quit)
	_ = capture.Stop()
	<-done

	l.mu.Lock()
	chunks := l.chunks
	l.mu.Unlock()

	stats := session.CaptureStats{
		Device:        describeDevice(selection.Device),
		Backend:       string(capture.Backend()),
		BytesCaptured: capture.BytesCaptured(),
		Chunks:        chunks,
	}

	if l.cfg.Debug.EnableAudioDump {
		path, err := writeDebugAudio(capture.RawPCM())
		if err != nil {
			l.logWarn(fmt.Sprintf("unable to write debug audio dump: %v", err))
		} else if path != "" {
			stats.DebugAudioPath = path
		}
	}
	return stats, nil
}

// Device describes the selected capture source.
func (l *Listener) Device() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return describeDevice(l.selection.Device)
}

// meterLoop converts chunks to levels until the chunk stream closes. After
// quit closes, levels nobody will read are dropped so capture can drain.
func (l *Listener) meterLoop(chunks <-chan []byte, meter *dsp.Meter, levels chan<- session.Level, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer close(levels)

	for chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		level := session.Level{RMS: meter.Level(chunk), At: l.clock.Now()}
		select {
		case levels <- level:
		case <-quit:
		}

		l.mu.Lock()
		l.chunks++
		l.mu.Unlock()
	}
}

// describeDevice formats device metadata for logs and results.
func describeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

func (l *Listener) logWarn(message string) {
	if l.logger == nil {
		return
	}
	l.logger.Warn(message)
}
