// Package indicator handles visual state notifications and audio cue playback.
package indicator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/shotclock/internal/config"
	"github.com/rbright/shotclock/internal/hypr"
	"github.com/rbright/shotclock/internal/shot"
)

const (
	stickyTimeoutMS = 300000
	resultTimeoutMS = 10000

	colorListening   = "rgb(89b4fa)"
	colorExtracting  = "rgb(fab387)"
	colorPreInfusion = "rgb(f9e2af)"
	colorOnTarget    = "rgb(a6e3a1)"
	colorOffTarget   = "rgb(eba0ac)"
	colorError       = "rgb(f38ba8)"
)

// Notifier routes session state to Hyprland or freedesktop notifications
// and plays synthesized cues through PulseAudio.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	mu                    sync.Mutex
	desktopNotificationID uint32
	soundMu               sync.Mutex
	play                  func(cueKind) error
}

// New creates an indicator from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: messagesFor(cfg.Locale),
		play:     emitCue,
	}
}

func (n *Notifier) ShowListening(ctx context.Context) {
	n.show(ctx, hypr.IconInfo, stickyTimeoutMS, colorListening, n.messages.listening)
}

func (n *Notifier) ShowExtracting(ctx context.Context) {
	n.show(ctx, hypr.IconInfo, stickyTimeoutMS, colorExtracting, n.messages.extracting)
}

func (n *Notifier) ShowPreInfusion(ctx context.Context) {
	n.show(ctx, hypr.IconHint, stickyTimeoutMS, colorPreInfusion, n.messages.preInfusion)
}

// ShowResult displays the shot time and its verdict.
func (n *Notifier) ShowResult(ctx context.Context, s shot.Shot) {
	icon, color := hypr.IconOK, colorOnTarget
	if s.Verdict != shot.VerdictOnTarget {
		icon, color = hypr.IconWarning, colorOffTarget
	}
	text := fmt.Sprintf("%ss %s", shot.Format(s.Duration), n.messages.verdict(s.Verdict))
	n.show(ctx, icon, resultTimeoutMS, color, text)
}

// ShowError displays an error-state indicator message.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	if text == "" {
		text = n.messages.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	n.show(ctx, hypr.IconError, timeout, colorError, text)
}

func (n *Notifier) CueStart(context.Context)  { n.playCue(cueStart) }
func (n *Notifier) CueFinish(context.Context) { n.playCue(cueFinish) }
func (n *Notifier) CueCancel(context.Context) { n.playCue(cueCancel) }

// Hide dismisses the active indicator surface.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

func (n *Notifier) show(ctx context.Context, icon hypr.Icon, timeoutMS int, color string, text string) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hypr.Notice{Icon: icon, TimeoutMS: timeoutMS, Color: color, Text: text})
	})
}

func (n *Notifier) desktop() bool {
	return strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop")
}

func (n *Notifier) notify(ctx context.Context, notice hypr.Notice) error {
	if n.desktop() {
		return n.notifyDesktop(ctx, notice)
	}
	return hypr.Notify(ctx, notice)
}

func (n *Notifier) dismiss(ctx context.Context) error {
	if n.desktop() {
		return n.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop replaces the previous desktop notification in place.
func (n *Notifier) notifyDesktop(ctx context.Context, notice hypr.Notice) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "shotclock-indicator"
	}

	id, err := desktopNotify(ctx, noticeFor(appName, replaceID, notice))
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run bounds each dispatch so a hung notifier cannot stall the session loop.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback off the caller's goroutine.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.play(kind); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
