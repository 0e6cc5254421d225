package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/rbright/shotclock/internal/cli"
	"github.com/rbright/shotclock/internal/clock"
	"github.com/rbright/shotclock/internal/config"
	"github.com/rbright/shotclock/internal/extraction"
	"github.com/rbright/shotclock/internal/history"
	"github.com/rbright/shotclock/internal/indicator"
	"github.com/rbright/shotclock/internal/ipc"
	"github.com/rbright/shotclock/internal/output"
	"github.com/rbright/shotclock/internal/pipeline"
	"github.com/rbright/shotclock/internal/session"
	"github.com/rbright/shotclock/internal/shot"
	"github.com/rbright/shotclock/internal/statusrpc"
	"github.com/rbright/shotclock/internal/timer"
	"github.com/rbright/shotclock/internal/tui"
)

// tuiExitGrace bounds how long a closed TUI waits for its cancel to land.
const tuiExitGrace = time.Second

var stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// commandListen owns the session socket and runs one listening session.
func (r Runner) commandListen(ctx context.Context, loaded config.Loaded, parsed cli.Parsed, logger *slog.Logger) int {
	cfg := loaded.Config

	if parsed.TUI && !stdinIsTerminal() {
		fmt.Fprintln(r.Stderr, "error: --tui requires an interactive terminal")
		return 1
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	continuous := parsed.Continuous || cfg.Session.Continuous

	recorder, closeRecorder := buildRecorder(cfg, logger)
	defer closeRecorder()

	var sinks []session.Sink
	var statusServer *statusrpc.Server
	if cfg.StatusRPC.Enable {
		statusServer = statusrpc.NewServer(logger)
		sinks = append(sinks, statusServer)
	}
	var tuiSink *tui.Sink
	if parsed.TUI {
		tuiSink = tui.NewSink()
		sinks = append(sinks, tuiSink)
	}

	controller := session.NewController(session.Options{
		Logger:    logger,
		Source:    pipeline.NewListener(cfg, logger, clock.Real()),
		Recorder:  recorder,
		Indicator: indicator.New(cfg.Indicator, logger),
		Sinks:     sinks,
		Settings:  sessionSettings(cfg, continuous),
	})

	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	var wg sync.WaitGroup
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(bgCtx, listener, controller)
	}()

	if statusServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := statusServer.Listen(bgCtx, cfg.StatusRPC.Address); err != nil {
				logger.Warn("status rpc unavailable", "address", cfg.StatusRPC.Address, "error", err.Error())
			}
		}()
	}

	if loaded.Exists {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := config.Watch(bgCtx, loaded.Path, logger, func(next config.Loaded) {
				controller.ApplySettings(sessionSettings(next.Config, continuous))
			})
			if err != nil {
				logger.Warn("config watch unavailable", "path", loaded.Path, "error", err.Error())
			}
		}()
	}

	var result session.Result
	if tuiSink != nil {
		result = r.runWithTUI(ctx, controller, tuiSink, cfg, logger)
	} else {
		result = controller.Run(ctx)
	}

	bgCancel()
	wg.Wait()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, result)

	for _, sh := range result.Shots {
		fmt.Fprintln(r.Stdout, sh.Summary())
	}
	if result.Cancelled || errors.Is(result.Err, context.Canceled) {
		if len(result.Shots) == 0 {
			fmt.Fprintln(r.Stdout, "cancelled")
		}
		return 0
	}
	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
	return 0
}

func (r Runner) runWithTUI(ctx context.Context, controller *session.Controller, sink *tui.Sink, cfg config.Config, logger *slog.Logger) session.Result {
	program := tui.NewProgram(controller, cfg.Gate.Threshold, cfg.Target.Target(),
		tea.WithContext(ctx),
		tea.WithOutput(r.Stdout),
	)

	forwardCtx, stopForward := context.WithCancel(ctx)
	defer stopForward()
	go sink.Forward(forwardCtx, program)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	resultCh := make(chan session.Result, 1)
	go func() {
		res := controller.Run(runCtx)
		resultCh <- res
		program.Send(tui.SessionEndedMsg{Err: res.Err})
	}()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Warn("tui exited with error", "error", err.Error())
	}

	select {
	case res := <-resultCh:
		return res
	case <-time.After(tuiExitGrace):
		cancelRun()
		return <-resultCh
	}
}

// buildRecorder fans finished shots out to history and the output publisher.
func buildRecorder(cfg config.Config, logger *slog.Logger) (session.Recorder, func()) {
	recorders := []session.Recorder{output.NewPublisher(cfg, logger)}
	closeFn := func() {}

	if cfg.History.Enable {
		store, err := openHistory(cfg.History)
		if err != nil {
			logger.Warn("shot history unavailable", "error", err.Error())
		} else {
			recorders = append(recorders, store)
			closeFn = func() { _ = store.Close() }
		}
	}

	return session.RecordFunc(func(ctx context.Context, sh shot.Shot) error {
		var errs []error
		for _, rec := range recorders {
			if err := rec.Record(ctx, sh); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}), closeFn
}

func openHistory(cfg config.HistoryConfig) (*history.Store, error) {
	path := cfg.Path
	if path == "" {
		resolved, err := history.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	return history.Open(path)
}

// sessionSettings maps validated config onto the session loop's tunables.
func sessionSettings(cfg config.Config, continuous bool) session.Settings {
	return session.Settings{
		Threshold:    cfg.Gate.Threshold,
		SilenceDelay: cfg.Gate.SilenceDelay(),
		Timer: timer.Settings{
			StartOffset:   cfg.Timer.StartOffset(),
			EndOffset:     cfg.Timer.EndOffset(),
			ClampNegative: cfg.Timer.ClampNegative,
		},
		Guard: extraction.Guard{
			Window:               cfg.Guard.Window(),
			RecheckDelay:         cfg.Guard.RecheckDelay(),
			ImmediateRetroactive: cfg.Guard.ImmediateRetroactive(),
			BackdateRecheck:      cfg.Guard.BackdateRecheck,
		},
		Target:       cfg.Target.Target(),
		Tolerance:    cfg.Target.Tolerance(),
		TickInterval: cfg.Timer.TickInterval(),
		Continuous:   continuous,
		ResetAfter:   cfg.Session.ResetAfter(),
	}
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"cancelled", result.Cancelled,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"shots", len(result.Shots),
		"audio_device", result.Capture.Device,
		"audio_backend", result.Capture.Backend,
		"bytes_captured", result.Capture.BytesCaptured,
		"chunks", result.Capture.Chunks,
	}
	if last, ok := result.Last(); ok {
		fields = append(fields,
			"last_shot_ms", last.Duration.Milliseconds(),
			"last_verdict", last.Verdict,
			"last_trigger", last.Trigger,
		)
	}
	if result.Capture.DebugAudioPath != "" {
		fields = append(fields, "debug_audio", result.Capture.DebugAudioPath)
	}

	if result.Err != nil && !errors.Is(result.Err, context.Canceled) {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}
