// Package app dispatches parsed CLI commands to sessions, IPC, and diagnostics.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rbright/shotclock/internal/audio"
	"github.com/rbright/shotclock/internal/cli"
	"github.com/rbright/shotclock/internal/config"
	"github.com/rbright/shotclock/internal/doctor"
	"github.com/rbright/shotclock/internal/ipc"
	"github.com/rbright/shotclock/internal/logging"
	"github.com/rbright/shotclock/internal/shot"
	"github.com/rbright/shotclock/internal/version"
)

const binaryName = "shotclock"

const forwardTimeout = 220 * time.Millisecond

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		if !cfgLoaded.Exists {
			logger.Debug("config warning", "message", w.Message)
			continue
		}
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx, cfgLoaded.Config)
	case cli.CommandStatus:
		return r.commandStatus(ctx, parsed.JSON)
	case cli.CommandStart, cli.CommandStop, cli.CommandToggle, cli.CommandReset, cli.CommandCancel:
		return r.forwardOrFail(ctx, string(parsed.Command))
	case cli.CommandListen:
		return r.commandListen(ctx, cfgLoaded, parsed, logger)
	case cli.CommandHistory:
		return r.commandHistory(ctx, cfgLoaded.Config, parsed.Limit, parsed.JSON)
	case cli.CommandWatch:
		return r.commandWatch(ctx, cfgLoaded.Config, parsed.JSON)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context, cfg config.Config) int {
	devices, err := audio.ListDevices(ctx, audio.Backend(cfg.Audio.Backend))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context, asJSON bool) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return r.printStatus(ipc.Response{OK: true, State: "idle"}, asJSON)
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if !handled {
		return r.printStatus(ipc.Response{OK: true, State: "idle"}, asJSON)
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.State == "" {
		resp.State = "idle"
	}
	return r.printStatus(resp, asJSON)
}

func (r Runner) printStatus(resp ipc.Response, asJSON bool) int {
	if asJSON {
		encoded, err := json.Marshal(resp)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: encode status: %v\n", err)
			return 1
		}
		fmt.Fprintln(r.Stdout, string(encoded))
		return 0
	}

	line := resp.State
	if resp.Listening && resp.Elapsed != "" {
		line = fmt.Sprintf("%s %ss", line, resp.Elapsed)
	}
	fmt.Fprintln(r.Stdout, line)
	if resp.LastShot != nil {
		last := resp.LastShot
		fmt.Fprintf(r.Stdout, "last: %ss %s (%s)\n",
			shot.Format(time.Duration(last.DurationMS)*time.Millisecond),
			last.Verdict,
			last.Trigger,
		)
	}
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: %v\n", ipc.ErrNoActiveSession)
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// tryForward reports handled=false when no session owns the socket.
func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Call(ctx, socketPath, ipc.Request{Command: command}, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if errors.Is(err, ipc.ErrNoActiveSession) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}
