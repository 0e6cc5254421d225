// Package doctor runs readiness diagnostics for config, tools, audio, and storage.
package doctor

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/rbright/shotclock/internal/audio"
	"github.com/rbright/shotclock/internal/config"
	"github.com/rbright/shotclock/internal/history"
	"github.com/rbright/shotclock/internal/hypr"
	"github.com/rbright/shotclock/internal/shot"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment, config, and runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{{
		Name:    "config",
		Pass:    true,
		Message: describeConfig(loaded),
	}}

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "session socket directory available", "XDG_RUNTIME_DIR is empty; start/stop/status cannot reach a session"))

	if cfg.Indicator.Enable {
		checks = append(checks, checkIndicator(ctx, cfg.Indicator)...)
	}
	if cfg.Output.Clipboard {
		checks = append(checks, checkClipboard(cfg.Clipboard))
	}
	if len(cfg.FinishCmd.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.FinishCmd.Argv, "finish_cmd"))
	}

	checks = append(checks, checkAudioSelection(ctx, cfg))

	if cfg.History.Enable {
		checks = append(checks, checkHistory(ctx, cfg.History))
	}
	if cfg.StatusRPC.Enable {
		checks = append(checks, checkStatusAddress(cfg.StatusRPC.Address))
	}

	return Report{Checks: checks}
}

func describeConfig(loaded config.Loaded) string {
	if !loaded.Exists {
		return fmt.Sprintf("%q not found; using defaults", loaded.Path)
	}
	return fmt.Sprintf("loaded %q (%s, %d warnings)", loaded.Path, loaded.Format, len(loaded.Warnings))
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	if predicate(os.Getenv(name)) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

func checkClipboard(cmd config.CommandConfig) Check {
	if len(cmd.Argv) > 0 {
		return checkCommand(cmd.Argv, "clipboard_cmd")
	}
	if clipboard.Unsupported {
		return Check{Name: "clipboard", Pass: false, Message: "clipboard_cmd is empty and no system clipboard tool (wl-copy, xclip, xsel) was found"}
	}
	return Check{Name: "clipboard", Pass: true, Message: "clipboard_cmd is empty; using the system clipboard"}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkIndicator(ctx context.Context, cfg config.IndicatorConfig) []Check {
	if strings.EqualFold(strings.TrimSpace(cfg.Backend), "desktop") {
		return []Check{checkBinary("busctl", "desktop notifications")}
	}

	checks := []Check{checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty")}

	versionCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	version, err := hypr.Version(versionCtx)
	if err != nil {
		checks = append(checks, Check{Name: "hyprctl", Pass: false, Message: err.Error()})
	} else {
		checks = append(checks, Check{Name: "hyprctl", Pass: true, Message: version})
	}
	return checks
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, audio.Backend(cfg.Audio.Backend), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("%s selected %q", cfg.Audio.Backend, selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func checkHistory(ctx context.Context, cfg config.HistoryConfig) Check {
	path := cfg.Path
	if strings.TrimSpace(path) == "" {
		resolved, err := history.DefaultPath()
		if err != nil {
			return Check{Name: "history", Pass: false, Message: err.Error()}
		}
		path = resolved
	}

	store, err := history.Open(path)
	if err != nil {
		return Check{Name: "history", Pass: false, Message: err.Error()}
	}
	defer store.Close()

	summary, err := store.Summarize(ctx)
	if err != nil {
		return Check{Name: "history", Pass: false, Message: err.Error()}
	}
	return Check{
		Name:    "history",
		Pass:    true,
		Message: fmt.Sprintf("%s: %d shots, %d on target, average %ss", path, summary.Count, summary.OnTarget, shot.Format(summary.Average)),
	}
}

func checkStatusAddress(address string) Check {
	if _, _, err := net.SplitHostPort(strings.TrimSpace(address)); err != nil {
		return Check{Name: "status_rpc", Pass: false, Message: fmt.Sprintf("invalid address %q: %v", address, err)}
	}
	return Check{Name: "status_rpc", Pass: true, Message: fmt.Sprintf("will listen on %s", address)}
}
