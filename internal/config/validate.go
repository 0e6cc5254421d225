package config

import (
	"fmt"
	"math"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	backend := strings.ToLower(strings.TrimSpace(cfg.Audio.Backend))
	if backend != "pulse" && backend != "miniaudio" {
		return nil, fmt.Errorf("audio.backend must be one of: pulse, miniaudio")
	}

	if math.IsNaN(cfg.Gate.Threshold) || cfg.Gate.Threshold <= 0 || cfg.Gate.Threshold > 1 {
		return nil, fmt.Errorf("gate.threshold must be in (0, 1]")
	}
	if cfg.Gate.SilenceDelayMS < 0 {
		return nil, fmt.Errorf("gate.silence_delay_ms must be >= 0")
	}
	if math.IsNaN(cfg.Gate.LowpassHz) || cfg.Gate.LowpassHz <= 0 {
		return nil, fmt.Errorf("gate.lowpass_hz must be > 0")
	}
	if cfg.Gate.LowpassHz >= 8000 {
		warnings = append(warnings, Warning{Message: "gate.lowpass_hz is at or above the 8000 Hz Nyquist limit; filter has no effect"})
	}

	if cfg.Timer.TickMS <= 0 {
		return nil, fmt.Errorf("timer.tick_ms must be > 0")
	}
	if math.Abs(cfg.Timer.StartOffsetSeconds) > 10 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("timer.start_offset_seconds=%.1f is unusually large", cfg.Timer.StartOffsetSeconds)})
	}
	if math.Abs(cfg.Timer.EndOffsetSeconds) > 10 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("timer.end_offset_seconds=%.1f is unusually large", cfg.Timer.EndOffsetSeconds)})
	}

	if cfg.Guard.WindowMS < 0 {
		return nil, fmt.Errorf("guard.window_ms must be >= 0")
	}
	if cfg.Guard.RecheckMS <= 0 {
		return nil, fmt.Errorf("guard.recheck_ms must be > 0")
	}
	if cfg.Guard.ImmediateRetroactiveMS < 0 {
		return nil, fmt.Errorf("guard.immediate_retroactive_ms must be >= 0")
	}
	if cfg.Guard.ImmediateRetroactiveMS > cfg.Gate.SilenceDelayMS {
		warnings = append(warnings, Warning{Message: "guard.immediate_retroactive_ms exceeds gate.silence_delay_ms; stops will be backdated past the silence onset"})
	}

	if cfg.Target.Seconds <= 0 {
		return nil, fmt.Errorf("target.seconds must be > 0")
	}
	if cfg.Target.ToleranceSeconds < 0 {
		return nil, fmt.Errorf("target.tolerance_seconds must be >= 0")
	}

	if cfg.Session.ResetAfterMS < 0 {
		return nil, fmt.Errorf("session.reset_after_ms must be >= 0")
	}

	indicatorBackend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if indicatorBackend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if indicatorBackend != "hypr" && indicatorBackend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if indicatorBackend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if cfg.FinishCmd.Raw != "" && len(cfg.FinishCmd.Argv) == 0 {
		warnings = append(warnings, Warning{Message: "finish_cmd is set but has no command; ignoring"})
	}

	if cfg.StatusRPC.Enable && strings.TrimSpace(cfg.StatusRPC.Address) == "" {
		return nil, fmt.Errorf("status_rpc.address must not be empty when status_rpc.enable=true")
	}

	return warnings, nil
}
