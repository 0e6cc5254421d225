package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"

	return Config{
		Audio: AudioConfig{
			Backend:  "pulse",
			Input:    "default",
			Fallback: "default",
		},
		Gate: GateConfig{
			Threshold:      0.03,
			SilenceDelayMS: 1500,
			LowpassHz:      600,
		},
		Timer: TimerConfig{
			TickMS: 50,
		},
		Guard: GuardConfig{
			WindowMS:               6000,
			RecheckMS:              5000,
			ImmediateRetroactiveMS: 500,
		},
		Target: TargetConfig{
			Seconds:          25,
			ToleranceSeconds: 3,
		},
		Session: SessionConfig{
			ResetAfterMS: 8000,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "shotclock-indicator",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Clipboard: CommandConfig{Raw: clipboard, Argv: mustSplitCommand(clipboard)},
		History:   HistoryConfig{Enable: true},
		StatusRPC: StatusRPCConfig{Address: "127.0.0.1:50077"},
		Debug:     DebugConfig{},
	}
}
