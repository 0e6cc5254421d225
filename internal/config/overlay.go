package config

import (
	"fmt"
	"strings"
)

// fileConfig is the sparse on-disk shape shared by the JSONC and YAML parsers.
// Nil fields keep their base value.
type fileConfig struct {
	Audio     *fileAudio     `json:"audio" yaml:"audio"`
	Gate      *fileGate      `json:"gate" yaml:"gate"`
	Timer     *fileTimer     `json:"timer" yaml:"timer"`
	Guard     *fileGuard     `json:"guard" yaml:"guard"`
	Target    *fileTarget    `json:"target" yaml:"target"`
	Session   *fileSession   `json:"session" yaml:"session"`
	Indicator *fileIndicator `json:"indicator" yaml:"indicator"`
	Output    *fileOutput    `json:"output" yaml:"output"`
	History   *fileHistory   `json:"history" yaml:"history"`
	StatusRPC *fileStatusRPC `json:"status_rpc" yaml:"status_rpc"`
	Debug     *fileDebug     `json:"debug" yaml:"debug"`

	ClipboardCmd *string `json:"clipboard_cmd" yaml:"clipboard_cmd"`
	FinishCmd    *string `json:"finish_cmd" yaml:"finish_cmd"`
}

type fileAudio struct {
	Backend  *string `json:"backend" yaml:"backend"`
	Input    *string `json:"input" yaml:"input"`
	Fallback *string `json:"fallback" yaml:"fallback"`
}

type fileGate struct {
	Threshold      *float64 `json:"threshold" yaml:"threshold"`
	SilenceDelayMS *int     `json:"silence_delay_ms" yaml:"silence_delay_ms"`
	LowpassHz      *float64 `json:"lowpass_hz" yaml:"lowpass_hz"`
}

type fileTimer struct {
	StartOffsetSeconds *float64 `json:"start_offset_seconds" yaml:"start_offset_seconds"`
	EndOffsetSeconds   *float64 `json:"end_offset_seconds" yaml:"end_offset_seconds"`
	TickMS             *int     `json:"tick_ms" yaml:"tick_ms"`
	ClampNegative      *bool    `json:"clamp_negative" yaml:"clamp_negative"`
}

type fileGuard struct {
	WindowMS               *int  `json:"window_ms" yaml:"window_ms"`
	RecheckMS              *int  `json:"recheck_ms" yaml:"recheck_ms"`
	ImmediateRetroactiveMS *int  `json:"immediate_retroactive_ms" yaml:"immediate_retroactive_ms"`
	BackdateRecheck        *bool `json:"backdate_recheck" yaml:"backdate_recheck"`
}

type fileTarget struct {
	Seconds          *float64 `json:"seconds" yaml:"seconds"`
	ToleranceSeconds *float64 `json:"tolerance_seconds" yaml:"tolerance_seconds"`
}

type fileSession struct {
	Continuous   *bool `json:"continuous" yaml:"continuous"`
	ResetAfterMS *int  `json:"reset_after_ms" yaml:"reset_after_ms"`
}

type fileIndicator struct {
	Enable         *bool   `json:"enable" yaml:"enable"`
	Backend        *string `json:"backend" yaml:"backend"`
	DesktopAppName *string `json:"desktop_app_name" yaml:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable" yaml:"sound_enable"`
	Locale         *string `json:"locale" yaml:"locale"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms" yaml:"error_timeout_ms"`
}

type fileOutput struct {
	Clipboard *bool `json:"clipboard" yaml:"clipboard"`
}

type fileHistory struct {
	Enable *bool   `json:"enable" yaml:"enable"`
	Path   *string `json:"path" yaml:"path"`
}

type fileStatusRPC struct {
	Enable  *bool   `json:"enable" yaml:"enable"`
	Address *string `json:"address" yaml:"address"`
}

type fileDebug struct {
	AudioDump *bool `json:"audio_dump" yaml:"audio_dump"`
}

func (payload fileConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Audio != nil {
		if payload.Audio.Backend != nil {
			cfg.Audio.Backend = strings.ToLower(strings.TrimSpace(*payload.Audio.Backend))
		}
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if payload.Gate != nil {
		if payload.Gate.Threshold != nil {
			cfg.Gate.Threshold = *payload.Gate.Threshold
		}
		if payload.Gate.SilenceDelayMS != nil {
			cfg.Gate.SilenceDelayMS = *payload.Gate.SilenceDelayMS
		}
		if payload.Gate.LowpassHz != nil {
			cfg.Gate.LowpassHz = *payload.Gate.LowpassHz
		}
	}

	if payload.Timer != nil {
		if payload.Timer.StartOffsetSeconds != nil {
			cfg.Timer.StartOffsetSeconds = *payload.Timer.StartOffsetSeconds
		}
		if payload.Timer.EndOffsetSeconds != nil {
			cfg.Timer.EndOffsetSeconds = *payload.Timer.EndOffsetSeconds
		}
		if payload.Timer.TickMS != nil {
			cfg.Timer.TickMS = *payload.Timer.TickMS
		}
		if payload.Timer.ClampNegative != nil {
			cfg.Timer.ClampNegative = *payload.Timer.ClampNegative
		}
	}

	if payload.Guard != nil {
		if payload.Guard.WindowMS != nil {
			cfg.Guard.WindowMS = *payload.Guard.WindowMS
		}
		if payload.Guard.RecheckMS != nil {
			cfg.Guard.RecheckMS = *payload.Guard.RecheckMS
		}
		if payload.Guard.ImmediateRetroactiveMS != nil {
			cfg.Guard.ImmediateRetroactiveMS = *payload.Guard.ImmediateRetroactiveMS
		}
		if payload.Guard.BackdateRecheck != nil {
			cfg.Guard.BackdateRecheck = *payload.Guard.BackdateRecheck
		}
	}

	if payload.Target != nil {
		if payload.Target.Seconds != nil {
			cfg.Target.Seconds = *payload.Target.Seconds
		}
		if payload.Target.ToleranceSeconds != nil {
			cfg.Target.ToleranceSeconds = *payload.Target.ToleranceSeconds
		}
	}

	if payload.Session != nil {
		if payload.Session.Continuous != nil {
			cfg.Session.Continuous = *payload.Session.Continuous
		}
		if payload.Session.ResetAfterMS != nil {
			cfg.Session.ResetAfterMS = *payload.Session.ResetAfterMS
		}
	}

	if payload.Indicator != nil {
		if payload.Indicator.Enable != nil {
			cfg.Indicator.Enable = *payload.Indicator.Enable
		}
		if payload.Indicator.Backend != nil {
			cfg.Indicator.Backend = strings.TrimSpace(*payload.Indicator.Backend)
		}
		if payload.Indicator.DesktopAppName != nil {
			cfg.Indicator.DesktopAppName = strings.TrimSpace(*payload.Indicator.DesktopAppName)
		}
		if payload.Indicator.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *payload.Indicator.SoundEnable
		}
		if payload.Indicator.Locale != nil {
			cfg.Indicator.Locale = strings.TrimSpace(*payload.Indicator.Locale)
		}
		if payload.Indicator.ErrorTimeoutMS != nil {
			cfg.Indicator.ErrorTimeoutMS = *payload.Indicator.ErrorTimeoutMS
		}
	}

	if payload.Output != nil && payload.Output.Clipboard != nil {
		cfg.Output.Clipboard = *payload.Output.Clipboard
	}

	if payload.ClipboardCmd != nil {
		raw := *payload.ClipboardCmd
		argv, err := splitCommand(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid clipboard_cmd: %w", err)
		}
		cfg.Clipboard = CommandConfig{Raw: raw, Argv: argv}
	}

	if payload.FinishCmd != nil {
		raw := *payload.FinishCmd
		argv, err := splitCommand(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid finish_cmd: %w", err)
		}
		cfg.FinishCmd = CommandConfig{Raw: raw, Argv: argv}
	}

	if payload.History != nil {
		if payload.History.Enable != nil {
			cfg.History.Enable = *payload.History.Enable
		}
		if payload.History.Path != nil {
			cfg.History.Path = strings.TrimSpace(*payload.History.Path)
		}
	}

	if payload.StatusRPC != nil {
		if payload.StatusRPC.Enable != nil {
			cfg.StatusRPC.Enable = *payload.StatusRPC.Enable
		}
		if payload.StatusRPC.Address != nil {
			cfg.StatusRPC.Address = strings.TrimSpace(*payload.StatusRPC.Address)
		}
	}

	if payload.Debug != nil && payload.Debug.AudioDump != nil {
		cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
	}

	return warnings, nil
}
