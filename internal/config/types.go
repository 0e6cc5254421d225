// Package config resolves, parses, validates, and defaults shotclock configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by shotclock.
type Config struct {
	Audio     AudioConfig
	Gate      GateConfig
	Timer     TimerConfig
	Guard     GuardConfig
	Target    TargetConfig
	Session   SessionConfig
	Indicator IndicatorConfig
	Output    OutputConfig
	Clipboard CommandConfig
	FinishCmd CommandConfig
	History   HistoryConfig
	StatusRPC StatusRPCConfig
	Debug     DebugConfig
}

// AudioConfig controls capture backend and input-source selection.
type AudioConfig struct {
	Backend  string
	Input    string
	Fallback string
}

// GateConfig controls the noise gate and its signal conditioning.
type GateConfig struct {
	Threshold      float64
	SilenceDelayMS int
	LowpassHz      float64
}

// TimerConfig holds pre-roll and post-roll corrections.
type TimerConfig struct {
	StartOffsetSeconds float64
	EndOffsetSeconds   float64
	TickMS             int
	ClampNegative      bool
}

// GuardConfig controls the pre-infusion guard.
type GuardConfig struct {
	WindowMS               int
	RecheckMS              int
	ImmediateRetroactiveMS int
	BackdateRecheck        bool
}

type TargetConfig struct {
	Seconds          float64
	ToleranceSeconds float64
}

// SessionConfig controls listen-session lifetime.
type SessionConfig struct {
	Continuous   bool
	ResetAfterMS int
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
	SoundEnable    bool
	Locale         string
	ErrorTimeoutMS int
}

// OutputConfig controls what happens with a finished shot.
type OutputConfig struct {
	Clipboard bool
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

type HistoryConfig struct {
	Enable bool
	Path   string
}

// StatusRPCConfig controls the gRPC health endpoint used by bars and widgets.
type StatusRPCConfig struct {
	Enable  bool
	Address string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

func (c GateConfig) SilenceDelay() time.Duration {
	return time.Duration(c.SilenceDelayMS) * time.Millisecond
}

func (c TimerConfig) StartOffset() time.Duration {
	return seconds(c.StartOffsetSeconds)
}

func (c TimerConfig) EndOffset() time.Duration {
	return seconds(c.EndOffsetSeconds)
}

func (c TimerConfig) TickInterval() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

func (c GuardConfig) Window() time.Duration {
	return time.Duration(c.WindowMS) * time.Millisecond
}

func (c GuardConfig) RecheckDelay() time.Duration {
	return time.Duration(c.RecheckMS) * time.Millisecond
}

func (c GuardConfig) ImmediateRetroactive() time.Duration {
	return time.Duration(c.ImmediateRetroactiveMS) * time.Millisecond
}

func (c TargetConfig) Target() time.Duration {
	return seconds(c.Seconds)
}

func (c TargetConfig) Tolerance() time.Duration {
	return seconds(c.ToleranceSeconds)
}

func (c SessionConfig) ResetAfter() time.Duration {
	return time.Duration(c.ResetAfterMS) * time.Millisecond
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
