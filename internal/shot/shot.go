// Package shot describes a finished extraction and how it compares to the target time.
package shot

import (
	"fmt"
	"time"
)

type Verdict string

const (
	VerdictTooShort Verdict = "too_short"
	VerdictOnTarget Verdict = "on_target"
	VerdictTooLong  Verdict = "too_long"
)

// Trigger records what ended the timer.
type Trigger string

const (
	TriggerSilence Trigger = "silence"
	TriggerRecheck Trigger = "recheck"
	TriggerManual  Trigger = "manual"
)

type Shot struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Target     time.Duration `json:"target"`
	Verdict    Verdict       `json:"verdict"`
	Trigger    Trigger       `json:"trigger"`
	Device     string        `json:"device,omitempty"`
}

// Classify compares d against target with an inclusive tolerance band.
func Classify(d, target, tolerance time.Duration) Verdict {
	if tolerance < 0 {
		tolerance = 0
	}
	switch {
	case d < target-tolerance:
		return VerdictTooShort
	case d > target+tolerance:
		return VerdictTooLong
	default:
		return VerdictOnTarget
	}
}

// Format renders d as seconds with one decimal, floored at zero.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1f", d.Seconds())
}

// Summary is a one-line human description used by the CLI and logs.
func (s Shot) Summary() string {
	return fmt.Sprintf("%ss (target %ss, %s)", Format(s.Duration), Format(s.Target), s.Verdict)
}
