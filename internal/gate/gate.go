// Package gate converts a stream of RMS levels into discrete noise/silence
// transitions using a single threshold and a debounced silence edge.
package gate

import (
	"math"
	"time"
)

// State is the gate's current expectation.
type State int

const (
	// AwaitingNoise waits for the level to rise above the threshold.
	AwaitingNoise State = iota
	// AwaitingSilence waits for a debounced drop below the threshold.
	AwaitingSilence
)

func (s State) String() string {
	switch s {
	case AwaitingNoise:
		return "awaiting_noise"
	case AwaitingSilence:
		return "awaiting_silence"
	default:
		return "unknown"
	}
}

// Transition is an edge emitted by Observe.
type Transition int

const (
	NoiseStarted Transition = iota + 1
	SilenceConfirmed
)

func (t Transition) String() string {
	switch t {
	case NoiseStarted:
		return "noise_started"
	case SilenceConfirmed:
		return "silence_confirmed"
	default:
		return "none"
	}
}

const minThreshold = 1e-6

// Gate is the noise-gate detector. It is not safe for concurrent use; callers
// serialize Observe with setting changes.
type Gate struct {
	threshold    float64
	silenceDelay time.Duration

	state        State
	silenceSince time.Time
	hasSilence   bool
}

// New builds a gate in AwaitingNoise. Out-of-range settings are clamped.
func New(threshold float64, silenceDelay time.Duration) *Gate {
	g := &Gate{}
	g.SetThreshold(threshold)
	g.SetSilenceDelay(silenceDelay)
	return g
}

// Observe feeds one level sample taken at now and returns the transition it
// caused, if any.
func (g *Gate) Observe(rms float64, now time.Time) (Transition, bool) {
	if math.IsNaN(rms) {
		rms = 0
	}

	switch g.state {
	case AwaitingNoise:
		if rms > g.threshold {
			g.state = AwaitingSilence
			g.clearSilence()
			return NoiseStarted, true
		}
		return 0, false
	default:
		if rms >= g.threshold {
			g.clearSilence()
			return 0, false
		}
		if !g.hasSilence {
			g.silenceSince = now
			g.hasSilence = true
			return 0, false
		}
		if now.Sub(g.silenceSince) > g.silenceDelay {
			g.state = AwaitingNoise
			g.clearSilence()
			return SilenceConfirmed, true
		}
		return 0, false
	}
}

// IsNoisy reports whether the gate currently considers the signal active.
func (g *Gate) IsNoisy() bool {
	return g.state == AwaitingSilence
}

// State returns the current gate state.
func (g *Gate) State() State {
	return g.state
}

// SilenceSince returns when the current below-threshold run began.
func (g *Gate) SilenceSince() (time.Time, bool) {
	return g.silenceSince, g.hasSilence
}

// Threshold returns the effective threshold.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// SilenceDelay returns the effective debounce window.
func (g *Gate) SilenceDelay() time.Duration {
	return g.silenceDelay
}

// SetThreshold changes the threshold for future comparisons, clamped into (0, 1].
func (g *Gate) SetThreshold(threshold float64) {
	switch {
	case math.IsNaN(threshold) || threshold < minThreshold:
		threshold = minThreshold
	case threshold > 1:
		threshold = 1
	}
	g.threshold = threshold
}

// SetSilenceDelay changes the debounce window; negative values become zero.
func (g *Gate) SetSilenceDelay(delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	g.silenceDelay = delay
}

// Reset returns the gate to AwaitingNoise without touching its settings.
func (g *Gate) Reset() {
	g.state = AwaitingNoise
	g.clearSilence()
}

func (g *Gate) clearSilence() {
	g.silenceSince = time.Time{}
	g.hasSilence = false
}
