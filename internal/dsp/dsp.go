// Package dsp reduces raw PCM capture chunks to one conditioned RMS level per frame.
package dsp

import (
	"encoding/binary"
	"math"
)

// DecodePCM16LE converts little-endian signed 16-bit mono PCM into samples in [-1, 1].
// A trailing odd byte is ignored.
func DecodePCM16LE(chunk []byte) []float64 {
	n := len(chunk) / 2
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(chunk[2*i:]))
		samples[i] = float64(v) / 32768.0
	}
	return samples
}

// RMS returns the root-mean-square amplitude of samples, clamped to [0, 1].
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms > 1 || math.IsInf(rms, 1) {
		return 1
	}
	if math.IsNaN(rms) {
		return 0
	}
	return rms
}

// LowPass is a single-pole IIR low-pass filter. State carries across calls so
// consecutive chunks of one stream are filtered continuously.
type LowPass struct {
	alpha float64
	prev  float64
	init  bool
}

// NewLowPass builds a filter with the given -3dB cutoff. A non-positive cutoff
// or sample rate yields a pass-through filter.
func NewLowPass(cutoffHz float64, sampleRate int) *LowPass {
	if cutoffHz <= 0 || sampleRate <= 0 {
		return &LowPass{alpha: 1}
	}
	dt := 1.0 / float64(sampleRate)
	rc := 1.0 / (2 * math.Pi * cutoffHz)
	return &LowPass{alpha: dt / (rc + dt)}
}

// Process filters samples in place and returns them.
func (f *LowPass) Process(samples []float64) []float64 {
	for i, x := range samples {
		if !f.init {
			f.prev = x
			f.init = true
		} else {
			f.prev += f.alpha * (x - f.prev)
		}
		samples[i] = f.prev
	}
	return samples
}

// Reset clears filter memory.
func (f *LowPass) Reset() {
	f.prev = 0
	f.init = false
}

// Meter turns PCM chunks into low-passed broadband RMS levels.
type Meter struct {
	filter *LowPass
}

// NewMeter builds a meter for mono s16 PCM at sampleRate.
func NewMeter(cutoffHz float64, sampleRate int) *Meter {
	return &Meter{filter: NewLowPass(cutoffHz, sampleRate)}
}

// Level returns the RMS of one filtered chunk.
func (m *Meter) Level(chunk []byte) float64 {
	return RMS(m.filter.Process(DecodePCM16LE(chunk)))
}

// Reset clears the conditioning filter.
func (m *Meter) Reset() {
	m.filter.Reset()
}
