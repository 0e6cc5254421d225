package dsp

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func pcm(samples ...int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

func sine(freqHz float64, sampleRate int, n int, amplitude float64) []byte {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(amplitude * 32767 * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate)))
	}
	return pcm(samples...)
}

func TestDecodePCM16LE(t *testing.T) {
	samples := DecodePCM16LE(append(pcm(0, 16384, -32768), 0x7f))
	require.Len(t, samples, 3)
	require.InDelta(t, 0.0, samples[0], 1e-9)
	require.InDelta(t, 0.5, samples[1], 1e-9)
	require.InDelta(t, -1.0, samples[2], 1e-9)
}

func TestRMS(t *testing.T) {
	require.Zero(t, RMS(nil))
	require.InDelta(t, 0.5, RMS([]float64{0.5, -0.5, 0.5, -0.5}), 1e-9)
	require.InDelta(t, 1.0, RMS([]float64{2, -2}), 1e-9)
}

func TestLowPassAttenuatesHighFrequency(t *testing.T) {
	const rate = 16000

	low := NewMeter(600, rate)
	high := NewMeter(600, rate)

	lowLevel := low.Level(sine(100, rate, 1600, 0.5))
	highLevel := high.Level(sine(6000, rate, 1600, 0.5))

	require.InDelta(t, 0.5/math.Sqrt2, lowLevel, 0.03)
	require.Less(t, highLevel, lowLevel/4)
}

func TestLowPassPassThroughWhenDisabled(t *testing.T) {
	f := NewLowPass(0, 16000)
	in := []float64{0, 1, -1, 0.5}
	require.Equal(t, []float64{0, 1, -1, 0.5}, f.Process(in))
}

func TestLowPassStateCarriesAndResets(t *testing.T) {
	f := NewLowPass(100, 16000)
	first := f.Process([]float64{1, 1, 1})
	require.Equal(t, 1.0, first[2])

	second := f.Process([]float64{0})
	require.Greater(t, second[0], 0.9)

	f.Reset()
	third := f.Process([]float64{0})
	require.Zero(t, third[0])
}

func TestMeterSilenceIsZero(t *testing.T) {
	m := NewMeter(600, 16000)
	require.Zero(t, m.Level(make([]byte, 640)))
}
