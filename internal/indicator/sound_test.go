package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCueSamplesPresent(t *testing.T) {
	require.NotEmpty(t, cueSamples(cueStart))
	require.NotEmpty(t, cueSamples(cueFinish))
	require.NotEmpty(t, cueSamples(cueCancel))
	require.Empty(t, cueSamples(cueKind(99)))
}

func TestSynthesizeCueIncludesGaps(t *testing.T) {
	tone := toneSpec{frequencyHz: 440, duration: 50 * time.Millisecond, volume: 0.2}
	got := synthesizeCue([]toneSpec{tone, tone})
	want := 2*samplesForDuration(50*time.Millisecond) + samplesForDuration(22*time.Millisecond)
	require.Len(t, got, want)
}

func TestSynthesizeToneEnvelope(t *testing.T) {
	got := synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0.2})
	require.Len(t, got, samplesForDuration(100*time.Millisecond))
	require.Zero(t, got[0])
	require.Zero(t, got[len(got)-1])

	peak := int16(0)
	for _, s := range got {
		peak = max(peak, s)
	}
	require.LessOrEqual(t, peak, int16(6554))
	require.Greater(t, peak, int16(0))
}

func TestSynthesizeToneInvalidSpecReturnsEmpty(t *testing.T) {
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 0, duration: 100 * time.Millisecond, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 0, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0}))
}

func TestSamplesForDuration(t *testing.T) {
	require.Equal(t, 0, samplesForDuration(0))
	require.Equal(t, 400, samplesForDuration(25*time.Millisecond))
}
