package pipeline

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/shotclock/internal/audio"
	"github.com/rbright/shotclock/internal/clock"
	"github.com/rbright/shotclock/internal/config"
	"github.com/rbright/shotclock/internal/dsp"
	"github.com/rbright/shotclock/internal/session"
)

func pcmChunk(value int16, samples int) []byte {
	chunk := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(chunk[i*2:], uint16(value))
	}
	return chunk
}

func TestDescribeDevice(t *testing.T) {
	tests := []struct {
		name   string
		device audio.Device
		want   string
	}{
		{name: "both", device: audio.Device{ID: "alsa_input.usb", Description: "USB Mic"}, want: "USB Mic (alsa_input.usb)"},
		{name: "id only", device: audio.Device{ID: "alsa_input.usb"}, want: "alsa_input.usb"},
		{name: "description only", device: audio.Device{Description: " USB Mic "}, want: "USB Mic"},
		{name: "empty", device: audio.Device{}, want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, describeDevice(tc.device))
		})
	}
}

func TestMeterLoopEmitsTimestampedLevels(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	l := NewListener(config.Default(), nil, clock.NewFake(start))

	chunks := make(chan []byte, 3)
	chunks <- pcmChunk(0, 320)
	chunks <- nil
	chunks <- pcmChunk(16000, 320)
	close(chunks)

	levels := make(chan session.Level, 4)
	done := make(chan struct{})
	l.meterLoop(chunks, dsp.NewMeter(600, audio.SampleRate), levels, make(chan struct{}), done)

	<-done
	var got []session.Level
	for level := range levels {
		got = append(got, level)
	}
	require.Len(t, got, 2)
	require.Zero(t, got[0].RMS)
	require.Greater(t, got[1].RMS, 0.0)
	require.True(t, got[1].At.Equal(start))
	require.Equal(t, 2, l.chunks)
}

func TestMeterLoopDropsLevelsAfterQuit(t *testing.T) {
	l := NewListener(config.Default(), nil, nil)

	chunks := make(chan []byte, 2)
	chunks <- pcmChunk(100, 320)
	chunks <- pcmChunk(100, 320)
	close(chunks)

	quit := make(chan struct{})
	close(quit)
	levels := make(chan session.Level)
	done := make(chan struct{})

	go l.meterLoop(chunks, dsp.NewMeter(600, audio.SampleRate), levels, quit, done)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("meter loop blocked on unread levels")
	}
}

func TestStopBeforeStart(t *testing.T) {
	l := NewListener(config.Default(), nil, nil)
	_, err := l.Stop()
	require.ErrorIs(t, err, session.ErrCaptureUnavailable)
	require.Empty(t, l.Device())
}

func TestStartWrapsCaptureFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.Backend = "jack"

	l := NewListener(cfg, nil, nil)
	err := l.Start(context.Background())
	require.ErrorIs(t, err, session.ErrCaptureUnavailable)
	require.ErrorIs(t, err, audio.ErrUnknownBackend)
	require.Nil(t, l.Levels())
}
