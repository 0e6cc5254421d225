package pipeline

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"

	"github.com/rbright/shotclock/internal/audio"
	"github.com/rbright/shotclock/internal/logging"
)

const flacBlockSize = 4096

// writeDebugAudio stores raw PCM as FLAC under the state debug directory.
func writeDebugAudio(rawPCM []byte) (string, error) {
	if len(rawPCM) < 2 {
		return "", nil
	}

	file, err := createDebugFile("audio", "flac")
	if err != nil {
		return "", err
	}
	path := file.Name()

	if err := encodeFLAC(file, rawPCM); err != nil {
		_ = file.Close()
		return "", err
	}
	// The encoder may already have closed the file.
	if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return "", fmt.Errorf("close debug audio %q: %w", path, err)
	}
	return path, nil
}

// encodeFLAC writes 16kHz mono s16le PCM as verbatim FLAC frames.
func encodeFLAC(w io.Writer, pcm []byte) error {
	samples := make([]int32, len(pcm)/2)
	for i := range samples {
		samples[i] = int32(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	info := &meta.StreamInfo{
		BlockSizeMin:  flacBlockSize,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    audio.SampleRate,
		NChannels:     1,
		BitsPerSample: 16,
		NSamples:      uint64(len(samples)),
	}
	enc, err := flac.NewEncoder(w, info)
	if err != nil {
		return fmt.Errorf("create flac encoder: %w", err)
	}

	for start := 0; start < len(samples); start += flacBlockSize {
		end := min(start+flacBlockSize, len(samples))
		block := samples[start:end]

		f := &frame.Frame{
			Header: frame.Header{
				BlockSize:     uint16(len(block)),
				SampleRate:    audio.SampleRate,
				Channels:      frame.ChannelsMono,
				BitsPerSample: 16,
			},
			Subframes: []*frame.Subframe{{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   block,
				NSamples:  len(block),
			}},
		}
		if err := enc.WriteFrame(f); err != nil {
			_ = enc.Close()
			return fmt.Errorf("write flac frame: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish flac stream: %w", err)
	}
	return nil
}

// createDebugFile creates timestamped debug artifacts under the state debug directory.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := logging.StateDir()
	if err != nil {
		return nil, fmt.Errorf("resolve state dir: %w", err)
	}
	debugDir := filepath.Join(stateDir, "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}
