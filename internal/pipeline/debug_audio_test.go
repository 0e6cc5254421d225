package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeFLACWritesStream(t *testing.T) {
	var buf bytes.Buffer
	pcm := make([]byte, 0, 10000*2)
	for i := 0; i < 10000; i++ {
		pcm = append(pcm, pcmChunk(int16(i%512-256), 1)...)
	}

	require.NoError(t, encodeFLAC(&buf, pcm))
	require.Greater(t, buf.Len(), 4)
	require.Equal(t, "fLaC", string(buf.Bytes()[:4]))
}

func TestWriteDebugAudio(t *testing.T) {
	stateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", stateHome)

	path, err := writeDebugAudio(pcmChunk(1200, 4096+17))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(stateHome, "shotclock", "debug"), filepath.Dir(path))
	require.True(t, strings.HasPrefix(filepath.Base(path), "audio-"))
	require.Equal(t, ".flac", filepath.Ext(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	require.Positive(t, info.Size())
}

func TestWriteDebugAudioSkipsEmptyCapture(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	path, err := writeDebugAudio([]byte{1})
	require.NoError(t, err)
	require.Empty(t, path)
}
