package output

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/shotclock/internal/config"
	"github.com/rbright/shotclock/internal/shot"
)

func testShot() shot.Shot {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return shot.Shot{
		ID:         "7c1e",
		StartedAt:  start,
		FinishedAt: start.Add(26500 * time.Millisecond),
		Duration:   26500 * time.Millisecond,
		Target:     25 * time.Second,
		Verdict:    shot.VerdictOnTarget,
		Trigger:    shot.TriggerSilence,
		Device:     "USB Mic",
	}
}

func TestRunCommandWithInputWritesStdin(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	outputPath := filepath.Join(t.TempDir(), "stdin.txt")

	err := runCommandWithInput(context.Background(), []string{scriptPath, outputPath}, "hello from shotclock")
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, "hello from shotclock", string(data))
}

func TestRunCommandWithInputRejectsEmptyArgv(t *testing.T) {
	err := runCommandWithInput(context.Background(), nil, "payload")
	require.Error(t, err)
	require.Contains(t, err.Error(), "argv cannot be empty")
}

func TestRecordCopiesSummaryToClipboard(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")

	cfg := config.Default()
	cfg.Output.Clipboard = true
	cfg.Clipboard = config.CommandConfig{Argv: []string{scriptPath, clipboardPath}}

	require.NoError(t, NewPublisher(cfg, nil).Record(context.Background(), testShot()))

	data, err := os.ReadFile(clipboardPath)
	require.NoError(t, err)
	require.Equal(t, "26.5s (target 25.0s, on_target)", string(data))
}

func TestRecordSkipsClipboardWhenDisabled(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")

	cfg := config.Default()
	cfg.Output.Clipboard = false
	cfg.Clipboard = config.CommandConfig{Argv: []string{scriptPath, clipboardPath}}

	require.NoError(t, NewPublisher(cfg, nil).Record(context.Background(), testShot()))

	_, err := os.Stat(clipboardPath)
	require.True(t, os.IsNotExist(err))
}

func TestRecordFallsBackToSystemClipboard(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Clipboard = true
	cfg.Clipboard = config.CommandConfig{}

	var copied []string
	publisher := NewPublisher(cfg, nil)
	publisher.writeClipboard = func(text string) error {
		copied = append(copied, text)
		return nil
	}

	require.NoError(t, publisher.Record(context.Background(), testShot()))
	require.Equal(t, []string{"26.5s (target 25.0s, on_target)"}, copied)
}

func TestRecordWritesFinishHookPayload(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	hookPath := filepath.Join(t.TempDir(), "hook.json")

	cfg := config.Default()
	cfg.FinishCmd = config.CommandConfig{Argv: []string{scriptPath, hookPath}}

	require.NoError(t, NewPublisher(cfg, nil).Record(context.Background(), testShot()))

	data, err := os.ReadFile(hookPath)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Equal(t, "7c1e", payload["id"])
	require.Equal(t, "26.5", payload["seconds"])
	require.EqualValues(t, 26500, payload["duration_ms"])
	require.EqualValues(t, 25000, payload["target_ms"])
	require.Equal(t, "on_target", payload["verdict"])
	require.Equal(t, "silence", payload["trigger"])
	require.Equal(t, "USB Mic", payload["device"])
}

func TestRecordJoinsFailuresAndStillRunsHook(t *testing.T) {
	failPath := writeFailScript(t, "clipboard offline")
	scriptPath := writeStdinCaptureScript(t)
	hookPath := filepath.Join(t.TempDir(), "hook.json")

	cfg := config.Default()
	cfg.Output.Clipboard = true
	cfg.Clipboard = config.CommandConfig{Argv: []string{failPath}}
	cfg.FinishCmd = config.CommandConfig{Argv: []string{scriptPath, hookPath}}

	err := NewPublisher(cfg, nil).Record(context.Background(), testShot())
	require.Error(t, err)
	require.Contains(t, err.Error(), "set clipboard")

	_, statErr := os.Stat(hookPath)
	require.NoError(t, statErr)
}

func writeStdinCaptureScript(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "capture-stdin.sh")
	script := `#!/usr/bin/env bash
set -euo pipefail
cat > "$1"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeFailScript(t *testing.T, message string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fail.sh")
	script := "#!/usr/bin/env bash\ncat >/dev/null\necho '" + message + "' >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
