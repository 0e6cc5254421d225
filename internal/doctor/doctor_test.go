package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/shotclock/internal/config"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "set")

	check := checkEnv("TEST_DOCTOR_ENV", func(v string) bool { return v != "" }, "looks good", "unexpected")
	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "clipboard_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckClipboardPrefersCommand(t *testing.T) {
	check := checkClipboard(config.CommandConfig{Raw: "sh -c true", Argv: []string{"sh", "-c", "true"}})
	require.True(t, check.Pass)
	require.Equal(t, "sh", check.Name)

	check = checkClipboard(config.CommandConfig{})
	require.Equal(t, "clipboard", check.Name)
}

func TestCheckBinary(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")

	check = checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(context.Background(), config.Default())
	require.False(t, check.Pass)
	require.Equal(t, "audio.device", check.Name)
}

func TestCheckHistoryReportsSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	check := checkHistory(context.Background(), config.HistoryConfig{Enable: true, Path: path})
	require.True(t, check.Pass, check.Message)
	require.Contains(t, check.Message, "0 shots")
}

func TestCheckStatusAddress(t *testing.T) {
	require.True(t, checkStatusAddress("127.0.0.1:50077").Pass)
	require.False(t, checkStatusAddress("localhost").Pass)
}

func TestRunSelectsIndicatorAndOutputChecks(t *testing.T) {
	binDir := t.TempDir()
	for _, name := range []string{"fake-clip", "fake-hook", "hyprctl"} {
		script := "#!/usr/bin/env sh\necho 'Hyprland 0.52.1'\n"
		require.NoError(t, os.WriteFile(filepath.Join(binDir, name), []byte(script), 0o755))
	}
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "abc123")
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	cfg := config.Default()
	cfg.Output.Clipboard = true
	cfg.Clipboard = config.CommandConfig{Raw: "fake-clip", Argv: []string{"fake-clip"}}
	cfg.FinishCmd = config.CommandConfig{Raw: "fake-hook --json", Argv: []string{"fake-hook", "--json"}}
	cfg.StatusRPC.Enable = true

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Format: config.FormatJSONC, Config: cfg, Exists: true})

	byName := map[string]Check{}
	for _, check := range report.Checks {
		byName[check.Name] = check
	}
	require.True(t, byName["fake-clip"].Pass)
	require.True(t, byName["fake-hook"].Pass)
	require.True(t, byName["hyprctl"].Pass)
	require.Equal(t, "Hyprland 0.52.1", byName["hyprctl"].Message)
	require.True(t, byName["history"].Pass)
	require.True(t, byName["status_rpc"].Pass)
	require.False(t, byName["audio.device"].Pass)
	require.NotContains(t, byName, "busctl")
	require.Equal(t, `loaded "/tmp/config.jsonc" (jsonc, 0 warnings)`, byName["config"].Message)
}

func TestRunDesktopIndicatorChecksBusctl(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	cfg := config.Default()
	cfg.Indicator.Backend = "desktop"
	cfg.History.Enable = false

	report := Run(context.Background(), config.Loaded{Path: "/tmp/missing.jsonc", Config: cfg})

	var names []string
	for _, check := range report.Checks {
		names = append(names, check.Name)
	}
	require.Contains(t, names, "busctl")
	require.NotContains(t, names, "hyprctl")
	require.NotContains(t, names, "history")
	require.Contains(t, report.Checks[0].Message, "not found; using defaults")
}
