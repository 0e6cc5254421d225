package indicator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/shotclock/internal/config"
	"github.com/rbright/shotclock/internal/hypr"
	"github.com/rbright/shotclock/internal/shot"
)

func hyprConfig() config.IndicatorConfig {
	cfg := config.Default().Indicator
	cfg.Enable = true
	cfg.SoundEnable = false
	cfg.Backend = "hypr"
	cfg.Locale = "en"
	return cfg
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestNotifierHyprLifecycle(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installStub(t, "hyprctl", `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	n := New(hyprConfig(), nil)
	ctx := context.Background()
	n.ShowListening(ctx)
	n.ShowExtracting(ctx)
	n.ShowPreInfusion(ctx)
	n.ShowResult(ctx, shot.Shot{Duration: 26500 * time.Millisecond, Verdict: shot.VerdictOnTarget})
	n.ShowResult(ctx, shot.Shot{Duration: 19 * time.Second, Verdict: shot.VerdictTooShort})
	n.ShowError(ctx, "")
	n.Hide(ctx)

	require.Equal(t, []string{
		"--quiet dispatch notify 1 300000 rgb(89b4fa) Listening…",
		"--quiet dispatch notify 1 300000 rgb(fab387) Extracting…",
		"--quiet dispatch notify 2 300000 rgb(f9e2af) Pre-infusion…",
		"--quiet dispatch notify 5 10000 rgb(a6e3a1) 26.5s On target!",
		"--quiet dispatch notify 0 10000 rgb(eba0ac) 19.0s Too short",
		"--quiet dispatch notify 3 1600 rgb(f38ba8) Microphone error",
		"--quiet dispatch dismissnotify",
	}, readLines(t, argsFile))
}

func TestNotifierGermanResult(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installStub(t, "hyprctl", `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := hyprConfig()
	cfg.Locale = "de"
	cfg.ErrorTimeoutMS = 0

	n := New(cfg, nil)
	n.ShowResult(context.Background(), shot.Shot{Duration: 31 * time.Second, Verdict: shot.VerdictTooLong})
	n.ShowError(context.Background(), "")

	require.Equal(t, []string{
		"--quiet dispatch notify 0 10000 rgb(eba0ac) 31.0s Zu lang",
		"--quiet dispatch notify 3 1200 rgb(f38ba8) Mikrofon Fehler",
	}, readLines(t, argsFile))
}

func TestNotifierDisabledSkipsDispatch(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installStub(t, "hyprctl", `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := hyprConfig()
	cfg.Enable = false

	n := New(cfg, nil)
	n.ShowListening(context.Background())
	n.ShowError(context.Background(), "ignored")
	n.Hide(context.Background())

	_, err := os.Stat(argsFile)
	require.True(t, os.IsNotExist(err))
}

func TestNotifierDesktopReplacesNotification(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installStub(t, "busctl", `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "${6:-}" == "Notify" ]]; then
  echo 'u 42'
fi
`)

	cfg := hyprConfig()
	cfg.Backend = "desktop"

	n := New(cfg, nil)
	n.ShowListening(context.Background())
	n.ShowExtracting(context.Background())
	n.Hide(context.Background())
	n.Hide(context.Background())

	lines := readLines(t, argsFile)
	require.Len(t, lines, 3)
	require.True(t, strings.HasSuffix(lines[0], "Notify susssasa{sv}i shotclock-indicator 0 dialog-information Listening…  0 1 urgency y 1 300000"))
	require.True(t, strings.HasSuffix(lines[1], "Notify susssasa{sv}i shotclock-indicator 42 dialog-information Extracting…  0 1 urgency y 1 300000"))
	require.True(t, strings.HasSuffix(lines[2], "CloseNotification u 42"))
}

func TestNoticeForMapsVerdictIcons(t *testing.T) {
	ok := noticeFor("app", 7, hypr.Notice{Icon: hypr.IconOK, TimeoutMS: 10000, Text: "26.5s On target!"})
	require.Equal(t, desktopNotice{
		AppName:   "app",
		ReplaceID: 7,
		Icon:      "emblem-ok-symbolic",
		Summary:   "26.5s On target!",
		Urgency:   urgencyLow,
		TimeoutMS: 10000,
	}, ok)

	warn := noticeFor("app", 0, hypr.Notice{Icon: hypr.IconWarning})
	require.Equal(t, "dialog-warning", warn.Icon)
	require.Equal(t, urgencyNorm, warn.Urgency)

	failed := noticeFor("app", 0, hypr.Notice{Icon: hypr.IconError})
	require.Equal(t, "dialog-error", failed.Icon)
	require.Equal(t, urgencyCrit, failed.Urgency)
}

func TestDesktopNotifyRejectsMalformedReply(t *testing.T) {
	installStub(t, "busctl", `echo 'garbage'`)
	_, err := desktopNotify(context.Background(), desktopNotice{AppName: "app"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid response")
}

func TestCuesRespectSoundEnable(t *testing.T) {
	var (
		mu     sync.Mutex
		played []cueKind
	)
	record := func(kind cueKind) error {
		mu.Lock()
		defer mu.Unlock()
		played = append(played, kind)
		return nil
	}

	cfg := hyprConfig()
	cfg.Enable = false

	silent := New(cfg, nil)
	silent.play = record
	silent.CueStart(context.Background())

	cfg.SoundEnable = true
	loud := New(cfg, nil)
	loud.play = record
	loud.CueFinish(context.Background())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(played) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []cueKind{cueFinish}, played)
}

func installStub(t *testing.T, name string, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
