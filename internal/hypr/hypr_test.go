package hypr

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotifyAndDismissUseHyprctlDispatch(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	require.NoError(t, Notify(context.Background(), Notice{Icon: IconError, TimeoutMS: 1600, Text: "Microphone error"}))
	require.NoError(t, Notify(context.Background(), Notice{Icon: IconOK, TimeoutMS: 5000, Color: "rgb(a6e3a1)", Text: "26.5s"}))
	require.NoError(t, DismissNotify(context.Background()))

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Equal(t, []string{
		"--quiet dispatch notify 3 1600 rgb(89b4fa) Microphone error",
		"--quiet dispatch notify 5 5000 rgb(a6e3a1) 26.5s",
		"--quiet dispatch dismissnotify",
	}, lines)
}

func TestNotifyRejectsNonPositiveTimeout(t *testing.T) {
	err := Notify(context.Background(), Notice{Icon: IconInfo, Text: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "timeout must be positive")
}

func TestNotifyReturnsCombinedOutputOnFailure(t *testing.T) {
	installHyprctlStub(t, `
echo 'boom from hyprctl' >&2
exit 1
`)

	err := Notify(context.Background(), Notice{Icon: IconInfo, TimeoutMS: 100, Text: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom from hyprctl")
}

func TestVersionReturnsFirstLine(t *testing.T) {
	installHyprctlStub(t, `
if [[ "${1:-}" == "version" ]]; then
  printf 'Hyprland 0.52.1 built from branch main\nDate: today\n'
  exit 0
fi
exit 1
`)

	version, err := Version(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Hyprland 0.52.1 built from branch main", version)
}

func installHyprctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "hyprctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
