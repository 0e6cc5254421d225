// Package hypr sends Hyprland notifications through hyprctl.
package hypr

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Icon selects the Hyprland notification glyph.
type Icon int

const (
	IconWarning Icon = 0
	IconInfo    Icon = 1
	IconHint    Icon = 2
	IconError   Icon = 3
	IconConfuse Icon = 4
	IconOK      Icon = 5
)

const defaultColor = "rgb(89b4fa)"

// Notice is one notification payload.
type Notice struct {
	Icon      Icon
	TimeoutMS int
	Color     string
	Text      string
}

// Notify sends a Hyprland notification.
func Notify(ctx context.Context, n Notice) error {
	color := strings.TrimSpace(n.Color)
	if color == "" {
		color = defaultColor
	}
	if n.TimeoutMS <= 0 {
		return fmt.Errorf("notify timeout must be positive, got %d", n.TimeoutMS)
	}
	return run(ctx, "--quiet", "dispatch", "notify",
		strconv.Itoa(int(n.Icon)),
		strconv.Itoa(n.TimeoutMS),
		color,
		n.Text,
	)
}

// DismissNotify dismisses active Hyprland notifications.
func DismissNotify(ctx context.Context) error {
	return run(ctx, "--quiet", "dispatch", "dismissnotify")
}

// Version returns the first line of `hyprctl version`, used by doctor.
func Version(ctx context.Context) (string, error) {
	out, err := output(ctx, "version")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line), nil
}

func run(ctx context.Context, args ...string) error {
	_, err := output(ctx, args...)
	return err
}

func output(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "hyprctl", args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
		}
		return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
	}
	return out, nil
}
