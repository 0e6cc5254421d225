package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rbright/shotclock/internal/hypr"
)

const (
	notifyDest  = "org.freedesktop.Notifications"
	notifyPath  = "/org/freedesktop/Notifications"
	urgencyLow  = 0
	urgencyNorm = 1
	urgencyCrit = 2
)

// desktopNotice is one freedesktop Notify call.
type desktopNotice struct {
	AppName   string
	ReplaceID uint32
	Icon      string
	Summary   string
	Urgency   int
	TimeoutMS int
}

// noticeFor maps a Hyprland notice onto the freedesktop surface.
func noticeFor(appName string, replaceID uint32, notice hypr.Notice) desktopNotice {
	out := desktopNotice{
		AppName:   appName,
		ReplaceID: replaceID,
		Icon:      "dialog-information",
		Summary:   notice.Text,
		Urgency:   urgencyNorm,
		TimeoutMS: notice.TimeoutMS,
	}
	switch notice.Icon {
	case hypr.IconOK:
		out.Icon = "emblem-ok-symbolic"
		out.Urgency = urgencyLow
	case hypr.IconWarning:
		out.Icon = "dialog-warning"
	case hypr.IconError:
		out.Icon = "dialog-error"
		out.Urgency = urgencyCrit
	}
	return out
}

// desktopNotify returns the notification ID assigned by the server.
func desktopNotify(ctx context.Context, notice desktopNotice) (uint32, error) {
	out, err := busctl(ctx, "Notify", "susssasa{sv}i",
		notice.AppName,
		strconv.FormatUint(uint64(notice.ReplaceID), 10),
		notice.Icon,
		notice.Summary,
		"",
		"0",
		"1", "urgency", "y", strconv.Itoa(notice.Urgency),
		strconv.Itoa(notice.TimeoutMS),
	)
	if err != nil {
		return 0, err
	}

	var id uint32
	if _, scanErr := fmt.Sscanf(out, "u %d", &id); scanErr != nil {
		return 0, fmt.Errorf("desktop notify invalid response %q: %w", out, scanErr)
	}
	return id, nil
}

func desktopDismiss(ctx context.Context, id uint32) error {
	_, err := busctl(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10))
	return err
}

// busctl invokes one method on the user session notification daemon and
// returns its trimmed reply.
func busctl(ctx context.Context, method string, signature string, values ...string) (string, error) {
	args := append([]string{"--user", "call", notifyDest, notifyPath, notifyDest, method, signature}, values...)
	raw, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	out := strings.TrimSpace(string(raw))
	if err != nil {
		if out == "" {
			return "", fmt.Errorf("busctl %s: %w", method, err)
		}
		return "", fmt.Errorf("busctl %s: %w (%s)", method, err, out)
	}
	return out, nil
}
