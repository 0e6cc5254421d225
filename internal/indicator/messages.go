package indicator

import (
	"os"
	"strings"

	"github.com/rbright/shotclock/internal/shot"
)

type locale string

const (
	localeEnglish locale = "en"
	localeGerman  locale = "de"
)

type messages struct {
	listening   string
	extracting  string
	preInfusion string
	onTarget    string
	tooShort    string
	tooLong     string
	errorText   string
}

// verdict returns the localized label for a shot verdict.
func (m messages) verdict(v shot.Verdict) string {
	switch v {
	case shot.VerdictTooShort:
		return m.tooShort
	case shot.VerdictTooLong:
		return m.tooLong
	default:
		return m.onTarget
	}
}

// messagesFor prefers an explicit indicator.locale over LANG.
func messagesFor(configured string) messages {
	if strings.TrimSpace(configured) != "" {
		return indicatorMessages(resolveLocale(configured))
	}
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "de") {
		return localeGerman
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeGerman:
		return messages{
			listening:   "Höre zu...",
			extracting:  "Bezug läuft...",
			preInfusion: "Pre-Infusion...",
			onTarget:    "Perfekt!",
			tooShort:    "Zu kurz",
			tooLong:     "Zu lang",
			errorText:   "Mikrofon Fehler",
		}
	default:
		return messages{
			listening:   "Listening…",
			extracting:  "Extracting…",
			preInfusion: "Pre-infusion…",
			onTarget:    "On target!",
			tooShort:    "Too short",
			tooLong:     "Too long",
			errorText:   "Microphone error",
		}
	}
}
