package ipc

import (
	"fmt"
	"strings"
	"time"
)

// Commands understood by a listening session.
const (
	CommandStatus = "status"
	CommandStart  = "start"
	CommandStop   = "stop"
	CommandToggle = "toggle"
	CommandReset  = "reset"
	CommandCancel = "cancel"
)

var commands = []string{CommandStatus, CommandStart, CommandStop, CommandToggle, CommandReset, CommandCancel}

type Request struct {
	Command string `json:"command"`
}

// Response is one newline-delimited JSON reply.
type Response struct {
	OK        bool         `json:"ok"`
	State     string       `json:"state,omitempty"`
	Message   string       `json:"message,omitempty"`
	Error     string       `json:"error,omitempty"`
	Listening bool         `json:"listening,omitempty"`
	Elapsed   string       `json:"elapsed,omitempty"`
	ElapsedMS int64        `json:"elapsed_ms,omitempty"`
	Status    string       `json:"status,omitempty"`
	LastShot  *ShotSummary `json:"last_shot,omitempty"`
}

// ShotSummary is the wire form of the most recent finished shot.
type ShotSummary struct {
	ID         string    `json:"id"`
	DurationMS int64     `json:"duration_ms"`
	Verdict    string    `json:"verdict"`
	Trigger    string    `json:"trigger"`
	FinishedAt time.Time `json:"finished_at"`
}

// ParseCommand normalizes and validates a command name.
func ParseCommand(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, cmd := range commands {
		if cmd == name {
			return cmd, nil
		}
	}
	return "", fmt.Errorf("unknown command %q (want one of %s)", raw, strings.Join(commands, ", "))
}
