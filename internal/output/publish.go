// Package output applies finished-shot side effects (clipboard and finish hook).
package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/atotto/clipboard"

	"github.com/rbright/shotclock/internal/config"
	"github.com/rbright/shotclock/internal/shot"
)

// Publisher copies shot summaries to the clipboard and runs the finish hook.
type Publisher struct {
	config config.Config
	logger *slog.Logger

	// writeClipboard is used when clipboard_cmd is empty.
	writeClipboard func(string) error
}

// NewPublisher constructs a shot publisher from runtime config.
func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	return &Publisher{config: cfg, logger: logger, writeClipboard: clipboard.WriteAll}
}

// hookPayload is the JSON document written to finish_cmd's stdin.
type hookPayload struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
	Seconds    string    `json:"seconds"`
	TargetMS   int64     `json:"target_ms"`
	Verdict    string    `json:"verdict"`
	Trigger    string    `json:"trigger"`
	Device     string    `json:"device,omitempty"`
}

// Record implements session.Recorder. Both side effects run; their errors are joined.
func (p *Publisher) Record(ctx context.Context, s shot.Shot) error {
	var errs []error

	if p.config.Output.Clipboard {
		if err := p.copySummary(ctx, s.Summary()); err != nil {
			errs = append(errs, fmt.Errorf("set clipboard: %w", err))
		}
	}

	if len(p.config.FinishCmd.Argv) > 0 {
		payload, err := json.Marshal(hookPayload{
			ID:         s.ID,
			StartedAt:  s.StartedAt,
			FinishedAt: s.FinishedAt,
			DurationMS: s.Duration.Milliseconds(),
			Seconds:    shot.Format(s.Duration),
			TargetMS:   s.Target.Milliseconds(),
			Verdict:    string(s.Verdict),
			Trigger:    string(s.Trigger),
			Device:     s.Device,
		})
		if err != nil {
			return fmt.Errorf("encode finish payload: %w", err)
		}

		hookCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = runCommandWithInput(hookCtx, p.config.FinishCmd.Argv, string(payload)+"\n")
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("run finish_cmd: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		p.logFailure(err)
		return err
	}
	return nil
}

// copySummary prefers clipboard_cmd and falls back to the system clipboard.
func (p *Publisher) copySummary(ctx context.Context, text string) error {
	if len(p.config.Clipboard.Argv) == 0 {
		return p.writeClipboard(text)
	}
	clipboardCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return runCommandWithInput(clipboardCtx, p.config.Clipboard.Argv, text)
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}

func (p *Publisher) logFailure(err error) {
	if p.logger == nil || err == nil {
		return
	}
	p.logger.Error("shot output failed", "error", err.Error())
}
