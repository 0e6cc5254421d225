package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rbright/shotclock/internal/extraction"
	"github.com/rbright/shotclock/internal/session"
	"github.com/rbright/shotclock/internal/shot"
)

// Sink buffers session events for a program. It never blocks the session loop;
// when the buffer is full, events are dropped.
type Sink struct {
	msgs chan tea.Msg
}

func NewSink() *Sink {
	return &Sink{msgs: make(chan tea.Msg, 256)}
}

// Forward delivers buffered events to p until ctx is done.
func (s *Sink) Forward(ctx context.Context, p *tea.Program) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.msgs:
			p.Send(msg)
		}
	}
}

func (s *Sink) OnLevel(l session.Level) { s.offer(levelMsg{rms: l.RMS}) }

func (s *Sink) OnTick(formatted string, elapsed time.Duration) {
	s.offer(tickMsg{formatted: formatted, elapsed: elapsed})
}

func (s *Sink) OnStatus(status extraction.Status) { s.offer(statusMsg{status: status}) }
func (s *Sink) OnShot(sh shot.Shot)               { s.offer(shotMsg{shot: sh}) }
func (s *Sink) OnSnapshot(snap session.Snapshot)  { s.offer(snapshotMsg{snap: snap}) }

func (s *Sink) offer(msg tea.Msg) {
	select {
	case s.msgs <- msg:
	default:
	}
}
