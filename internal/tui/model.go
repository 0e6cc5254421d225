// Package tui renders a live terminal view of a listening session.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rbright/shotclock/internal/extraction"
	"github.com/rbright/shotclock/internal/fsm"
	"github.com/rbright/shotclock/internal/ipc"
	"github.com/rbright/shotclock/internal/session"
	"github.com/rbright/shotclock/internal/shot"
)

const meterWidth = 32

// Control is the subset of the session controller the keyboard drives.
type Control interface {
	Handle(context.Context, ipc.Request) ipc.Response
}

type levelMsg struct{ rms float64 }
type tickMsg struct {
	formatted string
	elapsed   time.Duration
}
type statusMsg struct{ status extraction.Status }
type shotMsg struct{ shot shot.Shot }
type snapshotMsg struct{ snap session.Snapshot }

// SessionEndedMsg tells the program the session loop has returned.
type SessionEndedMsg struct{ Err error }

type model struct {
	control   Control
	threshold float64
	target    time.Duration

	state     fsm.State
	listening bool
	device    string
	formatted string
	level     float64
	peak      float64
	status    extraction.Status
	shots     int
	last      *shot.Shot
	notice    string
	ended     bool
	endErr    error
}

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	provStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	meterOn      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	meterHot     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	meterOff     = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
)

func newModel(control Control, threshold float64, target time.Duration) model {
	return model{
		control:   control,
		threshold: threshold,
		target:    target,
		state:     fsm.StateIdle,
		formatted: shot.Format(0),
	}
}

// NewProgram builds the bubbletea program for a listen session.
func NewProgram(control Control, threshold float64, target time.Duration, opts ...tea.ProgramOption) *tea.Program {
	return tea.NewProgram(newModel(control, threshold, target), opts...)
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case levelMsg:
		// Smooth like a VU meter so single chunks don't flicker.
		m.level = m.level*0.6 + msg.rms*0.4
		m.peak = math.Max(m.peak*0.98, msg.rms)

	case tickMsg:
		m.formatted = msg.formatted

	case statusMsg:
		m.status = msg.status

	case shotMsg:
		s := msg.shot
		m.last = &s
		m.shots++
		m.formatted = shot.Format(s.Duration)

	case snapshotMsg:
		if msg.snap.State == fsm.StateIdle && m.state != fsm.StateIdle {
			m.formatted = shot.Format(0)
		}
		m.state = msg.snap.State
		m.listening = msg.snap.Listening
		m.device = msg.snap.Device

	case SessionEndedMsg:
		m.ended = true
		m.endErr = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var command string
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		command = ipc.CommandCancel
	case "s", " ":
		command = ipc.CommandToggle
	case "r":
		command = ipc.CommandReset
	default:
		return m, nil
	}

	if m.control == nil {
		return m, nil
	}
	resp := m.control.Handle(context.Background(), ipc.Request{Command: command})
	if !resp.OK {
		m.notice = resp.Error
	} else {
		m.notice = ""
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("shotclock"))
	if m.device != "" {
		b.WriteString(idleStyle.Render("  " + m.device))
	}
	b.WriteString("\n\n")

	b.WriteString(timeStyle.Render(m.formatted + "s"))
	b.WriteString("  ")
	b.WriteString(m.stateLine())
	b.WriteString("\n\n")

	b.WriteString(m.meter())
	b.WriteString("\n\n")

	if m.last != nil {
		style := goodStyle
		if m.last.Verdict != shot.VerdictOnTarget {
			style = badStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("last %s", m.last.Summary())))
		b.WriteString(idleStyle.Render(fmt.Sprintf("  (%d this session)", m.shots)))
		b.WriteString("\n")
	} else {
		b.WriteString(idleStyle.Render(fmt.Sprintf("target %ss", shot.Format(m.target))))
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString(badStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("s start/stop · r reset · q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m model) stateLine() string {
	switch {
	case !m.listening:
		return idleStyle.Render("○ not listening")
	case m.state == fsm.StateRunning && m.status == extraction.StatusProvisionalSilence:
		return provStyle.Render("◐ pre-infusion")
	case m.state == fsm.StateRunning:
		return runningStyle.Render("● extracting")
	case m.state == fsm.StateFinished:
		return goodStyle.Render("■ finished")
	default:
		return idleStyle.Render("○ listening")
	}
}

// meter draws the smoothed level with a marker at the gate threshold.
func (m model) meter() string {
	filled := int(math.Round(math.Min(m.level*5, 1) * meterWidth))
	mark := int(math.Round(math.Min(m.threshold*5, 1) * meterWidth))
	if mark >= meterWidth {
		mark = meterWidth - 1
	}

	var b strings.Builder
	for i := 0; i < meterWidth; i++ {
		switch {
		case i == mark:
			b.WriteString(helpStyle.Render("│"))
		case i < filled && i > mark:
			b.WriteString(meterHot.Render("█"))
		case i < filled:
			b.WriteString(meterOn.Render("█"))
		default:
			b.WriteString(meterOff.Render("░"))
		}
	}
	return b.String()
}
