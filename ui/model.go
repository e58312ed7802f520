// Package ui implements the Bubble Tea front end for the terminal
// emulator core: a Model that renders the session's screen buffer and
// status line and turns key events into session.Controller calls.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ibmterm/emucore/session"
	"github.com/ibmterm/emucore/ui/style"
)

// tickMsg drives the periodic screen refresh; the controller's worker
// goroutine mutates session state independently of Bubble Tea's loop,
// so the model polls rather than waiting on a push channel.
type tickMsg time.Time

func doTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the root Bubble Tea model for one terminal session.
type Model struct {
	ctrl    *session.Controller
	styles  style.Styles
	spinner spinner.Model

	width, height int
	lastErr       error
	quitting      bool
}

// New creates a Model driving ctrl, which must already have had
// ConnectAsync called (or be about to).
func New(ctrl *session.Controller) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = style.Default().Connecting

	return Model{
		ctrl:    ctrl,
		styles:  style.Default(),
		spinner: sp,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(doTick(), m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		if err := m.ctrl.TakeLastError(); err != nil {
			m.lastErr = err
		}
		return m, doTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		m.ctrl.Disconnect()
		return m, tea.Quit
	case tea.KeyEnter:
		m.lastErr = m.ctrl.SendAID(session.AIDEnter)
		return m, nil
	case tea.KeyTab:
		m.lastErr = m.ctrl.Tab()
		return m, nil
	case tea.KeyShiftTab:
		m.lastErr = m.ctrl.ShiftTab()
		return m, nil
	case tea.KeyBackspace:
		m.lastErr = m.ctrl.Backspace()
		return m, nil
	case tea.KeyDelete:
		m.lastErr = m.ctrl.Delete()
		return m, nil
	case tea.KeyF1, tea.KeyF2, tea.KeyF3, tea.KeyF4, tea.KeyF5, tea.KeyF6,
		tea.KeyF7, tea.KeyF8, tea.KeyF9, tea.KeyF10, tea.KeyF11, tea.KeyF12:
		m.lastErr = m.ctrl.SendAID(pfKey(msg.Type))
		return m, nil
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if err := m.ctrl.TypeChar(r); err != nil {
				m.lastErr = err
				break
			}
		}
		return m, nil
	}
	return m, nil
}

func pfKey(t tea.KeyType) session.AIDKey {
	switch t {
	case tea.KeyF1:
		return session.AIDPF1
	case tea.KeyF2:
		return session.AIDPF2
	case tea.KeyF3:
		return session.AIDPF3
	case tea.KeyF4:
		return session.AIDPF4
	case tea.KeyF5:
		return session.AIDPF5
	case tea.KeyF6:
		return session.AIDPF6
	case tea.KeyF7:
		return session.AIDPF7
	case tea.KeyF8:
		return session.AIDPF8
	case tea.KeyF9:
		return session.AIDPF9
	case tea.KeyF10:
		return session.AIDPF10
	case tea.KeyF11:
		return session.AIDPF11
	default:
		return session.AIDPF12
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return "disconnected.\n"
	}

	var b strings.Builder
	b.WriteString(m.styles.Screen.Render(m.ctrl.ScreenText()))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	return b.String()
}

func (m Model) statusLine() string {
	row, col := m.ctrl.Cursor()
	var state string
	switch {
	case m.ctrl.IsConnected():
		state = m.styles.Connected.Render("connected")
	case m.ctrl.IsConnecting():
		state = m.spinner.View() + m.styles.Connecting.Render(" connecting")
	default:
		state = m.styles.Disconnected.Render("disconnected")
	}

	line := fmt.Sprintf("%s  %d,%d", state, row, col)
	if m.lastErr != nil {
		line += "  " + m.styles.Error.Render(m.lastErr.Error())
	}
	return m.styles.StatusBar.Width(m.width).Render(line)
}
