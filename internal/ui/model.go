// ABOUTME: Bubbletea model for the bridge TUI
// ABOUTME: Shows buffer fill and underrun/overrun counters, and drives volume, mute and flush
package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/glebpom/shairport/pkg/audio/output"
)

// refreshInterval is how often counters are re-read
const refreshInterval = 250 * time.Millisecond

// volumeStep is the change per arrow key press
const volumeStep = 0.05

// Controls is the output surface the TUI reads and drives
type Controls interface {
	Volume() float32
	SetVolume(volume float32)
	IsMuted() bool
	SetMuted(muted bool)
	Flush()
	Stats() output.Stats
}

// Model represents the TUI state
type Model struct {
	controls Controls

	// Setup
	engine     string
	sampleRate int
	listen     string

	// Stream
	stream string
	origin string

	// Counters
	stats output.Stats

	quitting bool
	quitChan chan struct{}

	// Dimensions
	width  int
	height int
}

type tickMsg time.Time

// StatusMsg updates TUI state pushed from the app
type StatusMsg struct {
	Engine     string
	SampleRate int
	Listen     string

	// Stream is the active session id; Idle clears it
	Stream string
	Origin string
	Idle   bool
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.refresh()
		return m, tickEvery()
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		select {
		case m.quitChan <- struct{}{}:
		default:
		}
		return m, tea.Quit
	case "up":
		m.stepVolume(volumeStep)
	case "down":
		m.stepVolume(-volumeStep)
	case "m":
		if m.controls != nil {
			m.controls.SetMuted(!m.controls.IsMuted())
		}
	case "f":
		if m.controls != nil {
			m.controls.Flush()
		}
	}

	m.refresh()
	return m, nil
}

func (m *Model) stepVolume(delta float32) {
	if m.controls == nil {
		return
	}
	v := m.controls.Volume() + delta
	// snap to the step grid so repeated presses land on round values
	v = float32(math.Round(float64(v)/volumeStep) * volumeStep)
	m.controls.SetVolume(v)
}

func (m *Model) refresh() {
	if m.controls != nil {
		m.stats = m.controls.Stats()
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Engine != "" {
		m.engine = msg.Engine
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
	}
	if msg.Listen != "" {
		m.listen = msg.Listen
	}
	if msg.Idle {
		m.stream = ""
		m.origin = ""
	} else if msg.Stream != "" {
		m.stream = msg.Stream
		m.origin = msg.Origin
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))
)

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Shutting down bridge...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("shairport bridge"))
	b.WriteString("\n\n")

	field(&b, "Client: ", fmt.Sprintf("%s (%s, %s)", m.stats.ClientName, m.engine, m.stats.State))
	field(&b, "Format: ", fmt.Sprintf("%dHz stereo 16-bit", m.sampleRate))
	if m.listen != "" {
		field(&b, "Listen: ", m.listen)
	}
	switch {
	case m.stream != "" && m.origin != "":
		field(&b, "Stream: ", fmt.Sprintf("%s from %s", truncate(m.stream, 8), m.origin))
	case m.stream != "":
		field(&b, "Stream: ", truncate(m.stream, 8))
	default:
		field(&b, "Stream: ", "idle")
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Buffer: "))
	b.WriteString(renderBar(m.stats.BufferedBytes, m.stats.Capacity, 20))
	b.WriteString(valueStyle.Render(fmt.Sprintf(" %s", m.stats.BufferedDuration(m.sampleRate).Round(time.Millisecond))))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Volume: "))
	b.WriteString(renderBar(int(m.stats.Volume*100+0.5), 100, 20))
	b.WriteString(valueStyle.Render(fmt.Sprintf(" %d%%", int(m.stats.Volume*100+0.5))))
	if m.stats.Muted {
		b.WriteString(warnStyle.Render(" muted"))
	}
	b.WriteString("\n\n")

	underruns := fmt.Sprintf("%d (%d silent frames)", m.stats.Underruns, m.stats.SilentFrames)
	overruns := fmt.Sprintf("%d (%d bytes dropped)", m.stats.Overruns, m.stats.DroppedBytes)
	field(&b, "Underruns: ", underruns)
	field(&b, "Overruns:  ", overruns)
	field(&b, "Rendered:  ", fmt.Sprintf("%d frames", m.stats.RenderedFrames))

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("↑/↓:Volume  m:Mute  f:Flush  q:Quit"))

	return b.String()
}

func field(b *strings.Builder, name, value string) {
	b.WriteString(headerStyle.Render(name))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := 0
	if max > 0 {
		filled = min((value*width)/max, width)
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length]
}
