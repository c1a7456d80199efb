// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and forwards status updates to it
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// TUI manages the bridge TUI
type TUI struct {
	program  *tea.Program
	updates  chan StatusMsg
	quitChan chan struct{}
}

// NewModel creates a new TUI model
func NewModel(controls Controls, quitChan chan struct{}) Model {
	m := Model{
		controls: controls,
		quitChan: quitChan,
	}
	m.refresh()
	return m
}

// New creates a TUI driving controls
func New(controls Controls) *TUI {
	t := &TUI{
		updates:  make(chan StatusMsg, 10),
		quitChan: make(chan struct{}, 1),
	}
	t.program = tea.NewProgram(NewModel(controls, t.quitChan), tea.WithAltScreen())
	return t
}

// Run blocks until the TUI exits
func (t *TUI) Run() error {
	go func() {
		for status := range t.updates {
			t.program.Send(status)
		}
	}()

	_, err := t.program.Run()
	return err
}

// Update sends a status update to the TUI
func (t *TUI) Update(status StatusMsg) {
	select {
	case t.updates <- status:
	default:
		// Don't block if channel is full
	}
}

// Stop stops the TUI
func (t *TUI) Stop() {
	t.program.Quit()
}

// QuitChan returns the channel that signals when user wants to quit
func (t *TUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
