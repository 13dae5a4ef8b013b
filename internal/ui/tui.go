// ABOUTME: TUI initialization and control channels
// ABOUTME: Wraps the bubbletea program that shows blobctl's session status
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// VolumeChangeMsg carries a volume or mute change from the keyboard
type VolumeChangeMsg struct {
	Volume int
	Muted  bool
}

// Controls holds channels for keyboard-driven playback control
type Controls struct {
	Volume chan VolumeChangeMsg
	Pause  chan bool
	Quit   chan struct{}
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Volume: make(chan VolumeChangeMsg, 10),
		Pause:  make(chan bool, 10),
		Quit:   make(chan struct{}),
	}
}

// NewModel creates a new TUI model
func NewModel(ctrl *Controls, volume int) Model {
	return Model{
		volume:   min(max(volume, 0), 100),
		controls: ctrl,
	}
}

// NewProgram builds the TUI on the alternate screen. The caller runs it
// and feeds it StatusMsg values through Send.
func NewProgram(ctrl *Controls, volume int) *tea.Program {
	return tea.NewProgram(NewModel(ctrl, volume), tea.WithAltScreen())
}
