// ABOUTME: Bubbletea model for the blobctl TUI
// ABOUTME: Tracks bridge, login, playlist, and playback state and renders it
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	innerWidth = 52
	volumeStep = 5
)

var (
	stateStyle = lipgloss.NewStyle().Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Model represents the TUI state
type Model struct {
	// Bridge
	connected bool
	remote    string

	// Login
	user       string
	loggedIn   bool
	loginError string

	playlists []string

	// Stream
	track      string
	sampleRate int
	channels   int
	bytes      int64
	played     time.Duration
	finished   bool

	// Playback
	volume int
	muted  bool
	paused bool

	lastError string

	controls *Controls

	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}
	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderPlaylists())
	b.WriteString(m.renderStream())
	b.WriteString(m.renderControls())
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderHeader() string {
	bridge := "Waiting for bridge"
	if m.connected {
		bridge = "Connected " + m.remote
	}
	login, style := "-", lipgloss.NewStyle()
	switch {
	case m.loginError != "":
		login, style = "Failed: "+m.loginError, errorStyle
	case m.loggedIn:
		login = "Logged in as " + m.user
	case m.connected:
		login = "Logging in..."
	}
	return "┌─ blobctl " + strings.Repeat("─", innerWidth-8) + "┐\n" +
		row("Bridge: "+bridge) +
		styledRow(style, "Login:  "+login) +
		divider()
}

func (m Model) renderPlaylists() string {
	if len(m.playlists) == 0 {
		return row("No playlists")
	}
	s := row(fmt.Sprintf("Playlists (%d):", len(m.playlists)))
	for i, name := range m.playlists {
		if i == 5 {
			s += row(fmt.Sprintf("  ... %d more", len(m.playlists)-i))
			break
		}
		s += row("  " + name)
	}
	return s
}

func (m Model) renderStream() string {
	s := divider()
	if m.track == "" {
		return s + row("Nothing playing")
	}
	state := "Playing"
	switch {
	case m.finished:
		state = "Finished"
	case m.paused:
		state = "Paused"
	}
	s += styledRow(stateStyle, state+": "+m.track)
	if m.sampleRate != 0 {
		s += row(fmt.Sprintf("Format: %dHz %s 16-bit", m.sampleRate, channelName(m.channels)))
	}
	s += row(fmt.Sprintf("Played: %s (%d bytes)", m.played.Truncate(time.Second), m.bytes))
	return s
}

func (m Model) renderControls() string {
	mute := ""
	if m.muted {
		mute = " (muted)"
	}
	s := row(fmt.Sprintf("Volume: [%s] %d%%%s", renderBar(m.volume, 100, 10), m.volume, mute))
	if m.lastError != "" {
		s += styledRow(errorStyle, "Error: "+m.lastError)
	}
	return s
}

func (m Model) renderHelp() string {
	return divider() +
		row("space:Pause  ↑/↓:Volume  m:Mute  q:Quit") +
		"└" + strings.Repeat("─", innerWidth+2) + "┘\n"
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.controls != nil {
			close(m.controls.Quit)
			m.controls = nil
		}
		return m, tea.Quit
	case "up":
		m.volume = min(m.volume+volumeStep, 100)
		m.sendVolume()
	case "down":
		m.volume = max(m.volume-volumeStep, 0)
		m.sendVolume()
	case "m":
		m.muted = !m.muted
		m.sendVolume()
	case " ":
		if m.track == "" || m.finished {
			break
		}
		m.paused = !m.paused
		if m.controls != nil {
			select {
			case m.controls.Pause <- m.paused:
			default:
			}
		}
	}
	return m, nil
}

func (m Model) sendVolume() {
	if m.controls == nil {
		return
	}
	select {
	case m.controls.Volume <- VolumeChangeMsg{Volume: m.volume, Muted: m.muted}:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Connected != nil {
		m.connected = *msg.Connected
	}
	if msg.Remote != "" {
		m.remote = msg.Remote
	}
	if msg.User != "" {
		m.user = msg.User
	}
	if msg.LoggedIn != nil {
		m.loggedIn = *msg.LoggedIn
		if m.loggedIn {
			m.loginError = ""
		}
	}
	if msg.LoginError != "" {
		m.loginError = msg.LoginError
		m.loggedIn = false
	}
	if msg.Playlists != nil {
		m.playlists = msg.Playlists
	}
	if msg.Track != "" {
		m.track = msg.Track
		m.finished = false
		m.paused = false
		m.bytes, m.played = 0, 0
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
	}
	if msg.Bytes != 0 {
		m.bytes = msg.Bytes
		m.played = msg.Played
	}
	if msg.Finished {
		m.finished = true
	}
	if msg.Error != "" {
		m.lastError = msg.Error
	}
}

// StatusMsg updates TUI state. Zero fields leave the model unchanged.
type StatusMsg struct {
	Connected  *bool
	Remote     string
	User       string
	LoggedIn   *bool
	LoginError string
	Playlists  []string
	Track      string
	SampleRate int
	Channels   int
	Bytes      int64
	Played     time.Duration
	Finished   bool
	Error      string
}

func row(text string) string {
	return styledRow(lipgloss.NewStyle(), text)
}

// styledRow styles the padded text so escapes never count toward width
func styledRow(style lipgloss.Style, text string) string {
	return "│ " + style.Render(pad(truncate(text, innerWidth), innerWidth)) + " │\n"
}

func divider() string {
	return "├" + strings.Repeat("─", innerWidth+2) + "┤\n"
}

func pad(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func renderBar(value, max, width int) string {
	filled := (value * width) / max
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}
