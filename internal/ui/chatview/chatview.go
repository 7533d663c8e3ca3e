// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatview implements the conversation screen: a scrollable
// transcript, an input line, prompt suggestions for an empty conversation,
// and a help overlay.
package chatview

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verniz/verniz-tui/internal/api"
	"github.com/verniz/verniz-tui/internal/auth"
	"github.com/verniz/verniz-tui/internal/chat"
	"github.com/verniz/verniz-tui/internal/config"
	"github.com/verniz/verniz-tui/internal/ui/styles"
)

const sendTimeout = 120 * time.Second

// suggestions are the prompts offered on an empty transcript.
var suggestions = []string{
	"Quero pintar meu quarto",
	"Tinta para fachada externa",
	"Qual cor combina com sala?",
	"Tinta lavável para cozinha",
}

// SessionExpiredMsg tells the parent model to return to the login screen.
type SessionExpiredMsg struct{}

// LoggedOutMsg tells the parent model the user signed out.
type LoggedOutMsg struct{}

// sendDoneMsg reports a finished send, successful or not.
type sendDoneMsg struct {
	err error
}

// Model is the chat screen state.
type Model struct {
	theme *styles.Theme
	ui    config.UIConfig

	state *chat.State
	auth  *auth.Store

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	// suggestion selection; -1 means none.
	suggestion int

	showHelp bool
	helpText string

	width  int
	height int
	ready  bool
}

// New creates the chat screen.
func New(theme *styles.Theme, ui config.UIConfig, state *chat.State, authStore *auth.Store) Model {
	input := textinput.New()
	input.Placeholder = "Ask about paints, colors, finishes..."
	input.PlaceholderStyle = theme.InputPlaceholder
	input.CharLimit = 2000
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = theme.Spinner

	return Model{
		theme:      theme,
		ui:         ui,
		state:      state,
		auth:       authStore,
		input:      input,
		spin:       spin,
		suggestion: -1,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.layout()
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sendDoneMsg:
		m.refreshTranscript()
		if errors.Is(msg.err, api.ErrSessionExpired) {
			return m, func() tea.Msg { return SessionExpiredMsg{} }
		}
		return m, nil

	case spinner.TickMsg:
		if m.state.Snapshot().Loading {
			// The in-flight user message lands here, one tick after send.
			m.refreshTranscript()
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes the overlay.
		m.showHelp = false
		return m, nil
	}

	loading := m.state.Snapshot().Loading

	switch msg.String() {
	case "f1", "ctrl+_":
		m.showHelp = true
		m.renderHelp()
		return m, nil

	case "ctrl+l":
		if loading {
			return m, nil
		}
		m.state.Clear()
		m.suggestion = -1
		m.refreshTranscript()
		return m, nil

	case "ctrl+d":
		if loading {
			return m, nil
		}
		return m, logoutCmd(m.auth)

	case "tab":
		if m.suggestionsVisible() {
			m.suggestion = (m.suggestion + 1) % len(suggestions)
			return m, nil
		}

	case "esc":
		if m.suggestion >= 0 {
			m.suggestion = -1
			return m, nil
		}

	case "enter":
		if loading {
			// Input is disabled while a send is in flight.
			return m, nil
		}
		text := m.input.Value()
		if m.suggestion >= 0 {
			text = suggestions[m.suggestion]
			m.suggestion = -1
		}
		m.input.SetValue("")
		cmd := sendCmd(m.state, text)
		if cmd == nil {
			return m, nil
		}
		return m, tea.Batch(m.spin.Tick, cmd)

	case "pgup":
		m.viewport.HalfViewUp()
		return m, nil
	case "pgdown":
		m.viewport.HalfViewDown()
		return m, nil
	}

	if loading {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// suggestionsVisible reports whether the chips are on screen.
func (m Model) suggestionsVisible() bool {
	return m.ui.Suggestions && m.state.Len() == 0
}

// sendCmd relays the message through the transcript state off the event
// loop. Returns nil for blank input so no spinner is started.
func sendCmd(state *chat.State, text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		return sendDoneMsg{err: state.SendMessage(ctx, text)}
	}
}

// logoutCmd signs out and tells the parent to switch screens.
func logoutCmd(authStore *auth.Store) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		authStore.Logout(ctx)
		return LoggedOutMsg{}
	}
}
