// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package login implements the login screen: a two-field credential form
// that authenticates through the session store and reports the outcome to
// the parent model.
package login

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verniz/verniz-tui/internal/api"
	"github.com/verniz/verniz-tui/internal/auth"
	"github.com/verniz/verniz-tui/internal/model"
	"github.com/verniz/verniz-tui/internal/ui/styles"
)

const loginTimeout = 30 * time.Second

// field indices for focus handling.
const (
	fieldUsername = iota
	fieldPassword
)

// SucceededMsg is emitted to the parent model after a successful login.
type SucceededMsg struct {
	Session model.Session
}

// failedMsg carries a login failure back to the form.
type failedMsg struct {
	err error
}

// Model is the login form state.
type Model struct {
	theme *styles.Theme
	auth  *auth.Store

	username textinput.Model
	password textinput.Model
	focused  int

	spin    spinner.Model
	loading bool
	errText string

	width  int
	height int
}

// New creates the login form.
func New(theme *styles.Theme, authStore *auth.Store) Model {
	username := textinput.New()
	username.Placeholder = "username"
	username.PlaceholderStyle = theme.InputPlaceholder
	username.CharLimit = 64
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.PlaceholderStyle = theme.InputPlaceholder
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = theme.Spinner

	return Model{
		theme:    theme,
		auth:     authStore,
		username: username,
		password: password,
		spin:     spin,
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
		return m, nil

	case tea.KeyMsg:
		if m.loading {
			// The form is frozen while a login is in flight.
			return m, nil
		}
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			// Two fields, so any direction toggles.
			m.setFocus((m.focused + 1) % 2)
			return m, nil
		case "enter":
			if m.focused == fieldUsername {
				m.setFocus(fieldPassword)
				return m, nil
			}
			return m.submit()
		}

	case failedMsg:
		m.loading = false
		m.errText = api.UserMessage(msg.err)
		m.setFocus(fieldUsername)
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.focused == fieldUsername {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *Model) setFocus(field int) {
	m.focused = field
	if field == fieldUsername {
		m.username.Focus()
		m.password.Blur()
	} else {
		m.password.Focus()
		m.username.Blur()
	}
}

// submit starts the login command when both fields are filled.
func (m Model) submit() (Model, tea.Cmd) {
	username := strings.TrimSpace(m.username.Value())
	password := m.password.Value()
	if username == "" || password == "" {
		m.errText = "Enter username and password."
		return m, nil
	}

	m.loading = true
	m.errText = ""
	return m, tea.Batch(m.spin.Tick, loginCmd(m.auth, username, password))
}

// loginCmd performs the authentication off the event loop.
func loginCmd(authStore *auth.Store, username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
		defer cancel()

		session, err := authStore.Login(ctx, model.Credentials{
			Username: username,
			Password: password,
		})
		if err != nil {
			return failedMsg{err: err}
		}
		return SucceededMsg{Session: session}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	t := m.theme

	var b strings.Builder
	b.WriteString(t.LoginTitle.Render("verniz"))
	b.WriteString("\n")
	b.WriteString(t.HeaderSubtitle.Render("paint advisory assistant"))
	b.WriteString("\n\n")

	b.WriteString(t.LoginLabel.Render("Username"))
	b.WriteString("\n")
	b.WriteString(m.username.View())
	b.WriteString("\n\n")
	b.WriteString(t.LoginLabel.Render("Password"))
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spin.View())
		b.WriteString(t.ThinkingText.Render(" signing in..."))
	case m.errText != "":
		b.WriteString(t.ErrorTitle.Render(m.errText))
	default:
		b.WriteString(t.LoginButton.Render("Sign in"))
		b.WriteString(t.ShortcutDesc.Render("  enter"))
	}

	box := t.LoginBox.Render(b.String())
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// Reset clears the form for reuse after a logout or session expiry.
func (m *Model) Reset() {
	m.username.SetValue("")
	m.password.SetValue("")
	m.errText = ""
	m.loading = false
	m.setFocus(fieldUsername)
}

// SetError displays a message on the form, used when the parent redirects
// here after a session expiry.
func (m *Model) SetError(text string) {
	m.errText = text
}
