// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/verniz/verniz-tui/internal/api"
	"github.com/verniz/verniz-tui/internal/chat"
	"github.com/verniz/verniz-tui/internal/model"
	"github.com/verniz/verniz-tui/internal/render"
	"github.com/verniz/verniz-tui/internal/ui/styles"
	"github.com/verniz/verniz-tui/internal/util"
)

const helpMarkdown = `# verniz

A chat client for the paint advisory assistant.

## Keys

| Key | Action |
|-----|--------|
| enter | send message |
| tab | cycle prompt suggestions |
| ctrl+l | clear conversation |
| ctrl+d | sign out |
| pgup / pgdn | scroll transcript |
| f1 | this help |
| ctrl+c | quit |

Replies can include a simulation image; its link is shown under the message.
`

// layout recomputes component sizes after a resize.
func (m *Model) layout() {
	headerHeight := 1
	inputHeight := 3
	statusHeight := 1
	extra := 0
	if m.suggestionsVisible() {
		extra = 4
	}

	vpHeight := m.height - headerHeight - inputHeight - statusHeight - extra
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(m.width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}
	m.input.Width = m.width - 6
}

// refreshTranscript rebuilds the viewport content from the current
// snapshot and keeps the view pinned to the latest message.
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.theme.Container.Render(m.renderTranscript(m.state.Snapshot())))
	m.viewport.GotoBottom()
}

// renderTranscript renders every message plus the loading/error footer.
func (m *Model) renderTranscript(snap chat.Snapshot) string {
	var b strings.Builder

	for i, msg := range snap.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if snap.LastError != nil {
		b.WriteString("\n")
		b.WriteString(m.theme.ErrorBox.Render(
			m.theme.ErrorTitle.Render("Error: ") +
				m.theme.ErrorMessage.Render(api.UserMessage(snap.LastError))))
		b.WriteString("\n")
	}

	return b.String()
}

// renderMessage renders one transcript entry: sender line, markup body,
// and the extracted image link when present.
func (m *Model) renderMessage(msg model.Message) string {
	t := m.theme

	sender := t.SenderAssistant.Render(msg.Role.DisplayName())
	bubble := t.AssistantBubble
	if msg.Role == model.RoleUser {
		sender = t.SenderUser.Render(msg.Role.DisplayName())
		bubble = t.UserBubble
	}

	if m.ui.ShowTimestamps && msg.HasTimestamp() {
		sender += " " + t.Timestamp.Render(msg.Timestamp.Format("15:04"))
	}

	rendered := render.Render(msg.Content)
	body := MarkupToANSI(rendered.Markup)

	var b strings.Builder
	b.WriteString(sender)
	b.WriteString("\n")
	b.WriteString(body)
	if rendered.HasImage() {
		b.WriteString("\n")
		b.WriteString(t.ShortcutDesc.Render("image: "))
		b.WriteString(t.ImageLink.Render(rendered.ImageURL))
	}

	// Near-full width on narrow terminals, a readability cap on wide ones.
	width := m.width - 8
	switch m.theme.GetLayoutMode() {
	case styles.LayoutNarrow:
		width = m.width - 4
	case styles.LayoutWide:
		width = 96
	}
	if width < 20 {
		width = 20
	}
	return bubble.Width(width).Render(b.String())
}

// renderSuggestions renders the prompt chips for an empty transcript.
func (m *Model) renderSuggestions() string {
	t := m.theme

	// Chips that would overflow the row are not drawn; tab still cycles
	// the full list.
	chips := make([]string, 0, len(suggestions))
	used := 0
	for i, s := range suggestions {
		w := util.StringWidth(s) + 5 // border, padding and margin
		if used+w > m.width && len(chips) > 0 {
			break
		}
		used += w

		style := t.SuggestionChip
		if i == m.suggestion {
			style = t.SuggestionSelected
		}
		chips = append(chips, style.Render(s))
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top, chips...)
	hint := t.SuggestionHint.Render("tab to pick a suggestion, enter to send")
	return row + "\n" + hint
}

// renderHelp builds the glamour help overlay once per open.
func (m *Model) renderHelp() {
	width := m.width - 4
	if width < 40 {
		width = 40
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.helpText = helpMarkdown
		return
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		m.helpText = helpMarkdown
		return
	}
	m.helpText = out
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	if m.showHelp {
		return m.helpText + m.theme.ShortcutDesc.Render("  press any key to close")
	}

	t := m.theme
	snap := m.state.Snapshot()

	title := t.HeaderTitle.Render("verniz")
	subtitle := ""
	if session, ok := m.auth.Session(); ok {
		subtitle = t.HeaderSubtitle.Render(" " + session.User.Username)
	}
	header := t.Header.Width(m.width).Render(title + subtitle)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.suggestionsVisible() {
		b.WriteString(m.renderSuggestions())
		b.WriteString("\n")
	}

	if snap.Loading {
		b.WriteString(t.InputContainer.Width(m.width).Render(
			m.spin.View() + t.ThinkingText.Render(" thinking...")))
	} else {
		b.WriteString(t.InputContainer.Width(m.width).Render(
			t.InputPrompt.Render("> ") + m.input.View()))
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar(snap))

	return b.String()
}

// renderStatusBar renders the bottom shortcut/status line.
func (m *Model) renderStatusBar(snap chat.Snapshot) string {
	t := m.theme

	left := fmt.Sprintf("%s help  %s clear  %s sign out",
		t.ShortcutKey.Render("f1"),
		t.ShortcutKey.Render("ctrl+l"),
		t.ShortcutKey.Render("ctrl+d"))

	right := ""
	if n := len(snap.Messages); n > 0 {
		right = fmt.Sprintf("%d messages", n)
		if m.theme.GetLayoutMode() != styles.LayoutNarrow {
			right = snap.Messages[n-1].Preview(40) + "  " + right
		}
		right = t.ShortcutDesc.Render(util.TruncateWidth(right, m.width/2))
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return t.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}
