// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/phonegate-tui/internal/phone"
	"github.com/jeranaias/phonegate-tui/internal/ui/components"
)

func (m *Model) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()
	case "p":
		m.showPhone = !m.showPhone
	case "x":
		m.toasts.Dismiss()
	case "l":
		// Navigation happens when the stream announces the sign-out.
		return m, signOutCmd(m.ctx, m.provider)
	}
	return m, nil
}

func (m *Model) homeView() (string, []components.Shortcut) {
	t := m.theme
	var b strings.Builder

	title := "Welcome back"
	if m.user != nil && m.user.IsNewUser {
		title = "Welcome"
	}
	b.WriteString(t.CardTitle.Render(title))
	b.WriteString("\n\n")

	if m.user != nil {
		number := phone.Mask(m.user.PhoneNumber)
		if m.showPhone {
			number = m.user.PhoneNumber
		}
		b.WriteString(t.Label.Render("Phone   ") + t.CardText.Render(number) + "\n")
		b.WriteString(t.Label.Render("User ID ") + t.CardText.Render(m.user.ID) + "\n")
		if !m.user.SignedInAt.IsZero() {
			b.WriteString(t.Label.Render("Since   ") + t.CardText.Render(m.user.SignedInAt.Local().Format("2006-01-02 15:04")) + "\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(t.SignedIn.Render("You are signed in."))

	shortcuts := []components.Shortcut{
		{Key: "p", Desc: "show number"},
		{Key: "l", Desc: "sign out"},
		{Key: "x", Desc: "dismiss"},
		{Key: "q", Desc: "quit"},
	}
	return t.Card.Width(m.cardWidth(52)).Render(b.String()), shortcuts
}
