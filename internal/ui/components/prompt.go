// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/phonegate-tui/internal/ui/styles"
)

// PromptResult is the outcome of a key press on an open prompt.
type PromptResult int

const (
	PromptPending PromptResult = iota
	PromptSubmitted
	PromptDismissed
)

// Prompt is a modal single-line entry box.
type Prompt struct {
	Title   string
	Message string

	input  textinput.Model
	active bool
	theme  *styles.Theme
}

// NewPrompt creates a closed prompt.
func NewPrompt(theme *styles.Theme) *Prompt {
	ti := textinput.New()
	ti.Placeholder = "paste here"
	ti.CharLimit = 4096
	ti.Width = 40
	ti.Prompt = "> "
	return &Prompt{input: ti, theme: theme}
}

// Open shows the prompt with an empty entry.
func (p *Prompt) Open(title, message string) tea.Cmd {
	p.Title = title
	p.Message = message
	p.active = true
	p.input.SetValue("")
	return p.input.Focus()
}

// Close hides the prompt.
func (p *Prompt) Close() {
	p.active = false
	p.input.Blur()
	p.input.SetValue("")
}

// Active reports whether the prompt is showing.
func (p *Prompt) Active() bool { return p.active }

// Value returns the trimmed entry.
func (p *Prompt) Value() string {
	return strings.TrimSpace(p.input.Value())
}

// SetWidth sizes the entry to the available columns.
func (p *Prompt) SetWidth(w int) {
	w -= 12
	if w < 20 {
		w = 20
	}
	if w > 60 {
		w = 60
	}
	p.input.Width = w
}

// Update handles a message while the prompt is open. Enter submits, Esc
// dismisses; the prompt stays open until the caller closes it.
func (p *Prompt) Update(msg tea.Msg) (PromptResult, tea.Cmd) {
	if !p.active {
		return PromptPending, nil
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			return PromptSubmitted, nil
		case tea.KeyEsc:
			return PromptDismissed, nil
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return PromptPending, cmd
}

// View renders the modal box.
func (p *Prompt) View() string {
	if !p.active {
		return ""
	}
	hint := p.theme.Hint.Render("enter: submit  esc: cancel")
	body := lipgloss.JoinVertical(lipgloss.Left,
		p.theme.ModalTitle.Render(styles.StatusIndicators.Warning+" "+p.Title),
		"",
		p.theme.ModalText.Render(p.Message),
		"",
		p.input.View(),
		"",
		hint,
	)
	return p.theme.ModalBox.Render(body)
}
