// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/phonegate-tui/internal/ui/styles"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// =============================================================================
// DIGIT FIELD
// =============================================================================

func TestFoldDigits(t *testing.T) {
	tests := []struct{ in, want string }{
		{"9876543210", "9876543210"},
		{" 9876543210\n", "9876543210"},
		{"９８７６５", "98765"},
		{"９８７６５ ４３２１０", "98765 43210"},
		{"98765abc43210", "98765abc43210"},
		{"+91-98765", "+91-98765"},
		{"٣٤٥", "٣٤٥"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FoldDigits(tt.in), tt.in)
	}
}

func TestDigitField_Typing(t *testing.T) {
	f := NewDigitField(styles.NewTheme("dark"), "Phone number", 10)

	assert.False(t, f.Update(runes("1")), "blurred field ignores keys")
	f.Focus()

	assert.True(t, f.Update(runes("98765")))
	assert.False(t, f.Update(runes("x")))
	assert.True(t, f.Update(runes("４３２１０99")), "paste folds and truncates")
	assert.Equal(t, "9876543210", f.Value())
	assert.True(t, f.Full())

	assert.True(t, f.Update(tea.KeyMsg{Type: tea.KeyBackspace}))
	assert.Equal(t, "987654321", f.Value())

	assert.True(t, f.Update(tea.KeyMsg{Type: tea.KeyCtrlU}))
	assert.Equal(t, 0, f.Len())
	assert.False(t, f.Update(tea.KeyMsg{Type: tea.KeyBackspace}))
	assert.False(t, f.Update(tea.KeyMsg{Type: tea.KeyEnter}), "enter is left to the caller")
}

func TestDigitField_View(t *testing.T) {
	f := NewDigitField(styles.NewTheme("dark"), "Code", 6)
	f.Prefix = "+91"
	f.Hint = "sent by SMS"
	f.SetGroups(3, 3)
	f.SetValue("123")

	view := f.View()
	assert.Contains(t, view, "Code")
	assert.Contains(t, view, "+91")
	assert.Contains(t, view, "sent by SMS")
	assert.Contains(t, view, "1")

	f.SetMasked(true)
	assert.NotContains(t, f.View(), "123")
}

// =============================================================================
// PROMPT
// =============================================================================

func TestPrompt_SubmitAndDismiss(t *testing.T) {
	p := NewPrompt(styles.NewTheme("dark"))
	res, _ := p.Update(runes("x"))
	assert.Equal(t, PromptPending, res, "closed prompt ignores input")

	p.Open("Verify you are human", "Paste the token.")
	assert.True(t, p.Active())
	assert.Contains(t, p.View(), "Verify you are human")

	p.Update(runes(" tok-123 "))
	res, _ = p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, PromptSubmitted, res)
	assert.Equal(t, "tok-123", p.Value())

	res, _ = p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, PromptDismissed, res)

	p.Close()
	assert.False(t, p.Active())
	assert.Empty(t, p.View())
	assert.Empty(t, p.Value())
}

// =============================================================================
// TOASTS
// =============================================================================

func TestToastManager(t *testing.T) {
	m := NewToastManager()
	first := m.AddError("Error", "Invalid phone number")
	second := m.AddSuccess("Success", "OTP sent to your phone number!")
	assert.NotEqual(t, first, second)

	toasts := m.Toasts()
	assert.Len(t, toasts, 2)
	assert.Equal(t, "Success", toasts[0].Title, "newest first")

	m.AddStatus("a", "")
	m.AddStatus("b", "")
	assert.Len(t, m.Toasts(), 3, "capped")

	m.Dismiss()
	assert.Equal(t, "a", m.Toasts()[0].Title)

	m.Clear()
	assert.False(t, m.Tick())
}

func TestToastExpiry(t *testing.T) {
	m := NewToastManager()
	toast := NewToast(ToastKindStatus, "old", "")
	toast.CreatedAt = time.Now().Add(-time.Minute)
	m.Add(toast)
	m.AddStatus("fresh", "")

	assert.True(t, m.Tick())
	assert.Len(t, m.Toasts(), 1)
	assert.Equal(t, "fresh", m.Toasts()[0].Title)
}

func TestRenderToast(t *testing.T) {
	out := RenderToast(NewToast(ToastKindError, "Error", "Invalid phone number"), 80)
	assert.Contains(t, out, styles.StatusIndicators.Error)
	assert.Contains(t, out, "Invalid phone number")
	assert.Empty(t, RenderToastStack(nil, 80))
}

func TestWrapText(t *testing.T) {
	out := wrapText("Please enter a valid 10-digit phone number", 16)
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len(line), 16, line)
	}
	assert.Equal(t, "short", wrapText("short", 0))
}

// =============================================================================
// HEADER, SHORTCUTS, SPINNER
// =============================================================================

func TestHeader_FitsWidth(t *testing.T) {
	h := NewHeader(styles.NewTheme("dark"))
	h.Provider = "firebase (project-with-a-very-long-identifier)"
	h.Platform = "native"
	h.Badge = BadgeSignedOut

	for _, w := range []int{30, 50, 100} {
		h.SetWidth(w)
		view := h.View()
		assert.LessOrEqual(t, lipgloss.Width(view), w)
		assert.Contains(t, view, "SIGNED OUT")
	}
	h.Badge = BadgeSignedIn
	assert.Contains(t, h.View(), "SIGNED IN")
}

func TestShortcutBar_DropsOverflow(t *testing.T) {
	theme := styles.NewTheme("dark")
	bar := ShortcutBar(theme, 24,
		Shortcut{"enter", "send code"},
		Shortcut{"ctrl+c", "quit"},
		Shortcut{"esc", "change number"},
	)
	assert.Contains(t, bar, "enter")
	assert.NotContains(t, bar, "change number")
}

func TestSpinner(t *testing.T) {
	s := NewSpinner(styles.LineSpinner, "Sending code")
	assert.Empty(t, s.View())
	assert.Equal(t, time.Duration(0), s.Elapsed())

	cmd := s.Start()
	assert.NotNil(t, cmd)
	assert.True(t, s.IsActive())
	assert.Contains(t, s.View(), "Sending code")

	s.Stop()
	_, cmd = s.Update(nil)
	assert.Nil(t, cmd)
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "0.5s", formatElapsed(500*time.Millisecond))
	assert.Equal(t, "1m05s", formatElapsed(65*time.Second))
}
