// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/width"

	"github.com/jeranaias/phonegate-tui/internal/ui/styles"
)

// =============================================================================
// DIGIT FIELD
// =============================================================================

// DigitField collects up to Max decimal digits. It renders one slot per
// digit, optionally grouped, behind a fixed prefix such as "+91".
type DigitField struct {
	Label  string
	Prefix string
	Hint   string

	max     int
	groups  []int
	value   []byte
	focused bool
	masked  bool
	theme   *styles.Theme
}

// NewDigitField creates a field holding at most max digits.
func NewDigitField(theme *styles.Theme, label string, max int) *DigitField {
	return &DigitField{Label: label, max: max, theme: theme}
}

// SetGroups splits the slots visually, e.g. 5,5 for a phone number.
func (f *DigitField) SetGroups(groups ...int) {
	f.groups = groups
}

// SetMasked renders entered digits as '*'.
func (f *DigitField) SetMasked(masked bool) {
	f.masked = masked
}

// Focus gives the field keyboard input.
func (f *DigitField) Focus() { f.focused = true }

// Blur removes keyboard input.
func (f *DigitField) Blur() { f.focused = false }

// Focused reports whether the field takes input.
func (f *DigitField) Focused() bool { return f.focused }

// Max returns the slot count.
func (f *DigitField) Max() int { return f.max }

// Value returns the entered digits.
func (f *DigitField) Value() string { return string(f.value) }

// Len returns the number of entered digits.
func (f *DigitField) Len() int { return len(f.value) }

// Full reports whether every slot is filled.
func (f *DigitField) Full() bool { return len(f.value) >= f.max }

// SetValue replaces the contents, keeping only digits up to Max.
func (f *DigitField) SetValue(s string) {
	f.value = f.value[:0]
	f.insert(s)
}

// Reset clears the field.
func (f *DigitField) Reset() {
	f.value = f.value[:0]
}

func (f *DigitField) insert(s string) bool {
	changed := false
	for _, r := range FoldDigits(s) {
		if r < '0' || r > '9' {
			continue
		}
		if len(f.value) >= f.max {
			break
		}
		f.value = append(f.value, byte(r))
		changed = true
	}
	return changed
}

// Update applies a key press. It reports whether the value changed.
// Keys it does not handle are left to the caller.
func (f *DigitField) Update(msg tea.Msg) bool {
	if !f.focused {
		return false
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return false
	}

	switch key.Type {
	case tea.KeyRunes, tea.KeySpace:
		return f.insert(string(key.Runes))
	case tea.KeyBackspace, tea.KeyDelete:
		if len(f.value) == 0 {
			return false
		}
		f.value = f.value[:len(f.value)-1]
		return true
	case tea.KeyCtrlU:
		if len(f.value) == 0 {
			return false
		}
		f.Reset()
		return true
	}
	return false
}

// View renders the label, prefix and slots.
func (f *DigitField) View() string {
	var b strings.Builder

	if f.Label != "" {
		b.WriteString(f.theme.Label.Render(f.Label))
		b.WriteString("\n")
	}
	if f.Prefix != "" {
		b.WriteString(f.theme.Prefix.Render(f.Prefix))
		b.WriteString(" ")
	}

	bounds := f.groupBounds()
	for i := 0; i < f.max; i++ {
		if bounds[i] {
			b.WriteString(" ")
		}
		switch {
		case i < len(f.value):
			ch := string(f.value[i])
			if f.masked {
				ch = "*"
			}
			b.WriteString(f.theme.DigitFilled.Render(ch))
		case i == len(f.value) && f.focused:
			b.WriteString(f.theme.DigitCursor.Render("_"))
		default:
			b.WriteString(f.theme.DigitEmpty.Render("_"))
		}
	}

	if f.Hint != "" {
		b.WriteString("\n")
		b.WriteString(f.theme.Hint.Render(f.Hint))
	}
	return b.String()
}

// groupBounds marks slot indexes that start a new group.
func (f *DigitField) groupBounds() map[int]bool {
	bounds := make(map[int]bool)
	pos := 0
	for i, g := range f.groups {
		if i > 0 {
			bounds[pos] = true
		}
		pos += g
	}
	return bounds
}

// FoldDigits folds full-width forms in s to ASCII and trims surrounding
// space. Other characters are kept, so "98765abc43210" still fails
// validation.
func FoldDigits(s string) string {
	return strings.TrimSpace(width.Fold.String(s))
}
