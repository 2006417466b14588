// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/phonegate-tui/internal/ui/styles"
)

// Shortcut is one key hint.
type Shortcut struct {
	Key  string
	Desc string
}

// ShortcutBar renders key hints along the bottom of the screen. Hints that
// do not fit are dropped from the right.
func ShortcutBar(theme *styles.Theme, width int, shortcuts ...Shortcut) string {
	sep := theme.ShortcutDesc.Render("  ")
	var parts []string
	used := 0
	for _, s := range shortcuts {
		part := theme.ShortcutKey.Render(s.Key) + " " + theme.ShortcutDesc.Render(s.Desc)
		w := lipgloss.Width(part)
		if len(parts) > 0 {
			w += lipgloss.Width(sep)
		}
		if width > 0 && used+w > width-2 {
			break
		}
		parts = append(parts, part)
		used += w
	}
	bar := theme.StatusBar
	if width > 0 {
		bar = bar.Width(width)
	}
	return bar.Render(strings.Join(parts, sep))
}
