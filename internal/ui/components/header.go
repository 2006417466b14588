// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/phonegate-tui/internal/ui/styles"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// SessionBadge is the session state shown in the header.
type SessionBadge int

const (
	BadgeResolving SessionBadge = iota
	BadgeSignedOut
	BadgeSignedIn
)

// String returns the display string for the badge.
func (b SessionBadge) String() string {
	switch b {
	case BadgeSignedIn:
		return "SIGNED IN"
	case BadgeSignedOut:
		return "SIGNED OUT"
	default:
		return "..."
	}
}

// Header is the title bar.
type Header struct {
	Title    string
	Provider string
	Platform string
	Badge    SessionBadge
	Width    int
	theme    *styles.Theme
}

// NewHeader creates a header with default values.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{Title: "phonegate", Width: 80, theme: theme}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// View renders the header on one line: brand on the left, details and the
// session badge on the right. Details are truncated first on narrow screens.
func (h *Header) View() string {
	width := h.Width
	if width < 30 {
		width = 30
	}

	accent := lipgloss.NewStyle().Foreground(styles.Purple)
	brand := accent.Render("<") + h.theme.HeaderBrand.Render(h.Title) + accent.Render(">")
	badge := h.badgeStyle().Render("[" + h.Badge.String() + "]")

	var details []string
	if h.Provider != "" {
		details = append(details, h.Provider)
	}
	if h.Platform != "" {
		details = append(details, h.Platform)
	}
	detail := strings.Join(details, " | ")

	// Columns left for the details, after padding and separators.
	room := width - 2 - lipgloss.Width(brand) - lipgloss.Width(badge) - 2
	if room < 4 {
		detail = ""
	} else if runewidth.StringWidth(detail) > room {
		detail = runewidth.Truncate(detail, room, "...")
	}

	right := badge
	if detail != "" {
		right = h.theme.HeaderSubtitle.Render(detail) + " " + badge
	}
	gap := width - 2 - lipgloss.Width(brand) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return h.theme.Header.Width(width).Render(brand + strings.Repeat(" ", gap) + right)
}

func (h *Header) badgeStyle() lipgloss.Style {
	switch h.Badge {
	case BadgeSignedIn:
		return h.theme.SignedIn
	case BadgeSignedOut:
		return h.theme.SignedOut
	default:
		return h.theme.HeaderSubtitle
	}
}
