// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func TestNewTheme(t *testing.T) {
	for _, mode := range []string{"auto", "dark", "light"} {
		theme := NewTheme(mode)
		if theme == nil {
			t.Fatalf("NewTheme(%q) returned nil", mode)
		}
		if mode == "dark" && !theme.IsDark {
			t.Error("NewTheme(dark) should report a dark background")
		}
		if mode == "light" && theme.IsDark {
			t.Error("NewTheme(light) should not report a dark background")
		}
	}
}

func TestThemeInitStyles(t *testing.T) {
	theme := NewTheme("dark")

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", theme.Header},
		{"Card", theme.Card},
		{"Prefix", theme.Prefix},
		{"DigitFilled", theme.DigitFilled},
		{"Button", theme.Button},
		{"ModalBox", theme.ModalBox},
		{"StatusBar", theme.StatusBar},
	}
	for _, s := range styles {
		if !strings.Contains(s.style.Render("test"), "test") {
			t.Errorf("%s style should render its content", s.name)
		}
	}
}

func TestThemeGetLayoutMode(t *testing.T) {
	theme := NewTheme("dark")
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{0, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
	}
	for _, tt := range tests {
		theme.SetSize(tt.width, 24)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("GetLayoutMode() at width %d = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestSpinnerConfigDuration(t *testing.T) {
	if got := LineSpinner.Duration(); got != 100*time.Millisecond {
		t.Errorf("LineSpinner.Duration() = %v, want 100ms", got)
	}
	if got := (SpinnerConfig{}).Duration(); got != time.Second {
		t.Errorf("zero FPS should fall back to one second, got %v", got)
	}
	for _, cfg := range []SpinnerConfig{LineSpinner, DotsSpinner, PulseSpinner} {
		if len(cfg.Frames) == 0 {
			t.Error("spinner configs need frames")
		}
	}
}
