// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/phonegate-tui/internal/bootstrap"
	"github.com/jeranaias/phonegate-tui/internal/config"
	"github.com/jeranaias/phonegate-tui/internal/ui/styles"
)

// Run shows the full-screen UI for a until the user quits. The caller owns a
// and closes it afterwards.
func Run(a *bootstrap.App) error {
	if err := config.EnsureConfigDir(); err == nil {
		if path, err := config.LogPath(); err == nil {
			if f, err := tea.LogToFile(path, "phonegate"); err == nil {
				defer f.Close()
			}
		}
	}

	cfg := a.Config
	hint := ""
	if a.OutboxPath != "" && cfg.UI.ShowOutboxHint {
		hint = fmt.Sprintf("Codes are written to %s (phonegate outbox).", a.OutboxPath)
	}

	m := New(Options{
		Provider:      a.Provider,
		Controller:    a.NewController(),
		Theme:         styles.NewTheme(cfg.UI.Theme),
		Start:         a.Start,
		ProviderLabel: a.ProviderName,
		PlatformLabel: a.Platform.String(),
		OutboxHint:    hint,
	})
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if modal := a.Modal(); modal != nil {
		modal.SetPrompter(Prompter(p.Send))
	}

	log.Printf("TUI_START | provider=%s platform=%s", a.ProviderName, a.Platform)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run UI: %w", err)
	}
	log.Printf("TUI_EXIT | route=%s", m.Route())
	return nil
}
