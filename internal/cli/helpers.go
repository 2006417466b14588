// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Helpers shared by the session commands.

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/phonegate-tui/internal/bootstrap"
	"github.com/jeranaias/phonegate-tui/internal/config"
	"github.com/jeranaias/phonegate-tui/internal/identity"
	"github.com/jeranaias/phonegate-tui/internal/phone"
)

// sessionTimeout bounds how long a command waits for the session to resolve.
const sessionTimeout = 15 * time.Second

// loadConfig loads the configuration for command.
func loadConfig(command string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, NewCommandError(command, "load config", "configuration is invalid", err)
	}
	return cfg, nil
}

// openApp loads the configuration and wires the application.
func openApp(command string, opts bootstrap.Options) (*bootstrap.App, error) {
	cfg, err := loadConfig(command)
	if err != nil {
		return nil, err
	}
	if opts.Interactive == nil {
		opts.Interactive = IsTTY
	}
	a, err := bootstrap.Build(cfg, opts)
	if err != nil {
		return nil, NewCommandError(command, "start", "could not set up sign-in", err)
	}
	return a, nil
}

// OpenApp wires the sign-in stack for the full-screen UI.
func OpenApp() (*bootstrap.App, error) {
	return openApp(CmdTUI.String(), bootstrap.Options{})
}

// resolveSession starts a and waits for the current session.
func resolveSession(ctx context.Context, a *bootstrap.App) (identity.Session, error) {
	if err := a.Start(ctx); err != nil {
		return identity.Unauthenticated(), err
	}
	ctx, cancel := context.WithTimeout(ctx, sessionTimeout)
	defer cancel()
	return a.CurrentSession(ctx)
}

// displayPhone masks number unless reveal is set.
func displayPhone(number string, reveal bool) string {
	if reveal {
		return number
	}
	return phone.Mask(number)
}

// formatDuration formats a time.Duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// formatSince renders t as "2006-01-02 15:04 (3h ago)".
func formatSince(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%s (%s ago)", t.Local().Format("2006-01-02 15:04"), formatDuration(now.Sub(t)))
}
