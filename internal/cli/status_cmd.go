// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status_cmd.go - The status command.

package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/phonegate-tui/internal/bootstrap"
	"github.com/jeranaias/phonegate-tui/internal/config"
	"github.com/jeranaias/phonegate-tui/internal/identity"
	"github.com/jeranaias/phonegate-tui/internal/identity/firebase"
)

// HandleStatus shows the current session and how sign-in is wired.
func HandleStatus(args Args) error {
	a, err := openApp("status", bootstrap.Options{DisableAudit: true})
	if err != nil {
		return err
	}
	defer a.Close()

	session, sessErr := resolveSession(context.Background(), a)
	data := collectStatus(a, session, sessErr, args.Reveal)

	if args.JSON {
		return NewJSONResponse("status", data).Print()
	}
	printStatus(data)
	return nil
}

func collectStatus(a *bootstrap.App, s identity.Session, sessErr error, reveal bool) StatusData {
	var data StatusData

	data.Session.State = s.State.String()
	if sessErr != nil {
		data.Session.Error = sessErr.Error()
	}
	if s.State == identity.StateAuthenticated && s.User != nil {
		data.Session.UserID = s.User.ID
		data.Session.Phone = displayPhone(s.User.PhoneNumber, reveal)
		if !s.User.SignedInAt.IsZero() {
			data.Session.SignedInAt = s.User.SignedInAt.UTC().Format(time.RFC3339)
		}
	}

	cfg := a.Config
	data.Platform = StatusPlatformInfo{
		Provider:    a.ProviderName,
		Platform:    a.Platform.String(),
		Surface:     string(a.Surface.Kind()),
		Persistence: string(a.Backend),
		CountryCode: "+" + a.Normalizer.CountryCode(),
	}
	if a.ProviderName == firebase.Name {
		data.Platform.ProjectID = cfg.Firebase.ProjectID
		data.Platform.AuthDomain = cfg.Firebase.AuthDomain
	}

	data.Paths.Config, _ = config.ConfigPathTOML()
	data.Paths.Data, _ = cfg.DataDir()
	data.Paths.Log, _ = config.LogPath()
	if cfg.Audit.Enabled {
		data.Paths.Audit, _ = cfg.AuditPath()
	}
	data.Paths.Outbox = a.OutboxPath
	return data
}

func printStatus(d StatusData) {
	fmt.Println(TitleStyle.Render("phonegate status"))

	fmt.Println(SectionStyle.Render("Session"))
	switch d.Session.State {
	case identity.StateAuthenticated.String():
		fmt.Println(RenderField("State", RenderStatus("ok")+" signed in"))
		fmt.Println(RenderField("Phone", d.Session.Phone))
		fmt.Println(RenderField("User ID", d.Session.UserID))
		if d.Session.SignedInAt != "" {
			if t, err := time.Parse(time.RFC3339, d.Session.SignedInAt); err == nil {
				fmt.Println(RenderField("Since", formatSince(t, time.Now())))
			}
		}
	default:
		fmt.Println(RenderField("State", RenderStatus("signed out")+" signed out"))
	}
	if d.Session.Error != "" {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("  could not restore session: "+d.Session.Error))
	}

	fmt.Println(SectionStyle.Render("Sign-in"))
	fmt.Println(RenderField("Provider", d.Platform.Provider))
	fmt.Println(RenderField("Platform", d.Platform.Platform+" ("+d.Platform.Surface+" check)"))
	fmt.Println(RenderField("Country code", d.Platform.CountryCode))
	fmt.Println(RenderField("Persistence", d.Platform.Persistence))
	if d.Platform.ProjectID != "" {
		fmt.Println(RenderField("Project", d.Platform.ProjectID))
	}

	fmt.Println(SectionStyle.Render("Files"))
	fmt.Println(RenderField("Config", d.Paths.Config))
	fmt.Println(RenderField("Data", d.Paths.Data))
	fmt.Println(RenderField("Log", d.Paths.Log))
	if d.Paths.Audit != "" {
		fmt.Println(RenderField("Audit", d.Paths.Audit))
	}
	if d.Paths.Outbox != "" {
		fmt.Println(RenderField("Outbox", d.Paths.Outbox))
	}
	fmt.Println()
}
