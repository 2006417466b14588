// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// outbox_cmd.go - Shows codes the local provider wrote to its outbox.

package cli

import (
	"fmt"
	"time"

	"github.com/jeranaias/phonegate-tui/internal/identity/local"
)

// HandleOutbox lists recent deliveries, newest last.
func HandleOutbox(args Args) error {
	cfg, err := loadConfig("outbox")
	if err != nil {
		return err
	}
	path, err := cfg.OutboxPath()
	if err != nil {
		return NewCommandError("outbox", "locate", "cannot locate data directory", err)
	}

	data, err := collectOutbox(path, args.Lines, args.Reveal)
	if err != nil {
		return NewCommandError("outbox", "read", "cannot read outbox", err)
	}

	if args.JSON {
		return NewJSONResponse("outbox", data).Print()
	}

	if cfg.Identity.Provider != local.Name || cfg.Local.Sender != "outbox" {
		fmt.Println(WarningStyle.Render("The outbox is only written by the local provider with sender \"outbox\"."))
	}
	if len(data.Deliveries) == 0 {
		fmt.Println(DimStyle.Render("No codes delivered yet (" + path + ")."))
		return nil
	}

	fmt.Println(TitleStyle.Render("Delivered codes"))
	for _, d := range data.Deliveries {
		fmt.Printf("  %s  %-16s %s\n", DimStyle.Render(d.At), d.Phone, SuccessStyle.Render(d.Code))
	}
	fmt.Println()
	return nil
}

func collectOutbox(path string, n int, reveal bool) (OutboxData, error) {
	deliveries, err := local.ReadOutbox(path, n)
	if err != nil {
		return OutboxData{}, err
	}
	data := OutboxData{Path: path, Deliveries: make([]OutboxMessage, 0, len(deliveries))}
	for _, d := range deliveries {
		data.Deliveries = append(data.Deliveries, OutboxMessage{
			Phone: displayPhone(d.Phone, reveal),
			Code:  d.Code,
			At:    d.At.Local().Format(time.DateTime),
		})
	}
	return data, nil
}
