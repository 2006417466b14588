// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation for actions that overwrite or discard state.
//
//  1. If --confirm is present, proceed without prompting
//  2. In --json mode, require --confirm (no interactive prompts)
//  3. If stdin is not a TTY, require --confirm (can't prompt)
//  4. Otherwise, ask

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// confirmInput is where answers are read from. Replaced in tests.
var confirmInput io.Reader = os.Stdin

// RequireConfirmation checks if the user has confirmed action.
func RequireConfirmation(confirmFlag bool, action string, jsonMode bool) (bool, error) {
	if confirmFlag {
		return true, nil
	}
	if jsonMode {
		return false, &ValidationError{Field: "confirmation", Reason: "use --confirm to " + action + " in JSON mode"}
	}
	if err := RequiresTTY(action); err != nil {
		return false, err
	}

	fmt.Printf("Are you sure you want to %s? [y/N]: ", action)
	return readYes(confirmInput)
}

func readYes(r io.Reader) (bool, error) {
	input, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && input == "" {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes", nil
}

// ShowCancellationMessage displays a standard cancellation message.
func ShowCancellationMessage() {
	fmt.Println()
	fmt.Println(DimStyle.Render("Cancelled."))
	fmt.Println()
}
