// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI commands of
// phonegate.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global and command-specific flags
//   - JSONResponse: Output envelope for --json
//   - CommandError, ValidationError, NotFoundError: typed failures mapped to
//     exit codes by GetExitCode
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdLogin:
//	    err = cli.HandleLogin(args)
//	// ... other commands
//	}
//	cli.HandleErrorAndExit(err, args.JSON)
//
// # Commands
//
//   - login: line-mode sign-in through the same flow controller as the TUI
//   - logout: end the session
//   - status: session, provider and file locations
//   - config: show|path|init|get|set
//   - outbox: codes written by the local provider
//   - help: markdown guide
package cli
