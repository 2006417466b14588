// phonegate - Phone number sign-in for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/phonegate-tui/internal/app"
	"github.com/jeranaias/phonegate-tui/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdTUI:
		err = runTUI()
	case cli.CmdLogin:
		err = cli.HandleLogin(args)
	case cli.CmdLogout:
		err = cli.HandleLogout(args)
	case cli.CmdStatus:
		err = cli.HandleStatus(args)
	case cli.CmdConfig:
		err = cli.HandleConfig(args)
	case cli.CmdOutbox:
		err = cli.HandleOutbox(args)
	case cli.CmdVersion:
		err = cli.HandleVersion(args)
	case cli.CmdHelp:
		err = cli.HandleHelp(args)
	default:
		unknownCommand(args)
	}

	cli.HandleErrorAndExit(err, args.JSON)
}

// runTUI starts the full-screen sign-in interface.
func runTUI() error {
	if err := cli.RequiresTTY("start the TUI"); err != nil {
		return err
	}
	a, err := cli.OpenApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return app.Run(a)
}

func unknownCommand(args cli.Args) {
	name := ""
	if len(args.Raw) > 0 {
		name = args.Raw[0]
	}
	fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
	if suggestion := cli.SuggestCommand(name); suggestion != "" {
		fmt.Fprintf(os.Stderr, "Did you mean: phonegate %s\n", suggestion)
	} else if strings.HasPrefix(name, "-") {
		fmt.Fprintln(os.Stderr, "Flags go after the command name.")
	}
	fmt.Fprintln(os.Stderr, "Run 'phonegate help' for usage.")
	os.Exit(cli.ExitUsageError)
}
