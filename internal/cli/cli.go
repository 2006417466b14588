// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing for phonegate.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdLogout
	CmdStatus
	CmdConfig
	CmdOutbox
	CmdVersion
	CmdHelp
	CmdUnknown
)

// String returns the command name as typed.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdLogin:
		return "login"
	case CmdLogout:
		return "logout"
	case CmdStatus:
		return "status"
	case CmdConfig:
		return "config"
	case CmdOutbox:
		return "outbox"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool // Output in JSON format
	Confirm bool // Skip confirmation prompts

	// Command-specific
	Subcommand string
	ConfigKey  string
	ConfigVal  string
	Phone      string // login --phone
	Lines      int    // outbox --lines
	Reveal     bool   // outbox/status --reveal: show full phone numbers

	// Raw args (remaining after flag parsing)
	Raw []string

	// Options holds command-specific named options
	Options map[string]string
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("phonegate version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// HandleVersion prints version information, as JSON when requested.
func HandleVersion(args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print()
	}
	PrintVersion()
	return nil
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses command-line arguments and returns the command and args.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "login", "signin":
		parseLoginArgs(&parsedArgs, remaining)
		return CmdLogin, parsedArgs

	case "logout", "signout":
		return CmdLogout, parsedArgs

	case "status", "s":
		parseRevealArgs(&parsedArgs, remaining)
		return CmdStatus, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "outbox":
		parseOutboxArgs(&parsedArgs, remaining)
		return CmdOutbox, parsedArgs

	case "version", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdHelp, parsedArgs

	default:
		parsedArgs.Raw = append([]string{cmd}, remaining...)
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	parsedArgs := Args{
		Options: make(map[string]string),
	}

	for _, arg := range args {
		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "-y", "--confirm", "--yes":
			parsedArgs.Confirm = true
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, parsedArgs
}

// parseLoginArgs parses login command specific arguments.
func parseLoginArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Phone = p.Flag("phone")
	if args.Phone == "" {
		args.Phone = p.Flag("p")
	}
	if args.Phone == "" && p.PositionalCount() > 0 {
		args.Phone = p.Positional(0)
	}
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = strings.ToLower(remaining[0])
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = strings.Join(remaining[2:], " ")
		}
	}
}

// parseOutboxArgs parses outbox command specific arguments.
func parseOutboxArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Lines = p.FlagIntOrDefault("lines", p.FlagIntOrDefault("n", 10))
	args.Reveal = p.BoolFlag("reveal")
}

func parseRevealArgs(args *Args, remaining []string) {
	args.Reveal = NewArgParser(remaining).BoolFlag("reveal")
}
