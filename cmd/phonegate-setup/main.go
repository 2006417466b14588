// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const version = "0.1.0"

// errCancelled is returned when the user quits before the file is written.
var errCancelled = errors.New("setup cancelled")

func main() {
	// Check for --text flag for copy/paste friendly output
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--text", "-t", "--simple":
			if err := runText(os.Stdin, os.Stdout); err != nil {
				if errors.Is(err, errCancelled) {
					fmt.Println("Setup cancelled.")
					return
				}
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "--help", "-h":
			printHelp()
			return
		case "--version", "-v":
			fmt.Printf("phonegate-setup v%s\n", version)
			return
		}
	}

	if !isTerminal() {
		fmt.Println("phonegate-setup needs an interactive terminal.")
		fmt.Println("Run with --text to answer the questions line by line.")
		os.Exit(1)
	}

	w, err := newWizard()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if _, err := tea.NewProgram(w, tea.WithAltScreen()).Run(); err != nil {
		fmt.Printf("Error running setup: %v\n", err)
		os.Exit(1)
	}
	if w.written {
		fmt.Printf("Configuration written to %s\n", w.path)
	}
}

// printHelp shows usage information
func printHelp() {
	fmt.Println(`phonegate-setup v` + version + `

Usage: phonegate-setup [OPTIONS]

Options:
  --text, -t     Answer the questions line by line (works with pipes)
  --help, -h     Show this help
  --version, -v  Show version

Writes ~/.phonegate/config.toml (or $PHONEGATE_HOME/config.toml).
An existing file is used as the starting point.`)
}

// =============================================================================
// TEXT MODE
// =============================================================================

const rule = "--------------------------------------------------------------------------------"

func section(out io.Writer, title string) {
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)
}

// readLine reads one answer. A final line without a newline still counts.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", errCancelled
	}
	return strings.TrimSpace(line), nil
}

// runText runs the wizard on plain text streams.
func runText(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", len(rule)))
	fmt.Fprintln(out, "                               PHONEGATE SETUP")
	fmt.Fprintln(out, strings.Repeat("=", len(rule)))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "This wizard will:")
	fmt.Fprintln(out, "  [1] Check your system")
	fmt.Fprintln(out, "  [2] Ask how you want to sign in")
	fmt.Fprintln(out, "  [3] Write your configuration")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Press Enter to continue (or 'q' to quit): ")
	input, err := readLine(reader)
	if err != nil || input == "q" {
		return errCancelled
	}
	fmt.Fprintln(out)

	section(out, "SYSTEM CHECK")
	for _, c := range systemChecks() {
		res := c.Run()
		fmt.Fprintf(out, "  %s %s: %s\n", textIcon(res.Status), res.Name, res.Message)
		if res.Fix != "" {
			fmt.Fprintf(out, "       -> %s\n", res.Fix)
		}
	}
	fmt.Fprintln(out)

	cfg, path, _, err := loadExisting()
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	a := answersFrom(cfg)

	section(out, "QUESTIONS")
	for _, q := range questions {
		if q.Ask != nil && !q.Ask(a) {
			continue
		}
		v, err := askText(reader, out, q, a[q.Key])
		if err != nil {
			return err
		}
		a[q.Key] = v
	}

	section(out, "REVIEW")
	for _, q := range pending(a) {
		fmt.Fprintf(out, "  %-24s %s\n", q.Key, q.display(a[q.Key]))
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Write %s? [Y/n]: ", path)
	input, err = readLine(reader)
	if err != nil || strings.EqualFold(input, "n") || strings.EqualFold(input, "no") {
		return errCancelled
	}

	if err := writeConfig(cfg, a, path); err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  [OK] Wrote %s\n", path)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "    phonegate            Sign in with the full-screen UI")
	fmt.Fprintln(out, "    phonegate login      Sign in line by line")
	if a["identity.provider"] == "local" && a["local.sender"] == "outbox" {
		fmt.Fprintln(out, "    phonegate outbox     See the codes the local provider sent")
	}
	fmt.Fprintln(out)
	return nil
}

// askText asks q until the answer resolves.
func askText(reader *bufio.Reader, out io.Writer, q question, current string) (string, error) {
	for {
		fmt.Fprintf(out, "%s\n", q.Title)
		if q.Help != "" {
			fmt.Fprintf(out, "  %s\n", q.Help)
		}
		for i, c := range q.Choices {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, c.Label)
		}
		def := q.display(current)
		if current == "" {
			def = ""
		}
		if def != "" {
			fmt.Fprintf(out, "[%s]: ", def)
		} else {
			fmt.Fprint(out, ": ")
		}

		raw, err := readLine(reader)
		if err != nil {
			return "", err
		}
		v, err := q.resolve(raw, current)
		if err != nil {
			fmt.Fprintf(out, "  [!!] %v\n\n", err)
			continue
		}
		fmt.Fprintln(out)
		return v, nil
	}
}

func textIcon(s checkStatus) string {
	switch s {
	case statusPass:
		return "[OK]"
	case statusWarn:
		return "[!!]"
	case statusFail:
		return "[FAIL]"
	default:
		return "[ ]"
	}
}
