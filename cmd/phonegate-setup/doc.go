// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package main provides phonegate-setup, a guided first-run configuration for
phonegate.

# Overview

The wizard checks the machine, asks which identity provider to use and how
sessions are stored, and writes the answers to config.toml. An existing file
is the starting point, so running it again edits rather than replaces.

# Command Line Options

	--text, -t     Answer line by line (copy/paste friendly, works with pipes)
	--help, -h     Show help information
	--version, -v  Show version number

# Usage Examples

	phonegate-setup
	printf '\n2\nAIza...\n\n\n91\n1\n1\ny\n' | phonegate-setup --text

# Files Created

	~/.phonegate/            # or $PHONEGATE_HOME
	    config.toml          # written with 0600 permissions

# Architecture

  - main.go: entry point, flags, text mode
  - wizard.go: the question script, answer resolution, config writing
  - checks.go: system checks (config directory, existing file, prompt
    surface, disk space)
  - model.go: the Bubble Tea model with phases Welcome, SystemCheck,
    Questions, Review and Complete
*/
package main
