// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/term"

	"github.com/jeranaias/phonegate-tui/internal/challenge"
	"github.com/jeranaias/phonegate-tui/internal/config"
)

// minFreeBytes is the space below which the disk check warns.
const minFreeBytes = 16 << 20

// checkStatus is the outcome of a single check.
type checkStatus string

const (
	statusChecking checkStatus = "checking"
	statusPass     checkStatus = "pass"
	statusWarn     checkStatus = "warn"
	statusFail     checkStatus = "fail"
)

// CheckResult represents a system check result
type CheckResult struct {
	Name    string
	Status  checkStatus
	Message string
	Fix     string
}

// systemCheck runs one check.
type systemCheck struct {
	Name string
	Run  func() CheckResult
}

// systemChecks lists the checks in display order.
func systemChecks() []systemCheck {
	return []systemCheck{
		{"Operating System", checkOS},
		{"Config Directory", checkConfigDir},
		{"Existing Config", checkExistingConfig},
		{"Verification Prompt", checkPlatform},
		{"Disk Space", checkDisk},
	}
}

// isTerminal reports whether stdin is an interactive terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func checkOS() CheckResult {
	return CheckResult{
		Name:    "Operating System",
		Status:  statusPass,
		Message: fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func checkConfigDir() CheckResult {
	r := CheckResult{Name: "Config Directory"}
	dir, err := config.ConfigDir()
	if err == nil {
		err = config.EnsureConfigDir()
	}
	if err != nil {
		r.Status = statusFail
		r.Message = err.Error()
		r.Fix = "Set PHONEGATE_HOME to a writable directory"
		return r
	}
	r.Status = statusPass
	r.Message = dir
	return r
}

func checkExistingConfig() CheckResult {
	r := CheckResult{Name: "Existing Config"}
	_, path, exists, err := loadExisting()
	switch {
	case err != nil:
		r.Status = statusFail
		r.Message = "cannot be read"
		r.Fix = "Fix or remove " + path
	case exists:
		r.Status = statusWarn
		r.Message = "found, answers start from it"
	default:
		r.Status = statusPass
		r.Message = "none, starting from defaults"
	}
	return r
}

func checkPlatform() CheckResult {
	p, err := challenge.DetectPlatform("auto", isTerminal)
	if err != nil {
		return CheckResult{Name: "Verification Prompt", Status: statusFail, Message: err.Error()}
	}
	msg := "invisible check (no terminal)"
	if p == challenge.PlatformNative {
		msg = "modal prompt in the terminal"
	}
	return CheckResult{Name: "Verification Prompt", Status: statusPass, Message: msg}
}

func checkDisk() CheckResult {
	r := CheckResult{Name: "Disk Space"}
	dir, err := config.ConfigDir()
	if err != nil {
		r.Status = statusWarn
		r.Message = "unknown"
		return r
	}
	free, err := freeDiskSpace(dir)
	if err != nil {
		r.Status = statusWarn
		r.Message = "unknown"
		return r
	}
	r.Message = fmt.Sprintf("%d MB free", free>>20)
	if free < minFreeBytes {
		r.Status = statusWarn
		r.Fix = "Sessions and the audit log need a few megabytes"
		return r
	}
	r.Status = statusPass
	return r
}
