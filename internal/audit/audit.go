// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit keeps an append-only trail of sign-in events with secrets
// redacted.
//
// Lines are pipe-delimited and synced to disk one event at a time:
//
//	2025-01-02 15:04:05 | CHALLENGE_SENT | +********3210 | provider=local | SUCCESS
//
// Phone numbers are masked to their last four digits; codes, JWTs and
// bearer tokens never reach the file.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/phonegate-tui/internal/phone"
)

// DefaultMaxFileSize is the size at which the log is rotated (5MB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

// Event types.
const (
	EventStartup         = "STARTUP"
	EventSessionRestored = "SESSION_RESTORED"
	EventChallengeSent   = "CHALLENGE_SENT"
	EventVerifyOK        = "VERIFY_OK"
	EventVerifyFailed    = "VERIFY_FAILED"
	EventSignOut         = "SIGN_OUT"
)

// Event is one audit entry.
type Event struct {
	Timestamp time.Time
	Type      string
	Subject   string // phone number or user id
	Success   bool
	Error     string
	Metadata  map[string]string
}

// ToLogLine formats the event as a single line.
func (e *Event) ToLogLine() string {
	status := "SUCCESS"
	if !e.Success {
		status = "FAILURE"
		if e.Error != "" {
			status = "ERROR: " + e.Error
		}
	}

	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	meta := make([]string, 0, len(keys))
	for _, k := range keys {
		meta = append(meta, k+"="+e.Metadata[k])
	}

	return fmt.Sprintf("%s | %s | %s | %s | %s",
		e.Timestamp.Format("2006-01-02 15:04:05"),
		e.Type,
		e.Subject,
		strings.Join(meta, " "),
		status,
	)
}

// =============================================================================
// REDACTION
// =============================================================================

// Redactor rewrites sensitive text.
type Redactor interface {
	Redact(input string) string
	Name() string
}

// PatternRedactor redacts regex matches.
type PatternRedactor struct {
	name    string
	pattern *regexp.Regexp
	replace string
	fn      func(string) string
}

// NewPatternRedactor creates a redactor replacing every match with replace,
// which may reference capture groups ($1).
func NewPatternRedactor(name string, pattern *regexp.Regexp, replace string) *PatternRedactor {
	return &PatternRedactor{name: name, pattern: pattern, replace: replace}
}

// NewFuncRedactor creates a redactor that rewrites every match with fn.
func NewFuncRedactor(name string, pattern *regexp.Regexp, fn func(string) string) *PatternRedactor {
	return &PatternRedactor{name: name, pattern: pattern, fn: fn}
}

// Redact implements Redactor.
func (r *PatternRedactor) Redact(input string) string {
	if r.fn != nil {
		return r.pattern.ReplaceAllStringFunc(input, r.fn)
	}
	return r.pattern.ReplaceAllString(input, r.replace)
}

// Name implements Redactor.
func (r *PatternRedactor) Name() string { return r.name }

var (
	jwtPattern    = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`)
	bearerPattern = regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-_.]+`)
	e164Pattern   = regexp.MustCompile(`\+[1-9][0-9]{7,14}`)
	codePattern   = regexp.MustCompile(`(?i)\b(code|otp|passcode)(\s*[=:]\s*)[0-9]{4,8}\b`)
	sealedPattern = regexp.MustCompile(`sealed:v1:[A-Za-z0-9+/]+`)
)

func defaultRedactors() []Redactor {
	return []Redactor{
		NewPatternRedactor("JWT", jwtPattern, "[JWT_REDACTED]"),
		NewPatternRedactor("Bearer", bearerPattern, "Bearer [TOKEN_REDACTED]"),
		NewPatternRedactor("Sealed", sealedPattern, "[SEALED_REDACTED]"),
		NewPatternRedactor("Code", codePattern, "${1}${2}[CODE_REDACTED]"),
		NewFuncRedactor("Phone", e164Pattern, phone.Mask),
	}
}

// =============================================================================
// LOGGER
// =============================================================================

// Logger writes events to a file. A nil *Logger discards everything.
type Logger struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	maxSize   int64
	redactors []Redactor
}

// NewLogger opens (or creates) the audit log at path.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return &Logger{
		path:      path,
		file:      file,
		maxSize:   DefaultMaxFileSize,
		redactors: defaultRedactors(),
	}, nil
}

// Path returns the log file path.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// SetMaxSize sets the rotation threshold. Zero disables rotation.
func (l *Logger) SetMaxSize(size int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxSize = size
}

// Log redacts and writes an event.
func (l *Logger) Log(e Event) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e.Subject = l.redactLocked(e.Subject)
	e.Error = l.redactLocked(e.Error)
	if e.Metadata != nil {
		clean := make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			clean[k] = l.redactLocked(v)
		}
		e.Metadata = clean
	}

	if err := l.checkRotationLocked(); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(l.file, e.ToLogLine()); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}
	return nil
}

// LogEvent logs a successful event.
func (l *Logger) LogEvent(eventType, subject string, metadata map[string]string) error {
	return l.Log(Event{Type: eventType, Subject: subject, Success: true, Metadata: metadata})
}

// LogFailure logs a failed event.
func (l *Logger) LogFailure(eventType, subject string, err error, metadata map[string]string) error {
	e := Event{Type: eventType, Subject: subject, Metadata: metadata}
	if err != nil {
		e.Error = err.Error()
	}
	return l.Log(e)
}

// Redact applies every redactor to input.
func (l *Logger) Redact(input string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.redactLocked(input)
}

func (l *Logger) redactLocked(input string) string {
	for _, r := range l.redactors {
		input = r.Redact(input)
	}
	return input
}

// AddRedactor adds a custom redactor.
func (l *Logger) AddRedactor(r Redactor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.redactors = append(l.redactors, r)
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) checkRotationLocked() error {
	if l.maxSize <= 0 {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil || info.Size() < l.maxSize {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit log for rotation: %w", err)
	}
	ext := filepath.Ext(l.path)
	rotated := fmt.Sprintf("%s_%s%s", strings.TrimSuffix(l.path, ext), time.Now().Format("20060102_150405"), ext)
	if err := os.Rename(l.path, rotated); err != nil {
		l.file, _ = os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		return fmt.Errorf("failed to rotate audit log: %w", err)
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create new audit log after rotation: %w", err)
	}
	l.file = file
	return nil
}
