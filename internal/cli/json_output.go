// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON output for scripts.
//
// Every command that accepts --json answers with a JSONResponse.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// JSONResponse is the response format for all CLI commands.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the RFC3339 time the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print outputs the JSON response to stdout.
// Human-readable messages should go to stderr when JSON mode is enabled.
func (r *JSONResponse) Print() error {
	return r.Write(os.Stdout)
}

// Write outputs the JSON response to w.
func (r *JSONResponse) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// String returns the JSON response as a string.
func (r *JSONResponse) String() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to marshal response: %s","timestamp":"%s"}`,
			err.Error(), time.Now().UTC().Format(time.RFC3339))
	}
	return string(data)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// StatusData represents the data returned by the status command.
type StatusData struct {
	Session  StatusSessionInfo  `json:"session"`
	Platform StatusPlatformInfo `json:"platform"`
	Paths    StatusPathInfo     `json:"paths"`
}

// StatusSessionInfo describes the current session.
type StatusSessionInfo struct {
	State      string `json:"state"`
	UserID     string `json:"user_id,omitempty"`
	Phone      string `json:"phone,omitempty"`
	SignedInAt string `json:"signed_in_at,omitempty"`
	Error      string `json:"error,omitempty"`
}

// StatusPlatformInfo describes the wired components.
type StatusPlatformInfo struct {
	Provider    string `json:"provider"`
	Platform    string `json:"platform"`
	Surface     string `json:"surface"`
	Persistence string `json:"persistence"`
	CountryCode string `json:"country_code"`
	ProjectID   string `json:"project_id,omitempty"`
	AuthDomain  string `json:"auth_domain,omitempty"`
}

// StatusPathInfo lists the files phonegate uses.
type StatusPathInfo struct {
	Config string `json:"config"`
	Data   string `json:"data"`
	Audit  string `json:"audit,omitempty"`
	Outbox string `json:"outbox,omitempty"`
	Log    string `json:"log"`
}

// LoginData represents the data returned by the login and logout commands.
type LoginData struct {
	UserID    string `json:"user_id,omitempty"`
	Phone     string `json:"phone,omitempty"`
	IsNewUser bool   `json:"is_new_user,omitempty"`
	Already   bool   `json:"already,omitempty"`
}

// OutboxData represents the data returned by the outbox command.
type OutboxData struct {
	Path       string          `json:"path"`
	Deliveries []OutboxMessage `json:"deliveries"`
}

// OutboxMessage is one recorded delivery.
type OutboxMessage struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
	At    string `json:"at"`
}

// ConfigPathData represents the data returned by config path.
type ConfigPathData struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// ConfigValueData represents the data returned by config get and set.
type ConfigValueData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// VersionData represents the data returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}
