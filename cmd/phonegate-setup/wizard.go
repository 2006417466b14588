// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jeranaias/phonegate-tui/internal/config"
)

// =============================================================================
// QUESTIONS
// =============================================================================

// choice is one selectable answer.
type choice struct {
	Value string
	Label string
}

// question fills one configuration key. A question without choices takes
// free text.
type question struct {
	Key      string
	Title    string
	Help     string
	Choices  []choice
	Secret   bool
	Optional bool
	// Ask reports whether the question applies to the answers so far.
	Ask func(a answers) bool
}

// answers maps configuration keys to their chosen string values.
type answers map[string]string

func providerIs(name string) func(answers) bool {
	return func(a answers) bool { return a["identity.provider"] == name }
}

// questions is the wizard script, in order.
var questions = []question{
	{
		Key:   "identity.provider",
		Title: "Identity provider",
		Help:  "Who sends the codes and issues sessions.",
		Choices: []choice{
			{"local", "Local      codes go to an outbox file (development)"},
			{"firebase", "Firebase   hosted phone authentication"},
		},
	},
	{
		Key:    "firebase.api_key",
		Title:  "Firebase web API key",
		Help:   "Project settings > General > Web API key.",
		Secret: true,
		Ask:    providerIs("firebase"),
	},
	{
		Key:      "firebase.project_id",
		Title:    "Firebase project ID",
		Help:     "Shown by 'phonegate status'. Leave blank to skip.",
		Optional: true,
		Ask:      providerIs("firebase"),
	},
	{
		Key:      "firebase.auth_domain",
		Title:    "Firebase auth domain",
		Help:     "Usually <project>.firebaseapp.com. Leave blank to skip.",
		Optional: true,
		Ask:      providerIs("firebase"),
	},
	{
		Key:   "local.sender",
		Title: "Code delivery",
		Help:  "Where the local provider delivers codes.",
		Choices: []choice{
			{"outbox", "Outbox     read codes with 'phonegate outbox'"},
			{"smslocal", "SMS Local  real text messages (needs an API key)"},
		},
		Ask: providerIs("local"),
	},
	{
		Key:    "local.smslocal_api_key",
		Title:  "SMS Local API key",
		Secret: true,
		Ask: func(a answers) bool {
			return a["identity.provider"] == "local" && a["local.sender"] == "smslocal"
		},
	},
	{
		Key:   "flow.country_code",
		Title: "Country calling code",
		Help:  "Prefixed to every 10-digit number, without '+'.",
	},
	{
		Key:   "persistence.backend",
		Title: "Session storage",
		Help:  "Where a signed-in session is kept between runs.",
		Choices: []choice{
			{"auto", "Auto       SQLite in a terminal, file otherwise"},
			{"sqlite", "SQLite     durable database file"},
			{"file", "File       JSON file, follows external sign-out"},
			{"memory", "Memory     forget the session on exit"},
		},
	},
	{
		Key:   "ui.theme",
		Title: "Color theme",
		Choices: []choice{
			{"auto", "Auto"},
			{"dark", "Dark"},
			{"light", "Light"},
		},
	},
}

// pending returns the questions that apply to a, in order.
func pending(a answers) []question {
	var out []question
	for _, q := range questions {
		if q.Ask == nil || q.Ask(a) {
			out = append(out, q)
		}
	}
	return out
}

// =============================================================================
// ANSWERS
// =============================================================================

// answersFrom seeds answers with the current values of cfg.
func answersFrom(cfg *config.Config) answers {
	a := answers{}
	for _, q := range questions {
		if v, err := cfg.Get(q.Key); err == nil {
			a[q.Key] = fmt.Sprint(v)
		}
	}
	return a
}

// resolve turns raw input into the value stored for q. Blank input keeps
// current. Choices accept their number or their value.
func (q question) resolve(raw, current string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if current == "" && !q.Optional {
			return "", fmt.Errorf("%s is required", q.Title)
		}
		return current, nil
	}
	if len(q.Choices) == 0 {
		return raw, nil
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= len(q.Choices) {
		return q.Choices[n-1].Value, nil
	}
	for _, c := range q.Choices {
		if strings.EqualFold(raw, c.Value) {
			return c.Value, nil
		}
	}
	return "", fmt.Errorf("choose 1-%d", len(q.Choices))
}

// display renders the stored value of q for the review screen.
func (q question) display(v string) string {
	if v == "" {
		return "(not set)"
	}
	if q.Secret || config.IsSecretKey(q.Key) {
		return "[set]"
	}
	return v
}

// apply writes the answered keys into cfg and validates the result.
func (a answers) apply(cfg *config.Config) error {
	for _, q := range pending(a) {
		v, ok := a[q.Key]
		if !ok {
			continue
		}
		if err := cfg.Set(q.Key, v); err != nil {
			return fmt.Errorf("%s: %w", q.Key, err)
		}
	}
	return cfg.Validate()
}

// =============================================================================
// CONFIG FILE
// =============================================================================

// loadExisting returns the configuration file as written, without environment
// overrides, and whether it existed.
func loadExisting() (*config.Config, string, bool, error) {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return nil, "", false, err
	}
	cfg := config.Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, path, false, nil
	}
	if err := config.LoadTOML(cfg, path); err != nil {
		return nil, path, true, err
	}
	return cfg, path, true, nil
}

// writeConfig applies a to cfg and saves it to path.
func writeConfig(cfg *config.Config, a answers, path string) error {
	if err := a.apply(cfg); err != nil {
		return err
	}
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	return config.SaveTOML(cfg, path)
}
