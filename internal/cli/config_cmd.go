// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - The config command.

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/phonegate-tui/internal/config"
)

var configSubcommands = []string{"show", "path", "init", "get", "set"}

// HandleConfig handles "config [show|path|init|get|set]".
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return handleConfigShow(args)
	case "path":
		return handleConfigPath(args)
	case "init":
		return handleConfigInit(args)
	case "get":
		return handleConfigGet(args)
	case "set":
		return handleConfigSet(args)
	default:
		return ErrUnknownSubcommand("config", args.Subcommand, configSubcommands)
	}
}

func handleConfigShow(args Args) error {
	cfg, err := loadConfig("config")
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("config", cfg.Redacted()).Print()
	}

	fmt.Println(TitleStyle.Render("phonegate configuration"))
	section := ""
	for _, key := range config.GetAllKeys() {
		group, name, _ := strings.Cut(key, ".")
		if group != section {
			section = group
			fmt.Println(SectionStyle.Render("[" + group + "]"))
		}
		v, _ := cfg.Get(key)
		fmt.Println(RenderField(name, fmt.Sprint(displayValue(key, v))))
	}
	fmt.Println()
	return nil
}

func handleConfigPath(args Args) error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return NewCommandError("config", "path", "cannot locate config directory", err)
	}
	_, statErr := os.Stat(path)
	exists := statErr == nil

	if args.JSON {
		return NewJSONResponse("config", ConfigPathData{Path: path, Exists: exists}).Print()
	}
	fmt.Println(path)
	if !exists && !args.Quiet {
		fmt.Fprintln(os.Stderr, DimStyle.Render("(not created yet; run `phonegate config init`)"))
	}
	return nil
}

func handleConfigInit(args Args) error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return NewCommandError("config", "init", "cannot locate config directory", err)
	}
	if _, err := os.Stat(path); err == nil {
		ok, err := RequireConfirmation(args.Confirm, "overwrite "+path, args.JSON)
		if err != nil {
			return err
		}
		if !ok {
			ShowCancellationMessage()
			return nil
		}
	}

	if err := config.EnsureConfigDir(); err != nil {
		return NewCommandError("config", "init", "cannot create config directory", err)
	}
	if err := config.SaveTOML(config.Default(), path); err != nil {
		return NewCommandError("config", "init", "cannot write config file", err)
	}

	if args.JSON {
		return NewJSONResponse("config", ConfigPathData{Path: path, Exists: true}).Print()
	}
	fmt.Printf("%s Wrote %s\n", SuccessStyle.Render("[OK]"), path)
	return nil
}

func handleConfigGet(args Args) error {
	if args.ConfigKey == "" {
		return ErrMissingArgument("key", "phonegate config get flow.country_code")
	}
	cfg, err := loadConfig("config")
	if err != nil {
		return err
	}
	v, err := cfg.Get(args.ConfigKey)
	if err != nil {
		return &NotFoundError{Resource: "config key", ID: args.ConfigKey}
	}

	shown := displayValue(args.ConfigKey, v)
	if args.JSON {
		return NewJSONResponse("config", ConfigValueData{Key: args.ConfigKey, Value: shown}).Print()
	}
	fmt.Println(shown)
	return nil
}

func handleConfigSet(args Args) error {
	if args.ConfigKey == "" || args.ConfigVal == "" {
		return ErrMissingArgument("key and value", "phonegate config set identity.provider local")
	}

	path, err := config.ConfigPathTOML()
	if err != nil {
		return NewCommandError("config", "set", "cannot locate config directory", err)
	}

	// Work on the file alone so environment overrides are not written back.
	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return NewCommandError("config", "set", "cannot read config file", err)
		}
	}

	if err := applyConfigValue(cfg, args.ConfigKey, args.ConfigVal); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return NewCommandError("config", "set", "resulting configuration is invalid", err)
	}

	if err := config.EnsureConfigDir(); err != nil {
		return NewCommandError("config", "set", "cannot create config directory", err)
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return NewCommandError("config", "set", "cannot write config file", err)
	}

	v, _ := cfg.Get(args.ConfigKey)
	shown := displayValue(args.ConfigKey, v)
	if args.JSON {
		return NewJSONResponse("config", ConfigValueData{Key: args.ConfigKey, Value: shown}).Print()
	}
	fmt.Printf("%s %s = %v\n", SuccessStyle.Render("[OK]"), args.ConfigKey, shown)
	return nil
}

// applyConfigValue sets key from its string form.
func applyConfigValue(cfg *config.Config, key, raw string) error {
	current, err := cfg.Get(key)
	if err != nil {
		return &NotFoundError{Resource: "config key", ID: key}
	}

	var value interface{} = raw
	if _, isBool := current.(bool); isBool {
		b, err := ParseBoolString(raw)
		if err != nil {
			return &ValidationError{Field: key, Value: raw, Reason: "expected a boolean", Example: "true|false"}
		}
		value = b
	}

	if err := cfg.Set(key, value); err != nil {
		var cfgErr config.ValidationError
		if errors.As(err, &cfgErr) {
			return err
		}
		return &ValidationError{Field: key, Value: raw, Reason: err.Error()}
	}
	return nil
}

// displayValue hides secrets.
func displayValue(key string, v interface{}) interface{} {
	if !config.IsSecretKey(key) {
		return v
	}
	if s, ok := v.(string); ok && s != "" {
		return "[set]"
	}
	return "[not set]"
}
