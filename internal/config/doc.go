// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for phonegate.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - IdentityConfig: Which identity platform backs sign-in
//   - PlatformConfig: Challenge surface selection (native modal or invisible)
//   - PersistenceConfig: Where the signed-in session is kept
//   - FirebaseConfig / LocalConfig: Per-platform settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (PHONEGATE_*, EXPO_PUBLIC_FIREBASE_*)
//   - ~/.phonegate/config.toml
//   - ~/.phonegate/config.json
//   - Built-in defaults
//
// PHONEGATE_HOME relocates the ~/.phonegate directory.
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access values with dot notation:
//
//	cc, _ := cfg.Get("flow.country_code")
//	_ = cfg.Set("identity.provider", "firebase")
package config
