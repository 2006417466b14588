// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PHONEGATE_HOME", dir)
	for _, k := range []string{
		"PHONEGATE_PROVIDER", "PHONEGATE_COUNTRY_CODE", "PHONEGATE_PLATFORM",
		"PHONEGATE_RECAPTCHA_TOKEN", "PHONEGATE_PERSISTENCE", "PHONEGATE_LOCAL_SIGNING_KEY",
		"PHONEGATE_REDIS_ADDR", "PHONEGATE_SMSLOCAL_API_KEY",
	} {
		t.Setenv(k, "")
	}
	for _, e := range firebaseEnv {
		t.Setenv("PHONEGATE_FIREBASE_"+e.suffix, "")
		t.Setenv("EXPO_PUBLIC_FIREBASE_"+e.suffix, "")
	}
	return dir
}

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "local", cfg.Identity.Provider)
	assert.Equal(t, "91", cfg.Flow.CountryCode)
	assert.Equal(t, "auto", cfg.Platform.Mode)
	assert.Equal(t, "auto", cfg.Persistence.Backend)
	assert.Equal(t, 5, cfg.Local.MaxAttempts)
	assert.Equal(t, "memory", cfg.Local.Store)
	assert.Equal(t, "outbox", cfg.Local.Sender)
	assert.Equal(t, 30*time.Second, cfg.Local.SendInterval())

	cfg.Local.SendIntervalSecs = 0
	assert.True(t, cfg.Local.SendInterval() < 0, "zero turns throttling off")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		field   string
		wantErr bool
	}{
		{"defaults", func(*Config) {}, "", false},
		{"unknown provider", func(c *Config) { c.Identity.Provider = "ldap" }, "identity.provider", true},
		{"firebase without key", func(c *Config) { c.Identity.Provider = "firebase" }, "firebase.api_key", true},
		{"firebase with key", func(c *Config) {
			c.Identity.Provider = "firebase"
			c.Firebase.APIKey = "AIza-test"
		}, "", false},
		{"bad country code", func(c *Config) { c.Flow.CountryCode = "9a" }, "flow.country_code", true},
		{"bad platform", func(c *Config) { c.Platform.Mode = "desktop" }, "platform.mode", true},
		{"bad backend", func(c *Config) { c.Persistence.Backend = "floppy" }, "persistence.backend", true},
		{"attempts out of range", func(c *Config) { c.Local.MaxAttempts = 0 }, "local.max_attempts", true},
		{"challenge ttl too short", func(c *Config) { c.Local.ChallengeTTLSecs = 5 }, "local.challenge_ttl_secs", true},
		{"short signing key", func(c *Config) { c.Local.SigningKey = "short" }, "local.signing_key", true},
		{"redis without addr", func(c *Config) {
			c.Local.Store = "redis"
			c.Local.RedisAddr = ""
		}, "local.redis_addr", true},
		{"smslocal without key", func(c *Config) { c.Local.Sender = "smslocal" }, "local.smslocal_api_key", true},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verrs ValidateErrors
			require.ErrorAs(t, err, &verrs)
			var fields []string
			for _, v := range verrs {
				fields = append(fields, v.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestConfig_LoadPrefersTOML(t *testing.T) {
	dir := isolate(t)

	toml := "[flow]\ncountry_code = \"44\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"flow":{"country_code":"1"}}`), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "44", cfg.Flow.CountryCode)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, "local", cfg.Identity.Provider)

	info, err := os.Stat(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfig_LoadJSON(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"local":{"max_attempts":3}}`), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Local.MaxAttempts)
}

func TestConfig_LoadWithoutFiles(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Flow, cfg.Flow)
}

func TestConfig_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PHONEGATE_COUNTRY_CODE", "+1")
	t.Setenv("PHONEGATE_REDIS_ADDR", "redis:6379")
	t.Setenv("EXPO_PUBLIC_FIREBASE_API_KEY", "expo-key")
	t.Setenv("EXPO_PUBLIC_FIREBASE_PROJECT_ID", "expo-project")
	t.Setenv("PHONEGATE_FIREBASE_PROJECT_ID", "native-project")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "1", cfg.Flow.CountryCode)
	assert.Equal(t, "redis", cfg.Local.Store)
	assert.Equal(t, "redis:6379", cfg.Local.RedisAddr)
	assert.Equal(t, "expo-key", cfg.Firebase.APIKey)
	assert.Equal(t, "native-project", cfg.Firebase.ProjectID)
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	cfg.Identity.Provider = "firebase"
	cfg.Firebase.APIKey = "AIza-test"
	require.NoError(t, Save(cfg))

	path := filepath.Join(dir, "config.toml")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# phonegate configuration file"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "firebase", loaded.Identity.Provider)
	assert.Equal(t, "AIza-test", loaded.Firebase.APIKey)
}

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("flow.country_code")
	require.NoError(t, err)
	assert.Equal(t, "91", v)

	require.NoError(t, cfg.Set("local.max_attempts", "7"))
	assert.Equal(t, 7, cfg.Local.MaxAttempts)

	require.NoError(t, cfg.Set("platform.attempt_invisible", "false"))
	assert.False(t, cfg.Platform.AttemptInvisible)

	require.NoError(t, cfg.Set("identity.provider", "firebase"))
	assert.Equal(t, "firebase", cfg.Identity.Provider)

	_, err = cfg.Get("flow")
	assert.Error(t, err)
	_, err = cfg.Get("flow.nope")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("local.max_attempts", "many"))
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestConfig_GetAllKeys(t *testing.T) {
	keys := GetAllKeys()
	assert.Contains(t, keys, "flow.country_code")
	assert.Contains(t, keys, "firebase.api_key")
	assert.Contains(t, keys, "local.redis_db")

	cfg := Default()
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestConfig_StringRedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Firebase.APIKey = "AIza-very-secret"
	cfg.Local.SigningKey = strings.Repeat("k", 40)

	out := cfg.String()
	assert.NotContains(t, out, "AIza-very-secret")
	assert.NotContains(t, out, cfg.Local.SigningKey)
	assert.Contains(t, out, "[REDACTED]")
	// The original is untouched.
	assert.Equal(t, "AIza-very-secret", cfg.Firebase.APIKey)
}

func TestConfig_Clone(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Flow.CountryCode = "1"
	assert.Equal(t, "91", cfg.Flow.CountryCode)
}

func TestConfig_Paths(t *testing.T) {
	dir := isolate(t)
	cfg := Default()

	data, err := cfg.DataDir()
	require.NoError(t, err)
	assert.Equal(t, dir, data)

	audit, err := cfg.AuditPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "audit.log"), audit)

	outbox, err := cfg.OutboxPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "outbox.jsonl"), outbox)

	cfg.Persistence.Dir = "/var/lib/phonegate"
	data, err = cfg.DataDir()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/phonegate", data)
}
