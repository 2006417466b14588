// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/phonegate-tui/internal/challenge"
	"github.com/jeranaias/phonegate-tui/internal/phone"
	"github.com/jeranaias/phonegate-tui/internal/storage"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete phonegate configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Identity    IdentityConfig    `toml:"identity" json:"identity"`
	Flow        FlowConfig        `toml:"flow" json:"flow"`
	Platform    PlatformConfig    `toml:"platform" json:"platform"`
	Persistence PersistenceConfig `toml:"persistence" json:"persistence"`
	Firebase    FirebaseConfig    `toml:"firebase" json:"firebase"`
	Local       LocalConfig       `toml:"local" json:"local"`
	Audit       AuditConfig       `toml:"audit" json:"audit"`
	UI          UIConfig          `toml:"ui" json:"ui"`
}

// IdentityConfig selects the identity platform.
type IdentityConfig struct {
	// Provider is "local" (self-contained, default) or "firebase".
	Provider string `toml:"provider" json:"provider"`
}

// FlowConfig configures the sign-in flow.
type FlowConfig struct {
	// CountryCode is the calling code prefixed to every number, without "+".
	// Defaults to 91; numbers from other regions need this changed.
	CountryCode string `toml:"country_code" json:"country_code"`
}

// PlatformConfig selects the anti-automation challenge variant.
type PlatformConfig struct {
	// Mode is "auto", "native" (modal prompt) or "web" (invisible token).
	Mode string `toml:"mode" json:"mode"`
	// RecaptchaToken is a pre-established verification token.
	RecaptchaToken string `toml:"recaptcha_token" json:"recaptcha_token"`
	// ContainerID roots the invisible widget.
	ContainerID string `toml:"container_id" json:"container_id"`
	// AttemptInvisible lets the native modal try RecaptchaToken first.
	AttemptInvisible bool `toml:"attempt_invisible" json:"attempt_invisible"`
}

// PersistenceConfig selects where the session is kept.
type PersistenceConfig struct {
	// Backend is "auto", "sqlite", "file" or "memory".
	Backend string `toml:"backend" json:"backend"`
	// Dir holds session files (empty = config directory).
	Dir string `toml:"dir" json:"dir"`
	// SealPassphraseEnv names the environment variable holding the passphrase
	// used to seal stored credentials. Unset variable = no sealing.
	SealPassphraseEnv string `toml:"seal_passphrase_env" json:"seal_passphrase_env"`
}

// FirebaseConfig mirrors a Firebase web app configuration.
type FirebaseConfig struct {
	APIKey            string `toml:"api_key" json:"api_key"`
	AuthDomain        string `toml:"auth_domain" json:"auth_domain"`
	ProjectID         string `toml:"project_id" json:"project_id"`
	StorageBucket     string `toml:"storage_bucket" json:"storage_bucket"`
	MessagingSenderID string `toml:"messaging_sender_id" json:"messaging_sender_id"`
	AppID             string `toml:"app_id" json:"app_id"`
	MeasurementID     string `toml:"measurement_id" json:"measurement_id"`

	// Endpoint overrides (emulator).
	IdentityToolkitURL string `toml:"identity_toolkit_url" json:"identity_toolkit_url"`
	SecureTokenURL     string `toml:"secure_token_url" json:"secure_token_url"`
}

// LocalConfig configures the self-contained identity platform.
type LocalConfig struct {
	// SigningKey signs session tokens (empty = generated key file).
	SigningKey       string `toml:"signing_key" json:"signing_key"`
	SessionTTLHours  int    `toml:"session_ttl_hours" json:"session_ttl_hours"`
	ChallengeTTLSecs int    `toml:"challenge_ttl_secs" json:"challenge_ttl_secs"`
	MaxAttempts      int    `toml:"max_attempts" json:"max_attempts"`
	SendIntervalSecs int    `toml:"send_interval_secs" json:"send_interval_secs"`
	SendBurst        int    `toml:"send_burst" json:"send_burst"`

	// Store is "memory" or "redis".
	Store         string `toml:"store" json:"store"`
	RedisAddr     string `toml:"redis_addr" json:"redis_addr"`
	RedisPassword string `toml:"redis_password" json:"redis_password"`
	RedisDB       int    `toml:"redis_db" json:"redis_db"`

	// Sender is "outbox" or "smslocal".
	Sender           string `toml:"sender" json:"sender"`
	OutboxPath       string `toml:"outbox_path" json:"outbox_path"`
	SMSLocalAPIKey   string `toml:"smslocal_api_key" json:"smslocal_api_key"`
	SMSLocalURL      string `toml:"smslocal_url" json:"smslocal_url"`
	SMSLocalSenderID string `toml:"smslocal_sender_id" json:"smslocal_sender_id"`
}

// AuditConfig configures the audit trail.
type AuditConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme" json:"theme"`
	// ShowOutboxHint shows where development codes are delivered.
	ShowOutboxHint bool `toml:"show_outbox_hint" json:"show_outbox_hint"`
}

// SessionTTL returns the local session TTL.
func (c LocalConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// ChallengeTTL returns the local challenge TTL.
func (c LocalConfig) ChallengeTTL() time.Duration {
	return time.Duration(c.ChallengeTTLSecs) * time.Second
}

// SendInterval returns the refill interval of the send limiter. A zero
// setting turns throttling off and returns a negative duration.
func (c LocalConfig) SendInterval() time.Duration {
	if c.SendIntervalSecs == 0 {
		return -1
	}
	return time.Duration(c.SendIntervalSecs) * time.Second
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Identity: IdentityConfig{
			Provider: "local",
		},
		Flow: FlowConfig{
			CountryCode: phone.DefaultCountryCode,
		},
		Platform: PlatformConfig{
			Mode:             "auto",
			ContainerID:      challenge.DefaultContainerID,
			AttemptInvisible: true,
		},
		Persistence: PersistenceConfig{
			Backend:           string(storage.BackendAuto),
			SealPassphraseEnv: "PHONEGATE_SEAL_PASSPHRASE",
		},
		Local: LocalConfig{
			SessionTTLHours:  24 * 30,
			ChallengeTTLSecs: 300,
			MaxAttempts:      5,
			SendIntervalSecs: 30,
			SendBurst:        3,
			Store:            "memory",
			RedisAddr:        "localhost:6379",
			Sender:           "outbox",
		},
		Audit: AuditConfig{
			Enabled: true,
		},
		UI: UIConfig{
			Theme:          "auto",
			ShowOutboxHint: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the phonegate configuration directory. PHONEGATE_HOME
// overrides the default ~/.phonegate.
func ConfigDir() (string, error) {
	if dir := os.Getenv("PHONEGATE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".phonegate"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// DataDir returns the directory holding session files.
func (c *Config) DataDir() (string, error) {
	if c.Persistence.Dir != "" {
		return c.Persistence.Dir, nil
	}
	return ConfigDir()
}

// AuditPath returns the audit log path.
func (c *Config) AuditPath() (string, error) {
	if c.Audit.Path != "" {
		return c.Audit.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "audit.log"), nil
}

// OutboxPath returns the development outbox path.
func (c *Config) OutboxPath() (string, error) {
	if c.Local.OutboxPath != "" {
		return c.Local.OutboxPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "outbox.jsonl"), nil
}

// LogPath returns the TUI debug log path.
func LogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "phonegate.log"), nil
}

// ensureSecurePermissions tightens config files to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Keys missing from the file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults restores defaults for values a file explicitly blanked.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Identity.Provider == "" {
		cfg.Identity.Provider = defaults.Identity.Provider
	}
	if cfg.Flow.CountryCode == "" {
		cfg.Flow.CountryCode = defaults.Flow.CountryCode
	}
	if cfg.Platform.Mode == "" {
		cfg.Platform.Mode = defaults.Platform.Mode
	}
	if cfg.Platform.ContainerID == "" {
		cfg.Platform.ContainerID = defaults.Platform.ContainerID
	}
	if cfg.Persistence.Backend == "" {
		cfg.Persistence.Backend = defaults.Persistence.Backend
	}
	if cfg.Local.SessionTTLHours == 0 {
		cfg.Local.SessionTTLHours = defaults.Local.SessionTTLHours
	}
	if cfg.Local.ChallengeTTLSecs == 0 {
		cfg.Local.ChallengeTTLSecs = defaults.Local.ChallengeTTLSecs
	}
	if cfg.Local.MaxAttempts == 0 {
		cfg.Local.MaxAttempts = defaults.Local.MaxAttempts
	}
	if cfg.Local.SendBurst == 0 {
		cfg.Local.SendBurst = defaults.Local.SendBurst
	}
	if cfg.Local.Store == "" {
		cfg.Local.Store = defaults.Local.Store
	}
	if cfg.Local.Sender == "" {
		cfg.Local.Sender = defaults.Local.Sender
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# phonegate configuration file\n")
	b.WriteString("# Generated by phonegate - edit with care\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := storage.WriteFileAtomic(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Identity.Provider {
	case "local", "firebase":
	default:
		add("identity.provider", "must be 'local' or 'firebase', got %q", c.Identity.Provider)
	}
	if c.Identity.Provider == "firebase" && c.Firebase.APIKey == "" {
		add("firebase.api_key", "is required when identity.provider is 'firebase'")
	}

	if err := phone.ValidateCountryCode(c.Flow.CountryCode); err != nil {
		add("flow.country_code", "%v", err)
	}

	if _, _, err := challenge.ParsePlatform(c.Platform.Mode); err != nil {
		add("platform.mode", "%v", err)
	}

	if _, err := storage.ParseBackend(c.Persistence.Backend); err != nil {
		add("persistence.backend", "%v", err)
	}

	if c.Local.SessionTTLHours < 1 {
		add("local.session_ttl_hours", "must be at least 1")
	}
	if c.Local.ChallengeTTLSecs < 30 || c.Local.ChallengeTTLSecs > 3600 {
		add("local.challenge_ttl_secs", "must be between 30 and 3600, got %d", c.Local.ChallengeTTLSecs)
	}
	if c.Local.MaxAttempts < 1 || c.Local.MaxAttempts > 20 {
		add("local.max_attempts", "must be between 1 and 20, got %d", c.Local.MaxAttempts)
	}
	if c.Local.SendIntervalSecs < 0 {
		add("local.send_interval_secs", "must not be negative")
	}
	if c.Local.SendBurst < 1 {
		add("local.send_burst", "must be at least 1")
	}
	if c.Local.SigningKey != "" && len(c.Local.SigningKey) < 32 {
		add("local.signing_key", "must be at least 32 characters")
	}

	switch c.Local.Store {
	case "memory":
	case "redis":
		if c.Local.RedisAddr == "" {
			add("local.redis_addr", "is required when local.store is 'redis'")
		}
	default:
		add("local.store", "must be 'memory' or 'redis', got %q", c.Local.Store)
	}

	switch c.Local.Sender {
	case "outbox":
	case "smslocal":
		if c.Local.SMSLocalAPIKey == "" {
			add("local.smslocal_api_key", "is required when local.sender is 'smslocal'")
		}
	default:
		add("local.sender", "must be 'outbox' or 'smslocal', got %q", c.Local.Sender)
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "must be 'auto', 'dark' or 'light', got %q", c.UI.Theme)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// firebaseEnv maps Firebase settings to their variable suffix. Both the
// PHONEGATE_FIREBASE_ and EXPO_PUBLIC_FIREBASE_ prefixes are read; the
// former wins.
var firebaseEnv = []struct {
	suffix string
	field  func(*FirebaseConfig) *string
}{
	{"API_KEY", func(f *FirebaseConfig) *string { return &f.APIKey }},
	{"AUTH_DOMAIN", func(f *FirebaseConfig) *string { return &f.AuthDomain }},
	{"PROJECT_ID", func(f *FirebaseConfig) *string { return &f.ProjectID }},
	{"STORAGE_BUCKET", func(f *FirebaseConfig) *string { return &f.StorageBucket }},
	{"MESSAGING_SENDER_ID", func(f *FirebaseConfig) *string { return &f.MessagingSenderID }},
	{"APP_ID", func(f *FirebaseConfig) *string { return &f.AppID }},
	{"MEASUREMENT_ID", func(f *FirebaseConfig) *string { return &f.MeasurementID }},
}

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - PHONEGATE_PROVIDER: overrides identity.provider
//   - PHONEGATE_COUNTRY_CODE: overrides flow.country_code
//   - PHONEGATE_PLATFORM: overrides platform.mode
//   - PHONEGATE_RECAPTCHA_TOKEN: overrides platform.recaptcha_token
//   - PHONEGATE_PERSISTENCE: overrides persistence.backend
//   - PHONEGATE_LOCAL_SIGNING_KEY: overrides local.signing_key
//   - PHONEGATE_REDIS_ADDR: overrides local.redis_addr and selects the redis store
//   - PHONEGATE_SMSLOCAL_API_KEY: overrides local.smslocal_api_key
//   - PHONEGATE_FIREBASE_* / EXPO_PUBLIC_FIREBASE_*: firebase settings
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PHONEGATE_PROVIDER"); v != "" {
		c.Identity.Provider = v
	}
	if v := os.Getenv("PHONEGATE_COUNTRY_CODE"); v != "" {
		c.Flow.CountryCode = strings.TrimPrefix(v, "+")
	}
	if v := os.Getenv("PHONEGATE_PLATFORM"); v != "" {
		c.Platform.Mode = v
	}
	if v := os.Getenv("PHONEGATE_RECAPTCHA_TOKEN"); v != "" {
		c.Platform.RecaptchaToken = v
	}
	if v := os.Getenv("PHONEGATE_PERSISTENCE"); v != "" {
		c.Persistence.Backend = v
	}
	if v := os.Getenv("PHONEGATE_LOCAL_SIGNING_KEY"); v != "" {
		c.Local.SigningKey = v
	}
	if v := os.Getenv("PHONEGATE_REDIS_ADDR"); v != "" {
		c.Local.RedisAddr = v
		c.Local.Store = "redis"
	}
	if v := os.Getenv("PHONEGATE_SMSLOCAL_API_KEY"); v != "" {
		c.Local.SMSLocalAPIKey = v
	}

	for _, prefix := range []string{"EXPO_PUBLIC_FIREBASE_", "PHONEGATE_FIREBASE_"} {
		for _, e := range firebaseEnv {
			if v := os.Getenv(prefix + e.suffix); v != "" {
				*e.field(&c.Firebase) = v
			}
		}
	}
}

// SealPassphrase returns the credential sealing passphrase, if configured.
func (c *Config) SealPassphrase() string {
	if c.Persistence.SealPassphraseEnv == "" {
		return ""
	}
	return os.Getenv(c.Persistence.SealPassphraseEnv)
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "flow.country_code").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "identity.provider").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field := fieldByTag(v, part)
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds a struct field by its toml tag.
func fieldByTag(v reflect.Value, name string) reflect.Value {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ",")
		if tag == name {
			return v.Field(i)
		}
	}
	return reflect.Value{}
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			tag, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
			if tag == "" || tag == "-" {
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+tag+".")
				continue
			}
			keys = append(keys, prefix+tag)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// IsSecretKey reports whether a key holds a secret that must not be printed.
func IsSecretKey(key string) bool {
	switch key {
	case "firebase.api_key", "local.signing_key", "local.redis_password", "local.smslocal_api_key", "platform.recaptcha_token":
		return true
	}
	return false
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Redacted returns a copy with secrets replaced.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	for _, key := range GetAllKeys() {
		if !IsSecretKey(key) {
			continue
		}
		if v, err := safe.Get(key); err == nil && v != "" {
			_ = safe.Set(key, "[REDACTED]")
		}
	}
	return safe
}

// String returns a JSON representation with secrets redacted.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}
