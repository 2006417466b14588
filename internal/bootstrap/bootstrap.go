// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bootstrap turns a loaded configuration into the running pieces of
// phonegate: the challenge surface, the persistence backend, the identity
// provider and the audit trail. Every initialization-time choice is made
// here; flow and guard only see the resulting interfaces.
package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/phonegate-tui/internal/audit"
	"github.com/jeranaias/phonegate-tui/internal/challenge"
	"github.com/jeranaias/phonegate-tui/internal/config"
	"github.com/jeranaias/phonegate-tui/internal/flow"
	"github.com/jeranaias/phonegate-tui/internal/identity"
	"github.com/jeranaias/phonegate-tui/internal/identity/firebase"
	"github.com/jeranaias/phonegate-tui/internal/identity/local"
	"github.com/jeranaias/phonegate-tui/internal/phone"
	"github.com/jeranaias/phonegate-tui/internal/storage"
)

// LocalProofToken stands in for the verification token when the local
// provider runs without one configured. The local provider only requires that
// the surface yields something.
const LocalProofToken = "local-dev-proof"

// signingKeyFile holds the generated local signing key inside the data dir.
const signingKeyFile = "local.key"

// Options carries what the caller knows about its environment.
type Options struct {
	// Interactive reports whether a modal can be shown. Used by platform "auto".
	Interactive func() bool
	// Prompter shows the native modal. May be installed later via App.Modal.
	Prompter challenge.Prompter
	// DisableAudit skips the audit trail regardless of config.
	DisableAudit bool
}

// App holds the wired components.
type App struct {
	Config      *config.Config
	Platform    challenge.Platform
	Surface     challenge.Surface
	Normalizer  phone.Normalizer
	Provider    identity.Provider
	Persistence storage.Persistence
	Backend     storage.Backend
	Audit       *audit.Logger

	// ProviderName is "local" or "firebase".
	ProviderName string
	// OutboxPath is set when local codes are written to the dev outbox.
	OutboxPath string
}

// Build wires an App from cfg. Nothing is started; call Start.
func Build(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	normalizer, err := phone.NewNormalizer(cfg.Flow.CountryCode)
	if err != nil {
		return nil, fmt.Errorf("flow.country_code: %w", err)
	}

	platform, err := challenge.DetectPlatform(cfg.Platform.Mode, opts.Interactive)
	if err != nil {
		return nil, fmt.Errorf("platform.mode: %w", err)
	}

	a := &App{
		Config:       cfg,
		Platform:     platform,
		Normalizer:   normalizer,
		ProviderName: cfg.Identity.Provider,
	}
	a.Surface = challenge.Select(platform, surfaceOptions(cfg, opts))

	if err := a.openPersistence(); err != nil {
		return nil, err
	}

	provider, err := a.buildProvider()
	if err != nil {
		_ = a.Persistence.Close()
		return nil, err
	}

	if cfg.Audit.Enabled && !opts.DisableAudit {
		path, err := cfg.AuditPath()
		if err == nil {
			a.Audit, err = audit.NewLogger(path)
		}
		if err != nil {
			// Sign-in still works without the trail.
			log.Printf("AUDIT_DISABLED | error=%v", err)
		}
	}
	a.Provider = audit.WrapProvider(provider, a.Audit, a.ProviderName)

	log.Printf("BOOTSTRAP | provider=%s platform=%s surface=%s persistence=%s country_code=%s",
		a.ProviderName, platform, a.Surface.Kind(), a.Backend, normalizer.CountryCode())
	return a, nil
}

// surfaceOptions derives the surface settings. The local provider gets a
// stand-in token so the flow works without a challenge page.
func surfaceOptions(cfg *config.Config, opts Options) challenge.Options {
	so := challenge.Options{
		ContainerID:      cfg.Platform.ContainerID,
		Token:            cfg.Platform.RecaptchaToken,
		AttemptInvisible: cfg.Platform.AttemptInvisible,
		Prompter:         opts.Prompter,
	}
	if cfg.Identity.Provider == local.Name && so.Token == "" {
		so.Token = LocalProofToken
	}
	return so
}

func (a *App) openPersistence() error {
	backend, err := storage.ParseBackend(a.Config.Persistence.Backend)
	if err != nil {
		return fmt.Errorf("persistence.backend: %w", err)
	}
	a.Backend = backend.Resolve(a.Platform == challenge.PlatformWeb)

	dir, err := a.Config.DataDir()
	if err != nil {
		return err
	}
	sealer := storage.NewSealer(a.Config.SealPassphrase())

	a.Persistence, err = storage.Open(a.Backend, dir, sealer)
	if err != nil {
		return fmt.Errorf("failed to open %s session store: %w", a.Backend, err)
	}
	return nil
}

func (a *App) buildProvider() (identity.Provider, error) {
	switch a.ProviderName {
	case firebase.Name:
		fc := a.Config.Firebase
		return firebase.New(firebase.Settings{
			APIKey:             fc.APIKey,
			AuthDomain:         fc.AuthDomain,
			ProjectID:          fc.ProjectID,
			StorageBucket:      fc.StorageBucket,
			MessagingSenderID:  fc.MessagingSenderID,
			AppID:              fc.AppID,
			MeasurementID:      fc.MeasurementID,
			IdentityToolkitURL: fc.IdentityToolkitURL,
			SecureTokenURL:     fc.SecureTokenURL,
		}, a.Persistence)
	case local.Name:
		return a.buildLocal()
	default:
		return nil, fmt.Errorf("unknown identity provider %q", a.ProviderName)
	}
}

func (a *App) buildLocal() (identity.Provider, error) {
	lc := a.Config.Local

	key, err := a.signingKey()
	if err != nil {
		return nil, err
	}

	var store local.ChallengeStore
	switch lc.Store {
	case "redis":
		rs, err := local.DialRedis(context.Background(), lc.RedisAddr, lc.RedisPassword, lc.RedisDB)
		if err != nil {
			return nil, err
		}
		store = rs
	default:
		store = local.NewMemoryStore()
	}

	var sender local.Sender
	switch lc.Sender {
	case "smslocal":
		sender = local.NewSMSLocalSender(lc.SMSLocalAPIKey, lc.SMSLocalURL, lc.SMSLocalSenderID)
	default:
		path, err := a.Config.OutboxPath()
		if err != nil {
			return nil, err
		}
		a.OutboxPath = path
		sender = local.NewOutbox(path)
	}

	return local.New(local.Options{
		Store:        store,
		Sender:       sender,
		Persistence:  a.Persistence,
		SigningKey:   key,
		SessionTTL:   lc.SessionTTL(),
		ChallengeTTL: lc.ChallengeTTL(),
		MaxAttempts:  lc.MaxAttempts,
		SendInterval: lc.SendInterval(),
		SendBurst:    lc.SendBurst,
	})
}

// signingKey returns the configured key, or one generated once and kept in
// the data dir so sessions survive restarts.
func (a *App) signingKey() ([]byte, error) {
	if k := a.Config.Local.SigningKey; k != "" {
		return []byte(k), nil
	}
	dir, err := a.Config.DataDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, signingKeyFile)

	data, err := os.ReadFile(path)
	if err == nil {
		if k := strings.TrimSpace(string(data)); len(k) >= 32 {
			return []byte(k), nil
		}
		log.Printf("SIGNING_KEY_INVALID | path=%s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	k := hex.EncodeToString(buf)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	if err := storage.WriteFileAtomic(path, []byte(k+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("failed to write signing key: %w", err)
	}
	log.Printf("SIGNING_KEY_CREATED | path=%s", path)
	return []byte(k), nil
}

// Modal returns the native surface so a UI can install its prompt, or nil on
// the web platform.
func (a *App) Modal() *challenge.ModalSurface {
	m, _ := a.Surface.(*challenge.ModalSurface)
	return m
}

// NewController builds a flow controller over the wired provider.
func (a *App) NewController() *flow.Controller {
	return flow.New(a.Provider, a.Surface, a.Normalizer)
}

// Start restores the persisted session and begins watching for changes.
func (a *App) Start(ctx context.Context) error {
	if s, ok := a.Provider.(identity.Starter); ok {
		if err := s.Start(ctx); err != nil {
			return err
		}
	}
	if a.Audit != nil {
		_ = a.Audit.LogEvent(audit.EventStartup, a.ProviderName, map[string]string{
			"platform":    a.Platform.String(),
			"persistence": string(a.Backend),
		})
	}
	return nil
}

// CurrentSession resolves the current session without a UI: it takes the
// first change the provider announces after Start.
func (a *App) CurrentSession(ctx context.Context) (identity.Session, error) {
	changes, cancel := a.Provider.ObserveSessionChanges()
	defer cancel()
	select {
	case c, ok := <-changes:
		if !ok {
			return identity.Unauthenticated(), nil
		}
		return identity.SessionFrom(c), c.Err
	case <-ctx.Done():
		return identity.Unknown(), ctx.Err()
	}
}

// Close releases the provider, the persistence backend and the audit log.
func (a *App) Close() error {
	var errs []error
	if c, ok := a.Provider.(identity.Closer); ok {
		errs = append(errs, c.Close())
	}
	if a.Persistence != nil {
		errs = append(errs, a.Persistence.Close())
	}
	if a.Audit != nil {
		errs = append(errs, a.Audit.Close())
	}
	return errors.Join(errs...)
}
