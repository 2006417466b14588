// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package firebase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jeranaias/phonegate-tui/internal/challenge"
	"github.com/jeranaias/phonegate-tui/internal/identity"
	"github.com/jeranaias/phonegate-tui/internal/storage"
)

// Name identifies this provider in persisted records.
const Name = "firebase"

// refreshSkew refreshes ID tokens slightly before they expire.
const refreshSkew = 5 * time.Minute

// Settings mirrors the web app configuration of a Firebase project.
// Only APIKey is needed by the REST calls; the rest is reported by status.
type Settings struct {
	APIKey            string
	AuthDomain        string
	ProjectID         string
	StorageBucket     string
	MessagingSenderID string
	AppID             string
	MeasurementID     string

	// Endpoint overrides, used by the emulator and tests.
	IdentityToolkitURL string
	SecureTokenURL     string
}

// Provider implements identity.Provider on Firebase Authentication.
type Provider struct {
	client   *Client
	settings Settings
	persist  storage.Persistence
	hub      *identity.Hub
	now      func() time.Time

	mu        sync.Mutex
	watchStop context.CancelFunc
}

// New creates a Provider. A nil persistence keeps the session in memory.
func New(settings Settings, persist storage.Persistence) (*Provider, error) {
	if settings.APIKey == "" {
		return nil, errors.New("firebase: api key is required")
	}
	if persist == nil {
		persist = storage.NewMemoryStore()
	}
	return &Provider{
		client:   NewClient(settings.APIKey, settings.IdentityToolkitURL, settings.SecureTokenURL),
		settings: settings,
		persist:  persist,
		hub:      identity.NewHub(),
		now:      time.Now,
	}, nil
}

// Settings returns the project settings.
func (p *Provider) Settings() Settings {
	return p.settings
}

// Start restores a persisted session, refreshing its ID token when needed,
// and publishes the result. External writes are followed when the
// persistence backend supports watching.
func (p *Provider) Start(ctx context.Context) error {
	p.hub.Publish(p.restore(ctx))

	w, ok := p.persist.(storage.Watcher)
	if !ok {
		return nil
	}
	watchCtx, cancel := context.WithCancel(context.Background())
	changes, err := w.Watch(watchCtx)
	if err != nil {
		cancel()
		log.Printf("SESSION_WATCH_FAILED | provider=%s error=%v", Name, err)
		return nil
	}
	p.mu.Lock()
	p.watchStop = cancel
	p.mu.Unlock()

	go func() {
		for range changes {
			c := p.restore(watchCtx)
			if prev, ok := p.hub.Latest(); ok && prev.Err == nil && c.Err == nil && prev.User.SameIdentity(c.User) {
				continue
			}
			p.hub.Publish(c)
		}
	}()
	return nil
}

func (p *Provider) restore(ctx context.Context) identity.SessionChange {
	rec, err := p.persist.Load(ctx)
	if errors.Is(err, storage.ErrNoSession) {
		return identity.SessionChange{}
	}
	if err != nil {
		return identity.SessionChange{Err: fmt.Errorf("failed to restore session: %w", err)}
	}
	if rec.Provider != Name {
		return identity.SessionChange{}
	}

	if rec.ExpiresAt.IsZero() || p.now().Add(refreshSkew).Before(rec.ExpiresAt) {
		user := rec.User
		return identity.SessionChange{User: &user}
	}
	if rec.RefreshToken == "" {
		_ = p.persist.Clear(ctx)
		return identity.SessionChange{}
	}

	refreshed, err := p.client.Refresh(ctx, rec.RefreshToken)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.credentialRejected() {
			log.Printf("SESSION_DISCARDED | provider=%s reason=%s", Name, apiErr.Code)
			_ = p.persist.Clear(ctx)
			return identity.SessionChange{}
		}
		return identity.SessionChange{Err: fmt.Errorf("failed to refresh session: %w", err)}
	}

	now := p.now()
	rec.IDToken = refreshed.IDToken
	if refreshed.RefreshToken != "" {
		rec.RefreshToken = refreshed.RefreshToken
	}
	rec.ExpiresAt = expiry(now, refreshed.ExpiresIn)
	rec.SavedAt = now
	if err := p.persist.Save(ctx, rec); err != nil {
		log.Printf("SESSION_PERSIST_FAILED | provider=%s error=%v", Name, err)
	}
	user := rec.User
	return identity.SessionChange{User: &user}
}

// SendChallenge implements identity.Provider.
func (p *Provider) SendChallenge(ctx context.Context, phoneE164 string, surface challenge.Surface) (identity.ChallengeHandle, error) {
	if surface == nil {
		return "", challenge.ErrNoToken
	}
	proof, err := surface.Solve(ctx)
	if err != nil {
		return "", fmt.Errorf("verification check failed: %w", err)
	}
	sessionInfo, err := p.client.SendVerificationCode(ctx, phoneE164, proof.Token)
	if err != nil {
		return "", err
	}
	return identity.ChallengeHandle(sessionInfo), nil
}

// VerifyChallenge implements identity.Provider.
func (p *Provider) VerifyChallenge(ctx context.Context, handle identity.ChallengeHandle, code string) (*identity.User, error) {
	res, err := p.client.SignInWithPhoneNumber(ctx, string(handle), code)
	if err != nil {
		return nil, err
	}

	now := p.now()
	user := &identity.User{
		ID:          res.LocalID,
		PhoneNumber: res.PhoneNumber,
		IsNewUser:   res.IsNewUser,
		SignedInAt:  now,
	}
	rec := &storage.Record{
		Provider:     Name,
		User:         *user,
		IDToken:      res.IDToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    expiry(now, res.ExpiresIn),
		SavedAt:      now,
	}
	if err := p.persist.Save(ctx, rec); err != nil {
		log.Printf("SESSION_PERSIST_FAILED | provider=%s error=%v", Name, err)
	}

	p.hub.Publish(identity.SessionChange{User: user})
	return user, nil
}

// SignOut implements identity.Provider. Firebase ID tokens are stateless, so
// signing out only forgets them locally.
func (p *Provider) SignOut(ctx context.Context) error {
	if err := p.persist.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	p.hub.Publish(identity.SessionChange{})
	return nil
}

// ObserveSessionChanges implements identity.Provider.
func (p *Provider) ObserveSessionChanges() (<-chan identity.SessionChange, func()) {
	return p.hub.Subscribe()
}

// Close stops watching persistence and closes the session stream.
func (p *Provider) Close() error {
	p.mu.Lock()
	if p.watchStop != nil {
		p.watchStop()
		p.watchStop = nil
	}
	p.mu.Unlock()
	p.hub.Close()
	return nil
}
