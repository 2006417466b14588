// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package local

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"

	"github.com/jeranaias/phonegate-tui/internal/challenge"
	"github.com/jeranaias/phonegate-tui/internal/identity"
	"github.com/jeranaias/phonegate-tui/internal/phone"
	"github.com/jeranaias/phonegate-tui/internal/storage"
)

// Name identifies this provider in persisted records.
const Name = "local"

// Defaults.
const (
	DefaultChallengeTTL = 5 * time.Minute
	DefaultSessionTTL   = 30 * 24 * time.Hour
	DefaultMaxAttempts  = 5
	DefaultSendInterval = 30 * time.Second
	DefaultSendBurst    = 3
)

// userNamespace derives stable user IDs from phone numbers.
var userNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://phonegate.local/users"))

var codeOpts = hotp.ValidateOpts{Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1}

// Options configures a Provider.
type Options struct {
	Store        ChallengeStore
	Sender       Sender
	Persistence  storage.Persistence
	SigningKey   []byte
	SessionTTL   time.Duration
	ChallengeTTL time.Duration
	MaxAttempts  int
	// SendInterval is the refill interval of the per-number send limiter.
	// Zero means DefaultSendInterval; negative disables throttling.
	SendInterval time.Duration
	SendBurst    int
	Now          func() time.Time
}

// Provider implements identity.Provider on its own.
type Provider struct {
	store        ChallengeStore
	sender       Sender
	persist      storage.Persistence
	tokens       *Tokens
	limiter      *sendLimiter
	hub          *identity.Hub
	challengeTTL time.Duration
	maxAttempts  int
	now          func() time.Time

	mu        sync.Mutex
	watchStop context.CancelFunc
}

// New creates a Provider. Store, Sender and Persistence default to
// in-memory implementations.
func New(opts Options) (*Provider, error) {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Sender == nil {
		opts.Sender = NewOutbox("")
	}
	if opts.Persistence == nil {
		opts.Persistence = storage.NewMemoryStore()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.ChallengeTTL <= 0 {
		opts.ChallengeTTL = DefaultChallengeTTL
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.SendInterval == 0 {
		opts.SendInterval = DefaultSendInterval
	}
	if opts.SendBurst <= 0 {
		opts.SendBurst = DefaultSendBurst
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	tokens, err := NewTokens(opts.SigningKey, opts.SessionTTL)
	if err != nil {
		return nil, err
	}

	return &Provider{
		store:        opts.Store,
		sender:       opts.Sender,
		persist:      opts.Persistence,
		tokens:       tokens,
		limiter:      newSendLimiter(opts.SendInterval, opts.SendBurst, opts.Now),
		hub:          identity.NewHub(),
		challengeTTL: opts.ChallengeTTL,
		maxAttempts:  opts.MaxAttempts,
		now:          opts.Now,
	}, nil
}

// Start restores a persisted session and publishes the result. When the
// persistence backend can watch for external writes, later changes (such as
// a logout from another process) are published too.
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
			p.publishIfChanged(p.restore(watchCtx))
		}
	}()
	return nil
}

// restore reads the persisted session. Any failure resolves to signed out.
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

	claims, err := p.tokens.Parse(rec.IDToken)
	if err != nil {
		log.Printf("SESSION_DISCARDED | provider=%s reason=%v", Name, err)
		_ = p.persist.Clear(ctx)
		return identity.SessionChange{}
	}
	user := rec.User
	user.ID = claims.Subject
	return identity.SessionChange{User: &user}
}

func (p *Provider) publishIfChanged(c identity.SessionChange) {
	if prev, ok := p.hub.Latest(); ok && prev.Err == nil && c.Err == nil && prev.User.SameIdentity(c.User) {
		return
	}
	p.hub.Publish(c)
}

// SendChallenge implements identity.Provider.
func (p *Provider) SendChallenge(ctx context.Context, phoneE164 string, surface challenge.Surface) (identity.ChallengeHandle, error) {
	if !phone.IsE164(phoneE164) {
		return "", identity.ErrInvalidPhoneNumber
	}
	if surface == nil {
		return "", challenge.ErrNoToken
	}
	if _, err := surface.Solve(ctx); err != nil {
		return "", fmt.Errorf("verification check failed: %w", err)
	}
	if !p.limiter.Allow(phoneE164) {
		return "", identity.ErrTooManyRequests
	}

	secret, err := newSecret()
	if err != nil {
		return "", err
	}
	code, err := hotp.GenerateCodeCustom(secret, 0, codeOpts)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	now := p.now()
	c := &Challenge{
		ID:        uuid.NewString(),
		Phone:     phoneE164,
		Secret:    secret,
		CreatedAt: now,
		ExpiresAt: now.Add(p.challengeTTL),
	}
	if err := p.store.Put(ctx, c); err != nil {
		return "", err
	}
	if err := p.sender.Deliver(ctx, phoneE164, code); err != nil {
		_ = p.store.Delete(ctx, c.ID)
		return "", err
	}

	log.Printf("CHALLENGE_DISPATCHED | provider=%s challenge=%s", Name, c.ID)
	return identity.ChallengeHandle(c.ID), nil
}

// VerifyChallenge implements identity.Provider.
func (p *Provider) VerifyChallenge(ctx context.Context, handle identity.ChallengeHandle, code string) (*identity.User, error) {
	c, err := p.store.Attempt(ctx, string(handle), func(c *Challenge) bool {
		ok, err := hotp.ValidateCustom(code, 0, c.Secret, codeOpts)
		return err == nil && ok
	}, p.maxAttempts)
	switch {
	case errors.Is(err, errCodeMismatch):
		return nil, identity.ErrInvalidCode
	case errors.Is(err, errChallengeNotFound), errors.Is(err, errAttemptsExceeded):
		return nil, identity.ErrChallengeExpired
	case err != nil:
		return nil, err
	}

	now := p.now()
	user := &identity.User{
		ID:          uuid.NewSHA1(userNamespace, []byte(c.Phone)).String(),
		PhoneNumber: c.Phone,
		SignedInAt:  now,
	}
	if prev, err := p.persist.Load(ctx); err != nil || prev.User.ID != user.ID {
		user.IsNewUser = true
	}

	token, expires, err := p.tokens.Issue(user.ID, user.PhoneNumber, now)
	if err != nil {
		return nil, err
	}
	rec := &storage.Record{
		Provider:  Name,
		User:      *user,
		IDToken:   token,
		ExpiresAt: expires,
		SavedAt:   now,
	}
	if err := p.persist.Save(ctx, rec); err != nil {
		log.Printf("SESSION_PERSIST_FAILED | provider=%s error=%v", Name, err)
	}

	p.hub.Publish(identity.SessionChange{User: user})
	return user, nil
}

// SignOut implements identity.Provider.
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
	if c, ok := p.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func newSecret() (string, error) {
	buf := make([]byte, 20)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}
