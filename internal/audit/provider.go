// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

import (
	"context"
	"log"

	"github.com/jeranaias/phonegate-tui/internal/challenge"
	"github.com/jeranaias/phonegate-tui/internal/identity"
)

// Provider records every sign-in operation of the wrapped provider.
type Provider struct {
	inner identity.Provider
	log   *Logger
	name  string
}

// WrapProvider returns p with auditing. A nil logger returns p unchanged.
func WrapProvider(p identity.Provider, l *Logger, name string) identity.Provider {
	if l == nil {
		return p
	}
	return &Provider{inner: p, log: l, name: name}
}

func (p *Provider) meta(extra map[string]string) map[string]string {
	m := map[string]string{"provider": p.name}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func (p *Provider) record(err error) {
	if err != nil {
		log.Printf("AUDIT_WRITE_FAILED | error=%v", err)
	}
}

// Start forwards to the wrapped provider and records a restored session.
func (p *Provider) Start(ctx context.Context) error {
	s, ok := p.inner.(identity.Starter)
	if !ok {
		return nil
	}
	if err := s.Start(ctx); err != nil {
		return err
	}

	changes, cancel := p.inner.ObserveSessionChanges()
	defer cancel()
	select {
	case c := <-changes:
		if c.User != nil {
			p.record(p.log.LogEvent(EventSessionRestored, c.User.PhoneNumber, p.meta(map[string]string{"user_id": c.User.ID})))
		}
	default:
	}
	return nil
}

// SendChallenge implements identity.Provider.
func (p *Provider) SendChallenge(ctx context.Context, phoneE164 string, surface challenge.Surface) (identity.ChallengeHandle, error) {
	handle, err := p.inner.SendChallenge(ctx, phoneE164, surface)
	meta := map[string]string{}
	if surface != nil {
		meta["surface"] = string(surface.Kind())
	}
	if err != nil {
		p.record(p.log.LogFailure(EventChallengeSent, phoneE164, err, p.meta(meta)))
	} else {
		p.record(p.log.LogEvent(EventChallengeSent, phoneE164, p.meta(meta)))
	}
	return handle, err
}

// VerifyChallenge implements identity.Provider.
func (p *Provider) VerifyChallenge(ctx context.Context, handle identity.ChallengeHandle, code string) (*identity.User, error) {
	user, err := p.inner.VerifyChallenge(ctx, handle, code)
	if err != nil {
		p.record(p.log.LogFailure(EventVerifyFailed, "", err, p.meta(nil)))
		return nil, err
	}
	p.record(p.log.LogEvent(EventVerifyOK, user.PhoneNumber, p.meta(map[string]string{"user_id": user.ID})))
	return user, nil
}

// SignOut implements identity.Provider.
func (p *Provider) SignOut(ctx context.Context) error {
	err := p.inner.SignOut(ctx)
	if err != nil {
		p.record(p.log.LogFailure(EventSignOut, "", err, p.meta(nil)))
	} else {
		p.record(p.log.LogEvent(EventSignOut, "", p.meta(nil)))
	}
	return err
}

// ObserveSessionChanges implements identity.Provider.
func (p *Provider) ObserveSessionChanges() (<-chan identity.SessionChange, func()) {
	return p.inner.ObserveSessionChanges()
}

// Close closes the wrapped provider and the log.
func (p *Provider) Close() error {
	var err error
	if c, ok := p.inner.(identity.Closer); ok {
		err = c.Close()
	}
	if cerr := p.log.Close(); err == nil {
		err = cerr
	}
	return err
}
