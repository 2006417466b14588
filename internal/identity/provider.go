// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"context"
	"errors"
	"time"

	"github.com/jeranaias/phonegate-tui/internal/challenge"
)

var (
	// ErrInvalidCode is returned when the submitted code does not match.
	// The challenge stays usable.
	ErrInvalidCode = errors.New("identity: invalid verification code")

	// ErrChallengeExpired is returned when the challenge no longer exists:
	// it expired or ran out of attempts. A new code must be requested.
	ErrChallengeExpired = errors.New("identity: verification challenge expired")

	// ErrInvalidPhoneNumber is returned by a provider that rejects the number.
	ErrInvalidPhoneNumber = errors.New("identity: invalid phone number")

	// ErrTooManyRequests is returned when sends are throttled.
	ErrTooManyRequests = errors.New("identity: too many requests, try again later")
)

// ChallengeHandle correlates a dispatched code with its verification call.
// Its contents are defined by the provider.
type ChallengeHandle string

// User is a signed-in user.
type User struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	IsNewUser   bool      `json:"is_new_user,omitempty"`
	SignedInAt  time.Time `json:"signed_in_at"`
}

// SameIdentity reports whether two users are the same account.
func (u *User) SameIdentity(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.ID == other.ID
}

// Provider is the identity platform capability.
type Provider interface {
	// SendChallenge dispatches a code to phoneE164 after solving surface.
	SendChallenge(ctx context.Context, phoneE164 string, surface challenge.Surface) (ChallengeHandle, error)

	// VerifyChallenge exchanges a code for a session. On success the session
	// stream announces the user before VerifyChallenge returns.
	VerifyChallenge(ctx context.Context, handle ChallengeHandle, code string) (*User, error)

	// SignOut ends the session and announces nil on the stream.
	SignOut(ctx context.Context) error

	// ObserveSessionChanges subscribes to the session stream. The returned
	// func unsubscribes and closes the channel.
	ObserveSessionChanges() (<-chan SessionChange, func())
}

// Starter is implemented by providers that restore a persisted session.
// Start must publish exactly one resolving change (user, nil or error).
type Starter interface {
	Start(ctx context.Context) error
}

// Closer is implemented by providers holding resources.
type Closer interface {
	Close() error
}
