// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jeranaias/phonegate-tui/internal/challenge"
	"github.com/jeranaias/phonegate-tui/internal/identity"
	"github.com/jeranaias/phonegate-tui/internal/phone"
)

// Step is the visible step of the flow.
type Step int

const (
	StepEnteringPhone Step = iota
	StepEnteringCode
)

func (s Step) String() string {
	if s == StepEnteringCode {
		return "entering_code"
	}
	return "entering_phone"
}

// StepFor derives the step from whether a challenge is pending.
func StepFor(hasPending bool) Step {
	if hasPending {
		return StepEnteringCode
	}
	return StepEnteringPhone
}

// Controller is the sign-in flow state machine. It is safe for concurrent
// use; at most one provider call is in flight at a time.
type Controller struct {
	provider   identity.Provider
	surface    challenge.Surface
	normalizer phone.Normalizer

	phone *Buffer
	code  *Buffer

	busy  atomic.Bool
	epoch atomic.Uint64

	mu      sync.Mutex
	pending identity.ChallengeHandle
}

// New creates a controller in the phone entry step.
func New(provider identity.Provider, surface challenge.Surface, normalizer phone.Normalizer) *Controller {
	return &Controller{
		provider:   provider,
		surface:    surface,
		normalizer: normalizer,
		phone:      NewBuffer(phone.SubscriberDigits),
		code:       NewBuffer(phone.CodeDigits),
	}
}

// Phone is the phone number input buffer.
func (c *Controller) Phone() *Buffer { return c.phone }

// Code is the code input buffer.
func (c *Controller) Code() *Buffer { return c.code }

// Surface returns the challenge surface used for sends.
func (c *Controller) Surface() challenge.Surface { return c.surface }

// CountryCode returns the calling code prefixed to numbers.
func (c *Controller) CountryCode() string { return c.normalizer.CountryCode() }

// Step returns the current step.
func (c *Controller) Step() Step {
	_, ok := c.Pending()
	return StepFor(ok)
}

// Pending returns the pending challenge handle, if any.
func (c *Controller) Pending() (identity.ChallengeHandle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending, c.pending != ""
}

// Busy reports whether an operation is in flight.
func (c *Controller) Busy() bool {
	return c.busy.Load()
}

// Epoch changes every time the controller is reset.
func (c *Controller) Epoch() uint64 {
	return c.epoch.Load()
}

// SendChallenge validates raw (exactly ten digits), normalizes it and asks
// the provider to dispatch a code. On success the handle becomes the pending
// challenge, replacing any previous one.
func (c *Controller) SendChallenge(ctx context.Context, raw string) (identity.ChallengeHandle, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer c.busy.Store(false)

	if err := phone.ValidateSubscriber(raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhoneNumber, err)
	}
	e164, err := c.normalizer.E164(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhoneNumber, err)
	}

	epoch := c.epoch.Load()
	handle, err := c.provider.SendChallenge(ctx, e164, c.surface)
	live := c.commit(epoch, func() {
		if err == nil && handle != "" {
			c.pending = handle
		}
	})
	if !live {
		return "", ErrAbandoned
	}
	if err != nil {
		return "", newProviderError(err)
	}
	if handle == "" {
		return "", &ProviderError{Message: "Failed to send OTP"}
	}
	c.code.Clear()
	return handle, nil
}

// VerifyChallenge validates code (exactly six digits) and asks the provider
// to verify it against handle, which must be the pending challenge.
//
// On failure the code buffer is cleared and the handle stays pending so the
// user can retry, unless the provider reports the challenge is gone; then the
// flow returns to phone entry.
func (c *Controller) VerifyChallenge(ctx context.Context, handle identity.ChallengeHandle, code string) (*identity.User, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)

	if err := phone.ValidateCode(code); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCodeFormat, err)
	}
	if pending, ok := c.Pending(); !ok || pending != handle {
		return nil, ErrNoPendingChallenge
	}

	epoch := c.epoch.Load()
	user, err := c.provider.VerifyChallenge(ctx, handle, code)
	live := c.commit(epoch, func() {
		if (err == nil || errors.Is(err, identity.ErrChallengeExpired)) && c.pending == handle {
			c.pending = ""
		}
	})
	if !live {
		return nil, ErrAbandoned
	}
	if err != nil {
		c.code.Clear()
		return nil, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}

	c.phone.Clear()
	c.code.Clear()
	return user, nil
}

// SubmitPhone sends a challenge for the phone buffer.
func (c *Controller) SubmitPhone(ctx context.Context) (identity.ChallengeHandle, error) {
	return c.SendChallenge(ctx, c.phone.String())
}

// SubmitCode verifies the code buffer against the pending challenge.
func (c *Controller) SubmitCode(ctx context.Context) (*identity.User, error) {
	handle, ok := c.Pending()
	if !ok {
		return nil, ErrNoPendingChallenge
	}
	return c.VerifyChallenge(ctx, handle, c.code.String())
}

// ChangeNumber drops the pending challenge and returns to phone entry,
// keeping the phone buffer for editing.
func (c *Controller) ChangeNumber() {
	c.mu.Lock()
	c.pending = ""
	c.mu.Unlock()
	c.code.Clear()
}

// Reset clears both buffers and the pending challenge. Operations in flight
// complete with ErrAbandoned and leave no trace.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.epoch.Add(1)
	c.pending = ""
	c.mu.Unlock()
	c.phone.Clear()
	c.code.Clear()
}

// commit applies the result of a provider call under the lock, unless the
// controller was reset since epoch was read. It reports whether it applied.
func (c *Controller) commit(epoch uint64, apply func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch.Load() != epoch {
		return false
	}
	apply()
	return true
}
