// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package flow

import (
	"errors"

	"github.com/jeranaias/phonegate-tui/internal/identity"
)

var (
	// ErrInvalidPhoneNumber is returned when the phone input is not exactly
	// ten ASCII digits. The provider is not called.
	ErrInvalidPhoneNumber = errors.New("flow: invalid phone number")

	// ErrInvalidCodeFormat is returned when the code input is not exactly six
	// ASCII digits. The provider is not called.
	ErrInvalidCodeFormat = errors.New("flow: invalid code format")

	// ErrVerificationFailed is returned when the provider rejects the code.
	ErrVerificationFailed = errors.New("flow: verification failed")

	// ErrBusy is returned when another operation is in flight.
	ErrBusy = errors.New("flow: operation already in progress")

	// ErrNoPendingChallenge is returned when verifying without a matching
	// pending challenge.
	ErrNoPendingChallenge = errors.New("flow: no pending challenge")

	// ErrAbandoned is returned when the flow was reset while the operation
	// was in flight. The result was not applied.
	ErrAbandoned = errors.New("flow: reset while operation was in flight")
)

// ProviderError wraps a failure to dispatch a code. Message is shown to the
// user as-is.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func newProviderError(err error) *ProviderError {
	msg := err.Error()
	if msg == "" {
		msg = "Failed to send OTP"
	}
	return &ProviderError{Message: msg, Err: err}
}

// Notice is a user-facing title and message.
type Notice struct {
	Title   string
	Message string
}

var (
	// CodeSentNotice is shown after a code is dispatched.
	CodeSentNotice = Notice{Title: "Success", Message: "OTP sent to your phone number!"}

	// SignedInNotice is shown after a successful verification.
	SignedInNotice = Notice{Title: "Success!", Message: "You have been signed in."}
)

// Describe turns a controller error into the notice shown to the user.
func Describe(err error) Notice {
	var perr *ProviderError
	switch {
	case err == nil:
		return Notice{}
	case errors.Is(err, ErrInvalidPhoneNumber):
		return Notice{Title: "Invalid Number", Message: "Please enter a valid 10-digit phone number."}
	case errors.Is(err, ErrInvalidCodeFormat):
		return Notice{Title: "Invalid Code", Message: "Please enter a valid 6-digit OTP."}
	case errors.Is(err, ErrVerificationFailed) && errors.Is(err, identity.ErrChallengeExpired):
		return Notice{Title: "Error", Message: "This code has expired. Please request a new one."}
	case errors.Is(err, ErrVerificationFailed):
		return Notice{Title: "Error", Message: "Invalid OTP code. Please try again."}
	case errors.As(err, &perr):
		return Notice{Title: "Error", Message: perr.Message}
	case errors.Is(err, ErrBusy):
		return Notice{Title: "Please wait", Message: "A request is already in progress."}
	case errors.Is(err, ErrNoPendingChallenge):
		return Notice{Title: "Error", Message: "Request a code first."}
	default:
		return Notice{Title: "Error", Message: err.Error()}
	}
}
