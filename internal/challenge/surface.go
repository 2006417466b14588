// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package challenge provides the anti-automation proof surfaces the identity
// platform requires before it dispatches a one-time code.
//
// Two variants exist. The invisible surface hands over a token that was
// established ahead of time (the web flow, rooted at a container element).
// The modal surface asks the user through a prompt (the native flow). One of
// them is chosen once at start-up by Select and injected into the flow
// controller; nothing else branches on the platform.
package challenge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Kind names a surface variant.
type Kind string

const (
	KindInvisible Kind = "invisible"
	KindModal     Kind = "modal"
)

// DefaultContainerID is the element the invisible widget is rooted at.
const DefaultContainerID = "recaptcha-container"

var (
	// ErrNoToken is returned when a surface has nothing to hand to the provider.
	ErrNoToken = errors.New("challenge: no verification token available")

	// ErrDismissed is returned when the user closes the modal without answering.
	ErrDismissed = errors.New("challenge: verification dismissed")

	// ErrNoPrompter is returned by a modal surface that has no prompt installed.
	ErrNoPrompter = errors.New("challenge: no prompt available")
)

// Proof is the result of solving a surface. Token is opaque to everyone but
// the identity provider.
type Proof struct {
	Kind     Kind
	Token    string
	SolvedAt time.Time
}

// Surface produces a Proof on demand.
type Surface interface {
	Kind() Kind
	Solve(ctx context.Context) (Proof, error)
}

// TokenSource yields a pre-established token.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken returns a TokenSource that always yields tok.
func StaticToken(tok string) TokenSource {
	return func(context.Context) (string, error) {
		if tok == "" {
			return "", ErrNoToken
		}
		return tok, nil
	}
}

// =============================================================================
// INVISIBLE SURFACE
// =============================================================================

// InvisibleSurface is the web variant: no user interaction, the token comes
// from a widget rooted at ContainerID.
type InvisibleSurface struct {
	ContainerID string
	source      TokenSource
}

// NewInvisibleSurface creates an invisible surface.
func NewInvisibleSurface(containerID string, source TokenSource) *InvisibleSurface {
	if containerID == "" {
		containerID = DefaultContainerID
	}
	return &InvisibleSurface{ContainerID: containerID, source: source}
}

// Kind implements Surface.
func (s *InvisibleSurface) Kind() Kind { return KindInvisible }

// Solve implements Surface.
func (s *InvisibleSurface) Solve(ctx context.Context) (Proof, error) {
	if s.source == nil {
		return Proof{}, ErrNoToken
	}
	tok, err := s.source(ctx)
	if err != nil {
		return Proof{}, err
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return Proof{}, ErrNoToken
	}
	return Proof{Kind: KindInvisible, Token: tok, SolvedAt: time.Now()}, nil
}

// =============================================================================
// MODAL SURFACE
// =============================================================================

// Request describes what the modal should show.
type Request struct {
	Title   string
	Message string
}

// Prompter shows a modal and returns what the user entered.
type Prompter func(ctx context.Context, req Request) (string, error)

// ModalSurface is the native variant. When an invisible source is set it is
// tried first and the modal is only shown if it fails.
type ModalSurface struct {
	mu        sync.RWMutex
	prompt    Prompter
	invisible TokenSource
}

// NewModalSurface creates a modal surface. The prompter may be installed
// later with SetPrompter, once the UI exists.
func NewModalSurface(prompt Prompter, attemptInvisible TokenSource) *ModalSurface {
	return &ModalSurface{prompt: prompt, invisible: attemptInvisible}
}

// SetPrompter installs the prompt used to show the modal.
func (s *ModalSurface) SetPrompter(p Prompter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = p
}

// Kind implements Surface.
func (s *ModalSurface) Kind() Kind { return KindModal }

// Solve implements Surface.
func (s *ModalSurface) Solve(ctx context.Context) (Proof, error) {
	s.mu.RLock()
	prompt, invisible := s.prompt, s.invisible
	s.mu.RUnlock()

	if invisible != nil {
		if tok, err := invisible(ctx); err == nil && strings.TrimSpace(tok) != "" {
			return Proof{Kind: KindInvisible, Token: strings.TrimSpace(tok), SolvedAt: time.Now()}, nil
		}
	}
	if prompt == nil {
		return Proof{}, ErrNoPrompter
	}

	answer, err := prompt(ctx, Request{
		Title:   "Verify you are human",
		Message: "Paste the verification token shown by the challenge page.",
	})
	if err != nil {
		return Proof{}, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Proof{}, ErrDismissed
	}
	return Proof{Kind: KindModal, Token: answer, SolvedAt: time.Now()}, nil
}
