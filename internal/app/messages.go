// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/phonegate-tui/internal/challenge"
	"github.com/jeranaias/phonegate-tui/internal/flow"
	"github.com/jeranaias/phonegate-tui/internal/identity"
)

// =============================================================================
// MESSAGES
// =============================================================================

// sessionMsg carries one change from the session stream. closed is set when
// the stream ended.
type sessionMsg struct {
	change identity.SessionChange
	closed bool
}

// startedMsg reports the end of session restore.
type startedMsg struct {
	err error
}

// sendDoneMsg reports a finished SendChallenge.
type sendDoneMsg struct {
	gen    uint64
	handle identity.ChallengeHandle
	err    error
}

// verifyDoneMsg reports a finished VerifyChallenge.
type verifyDoneMsg struct {
	gen  uint64
	user *identity.User
	err  error
}

// signOutDoneMsg reports a finished SignOut.
type signOutDoneMsg struct {
	err error
}

// promptRequestMsg asks the UI to show the verification modal.
type promptRequestMsg struct {
	req   challenge.Request
	reply chan<- promptReply
}

type promptReply struct {
	value string
	err   error
}

// =============================================================================
// COMMANDS
// =============================================================================

// waitForSession reads the next change. It is re-issued after every change.
func waitForSession(changes <-chan identity.SessionChange) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-changes
		if !ok {
			return sessionMsg{closed: true}
		}
		return sessionMsg{change: c}
	}
}

func startCmd(ctx context.Context, start func(context.Context) error) tea.Cmd {
	if start == nil {
		return nil
	}
	return func() tea.Msg {
		return startedMsg{err: start(ctx)}
	}
}

func sendCmd(ctx context.Context, ctrl *flow.Controller, gen uint64) tea.Cmd {
	return func() tea.Msg {
		h, err := ctrl.SubmitPhone(ctx)
		return sendDoneMsg{gen: gen, handle: h, err: err}
	}
}

func verifyCmd(ctx context.Context, ctrl *flow.Controller, gen uint64) tea.Cmd {
	return func() tea.Msg {
		u, err := ctrl.SubmitCode(ctx)
		return verifyDoneMsg{gen: gen, user: u, err: err}
	}
}

func signOutCmd(ctx context.Context, p identity.Provider) tea.Cmd {
	return func() tea.Msg {
		return signOutDoneMsg{err: p.SignOut(ctx)}
	}
}

// =============================================================================
// PROMPT BRIDGE
// =============================================================================

// Prompter returns a challenge.Prompter that shows the modal through send
// (usually (*tea.Program).Send) and waits for the user.
func Prompter(send func(tea.Msg)) challenge.Prompter {
	return func(ctx context.Context, req challenge.Request) (string, error) {
		reply := make(chan promptReply, 1)
		send(promptRequestMsg{req: req, reply: reply})
		select {
		case r := <-reply:
			return r.value, r.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
