// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/phonegate-tui/internal/challenge"
	"github.com/jeranaias/phonegate-tui/internal/flow"
	"github.com/jeranaias/phonegate-tui/internal/ui/components"
)

// =============================================================================
// LOGIN SCREEN LIFECYCLE
// =============================================================================

// enterLogin mounts a fresh sign-in screen.
func (m *Model) enterLogin() {
	m.loginGen++
	m.verifying = false
	m.phoneField.Reset()
	m.codeField.Reset()
	m.codeField.Blur()
	m.phoneField.Focus()
}

// leaveLogin unmounts the sign-in screen. Pending work is abandoned and its
// results are dropped when they arrive.
func (m *Model) leaveLogin() {
	m.loginGen++
	m.ctrl.Reset()
	m.inflight = false
	m.spinner.Stop()
	m.phoneField.Reset()
	m.codeField.Reset()
	m.phoneField.Blur()
	m.codeField.Blur()
	if m.prompt.Active() {
		m.answerPrompt(promptReply{err: challenge.ErrDismissed})
	}
}

// =============================================================================
// INPUT
// =============================================================================

func (m *Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m.submit()
	case tea.KeyEsc:
		if m.ctrl.Step() == flow.StepEnteringCode && !m.inflight {
			m.ctrl.ChangeNumber()
			m.codeField.Reset()
			m.codeField.Blur()
			m.phoneField.Focus()
		}
		return m, nil
	}
	if msg.String() == "x" {
		m.toasts.Dismiss()
		return m, nil
	}
	if m.inflight {
		return m, nil
	}

	if m.ctrl.Step() == flow.StepEnteringCode {
		if m.codeField.Update(msg) {
			m.ctrl.Code().Set(m.codeField.Value())
		}
		return m, nil
	}
	if m.phoneField.Update(msg) {
		m.ctrl.Phone().Set(m.phoneField.Value())
	}
	return m, nil
}

// submit starts the operation for the current step. At most one is in flight.
func (m *Model) submit() (tea.Model, tea.Cmd) {
	if m.inflight {
		return m, nil
	}
	m.inflight = true

	if m.ctrl.Step() == flow.StepEnteringCode {
		m.ctrl.Code().Set(m.codeField.Value())
		m.verifying = true
		m.spinner.SetMessage("Verifying code")
		return m, tea.Batch(verifyCmd(m.ctx, m.ctrl, m.loginGen), m.spinner.Start())
	}
	m.ctrl.Phone().Set(m.phoneField.Value())
	m.spinner.SetMessage("Sending code")
	return m, tea.Batch(sendCmd(m.ctx, m.ctrl, m.loginGen), m.spinner.Start())
}

// =============================================================================
// RESULTS
// =============================================================================

func (m *Model) handleSendDone(msg sendDoneMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.loginGen || isAbandoned(msg.err) {
		log.Printf("SEND_RESULT_DROPPED | gen=%d current=%d", msg.gen, m.loginGen)
		return m, nil
	}
	m.inflight = false
	m.spinner.Stop()

	if msg.err != nil {
		m.toastError(flow.Describe(msg.err))
		return m, nil
	}

	m.toasts.AddSuccess(flow.CodeSentNotice.Title, flow.CodeSentNotice.Message)
	if m.outboxHint != "" {
		m.toasts.AddStatus("Development delivery", m.outboxHint)
	}
	m.phoneField.Blur()
	m.codeField.Reset()
	m.codeField.Focus()
	return m, nil
}

func (m *Model) handleVerifyDone(msg verifyDoneMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.loginGen || isAbandoned(msg.err) {
		log.Printf("VERIFY_RESULT_DROPPED | gen=%d current=%d", msg.gen, m.loginGen)
		return m, nil
	}
	m.inflight = false
	m.spinner.Stop()

	if msg.err != nil {
		m.verifying = false
		m.toastError(flow.Describe(msg.err))
		m.codeField.Reset()
		if m.ctrl.Step() == flow.StepEnteringPhone {
			m.codeField.Blur()
			m.phoneField.Focus()
		}
		return m, nil
	}

	// The session stream navigates away; this only confirms.
	if m.verifying {
		m.verifying = false
		m.toasts.AddSuccess(flow.SignedInNotice.Title, flow.SignedInNotice.Message)
	}
	return m, nil
}

// ready reports whether the field for the current step is complete.
func (m *Model) ready() bool {
	if m.ctrl.Step() == flow.StepEnteringCode {
		return m.codeField.Full()
	}
	return m.phoneField.Full()
}

// =============================================================================
// VIEW
// =============================================================================

func (m *Model) loginView() (string, []components.Shortcut) {
	t := m.theme
	var b strings.Builder

	b.WriteString(t.CardTitle.Render("Sign in with your phone"))
	b.WriteString("\n\n")

	var shortcuts []components.Shortcut
	if m.ctrl.Step() == flow.StepEnteringCode {
		b.WriteString(t.CardText.Render("Enter the 6-digit code sent to +" + m.ctrl.CountryCode() + " " + m.ctrl.Phone().String()))
		b.WriteString("\n\n")
		b.WriteString(m.codeField.View())
		shortcuts = []components.Shortcut{
			{Key: "enter", Desc: "verify"},
			{Key: "esc", Desc: "change number"},
		}
	} else {
		b.WriteString(t.CardText.Render("We will text you a one-time code."))
		b.WriteString("\n\n")
		b.WriteString(m.phoneField.View())
		shortcuts = []components.Shortcut{
			{Key: "enter", Desc: "send code"},
		}
	}
	shortcuts = append(shortcuts,
		components.Shortcut{Key: "x", Desc: "dismiss"},
		components.Shortcut{Key: "ctrl+c", Desc: "quit"},
	)

	b.WriteString("\n\n")
	if m.inflight {
		b.WriteString(m.spinner.View())
	} else {
		label := "Send code"
		if m.ctrl.Step() == flow.StepEnteringCode {
			label = "Verify"
		}
		if m.ready() {
			b.WriteString(t.Button.Render(label))
		} else {
			b.WriteString(t.ButtonDisabled.Render(label))
		}
	}

	return t.Card.Width(m.cardWidth(44)).Render(b.String()), shortcuts
}
