// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"log"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/phonegate-tui/internal/challenge"
	"github.com/jeranaias/phonegate-tui/internal/flow"
	"github.com/jeranaias/phonegate-tui/internal/guard"
	"github.com/jeranaias/phonegate-tui/internal/identity"
	"github.com/jeranaias/phonegate-tui/internal/phone"
	"github.com/jeranaias/phonegate-tui/internal/ui/components"
	"github.com/jeranaias/phonegate-tui/internal/ui/styles"
)

// Options configures a Model.
type Options struct {
	Provider   identity.Provider
	Controller *flow.Controller
	Theme      *styles.Theme

	// Start restores the persisted session. Optional.
	Start func(ctx context.Context) error

	// Header details.
	ProviderLabel string
	PlatformLabel string

	// OutboxHint tells the user where development codes are delivered.
	OutboxHint string
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	provider identity.Provider
	ctrl     *flow.Controller
	start    func(context.Context) error

	changes     <-chan identity.SessionChange
	unsubscribe func()

	guard guard.Guard
	user  *identity.User

	// loginGen is bumped every time the sign-in screen is entered or left.
	// Command results from an earlier generation are dropped.
	loginGen  uint64
	inflight  bool
	verifying bool

	theme      *styles.Theme
	header     *components.Header
	toasts     *components.ToastManager
	spinner    components.Spinner
	resolving  components.Spinner
	waiting    components.Spinner
	prompt     *components.Prompt
	phoneField *components.DigitField
	codeField  *components.DigitField

	promptReply chan<- promptReply
	outboxHint  string
	showPhone   bool
	quitting    bool

	width  int
	height int
}

// New creates the root model and subscribes to the session stream.
func New(opts Options) *Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}
	ctx, cancel := context.WithCancel(context.Background())
	changes, unsubscribe := opts.Provider.ObserveSessionChanges()

	m := &Model{
		ctx:         ctx,
		cancel:      cancel,
		provider:    opts.Provider,
		ctrl:        opts.Controller,
		start:       opts.Start,
		changes:     changes,
		unsubscribe: unsubscribe,
		theme:       theme,
		header:      components.NewHeader(theme),
		toasts:      components.NewToastManager(),
		spinner:     components.NewSpinner(styles.LineSpinner, "Sending code"),
		resolving:   components.NewSpinner(styles.DotsSpinner, "Checking session"),
		waiting:     components.NewSpinner(styles.PulseSpinner, "Waiting for verification"),
		prompt:      components.NewPrompt(theme),
		outboxHint:  opts.OutboxHint,
		width:       80,
		height:      24,
	}
	m.header.Provider = opts.ProviderLabel
	m.header.Platform = opts.PlatformLabel
	m.resolving.SetShowTimer(false)
	m.theme.SetSize(m.width, m.height)

	m.phoneField = components.NewDigitField(theme, "Phone number", phone.SubscriberDigits)
	m.phoneField.Prefix = "+" + opts.Controller.CountryCode()
	m.phoneField.SetGroups(5, 5)

	m.codeField = components.NewDigitField(theme, "Verification code", phone.CodeDigits)
	m.codeField.SetGroups(3, 3)
	return m
}

// Route returns the current screen.
func (m *Model) Route() guard.Route { return m.guard.Route() }

// User returns the signed-in user, if any.
func (m *Model) User() *identity.User { return m.user }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		waitForSession(m.changes),
		startCmd(m.ctx, m.start),
		m.resolving.Start(),
		components.ToastTickCmd(),
	)
}

// Close releases the session subscription and cancels in-flight work.
func (m *Model) Close() {
	m.cancel()
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.answerPrompt(promptReply{err: challenge.ErrDismissed})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.header.SetWidth(msg.Width)
		m.prompt.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionMsg:
		return m.handleSession(msg)

	case startedMsg:
		if msg.err != nil {
			// Restore failed before anything was announced.
			log.Printf("SESSION_START_FAILED | error=%v", msg.err)
			return m.applySession(identity.SessionChange{Err: msg.err})
		}
		return m, nil

	case sendDoneMsg:
		return m.handleSendDone(msg)

	case verifyDoneMsg:
		return m.handleVerifyDone(msg)

	case signOutDoneMsg:
		if msg.err != nil {
			m.toastError(flow.Notice{Title: "Error", Message: msg.err.Error()})
		}
		return m, nil

	case promptRequestMsg:
		if m.guard.Route() != guard.RouteLogin || m.prompt.Active() {
			msg.reply <- promptReply{err: challenge.ErrDismissed}
			return m, nil
		}
		m.promptReply = msg.reply
		return m, tea.Batch(m.prompt.Open(msg.req.Title, msg.req.Message), m.waiting.Start())

	case components.ToastTickMsg:
		m.toasts.Tick()
		return m, components.ToastTickCmd()

	case spinner.TickMsg:
		var c1, c2, c3 tea.Cmd
		m.spinner, c1 = m.spinner.Update(msg)
		m.resolving, c2 = m.resolving.Update(msg)
		m.waiting, c3 = m.waiting.Update(msg)
		return m, tea.Batch(c1, c2, c3)
	}

	if m.prompt.Active() {
		_, cmd := m.prompt.Update(msg)
		return m, cmd
	}
	return m, nil
}

// =============================================================================
// SESSION
// =============================================================================

func (m *Model) handleSession(msg sessionMsg) (tea.Model, tea.Cmd) {
	if msg.closed {
		log.Printf("SESSION_STREAM_CLOSED | route=%s", m.guard.Route())
		return m, nil
	}
	model, cmd := m.applySession(msg.change)
	return model, tea.Batch(cmd, waitForSession(m.changes))
}

func (m *Model) applySession(c identity.SessionChange) (tea.Model, tea.Cmd) {
	if c.Err != nil {
		log.Printf("SESSION_STREAM_ERROR | error=%v", c.Err)
	}
	nav, ok := m.guard.Decide(identity.SessionFrom(c))
	if !ok {
		return m, nil
	}
	return m, m.navigate(nav)
}

// navigate leaves the current screen and enters nav.Route.
func (m *Model) navigate(nav guard.Navigation) tea.Cmd {
	log.Printf("NAVIGATE | route=%s", nav.Route)
	m.resolving.Stop()
	m.leaveLogin()

	switch nav.Route {
	case guard.RouteHome:
		m.user = nav.User
		m.showPhone = false
		m.header.Badge = components.BadgeSignedIn
		if m.verifying {
			m.verifying = false
			m.toasts.AddSuccess(flow.SignedInNotice.Title, flow.SignedInNotice.Message)
		}
	case guard.RouteLogin:
		m.user = nil
		m.verifying = false
		m.header.Badge = components.BadgeSignedOut
		m.enterLogin()
	}
	return nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}

	if m.prompt.Active() {
		res, cmd := m.prompt.Update(msg)
		switch res {
		case components.PromptSubmitted:
			m.answerPrompt(promptReply{value: m.prompt.Value()})
		case components.PromptDismissed:
			m.answerPrompt(promptReply{err: challenge.ErrDismissed})
		}
		return m, cmd
	}

	switch m.guard.Route() {
	case guard.RouteLogin:
		return m.handleLoginKey(msg)
	case guard.RouteHome:
		return m.handleHomeKey(msg)
	default:
		if msg.String() == "q" {
			return m.quit()
		}
	}
	return m, nil
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.leaveLogin()
	m.Close()
	return m, tea.Quit
}

func (m *Model) answerPrompt(r promptReply) {
	if m.promptReply != nil {
		m.promptReply <- r
		m.promptReply = nil
	}
	m.prompt.Close()
	m.waiting.Stop()
}

func (m *Model) toastError(n flow.Notice) {
	m.toasts.AddError(n.Title, n.Message)
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	var shortcuts []components.Shortcut
	switch m.guard.Route() {
	case guard.RouteLogin:
		body, shortcuts = m.loginView()
	case guard.RouteHome:
		body, shortcuts = m.homeView()
	default:
		body = m.resolving.View()
		shortcuts = []components.Shortcut{{Key: "q", Desc: "quit"}}
	}

	if m.prompt.Active() {
		body = lipgloss.JoinVertical(lipgloss.Center, m.prompt.View(), "", m.waiting.View())
	}

	header := m.header.View()
	footer := components.ShortcutBar(m.theme, m.width, shortcuts...)
	toasts := components.RenderToastStack(m.toasts.Toasts(), m.width)

	middle := m.height - lipgloss.Height(header) - lipgloss.Height(footer) - lipgloss.Height(toasts)
	if middle < lipgloss.Height(body) {
		middle = lipgloss.Height(body)
	}
	content := lipgloss.Place(m.width, middle, lipgloss.Center, lipgloss.Center, body)

	parts := []string{header, content}
	if toasts != "" {
		parts = append(parts, toasts)
	}
	parts = append(parts, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// cardWidth returns the width of the centred card. Narrow terminals get
// the full width less a margin.
func (m *Model) cardWidth(preferred int) int {
	switch m.theme.GetLayoutMode() {
	case styles.LayoutNarrow:
		return max(min(preferred, m.width-4), 20)
	case styles.LayoutWide:
		return preferred + 8
	default:
		return preferred
	}
}

// isAbandoned reports results that belong to a reset flow.
func isAbandoned(err error) bool {
	return errors.Is(err, flow.ErrAbandoned)
}
