// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/phonegate-tui/internal/config"
	"github.com/jeranaias/phonegate-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true)

	successStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	highlightStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.Purple).
			Padding(1, 2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	unselectedStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)
)

const logo = `
   ┌─┐┬ ┬┌─┐┌┐┌┌─┐┌─┐┌─┐┌┬┐┌─┐
   ├─┘├─┤│ ││││├┤ │ ┬├─┤ │ ├┤
   ┴  ┴ ┴└─┘┘└┘└─┘└─┘┴ ┴ ┴ └─┘
`

const tagline = "Phone number sign-in for the terminal"

// =============================================================================
// WIZARD MODEL
// =============================================================================

// Phase represents the current wizard phase
type Phase int

const (
	PhaseWelcome Phase = iota
	PhaseSystemCheck
	PhaseQuestions
	PhaseReview
	PhaseComplete
)

// Wizard is the full-screen setup model.
type Wizard struct {
	phase    Phase
	width    int
	height   int
	spinner  spinner.Model
	progress progress.Model
	input    textinput.Model

	runners      []systemCheck
	checks       []CheckResult
	currentCheck int

	cfg      *config.Config
	path     string
	existed  bool
	answers  answers
	qi       int
	selected int
	error    string
	writing  bool
	written  bool
}

// checkCompleteMsg signals a check is complete
type checkCompleteMsg struct {
	index  int
	result CheckResult
}

// writeDoneMsg carries the result of writing the config file.
type writeDoneMsg struct {
	err error
}

// newWizard loads the current configuration and prepares the checks.
func newWizard() (*Wizard, error) {
	cfg, path, existed, err := loadExisting()
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Purple)

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 48
	ti.Prompt = "> "

	runners := systemChecks()
	checks := make([]CheckResult, len(runners))
	for i, r := range runners {
		checks[i] = CheckResult{Name: r.Name, Status: statusChecking}
	}

	return &Wizard{
		phase:    PhaseWelcome,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
		input:    ti,
		runners:  runners,
		checks:   checks,
		cfg:      cfg,
		path:     path,
		existed:  existed,
		answers:  answersFrom(cfg),
	}, nil
}

// Init starts the spinner.
func (w *Wizard) Init() tea.Cmd {
	return w.spinner.Tick
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages
func (w *Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return w.handleKey(msg)

	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.height = msg.Height
		w.progress.Width = clamp(msg.Width-20, 20, 60)
		return w, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return w, cmd

	case checkCompleteMsg:
		w.checks[msg.index] = msg.result
		w.currentCheck++
		if w.currentCheck < len(w.runners) {
			return w, w.runCheck(w.currentCheck)
		}
		return w, nil

	case writeDoneMsg:
		w.writing = false
		if msg.err != nil {
			w.error = msg.err.Error()
			return w, nil
		}
		w.written = true
		w.phase = PhaseComplete
		return w, nil
	}

	if w.phase == PhaseQuestions {
		var cmd tea.Cmd
		w.input, cmd = w.input.Update(msg)
		return w, cmd
	}
	return w, nil
}

// handleKey processes key presses
func (w *Wizard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return w, tea.Quit
	}
	if w.phase == PhaseQuestions {
		return w.handleQuestionKey(msg)
	}

	switch msg.String() {
	case "q":
		return w, tea.Quit

	case "enter", " ", "y":
		switch w.phase {
		case PhaseWelcome:
			w.phase = PhaseSystemCheck
			return w, w.runCheck(0)
		case PhaseSystemCheck:
			if w.currentCheck >= len(w.runners) {
				w.phase = PhaseQuestions
				w.qi = 0
				return w, w.startQuestion()
			}
		case PhaseReview:
			if w.writing {
				return w, nil
			}
			w.writing = true
			w.error = ""
			return w, w.writeCmd()
		case PhaseComplete:
			return w, tea.Quit
		}

	case "esc", "n":
		if w.phase == PhaseReview && !w.writing {
			w.phase = PhaseQuestions
			w.qi = len(pending(w.answers)) - 1
			return w, w.startQuestion()
		}
	}
	return w, nil
}

func (w *Wizard) handleQuestionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	q := w.question()

	switch msg.Type {
	case tea.KeyEsc:
		if w.qi > 0 {
			w.qi--
			return w, w.startQuestion()
		}
		w.phase = PhaseSystemCheck
		return w, nil

	case tea.KeyEnter:
		raw := w.input.Value()
		if len(q.Choices) > 0 {
			raw = q.Choices[w.selected].Value
		}
		v, err := q.resolve(raw, w.answers[q.Key])
		if err != nil {
			w.error = err.Error()
			return w, nil
		}
		w.answers[q.Key] = v
		w.qi++
		if w.qi >= len(pending(w.answers)) {
			w.phase = PhaseReview
			w.input.Blur()
			return w, nil
		}
		return w, w.startQuestion()
	}

	if len(q.Choices) > 0 {
		switch msg.String() {
		case "up", "k":
			if w.selected > 0 {
				w.selected--
			}
		case "down", "j", "tab":
			if w.selected < len(q.Choices)-1 {
				w.selected++
			}
		}
		return w, nil
	}

	var cmd tea.Cmd
	w.input, cmd = w.input.Update(msg)
	return w, cmd
}

// question returns the question being asked.
func (w *Wizard) question() question {
	return pending(w.answers)[w.qi]
}

// startQuestion prepares the widgets for the current question.
func (w *Wizard) startQuestion() tea.Cmd {
	q := w.question()
	current := w.answers[q.Key]
	w.error = ""

	if len(q.Choices) > 0 {
		w.selected = 0
		for i, c := range q.Choices {
			if c.Value == current {
				w.selected = i
			}
		}
		w.input.Blur()
		return nil
	}

	w.input.Reset()
	w.input.EchoMode = textinput.EchoNormal
	w.input.Placeholder = current
	if q.Secret {
		w.input.EchoMode = textinput.EchoPassword
		w.input.Placeholder = ""
		if current != "" {
			w.input.Placeholder = "keep current"
		}
	}
	return w.input.Focus()
}

func (w *Wizard) runCheck(index int) tea.Cmd {
	run := w.runners[index].Run
	return func() tea.Msg {
		return checkCompleteMsg{index: index, result: run()}
	}
}

func (w *Wizard) writeCmd() tea.Cmd {
	cfg, a, path := w.cfg, w.answers, w.path
	return func() tea.Msg {
		return writeDoneMsg{err: writeConfig(cfg, a, path)}
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the wizard
func (w *Wizard) View() string {
	switch w.phase {
	case PhaseWelcome:
		return w.viewWelcome()
	case PhaseSystemCheck:
		return w.viewSystemCheck()
	case PhaseQuestions:
		return w.viewQuestion()
	case PhaseReview:
		return w.viewReview()
	case PhaseComplete:
		return w.viewComplete()
	}
	return ""
}

func (w *Wizard) viewWelcome() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(logo))
	s.WriteString("\n")
	s.WriteString(subtitleStyle.Render("   " + tagline))
	s.WriteString("\n\n")

	body := "This wizard will:\n\n" +
		"  * Check your system\n" +
		"  * Ask how you want to sign in\n" +
		"  * Write " + w.path
	if w.existed {
		body += "\n\n" + warningStyle.Render("An existing configuration is the starting point.")
	}
	s.WriteString(boxStyle.Render(body))
	s.WriteString("\n\n")
	s.WriteString(highlightStyle.Render("  Press ENTER to begin"))
	s.WriteString(dimStyle.Render("  |  Press Q to quit"))
	return w.center(s.String())
}

func (w *Wizard) viewSystemCheck() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("  System Check"))
	s.WriteString("\n\n")

	for idx, check := range w.checks {
		var icon, status string
		var style lipgloss.Style

		switch check.Status {
		case statusChecking:
			icon = "[ ]"
			if idx == w.currentCheck {
				icon = w.spinner.View()
			}
			status = "Checking..."
			style = dimStyle
		case statusPass:
			icon, status, style = "[OK]", check.Message, successStyle
		case statusFail:
			icon, status, style = "[FAIL]", check.Message, errorStyle
		case statusWarn:
			icon, status, style = "[!!]", check.Message, warningStyle
		}

		s.WriteString(fmt.Sprintf("  %s %s", style.Render(icon), check.Name))
		s.WriteString(dimStyle.Render(" - " + status))
		s.WriteString("\n")
		if check.Fix != "" {
			s.WriteString(dimStyle.Render("      -> " + check.Fix))
			s.WriteString("\n")
		}
	}
	s.WriteString("\n")

	if w.currentCheck >= len(w.runners) {
		failed := false
		for _, c := range w.checks {
			if c.Status == statusFail {
				failed = true
			}
		}
		if failed {
			s.WriteString(warningStyle.Render("  Some checks need attention"))
			s.WriteString("\n\n")
			s.WriteString(highlightStyle.Render("  Press ENTER to continue anyway"))
		} else {
			s.WriteString(successStyle.Render("  All checks passed"))
			s.WriteString("\n\n")
			s.WriteString(highlightStyle.Render("  Press ENTER to continue"))
		}
	}
	return w.center(s.String())
}

func (w *Wizard) viewQuestion() string {
	q := w.question()
	total := len(pending(w.answers))

	var s strings.Builder
	s.WriteString(w.progress.ViewAs(float64(w.qi) / float64(total)))
	s.WriteString(dimStyle.Render(fmt.Sprintf("  %d/%d", w.qi+1, total)))
	s.WriteString("\n\n")
	s.WriteString(titleStyle.Render(q.Title))
	s.WriteString("\n")
	if q.Help != "" {
		s.WriteString(dimStyle.Render(q.Help))
		s.WriteString("\n\n")
	}

	if len(q.Choices) > 0 {
		for idx, c := range q.Choices {
			if idx == w.selected {
				s.WriteString(selectedStyle.Render("  > " + c.Label))
			} else {
				s.WriteString(unselectedStyle.Render("    " + c.Label))
			}
			s.WriteString("\n")
		}
		s.WriteString("\n")
		s.WriteString(dimStyle.Render("Up/Down to select  |  Enter to confirm  |  Esc to go back"))
	} else {
		s.WriteString(w.input.View())
		s.WriteString("\n\n")
		s.WriteString(dimStyle.Render("Enter to confirm  |  Esc to go back"))
	}

	if w.error != "" {
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render("[X] " + w.error))
	}
	return w.center(s.String())
}

func (w *Wizard) viewReview() string {
	var s strings.Builder
	s.WriteString(w.progress.ViewAs(1))
	s.WriteString("\n\n")
	s.WriteString(titleStyle.Render("  Review"))
	s.WriteString("\n\n")

	var rows strings.Builder
	for _, q := range pending(w.answers) {
		rows.WriteString(fmt.Sprintf("%-24s %s\n", q.Key, highlightStyle.Render(q.display(w.answers[q.Key]))))
	}
	s.WriteString(boxStyle.Render(strings.TrimRight(rows.String(), "\n")))
	s.WriteString("\n\n")

	switch {
	case w.writing:
		s.WriteString(fmt.Sprintf("  %s Writing %s", w.spinner.View(), w.path))
	case w.error != "":
		s.WriteString(errorStyle.Render("  [X] " + w.error))
		s.WriteString("\n\n")
		s.WriteString(dimStyle.Render("  Esc to change answers  |  Q to quit"))
	default:
		s.WriteString(highlightStyle.Render("  Press ENTER to write " + w.path))
		s.WriteString("\n")
		s.WriteString(dimStyle.Render("  Esc to change answers  |  Q to quit"))
	}
	return w.center(s.String())
}

func (w *Wizard) viewComplete() string {
	var s strings.Builder
	s.WriteString(successStyle.Render("  [OK] Setup complete"))
	s.WriteString("\n\n")

	next := "phonegate            Sign in with the full-screen UI\n" +
		"phonegate login      Sign in line by line\n" +
		"phonegate status     Check the session"
	if w.answers["identity.provider"] == "local" && w.answers["local.sender"] == "outbox" {
		next += "\nphonegate outbox     See the codes the local provider sent"
	}
	s.WriteString(boxStyle.Render(next))
	s.WriteString("\n\n")
	s.WriteString(dimStyle.Render("  Config: " + w.path))
	s.WriteString("\n\n")
	s.WriteString(highlightStyle.Render("  Press ENTER to close"))
	return w.center(s.String())
}

// center pads content down a third of the screen.
func (w *Wizard) center(content string) string {
	if w.width == 0 || w.height == 0 {
		return content
	}
	top := (w.height - lipgloss.Height(content)) / 3
	if top < 0 {
		top = 0
	}
	return strings.Repeat("\n", top) + content
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
