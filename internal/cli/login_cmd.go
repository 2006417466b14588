// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// login_cmd.go - Line-mode sign-in.
//
// The same flow controller and session guard the TUI uses, driven from a
// plain prompt. Useful over SSH, in scripts and on terminals the TUI can't
// draw on.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/phonegate-tui/internal/bootstrap"
	"github.com/jeranaias/phonegate-tui/internal/challenge"
	"github.com/jeranaias/phonegate-tui/internal/flow"
	"github.com/jeranaias/phonegate-tui/internal/guard"
	"github.com/jeranaias/phonegate-tui/internal/identity"
	"github.com/jeranaias/phonegate-tui/internal/ui/components"
)

// errLoginAborted is returned when the user leaves with Ctrl+C or Ctrl+D.
var errLoginAborted = errors.New("login cancelled")

// LineReader reads one line of input after showing prompt.
type LineReader interface {
	Prompt(prompt string) (string, error)
}

// HandleLogin signs in line by line.
func HandleLogin(args Args) error {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	a, err := openApp("login", bootstrap.Options{Prompter: linePrompter(line)})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := io.Writer(os.Stdout)
	if args.JSON {
		out = os.Stderr
	}

	user, already, err := RunLogin(ctx, a, line, out, args.Phone)
	if errors.Is(err, errLoginAborted) {
		if !args.JSON {
			ShowCancellationMessage()
		}
		return nil
	}
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("login", LoginData{
			UserID:    user.ID,
			Phone:     displayPhone(user.PhoneNumber, false),
			IsNewUser: user.IsNewUser,
			Already:   already,
		}).Print()
	}
	return nil
}

// linePrompter shows the verification modal as a prompt.
func linePrompter(r LineReader) challenge.Prompter {
	return func(ctx context.Context, req challenge.Request) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Println(WarningStyle.Render(req.Title))
		fmt.Println(DimStyle.Render(req.Message))
		answer, err := r.Prompt("token> ")
		if err != nil {
			return "", challenge.ErrDismissed
		}
		return answer, nil
	}
}

// RunLogin drives the sign-in flow of a through r. It returns once the
// session guard navigates to home. already reports that a session existed.
func RunLogin(ctx context.Context, a *bootstrap.App, r LineReader, out io.Writer, phoneArg string) (user *identity.User, already bool, err error) {
	changes, unsubscribe := a.Provider.ObserveSessionChanges()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	navs := make(chan guard.Navigation, 4)
	go func() {
		_ = guard.Run(ctx, changes, guard.NavigatorFunc(func(nav guard.Navigation) {
			select {
			case navs <- nav:
			case <-ctx.Done():
			}
		}))
		close(navs)
	}()

	if err := a.Start(ctx); err != nil {
		// The guard resolves a failed restore to the login route.
		fmt.Fprintln(out, WarningStyle.Render("Could not restore session: "+err.Error()))
	}

	nav, ok := <-navs
	if !ok {
		return nil, false, NewCommandError("login", "resolve session", "session stream closed", nil)
	}
	if nav.Route == guard.RouteHome {
		fmt.Fprintf(out, "%s Already signed in as %s\n", SuccessStyle.Render("[OK]"), displayPhone(nav.User.PhoneNumber, false))
		return nav.User, true, nil
	}

	l := &lineLogin{
		ctrl:     a.NewController(),
		reader:   r,
		out:      out,
		hint:     a.OutboxPath,
		phoneArg: phoneArg,
	}
	if _, err := l.run(ctx); err != nil {
		return nil, false, err
	}

	// Verification announces the user on the stream; the guard navigates.
	for nav := range navs {
		if nav.Route == guard.RouteHome {
			n := flow.SignedInNotice
			fmt.Fprintf(out, "%s %s\n", SuccessStyle.Render(n.Title), n.Message)
			return nav.User, false, nil
		}
	}
	return nil, false, NewCommandError("login", "resolve session", "session stream closed", ctx.Err())
}

// lineLogin is one pass through the two-step flow.
type lineLogin struct {
	ctrl     *flow.Controller
	reader   LineReader
	out      io.Writer
	hint     string
	phoneArg string
}

func (l *lineLogin) run(ctx context.Context) (*identity.User, error) {
	fmt.Fprintln(l.out, TitleStyle.Render("Sign in with your phone"))

	for {
		if ctx.Err() != nil {
			return nil, errLoginAborted
		}
		if l.ctrl.Step() == flow.StepEnteringPhone {
			if err := l.enterPhone(ctx); err != nil {
				return nil, err
			}
			continue
		}
		user, err := l.enterCode(ctx)
		if err != nil || user != nil {
			return user, err
		}
	}
}

func (l *lineLogin) enterPhone(ctx context.Context) error {
	input := l.phoneArg
	l.phoneArg = ""
	if input == "" {
		var err error
		input, err = l.reader.Prompt(fmt.Sprintf("Phone number +%s ", l.ctrl.CountryCode()))
		if err != nil {
			return errLoginAborted
		}
	}

	l.ctrl.Phone().Set(components.FoldDigits(input))
	if _, err := l.ctrl.SubmitPhone(ctx); err != nil {
		l.notice(flow.Describe(err), true)
		return nil
	}

	l.notice(flow.CodeSentNotice, false)
	if l.hint != "" {
		fmt.Fprintln(l.out, DimStyle.Render("Codes are written to "+l.hint+" (phonegate outbox)."))
	}
	return nil
}

func (l *lineLogin) enterCode(ctx context.Context) (*identity.User, error) {
	input, err := l.reader.Prompt("Code (blank to change number) ")
	if err != nil {
		return nil, errLoginAborted
	}
	if strings.TrimSpace(input) == "" {
		l.ctrl.ChangeNumber()
		return nil, nil
	}

	l.ctrl.Code().Set(components.FoldDigits(input))
	user, err := l.ctrl.SubmitCode(ctx)
	if err != nil {
		l.notice(flow.Describe(err), true)
		return nil, nil
	}
	return user, nil
}

func (l *lineLogin) notice(n flow.Notice, isErr bool) {
	title := SuccessStyle.Render(n.Title)
	if isErr {
		title = ErrorStyle.Render(n.Title)
	}
	fmt.Fprintf(l.out, "%s %s\n", title, n.Message)
}
