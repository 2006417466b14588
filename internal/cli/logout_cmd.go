// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// logout_cmd.go - The logout command. A running TUI that shares the session
// file follows the sign-out.

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/phonegate-tui/internal/bootstrap"
	"github.com/jeranaias/phonegate-tui/internal/identity"
)

// HandleLogout ends the current session.
func HandleLogout(args Args) error {
	a, err := openApp("logout", bootstrap.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := RunLogout(context.Background(), a)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("logout", data).Print()
	}
	if data.UserID == "" {
		fmt.Println(DimStyle.Render("Not signed in."))
		return nil
	}
	fmt.Printf("%s Signed out %s\n", SuccessStyle.Render("[OK]"), data.Phone)
	return nil
}

// RunLogout signs out of a. The returned data is empty when there was no
// session.
func RunLogout(ctx context.Context, a *bootstrap.App) (LoginData, error) {
	session, err := resolveSession(ctx, a)
	if err != nil && session.State != identity.StateAuthenticated {
		// A session that can't be restored is cleared all the same.
		_ = a.Provider.SignOut(ctx)
		return LoginData{}, nil
	}
	if session.State != identity.StateAuthenticated || session.User == nil {
		return LoginData{}, nil
	}

	if err := a.Provider.SignOut(ctx); err != nil {
		return LoginData{}, NewCommandError("logout", "sign out", "could not clear the session", err)
	}
	return LoginData{
		UserID: session.User.ID,
		Phone:  displayPhone(session.User.PhoneNumber, false),
	}, nil
}
