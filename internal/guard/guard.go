// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package guard routes between the sign-in flow and the authenticated area
// based on the session stream.
//
// The Guard is a small reducer: it remembers the last route it took and
// turns each Session into at most one navigation. The TUI calls Decide from
// its update loop; line-mode commands use Run with a Navigator.
package guard

import (
	"context"
	"log"

	"github.com/jeranaias/phonegate-tui/internal/identity"
)

// Route is a top-level view.
type Route int

const (
	// RoutePlaceholder is shown while the session is unknown.
	RoutePlaceholder Route = iota
	RouteHome
	RouteLogin
)

func (r Route) String() string {
	switch r {
	case RouteHome:
		return "home"
	case RouteLogin:
		return "login"
	default:
		return "placeholder"
	}
}

// Navigation is a routing action.
type Navigation struct {
	Route Route
	User  *identity.User
}

// Navigator performs navigations.
type Navigator interface {
	Navigate(nav Navigation)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(Navigation)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(nav Navigation) { f(nav) }

// Guard tracks the current route. The zero value starts on the placeholder.
// A Guard is not safe for concurrent use.
type Guard struct {
	route  Route
	userID string
}

// Route returns the current route.
func (g *Guard) Route() Route {
	return g.route
}

// Decide returns the navigation for s, or false when none is needed. An
// unknown session never navigates, so once resolved the guard cannot go back
// to the placeholder. The same route for the same user is not repeated.
func (g *Guard) Decide(s identity.Session) (Navigation, bool) {
	switch s.State {
	case identity.StateAuthenticated:
		if s.User == nil {
			return g.decideLogin()
		}
		if g.route == RouteHome && g.userID == s.User.ID {
			return Navigation{}, false
		}
		g.route = RouteHome
		g.userID = s.User.ID
		return Navigation{Route: RouteHome, User: s.User}, true

	case identity.StateUnauthenticated:
		return g.decideLogin()

	default:
		return Navigation{}, false
	}
}

func (g *Guard) decideLogin() (Navigation, bool) {
	if g.route == RouteLogin {
		return Navigation{}, false
	}
	g.route = RouteLogin
	g.userID = ""
	return Navigation{Route: RouteLogin}, true
}

// Run feeds every change from changes through Decide and performs the
// resulting navigations until ctx ends or the stream closes.
func Run(ctx context.Context, changes <-chan identity.SessionChange, nav Navigator) error {
	var g Guard
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			if change.Err != nil {
				log.Printf("SESSION_STREAM_ERROR | error=%v", change.Err)
			}
			if n, ok := g.Decide(identity.SessionFrom(change)); ok {
				nav.Navigate(n)
			}
		}
	}
}
