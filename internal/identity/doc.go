// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity defines the identity platform capability used by the
// sign-in flow and the session stream it publishes.
//
// # Provider
//
// A Provider dispatches one-time codes, exchanges them for a session and
// announces session changes. Two implementations exist:
//
//   - identity/firebase talks to the hosted Identity Toolkit REST API
//   - identity/local is a self-contained platform for development and tests
//
// # Session stream
//
// Every provider owns exactly one Hub. The provider is the only writer; the
// session guard and any other screen subscribe:
//
//	changes, cancel := provider.ObserveSessionChanges()
//	defer cancel()
//	for change := range changes {
//	    session := identity.SessionFrom(change)
//	    ...
//	}
//
// A change carries the signed-in user, nil for signed out, or an error when
// the provider could not determine the session. Subscribers always receive
// the latest change first, so a late subscriber never waits on a stream that
// already resolved.
package identity
