// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the signed-in session for identity providers.
//
// The backend is chosen once at start-up and handed to the provider; the
// sign-in flow and the session guard never read or write it.
//
// # Backends
//
//   - sqlite: durable store in ~/.phonegate/session.db (native default)
//   - file:   JSON file in ~/.phonegate/session.json, watched for changes
//     made by other processes (web default)
//   - memory: process-local, for tests and throwaway runs
//
// # Usage
//
//	store, err := storage.Open(storage.BackendSQLite, dir, sealer)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	rec, err := store.Load(ctx)
//	if errors.Is(err, storage.ErrNoSession) {
//	    // signed out
//	}
//
// Credentials can be sealed at rest with a passphrase (see Sealer).
package storage
