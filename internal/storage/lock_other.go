// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !unix

package storage

// lockFile is a no-op where flock is unavailable; atomic rename still
// prevents torn reads.
func lockFile(path string) (func(), error) {
	return func() {}, nil
}
