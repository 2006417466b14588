// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the phonegate terminal UI.
//
// The root Model follows the session stream through a guard.Guard and shows
// one of three screens: a placeholder while the session is unknown, the
// sign-in screen (phone entry, then code entry) and the home screen. Provider
// calls run as Bubble Tea commands; their results carry the sign-in screen's
// mount generation and are dropped if the screen was left in the meantime.
package app
