// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI components for the phonegate TUI.

Components are built on Bubble Tea and Lip Gloss and take their styles from
the styles package.

# Input

DigitField (digits.go) - fixed-length numeric entry with an optional prefix.
Full-width digits are folded to ASCII; everything else is ignored.
Prompt (prompt.go) - modal single-line entry used for the native
verification check.

# Display

Header (header.go) - title bar with provider, platform and session state.
ShortcutBar (shortcuts.go) - bottom row of key hints.
Spinner (spinner.go) - in-flight indicator with elapsed time.
Toasts (toast.go) - auto-dismissing notifications for errors and notices.
*/
package components
