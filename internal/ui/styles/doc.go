// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the phonegate TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection; NewTheme can force either variant from the ui.theme setting.

# Colors (colors.go)

  - Purple - focused fields and the primary button
  - Cyan - brand, prompts, the country code prefix
  - Emerald - signed in
  - Amber - code pending, verification modal
  - Rose - errors

Status indicators ([OK], [X], [!], [i]) accompany every colored state.

# Theme (theme.go)

Theme groups the styles of the header, the sign-in card, the digit fields,
the verification modal and the status bar.

# Animations (animations.go)

Spinner frame sets for the components package.
*/
package styles
