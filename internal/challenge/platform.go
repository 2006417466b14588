// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package challenge

import (
	"fmt"
	"strings"
)

// Platform decides which surface variant is used.
type Platform int

const (
	PlatformNative Platform = iota
	PlatformWeb
)

func (p Platform) String() string {
	switch p {
	case PlatformWeb:
		return "web"
	default:
		return "native"
	}
}

// ParsePlatform parses "native", "web" or "auto". Auto is reported with ok=false.
func ParsePlatform(s string) (p Platform, ok bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "native", "mobile", "tui":
		return PlatformNative, true, nil
	case "web", "headless":
		return PlatformWeb, true, nil
	case "", "auto":
		return PlatformNative, false, nil
	default:
		return PlatformNative, false, fmt.Errorf("unknown platform %q (want auto, native or web)", s)
	}
}

// DetectPlatform resolves a platform setting. With "auto", an interactive
// terminal is treated as native (a modal can be shown) and anything else as
// web (only the invisible flow works).
func DetectPlatform(setting string, interactive func() bool) (Platform, error) {
	p, ok, err := ParsePlatform(setting)
	if err != nil {
		return PlatformNative, err
	}
	if ok {
		return p, nil
	}
	if interactive != nil && interactive() {
		return PlatformNative, nil
	}
	return PlatformWeb, nil
}

// Options configures Select.
type Options struct {
	// ContainerID roots the invisible widget (web only).
	ContainerID string
	// Token is a pre-established verification token, if any.
	Token string
	// AttemptInvisible makes the native modal try Token before prompting.
	AttemptInvisible bool
	// Prompter shows the native modal. May be nil and installed later.
	Prompter Prompter
}

// Select builds the surface for a platform. It is called once at start-up.
func Select(p Platform, opts Options) Surface {
	switch p {
	case PlatformWeb:
		return NewInvisibleSurface(opts.ContainerID, StaticToken(opts.Token))
	default:
		var invisible TokenSource
		if opts.AttemptInvisible && opts.Token != "" {
			invisible = StaticToken(opts.Token)
		}
		return NewModalSurface(opts.Prompter, invisible)
	}
}
