// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package flow

import (
	"sync"
	"unicode/utf8"
)

// Buffer is raw text input. Max is the expected length; longer input is
// kept as typed so the controller rejects it on submit.
type Buffer struct {
	mu  sync.Mutex
	max int
	val string
}

// NewBuffer creates a buffer expecting max runes.
func NewBuffer(max int) *Buffer {
	return &Buffer{max: max}
}

// Max returns the expected length.
func (b *Buffer) Max() int { return b.max }

// Set replaces the content.
func (b *Buffer) Set(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.val = s
}

// String returns the content.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.val
}

// Len returns the content length in runes.
func (b *Buffer) Len() int {
	return utf8.RuneCountInString(b.String())
}

// Full reports whether the buffer holds at least Max runes.
func (b *Buffer) Full() bool {
	return b.Len() >= b.max
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.val = ""
}

