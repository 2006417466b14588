// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"fmt"
	"sync"
)

// =============================================================================
// SESSION
// =============================================================================

// State is the variant of a Session.
type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Session is the process's authentication status.
type Session struct {
	State State
	User  *User
}

// Unknown is the session before the provider has answered.
func Unknown() Session { return Session{State: StateUnknown} }

// Authenticated is a session for u.
func Authenticated(u *User) Session { return Session{State: StateAuthenticated, User: u} }

// Unauthenticated is a signed-out session.
func Unauthenticated() Session { return Session{State: StateUnauthenticated} }

func (s Session) String() string {
	if s.State == StateAuthenticated && s.User != nil {
		return fmt.Sprintf("authenticated(%s)", s.User.ID)
	}
	return s.State.String()
}

// SessionChange is one event on the session stream.
type SessionChange struct {
	User *User
	Err  error
}

// SessionFrom maps a change to a Session. An error never leaves the session
// unknown: it resolves to Unauthenticated.
func SessionFrom(c SessionChange) Session {
	if c.Err != nil || c.User == nil {
		return Unauthenticated()
	}
	return Authenticated(c.User)
}

// =============================================================================
// HUB
// =============================================================================

// Hub fans session changes out to subscribers. It has a single writer, the
// provider that owns it. Each subscriber holds at most one undelivered change;
// a newer change replaces an older one that was not read yet.
type Hub struct {
	mu     sync.Mutex
	latest *SessionChange
	subs   map[int]chan SessionChange
	nextID int
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan SessionChange)}
}

// Subscribe returns a channel that first receives the latest change (if
// any) and then every later one.
func (h *Hub) Subscribe() (<-chan SessionChange, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan SessionChange, 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	if h.latest != nil {
		ch <- *h.latest
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers c to every subscriber without blocking.
func (h *Hub) Publish(c SessionChange) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	latest := c
	h.latest = &latest
	for _, ch := range h.subs {
		select {
		case ch <- c:
		default:
			// Drop the stale change the reader has not taken yet.
			select {
			case <-ch:
			default:
			}
			ch <- c
		}
	}
}

// Latest returns the last published change.
func (h *Hub) Latest() (SessionChange, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		return SessionChange{}, false
	}
	return *h.latest, true
}

// Close closes every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
