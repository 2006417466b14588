// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package local

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// errChallengeNotFound means the challenge expired or never existed.
	errChallengeNotFound = errors.New("local: challenge not found")
	// errCodeMismatch means the code was wrong and attempts remain.
	errCodeMismatch = errors.New("local: code mismatch")
	// errAttemptsExceeded means the last allowed attempt was wrong.
	errAttemptsExceeded = errors.New("local: attempts exceeded")
)

// Challenge is a dispatched code awaiting verification.
type Challenge struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	Secret    string    `json:"secret"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ChallengeStore holds pending challenges.
type ChallengeStore interface {
	// Put stores c until c.ExpiresAt.
	Put(ctx context.Context, c *Challenge) error

	// Attempt atomically checks a submitted code. On a match the challenge is
	// consumed and returned. Otherwise the attempt is counted and either
	// errCodeMismatch or, once maxAttempts is reached, errAttemptsExceeded is
	// returned and the challenge is removed.
	Attempt(ctx context.Context, id string, match func(*Challenge) bool, maxAttempts int) (*Challenge, error)

	// Delete removes a challenge. Missing challenges are not an error.
	Delete(ctx context.Context, id string) error
}

// MemoryStore is a process-local ChallengeStore.
type MemoryStore struct {
	mu   sync.Mutex
	m    map[string]Challenge
	nowF func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]Challenge),
		nowF: time.Now,
	}
}

func (s *MemoryStore) Put(ctx context.Context, c *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.m[c.ID] = *c
	return nil
}

func (s *MemoryStore) Attempt(ctx context.Context, id string, match func(*Challenge) bool, maxAttempts int) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.m[id]
	if !ok {
		return nil, errChallengeNotFound
	}
	if !c.ExpiresAt.After(s.nowF()) {
		delete(s.m, id)
		return nil, errChallengeNotFound
	}
	if match(&c) {
		delete(s.m, id)
		return &c, nil
	}

	c.Attempts++
	if maxAttempts > 0 && c.Attempts >= maxAttempts {
		delete(s.m, id)
		return nil, errAttemptsExceeded
	}
	s.m[id] = c
	return nil, errCodeMismatch
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

// Len returns the number of live challenges.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.m)
}

func (s *MemoryStore) sweepLocked() {
	now := s.nowF()
	for id, c := range s.m {
		if !c.ExpiresAt.After(now) {
			delete(s.m, id)
		}
	}
}
