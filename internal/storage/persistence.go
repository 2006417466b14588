// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/phonegate-tui/internal/identity"
)

// ErrNoSession is returned by Load when nothing is persisted.
var ErrNoSession = errors.New("storage: no persisted session")

// Record is a persisted sign-in.
type Record struct {
	Provider     string        `json:"provider"`
	User         identity.User `json:"user"`
	IDToken      string        `json:"id_token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time     `json:"expires_at"`
	SavedAt      time.Time     `json:"saved_at"`
}

// Expired reports whether the ID token is past its expiry.
func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Persistence stores at most one Record.
type Persistence interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Clear(ctx context.Context) error
	Close() error
}

// Watcher is implemented by backends that notice writes from other processes.
// The channel receives a value after every external change and is closed when
// ctx ends.
type Watcher interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// Backend names a persistence backend.
type Backend string

const (
	BackendAuto   Backend = "auto"
	BackendSQLite Backend = "sqlite"
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
)

// ParseBackend parses a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackendAuto, nil
	case BackendAuto, BackendSQLite, BackendFile, BackendMemory:
		return b, nil
	default:
		return "", fmt.Errorf("unknown persistence backend %q", s)
	}
}

// Resolve turns BackendAuto into a concrete backend: durable sqlite for the
// native platform, the file store for web.
func (b Backend) Resolve(web bool) Backend {
	if b != BackendAuto && b != "" {
		return b
	}
	if web {
		return BackendFile
	}
	return BackendSQLite
}

// Open opens a concrete backend rooted at dir.
func Open(b Backend, dir string, sealer *Sealer) (Persistence, error) {
	switch b {
	case BackendSQLite:
		return OpenSQLite(filepath.Join(dir, "session.db"), sealer)
	case BackendFile:
		return NewFileStore(filepath.Join(dir, "session.json"), sealer)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("persistence backend %q must be resolved before opening", b)
	}
}

func cloneRecord(r *Record) *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
