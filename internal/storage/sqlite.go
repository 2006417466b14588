// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sessionSlot = "current"

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	slot          TEXT PRIMARY KEY,
	provider      TEXT NOT NULL,
	user_json     TEXT NOT NULL,
	id_token      TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	expires_at    INTEGER NOT NULL DEFAULT 0,
	saved_at      INTEGER NOT NULL
);`

// SQLiteStore keeps the session in a single-row SQLite table.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	sealer *Sealer
}

// OpenSQLite opens (or creates) the session database at path.
// Use ":memory:" for an in-memory database.
func OpenSQLite(path string, sealer *Sealer) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(sessionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if path != ":memory:" {
		_ = os.Chmod(path, 0600)
	}

	return &SQLiteStore{db: db, path: path, sealer: sealer}, nil
}

// Path returns the database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Load(ctx context.Context) (*Record, error) {
	var (
		rec       Record
		userJSON  string
		expiresAt int64
		savedAt   int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT provider, user_json, id_token, refresh_token, expires_at, saved_at
		 FROM sessions WHERE slot = ?`, sessionSlot,
	).Scan(&rec.Provider, &userJSON, &rec.IDToken, &rec.RefreshToken, &expiresAt, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if err := json.Unmarshal([]byte(userJSON), &rec.User); err != nil {
		return nil, fmt.Errorf("failed to parse stored user: %w", err)
	}
	if expiresAt != 0 {
		rec.ExpiresAt = time.Unix(expiresAt, 0)
	}
	rec.SavedAt = time.Unix(savedAt, 0)

	if err := openRecord(s.sealer, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
	sealed, err := sealRecord(s.sealer, rec)
	if err != nil {
		return err
	}
	userJSON, err := json.Marshal(sealed.User)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	var expiresAt int64
	if !sealed.ExpiresAt.IsZero() {
		expiresAt = sealed.ExpiresAt.Unix()
	}
	savedAt := sealed.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (slot, provider, user_json, id_token, refresh_token, expires_at, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			provider = excluded.provider,
			user_json = excluded.user_json,
			id_token = excluded.id_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			saved_at = excluded.saved_at`,
		sessionSlot, sealed.Provider, string(userJSON), sealed.IDToken, sealed.RefreshToken, expiresAt, savedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE slot = ?`, sessionSlot); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
