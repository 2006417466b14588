// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/phonegate-tui/internal/identity"
)

func sampleRecord() *Record {
	return &Record{
		Provider: "local",
		User: identity.User{
			ID:          "user-1",
			PhoneNumber: "+919876543210",
			SignedInAt:  time.Unix(1700000000, 0).UTC(),
		},
		IDToken:      "id-token-value",
		RefreshToken: "refresh-token-value",
		ExpiresAt:    time.Unix(1700003600, 0),
		SavedAt:      time.Unix(1700000000, 0),
	}
}

func exerciseStore(t *testing.T, store Persistence) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrNoSession)

	rec := sampleRecord()
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec.Provider, got.Provider)
	assert.Equal(t, rec.User.ID, got.User.ID)
	assert.Equal(t, rec.User.PhoneNumber, got.User.PhoneNumber)
	assert.Equal(t, rec.IDToken, got.IDToken)
	assert.Equal(t, rec.RefreshToken, got.RefreshToken)
	assert.Equal(t, rec.ExpiresAt.Unix(), got.ExpiresAt.Unix())

	// Overwrite keeps a single slot.
	rec.User.ID = "user-2"
	require.NoError(t, store.Save(ctx, rec))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-2", got.User.ID)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	require.ErrorIs(t, err, ErrNoSession)

	// Clearing twice is fine.
	require.NoError(t, store.Clear(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "session.json"), nil)
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestFileStore_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), sampleRecord()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "session.db"), nil)
	require.NoError(t, err)
	defer store.Close()
	exerciseStore(t, store)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	store, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, sampleRecord()))
	require.NoError(t, store.Close())

	store, err = OpenSQLite(path, nil)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.User.ID)
}

func TestSealedCredentialsAtRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path, NewSealer("correct horse"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleRecord()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "id-token-value")
	assert.NotContains(t, string(raw), "refresh-token-value")
	assert.Contains(t, string(raw), sealPrefix)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "id-token-value", got.IDToken)

	wrong, err := NewFileStore(path, NewSealer("wrong"))
	require.NoError(t, err)
	_, err = wrong.Load(ctx)
	assert.ErrorIs(t, err, ErrUnseal)

	none, err := NewFileStore(path, nil)
	require.NoError(t, err)
	_, err = none.Load(ctx)
	assert.ErrorIs(t, err, ErrUnseal)
}

func TestSealer(t *testing.T) {
	s := NewSealer("pass")
	a, err := s.Seal("secret")
	require.NoError(t, err)
	b, err := s.Seal("secret")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "salt and nonce must differ per value")

	pt, err := s.Open(a)
	require.NoError(t, err)
	assert.Equal(t, "secret", pt)

	// Tampering is detected.
	tampered := a[:len(a)-2] + "AA"
	if tampered != a {
		_, err = s.Open(tampered)
		assert.ErrorIs(t, err, ErrUnseal)
	}

	// Plaintext passes through.
	pt, err = s.Open("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", pt)

	var nilSealer *Sealer
	out, err := nilSealer.Seal("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)
	assert.Nil(t, NewSealer(""))

	empty, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFileStore_WatchSeesExternalWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	watcherSide, err := NewFileStore(path, nil)
	require.NoError(t, err)
	watcherSide.SetDebounce(20 * time.Millisecond)
	other, err := NewFileStore(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := watcherSide.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, other.Save(ctx, sampleRecord()))

	select {
	case <-changes:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change notification for an external write")
	}

	require.NoError(t, other.Clear(ctx))
	select {
	case <-changes:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change notification for an external clear")
	}

	cancel()
	select {
	case _, ok := <-changes:
		for ok {
			_, ok = <-changes
		}
	case <-time.After(3 * time.Second):
		t.Fatal("channel should close after cancel")
	}
}

func TestFileStore_WatchIgnoresOwnWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path, nil)
	require.NoError(t, err)
	store.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := store.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, sampleRecord()))

	select {
	case <-changes:
		t.Fatal("own write must not be reported")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"", BackendAuto, false},
		{"auto", BackendAuto, false},
		{"SQLite", BackendSQLite, false},
		{" file ", BackendFile, false},
		{"memory", BackendMemory, false},
		{"indexeddb", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackend(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBackendResolve(t *testing.T) {
	assert.Equal(t, BackendSQLite, BackendAuto.Resolve(false))
	assert.Equal(t, BackendFile, BackendAuto.Resolve(true))
	assert.Equal(t, BackendMemory, BackendMemory.Resolve(true))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, b := range []Backend{BackendSQLite, BackendFile, BackendMemory} {
		store, err := Open(b, dir, nil)
		require.NoError(t, err, b)
		require.NoError(t, store.Close())
	}
	_, err := Open(BackendAuto, dir, nil)
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "resolved"))
}

func TestRecordExpired(t *testing.T) {
	now := time.Now()
	r := &Record{}
	assert.False(t, r.Expired(now), "zero expiry never expires")
	r.ExpiresAt = now.Add(-time.Second)
	assert.True(t, r.Expired(now))
	r.ExpiresAt = now.Add(time.Minute)
	assert.False(t, r.Expired(now))
}
