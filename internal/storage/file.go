// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces bursts of filesystem events into one change.
const DefaultWatchDebounce = 150 * time.Millisecond

// FileStore keeps the session as a JSON file. Writes are atomic (temp file,
// fsync, rename) and serialized across processes with an advisory lock.
type FileStore struct {
	path     string
	sealer   *Sealer
	debounce time.Duration

	mu         sync.Mutex
	lastDigest [sha256.Size]byte // content last written or observed by this process
}

// NewFileStore creates a FileStore at path, creating its directory.
func NewFileStore(path string, sealer *Sealer) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	fs := &FileStore{path: path, sealer: sealer, debounce: DefaultWatchDebounce}
	fs.lastDigest = fs.currentDigest()
	return fs, nil
}

// Path returns the session file path.
func (fs *FileStore) Path() string {
	return fs.path
}

// SetDebounce changes the watch debounce interval.
func (fs *FileStore) SetDebounce(d time.Duration) {
	fs.debounce = d
}

func (fs *FileStore) Load(ctx context.Context) (*Record, error) {
	unlock, err := lockFile(fs.path + ".lock")
	if err != nil {
		return nil, err
	}
	defer unlock()

	data, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoSession
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if err := openRecord(fs.sealer, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (fs *FileStore) Save(ctx context.Context, rec *Record) error {
	sealed, err := sealRecord(fs.sealer, rec)
	if err != nil {
		return err
	}
	if sealed.SavedAt.IsZero() {
		sealed.SavedAt = time.Now()
	}
	data, err := json.MarshalIndent(sealed, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	unlock, err := lockFile(fs.path + ".lock")
	if err != nil {
		return err
	}
	defer unlock()

	if err := WriteFileAtomic(fs.path, data, 0600); err != nil {
		return err
	}
	fs.mu.Lock()
	fs.lastDigest = sha256.Sum256(data)
	fs.mu.Unlock()
	return nil
}

func (fs *FileStore) Clear(ctx context.Context) error {
	unlock, err := lockFile(fs.path + ".lock")
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(fs.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	fs.mu.Lock()
	fs.lastDigest = sha256.Sum256(nil)
	fs.mu.Unlock()
	return nil
}

func (fs *FileStore) Close() error { return nil }

// Watch reports changes to the session file made by other processes.
// Writes through this FileStore are not reported.
func (fs *FileStore) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory: atomic renames replace the file's inode.
	if err := w.Add(filepath.Dir(fs.path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch session directory: %w", err)
	}

	out := make(chan struct{}, 1)
	go fs.watchLoop(ctx, w, out)
	return out, nil
}

func (fs *FileStore) watchLoop(ctx context.Context, w *fsnotify.Watcher, out chan<- struct{}) {
	defer close(out)
	defer w.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(fs.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(fs.debounce)
			} else {
				timer.Reset(fs.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			digest := fs.currentDigest()
			fs.mu.Lock()
			changed := digest != fs.lastDigest
			fs.lastDigest = digest
			fs.mu.Unlock()
			if !changed {
				continue
			}
			select {
			case out <- struct{}{}:
			default:
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("SESSION_WATCH_ERROR | path=%s error=%v", fs.path, err)
		}
	}
}

func (fs *FileStore) currentDigest() [sha256.Size]byte {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return sha256.Sum256(nil)
	}
	return sha256.Sum256(data)
}

// WriteFileAtomic writes data to a temp file in the same directory, syncs
// it and renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}
