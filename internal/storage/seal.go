// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

const (
	sealPrefix     = "sealed:v1:"
	sealSaltSize   = 16
	sealIterations = 100_000
)

// ErrUnseal is returned when a sealed value cannot be opened, usually
// because the passphrase changed.
var ErrUnseal = errors.New("storage: cannot unseal credential")

// Sealer encrypts credentials at rest with a passphrase-derived key
// (PBKDF2-SHA-256, XChaCha20-Poly1305). A nil Sealer stores plaintext.
type Sealer struct {
	passphrase []byte
}

// NewSealer returns a Sealer, or nil when passphrase is empty.
func NewSealer(passphrase string) *Sealer {
	if passphrase == "" {
		return nil
	}
	return &Sealer{passphrase: []byte(passphrase)}
}

// Seal encrypts plaintext. Empty input stays empty.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if s == nil || plaintext == "" {
		return plaintext, nil
	}

	salt := make([]byte, sealSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(salt)+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, []byte(plaintext), nil)
	return sealPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal. Values without the sealed prefix
// are returned unchanged.
func (s *Sealer) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealPrefix) {
		return value, nil
	}
	if s == nil {
		return "", fmt.Errorf("%w: no passphrase configured", ErrUnseal)
	}

	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(value, sealPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnseal, err)
	}
	if len(raw) < sealSaltSize+chacha20poly1305.NonceSizeX {
		return "", fmt.Errorf("%w: value too short", ErrUnseal)
	}
	salt := raw[:sealSaltSize]
	nonce := raw[sealSaltSize : sealSaltSize+chacha20poly1305.NonceSizeX]
	ct := raw[sealSaltSize+chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return "", err
	}
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrUnseal
	}
	return string(pt), nil
}

func (s *Sealer) key(salt []byte) []byte {
	return pbkdf2.Key(s.passphrase, salt, sealIterations, chacha20poly1305.KeySize, sha256.New)
}

// sealRecord returns a copy of rec with its credentials sealed.
func sealRecord(s *Sealer, rec *Record) (*Record, error) {
	out := cloneRecord(rec)
	var err error
	if out.IDToken, err = s.Seal(rec.IDToken); err != nil {
		return nil, err
	}
	if out.RefreshToken, err = s.Seal(rec.RefreshToken); err != nil {
		return nil, err
	}
	return out, nil
}

// openRecord unseals rec in place.
func openRecord(s *Sealer, rec *Record) error {
	var err error
	if rec.IDToken, err = s.Open(rec.IDToken); err != nil {
		return err
	}
	if rec.RefreshToken, err = s.Open(rec.RefreshToken); err != nil {
		return err
	}
	return nil
}
