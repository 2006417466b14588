// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package local

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer is the issuer claim on local session tokens.
const TokenIssuer = "phonegate-local"

// SessionClaims are the claims of a local session token.
type SessionClaims struct {
	PhoneNumber string `json:"phone_number"`
	jwt.RegisteredClaims
}

// Tokens signs and parses session tokens with HS256.
type Tokens struct {
	key []byte
	ttl time.Duration
}

// NewTokens creates a signer. The key must be at least 32 bytes.
func NewTokens(key []byte, ttl time.Duration) (*Tokens, error) {
	if len(key) < 32 {
		return nil, errors.New("local: signing key must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("local: session ttl must be positive")
	}
	return &Tokens{key: key, ttl: ttl}, nil
}

// Issue signs a token for a user and returns it with its expiry.
func (t *Tokens) Issue(userID, phone string, now time.Time) (string, time.Time, error) {
	expires := now.Add(t.ttl)
	claims := SessionClaims{
		PhoneNumber: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies a token's signature, issuer and expiry.
func (t *Tokens) Parse(tokenStr string) (*SessionClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	claims := &SessionClaims{}
	_, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("local: token has no subject")
	}
	return claims, nil
}
