// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package phone validates raw phone and code input and normalizes
// subscriber numbers to E.164.
package phone

import (
	"errors"
	"strings"
)

const (
	// SubscriberDigits is the exact number of digits accepted for a phone number.
	SubscriberDigits = 10

	// CodeDigits is the exact number of digits in a one-time code.
	CodeDigits = 6

	// DefaultCountryCode is prefixed to every subscriber number.
	// Only a single calling code is supported at a time.
	DefaultCountryCode = "91"
)

var (
	ErrNotNumeric     = errors.New("must contain digits only")
	ErrWrongLength    = errors.New("wrong number of digits")
	ErrBadCountryCode = errors.New("country calling code must be 1-3 digits")
)

// IsDigits reports whether s is non-empty and consists of ASCII digits only.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// CheckDigits returns nil if s is exactly n ASCII digits.
func CheckDigits(s string, n int) error {
	if len(s) != n {
		return ErrWrongLength
	}
	if !IsDigits(s) {
		return ErrNotNumeric
	}
	return nil
}

// ValidateSubscriber checks a raw 10-digit subscriber number.
func ValidateSubscriber(raw string) error {
	return CheckDigits(raw, SubscriberDigits)
}

// ValidateCode checks a raw 6-digit one-time code.
func ValidateCode(raw string) error {
	return CheckDigits(raw, CodeDigits)
}

// ValidateCountryCode checks a calling code such as "91" or "+1".
func ValidateCountryCode(cc string) error {
	cc = strings.TrimPrefix(cc, "+")
	if len(cc) < 1 || len(cc) > 3 || !IsDigits(cc) {
		return ErrBadCountryCode
	}
	return nil
}

// Normalizer turns subscriber numbers into E.164 strings.
type Normalizer struct {
	countryCode string
}

// NewNormalizer returns a Normalizer for the given calling code.
// An empty code falls back to DefaultCountryCode.
func NewNormalizer(countryCode string) (Normalizer, error) {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	if err := ValidateCountryCode(countryCode); err != nil {
		return Normalizer{}, err
	}
	return Normalizer{countryCode: strings.TrimPrefix(countryCode, "+")}, nil
}

// CountryCode returns the calling code without the leading plus.
func (n Normalizer) CountryCode() string {
	if n.countryCode == "" {
		return DefaultCountryCode
	}
	return n.countryCode
}

// E164 validates raw and returns "+<cc><subscriber>".
func (n Normalizer) E164(raw string) (string, error) {
	if err := ValidateSubscriber(raw); err != nil {
		return "", err
	}
	return "+" + n.CountryCode() + raw, nil
}

// IsE164 reports whether s looks like an E.164 number: a plus followed by
// 8 to 15 digits.
func IsE164(s string) bool {
	if !strings.HasPrefix(s, "+") {
		return false
	}
	d := s[1:]
	return len(d) >= 8 && len(d) <= 15 && IsDigits(d)
}

// Mask hides all but the last four digits of a number for display and logs.
func Mask(number string) string {
	if len(number) <= 4 {
		return strings.Repeat("*", len(number))
	}
	var b strings.Builder
	for i, r := range number {
		switch {
		case i == 0 && r == '+':
			b.WriteRune(r)
		case i >= len(number)-4:
			b.WriteRune(r)
		default:
			b.WriteByte('*')
		}
	}
	return b.String()
}
