// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package local is a self-contained identity platform for development,
// demos and tests.
//
// It implements identity.Provider without any hosted service:
//
//   - codes are six-digit HOTP values derived from a fresh secret per
//     challenge, so the stored challenge never contains the code itself
//   - challenges live in a ChallengeStore (memory, or Redis when several
//     processes share one platform) with an expiry and an attempt budget
//   - sends are throttled per phone number
//   - codes are delivered by a Sender: the development outbox, or the SMS
//     Local HTTP API
//   - a verified sign-in yields an HS256 JWT, persisted through the
//     configured storage backend and restored by Start
package local
