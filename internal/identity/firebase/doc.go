// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package firebase implements identity.Provider against the hosted Firebase
// Authentication REST API.
//
// Phone sign-in is two calls to the Identity Toolkit:
//
//	POST /v1/accounts:sendVerificationCode   {phoneNumber, recaptchaToken} -> {sessionInfo}
//	POST /v1/accounts:signInWithPhoneNumber  {sessionInfo, code}           -> {idToken, refreshToken, ...}
//
// The sessionInfo string is the challenge handle. ID tokens are refreshed
// through the Secure Token service when a persisted session is restored.
package firebase
