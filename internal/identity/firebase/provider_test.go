// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package firebase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/phonegate-tui/internal/challenge"
	"github.com/jeranaias/phonegate-tui/internal/identity"
	"github.com/jeranaias/phonegate-tui/internal/storage"
)

// fakePlatform is a tiny stand-in for the Identity Toolkit and Secure Token
// services.
type fakePlatform struct {
	t *testing.T

	mu           sync.Mutex
	sendCalls    []map[string]string
	code         string
	refreshCalls int
	refreshError string
}

func (f *fakePlatform) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts:sendVerificationCode", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "test-key", r.URL.Query().Get("key"))
		var body map[string]string
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.sendCalls = append(f.sendCalls, body)
		f.mu.Unlock()
		if body["phoneNumber"] == "+910000000000" {
			writeError(w, "INVALID_PHONE_NUMBER : Invalid format.")
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"sessionInfo": "session-" + body["phoneNumber"]})
	})
	mux.HandleFunc("/v1/accounts:signInWithPhoneNumber", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		switch {
		case body["sessionInfo"] == "expired":
			writeError(w, "SESSION_EXPIRED")
		case body["code"] != f.code:
			writeError(w, "INVALID_CODE")
		default:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"idToken":      "id-1",
				"refreshToken": "refresh-1",
				"expiresIn":    "3600",
				"localId":      "uid-123",
				"phoneNumber":  "+919876543210",
				"isNewUser":    true,
			})
		}
	})
	mux.HandleFunc("/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(f.t, r.ParseForm())
		assert.Equal(f.t, "refresh_token", r.PostForm.Get("grant_type"))
		f.mu.Lock()
		f.refreshCalls++
		refreshError := f.refreshError
		f.mu.Unlock()
		if refreshError != "" {
			writeError(w, refreshError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"id_token":      "id-2",
			"refresh_token": "refresh-2",
			"expires_in":    "3600",
			"user_id":       "uid-123",
		})
	})
	return httptest.NewServer(mux)
}

func (f *fakePlatform) sends() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.sendCalls...)
}

func (f *fakePlatform) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func writeError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{"code": 400, "message": message},
	})
}

func newTestProvider(t *testing.T, persist storage.Persistence) (*Provider, *fakePlatform) {
	t.Helper()
	fake := &fakePlatform{t: t, code: "123456"}
	srv := fake.server()
	t.Cleanup(srv.Close)

	p, err := New(Settings{
		APIKey:             "test-key",
		ProjectID:          "demo",
		IdentityToolkitURL: srv.URL + "/v1",
		SecureTokenURL:     srv.URL + "/v1",
	}, persist)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, fake
}

func tokenSurface() challenge.Surface {
	return challenge.NewInvisibleSurface("", challenge.StaticToken("recaptcha-token"))
}

func TestProvider_SignIn(t *testing.T) {
	persist := storage.NewMemoryStore()
	p, fake := newTestProvider(t, persist)
	ctx := context.Background()

	handle, err := p.SendChallenge(ctx, "+919876543210", tokenSurface())
	require.NoError(t, err)
	assert.Equal(t, identity.ChallengeHandle("session-+919876543210"), handle)
	sends := fake.sends()
	require.Len(t, sends, 1)
	assert.Equal(t, "recaptcha-token", sends[0]["recaptchaToken"])

	changes, cancel := p.ObserveSessionChanges()
	defer cancel()

	user, err := p.VerifyChallenge(ctx, handle, "123456")
	require.NoError(t, err)
	assert.Equal(t, "uid-123", user.ID)
	assert.True(t, user.IsNewUser)

	c := <-changes
	assert.Equal(t, "uid-123", c.User.ID)

	rec, err := persist.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Name, rec.Provider)
	assert.Equal(t, "refresh-1", rec.RefreshToken)
}

func TestProvider_ErrorMapping(t *testing.T) {
	p, _ := newTestProvider(t, nil)
	ctx := context.Background()

	_, err := p.VerifyChallenge(ctx, "session-x", "000000")
	assert.ErrorIs(t, err, identity.ErrInvalidCode)
	assert.Equal(t, "The verification code is invalid.", err.Error())

	_, err = p.VerifyChallenge(ctx, "expired", "123456")
	assert.ErrorIs(t, err, identity.ErrChallengeExpired)

	_, err = p.SendChallenge(ctx, "+910000000000", tokenSurface())
	assert.ErrorIs(t, err, identity.ErrInvalidPhoneNumber)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_PHONE_NUMBER", apiErr.Code)
	assert.Equal(t, "Invalid format.", apiErr.Message)
}

func TestProvider_SendNeedsProof(t *testing.T) {
	p, fake := newTestProvider(t, nil)
	_, err := p.SendChallenge(context.Background(), "+919876543210", challenge.NewInvisibleSurface("", nil))
	assert.ErrorIs(t, err, challenge.ErrNoToken)
	assert.Empty(t, fake.sends())
}

func TestProvider_StartRestoresFreshSession(t *testing.T) {
	persist := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, persist.Save(ctx, &storage.Record{
		Provider:  Name,
		User:      identity.User{ID: "uid-123", PhoneNumber: "+919876543210"},
		IDToken:   "id-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	p, fake := newTestProvider(t, persist)
	require.NoError(t, p.Start(ctx))
	c, ok := p.hub.Latest()
	require.True(t, ok)
	assert.Equal(t, "uid-123", c.User.ID)
	assert.Zero(t, fake.refreshes())
}

func TestProvider_StartRefreshesExpiredToken(t *testing.T) {
	persist := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, persist.Save(ctx, &storage.Record{
		Provider:     Name,
		User:         identity.User{ID: "uid-123", PhoneNumber: "+919876543210"},
		IDToken:      "id-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}))

	p, fake := newTestProvider(t, persist)
	require.NoError(t, p.Start(ctx))

	c, _ := p.hub.Latest()
	require.NotNil(t, c.User)
	assert.Equal(t, 1, fake.refreshes())

	rec, err := persist.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "id-2", rec.IDToken)
	assert.Equal(t, "refresh-2", rec.RefreshToken)
	assert.True(t, rec.ExpiresAt.After(time.Now()))
}

func TestProvider_StartRejectedRefreshSignsOut(t *testing.T) {
	persist := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, persist.Save(ctx, &storage.Record{
		Provider:     Name,
		User:         identity.User{ID: "uid-123"},
		IDToken:      "id-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}))

	p, fake := newTestProvider(t, persist)
	fake.mu.Lock()
	fake.refreshError = "TOKEN_EXPIRED"
	fake.mu.Unlock()
	require.NoError(t, p.Start(ctx))

	c, _ := p.hub.Latest()
	assert.Nil(t, c.User)
	assert.NoError(t, c.Err)
	_, err := persist.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrNoSession)
}

func TestProvider_StartIgnoresOtherProviders(t *testing.T) {
	persist := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, persist.Save(ctx, &storage.Record{Provider: "local", User: identity.User{ID: "u"}}))

	p, _ := newTestProvider(t, persist)
	require.NoError(t, p.Start(ctx))
	c, _ := p.hub.Latest()
	assert.Nil(t, c.User)
}

func TestProvider_SignOut(t *testing.T) {
	persist := storage.NewMemoryStore()
	p, _ := newTestProvider(t, persist)
	ctx := context.Background()

	_, err := p.VerifyChallenge(ctx, "session-x", "123456")
	require.NoError(t, err)
	require.NoError(t, p.SignOut(ctx))

	c, _ := p.hub.Latest()
	assert.Nil(t, c.User)
	_, err = persist.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrNoSession)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Settings{}, nil)
	assert.Error(t, err)
}

func TestParseAPIError_NonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, srv.URL)
	_, err := c.SendVerificationCode(context.Background(), "+919876543210", "tok")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "HTTP_502", apiErr.Code)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}
