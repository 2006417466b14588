// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package local

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutbox_FileAndLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.jsonl")
	o := NewOutbox(path)
	ctx := context.Background()

	require.NoError(t, o.Deliver(ctx, testPhone, "111111"))
	require.NoError(t, o.Deliver(ctx, testPhone, "222222"))
	require.NoError(t, o.Deliver(ctx, "+15550000000", "333333"))

	d, ok := o.Latest(testPhone)
	require.True(t, ok)
	assert.Equal(t, "222222", d.Code)

	all, err := ReadOutbox(path, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "111111", all[0].Code)

	last, err := ReadOutbox(path, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "333333", last[0].Code)
}

func TestReadOutbox_Missing(t *testing.T) {
	got, err := ReadOutbox(filepath.Join(t.TempDir(), "none.jsonl"), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSMSLocalSender(t *testing.T) {
	var gotBody map[string]interface{}
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSMSLocalSender("api-key", srv.URL, "PHNGTE")
	require.NoError(t, s.Deliver(context.Background(), testPhone, "123456"))

	assert.Equal(t, "api-key", gotAuth)
	assert.Equal(t, "otp", gotBody["route"])
	assert.Equal(t, "919876543210", gotBody["numbers"])
	assert.Equal(t, "123456", gotBody["variables"])
	assert.Equal(t, "PHNGTE", gotBody["sender_id"])
}

func TestSMSLocalSender_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	err := NewSMSLocalSender("k", srv.URL, "").Deliver(context.Background(), testPhone, "123456")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=402")
	assert.NotContains(t, err.Error(), "123456")

	err = NewSMSLocalSender("", srv.URL, "").Deliver(context.Background(), testPhone, "123456")
	assert.Error(t, err)
}

func TestTokens(t *testing.T) {
	tokens, err := NewTokens(testKey, time.Hour)
	require.NoError(t, err)

	now := time.Now()
	tok, exp, err := tokens.Issue("user-1", testPhone, now)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), exp, time.Second)

	claims, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, testPhone, claims.PhoneNumber)

	other, err := NewTokens([]byte("ffffffffffffffffffffffffffffffff"), time.Hour)
	require.NoError(t, err)
	_, err = other.Parse(tok)
	assert.Error(t, err, "wrong key must not verify")

	expired, _, err := tokens.Issue("user-1", testPhone, now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = tokens.Parse(expired)
	assert.Error(t, err)

	_, err = NewTokens(testKey, 0)
	assert.Error(t, err)
}
