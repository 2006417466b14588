// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package challenge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPlatform(t *testing.T) {
	yes := func() bool { return true }
	no := func() bool { return false }

	tests := []struct {
		setting     string
		interactive func() bool
		want        Platform
	}{
		{"web", yes, PlatformWeb},
		{"native", no, PlatformNative},
		{"auto", yes, PlatformNative},
		{"auto", no, PlatformWeb},
		{"", nil, PlatformWeb},
	}
	for _, tc := range tests {
		got, err := DetectPlatform(tc.setting, tc.interactive)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "setting %q", tc.setting)
	}

	_, err := DetectPlatform("desktop", yes)
	assert.Error(t, err)
}

func TestSelect_Web(t *testing.T) {
	s := Select(PlatformWeb, Options{Token: "tok-123"})
	require.Equal(t, KindInvisible, s.Kind())

	inv := s.(*InvisibleSurface)
	assert.Equal(t, DefaultContainerID, inv.ContainerID)

	proof, err := s.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", proof.Token)
	assert.Equal(t, KindInvisible, proof.Kind)
}

func TestInvisibleSurface_NoToken(t *testing.T) {
	s := Select(PlatformWeb, Options{})
	_, err := s.Solve(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestModalSurface_Prompts(t *testing.T) {
	var asked Request
	s := Select(PlatformNative, Options{Prompter: func(_ context.Context, req Request) (string, error) {
		asked = req
		return "  human-proof  ", nil
	}})
	require.Equal(t, KindModal, s.Kind())

	proof, err := s.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "human-proof", proof.Token)
	assert.Equal(t, KindModal, proof.Kind)
	assert.NotEmpty(t, asked.Title)
}

func TestModalSurface_AttemptInvisibleFirst(t *testing.T) {
	prompted := false
	s := Select(PlatformNative, Options{
		Token:            "pre",
		AttemptInvisible: true,
		Prompter: func(context.Context, Request) (string, error) {
			prompted = true
			return "x", nil
		},
	})

	proof, err := s.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pre", proof.Token)
	assert.False(t, prompted)
}

func TestModalSurface_Dismissed(t *testing.T) {
	s := NewModalSurface(func(context.Context, Request) (string, error) { return "", nil }, nil)
	_, err := s.Solve(context.Background())
	assert.ErrorIs(t, err, ErrDismissed)

	boom := errors.New("closed")
	s.SetPrompter(func(context.Context, Request) (string, error) { return "", boom })
	_, err = s.Solve(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestModalSurface_NoPrompter(t *testing.T) {
	s := NewModalSurface(nil, nil)
	_, err := s.Solve(context.Background())
	assert.ErrorIs(t, err, ErrNoPrompter)
}
