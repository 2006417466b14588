// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/phonegate-tui/internal/challenge"
	"github.com/jeranaias/phonegate-tui/internal/guard"
	"github.com/jeranaias/phonegate-tui/internal/identity"
	"github.com/jeranaias/phonegate-tui/internal/phone"
)

// fakeProvider records calls and can hold them until released.
type fakeProvider struct {
	hub *identity.Hub

	mu          sync.Mutex
	sendCalls   []string
	verifyCalls []string
	sendErr     error
	verifyErr   error
	gate        chan struct{}
	entered     chan struct{}
	// answered runs after the call is decided, before it returns.
	answered func()
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{hub: identity.NewHub()}
}

func (f *fakeProvider) hold() {
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if f.answered != nil {
		f.answered()
	}
}

func (f *fakeProvider) SendChallenge(ctx context.Context, phoneE164 string, surface challenge.Surface) (identity.ChallengeHandle, error) {
	f.mu.Lock()
	f.sendCalls = append(f.sendCalls, phoneE164)
	err := f.sendErr
	f.mu.Unlock()
	f.hold()
	if err != nil {
		return "", err
	}
	return "H", nil
}

func (f *fakeProvider) VerifyChallenge(ctx context.Context, handle identity.ChallengeHandle, code string) (*identity.User, error) {
	f.mu.Lock()
	f.verifyCalls = append(f.verifyCalls, string(handle)+"/"+code)
	err := f.verifyErr
	f.mu.Unlock()
	f.hold()
	if err != nil {
		return nil, err
	}
	if code != "123456" {
		return nil, identity.ErrInvalidCode
	}
	u := &identity.User{ID: "U", PhoneNumber: "+919876543210"}
	f.hub.Publish(identity.SessionChange{User: u})
	return u, nil
}

func (f *fakeProvider) SignOut(ctx context.Context) error {
	f.hub.Publish(identity.SessionChange{})
	return nil
}

func (f *fakeProvider) ObserveSessionChanges() (<-chan identity.SessionChange, func()) {
	return f.hub.Subscribe()
}

func (f *fakeProvider) calls() (sends, verifies int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sendCalls), len(f.verifyCalls)
}

func newTestController(t *testing.T) (*Controller, *fakeProvider) {
	t.Helper()
	norm, err := phone.NewNormalizer("")
	require.NoError(t, err)
	p := newFakeProvider()
	surface := challenge.NewInvisibleSurface("", challenge.StaticToken("tok"))
	return New(p, surface, norm), p
}

func TestSendChallenge_RejectsMalformedPhoneLocally(t *testing.T) {
	inputs := []string{
		"",
		"98765",
		"987654321",
		"98765432100",
		"98765abcde",
		"9876 54321",
		"+919876543",
		"９８７６５４３２１０", // full-width digits
		"٩٨٧٦٥٤٣٢١٠",     // Arabic-Indic digits
		"-987654321",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			c, p := newTestController(t)
			_, err := c.SendChallenge(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidPhoneNumber)

			sends, _ := p.calls()
			assert.Zero(t, sends, "provider must not be called")
			assert.Equal(t, StepEnteringPhone, c.Step())
		})
	}
}

func TestVerifyChallenge_RejectsMalformedCodeLocally(t *testing.T) {
	inputs := []string{"", "12345", "1234567", "12a456", " 123456", "１２３４５６"}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			c, p := newTestController(t)
			h, err := c.SendChallenge(context.Background(), "9876543210")
			require.NoError(t, err)

			_, err = c.VerifyChallenge(context.Background(), h, in)
			assert.ErrorIs(t, err, ErrInvalidCodeFormat)

			_, verifies := p.calls()
			assert.Zero(t, verifies, "provider must not be called")
		})
	}
}

func TestSubmit_BufferedInputIsNotTrimmed(t *testing.T) {
	for _, in := range []string{"98765432109", "98765abc43210", "9876543210999"} {
		t.Run(in, func(t *testing.T) {
			c, p := newTestController(t)
			c.Phone().Set(in)
			_, err := c.SubmitPhone(context.Background())
			assert.ErrorIs(t, err, ErrInvalidPhoneNumber)

			sends, _ := p.calls()
			assert.Zero(t, sends)
			assert.Equal(t, StepEnteringPhone, c.Step())
		})
	}

	c, p := newTestController(t)
	c.Phone().Set("9876543210")
	h, err := c.SubmitPhone(context.Background())
	require.NoError(t, err)

	c.Code().Set("1234567")
	_, err = c.SubmitCode(context.Background())
	assert.ErrorIs(t, err, ErrInvalidCodeFormat)
	_, verifies := p.calls()
	assert.Zero(t, verifies)

	pending, ok := c.Pending()
	assert.True(t, ok)
	assert.Equal(t, h, pending)
}

func TestSendChallenge_TransitionsToCodeEntryOnce(t *testing.T) {
	c, p := newTestController(t)
	assert.Equal(t, StepEnteringPhone, c.Step())

	h, err := c.SendChallenge(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, identity.ChallengeHandle("H"), h)
	assert.Equal(t, StepEnteringCode, c.Step())

	pending, ok := c.Pending()
	assert.True(t, ok)
	assert.Equal(t, h, pending)

	sends, _ := p.calls()
	assert.Equal(t, 1, sends)
	assert.Equal(t, []string{"+919876543210"}, p.sendCalls)
}

func TestVerifyChallenge_FailureKeepsHandleAndClearsCode(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()

	h, err := c.SendChallenge(ctx, "9876543210")
	require.NoError(t, err)

	c.Code().Set("000000")
	_, err = c.SubmitCode(ctx)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.ErrorIs(t, err, identity.ErrInvalidCode)

	assert.Equal(t, StepEnteringCode, c.Step())
	pending, ok := c.Pending()
	require.True(t, ok)
	assert.Equal(t, h, pending)
	assert.Empty(t, c.Code().String())

	// Retry with the same handle succeeds.
	c.Code().Set("123456")
	user, err := c.SubmitCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "U", user.ID)
}

func TestVerifyChallenge_ExpiredChallengeReturnsToPhoneEntry(t *testing.T) {
	c, p := newTestController(t)
	ctx := context.Background()

	h, err := c.SendChallenge(ctx, "9876543210")
	require.NoError(t, err)

	p.verifyErr = identity.ErrChallengeExpired
	_, err = c.VerifyChallenge(ctx, h, "123456")
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.ErrorIs(t, err, identity.ErrChallengeExpired)
	assert.Equal(t, StepEnteringPhone, c.Step())
	assert.Equal(t, "This code has expired. Please request a new one.", Describe(err).Message)
}

func TestVerifyChallenge_RequiresPendingHandle(t *testing.T) {
	c, p := newTestController(t)
	ctx := context.Background()

	_, err := c.VerifyChallenge(ctx, "H", "123456")
	assert.ErrorIs(t, err, ErrNoPendingChallenge)
	_, err = c.SubmitCode(ctx)
	assert.ErrorIs(t, err, ErrNoPendingChallenge)

	_, err = c.SendChallenge(ctx, "9876543210")
	require.NoError(t, err)
	_, err = c.VerifyChallenge(ctx, "other", "123456")
	assert.ErrorIs(t, err, ErrNoPendingChallenge)

	_, verifies := p.calls()
	assert.Zero(t, verifies)
}

func TestSendChallenge_ProviderErrorIsShownVerbatim(t *testing.T) {
	c, p := newTestController(t)
	p.sendErr = errors.New("Firebase: Error (auth/quota-exceeded).")

	_, err := c.SendChallenge(context.Background(), "9876543210")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Firebase: Error (auth/quota-exceeded).", perr.Message)
	assert.Equal(t, Notice{Title: "Error", Message: perr.Message}, Describe(err))
	assert.Equal(t, StepEnteringPhone, c.Step())
}

func TestNewSendReplacesPendingChallenge(t *testing.T) {
	c, p := newTestController(t)
	ctx := context.Background()

	_, err := c.SendChallenge(ctx, "9876543210")
	require.NoError(t, err)
	c.Code().Set("12")

	_, err = c.SendChallenge(ctx, "9876543211")
	require.NoError(t, err)
	sends, _ := p.calls()
	assert.Equal(t, 2, sends)
	assert.Empty(t, c.Code().String())
}

func TestBusy_SecondSubmissionIsLocalNoOp(t *testing.T) {
	c, p := newTestController(t)
	p.gate = make(chan struct{})
	p.entered = make(chan struct{}, 1)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := c.SendChallenge(ctx, "9876543210")
		done <- err
	}()
	<-p.entered
	assert.True(t, c.Busy())

	_, err := c.SendChallenge(ctx, "9876543210")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = c.VerifyChallenge(ctx, "H", "123456")
	assert.ErrorIs(t, err, ErrBusy)

	close(p.gate)
	require.NoError(t, <-done)
	assert.False(t, c.Busy())

	sends, verifies := p.calls()
	assert.Equal(t, 1, sends)
	assert.Zero(t, verifies)
}

func TestBusy_DuringVerify(t *testing.T) {
	c, p := newTestController(t)
	ctx := context.Background()
	h, err := c.SendChallenge(ctx, "9876543210")
	require.NoError(t, err)

	p.mu.Lock()
	p.gate = make(chan struct{})
	p.entered = make(chan struct{}, 1)
	p.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := c.VerifyChallenge(ctx, h, "123456")
		done <- err
	}()
	<-p.entered

	_, err = c.VerifyChallenge(ctx, h, "123456")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = c.SendChallenge(ctx, "9876543210")
	assert.ErrorIs(t, err, ErrBusy)

	close(p.gate)
	require.NoError(t, <-done)

	sends, verifies := p.calls()
	assert.Equal(t, 1, sends)
	assert.Equal(t, 1, verifies)
}

func TestReset_DropsLateCompletion(t *testing.T) {
	c, p := newTestController(t)
	p.gate = make(chan struct{})
	p.entered = make(chan struct{}, 1)
	c.Phone().Set("9876543210")

	done := make(chan error, 1)
	go func() {
		_, err := c.SubmitPhone(context.Background())
		done <- err
	}()
	<-p.entered

	c.Reset()
	assert.Empty(t, c.Phone().String())

	close(p.gate)
	assert.ErrorIs(t, <-done, ErrAbandoned)
	assert.Equal(t, StepEnteringPhone, c.Step(), "late handle must not become pending")
}

func TestReset_AfterProviderAnswers(t *testing.T) {
	c, p := newTestController(t)
	p.answered = c.Reset

	_, err := c.SendChallenge(context.Background(), "9876543210")
	assert.ErrorIs(t, err, ErrAbandoned)
	assert.Equal(t, StepEnteringPhone, c.Step())

	p.answered = nil
	h, err := c.SendChallenge(context.Background(), "9876543210")
	require.NoError(t, err)

	p.answered = c.Reset
	_, err = c.VerifyChallenge(context.Background(), h, "123456")
	assert.ErrorIs(t, err, ErrAbandoned)
	assert.Equal(t, StepEnteringPhone, c.Step())
}

func TestReset_RacingSends(t *testing.T) {
	for i := 0; i < 200; i++ {
		c, _ := newTestController(t)
		var wg sync.WaitGroup
		wg.Add(2)
		var sendErr error
		go func() {
			defer wg.Done()
			_, sendErr = c.SendChallenge(context.Background(), "9876543210")
		}()
		go func() {
			defer wg.Done()
			c.Reset()
		}()
		wg.Wait()
		if errors.Is(sendErr, ErrAbandoned) {
			assert.Equal(t, StepEnteringPhone, c.Step(), "abandoned send left a pending handle")
		}
	}
}

func TestChangeNumber(t *testing.T) {
	c, _ := newTestController(t)
	c.Phone().Set("9876543210")
	_, err := c.SubmitPhone(context.Background())
	require.NoError(t, err)
	c.Code().Set("12")

	c.ChangeNumber()
	assert.Equal(t, StepEnteringPhone, c.Step())
	assert.Equal(t, "9876543210", c.Phone().String())
	assert.Empty(t, c.Code().String())
}

func TestStepFor(t *testing.T) {
	assert.Equal(t, StepEnteringPhone, StepFor(false))
	assert.Equal(t, StepEnteringCode, StepFor(true))
	assert.Equal(t, "entering_code", StepEnteringCode.String())
}

func TestEndToEndSignIn(t *testing.T) {
	c, p := newTestController(t)
	ctx := context.Background()

	changes, cancel := p.ObserveSessionChanges()
	defer cancel()
	p.hub.Publish(identity.SessionChange{})

	var g guard.Guard
	nav, ok := g.Decide(identity.SessionFrom(<-changes))
	require.True(t, ok)
	assert.Equal(t, guard.RouteLogin, nav.Route)

	c.Phone().Set("9876543210")
	h, err := c.SubmitPhone(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"+919876543210"}, p.sendCalls)
	assert.Equal(t, identity.ChallengeHandle("H"), h)

	c.Code().Set("123456")
	_, err = c.SubmitCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"H/123456"}, p.verifyCalls)

	select {
	case change := <-changes:
		nav, ok = g.Decide(identity.SessionFrom(change))
		require.True(t, ok)
		assert.Equal(t, guard.RouteHome, nav.Route)
		assert.Equal(t, "U", nav.User.ID)
	case <-time.After(time.Second):
		t.Fatal("session stream did not announce the user")
	}

	// Flow state is cleared after success.
	assert.Equal(t, StepEnteringPhone, c.Step())
	assert.Empty(t, c.Phone().String())
}

func TestBuffer(t *testing.T) {
	b := NewBuffer(6)
	b.Set("1234567")
	assert.Equal(t, "1234567", b.String(), "overlong input is kept for validation")
	assert.True(t, b.Full())

	b.Set("１２３")
	assert.Equal(t, 3, b.Len())

	b.Clear()
	assert.Empty(t, b.String())
	assert.Equal(t, 6, b.Max())
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want Notice
	}{
		{ErrInvalidPhoneNumber, Notice{"Invalid Number", "Please enter a valid 10-digit phone number."}},
		{ErrInvalidCodeFormat, Notice{"Invalid Code", "Please enter a valid 6-digit OTP."}},
		{ErrVerificationFailed, Notice{"Error", "Invalid OTP code. Please try again."}},
		{&ProviderError{Message: "boom"}, Notice{"Error", "boom"}},
		{ErrBusy, Notice{"Please wait", "A request is already in progress."}},
		{nil, Notice{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Describe(tt.err))
	}
}
