// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/phonegate-tui/internal/identity"
)

const (
	DefaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
	DefaultSecureTokenURL     = "https://securetoken.googleapis.com/v1"
	defaultTimeout            = 30 * time.Second
	maxErrorBody              = 64 << 10
)

// APIError is an error response from the REST API.
type APIError struct {
	Status  int
	Code    string // e.g. INVALID_CODE
	Message string // detail after the code, if any
}

func (e *APIError) Error() string {
	if text, ok := friendlyErrors[e.Code]; ok {
		return text
	}
	if e.Message != "" {
		return fmt.Sprintf("identity platform error: %s (%s)", e.Code, e.Message)
	}
	return fmt.Sprintf("identity platform error: %s", e.Code)
}

// Unwrap maps well-known codes onto identity errors.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "INVALID_CODE", "MISSING_CODE":
		return identity.ErrInvalidCode
	case "SESSION_EXPIRED", "CODE_EXPIRED", "INVALID_SESSION_INFO", "MISSING_SESSION_INFO":
		return identity.ErrChallengeExpired
	case "INVALID_PHONE_NUMBER", "MISSING_PHONE_NUMBER":
		return identity.ErrInvalidPhoneNumber
	case "TOO_MANY_ATTEMPTS_TRY_LATER", "QUOTA_EXCEEDED":
		return identity.ErrTooManyRequests
	}
	return nil
}

// credentialRejected reports whether the refresh token is unusable.
func (e *APIError) credentialRejected() bool {
	switch e.Code {
	case "TOKEN_EXPIRED", "USER_DISABLED", "USER_NOT_FOUND", "INVALID_REFRESH_TOKEN", "INVALID_GRANT_TYPE":
		return true
	}
	return false
}

var friendlyErrors = map[string]string{
	"INVALID_CODE":                "The verification code is invalid.",
	"SESSION_EXPIRED":             "The verification code has expired. Request a new one.",
	"CODE_EXPIRED":                "The verification code has expired. Request a new one.",
	"INVALID_PHONE_NUMBER":        "The phone number is not valid.",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Too many attempts. Try again later.",
	"QUOTA_EXCEEDED":              "The SMS quota for this project has been exceeded.",
	"CAPTCHA_CHECK_FAILED":        "The reCAPTCHA check failed.",
	"INVALID_APP_CREDENTIAL":      "The verification token was rejected.",
	"MISSING_APP_CREDENTIAL":      "A verification token is required.",
	"OPERATION_NOT_ALLOWED":       "Phone sign-in is disabled for this project.",
	"API_KEY_INVALID":             "The API key is not valid.",
}

// Client is a minimal REST client for phone sign-in.
type Client struct {
	APIKey             string
	IdentityToolkitURL string
	SecureTokenURL     string
	HTTPClient         *http.Client
}

// NewClient creates a client. Empty URLs use the public endpoints.
func NewClient(apiKey, identityToolkitURL, secureTokenURL string) *Client {
	if identityToolkitURL == "" {
		identityToolkitURL = DefaultIdentityToolkitURL
	}
	if secureTokenURL == "" {
		secureTokenURL = DefaultSecureTokenURL
	}
	return &Client{
		APIKey:             apiKey,
		IdentityToolkitURL: strings.TrimRight(identityToolkitURL, "/"),
		SecureTokenURL:     strings.TrimRight(secureTokenURL, "/"),
		HTTPClient:         &http.Client{Timeout: defaultTimeout},
	}
}

// SignInResult is the response of signInWithPhoneNumber.
type SignInResult struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
	PhoneNumber  string `json:"phoneNumber"`
	IsNewUser    bool   `json:"isNewUser"`
}

// RefreshResult is the response of the Secure Token exchange.
type RefreshResult struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// SendVerificationCode asks the platform to text a code to phoneE164.
func (c *Client) SendVerificationCode(ctx context.Context, phoneE164, recaptchaToken string) (string, error) {
	body := map[string]string{
		"phoneNumber":    phoneE164,
		"recaptchaToken": recaptchaToken,
	}
	var resp struct {
		SessionInfo string `json:"sessionInfo"`
	}
	if err := c.postJSON(ctx, c.IdentityToolkitURL+"/accounts:sendVerificationCode", body, &resp); err != nil {
		return "", err
	}
	if resp.SessionInfo == "" {
		return "", errors.New("identity platform returned no session info")
	}
	return resp.SessionInfo, nil
}

// SignInWithPhoneNumber exchanges a code for tokens.
func (c *Client) SignInWithPhoneNumber(ctx context.Context, sessionInfo, code string) (*SignInResult, error) {
	body := map[string]string{
		"sessionInfo": sessionInfo,
		"code":        code,
	}
	var resp SignInResult
	if err := c.postJSON(ctx, c.IdentityToolkitURL+"/accounts:signInWithPhoneNumber", body, &resp); err != nil {
		return nil, err
	}
	if resp.IDToken == "" || resp.LocalID == "" {
		return nil, errors.New("identity platform returned an incomplete sign-in")
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a new ID token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.withKey(c.SecureTokenURL+"/token"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp RefreshResult
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.withKey(endpoint), bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity platform unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseAPIError(resp.StatusCode, io.LimitReader(resp.Body, maxErrorBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode identity platform response: %w", err)
	}
	return nil
}

func (c *Client) withKey(endpoint string) string {
	return endpoint + "?key=" + url.QueryEscape(c.APIKey)
}

// parseAPIError reads {"error":{"code":400,"message":"CODE : detail"}}.
// The Secure Token service uses the same shape.
func parseAPIError(status int, r io.Reader) error {
	var payload struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(r)
	apiErr := &APIError{Status: status, Code: "HTTP_" + strconv.Itoa(status)}
	if json.Unmarshal(data, &payload) == nil && payload.Error.Message != "" {
		code, detail, _ := strings.Cut(payload.Error.Message, ":")
		apiErr.Code = strings.TrimSpace(code)
		apiErr.Message = strings.TrimSpace(detail)
	}
	return apiErr
}

// expiry converts an expiresIn seconds string to an absolute time.
func expiry(now time.Time, expiresIn string) time.Time {
	secs, err := strconv.Atoi(strings.TrimSpace(expiresIn))
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return now.Add(time.Duration(secs) * time.Second)
}
