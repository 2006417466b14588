// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package local

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Sender delivers a code to a phone number.
type Sender interface {
	Deliver(ctx context.Context, phoneE164, code string) error
}

// Delivery is one message recorded by the Outbox.
type Delivery struct {
	Phone string    `json:"phone"`
	Code  string    `json:"code"`
	At    time.Time `json:"at"`
}

// =============================================================================
// OUTBOX
// =============================================================================

// Outbox records deliveries instead of sending them. Each delivery is
// appended as a JSON line to a file (when a path is set) so another terminal
// can read it with `phonegate outbox`.
type Outbox struct {
	path string

	mu     sync.Mutex
	latest map[string]Delivery
}

// NewOutbox creates an outbox. An empty path keeps deliveries in memory only.
func NewOutbox(path string) *Outbox {
	return &Outbox{path: path, latest: make(map[string]Delivery)}
}

// Path returns the outbox file path.
func (o *Outbox) Path() string {
	return o.path
}

// Deliver implements Sender.
func (o *Outbox) Deliver(ctx context.Context, phoneE164, code string) error {
	d := Delivery{Phone: phoneE164, Code: code, At: time.Now()}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.latest[phoneE164] = d

	if o.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(o.path), 0700); err != nil {
		return fmt.Errorf("failed to create outbox directory: %w", err)
	}
	f, err := os.OpenFile(o.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open outbox: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write outbox: %w", err)
	}
	return f.Sync()
}

// Latest returns the last delivery to phoneE164.
func (o *Outbox) Latest(phoneE164 string) (Delivery, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	d, ok := o.latest[phoneE164]
	return d, ok
}

// ReadOutbox returns the last n deliveries in the outbox file, oldest first.
// n <= 0 returns all of them. A missing file yields no deliveries.
func ReadOutbox(path string, n int) ([]Delivery, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open outbox: %w", err)
	}
	defer f.Close()

	var out []Delivery
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var d Delivery
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			continue
		}
		out = append(out, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outbox: %w", err)
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

// =============================================================================
// SMS LOCAL
// =============================================================================

const (
	defaultSMSLocalURL     = "https://www.smslocal.com/dev/bulkV2"
	defaultSMSLocalTimeout = 15 * time.Second
)

// SMSLocalSender sends codes through the SMS Local bulk API (route=otp).
type SMSLocalSender struct {
	APIKey     string
	BaseURL    string
	SenderID   string
	HTTPClient *http.Client
}

// NewSMSLocalSender creates a sender. An empty baseURL uses the public API.
func NewSMSLocalSender(apiKey, baseURL, senderID string) *SMSLocalSender {
	if baseURL == "" {
		baseURL = defaultSMSLocalURL
	}
	return &SMSLocalSender{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		SenderID:   senderID,
		HTTPClient: &http.Client{Timeout: defaultSMSLocalTimeout},
	}
}

// Deliver implements Sender. The code is never logged.
func (s *SMSLocalSender) Deliver(ctx context.Context, phoneE164, code string) error {
	if s.APIKey == "" {
		return errors.New("sms: API key not configured")
	}
	body := map[string]interface{}{
		"route":     "otp",
		"numbers":   strings.TrimPrefix(phoneE164, "+"),
		"variables": code,
	}
	if s.SenderID != "" {
		body["sender_id"] = s.SenderID
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.APIKey)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms: request failed status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}
