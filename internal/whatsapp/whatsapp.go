// Package whatsapp sends text messages through an HTTP WhatsApp gateway.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds the gateway settings.
type Config struct {
	BaseURL string
	Token   string
	Sender  string
}

type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a client with a 10 second request timeout. A nil hc
// uses a default client.
func NewClient(cfg Config, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{cfg: cfg, http: hc}
}

type sendRequest struct {
	To     string `json:"to"`
	Text   string `json:"text"`
	Sender string `json:"sender,omitempty"`
}

// Send posts text to the gateway for delivery to phone. Any non-2xx
// response is an error.
func (c *Client) Send(ctx context.Context, phone, text string) error {
	to := strings.TrimPrefix(strings.TrimSpace(phone), "+")
	if to == "" {
		return fmt.Errorf("whatsapp: empty recipient")
	}

	body, err := json.Marshal(sendRequest{To: to, Text: text, Sender: c.cfg.Sender})
	if err != nil {
		return fmt.Errorf("whatsapp: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("whatsapp: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// FormatText joins a notification title and message the way they are
// shown in a WhatsApp chat.
func FormatText(title, message, link string) string {
	var b strings.Builder
	b.WriteString("*")
	b.WriteString(title)
	b.WriteString("*\n")
	b.WriteString(message)
	if link != "" {
		b.WriteString("\n")
		b.WriteString(link)
	}
	return b.String()
}
