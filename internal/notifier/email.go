package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/amishk599/bankradar/internal/model"
)

// Ensure EmailChannel implements model.Channel.
var _ model.Channel = (*EmailChannel)(nil)

// DefaultResendURL is the Resend API base URL.
const DefaultResendURL = "https://api.resend.com"

// EmailConfig holds Resend credentials.
type EmailConfig struct {
	APIKey  string
	From    string // "Name <addr@domain>"
	BaseURL string
}

// EmailChannel sends digests through the Resend HTTP API.
type EmailChannel struct {
	cfg        EmailConfig
	brand      Brand
	httpClient *http.Client
	logger     *slog.Logger
}

// NewEmailChannel returns an email channel. An empty BaseURL means Resend.
func NewEmailChannel(cfg EmailConfig, brand Brand, httpClient *http.Client, logger *slog.Logger) *EmailChannel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultResendURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &EmailChannel{cfg: cfg, brand: brand, httpClient: httpClient, logger: logger}
}

func (c *EmailChannel) Name() string { return "email" }

// Applies reports whether the subscriber has email on and an address.
func (c *EmailChannel) Applies(sub model.Subscriber) bool {
	return sub.Preferences.Enabled && sub.Email != ""
}

// Send emails the digest.
func (c *EmailChannel) Send(ctx context.Context, d model.Digest) error {
	html, err := RenderDigestEmail(c.brand, d)
	if err != nil {
		return err
	}
	if err := c.deliver(ctx, d.Subscriber.Email, DigestSubject(c.brand, len(d.Postings)), html); err != nil {
		return err
	}
	c.logger.Info("email sent", "subscriber", d.Subscriber.ID, "postings", len(d.Postings))
	return nil
}

// SendNothingFound emails the end-of-day "no matches" note.
func (c *EmailChannel) SendNothingFound(ctx context.Context, sub model.Subscriber) error {
	html, err := RenderNothingFoundEmail(c.brand, sub.FirstName)
	if err != nil {
		return err
	}
	return c.deliver(ctx, sub.Email, NothingFoundSubject, html)
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (c *EmailChannel) deliver(ctx context.Context, to, subject, html string) error {
	body, err := json.Marshal(resendEmail{From: c.cfg.From, To: []string{to}, Subject: subject, HTML: html})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	if err := send(ctx, c.httpClient, req); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
