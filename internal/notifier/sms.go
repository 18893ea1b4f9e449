package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/amishk599/bankradar/internal/model"
)

// Ensure SMSChannel implements model.Channel.
var _ model.Channel = (*SMSChannel)(nil)

// DefaultTwilioURL is the Twilio REST API base URL.
const DefaultTwilioURL = "https://api.twilio.com"

// SMSConfig holds Twilio credentials. The channel is disabled unless all
// of AccountSID, AuthToken and From are set.
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
}

// Configured reports whether SMS delivery can be attempted.
func (c SMSConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

// SMSChannel sends short digests through Twilio's Messages API.
type SMSChannel struct {
	cfg        SMSConfig
	brand      Brand
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSMSChannel returns an SMS channel. An empty BaseURL means Twilio.
func NewSMSChannel(cfg SMSConfig, brand Brand, httpClient *http.Client, logger *slog.Logger) *SMSChannel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTwilioURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &SMSChannel{cfg: cfg, brand: brand, httpClient: httpClient, logger: logger}
}

func (c *SMSChannel) Name() string { return "sms" }

// Applies reports whether SMS is configured and the subscriber opted in
// with a phone number.
func (c *SMSChannel) Applies(sub model.Subscriber) bool {
	return c.cfg.Configured() && sub.Preferences.SMSEnabled && sub.Preferences.PhoneNumber != ""
}

// Send texts the digest.
func (c *SMSChannel) Send(ctx context.Context, d model.Digest) error {
	form := url.Values{
		"To":   {d.Subscriber.Preferences.PhoneNumber},
		"From": {c.cfg.From},
		"Body": {RenderSMS(c.brand, d)},
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.cfg.BaseURL, url.PathEscape(c.cfg.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	if err := send(ctx, c.httpClient, req); err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	c.logger.Info("sms sent", "subscriber", d.Subscriber.ID, "postings", len(d.Postings))
	return nil
}
