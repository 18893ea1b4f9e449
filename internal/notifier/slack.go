package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/bankradar/internal/model"
)

// SlackReporter posts a summary of each ingestion run to a Slack channel
// via an Incoming Webhook.
type SlackReporter struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackReporter returns a reporter that posts run summaries to Slack.
func NewSlackReporter(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackReporter {
	return &SlackReporter{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Report sends one Block Kit message. A 429 is retried once after the
// Retry-After delay.
func (s *SlackReporter) Report(ctx context.Context, sum model.RunSummary) error {
	body, err := json.Marshal(buildPayload(sum))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryAfter):
		}
		status, _, err = s.post(ctx, body)
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
	}
	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	s.logger.Debug("slack run summary sent", "run_id", sum.RunID)
	return nil
}

func (s *SlackReporter) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	if secs <= 0 {
		secs = 1
	}
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func buildPayload(sum model.RunSummary) slackPayload {
	icon := "✅"
	switch {
	case sum.TimedOut:
		icon = "⏱️"
	case len(sum.Failed) > 0:
		icon = "⚠️"
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("%s Ingestion run: %d new postings", icon, sum.Fresh)},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Sources:*\n%d ok / %d failed", sum.Sources-len(sum.Failed), len(sum.Failed))},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Fetched:*\n%d", sum.Fetched)},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Queued:*\n%d", sum.Queued)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Pruned:*\n%d", sum.Pruned)},
			},
		},
	}

	if len(sum.Failed) > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Failed:* " + strings.Join(sum.Failed, ", ")},
		})
	}

	blocks = append(blocks,
		slackBlock{
			Type: "context",
			Elements: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("run `%s` · %s", sum.RunID, sum.Elapsed.Round(time.Millisecond))},
			},
		},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}
