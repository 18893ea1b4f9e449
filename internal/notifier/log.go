package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/bankradar/internal/model"
)

// Ensure LogChannel implements model.Channel.
var _ model.Channel = (*LogChannel)(nil)

// LogChannel writes digests to the logger. It stands in for real channels
// in dry runs and when no email provider is configured.
type LogChannel struct {
	logger *slog.Logger
}

// NewLogChannel returns a channel that logs each posting via slog.
func NewLogChannel(logger *slog.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (n *LogChannel) Name() string { return "log" }

// Applies is true for every subscriber with a channel switched on.
func (n *LogChannel) Applies(sub model.Subscriber) bool {
	return sub.Preferences.Active()
}

// Send logs one line per posting. It never fails.
func (n *LogChannel) Send(_ context.Context, d model.Digest) error {
	for _, p := range d.Postings {
		args := []any{"subscriber", d.Subscriber.ID, "bank", p.Bank, "title", p.Title, "location", p.Location, "url", p.Link}
		if p.PostedDate != nil {
			args = append(args, "posted", p.PostedDate.Format("2006-01-02"))
		}
		n.logger.Info("new posting", args...)
	}
	return nil
}

// SendNothingFound logs the end-of-day note.
func (n *LogChannel) SendNothingFound(_ context.Context, sub model.Subscriber) error {
	n.logger.Info("nothing found today", "subscriber", sub.ID)
	return nil
}
