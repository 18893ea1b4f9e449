package notifier

import (
	"context"
	"time"

	"github.com/amishk599/bankradar/internal/model"
)

// SendTestDigest sends a one-posting digest to verify a channel works.
func SendTestDigest(ctx context.Context, ch model.Channel, sub model.Subscriber) error {
	posted := time.Now().UTC().Truncate(24 * time.Hour)
	d := model.Digest{
		Subscriber: sub,
		Postings: []model.Posting{{
			Link:       "https://example.com/jobs/test-001",
			Title:      "Test Notification, Integration Verified",
			Location:   "New York, NY",
			Bank:       "Bank Radar Test",
			BankKey:    "test",
			Category:   "Other",
			PostedDate: &posted,
			RoleType:   model.RoleFullTime,
		}},
	}
	return ch.Send(ctx, d)
}
