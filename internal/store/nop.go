package store

import (
	"context"
	"time"

	"github.com/amishk599/bankradar/internal/model"
)

// NopStore is used in dry-run mode. It never records a link, so every
// posting looks fresh on each run, and it discards queued notifications.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) DiffAndRecord(_ context.Context, postings []model.Posting, _ time.Time) ([]model.Posting, error) {
	return postings, nil
}
func (s *NopStore) Forget(context.Context, []string) error { return nil }
func (s *NopStore) Prune(context.Context, time.Time, time.Duration) (int, error) {
	return 0, nil
}
func (s *NopStore) ListRecent(context.Context, time.Time, time.Duration) ([]model.FirstSeenRecord, error) {
	return nil, nil
}
func (s *NopStore) Backfill(context.Context, []model.Posting, time.Time, time.Duration) (model.BackfillStats, error) {
	return model.BackfillStats{}, nil
}

func (s *NopStore) Enqueue(context.Context, []model.QueuedNotification) error { return nil }
func (s *NopStore) Pending(context.Context) ([]model.QueuedNotification, error) {
	return nil, nil
}
func (s *NopStore) Delete(context.Context, []int64) error { return nil }

// Commit plans notifications without persisting anything.
func (s *NopStore) Commit(_ context.Context, postings []model.Posting, _ time.Time, plan model.PlanFunc) (model.CommitResult, error) {
	return model.CommitResult{Fresh: postings, Queued: len(plan(postings))}, nil
}
