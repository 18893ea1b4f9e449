package store

import (
	"context"
	"fmt"
	"time"

	"github.com/amishk599/bankradar/internal/model"
)

// SplitLedger commits across a freshness store and a queue that do not
// share a transaction. When enqueueing fails, the links just recorded are
// forgotten so the next run detects them again.
type SplitLedger struct {
	freshness model.FreshnessStore
	queue     model.NotificationQueue
}

// NewSplitLedger pairs a freshness store with a notification queue.
func NewSplitLedger(freshness model.FreshnessStore, queue model.NotificationQueue) *SplitLedger {
	return &SplitLedger{freshness: freshness, queue: queue}
}

// Commit records postings, plans notifications for the fresh ones and
// enqueues them. Queue items are written before Commit returns.
func (l *SplitLedger) Commit(ctx context.Context, postings []model.Posting, now time.Time, plan model.PlanFunc) (model.CommitResult, error) {
	fresh, err := l.freshness.DiffAndRecord(ctx, postings, now)
	if err != nil {
		return model.CommitResult{}, fmt.Errorf("recording postings: %w", err)
	}

	items := plan(fresh)
	for i := range items {
		if items[i].QueuedAt.IsZero() {
			items[i].QueuedAt = now
		}
	}
	if len(items) > 0 {
		if err := l.queue.Enqueue(ctx, items); err != nil {
			links := make([]string, len(fresh))
			for i, p := range fresh {
				links[i] = p.Link
			}
			// ctx may already be done.
			forgetCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if ferr := l.freshness.Forget(forgetCtx, links); ferr != nil {
				return model.CommitResult{}, fmt.Errorf("enqueueing notifications: %w (forget also failed: %v)", err, ferr)
			}
			return model.CommitResult{}, fmt.Errorf("enqueueing notifications: %w", err)
		}
	}
	return model.CommitResult{Fresh: fresh, Queued: len(items)}, nil
}
