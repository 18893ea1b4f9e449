// Package dispatcher drains the notification queue into per-subscriber
// digests and delivers them over every applicable channel.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/bankradar/internal/model"
)

// NothingFoundSender delivers the end-of-day "no matches" note.
type NothingFoundSender interface {
	SendNothingFound(ctx context.Context, sub model.Subscriber) error
}

// NothingFoundPolicy opens the nothing-found window on weekdays during one
// UTC hour. A negative Hour disables it.
type NothingFoundPolicy struct {
	Hour int
}

// Open reports whether now falls inside the window.
func (p NothingFoundPolicy) Open(now time.Time) bool {
	if p.Hour < 0 {
		return false
	}
	now = now.UTC()
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return now.Hour() == p.Hour
}

// Config wires a Dispatcher.
type Config struct {
	Queue        model.NotificationQueue
	Directory    model.SubscriberDirectory
	DigestLog    model.DigestLog
	Channels     []model.Channel
	NothingFound NothingFoundSender // nil disables the end-of-day email
	Policy       NothingFoundPolicy
}

// Dispatcher turns queued notifications into delivered digests.
type Dispatcher struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a dispatcher.
func New(cfg Config, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{cfg: cfg, logger: logger}
}

type group struct {
	subscriberID string
	items        []model.QueuedNotification
}

// groupBySubscriber keeps subscribers in order of their first queued item
// and items in queue order.
func groupBySubscriber(items []model.QueuedNotification) []group {
	var groups []group
	index := map[string]int{}
	for _, it := range items {
		i, ok := index[it.SubscriberID]
		if !ok {
			i = len(groups)
			index[it.SubscriberID] = i
			groups = append(groups, group{subscriberID: it.SubscriberID})
		}
		groups[i].items = append(groups[i].items, it)
	}
	return groups
}

// Drain delivers every pending item. Items are removed once all channel
// attempts for their subscriber finished, whatever the outcome; a channel
// failure never blocks other channels or subscribers. Items whose
// subscriber profile cannot be loaded are dropped without a retry.
func (d *Dispatcher) Drain(ctx context.Context, now time.Time) (model.DispatchSummary, error) {
	sum := model.DispatchSummary{Sent: map[string]int{}, Failed: map[string]int{}}

	items, err := d.cfg.Queue.Pending(ctx)
	if err != nil {
		return sum, fmt.Errorf("loading queue: %w", err)
	}

	var processed []int64
	notified := map[string]bool{}
	queued := map[string]bool{}
	for _, g := range groupBySubscriber(items) {
		queued[g.subscriberID] = true
		if ctx.Err() != nil {
			break
		}
		done, ok := d.deliver(ctx, g, &sum)
		processed = append(processed, done...)
		if ok {
			notified[g.subscriberID] = true
		}
	}

	if len(processed) > 0 {
		// Sent items must be removed even when ctx is already done.
		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := d.cfg.Queue.Delete(delCtx, processed); err != nil {
			return sum, fmt.Errorf("deleting %d processed items: %w", len(processed), err)
		}
	}
	sum.Items = len(processed)

	if d.cfg.NothingFound != nil && ctx.Err() == nil {
		// A digest today uses up the day's nothing-found slot.
		for id := range notified {
			if _, err := d.cfg.DigestLog.MarkNothingFound(ctx, id, now); err != nil {
				d.logger.Warn("recording digest day", "subscriber", id, "error", err)
			}
		}
		if d.cfg.Policy.Open(now) {
			d.sendNothingFound(ctx, now, queued, &sum)
		}
	}

	d.logger.Info("dispatch complete",
		"items", sum.Items,
		"subscribers", sum.Subscribers,
		"dropped", sum.Dropped,
		"sent", sum.Sent,
		"failed", sum.Failed,
		"nothing_found", sum.NothingFoundSent,
	)
	return sum, ctx.Err()
}

// deliver handles one subscriber's items and returns the IDs to delete and
// whether a digest went through channel attempts.
func (d *Dispatcher) deliver(ctx context.Context, g group, sum *model.DispatchSummary) ([]int64, bool) {
	ids := make([]int64, 0, len(g.items))
	var postings []model.Posting
	for _, it := range g.items {
		ids = append(ids, it.ID)
		if it.Posting.Link == "" {
			sum.Dropped++
			d.logger.Warn("dropping unreadable queue item", "id", it.ID, "subscriber", g.subscriberID)
			continue
		}
		postings = append(postings, it.Posting)
	}

	sub, err := d.cfg.Directory.Get(ctx, g.subscriberID)
	if err != nil {
		sum.Dropped += len(postings)
		if errors.Is(err, model.ErrSubscriberNotFound) {
			d.logger.Warn("dropping items for unknown subscriber", "subscriber", g.subscriberID, "items", len(g.items))
		} else {
			d.logger.Error("loading subscriber failed, dropping items", "subscriber", g.subscriberID, "items", len(g.items), "error", err)
		}
		return ids, false
	}
	if len(postings) == 0 {
		return ids, false
	}

	sum.Subscribers++
	digest := model.Digest{Subscriber: sub, Postings: postings}
	for _, ch := range d.cfg.Channels {
		if !ch.Applies(sub) {
			continue
		}
		if err := ch.Send(ctx, digest); err != nil {
			sum.Failed[ch.Name()]++
			cerr := &model.ChannelError{Channel: ch.Name(), SubscriberID: sub.ID, Err: err}
			d.logger.Error("delivery failed", "channel", ch.Name(), "subscriber", sub.ID, "error", cerr)
			continue
		}
		sum.Sent[ch.Name()]++
	}
	return ids, true
}

// sendNothingFound skips anyone who had items in this drain's queue.
func (d *Dispatcher) sendNothingFound(ctx context.Context, now time.Time, queued map[string]bool, sum *model.DispatchSummary) {
	subs, err := d.cfg.Directory.ListActive(ctx)
	if err != nil {
		d.logger.Error("listing subscribers for nothing-found email", "error", err)
		return
	}
	for _, sub := range subs {
		if queued[sub.ID] || !sub.Subscribed || !sub.Preferences.Active() || sub.Email == "" {
			continue
		}
		first, err := d.cfg.DigestLog.MarkNothingFound(ctx, sub.ID, now)
		if err != nil {
			d.logger.Error("recording nothing-found email", "subscriber", sub.ID, "error", err)
			continue
		}
		if !first {
			continue
		}
		if err := d.cfg.NothingFound.SendNothingFound(ctx, sub); err != nil {
			d.logger.Error("nothing-found email failed", "subscriber", sub.ID, "error", err)
			continue
		}
		sum.NothingFoundSent++
	}
}
