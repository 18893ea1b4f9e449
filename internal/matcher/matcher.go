// Package matcher pairs freshly detected postings with the subscribers whose
// preferences they satisfy.
package matcher

import (
	"slices"

	"github.com/amishk599/bankradar/internal/filter"
	"github.com/amishk599/bankradar/internal/model"
)

// Matches reports whether p passes every filter in prefs. Empty bank and
// category lists accept everything.
func Matches(prefs model.SubscriberPreference, p model.Posting) bool {
	if len(prefs.Banks) > 0 && !slices.Contains(prefs.Banks, p.BankKey) {
		return false
	}
	if len(prefs.Categories) > 0 && !slices.Contains(prefs.Categories, p.Category) {
		return false
	}
	switch prefs.JobType {
	case model.JobTypeInternship:
		return filter.IsInternship(p.Title)
	case model.JobTypeFullTime:
		return !filter.IsInternship(p.Title)
	}
	return true
}

// Match returns one queue item per (subscriber, posting) pair that matches.
// Subscribers with every channel off are skipped. Items come out grouped by
// subscriber, postings in input order.
func Match(subscribers []model.Subscriber, fresh []model.Posting) []model.QueuedNotification {
	var items []model.QueuedNotification
	for _, sub := range subscribers {
		prefs := sub.Preferences.Normalize()
		if !prefs.Active() {
			continue
		}
		for _, p := range fresh {
			if Matches(prefs, p) {
				items = append(items, model.QueuedNotification{SubscriberID: sub.ID, Posting: p})
			}
		}
	}
	return items
}

// Plan binds a subscriber snapshot to a model.PlanFunc for Ledger.Commit.
func Plan(subscribers []model.Subscriber) model.PlanFunc {
	return func(fresh []model.Posting) []model.QueuedNotification {
		return Match(subscribers, fresh)
	}
}
