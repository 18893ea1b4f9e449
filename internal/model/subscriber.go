package model

import (
	"context"
	"slices"
	"strings"
	"time"
)

// JobType is the role-type filter in a preference profile.
type JobType string

const (
	JobTypeAll        JobType = "all"
	JobTypeInternship JobType = "internship"
	JobTypeFullTime   JobType = "fulltime"
)

// ParseJobType maps free-form input to a JobType, defaulting to all.
func ParseJobType(s string) JobType {
	switch JobType(strings.ToLower(strings.TrimSpace(s))) {
	case JobTypeInternship:
		return JobTypeInternship
	case JobTypeFullTime:
		return JobTypeFullTime
	default:
		return JobTypeAll
	}
}

// SubscriberPreference is a user's notification filter configuration.
type SubscriberPreference struct {
	Enabled     bool     `json:"enabled"`
	SMSEnabled  bool     `json:"smsEnabled"`
	PhoneNumber string   `json:"phoneNumber"`
	Banks       []string `json:"banks"`
	Categories  []string `json:"categories"`
	JobType     JobType  `json:"jobType"`
}

// DefaultPreference is returned for users that never saved a profile.
func DefaultPreference() SubscriberPreference {
	return SubscriberPreference{
		Banks:      []string{},
		Categories: []string{},
		JobType:    JobTypeAll,
	}
}

// Normalize fills nil lists, trims entries and canonicalizes the job type.
func (p SubscriberPreference) Normalize() SubscriberPreference {
	p.Banks = cleanList(p.Banks)
	p.Categories = cleanList(p.Categories)
	p.JobType = ParseJobType(string(p.JobType))
	p.PhoneNumber = strings.TrimSpace(p.PhoneNumber)
	return p
}

// Active reports whether any delivery channel is switched on.
func (p SubscriberPreference) Active() bool {
	return p.Enabled || p.SMSEnabled
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Subscriber is the profile resolved from the auth collaborator.
type Subscriber struct {
	ID          string
	Email       string
	FirstName   string
	Subscribed  bool // paid tier
	Preferences SubscriberPreference
}

// QueuedNotification is a durable (subscriber, posting) pairing awaiting dispatch.
type QueuedNotification struct {
	ID           int64
	SubscriberID string
	Posting      Posting // snapshot at enqueue time
	QueuedAt     time.Time
}

// Digest is everything a channel needs to render one message.
type Digest struct {
	Subscriber Subscriber
	Postings   []Posting
}

// SubscriberDirectory resolves and stores subscriber profiles.
type SubscriberDirectory interface {
	Get(ctx context.Context, id string) (Subscriber, error)
	// ListActive returns subscribers with email or SMS notifications on.
	ListActive(ctx context.Context) ([]Subscriber, error)
	Upsert(ctx context.Context, sub Subscriber) error
	SavePreferences(ctx context.Context, id string, prefs SubscriberPreference) error
}

// DigestLog remembers which once-per-day messages went out.
type DigestLog interface {
	// MarkNothingFound records the send for day and reports whether this
	// call was the first for that subscriber and day.
	MarkNothingFound(ctx context.Context, subscriberID string, day time.Time) (bool, error)
}

// Channel delivers one digest over one transport.
type Channel interface {
	Name() string
	// Applies reports whether the subscriber opted in to this channel.
	Applies(sub Subscriber) bool
	Send(ctx context.Context, d Digest) error
}
