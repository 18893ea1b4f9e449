package model

import (
	"context"
	"time"
)

// RoleType separates internships from standard hires.
type RoleType string

const (
	RoleInternship RoleType = "internship"
	RoleFullTime   RoleType = "fulltime"
)

// Unified representation of a job listing from any bank career site.
type Posting struct {
	Link       string     `json:"link"`               // dedup key, stable across runs
	Title      string     `json:"title"`              // job title
	Location   string     `json:"location"`           // free-form location string
	Bank       string     `json:"bank"`               // display name
	BankKey    string     `json:"bankKey"`            // short source id, e.g. "gs"
	Category   string     `json:"category"`           // inferred from title
	PostedDate *time.Time `json:"postedDate"`         // calendar date claimed by the source, nil if unknown
	RoleType   RoleType   `json:"roleType,omitempty"` // derived from title
}

// FirstSeenRecord is the durable fact that a posting link was observed.
type FirstSeenRecord struct {
	Link       string     `json:"link"`
	Title      string     `json:"title"`
	Location   string     `json:"location"`
	Bank       string     `json:"bank"`
	BankKey    string     `json:"bankKey"`
	Category   string     `json:"category"`
	PostedDate *time.Time `json:"postedDate"`
	DetectedAt time.Time  `json:"detectedAt"`
}

// EffectiveAge returns the earlier of DetectedAt and PostedDate.
func (r FirstSeenRecord) EffectiveAge() time.Time {
	return EffectiveAge(r.DetectedAt, r.PostedDate)
}

// Posting projects the record back to a Posting.
func (r FirstSeenRecord) Posting() Posting {
	return Posting{
		Link:       r.Link,
		Title:      r.Title,
		Location:   r.Location,
		Bank:       r.Bank,
		BankKey:    r.BankKey,
		Category:   r.Category,
		PostedDate: r.PostedDate,
	}
}

// EffectiveAge is min(detectedAt, postedDate). A nil postedDate leaves
// detectedAt as the only signal.
func EffectiveAge(detectedAt time.Time, postedDate *time.Time) time.Time {
	if postedDate != nil && postedDate.Before(detectedAt) {
		return *postedDate
	}
	return detectedAt
}

// DetectedAt computes the detection instant for a link first observed at now.
// A posted date in the past backdates detection; one in the future is ignored.
func DetectedAt(now time.Time, postedDate *time.Time) time.Time {
	if postedDate != nil && postedDate.Before(now) {
		return *postedDate
	}
	return now
}

// NewFirstSeenRecord builds the record written on first observation.
func NewFirstSeenRecord(p Posting, now time.Time) FirstSeenRecord {
	return FirstSeenRecord{
		Link:       p.Link,
		Title:      p.Title,
		Location:   p.Location,
		Bank:       p.Bank,
		BankKey:    p.BankKey,
		Category:   p.Category,
		PostedDate: p.PostedDate,
		DetectedAt: DetectedAt(now, p.PostedDate),
	}
}

// BackfillStats summarises a backfill/correction pass.
type BackfillStats struct {
	Seeded        int
	Corrected     int
	SkippedNoDate int
	SkippedTooOld int
}

// Source fetches and normalizes postings from one upstream career site.
type Source interface {
	Key() string
	Name() string
	Fetch(ctx context.Context) ([]Posting, error)
}

// FreshnessStore is the per-link ledger of first observations.
type FreshnessStore interface {
	// DiffAndRecord records links not seen before and returns them.
	// Re-observing a recorded link is a no-op.
	DiffAndRecord(ctx context.Context, postings []Posting, now time.Time) ([]Posting, error)
	// Forget removes records; used to undo a record whose notifications
	// could not be enqueued so the next run re-detects them.
	Forget(ctx context.Context, links []string) error
	Prune(ctx context.Context, now time.Time, retention time.Duration) (int, error)
	ListRecent(ctx context.Context, now time.Time, window time.Duration) ([]FirstSeenRecord, error)
	Backfill(ctx context.Context, postings []Posting, now time.Time, maxAge time.Duration) (BackfillStats, error)
}

// NotificationQueue holds durable, not-yet-delivered notifications.
type NotificationQueue interface {
	Enqueue(ctx context.Context, items []QueuedNotification) error
	// Pending returns all items ordered by enqueue time.
	Pending(ctx context.Context) ([]QueuedNotification, error)
	// Delete removes the given items in one atomic step.
	Delete(ctx context.Context, ids []int64) error
}

// Ledger commits fresh postings and their queued notifications as one unit,
// so a posting is never marked seen without its notifications being queued.
type Ledger interface {
	Commit(ctx context.Context, postings []Posting, now time.Time, plan PlanFunc) (CommitResult, error)
}

// PlanFunc turns freshly recorded postings into queue items.
type PlanFunc func(fresh []Posting) []QueuedNotification

// CommitResult reports what a Ledger commit wrote.
type CommitResult struct {
	Fresh  []Posting
	Queued int
}

// Locker provides optional cross-process mutual exclusion for a run.
type Locker interface {
	Acquire(ctx context.Context, ttl time.Duration) (release func(context.Context) error, err error)
}
