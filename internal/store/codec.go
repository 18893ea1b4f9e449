package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/amishk599/bankradar/internal/model"
)

const dateLayout = "2006-01-02"

// nothingFoundKind is the digest_log kind for the end-of-day empty email.
const nothingFoundKind = "nothing_found"

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// firstSeenValue is the JSON stored per link in the Redis first-seen hash.
type firstSeenValue struct {
	Title      string `json:"title"`
	Location   string `json:"location"`
	Bank       string `json:"bank"`
	BankKey    string `json:"bankKey"`
	Category   string `json:"category"`
	PostedDate string `json:"postedDate,omitempty"` // YYYY-MM-DD
	DetectedAt int64  `json:"detectedAt"`           // unix ms
}

func encodeFirstSeen(r model.FirstSeenRecord) (string, error) {
	v := firstSeenValue{
		Title:      r.Title,
		Location:   r.Location,
		Bank:       r.Bank,
		BankKey:    r.BankKey,
		Category:   r.Category,
		DetectedAt: toMillis(r.DetectedAt),
	}
	if r.PostedDate != nil {
		v.PostedDate = r.PostedDate.UTC().Format(dateLayout)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode first-seen %s: %w", r.Link, err)
	}
	return string(raw), nil
}

func decodeFirstSeen(link, raw string) (model.FirstSeenRecord, error) {
	var v firstSeenValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return model.FirstSeenRecord{}, fmt.Errorf("first-seen %s: %w: %v", link, model.ErrMalformedRecord, err)
	}
	if v.DetectedAt <= 0 {
		return model.FirstSeenRecord{}, fmt.Errorf("first-seen %s: %w: missing detectedAt", link, model.ErrMalformedRecord)
	}
	r := model.FirstSeenRecord{
		Link:       link,
		Title:      v.Title,
		Location:   v.Location,
		Bank:       v.Bank,
		BankKey:    v.BankKey,
		Category:   v.Category,
		DetectedAt: fromMillis(v.DetectedAt),
	}
	if v.PostedDate != "" {
		t, err := time.Parse(dateLayout, v.PostedDate)
		if err != nil {
			return model.FirstSeenRecord{}, fmt.Errorf("first-seen %s: %w: %v", link, model.ErrMalformedRecord, err)
		}
		r.PostedDate = &t
	}
	return r, nil
}

func encodePosting(p model.Posting) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode posting %s: %w", p.Link, err)
	}
	return string(raw), nil
}

// decodeQueued decodes a queue row's job snapshot. A malformed snapshot
// yields an item with an empty posting so the dispatcher can drop it.
func decodeQueued(id int64, subscriberID string, raw []byte, queuedAt time.Time) model.QueuedNotification {
	item := model.QueuedNotification{ID: id, SubscriberID: subscriberID, QueuedAt: queuedAt}
	var p model.Posting
	if err := json.Unmarshal(raw, &p); err == nil {
		item.Posting = p
	}
	return item
}

func encodePreferences(p model.SubscriberPreference) ([]byte, error) {
	raw, err := json.Marshal(p.Normalize())
	if err != nil {
		return nil, fmt.Errorf("encode preferences: %w", err)
	}
	return raw, nil
}

// decodePreferences returns defaults for a missing or unreadable profile.
func decodePreferences(raw []byte) model.SubscriberPreference {
	if len(raw) == 0 {
		return model.DefaultPreference()
	}
	prefs := model.DefaultPreference()
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return model.DefaultPreference()
	}
	return prefs.Normalize()
}

// backfillDecision classifies a posting for the backfill path.
type backfillDecision int

const (
	backfillApply backfillDecision = iota
	backfillNoDate
	backfillTooOld
)

func classifyBackfill(p model.Posting, now time.Time, maxAge time.Duration) backfillDecision {
	if p.Link == "" || p.PostedDate == nil {
		return backfillNoDate
	}
	if p.PostedDate.Before(now.Add(-maxAge)) {
		return backfillTooOld
	}
	return backfillApply
}

// queuedAt defaults an item's enqueue time to now.
func queuedAt(item model.QueuedNotification, now time.Time) time.Time {
	if item.QueuedAt.IsZero() {
		return now
	}
	return item.QueuedAt
}
