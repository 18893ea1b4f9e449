package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/amishk599/bankradar/internal/model"
)

var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func day(offset int) *time.Time {
	t := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	return &t
}

func testPosting(link string, posted *time.Time) model.Posting {
	return model.Posting{
		Link:       link,
		Title:      "Analyst " + link,
		Location:   "New York, NY",
		Bank:       "Goldman Sachs",
		BankKey:    "gs",
		Category:   "Investment Banking",
		PostedDate: posted,
	}
}

func links(postings []model.Posting) []string {
	out := make([]string, len(postings))
	for i, p := range postings {
		out[i] = p.Link
	}
	return out
}

func recordLinks(records []model.FirstSeenRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Link
	}
	return out
}

// testFreshnessStore exercises the FreshnessStore contract. newStore must
// return an empty store.
func testFreshnessStore(t *testing.T, newStore func(t *testing.T) model.FreshnessStore) {
	ctx := context.Background()

	t.Run("first observation is fresh once", func(t *testing.T) {
		s := newStore(t)
		batch := []model.Posting{testPosting("a", nil), testPosting("b", nil)}

		fresh, err := s.DiffAndRecord(ctx, batch, testNow)
		if err != nil {
			t.Fatalf("DiffAndRecord: %v", err)
		}
		if diff := cmp.Diff([]string{"a", "b"}, links(fresh)); diff != "" {
			t.Errorf("first pass fresh mismatch (-want +got):\n%s", diff)
		}

		fresh, err = s.DiffAndRecord(ctx, batch, testNow.Add(time.Hour))
		if err != nil {
			t.Fatalf("DiffAndRecord: %v", err)
		}
		if len(fresh) != 0 {
			t.Errorf("second pass returned %v, want nothing", links(fresh))
		}
	})

	t.Run("detection is not moved forward", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.DiffAndRecord(ctx, []model.Posting{testPosting("a", nil)}, testNow); err != nil {
			t.Fatal(err)
		}
		if _, err := s.DiffAndRecord(ctx, []model.Posting{testPosting("a", nil)}, testNow.Add(72*time.Hour)); err != nil {
			t.Fatal(err)
		}
		recent, err := s.ListRecent(ctx, testNow.Add(72*time.Hour), 7*24*time.Hour)
		if err != nil {
			t.Fatalf("ListRecent: %v", err)
		}
		if len(recent) != 1 || !recent[0].DetectedAt.Equal(testNow) {
			t.Fatalf("recent = %+v, want one record detected at %v", recent, testNow)
		}
	})

	t.Run("backdated posting leaves the recent window", func(t *testing.T) {
		s := newStore(t)
		batch := []model.Posting{testPosting("old", day(-5)), testPosting("new", nil)}
		if _, err := s.DiffAndRecord(ctx, batch, testNow); err != nil {
			t.Fatal(err)
		}

		recent, err := s.ListRecent(ctx, testNow, 48*time.Hour)
		if err != nil {
			t.Fatalf("ListRecent: %v", err)
		}
		if diff := cmp.Diff([]string{"new"}, recordLinks(recent)); diff != "" {
			t.Errorf("48h window mismatch (-want +got):\n%s", diff)
		}

		week, err := s.ListRecent(ctx, testNow, 7*24*time.Hour)
		if err != nil {
			t.Fatalf("ListRecent: %v", err)
		}
		if diff := cmp.Diff([]string{"new", "old"}, recordLinks(week)); diff != "" {
			t.Errorf("week window mismatch (-want +got):\n%s", diff)
		}
		for _, r := range week {
			if r.Link == "old" && !r.DetectedAt.Equal(*day(-5)) {
				t.Errorf("old DetectedAt = %v, want %v", r.DetectedAt, *day(-5))
			}
		}
	})

	t.Run("undated record ages out of each window", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.DiffAndRecord(ctx, []model.Posting{testPosting("x", nil)}, testNow); err != nil {
			t.Fatal(err)
		}

		for _, tt := range []struct {
			after        time.Duration
			last48, week int
		}{
			{47 * time.Hour, 1, 1},
			{49 * time.Hour, 0, 1},
			{167 * time.Hour, 0, 1},
			{169 * time.Hour, 0, 0},
		} {
			at := testNow.Add(tt.after)
			last48, err := s.ListRecent(ctx, at, 48*time.Hour)
			if err != nil {
				t.Fatalf("ListRecent: %v", err)
			}
			week, err := s.ListRecent(ctx, at, 7*24*time.Hour)
			if err != nil {
				t.Fatalf("ListRecent: %v", err)
			}
			if len(last48) != tt.last48 || len(week) != tt.week {
				t.Errorf("at T0+%v: last48h=%d thisWeek=%d, want %d/%d", tt.after, len(last48), len(week), tt.last48, tt.week)
			}
		}
	})

	t.Run("future posted date is ignored", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.DiffAndRecord(ctx, []model.Posting{testPosting("f", day(3))}, testNow); err != nil {
			t.Fatal(err)
		}
		recent, err := s.ListRecent(ctx, testNow, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if len(recent) != 1 || !recent[0].EffectiveAge().Equal(testNow) {
			t.Fatalf("recent = %+v, want effective age %v", recent, testNow)
		}
	})

	t.Run("prune removes only expired records", func(t *testing.T) {
		s := newStore(t)
		batch := []model.Posting{testPosting("expired", day(-31)), testPosting("kept", day(-29))}
		if _, err := s.DiffAndRecord(ctx, batch, testNow); err != nil {
			t.Fatal(err)
		}

		removed, err := s.Prune(ctx, testNow, 30*24*time.Hour)
		if err != nil {
			t.Fatalf("Prune: %v", err)
		}
		if removed != 1 {
			t.Errorf("Prune removed %d, want 1", removed)
		}

		// A pruned link that reappears is fresh again.
		fresh, err := s.DiffAndRecord(ctx, batch, testNow)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"expired"}, links(fresh)); diff != "" {
			t.Errorf("after prune fresh mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("forget makes a link fresh again", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.DiffAndRecord(ctx, []model.Posting{testPosting("a", nil)}, testNow); err != nil {
			t.Fatal(err)
		}
		if err := s.Forget(ctx, []string{"a"}); err != nil {
			t.Fatalf("Forget: %v", err)
		}
		fresh, err := s.DiffAndRecord(ctx, []model.Posting{testPosting("a", nil)}, testNow)
		if err != nil {
			t.Fatal(err)
		}
		if len(fresh) != 1 {
			t.Errorf("fresh = %v, want [a]", links(fresh))
		}
	})

	t.Run("backfill seeds and corrects backward only", func(t *testing.T) {
		s := newStore(t)
		// "late" was first seen now but was really posted two days ago.
		if _, err := s.DiffAndRecord(ctx, []model.Posting{testPosting("late", nil), testPosting("early", day(-3))}, testNow); err != nil {
			t.Fatal(err)
		}

		batch := []model.Posting{
			testPosting("late", day(-2)),
			testPosting("early", day(-1)), // later than recorded, untouched
			testPosting("seed", day(-4)),
			testPosting("undated", nil),
			testPosting("ancient", day(-20)),
		}
		stats, err := s.Backfill(ctx, batch, testNow, 7*24*time.Hour)
		if err != nil {
			t.Fatalf("Backfill: %v", err)
		}
		want := model.BackfillStats{Seeded: 1, Corrected: 1, SkippedNoDate: 1, SkippedTooOld: 1}
		if diff := cmp.Diff(want, stats); diff != "" {
			t.Errorf("stats mismatch (-want +got):\n%s", diff)
		}

		recent, err := s.ListRecent(ctx, testNow, 7*24*time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		got := map[string]time.Time{}
		for _, r := range recent {
			got[r.Link] = r.DetectedAt
		}
		wantDetected := map[string]time.Time{
			"late":  *day(-2),
			"early": *day(-3),
			"seed":  *day(-4),
		}
		if diff := cmp.Diff(wantDetected, got); diff != "" {
			t.Errorf("detections mismatch (-want +got):\n%s", diff)
		}
	})
}

// testLedger checks that Commit records and enqueues together and that a
// second commit of the same batch queues nothing.
func testLedger(t *testing.T, ledger model.Ledger, queue model.NotificationQueue) {
	ctx := context.Background()
	plan := func(fresh []model.Posting) []model.QueuedNotification {
		var items []model.QueuedNotification
		for _, p := range fresh {
			items = append(items, model.QueuedNotification{SubscriberID: "u1", Posting: p})
		}
		return items
	}
	batch := []model.Posting{testPosting("a", nil), testPosting("b", day(-1))}

	res, err := ledger.Commit(ctx, batch, testNow, plan)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(res.Fresh) != 2 || res.Queued != 2 {
		t.Fatalf("first commit = %d fresh / %d queued, want 2 / 2", len(res.Fresh), res.Queued)
	}

	res, err = ledger.Commit(ctx, batch, testNow.Add(time.Hour), plan)
	if err != nil {
		t.Fatalf("second Commit: %v", err)
	}
	if len(res.Fresh) != 0 || res.Queued != 0 {
		t.Fatalf("second commit = %d fresh / %d queued, want 0 / 0", len(res.Fresh), res.Queued)
	}

	pending, err := queue.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].Posting.Link != "a" || pending[0].SubscriberID != "u1" {
		t.Errorf("pending[0] = %+v, want link a for u1", pending[0])
	}
	if pending[1].Posting.Title != "Analyst b" || pending[1].Posting.BankKey != "gs" {
		t.Errorf("pending[1] snapshot = %+v", pending[1].Posting)
	}

	if err := queue.Delete(ctx, []int64{pending[0].ID, pending[1].ID}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	pending, err = queue.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after delete = %d, want 0", len(pending))
	}
}
