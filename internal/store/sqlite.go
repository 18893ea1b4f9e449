package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/bankradar/internal/model"
	"github.com/amishk599/bankradar/internal/store/migrations"
)

// SQLiteStore keeps first-seen records, the notification queue, subscriber
// profiles and the digest log in one SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and applies
// pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(db, migrations.SQLite); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// OpenSQLite opens the database without migrating it.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer at a time; transactions would otherwise hit SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	return db, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const sqliteInsertFirstSeen = `INSERT INTO first_seen
	(link, title, location, bank, bank_key, category, posted_date, detected_at, effective_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (link) DO NOTHING`

func sqlitePostedDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}

func (s *SQLiteStore) insertFirstSeen(ctx context.Context, tx *sql.Tx, r model.FirstSeenRecord) (bool, error) {
	res, err := tx.ExecContext(ctx, sqliteInsertFirstSeen,
		r.Link, r.Title, r.Location, r.Bank, r.BankKey, r.Category,
		sqlitePostedDate(r.PostedDate), toMillis(r.DetectedAt), toMillis(r.EffectiveAge()),
	)
	if err != nil {
		return false, fmt.Errorf("recording %s: %w", r.Link, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("recording %s: %w", r.Link, err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) recordTx(ctx context.Context, tx *sql.Tx, postings []model.Posting, now time.Time) ([]model.Posting, error) {
	var fresh []model.Posting
	for _, p := range postings {
		inserted, err := s.insertFirstSeen(ctx, tx, model.NewFirstSeenRecord(p, now))
		if err != nil {
			return nil, err
		}
		if inserted {
			fresh = append(fresh, p)
		}
	}
	return fresh, nil
}

// DiffAndRecord records links not seen before and returns those postings.
func (s *SQLiteStore) DiffAndRecord(ctx context.Context, postings []model.Posting, now time.Time) ([]model.Posting, error) {
	var fresh []model.Posting
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		fresh, err = s.recordTx(ctx, tx, postings, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

// Forget deletes first-seen records.
func (s *SQLiteStore) Forget(ctx context.Context, links []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, link := range links {
			if _, err := tx.ExecContext(ctx, "DELETE FROM first_seen WHERE link = ?", link); err != nil {
				return fmt.Errorf("forgetting %s: %w", link, err)
			}
		}
		return nil
	})
}

// Prune deletes records whose effective age is older than now - retention.
func (s *SQLiteStore) Prune(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM first_seen WHERE effective_at < ?", toMillis(now.Add(-retention)))
	if err != nil {
		return 0, fmt.Errorf("pruning first-seen older than %v: %w", retention, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning first-seen: %w", err)
	}
	return int(n), nil
}

// ListRecent returns records whose effective age falls within window,
// newest first.
func (s *SQLiteStore) ListRecent(ctx context.Context, now time.Time, window time.Duration) ([]model.FirstSeenRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT link, title, location, bank, bank_key, category, posted_date, detected_at
		FROM first_seen WHERE effective_at >= ? ORDER BY effective_at DESC, link`, toMillis(now.Add(-window)))
	if err != nil {
		return nil, fmt.Errorf("listing recent first-seen: %w", err)
	}
	defer rows.Close()

	var records []model.FirstSeenRecord
	for rows.Next() {
		var (
			r        model.FirstSeenRecord
			posted   sql.NullInt64
			detected int64
		)
		if err := rows.Scan(&r.Link, &r.Title, &r.Location, &r.Bank, &r.BankKey, &r.Category, &posted, &detected); err != nil {
			return nil, fmt.Errorf("scanning first-seen: %w", err)
		}
		if posted.Valid {
			t := fromMillis(posted.Int64)
			r.PostedDate = &t
		}
		r.DetectedAt = fromMillis(detected)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Backfill seeds records for recently posted links and moves existing
// detections backward when the posted date is earlier.
func (s *SQLiteStore) Backfill(ctx context.Context, postings []model.Posting, now time.Time, maxAge time.Duration) (model.BackfillStats, error) {
	var stats model.BackfillStats
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, p := range postings {
			switch classifyBackfill(p, now, maxAge) {
			case backfillNoDate:
				stats.SkippedNoDate++
				continue
			case backfillTooOld:
				stats.SkippedTooOld++
				continue
			}

			var detected int64
			err := tx.QueryRowContext(ctx, "SELECT detected_at FROM first_seen WHERE link = ?", p.Link).Scan(&detected)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if _, err := s.insertFirstSeen(ctx, tx, model.NewFirstSeenRecord(p, now)); err != nil {
					return err
				}
				stats.Seeded++
			case err != nil:
				return fmt.Errorf("reading %s: %w", p.Link, err)
			case p.PostedDate.Before(fromMillis(detected)):
				posted := toMillis(*p.PostedDate)
				_, err := tx.ExecContext(ctx, `UPDATE first_seen
					SET posted_date = ?, detected_at = ?, effective_at = ? WHERE link = ?`,
					posted, posted, posted, p.Link)
				if err != nil {
					return fmt.Errorf("correcting %s: %w", p.Link, err)
				}
				stats.Corrected++
			}
		}
		return nil
	})
	if err != nil {
		return model.BackfillStats{}, err
	}
	return stats, nil
}

const sqliteInsertQueued = `INSERT INTO notification_queue (subscriber_id, link, job, queued_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (subscriber_id, link) DO NOTHING`

func (s *SQLiteStore) enqueueTx(ctx context.Context, tx *sql.Tx, items []model.QueuedNotification, now time.Time) (int, error) {
	queued := 0
	for _, item := range items {
		job, err := encodePosting(item.Posting)
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx, sqliteInsertQueued, item.SubscriberID, item.Posting.Link, job, toMillis(queuedAt(item, now)))
		if err != nil {
			return 0, fmt.Errorf("enqueueing %s for %s: %w", item.Posting.Link, item.SubscriberID, err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			queued++
		}
	}
	return queued, nil
}

// Enqueue persists queue items; an existing (subscriber, link) pair is kept.
func (s *SQLiteStore) Enqueue(ctx context.Context, items []model.QueuedNotification) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := s.enqueueTx(ctx, tx, items, time.Now())
		return err
	})
}

// Pending returns all queued items, oldest first.
func (s *SQLiteStore) Pending(ctx context.Context) ([]model.QueuedNotification, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, subscriber_id, job, queued_at FROM notification_queue ORDER BY queued_at, id")
	if err != nil {
		return nil, fmt.Errorf("reading notification queue: %w", err)
	}
	defer rows.Close()

	var items []model.QueuedNotification
	for rows.Next() {
		var (
			id       int64
			sub      string
			job      string
			queuedAt int64
		)
		if err := rows.Scan(&id, &sub, &job, &queuedAt); err != nil {
			return nil, fmt.Errorf("scanning queue row: %w", err)
		}
		items = append(items, decodeQueued(id, sub, []byte(job), fromMillis(queuedAt)))
	}
	return items, rows.Err()
}

// Delete removes the given queue items in one transaction.
func (s *SQLiteStore) Delete(ctx context.Context, ids []int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, "DELETE FROM notification_queue WHERE id = ?", id); err != nil {
				return fmt.Errorf("deleting queue item %d: %w", id, err)
			}
		}
		return nil
	})
}

// Commit records fresh postings and enqueues their notifications in one
// transaction.
func (s *SQLiteStore) Commit(ctx context.Context, postings []model.Posting, now time.Time, plan model.PlanFunc) (model.CommitResult, error) {
	var result model.CommitResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		fresh, err := s.recordTx(ctx, tx, postings, now)
		if err != nil {
			return err
		}
		queued, err := s.enqueueTx(ctx, tx, plan(fresh), now)
		if err != nil {
			return err
		}
		result = model.CommitResult{Fresh: fresh, Queued: queued}
		return nil
	})
	if err != nil {
		return model.CommitResult{}, err
	}
	return result, nil
}

// Get loads one subscriber profile.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Subscriber, error) {
	var (
		sub        model.Subscriber
		subscribed int
		prefs      sql.NullString
	)
	err := s.db.QueryRowContext(ctx, "SELECT id, email, first_name, subscribed, preferences FROM subscribers WHERE id = ?", id).
		Scan(&sub.ID, &sub.Email, &sub.FirstName, &subscribed, &prefs)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Subscriber{}, fmt.Errorf("%s: %w", id, model.ErrSubscriberNotFound)
	}
	if err != nil {
		return model.Subscriber{}, fmt.Errorf("loading subscriber %s: %w", id, err)
	}
	sub.Subscribed = subscribed != 0
	sub.Preferences = decodePreferences([]byte(prefs.String))
	return sub, nil
}

// ListActive returns subscribers with at least one channel enabled.
func (s *SQLiteStore) ListActive(ctx context.Context) ([]model.Subscriber, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, email, first_name, subscribed, preferences FROM subscribers WHERE preferences IS NOT NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing subscribers: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscriber
	for rows.Next() {
		var (
			sub        model.Subscriber
			subscribed int
			prefs      sql.NullString
		)
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.FirstName, &subscribed, &prefs); err != nil {
			return nil, fmt.Errorf("scanning subscriber: %w", err)
		}
		sub.Subscribed = subscribed != 0
		sub.Preferences = decodePreferences([]byte(prefs.String))
		if sub.Preferences.Active() {
			subs = append(subs, sub)
		}
	}
	return subs, rows.Err()
}

// Upsert writes the full profile, preferences included.
func (s *SQLiteStore) Upsert(ctx context.Context, sub model.Subscriber) error {
	prefs, err := encodePreferences(sub.Preferences)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO subscribers (id, email, first_name, subscribed, preferences)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			first_name = excluded.first_name,
			subscribed = excluded.subscribed,
			preferences = excluded.preferences`,
		sub.ID, sub.Email, sub.FirstName, boolToInt(sub.Subscribed), string(prefs))
	if err != nil {
		return fmt.Errorf("upserting subscriber %s: %w", sub.ID, err)
	}
	return nil
}

// SavePreferences replaces a subscriber's preferences wholesale, creating a
// bare profile when none exists yet.
func (s *SQLiteStore) SavePreferences(ctx context.Context, id string, prefs model.SubscriberPreference) error {
	raw, err := encodePreferences(prefs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO subscribers (id, preferences) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET preferences = excluded.preferences`, id, string(raw))
	if err != nil {
		return fmt.Errorf("saving preferences for %s: %w", id, err)
	}
	return nil
}

// MarkNothingFound records the day's empty-digest send and reports whether
// it was the first for that subscriber and UTC day.
func (s *SQLiteStore) MarkNothingFound(ctx context.Context, subscriberID string, day time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO digest_log (subscriber_id, kind, day, sent_at)
		VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		subscriberID, nothingFoundKind, day.UTC().Format(dateLayout), toMillis(time.Now()))
	if err != nil {
		return false, fmt.Errorf("marking nothing-found for %s: %w", subscriberID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking nothing-found for %s: %w", subscriberID, err)
	}
	return n == 1, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
