package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/amishk599/bankradar/internal/model"
	"github.com/amishk599/bankradar/internal/store/migrations"
)

// PostgresStore is the Postgres-backed equivalent of SQLiteStore.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresPool creates and verifies a pgxpool connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

// NewPostgresStore connects to databaseURL and applies pending migrations.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := NewPostgresPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	if err := migrations.Up(db, migrations.Postgres); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgInsertFirstSeen = `INSERT INTO first_seen
	(link, title, location, bank, bank_key, category, posted_date, detected_at, effective_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (link) DO NOTHING`

func pgInsertRecord(ctx context.Context, tx pgx.Tx, r model.FirstSeenRecord) (bool, error) {
	tag, err := tx.Exec(ctx, pgInsertFirstSeen,
		r.Link, r.Title, r.Location, r.Bank, r.BankKey, r.Category,
		r.PostedDate, r.DetectedAt, r.EffectiveAge(),
	)
	if err != nil {
		return false, fmt.Errorf("recording %s: %w", r.Link, err)
	}
	return tag.RowsAffected() == 1, nil
}

func pgRecord(ctx context.Context, tx pgx.Tx, postings []model.Posting, now time.Time) ([]model.Posting, error) {
	var fresh []model.Posting
	for _, p := range postings {
		inserted, err := pgInsertRecord(ctx, tx, model.NewFirstSeenRecord(p, now))
		if err != nil {
			return nil, err
		}
		if inserted {
			fresh = append(fresh, p)
		}
	}
	return fresh, nil
}

const pgInsertQueued = `INSERT INTO notification_queue (subscriber_id, link, job, queued_at)
	VALUES ($1, $2, $3::jsonb, $4)
	ON CONFLICT (subscriber_id, link) DO NOTHING`

func pgEnqueue(ctx context.Context, tx pgx.Tx, items []model.QueuedNotification, now time.Time) (int, error) {
	queued := 0
	for _, item := range items {
		job, err := encodePosting(item.Posting)
		if err != nil {
			return 0, err
		}
		tag, err := tx.Exec(ctx, pgInsertQueued, item.SubscriberID, item.Posting.Link, job, queuedAt(item, now))
		if err != nil {
			return 0, fmt.Errorf("enqueueing %s for %s: %w", item.Posting.Link, item.SubscriberID, err)
		}
		if tag.RowsAffected() == 1 {
			queued++
		}
	}
	return queued, nil
}

// DiffAndRecord records links not seen before and returns those postings.
func (s *PostgresStore) DiffAndRecord(ctx context.Context, postings []model.Posting, now time.Time) ([]model.Posting, error) {
	var fresh []model.Posting
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		fresh, err = pgRecord(ctx, tx, postings, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

// Forget deletes first-seen records.
func (s *PostgresStore) Forget(ctx context.Context, links []string) error {
	if len(links) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, "DELETE FROM first_seen WHERE link = ANY($1)", links); err != nil {
		return fmt.Errorf("forgetting %d links: %w", len(links), err)
	}
	return nil
}

// Prune deletes records whose effective age is older than now - retention.
func (s *PostgresStore) Prune(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM first_seen WHERE effective_at < $1", now.Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("pruning first-seen older than %v: %w", retention, err)
	}
	return int(tag.RowsAffected()), nil
}

// ListRecent returns records whose effective age falls within window,
// newest first.
func (s *PostgresStore) ListRecent(ctx context.Context, now time.Time, window time.Duration) ([]model.FirstSeenRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT link, title, location, bank, bank_key, category, posted_date, detected_at
		FROM first_seen WHERE effective_at >= $1 ORDER BY effective_at DESC, link`, now.Add(-window))
	if err != nil {
		return nil, fmt.Errorf("listing recent first-seen: %w", err)
	}
	defer rows.Close()

	var records []model.FirstSeenRecord
	for rows.Next() {
		var r model.FirstSeenRecord
		if err := rows.Scan(&r.Link, &r.Title, &r.Location, &r.Bank, &r.BankKey, &r.Category, &r.PostedDate, &r.DetectedAt); err != nil {
			return nil, fmt.Errorf("scanning first-seen: %w", err)
		}
		r.DetectedAt = r.DetectedAt.UTC()
		if r.PostedDate != nil {
			t := r.PostedDate.UTC()
			r.PostedDate = &t
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Backfill seeds records for recently posted links and moves existing
// detections backward when the posted date is earlier.
func (s *PostgresStore) Backfill(ctx context.Context, postings []model.Posting, now time.Time, maxAge time.Duration) (model.BackfillStats, error) {
	var stats model.BackfillStats
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, p := range postings {
			switch classifyBackfill(p, now, maxAge) {
			case backfillNoDate:
				stats.SkippedNoDate++
				continue
			case backfillTooOld:
				stats.SkippedTooOld++
				continue
			}

			var detected time.Time
			err := tx.QueryRow(ctx, "SELECT detected_at FROM first_seen WHERE link = $1", p.Link).Scan(&detected)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
				if _, err := pgInsertRecord(ctx, tx, model.NewFirstSeenRecord(p, now)); err != nil {
					return err
				}
				stats.Seeded++
			case err != nil:
				return fmt.Errorf("reading %s: %w", p.Link, err)
			case p.PostedDate.Before(detected):
				_, err := tx.Exec(ctx, `UPDATE first_seen
					SET posted_date = $1, detected_at = $1, effective_at = $1 WHERE link = $2`,
					*p.PostedDate, p.Link)
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

// Enqueue persists queue items; an existing (subscriber, link) pair is kept.
func (s *PostgresStore) Enqueue(ctx context.Context, items []model.QueuedNotification) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := pgEnqueue(ctx, tx, items, time.Now())
		return err
	})
}

// Pending returns all queued items, oldest first.
func (s *PostgresStore) Pending(ctx context.Context) ([]model.QueuedNotification, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, subscriber_id, job, queued_at FROM notification_queue ORDER BY queued_at, id")
	if err != nil {
		return nil, fmt.Errorf("reading notification queue: %w", err)
	}
	defer rows.Close()

	var items []model.QueuedNotification
	for rows.Next() {
		var (
			id       int64
			sub      string
			job      []byte
			queuedAt time.Time
		)
		if err := rows.Scan(&id, &sub, &job, &queuedAt); err != nil {
			return nil, fmt.Errorf("scanning queue row: %w", err)
		}
		items = append(items, decodeQueued(id, sub, job, queuedAt.UTC()))
	}
	return items, rows.Err()
}

// Delete removes the given queue items in one statement.
func (s *PostgresStore) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, "DELETE FROM notification_queue WHERE id = ANY($1)", ids); err != nil {
		return fmt.Errorf("deleting %d queue items: %w", len(ids), err)
	}
	return nil
}

// Commit records fresh postings and enqueues their notifications in one
// transaction.
func (s *PostgresStore) Commit(ctx context.Context, postings []model.Posting, now time.Time, plan model.PlanFunc) (model.CommitResult, error) {
	var result model.CommitResult
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		fresh, err := pgRecord(ctx, tx, postings, now)
		if err != nil {
			return err
		}
		queued, err := pgEnqueue(ctx, tx, plan(fresh), now)
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

func scanSubscriber(row pgx.Row) (model.Subscriber, error) {
	var (
		sub   model.Subscriber
		prefs []byte
	)
	if err := row.Scan(&sub.ID, &sub.Email, &sub.FirstName, &sub.Subscribed, &prefs); err != nil {
		return model.Subscriber{}, err
	}
	sub.Preferences = decodePreferences(prefs)
	return sub, nil
}

// Get loads one subscriber profile.
func (s *PostgresStore) Get(ctx context.Context, id string) (model.Subscriber, error) {
	sub, err := scanSubscriber(s.pool.QueryRow(ctx,
		"SELECT id, email, first_name, subscribed, preferences FROM subscribers WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Subscriber{}, fmt.Errorf("%s: %w", id, model.ErrSubscriberNotFound)
	}
	if err != nil {
		return model.Subscriber{}, fmt.Errorf("loading subscriber %s: %w", id, err)
	}
	return sub, nil
}

// ListActive returns subscribers with at least one channel enabled.
func (s *PostgresStore) ListActive(ctx context.Context) ([]model.Subscriber, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, email, first_name, subscribed, preferences FROM subscribers WHERE preferences IS NOT NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing subscribers: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning subscriber: %w", err)
		}
		if sub.Preferences.Active() {
			subs = append(subs, sub)
		}
	}
	return subs, rows.Err()
}

// Upsert writes the full profile, preferences included.
func (s *PostgresStore) Upsert(ctx context.Context, sub model.Subscriber) error {
	prefs, err := encodePreferences(sub.Preferences)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO subscribers (id, email, first_name, subscribed, preferences)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			subscribed = EXCLUDED.subscribed,
			preferences = EXCLUDED.preferences`,
		sub.ID, sub.Email, sub.FirstName, sub.Subscribed, string(prefs))
	if err != nil {
		return fmt.Errorf("upserting subscriber %s: %w", sub.ID, err)
	}
	return nil
}

// SavePreferences replaces a subscriber's preferences wholesale.
func (s *PostgresStore) SavePreferences(ctx context.Context, id string, prefs model.SubscriberPreference) error {
	raw, err := encodePreferences(prefs)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO subscribers (id, preferences) VALUES ($1, $2::jsonb)
		ON CONFLICT (id) DO UPDATE SET preferences = EXCLUDED.preferences`, id, string(raw))
	if err != nil {
		return fmt.Errorf("saving preferences for %s: %w", id, err)
	}
	return nil
}

// MarkNothingFound records the day's empty-digest send and reports whether
// it was the first for that subscriber and UTC day.
func (s *PostgresStore) MarkNothingFound(ctx context.Context, subscriberID string, day time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `INSERT INTO digest_log (subscriber_id, kind, day, sent_at)
		VALUES ($1, $2, $3::date, $4) ON CONFLICT DO NOTHING`,
		subscriberID, nothingFoundKind, day.UTC().Format(dateLayout), time.Now())
	if err != nil {
		return false, fmt.Errorf("marking nothing-found for %s: %w", subscriberID, err)
	}
	return tag.RowsAffected() == 1, nil
}
