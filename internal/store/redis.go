package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/amishk599/bankradar/internal/model"
)

// FirstSeenKey is the hash holding link -> first-seen JSON.
const FirstSeenKey = "job-first-seen"

// LeaseKey guards a pipeline run across processes.
const LeaseKey = "bankradar:run-lease"

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// RedisFreshness keeps first-seen records in a single Redis hash.
type RedisFreshness struct {
	rdb *redis.Client
	key string
}

// NewRedisFreshness returns a freshness store on the default hash key.
func NewRedisFreshness(rdb *redis.Client) *RedisFreshness {
	return &RedisFreshness{rdb: rdb, key: FirstSeenKey}
}

// DiffAndRecord writes every link with HSETNX and returns the postings whose
// field did not exist yet.
func (r *RedisFreshness) DiffAndRecord(ctx context.Context, postings []model.Posting, now time.Time) ([]model.Posting, error) {
	if len(postings) == 0 {
		return nil, nil
	}
	cmds := make([]*redis.BoolCmd, len(postings))
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, p := range postings {
			val, err := encodeFirstSeen(model.NewFirstSeenRecord(p, now))
			if err != nil {
				return err
			}
			cmds[i] = pipe.HSetNX(ctx, r.key, p.Link, val)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recording first-seen: %w", err)
	}

	var fresh []model.Posting
	for i, cmd := range cmds {
		if cmd.Val() {
			fresh = append(fresh, postings[i])
		}
	}
	return fresh, nil
}

// Forget deletes first-seen fields.
func (r *RedisFreshness) Forget(ctx context.Context, links []string) error {
	if len(links) == 0 {
		return nil
	}
	if err := r.rdb.HDel(ctx, r.key, links...).Err(); err != nil {
		return fmt.Errorf("forgetting %d links: %w", len(links), err)
	}
	return nil
}

// all decodes the whole hash. Malformed entries are returned separately.
func (r *RedisFreshness) all(ctx context.Context) ([]model.FirstSeenRecord, []string, error) {
	raw, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("reading first-seen hash: %w", err)
	}
	var (
		records   []model.FirstSeenRecord
		malformed []string
	)
	for link, val := range raw {
		rec, err := decodeFirstSeen(link, val)
		if err != nil {
			malformed = append(malformed, link)
			continue
		}
		records = append(records, rec)
	}
	return records, malformed, nil
}

// Prune deletes records older than now - retention along with entries that
// no longer decode.
func (r *RedisFreshness) Prune(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	records, stale, err := r.all(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := now.Add(-retention)
	for _, rec := range records {
		if rec.EffectiveAge().Before(cutoff) {
			stale = append(stale, rec.Link)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	n, err := r.rdb.HDel(ctx, r.key, stale...).Result()
	if err != nil {
		return 0, fmt.Errorf("pruning first-seen: %w", err)
	}
	return int(n), nil
}

// ListRecent returns records whose effective age falls within window,
// newest first.
func (r *RedisFreshness) ListRecent(ctx context.Context, now time.Time, window time.Duration) ([]model.FirstSeenRecord, error) {
	records, _, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := now.Add(-window)
	recent := records[:0]
	for _, rec := range records {
		if !rec.EffectiveAge().Before(cutoff) {
			recent = append(recent, rec)
		}
	}
	sortRecent(recent)
	return recent, nil
}

func sortRecent(records []model.FirstSeenRecord) {
	sort.Slice(records, func(i, j int) bool {
		ai, aj := records[i].EffectiveAge(), records[j].EffectiveAge()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return records[i].Link < records[j].Link
	})
}

// Backfill seeds records for recently posted links and moves existing
// detections backward when the posted date is earlier.
func (r *RedisFreshness) Backfill(ctx context.Context, postings []model.Posting, now time.Time, maxAge time.Duration) (model.BackfillStats, error) {
	var stats model.BackfillStats
	for _, p := range postings {
		switch classifyBackfill(p, now, maxAge) {
		case backfillNoDate:
			stats.SkippedNoDate++
			continue
		case backfillTooOld:
			stats.SkippedTooOld++
			continue
		}

		raw, err := r.rdb.HGet(ctx, r.key, p.Link).Result()
		switch {
		case errors.Is(err, redis.Nil):
			val, err := encodeFirstSeen(model.NewFirstSeenRecord(p, now))
			if err != nil {
				return stats, err
			}
			if err := r.rdb.HSetNX(ctx, r.key, p.Link, val).Err(); err != nil {
				return stats, fmt.Errorf("seeding %s: %w", p.Link, err)
			}
			stats.Seeded++
			continue
		case err != nil:
			return stats, fmt.Errorf("reading %s: %w", p.Link, err)
		}

		rec, err := decodeFirstSeen(p.Link, raw)
		if err != nil {
			// Unreadable entries are rewritten from the posting.
			rec = model.NewFirstSeenRecord(p, now)
		} else if !p.PostedDate.Before(rec.DetectedAt) {
			continue
		}
		rec.PostedDate = p.PostedDate
		rec.DetectedAt = *p.PostedDate
		val, err := encodeFirstSeen(rec)
		if err != nil {
			return stats, err
		}
		if err := r.rdb.HSet(ctx, r.key, p.Link, val).Err(); err != nil {
			return stats, fmt.Errorf("correcting %s: %w", p.Link, err)
		}
		stats.Corrected++
	}
	return stats, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLease is a best-effort cross-process lock for pipeline runs.
type RedisLease struct {
	rdb *redis.Client
	key string
}

// NewRedisLease returns a lease on LeaseKey.
func NewRedisLease(rdb *redis.Client) *RedisLease {
	return &RedisLease{rdb: rdb, key: LeaseKey}
}

// Acquire takes the lease for ttl. It returns model.ErrLeaseHeld when
// another holder owns it.
func (l *RedisLease) Acquire(ctx context.Context, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring lease: %w", err)
	}
	if !ok {
		return nil, model.ErrLeaseHeld
	}
	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("releasing lease: %w", err)
		}
		return nil
	}
	return release, nil
}
