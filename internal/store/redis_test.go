package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/bankradar/internal/model"
)

func newTestRedis(t *testing.T) *RedisFreshness {
	t.Helper()
	url := os.Getenv("BANKRADAR_TEST_REDIS_URL")
	if url == "" {
		t.Skip("BANKRADAR_TEST_REDIS_URL not set")
	}
	rdb, err := NewRedisClient(context.Background(), url)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	r := NewRedisFreshness(rdb)
	r.key = "test:" + uuid.NewString()
	t.Cleanup(func() {
		rdb.Del(context.Background(), r.key)
		rdb.Close()
	})
	return r
}

func TestRedisFreshness(t *testing.T) {
	testFreshnessStore(t, func(t *testing.T) model.FreshnessStore { return newTestRedis(t) })
}

func TestRedisPruneDropsMalformed(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()
	if err := r.rdb.HSet(ctx, r.key, "broken", "{").Err(); err != nil {
		t.Fatal(err)
	}
	removed, err := r.Prune(ctx, testNow, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune removed %d, want 1", removed)
	}
}

func TestSplitLedgerRedisFreshnessSQLiteQueue(t *testing.T) {
	r := newTestRedis(t)
	s := newTestStore(t)
	testLedger(t, NewSplitLedger(r, s), s)
}

func TestRedisLease(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()
	lease := &RedisLease{rdb: r.rdb, key: r.key + ":lease"}

	release, err := lease.Acquire(ctx, time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := lease.Acquire(ctx, time.Minute); !errors.Is(err, model.ErrLeaseHeld) {
		t.Fatalf("second Acquire error = %v, want ErrLeaseHeld", err)
	}
	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	release, err = lease.Acquire(ctx, time.Minute)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	release(ctx)
}
