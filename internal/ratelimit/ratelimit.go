package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/bankradar/internal/model"
)

// Pacer spaces consecutive page requests within one fetch. The first Wait
// returns immediately; each later one blocks until delay has passed.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer. A zero or negative delay disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next request may go out.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("page pacing: %w", err)
	}
	return nil
}

// KeyedLimiter enforces a minimum delay between calls sharing a key.
// Keys are independent of one another.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	minDelay time.Duration
}

// NewKeyedLimiter creates a limiter that enforces minDelay between
// consecutive calls with the same key.
func NewKeyedLimiter(minDelay time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		minDelay: minDelay,
	}
}

func (r *KeyedLimiter) limiter(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[key]
	if !ok {
		limit := rate.Inf
		if r.minDelay > 0 {
			limit = rate.Every(r.minDelay)
		}
		l = rate.NewLimiter(limit, 1)
		r.limiters[key] = l
	}
	return l
}

// Wait blocks until a call for key may proceed.
// Returns an error if the context is cancelled while waiting.
func (r *KeyedLimiter) Wait(ctx context.Context, key string) error {
	if err := r.limiter(key).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", key, err)
	}
	return nil
}

// RateLimitedSource is a decorator that waits on a shared KeyedLimiter
// before delegating to the wrapped Source.
type RateLimitedSource struct {
	model.Source
	limiter *KeyedLimiter
}

// NewRateLimitedSource wraps a Source; the source key is the limiter key.
func NewRateLimitedSource(inner model.Source, limiter *KeyedLimiter) *RateLimitedSource {
	return &RateLimitedSource{Source: inner, limiter: limiter}
}

// Fetch waits for the limiter, then delegates.
func (s *RateLimitedSource) Fetch(ctx context.Context) ([]model.Posting, error) {
	if err := s.limiter.Wait(ctx, s.Key()); err != nil {
		return nil, err
	}
	return s.Source.Fetch(ctx)
}
