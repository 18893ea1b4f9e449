package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/amishk599/bankradar/internal/model"
)

// Source is a decorator that retries transient fetch failures with
// exponential backoff and jitter.
type Source struct {
	model.Source
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewSource wraps a Source with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewSource(inner model.Source, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Source {
	return &Source{
		Source:     inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Fetch attempts the wrapped fetch, retrying on transient errors.
func (s *Source) Fetch(ctx context.Context) ([]model.Posting, error) {
	postings, err := s.Source.Fetch(ctx)
	if err == nil {
		return postings, nil
	}
	if !IsRetryable(err) {
		return nil, err
	}

	lastErr := err
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		delay := s.backoffDelay(attempt, lastErr)

		s.logger.Warn("retrying after transient error",
			"source", s.Key(),
			"attempt", attempt,
			"max_retries", s.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		postings, err = s.Source.Fetch(ctx)
		if err == nil {
			return postings, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// A Retry-After hint on the error takes precedence.
func (s *Source) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := s.baseDelay << (attempt - 1)

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// IsRetryable returns true if the error represents a transient failure worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Upstream changed shape; retrying will not help.
	if errors.Is(err, model.ErrMalformedRecord) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}

	// Network, DNS, etc.
	return true
}
