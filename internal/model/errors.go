package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSubscriberNotFound is returned by a SubscriberDirectory when the
	// profile no longer exists. The dispatcher treats it as permanent.
	ErrSubscriberNotFound = errors.New("subscriber not found")

	// ErrMalformedRecord marks a stored first-seen or queue entry, or an
	// upstream response, that could not be decoded. Stored entries are
	// skipped instead of failing the batch; responses are never retried.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnauthorized is returned when a trigger call carries a missing or
	// wrong shared secret.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnknownSource is returned when a source key is not registered.
	ErrUnknownSource = errors.New("unknown source")

	// ErrLeaseHeld is returned when another run holds the run lease.
	ErrLeaseHeld = errors.New("run lease held by another process")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// SourceError records why a single source contributed zero postings to a run.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// ChannelError is a delivery failure on one channel for one subscriber.
type ChannelError struct {
	Channel      string
	SubscriberID string
	Err          error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s delivery to %s failed: %v", e.Channel, e.SubscriberID, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}
