package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/bankradar/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockSource calls a function on each invocation, tracking call count.
type mockSource struct {
	calls int
	fn    func(attempt int) ([]model.Posting, error)
}

func (m *mockSource) Key() string  { return "test" }
func (m *mockSource) Name() string { return "Test Bank" }

func (m *mockSource) Fetch(_ context.Context) ([]model.Posting, error) {
	m.calls++
	return m.fn(m.calls)
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	postings := []model.Posting{{Link: "https://example.com/1", Title: "Analyst"}}
	mock := &mockSource{fn: func(_ int) ([]model.Posting, error) {
		return postings, nil
	}}

	src := NewSource(mock, 2, 10*time.Millisecond, discardLogger())
	got, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Link != "https://example.com/1" {
		t.Fatalf("unexpected postings: %v", got)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_RetriesOn5xx_SucceedsOnSecondAttempt(t *testing.T) {
	mock := &mockSource{fn: func(attempt int) ([]model.Posting, error) {
		if attempt == 1 {
			return nil, &model.HTTPError{StatusCode: 503, Err: errors.New("service unavailable")}
		}
		return []model.Posting{{Link: "a"}}, nil
	}}

	src := NewSource(mock, 2, 10*time.Millisecond, discardLogger())
	got, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(got))
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryOn4xx(t *testing.T) {
	mock := &mockSource{fn: func(_ int) ([]model.Posting, error) {
		return nil, &model.HTTPError{StatusCode: 404, Err: errors.New("not found")}
	}}

	src := NewSource(mock, 2, 10*time.Millisecond, discardLogger())
	_, err := src.Fetch(context.Background())
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 404 {
		t.Fatalf("expected HTTPError with status 404, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call (no retry), got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryMalformed(t *testing.T) {
	mock := &mockSource{fn: func(_ int) ([]model.Posting, error) {
		return nil, fmt.Errorf("decode page: %w", model.ErrMalformedRecord)
	}}

	src := NewSource(mock, 2, 10*time.Millisecond, discardLogger())
	if _, err := src.Fetch(context.Background()); !errors.Is(err, model.ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	mock := &mockSource{fn: func(_ int) ([]model.Posting, error) {
		return nil, &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	src := NewSource(mock, 2, 10*time.Millisecond, discardLogger())
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected error after max retries, got nil")
	}
	// 1 initial + 2 retries
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.calls)
	}
}

func TestRetry_HonorsRetryAfter(t *testing.T) {
	mock := &mockSource{fn: func(attempt int) ([]model.Posting, error) {
		if attempt == 1 {
			return nil, &model.HTTPError{StatusCode: 429, RetryAfter: 100 * time.Millisecond, Err: errors.New("slow down")}
		}
		return nil, nil
	}}

	src := NewSource(mock, 1, time.Millisecond, discardLogger())
	start := time.Now()
	if _, err := src.Fetch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected Retry-After to be honored, waited %v", elapsed)
	}
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	mock := &mockSource{fn: func(_ int) ([]model.Posting, error) {
		return nil, &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewSource(mock, 2, time.Second, discardLogger())
	_, err := src.Fetch(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", mock.calls)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline wrapped", fmt.Errorf("fetch: %w", context.DeadlineExceeded), false},
		{"429", &model.HTTPError{StatusCode: 429}, true},
		{"502", &model.HTTPError{StatusCode: 502}, true},
		{"403", &model.HTTPError{StatusCode: 403}, false},
		{"network", errors.New("connection reset by peer"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
