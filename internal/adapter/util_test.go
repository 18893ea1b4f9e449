package adapter

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParsePostedOn(t *testing.T) {
	tests := []struct {
		in   string
		want *time.Time
	}{
		{"Posted Today", datePtr(2026, 3, 10)},
		{"Posted Yesterday", datePtr(2026, 3, 9)},
		{"Posted 3 Days Ago", datePtr(2026, 3, 7)},
		{"posted 1 day ago", datePtr(2026, 3, 9)},
		{"Posted 30+ Days Ago", datePtr(2026, 2, 8)},
		{"", nil},
		{"Recently", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, parsePostedOn(tt.in, testNow)); diff != "" {
				t.Errorf("parsePostedOn(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestParseDayMonth(t *testing.T) {
	tests := []struct {
		in   string
		want *time.Time
	}{
		{"23 Feb", datePtr(2026, 2, 23)},
		{"10 Mar", datePtr(2026, 3, 10)},
		{"4 December", datePtr(2025, 12, 4)}, // would be in the future
		{"31 Feb", nil},
		{"Feb 23", nil},
		{"23 Foo", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, parseDayMonth(tt.in, testNow)); diff != "" {
				t.Errorf("parseDayMonth(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestParseISODate(t *testing.T) {
	if diff := cmp.Diff(datePtr(2026, 1, 15), parseISODate("2026-01-15T08:00:00Z")); diff != "" {
		t.Errorf("parseISODate mismatch (-want +got):\n%s", diff)
	}
	if got := parseISODate("15/01/2026"); got != nil {
		t.Errorf("expected nil for unsupported format, got %v", got)
	}
}

func TestExtractText(t *testing.T) {
	got := extractText("  Analyst &amp; <b>Associate</b>\n Program ")
	if got != "Analyst & Associate Program" {
		t.Errorf("extractText() = %q", got)
	}
}

func TestAbsoluteURL(t *testing.T) {
	tests := map[string]string{
		"/job/1":                  "https://example.com/job/1",
		"job/1":                   "https://example.com/job/1",
		"https://other.com/job/1": "https://other.com/job/1",
	}
	for href, want := range tests {
		if got := absoluteURL("https://example.com/", href); got != want {
			t.Errorf("absoluteURL(%q) = %q, want %q", href, got, want)
		}
	}
}
