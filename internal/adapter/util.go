package adapter

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// extractText converts an HTML or HTML-encoded string to plain text.
// It unescapes entities, strips all tags, then collapses whitespace.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, "")
	return cleanText(plain)
}

// cleanText collapses runs of whitespace and trims the result.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// absoluteURL prefixes relative hrefs with base.
func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return strings.TrimRight(base, "/") + href
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var daysAgoRegex = regexp.MustCompile(`^posted (\d+)\+? days? ago$`)

// parsePostedOn converts a Workday relative date ("Posted Today",
// "Posted 3 Days Ago", "Posted 30+ Days Ago") to a calendar date.
// Returns nil for anything else.
func parsePostedOn(postedOn string, now time.Time) *time.Time {
	s := strings.ToLower(strings.TrimSpace(postedOn))
	today := midnightUTC(now)

	switch s {
	case "":
		return nil
	case "posted today":
		return &today
	case "posted yesterday":
		t := today.AddDate(0, 0, -1)
		return &t
	}

	m := daysAgoRegex.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	t := today.AddDate(0, 0, -n)
	return &t
}

var dayMonthRegex = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]+)$`)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// parseDayMonth parses "23 Feb" in the current year, rolling back one year
// when the result would lie in the future.
func parseDayMonth(s string, now time.Time) *time.Time {
	m := dayMonthRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || len(m[2]) < 3 {
		return nil
	}
	month, ok := monthsByPrefix[strings.ToLower(m[2][:3])]
	if !ok {
		return nil
	}
	day, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}

	now = now.UTC()
	t := time.Date(now.Year(), month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return nil // e.g. 31 Feb
	}
	if t.After(now) {
		t = t.AddDate(-1, 0, 0)
	}
	return &t
}

// parseISODate accepts "2006-01-02" optionally followed by a time part.
func parseISODate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if len(s) < len("2006-01-02") {
		return nil
	}
	t, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return nil
	}
	return &t
}

// linkSet tracks links already emitted by a multi-query source.
type linkSet map[string]struct{}

// add reports whether link was new.
func (s linkSet) add(link string) bool {
	if _, ok := s[link]; ok {
		return false
	}
	s[link] = struct{}{}
	return true
}
