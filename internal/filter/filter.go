package filter

import (
	"regexp"
	"strings"

	"github.com/amishk599/bankradar/internal/model"
)

// TitleAndLocationFilter matches postings whose title contains any of the
// title keywords and, when US-only is set, whose location passes IsUSLocation.
// Matching is case-insensitive. An empty keyword list matches every title.
type TitleAndLocationFilter struct {
	titleKeywords []string
	usOnly        bool
}

// NewTitleAndLocationFilter returns a filter over title keywords and the US
// location heuristic.
func NewTitleAndLocationFilter(titleKeywords []string, usOnly bool) *TitleAndLocationFilter {
	lowered := make([]string, len(titleKeywords))
	for i, kw := range titleKeywords {
		lowered[i] = strings.ToLower(kw)
	}
	return &TitleAndLocationFilter{
		titleKeywords: lowered,
		usOnly:        usOnly,
	}
}

// Match returns true if the posting's title contains any keyword and, for
// US-only filters, its location looks American.
func (f *TitleAndLocationFilter) Match(p model.Posting) bool {
	if len(f.titleKeywords) > 0 {
		titleLower := strings.ToLower(p.Title)
		matched := false
		for _, kw := range f.titleKeywords {
			if strings.Contains(titleLower, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if f.usOnly && !IsUSLocation(p.Location) {
		return false
	}
	return true
}

// EntryLevelKeywords is the target job family: entry-level, analyst and intern.
var EntryLevelKeywords = []string{"analyst", "intern", "summer", "trainee", "placement"}

// IsEntryLevel reports whether a title belongs to the target job family.
func IsEntryLevel(title string) bool {
	t := strings.ToLower(title)
	for _, kw := range EntryLevelKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

var (
	internWordRegex  = regexp.MustCompile(`\bintern\b`)
	graduateRegex    = regexp.MustCompile(`\bgraduate\b|\bgrad\s+program`)
	stateSuffixRegex = regexp.MustCompile(`[,\-]\s*(al|ak|az|ar|ca|co|ct|de|fl|ga|hi|id|il|in|ia|ks|ky|la|me|md|ma|mi|mn|ms|mo|mt|ne|nv|nh|nj|nm|ny|nc|nd|oh|ok|or|pa|ri|sc|sd|tn|tx|ut|vt|va|wa|wv|wi|wy|dc)\b`)
	investBankRegex  = regexp.MustCompile(`investment\s*bank`)
	opsWordRegex     = regexp.MustCompile(`\bops\b`)
)

// IsInternship classifies a title as an internship.
func IsInternship(title string) bool {
	t := strings.ToLower(title)
	return internWordRegex.MatchString(t) ||
		strings.Contains(t, "internship") ||
		strings.Contains(t, "summer") ||
		strings.Contains(t, "co-op") ||
		strings.Contains(t, "coop")
}

// IsAnalystOrIntern is the read-view title filter: analyst roles and
// internships only.
func IsAnalystOrIntern(title string) bool {
	return strings.Contains(strings.ToLower(title), "analyst") || IsInternship(title)
}

// RoleTypeOf derives the role type from a title.
func RoleTypeOf(title string) model.RoleType {
	if IsInternship(title) {
		return model.RoleInternship
	}
	return model.RoleFullTime
}

// IsGraduateProgram reports titles of graduate programs, a separate job family.
func IsGraduateProgram(title string) bool {
	return graduateRegex.MatchString(strings.ToLower(title))
}

var usCities = []string{
	"new york", "chicago", "san francisco", "los angeles", "boston", "houston",
	"dallas", "miami", "atlanta", "seattle", "charlotte", "whippany",
	"wilmington", "st. louis", "kansas city", "jersey city", "pennington",
	"palo alto", "washington", "jacksonville", "americas",
}

// IsUSLocation is the location-substring heuristic used for sources that mix
// countries. An empty location passes since the source was already scoped.
func IsUSLocation(loc string) bool {
	if strings.TrimSpace(loc) == "" {
		return true
	}
	l := strings.ToLower(loc)
	if strings.Contains(l, "united states") || strings.Contains(l, "multiple") {
		return true
	}
	if stateSuffixRegex.MatchString(l) {
		return true
	}
	for _, city := range usCities {
		if strings.Contains(l, city) {
			return true
		}
	}
	return false
}
