package adapter

import (
	"context"
	"fmt"
	"slices"

	"github.com/amishk599/bankradar/internal/filter"
	"github.com/amishk599/bankradar/internal/model"
)

// CombinedSource presents several upstream boards as one bank. Parts are
// fetched in order; any part failing fails the whole source.
type CombinedSource struct {
	key   string
	name  string
	parts []model.Source
}

// NewCombinedSource creates a source over parts, dedup by link.
func NewCombinedSource(key, name string, parts ...model.Source) *CombinedSource {
	return &CombinedSource{key: key, name: name, parts: parts}
}

func (c *CombinedSource) Key() string  { return c.key }
func (c *CombinedSource) Name() string { return c.name }

func (c *CombinedSource) Fetch(ctx context.Context) ([]model.Posting, error) {
	var postings []model.Posting
	seen := linkSet{}
	for _, part := range c.parts {
		got, err := part.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", part.Key(), err)
		}
		for _, p := range got {
			if seen.add(p.Link) {
				postings = append(postings, p)
			}
		}
	}
	return postings, nil
}

var (
	analystOnly   = []string{"analyst"}
	entryLevelUS  = filter.NewTitleAndLocationFilter(filter.EntryLevelKeywords, true)
	entryLevelAny = filter.NewTitleAndLocationFilter(filter.EntryLevelKeywords, false)
)

// Registry returns every supported source in display order.
func Registry(opts Options) []model.Source {
	return []model.Source{
		NewJPMCAdapter(opts),
		NewGoldmanAdapter(opts),
		NewWorkdayAdapter(WorkdayConfig{
			Key:        "ms",
			Name:       "Morgan Stanley",
			APIURL:     "https://ms.wd5.myworkdayjobs.com/wday/cxs/ms/External/jobs",
			SiteURL:    "https://ms.wd5.myworkdayjobs.com/en-US/External",
			SearchText: "analyst",
			Filter:     filter.NewTitleAndLocationFilter(analystOnly, true),
		}, opts),
		NewCombinedSource("bofa", "Bank of America",
			NewBofACampusAdapter(opts),
			NewWorkdayAdapter(WorkdayConfig{
				Key:        "bofa-lateral",
				Name:       "Bank of America",
				APIURL:     "https://ghr.wd1.myworkdayjobs.com/wday/cxs/ghr/lateral-us/jobs",
				SiteURL:    "https://ghr.wd1.myworkdayjobs.com/en-US/lateral-us",
				SearchText: "analyst",
				Filter:     filter.NewTitleAndLocationFilter(analystOnly, false),
			}, opts),
		),
		NewCitiAdapter(opts),
		NewDeutscheBankAdapter(opts),
		NewBarclaysAdapter(opts),
		NewUBSAdapter(opts),
		NewWorkdayAdapter(WorkdayConfig{
			Key:        "wells",
			Name:       "Wells Fargo",
			APIURL:     "https://wd1.myworkdaysite.com/wday/cxs/wf/WellsFargoJobs/jobs",
			SiteURL:    "https://wd1.myworkdaysite.com/en-US/WellsFargoJobs",
			SearchText: "analyst",
			Filter:     entryLevelUS,
		}, opts),
		NewWorkdayAdapter(WorkdayConfig{
			Key:        "guggenheim",
			Name:       "Guggenheim",
			APIURL:     "https://guggenheim.wd1.myworkdayjobs.com/wday/cxs/guggenheim/Guggenheim_Careers/jobs",
			SiteURL:    "https://guggenheim.wd1.myworkdayjobs.com/en-US/Guggenheim_Careers",
			SearchText: "analyst",
			Filter:     entryLevelAny,
		}, opts),
		NewStifelAdapter(opts),
	}
}

// Lookup finds a source by key.
func Lookup(sources []model.Source, key string) (model.Source, error) {
	for _, s := range sources {
		if s.Key() == key {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", key, model.ErrUnknownSource)
}

// Select keeps sources whose key is in keys, in registry order. An empty
// keys list keeps everything. Unknown keys are an error.
func Select(sources []model.Source, keys []string) ([]model.Source, error) {
	if len(keys) == 0 {
		return sources, nil
	}
	for _, k := range keys {
		if _, err := Lookup(sources, k); err != nil {
			return nil, err
		}
	}
	var out []model.Source
	for _, s := range sources {
		if slices.Contains(keys, s.Key()) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Keys lists the keys of sources in order.
func Keys(sources []model.Source) []string {
	keys := make([]string, len(sources))
	for i, s := range sources {
		keys[i] = s.Key()
	}
	return keys
}
