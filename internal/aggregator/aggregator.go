package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/bankradar/internal/filter"
	"github.com/amishk599/bankradar/internal/model"
)

// Result is one source's contribution to an aggregation pass.
type Result struct {
	Key      string
	Name     string
	Postings []model.Posting
	Err      error // *model.SourceError when the source failed
	Elapsed  time.Duration
}

// Aggregator fans out to every source and collects their postings.
type Aggregator struct {
	sources []model.Source
	logger  *slog.Logger
}

// New creates an aggregator over sources, kept in the given order.
func New(sources []model.Source, logger *slog.Logger) *Aggregator {
	return &Aggregator{sources: sources, logger: logger}
}

// Run calls every source concurrently and returns one Result per source in
// source order. A failing source is isolated: its Result carries the error
// and no postings, and its siblings are not cancelled.
func (a *Aggregator) Run(ctx context.Context) []Result {
	results := make([]Result, len(a.sources))

	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			start := time.Now()
			postings, err := src.Fetch(ctx)
			r := Result{Key: src.Key(), Name: src.Name(), Elapsed: time.Since(start)}
			if err != nil {
				r.Err = &model.SourceError{Source: src.Key(), Err: err}
				a.logger.Error("source failed",
					"source", src.Key(),
					"elapsed", r.Elapsed,
					"error", err,
				)
			} else {
				r.Postings = postings
				a.logger.Debug("fetched source",
					"source", src.Key(),
					"postings", len(postings),
					"elapsed", r.Elapsed,
				)
			}
			results[i] = r
			return nil
		})
	}
	g.Wait()

	return results
}

// Merge concatenates results in order and normalizes the postings: the first
// occurrence of a link wins, empty links and graduate programs are dropped,
// and bank, category and role type are stamped.
func Merge(results []Result) []model.Posting {
	var merged []model.Posting
	seen := make(map[string]struct{})

	for _, r := range results {
		if r.Err != nil {
			continue
		}
		for _, p := range r.Postings {
			p.Link = strings.TrimSpace(p.Link)
			if p.Link == "" {
				continue
			}
			if _, ok := seen[p.Link]; ok {
				continue
			}
			seen[p.Link] = struct{}{}
			if filter.IsGraduateProgram(p.Title) {
				continue
			}

			p.Bank = r.Name
			p.BankKey = r.Key
			if p.Category == "" {
				p.Category = filter.Categorize(p.Title)
			}
			p.RoleType = filter.RoleTypeOf(p.Title)
			merged = append(merged, p)
		}
	}
	return merged
}

// Failures returns the source errors recorded in results.
func Failures(results []Result) []*model.SourceError {
	var out []*model.SourceError
	for _, r := range results {
		var se *model.SourceError
		if errors.As(r.Err, &se) {
			out = append(out, se)
		}
	}
	return out
}
