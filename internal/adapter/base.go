package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amishk599/bankradar/internal/filter"
	"github.com/amishk599/bankradar/internal/model"
	"github.com/amishk599/bankradar/internal/ratelimit"
)

// DefaultMaxPages bounds pagination when the upstream never reports an end.
const DefaultMaxPages = 50

// Options carries the settings shared by every adapter.
type Options struct {
	Client    *http.Client
	PageDelay time.Duration
	MaxPages  int
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// base holds identity and shared plumbing for a source.
type base struct {
	key  string
	name string
	opts Options
}

func newBase(key, name string, opts Options) base {
	return base{key: key, name: name, opts: opts.withDefaults()}
}

func (b *base) Key() string  { return b.key }
func (b *base) Name() string { return b.name }

func (b *base) client() *http.Client { return b.opts.Client }
func (b *base) now() time.Time       { return b.opts.Now().UTC() }

// newPacer returns the pacer spacing every page request of one Fetch.
func (b *base) newPacer() *ratelimit.Pacer {
	return ratelimit.NewPacer(b.opts.PageDelay)
}

// pageFunc fetches page n (0-based) and reports whether another page follows.
type pageFunc func(ctx context.Context, page int) (more bool, err error)

// paginate walks pages until fetch reports the end or the page ceiling
// (capped further by limit when limit > 0) is reached.
func (b *base) paginate(ctx context.Context, pacer *ratelimit.Pacer, limit int, fetch pageFunc) error {
	maxPages := b.opts.MaxPages
	if limit > 0 && limit < maxPages {
		maxPages = limit
	}
	for page := 0; page < maxPages; page++ {
		if err := pacer.Wait(ctx); err != nil {
			return err
		}
		more, err := fetch(ctx, page)
		if err != nil {
			return fmt.Errorf("%s page %d: %w", b.key, page, err)
		}
		if !more {
			return nil
		}
	}
	return nil
}

// posting builds a normalized posting with its category derived from title.
func posting(title, link, location string, posted *time.Time) model.Posting {
	return model.Posting{
		Link:       link,
		Title:      title,
		Location:   location,
		Category:   filter.Categorize(title),
		PostedDate: posted,
	}
}
