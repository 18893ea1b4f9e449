package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/amishk599/bankradar/internal/filter"
	"github.com/amishk599/bankradar/internal/model"
)

const workdayPageSize = 20

// workdayListingResponse is the response from the Workday CXS jobs endpoint.
type workdayListingResponse struct {
	Total       int              `json:"total"`
	JobPostings []workdayListing `json:"jobPostings"`
}

type workdayListing struct {
	Title         string `json:"title"`
	ExternalPath  string `json:"externalPath"`
	LocationsText string `json:"locationsText"`
	PostedOn      string `json:"postedOn"`
}

// workdayListingRequest is the POST body for the Workday CXS jobs endpoint.
type workdayListingRequest struct {
	AppliedFacets map[string]any `json:"appliedFacets"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	SearchText    string         `json:"searchText"`
}

// WorkdayConfig describes one Workday tenant.
type WorkdayConfig struct {
	Key        string
	Name       string
	APIURL     string // .../wday/cxs/{tenant}/{site}/jobs
	SiteURL    string // prefix for externalPath
	SearchText string
	Filter     *filter.TitleAndLocationFilter // nil keeps every listing
}

// WorkdayAdapter fetches postings from a Workday career site.
type WorkdayAdapter struct {
	base
	cfg WorkdayConfig
}

// NewWorkdayAdapter creates a new adapter for a Workday tenant.
func NewWorkdayAdapter(cfg WorkdayConfig, opts Options) *WorkdayAdapter {
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	return &WorkdayAdapter{base: newBase(cfg.Key, cfg.Name, opts), cfg: cfg}
}

// Fetch pages through the listing endpoint until offset+20 reaches the
// reported total or a page comes back empty.
func (a *WorkdayAdapter) Fetch(ctx context.Context) ([]model.Posting, error) {
	var postings []model.Posting
	now := a.now()

	err := a.paginate(ctx, a.newPacer(), 0, func(ctx context.Context, page int) (bool, error) {
		offset := page * workdayPageSize
		var resp workdayListingResponse
		err := doJSON(ctx, a.client(), request{
			method: http.MethodPost,
			url:    a.cfg.APIURL,
			body: workdayListingRequest{
				AppliedFacets: map[string]any{},
				Limit:         workdayPageSize,
				Offset:        offset,
				SearchText:    a.cfg.SearchText,
			},
		}, &resp)
		if err != nil {
			return false, fmt.Errorf("workday listing fetch for %s: %w", a.cfg.Name, err)
		}

		for _, l := range resp.JobPostings {
			if l.ExternalPath == "" {
				continue
			}
			p := posting(extractText(l.Title), a.cfg.SiteURL+l.ExternalPath, cleanText(l.LocationsText), parsePostedOn(l.PostedOn, now))
			if a.cfg.Filter != nil && !a.cfg.Filter.Match(p) {
				continue
			}
			postings = append(postings, p)
		}

		return len(resp.JobPostings) > 0 && offset+workdayPageSize < resp.Total, nil
	})
	if err != nil {
		return nil, err
	}
	return postings, nil
}
