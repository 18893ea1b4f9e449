package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/amishk599/bankradar/internal/model"
)

const (
	gsAPIURL   = "https://api-higher.gs.com/gateway/api/v1/graphql"
	gsSiteURL  = "https://higher.gs.com/roles"
	gsPageSize = 20
)

const gsRoleQuery = `query GetRoles($searchQueryInput: RoleSearchQueryInput!) {
  roleSearch(searchQueryInput: $searchQueryInput) {
    totalCount
    items {
      roleId
      corporateTitle
      jobTitle
      locations { primary state country city }
    }
  }
}`

type gsRequest struct {
	OperationName string      `json:"operationName"`
	Variables     gsVariables `json:"variables"`
	Query         string      `json:"query"`
}

type gsVariables struct {
	SearchQueryInput gsSearchInput `json:"searchQueryInput"`
}

type gsSearchInput struct {
	Page        gsPage   `json:"page"`
	Sort        gsSort   `json:"sort"`
	Filters     []any    `json:"filters"`
	Experiences []string `json:"experiences"`
	SearchTerm  string   `json:"searchTerm"`
}

type gsPage struct {
	PageSize   int `json:"pageSize"`
	PageNumber int `json:"pageNumber"`
}

type gsSort struct {
	SortStrategy string `json:"sortStrategy"`
	SortOrder    string `json:"sortOrder"`
}

type gsResponse struct {
	Data struct {
		RoleSearch *struct {
			TotalCount int      `json:"totalCount"`
			Items      []gsRole `json:"items"`
		} `json:"roleSearch"`
	} `json:"data"`
}

type gsRole struct {
	RoleID         string       `json:"roleId"`
	CorporateTitle string       `json:"corporateTitle"`
	JobTitle       string       `json:"jobTitle"`
	Locations      []gsLocation `json:"locations"`
}

type gsLocation struct {
	Primary bool   `json:"primary"`
	State   string `json:"state"`
	Country string `json:"country"`
	City    string `json:"city"`
}

func (l gsLocation) isUS() bool {
	return l.Country == "United States" || l.Country == "US"
}

func (l gsLocation) String() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{l.City, l.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// GoldmanAdapter queries the Goldman Sachs careers GraphQL gateway.
type GoldmanAdapter struct {
	base
	apiURL string
}

// NewGoldmanAdapter creates the Goldman Sachs source.
func NewGoldmanAdapter(opts Options) *GoldmanAdapter {
	return &GoldmanAdapter{base: newBase("gs", "Goldman Sachs", opts), apiURL: gsAPIURL}
}

// Fetch pages through analyst roles, keeping those with a US location.
func (a *GoldmanAdapter) Fetch(ctx context.Context) ([]model.Posting, error) {
	var postings []model.Posting

	err := a.paginate(ctx, a.newPacer(), 0, func(ctx context.Context, page int) (bool, error) {
		body := gsRequest{
			OperationName: "GetRoles",
			Variables: gsVariables{SearchQueryInput: gsSearchInput{
				Page:        gsPage{PageSize: gsPageSize, PageNumber: page},
				Sort:        gsSort{SortStrategy: "RELEVANCE", SortOrder: "DESC"},
				Filters:     []any{},
				Experiences: []string{"EARLY_CAREER", "PROFESSIONAL"},
				SearchTerm:  "analyst",
			}},
			Query: gsRoleQuery,
		}

		var resp gsResponse
		err := doJSON(ctx, a.client(), request{
			method: http.MethodPost,
			url:    a.apiURL,
			headers: map[string]string{
				"Origin":  "https://higher.gs.com",
				"Referer": "https://higher.gs.com/",
			},
			body: body,
		}, &resp)
		if err != nil {
			return false, fmt.Errorf("graphql fetch for %s: %w", a.name, err)
		}

		search := resp.Data.RoleSearch
		if search == nil || len(search.Items) == 0 {
			return false, nil
		}

		for _, role := range search.Items {
			loc, ok := usLocation(role.Locations)
			if !ok || role.RoleID == "" {
				continue
			}
			title := cleanText(role.JobTitle)
			if title == "" {
				title = cleanText(role.CorporateTitle)
			}
			postings = append(postings, posting(title, gsSiteURL+"/"+role.RoleID, loc, nil))
		}

		return (page+1)*gsPageSize < search.TotalCount, nil
	})
	if err != nil {
		return nil, err
	}
	return postings, nil
}

// usLocation picks the primary US location, falling back to the first US one.
func usLocation(locs []gsLocation) (string, bool) {
	var first *gsLocation
	for i := range locs {
		if !locs[i].isUS() {
			continue
		}
		if locs[i].Primary {
			return locs[i].String(), true
		}
		if first == nil {
			first = &locs[i]
		}
	}
	if first == nil {
		return "", false
	}
	return first.String(), true
}
