package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/bankradar/internal/model"
)

const talentBrewPageSize = 100

// talentBrewFacet is one applied search facet.
type talentBrewFacet struct {
	ID        string `json:"ID"`
	FacetType int    `json:"FacetType"`
	IsApplied bool   `json:"IsApplied"`
	FieldName string `json:"FieldName"`
}

// talentBrewQuery is one facet/keyword search whose pages are walked in full.
type talentBrewQuery struct {
	facets   []talentBrewFacet
	keywords string
	// keep filters this query's results; nil keeps all.
	keep func(title string) bool
}

// talentBrewSelectors locate fields in the results fragment. Lists are
// paired by index.
type talentBrewSelectors struct {
	link     string
	title    string // inside link; empty uses the link text
	location string
	date     string // optional
}

type talentBrewResponse struct {
	Results string `json:"results"`
}

// TalentBrewAdapter fetches postings from a Radancy TalentBrew search
// endpoint, which returns a JSON envelope around an HTML fragment.
type TalentBrewAdapter struct {
	base
	siteURL   string
	apiPath   string
	usePOST   bool
	queries   []talentBrewQuery
	selectors talentBrewSelectors
}

var talentBrewUSFacet = talentBrewFacet{ID: "6252001", FacetType: 2, IsApplied: true}

// NewCitiAdapter creates the Citi source: student/grad programs plus
// entry-level analyst roles, both US-only.
func NewCitiAdapter(opts Options) *TalentBrewAdapter {
	isAnalyst := func(title string) bool {
		return strings.Contains(strings.ToLower(title), "analyst")
	}
	return &TalentBrewAdapter{
		base:    newBase("citi", "Citi", opts),
		siteURL: "https://jobs.citi.com",
		apiPath: "/search-jobs/resultspost",
		usePOST: true,
		queries: []talentBrewQuery{
			{facets: []talentBrewFacet{
				{ID: "Student and Grad Programs", FacetType: 5, IsApplied: true, FieldName: "custom_fields.CFCareerLevel"},
				talentBrewUSFacet,
			}},
			{facets: []talentBrewFacet{
				{ID: "Entry Level", FacetType: 5, IsApplied: true, FieldName: "custom_fields.CFCareerLevel"},
				talentBrewUSFacet,
			}, keep: isAnalyst},
		},
		selectors: talentBrewSelectors{
			link:     "a.sr-job-item__link",
			location: "span[class*='sr-job-location']",
		},
	}
}

// NewBarclaysAdapter creates the Barclays source: US intern/graduate roles
// plus an "analyst" keyword search.
func NewBarclaysAdapter(opts Options) *TalentBrewAdapter {
	return &TalentBrewAdapter{
		base:    newBase("barclays", "Barclays", opts),
		siteURL: "https://search.jobs.barclays",
		apiPath: "/search-jobs/results",
		queries: []talentBrewQuery{
			{facets: []talentBrewFacet{
				talentBrewUSFacet,
				{ID: "Intern", FacetType: 5, IsApplied: true, FieldName: "job_type"},
				{ID: "Graduate", FacetType: 5, IsApplied: true, FieldName: "job_type"},
			}},
			{facets: []talentBrewFacet{talentBrewUSFacet}, keywords: "analyst"},
		},
		selectors: talentBrewSelectors{
			link:     "a.job-title",
			title:    "strong",
			location: ".job-location",
			date:     ".job-date span",
		},
	}
}

// Fetch runs every query in order and dedups across them by link.
func (a *TalentBrewAdapter) Fetch(ctx context.Context) ([]model.Posting, error) {
	var postings []model.Posting
	seen := linkSet{}
	pacer := a.newPacer()

	for qi, q := range a.queries {
		totalPages := 1
		err := a.paginate(ctx, pacer, 0, func(ctx context.Context, page int) (bool, error) {
			doc, err := a.fetchPage(ctx, q, page+1)
			if err != nil {
				return false, err
			}
			if v, ok := doc.Find("[data-total-pages]").First().Attr("data-total-pages"); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
					totalPages = n
				}
			}

			parsed := a.parse(doc)
			for _, p := range parsed {
				if q.keep != nil && !q.keep(p.Title) {
					continue
				}
				if seen.add(p.Link) {
					postings = append(postings, p)
				}
			}
			return len(parsed) > 0 && page+1 < totalPages, nil
		})
		if err != nil {
			return nil, fmt.Errorf("talentbrew query %d for %s: %w", qi, a.name, err)
		}
	}
	return postings, nil
}

func (a *TalentBrewAdapter) fetchPage(ctx context.Context, q talentBrewQuery, page int) (*goquery.Document, error) {
	req := request{
		url:     a.siteURL + a.apiPath,
		headers: map[string]string{"X-Requested-With": "XMLHttpRequest"},
	}
	if a.usePOST {
		req.method = http.MethodPost
		req.body = talentBrewBody(q, page)
	} else {
		req.url += "?" + talentBrewParams(q, page).Encode()
	}

	var resp talentBrewResponse
	if err := doJSON(ctx, a.client(), req, &resp); err != nil {
		return nil, err
	}
	return parseFragment(resp.Results)
}

func talentBrewBody(q talentBrewQuery, page int) map[string]any {
	return map[string]any{
		"ActiveFacetID":           0,
		"CurrentPage":             page,
		"RecordsPerPage":          talentBrewPageSize,
		"Distance":                50,
		"RadiusUnitType":          0,
		"Keywords":                q.keywords,
		"Location":                "",
		"ShowRadius":              false,
		"IsPagination":            "True",
		"CustomFacetName":         "",
		"FacetTerm":               "",
		"FacetType":               0,
		"SearchResultsModuleName": "Search Results",
		"SearchFiltersModuleName": "Search Filters",
		"SortCriteria":            0,
		"SortDirection":           0,
		"SearchType":              6,
		"PostalCode":              "",
		"ResultsType":             0,
		"FacetFilters":            q.facets,
	}
}

func talentBrewParams(q talentBrewQuery, page int) url.Values {
	params := url.Values{}
	params.Set("CurrentPage", strconv.Itoa(page))
	params.Set("RecordsPerPage", strconv.Itoa(talentBrewPageSize))
	params.Set("SearchType", "5")
	params.Set("SearchResultsModuleName", "Search Results")
	params.Set("SearchFiltersModuleName", "Search Filters")
	if q.keywords != "" {
		params.Set("Keywords", q.keywords)
	}
	for i, f := range q.facets {
		prefix := fmt.Sprintf("FacetFilters[%d].", i)
		params.Set(prefix+"ID", f.ID)
		params.Set(prefix+"FacetType", strconv.Itoa(f.FacetType))
		params.Set(prefix+"IsApplied", "true")
		if f.FieldName != "" {
			params.Set(prefix+"FieldName", f.FieldName)
		}
	}
	return params
}

func (a *TalentBrewAdapter) parse(doc *goquery.Document) []model.Posting {
	now := a.now()
	sel := a.selectors

	locations := doc.Find(sel.location).Map(func(_ int, s *goquery.Selection) string {
		return cleanText(s.Text())
	})
	var dates []string
	if sel.date != "" {
		dates = doc.Find(sel.date).Map(func(_ int, s *goquery.Selection) string {
			return cleanText(s.Text())
		})
	}

	var postings []model.Posting
	doc.Find(sel.link).Each(func(i int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		titleSel := s
		if sel.title != "" {
			titleSel = s.Find(sel.title)
		}
		title := cleanText(titleSel.Text())
		if title == "" {
			return
		}

		var loc string
		if i < len(locations) {
			loc = locations[i]
		}
		p := posting(title, absoluteURL(a.siteURL, href), loc, nil)
		if i < len(dates) {
			p.PostedDate = parseDayMonth(dates[i], now)
		}
		postings = append(postings, p)
	})
	return postings
}
