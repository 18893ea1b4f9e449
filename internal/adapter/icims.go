package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/bankradar/internal/filter"
	"github.com/amishk599/bankradar/internal/model"
)

// icimsMaxPages caps iCIMS pagination regardless of the reported total.
const icimsMaxPages = 10

// ICIMSAdapter scrapes an iCIMS job board search page.
type ICIMSAdapter struct {
	base
	siteURL  string
	keywords string
}

// NewStifelAdapter creates the Stifel source.
func NewStifelAdapter(opts Options) *ICIMSAdapter {
	return &ICIMSAdapter{
		base:     newBase("stifel", "Stifel", opts),
		siteURL:  "https://careers-stifel.icims.com",
		keywords: "analyst intern",
	}
}

func (a *ICIMSAdapter) pageURL(page int) string {
	params := url.Values{}
	params.Set("ics_keywords", a.keywords)
	params.Set("ics_location", "")
	params.Set("mobile", "false")
	params.Set("width", "990")
	params.Set("height", "500")
	params.Set("bga", "true")
	params.Set("needsRedirect", "false")
	params.Set("in_iframe", "1")
	params.Set("pr", strconv.Itoa(page))
	return a.siteURL + "/jobs/search?" + params.Encode()
}

// Fetch walks search result pages, keeping US entry-level postings.
func (a *ICIMSAdapter) Fetch(ctx context.Context) ([]model.Posting, error) {
	var postings []model.Posting
	seen := linkSet{}
	totalPages := 1

	err := a.paginate(ctx, a.newPacer(), icimsMaxPages, func(ctx context.Context, page int) (bool, error) {
		doc, err := doDocument(ctx, a.client(), request{
			url:     a.pageURL(page + 1),
			headers: map[string]string{"X-Requested-With": "XMLHttpRequest"},
		})
		if err != nil {
			return false, fmt.Errorf("icims fetch for %s: %w", a.name, err)
		}

		if v, ok := doc.Find(".iCIMS_PagingControl[data-total-pages]").First().Attr("data-total-pages"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				totalPages = n
			}
		}

		found := a.parse(doc)
		for _, p := range found {
			if !filter.IsEntryLevel(p.Title) || !filter.IsUSLocation(p.Location) {
				continue
			}
			if seen.add(p.Link) {
				postings = append(postings, p)
			}
		}
		return len(found) > 0 && page+1 < totalPages, nil
	})
	if err != nil {
		return nil, err
	}
	return postings, nil
}

func (a *ICIMSAdapter) parse(doc *goquery.Document) []model.Posting {
	locations := doc.Find(".iCIMS_JobsTable_Location").Map(func(_ int, s *goquery.Selection) string {
		return cleanText(s.Text())
	})

	var postings []model.Posting
	doc.Find("a.iCIMS_JobsTable_Link").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		title := cleanText(s.Text())
		if href == "" || title == "" {
			return
		}
		var loc string
		if i < len(locations) {
			loc = locations[i]
		}
		postings = append(postings, posting(title, absoluteURL(a.siteURL, href), loc, nil))
	})
	return postings
}
