package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/amishk599/bankradar/internal/model"
)

const brassRingPageSize = 50

// brassRingSession is the anti-forgery state a search call must echo back.
type brassRingSession struct {
	token   string // __RequestVerificationToken
	value   string // encrypted session value
	cookies string
}

type brassRingResponse struct {
	JobsCount int `json:"JobsCount"`
	Jobs      struct {
		Job []brassRingJob `json:"Job"`
	} `json:"Jobs"`
}

type brassRingJob struct {
	Link      string `json:"Link"`
	Questions []struct {
		QuestionName string `json:"QuestionName"`
		Value        string `json:"Value"`
	} `json:"Questions"`
}

func (j brassRingJob) field(name string) string {
	for _, q := range j.Questions {
		if q.QuestionName == name {
			return q.Value
		}
	}
	return ""
}

// BrassRingAdapter searches one or more Kenexa BrassRing talent gateways.
type BrassRingAdapter struct {
	base
	siteURL   string
	partnerID string
	siteIDs   []string
}

// NewUBSAdapter creates the UBS source over its professional and graduate
// gateways.
func NewUBSAdapter(opts Options) *BrassRingAdapter {
	return &BrassRingAdapter{
		base:      newBase("ubs", "UBS", opts),
		siteURL:   "https://jobs.ubs.com",
		partnerID: "25008",
		siteIDs:   []string{"5012", "5131"},
	}
}

// Fetch searches every gateway in turn, keeping US postings, dedup by link.
func (a *BrassRingAdapter) Fetch(ctx context.Context) ([]model.Posting, error) {
	var postings []model.Posting
	seen := linkSet{}
	pacer := a.newPacer()

	for _, siteID := range a.siteIDs {
		if err := pacer.Wait(ctx); err != nil {
			return nil, err
		}
		session, err := a.session(ctx, siteID)
		if err != nil {
			return nil, fmt.Errorf("brassring session for %s site %s: %w", a.name, siteID, err)
		}

		var total int
		err = a.paginate(ctx, pacer, 0, func(ctx context.Context, page int) (bool, error) {
			resp, err := a.search(ctx, siteID, session, page+1)
			if err != nil {
				return false, err
			}
			if page == 0 {
				total = resp.JobsCount
			}
			for _, job := range resp.Jobs.Job {
				loc := job.field("formtext23")
				if !strings.Contains(loc, "United States") || job.Link == "" {
					continue
				}
				if !seen.add(job.Link) {
					continue
				}
				loc = strings.TrimSpace(strings.Replace(strings.Replace(loc, "United States - ", "", 1), "United States", "", 1))
				postings = append(postings, posting(extractText(job.field("jobtitle")), job.Link, loc, nil))
			}
			return len(resp.Jobs.Job) > 0 && (page+1)*brassRingPageSize < total, nil
		})
		if err != nil {
			return nil, fmt.Errorf("brassring search for %s site %s: %w", a.name, siteID, err)
		}
	}
	return postings, nil
}

func (a *BrassRingAdapter) session(ctx context.Context, siteID string) (brassRingSession, error) {
	resp, err := do(ctx, a.client(), request{
		url: fmt.Sprintf("%s/TGnewUI/Search/Home/Home?partnerid=%s&siteid=%s", a.siteURL, a.partnerID, siteID),
	})
	if err != nil {
		return brassRingSession{}, err
	}
	defer resp.Body.Close()

	cookies := make([]string, 0, len(resp.Cookies()))
	for _, c := range resp.Cookies() {
		cookies = append(cookies, c.Name+"="+c.Value)
	}

	doc, err := goqueryDocument(resp)
	if err != nil {
		return brassRingSession{}, err
	}
	s := brassRingSession{
		token:   inputValue(doc, "__RequestVerificationToken"),
		value:   inputValue(doc, "CookieValue"),
		cookies: strings.Join(cookies, "; "),
	}
	if s.token == "" {
		return brassRingSession{}, fmt.Errorf("verification token missing: %w", model.ErrMalformedRecord)
	}
	return s, nil
}

func (a *BrassRingAdapter) search(ctx context.Context, siteID string, s brassRingSession, page int) (brassRingResponse, error) {
	headers := map[string]string{
		"X-Requested-With": "XMLHttpRequest",
		"RFT":              s.token,
	}
	if s.cookies != "" {
		headers["Cookie"] = s.cookies
	}

	req := request{method: http.MethodPost, headers: headers}
	if page == 1 {
		req.url = a.siteURL + "/TgNewUI/Search/Ajax/PowerSearchJobs"
		req.body = map[string]any{
			"partnerId":             a.partnerID,
			"siteId":                siteID,
			"keyword":               "",
			"location":              "",
			"Latitude":              0,
			"Longitude":             0,
			"FacetFilterFields":     map[string]any{"Facet": []any{}},
			"PowerSearchOptions":    map[string]any{"PowerSearchOption": []any{}},
			"SortType":              "LastUpdated",
			"EncryptedSessionValue": s.value,
		}
	} else {
		req.url = a.siteURL + "/TgNewUI/Search/Ajax/ProcessSortAndShowMoreJobs"
		req.body = map[string]any{
			"partnerId":                a.partnerID,
			"siteId":                   siteID,
			"keyword":                  "",
			"location":                 "",
			"keywordCustomSolrFields":  "",
			"locationCustomSolrFields": "",
			"linkId":                   "",
			"Latitude":                 0,
			"Longitude":                0,
			"facetfilterfields":        map[string]any{"Facet": []any{}},
			"powersearchoptions":       map[string]any{"PowerSearchOption": []any{}},
			"SortType":                 "LastUpdated",
			"pageNumber":               page,
			"encryptedSessionValue":    s.value,
		}
	}

	var resp brassRingResponse
	if err := doJSON(ctx, a.client(), req, &resp); err != nil {
		return brassRingResponse{}, err
	}
	return resp, nil
}
