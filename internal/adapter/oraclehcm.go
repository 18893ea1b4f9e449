package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/amishk599/bankradar/internal/model"
)

const oracleHCMPageSize = 25

const (
	jpmcAPIURL  = "https://jpmc.fa.oraclecloud.com/hcmRestApi/resources/latest/recruitingCEJobRequisitions"
	jpmcSiteURL = "https://jpmc.fa.oraclecloud.com/hcmUI/CandidateExperience/en/sites/CX_1001/job"

	jpmcAnalystCategoryID = "300000086153065"
	jpmcUSLocationID      = "300000000289738"
)

type oracleHCMResponse struct {
	Items []struct {
		TotalJobsCount  int                    `json:"TotalJobsCount"`
		RequisitionList []oracleHCMRequisition `json:"requisitionList"`
	} `json:"items"`
}

type oracleHCMRequisition struct {
	ID              string `json:"Id"`
	Title           string `json:"Title"`
	PrimaryLocation string `json:"PrimaryLocation"`
	PostedDate      string `json:"PostedDate"`
}

// OracleHCMAdapter fetches analyst requisitions from JPMorgan Chase's
// Oracle HCM candidate-experience API. The finder already restricts results
// to the analyst category in the United States.
type OracleHCMAdapter struct {
	base
	apiURL  string
	siteURL string
}

// NewJPMCAdapter creates the JPMorgan Chase source.
func NewJPMCAdapter(opts Options) *OracleHCMAdapter {
	return &OracleHCMAdapter{
		base:    newBase("jpmc", "JPMorgan Chase", opts),
		apiURL:  jpmcAPIURL,
		siteURL: jpmcSiteURL,
	}
}

func (a *OracleHCMAdapter) pageURL(offset int) string {
	finder := strings.Join([]string{
		"siteNumber=CX_1001",
		"limit=" + strconv.Itoa(oracleHCMPageSize),
		"offset=" + strconv.Itoa(offset),
		"sortBy=POSTING_DATES_DESC",
		"selectedCategoriesFacet=" + jpmcAnalystCategoryID,
		"selectedLocationsFacet=" + jpmcUSLocationID,
	}, ",")

	params := url.Values{}
	params.Set("onlyData", "true")
	params.Set("expand", "requisitionList.secondaryLocations")
	params.Set("finder", "findReqs;"+finder)
	return a.apiURL + "?" + params.Encode()
}

// Fetch pages 25 requisitions at a time until an empty page or the
// reported total.
func (a *OracleHCMAdapter) Fetch(ctx context.Context) ([]model.Posting, error) {
	var postings []model.Posting

	err := a.paginate(ctx, a.newPacer(), 0, func(ctx context.Context, page int) (bool, error) {
		offset := page * oracleHCMPageSize
		var resp oracleHCMResponse
		if err := doJSON(ctx, a.client(), request{url: a.pageURL(offset)}, &resp); err != nil {
			return false, fmt.Errorf("oracle hcm fetch for %s: %w", a.name, err)
		}
		if len(resp.Items) == 0 || len(resp.Items[0].RequisitionList) == 0 {
			return false, nil
		}

		item := resp.Items[0]
		for _, r := range item.RequisitionList {
			if r.ID == "" {
				continue
			}
			title := cleanText(r.Title)
			if title == "" {
				title = "N/A"
			}
			postings = append(postings, posting(title, a.siteURL+"/"+r.ID, cleanText(r.PrimaryLocation), parseISODate(r.PostedDate)))
		}

		if item.TotalJobsCount > 0 && offset+oracleHCMPageSize >= item.TotalJobsCount {
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return postings, nil
}
