package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/amishk599/bankradar/internal/filter"
	"github.com/amishk599/bankradar/internal/model"
)

const dbProfessionalBase = "https://careers.db.com/professionals/search-roles/#/professional/job/"

var beesiteFields = []string{
	"PositionID",
	"PositionTitle",
	"PositionURI",
	"PositionLocation.CityName",
	"PositionLocation.Country",
	"CareerLevel.Name",
	"PublicationStartDate",
}

type beesitePayload struct {
	LanguageCode     string             `json:"LanguageCode"`
	SearchParameters beesiteParameters  `json:"SearchParameters"`
	SearchCriteria   []beesiteCriterion `json:"SearchCriteria"`
}

type beesiteParameters struct {
	FirstItem               int           `json:"FirstItem"`
	CountItem               int           `json:"CountItem"`
	MatchedObjectDescriptor []string      `json:"MatchedObjectDescriptor"`
	Sort                    []beesiteSort `json:"Sort"`
}

type beesiteSort struct {
	Criterion string `json:"Criterion"`
	Direction string `json:"Direction"`
}

type beesiteCriterion struct {
	CriterionName  string `json:"CriterionName"`
	CriterionValue string `json:"CriterionValue"`
}

type beesiteResponse struct {
	SearchResult struct {
		SearchResultItems []struct {
			MatchedObjectDescriptor beesitePosition `json:"MatchedObjectDescriptor"`
		} `json:"SearchResultItems"`
	} `json:"SearchResult"`
}

type beesitePosition struct {
	PositionID       string `json:"PositionID"`
	PositionTitle    string `json:"PositionTitle"`
	PositionURI      string `json:"PositionURI"`
	PositionLocation []struct {
		CityName string `json:"CityName"`
	} `json:"PositionLocation"`
	PublicationStartDate string `json:"PublicationStartDate"`
}

// beesiteSearch is one endpoint and how much of it to read.
type beesiteSearch struct {
	endpoint   string
	maxItems   int
	entryLevel bool // apply the entry-level title filter
}

// BeesiteAdapter reads Deutsche Bank's beesite search API. Each search
// returns its full result set in one response.
type BeesiteAdapter struct {
	base
	countryCode string
	searches    []beesiteSearch
}

// NewDeutscheBankAdapter creates the Deutsche Bank source over the
// professional and graduate searches, US only.
func NewDeutscheBankAdapter(opts Options) *BeesiteAdapter {
	return &BeesiteAdapter{
		base:        newBase("db", "Deutsche Bank", opts),
		countryCode: "231",
		searches: []beesiteSearch{
			{endpoint: "https://api-deutschebank.beesite.de/search", maxItems: 500, entryLevel: true},
			{endpoint: "https://api-deutschebank.beesite.de/graduatesearch", maxItems: 100},
		},
	}
}

// Fetch runs both searches, dedup by position id.
func (a *BeesiteAdapter) Fetch(ctx context.Context) ([]model.Posting, error) {
	var postings []model.Posting
	seen := linkSet{}
	pacer := a.newPacer()

	for _, search := range a.searches {
		if err := pacer.Wait(ctx); err != nil {
			return nil, err
		}
		positions, err := a.search(ctx, search)
		if err != nil {
			return nil, fmt.Errorf("beesite fetch for %s: %w", a.name, err)
		}

		for _, pos := range positions {
			if pos.PositionID == "" || !seen.add(pos.PositionID) {
				continue
			}
			title := cleanText(pos.PositionTitle)
			if search.entryLevel && !filter.IsEntryLevel(title) {
				continue
			}
			link := dbProfessionalBase + pos.PositionID
			if strings.HasPrefix(pos.PositionURI, "http") {
				link = pos.PositionURI
			}
			var city string
			if len(pos.PositionLocation) > 0 {
				city = cleanText(pos.PositionLocation[0].CityName)
			}
			postings = append(postings, posting(title, link, city, parseISODate(pos.PublicationStartDate)))
		}
	}
	return postings, nil
}

func (a *BeesiteAdapter) search(ctx context.Context, s beesiteSearch) ([]beesitePosition, error) {
	payload, err := json.Marshal(beesitePayload{
		LanguageCode: "EN",
		SearchParameters: beesiteParameters{
			FirstItem:               1,
			CountItem:               s.maxItems,
			MatchedObjectDescriptor: beesiteFields,
			Sort:                    []beesiteSort{{Criterion: "PublicationStartDate", Direction: "DESC"}},
		},
		SearchCriteria: []beesiteCriterion{
			{CriterionName: "PositionLocation.Country", CriterionValue: a.countryCode},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search: %w", err)
	}

	var resp beesiteResponse
	u := s.endpoint + "/?data=" + url.QueryEscape(string(payload))
	if err := doJSON(ctx, a.client(), request{url: u}, &resp); err != nil {
		return nil, err
	}

	positions := make([]beesitePosition, 0, len(resp.SearchResult.SearchResultItems))
	for _, item := range resp.SearchResult.SearchResultItems {
		positions = append(positions, item.MatchedObjectDescriptor)
	}
	return positions, nil
}
