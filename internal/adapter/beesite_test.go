package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDeutscheBankFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload beesitePayload
		if err := json.Unmarshal([]byte(r.URL.Query().Get("data")), &payload); err != nil {
			t.Errorf("decode data param: %v", err)
			return
		}
		if payload.SearchCriteria[0].CriterionValue != "231" {
			t.Errorf("expected US country criterion, got %+v", payload.SearchCriteria)
		}

		switch r.URL.Path {
		case "/search/":
			if payload.SearchParameters.CountItem != 500 {
				t.Errorf("unexpected count %d", payload.SearchParameters.CountItem)
			}
			fmt.Fprint(w, `{"SearchResult": {"SearchResultItems": [
				{"MatchedObjectDescriptor": {"PositionID": "P1", "PositionTitle": "Corporate Bank Analyst", "PositionLocation": [{"CityName": "New York"}], "PublicationStartDate": "2026-03-02"}},
				{"MatchedObjectDescriptor": {"PositionID": "P2", "PositionTitle": "Director, Rates"}}
			]}}`)
		case "/graduatesearch/":
			fmt.Fprint(w, `{"SearchResult": {"SearchResultItems": [
				{"MatchedObjectDescriptor": {"PositionID": "P1", "PositionTitle": "Corporate Bank Analyst"}},
				{"MatchedObjectDescriptor": {"PositionID": "G1", "PositionTitle": "2026 Markets Internship", "PositionURI": "https://careers.db.com/grad/G1", "PositionLocation": [{"CityName": "New York"}]}}
			]}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	postings, err := NewDeutscheBankAdapter(testOptions(srv)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d: %+v", len(postings), postings)
	}
	if postings[0].Link != dbProfessionalBase+"P1" || postings[0].Location != "New York" {
		t.Errorf("unexpected first posting %+v", postings[0])
	}
	if postings[0].PostedDate == nil || !postings[0].PostedDate.Equal(*datePtr(2026, 3, 2)) {
		t.Errorf("unexpected posted date %v", postings[0].PostedDate)
	}
	if postings[1].Link != "https://careers.db.com/grad/G1" {
		t.Errorf("expected graduate URI link, got %s", postings[1].Link)
	}
}
