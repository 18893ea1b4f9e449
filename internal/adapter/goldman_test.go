package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGoldmanFetch(t *testing.T) {
	var pages []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if r.Header.Get("Origin") != "https://higher.gs.com" {
			t.Errorf("missing Origin header")
		}
		in := req.Variables.SearchQueryInput
		pages = append(pages, in.Page.PageNumber)
		if in.SearchTerm != "analyst" || req.OperationName != "GetRoles" {
			t.Errorf("unexpected request %+v", req)
		}

		switch in.Page.PageNumber {
		case 0:
			w.Write([]byte(`{"data": {"roleSearch": {"totalCount": 30, "items": [
				{"roleId": "101", "jobTitle": "Analyst, Investment Banking", "locations": [
					{"primary": false, "city": "London", "country": "United Kingdom"},
					{"primary": false, "city": "New York", "state": "New York", "country": "United States"}
				]},
				{"roleId": "102", "jobTitle": "Analyst", "locations": [{"primary": true, "city": "Bengaluru", "country": "India"}]}
			]}}}`))
		default:
			w.Write([]byte(`{"data": {"roleSearch": {"totalCount": 30, "items": [
				{"roleId": "103", "jobTitle": "", "corporateTitle": "Analyst", "locations": [{"primary": true, "city": "Dallas", "state": "Texas", "country": "US"}]}
			]}}}`))
		}
	}))
	defer srv.Close()

	postings, err := NewGoldmanAdapter(testOptions(srv)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %v", pages)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 US postings, got %d: %+v", len(postings), postings)
	}
	if postings[0].Link != "https://higher.gs.com/roles/101" || postings[0].Location != "New York, New York" {
		t.Errorf("unexpected first posting %+v", postings[0])
	}
	if postings[1].Title != "Analyst" || postings[1].Location != "Dallas, Texas" {
		t.Errorf("expected corporate title fallback, got %+v", postings[1])
	}
}

func TestGoldmanFetch_NullSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"roleSearch": null}}`))
	}))
	defer srv.Close()

	postings, err := NewGoldmanAdapter(testOptions(srv)).Fetch(context.Background())
	if err != nil || len(postings) != 0 {
		t.Fatalf("expected no postings and no error, got %v, %v", postings, err)
	}
}
