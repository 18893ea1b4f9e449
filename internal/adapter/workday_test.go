package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amishk599/bankradar/internal/filter"
	"github.com/amishk599/bankradar/internal/model"
)

func newWorkdayTestAdapter(srv *httptest.Server, f *filter.TitleAndLocationFilter) *WorkdayAdapter {
	return NewWorkdayAdapter(WorkdayConfig{
		Key:        "ms",
		Name:       "Morgan Stanley",
		APIURL:     "https://ms.wd5.myworkdayjobs.com/wday/cxs/ms/External/jobs",
		SiteURL:    "https://ms.wd5.myworkdayjobs.com/en-US/External/",
		SearchText: "analyst",
		Filter:     f,
	}, testOptions(srv))
}

func TestWorkdayFetch_PaginatesUntilTotal(t *testing.T) {
	var offsets []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/wday/cxs/ms/External/jobs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body workdayListingRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if body.SearchText != "analyst" || body.Limit != 20 {
			t.Errorf("unexpected body: %+v", body)
		}
		offsets = append(offsets, body.Offset)

		resp := workdayListingResponse{Total: 25}
		if body.Offset == 0 {
			resp.JobPostings = []workdayListing{
				{Title: "Investment Banking Analyst", ExternalPath: "/job/New-York/IB-Analyst_JR1", LocationsText: "New York, NY", PostedOn: "Posted Today"},
				{Title: "Managing Director", ExternalPath: "/job/New-York/MD_JR2", LocationsText: "New York, NY", PostedOn: "Posted Today"},
			}
		} else {
			resp.JobPostings = []workdayListing{
				{Title: "Risk Analyst", ExternalPath: "/job/London/Risk_JR3", LocationsText: "London, United Kingdom", PostedOn: "Posted 2 Days Ago"},
				{Title: "Operations Analyst", ExternalPath: "/job/Baltimore/Ops_JR4", LocationsText: "Baltimore, MD", PostedOn: "Posted 30+ Days Ago"},
			}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	a := newWorkdayTestAdapter(srv, filter.NewTitleAndLocationFilter([]string{"analyst"}, true))
	postings, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(offsets) != 2 || offsets[0] != 0 || offsets[1] != 20 {
		t.Errorf("expected offsets [0 20], got %v", offsets)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d: %+v", len(postings), postings)
	}

	p := postings[0]
	if p.Link != "https://ms.wd5.myworkdayjobs.com/en-US/External/job/New-York/IB-Analyst_JR1" {
		t.Errorf("unexpected link %s", p.Link)
	}
	if p.Category != filter.CategoryInvestmentBanking {
		t.Errorf("expected Investment Banking, got %s", p.Category)
	}
	if p.PostedDate == nil || !p.PostedDate.Equal(*datePtr(2026, 3, 10)) {
		t.Errorf("expected posted today, got %v", p.PostedDate)
	}
	if postings[1].Title != "Operations Analyst" || postings[1].Category != filter.CategoryOperations {
		t.Errorf("unexpected second posting %+v", postings[1])
	}
}

func TestWorkdayFetch_StopsOnEmptyPage(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		// Total claims more, but the page is empty.
		w.Write([]byte(`{"total": 500, "jobPostings": []}`))
	}))
	defer srv.Close()

	postings, err := newWorkdayTestAdapter(srv, nil).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 0 || calls != 1 {
		t.Errorf("expected 1 call and no postings, got %d calls, %d postings", calls, len(postings))
	}
}

func TestWorkdayFetch_RespectsPageCeiling(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"total": 100000, "jobPostings": [{"title": "Analyst", "externalPath": "/job/x", "locationsText": "Charlotte"}]}`))
	}))
	defer srv.Close()

	opts := testOptions(srv)
	opts.MaxPages = 3
	a := NewWorkdayAdapter(WorkdayConfig{Key: "wells", Name: "Wells Fargo", APIURL: "https://wd1.myworkdaysite.com/jobs"}, opts)
	if _, err := a.Fetch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWorkdayFetch_Non200ReturnsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newWorkdayTestAdapter(srv, nil).Fetch(context.Background())
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != 429 || httpErr.RetryAfter.Seconds() != 7 {
		t.Errorf("unexpected HTTPError %+v", httpErr)
	}
}

func TestWorkdayFetch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	if _, err := newWorkdayTestAdapter(srv, nil).Fetch(context.Background()); err == nil {
		t.Fatal("expected decode error, got nil")
	}
}

func TestWorkdayFetch_UndecodableResponseIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	_, err := newWorkdayTestAdapter(srv, nil).Fetch(context.Background())
	if !errors.Is(err, model.ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
}
