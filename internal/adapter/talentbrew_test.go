package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func barclaysFragment(totalPages string, items ...[3]string) string {
	html := `<section id="search-results" data-total-pages="` + totalPages + `"><ul>`
	for _, it := range items {
		html += `<li><a href="` + it[0] + `" class="job-title"><strong>` + it[1] + `</strong></a>` +
			`<div class="job-location">New York, NY</div>` +
			`<div class="job-date"><span>` + it[2] + `</span></div></li>`
	}
	return html + `</ul></section>`
}

func TestBarclaysFetch_TwoQueriesDedup(t *testing.T) {
	type call struct{ keywords, page string }
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/search-jobs/results" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Requested-With") != "XMLHttpRequest" {
			t.Errorf("missing X-Requested-With")
		}
		q := r.URL.Query()
		calls = append(calls, call{q.Get("Keywords"), q.Get("CurrentPage")})

		var fragment string
		switch {
		case q.Get("Keywords") == "" && q.Get("CurrentPage") == "1":
			if q.Get("FacetFilters[1].ID") != "Intern" || q.Get("FacetFilters[1].FieldName") != "job_type" {
				t.Errorf("unexpected facets %v", q)
			}
			fragment = barclaysFragment("2", [3]string{"/job/1", "Summer Analyst &amp; Intern", "23 Feb"})
		case q.Get("Keywords") == "":
			fragment = barclaysFragment("2", [3]string{"/job/2", "Graduate Programme", "1 Mar"})
		default:
			fragment = barclaysFragment("1",
				[3]string{"/job/1", "Summer Analyst &amp; Intern", "23 Feb"},
				[3]string{"/job/3", "Markets Analyst", "bogus"},
			)
		}
		json.NewEncoder(w).Encode(talentBrewResponse{Results: fragment})
	}))
	defer srv.Close()

	postings, err := NewBarclaysAdapter(testOptions(srv)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("expected 3 calls, got %+v", calls)
	}
	if len(postings) != 3 {
		t.Fatalf("expected 3 deduped postings, got %d: %+v", len(postings), postings)
	}

	first := postings[0]
	if first.Title != "Summer Analyst & Intern" {
		t.Errorf("expected decoded title, got %q", first.Title)
	}
	if first.Link != "https://search.jobs.barclays/job/1" || first.Location != "New York, NY" {
		t.Errorf("unexpected posting %+v", first)
	}
	if first.PostedDate == nil || !first.PostedDate.Equal(*datePtr(2026, 2, 23)) {
		t.Errorf("unexpected posted date %v", first.PostedDate)
	}
	if postings[2].Link != "https://search.jobs.barclays/job/3" || postings[2].PostedDate != nil {
		t.Errorf("unexpected third posting %+v", postings[2])
	}
}

func TestCitiFetch_EntryLevelKeepsAnalystsOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/search-jobs/resultspost" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			CurrentPage  int
			FacetFilters []talentBrewFacet
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}

		var fragment string
		if body.FacetFilters[0].ID == "Student and Grad Programs" {
			fragment = `<div data-total-pages="1">
				<a class="sr-job-item__link" href="/job/s1"><h2>Summer Analyst</h2></a><span class="sr-job-location">Tampa, FL</span>
				<a class="sr-job-item__link" href="/job/s2">Technology Intern</a><span class="job sr-job-location">Irving, TX</span>
			</div>`
		} else {
			fragment = `<div data-total-pages="1">
				<a class="sr-job-item__link" href="/job/e1">Operations Analyst</a><span class="sr-job-location">Tampa, FL</span>
				<a class="sr-job-item__link" href="/job/e2">Client Service Associate</a><span class="sr-job-location">Tampa, FL</span>
				<a class="sr-job-item__link" href="/job/s1">Summer Analyst</a><span class="sr-job-location">Tampa, FL</span>
			</div>`
		}
		json.NewEncoder(w).Encode(talentBrewResponse{Results: fragment})
	}))
	defer srv.Close()

	postings, err := NewCitiAdapter(testOptions(srv)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var links []string
	for _, p := range postings {
		links = append(links, p.Link)
	}
	want := []string{"https://jobs.citi.com/job/s1", "https://jobs.citi.com/job/s2", "https://jobs.citi.com/job/e1"}
	if len(links) != len(want) {
		t.Fatalf("expected %v, got %v", want, links)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("links[%d] = %s, want %s", i, links[i], want[i])
		}
	}
	if postings[1].Location != "Irving, TX" {
		t.Errorf("expected location paired by index, got %q", postings[1].Location)
	}
}

func TestBarclaysFetch_StopsOnEmptyPage(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var fragment string
		switch {
		case q.Get("Keywords") != "":
			fragment = barclaysFragment("1", [3]string{"/job/9", "Markets Analyst", "1 Mar"})
		case q.Get("CurrentPage") == "1":
			pages = append(pages, q.Get("CurrentPage"))
			fragment = barclaysFragment("40", [3]string{"/job/1", "Summer Analyst", "23 Feb"})
		default:
			pages = append(pages, q.Get("CurrentPage"))
			fragment = barclaysFragment("40")
		}
		json.NewEncoder(w).Encode(talentBrewResponse{Results: fragment})
	}))
	defer srv.Close()

	postings, err := NewBarclaysAdapter(testOptions(srv)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("expected first query to stop after the empty page 2, fetched pages %v", pages)
	}
	if len(postings) != 2 {
		t.Errorf("expected 2 postings, got %d: %+v", len(postings), postings)
	}
}
