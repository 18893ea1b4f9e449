package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStifelFetch(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages = append(pages, r.URL.Query().Get("pr"))
		if r.URL.Query().Get("ics_keywords") != "analyst intern" {
			t.Errorf("unexpected keywords %q", r.URL.Query().Get("ics_keywords"))
		}
		switch r.URL.Query().Get("pr") {
		case "1":
			fmt.Fprint(w, `<html><body>
				<div class="iCIMS_PagingControl" data-total-pages="3"></div>
				<table>
				<tr><td><a class="iCIMS_JobsTable_Link" href="https://careers-stifel.icims.com/jobs/1/analyst/job">Research Analyst</a></td>
				    <td><span class="iCIMS_JobsTable_Location">US-MO-St. Louis</span></td></tr>
				<tr><td><a class="iCIMS_JobsTable_Link" href="/jobs/2/intern/job">Summer Intern</a></td>
				    <td><span class="iCIMS_JobsTable_Location">UK-London</span></td></tr>
				<tr><td><a class="iCIMS_JobsTable_Link" href="/jobs/3/vp/job">Vice President</a></td>
				    <td><span class="iCIMS_JobsTable_Location">US-NY-New York</span></td></tr>
				</table></body></html>`)
		case "2":
			fmt.Fprint(w, `<html><body>
				<div class="iCIMS_PagingControl" data-total-pages="3"></div>
				<a class="iCIMS_JobsTable_Link" href="/jobs/4/analyst/job">Operations Analyst</a>
				<span class="iCIMS_JobsTable_Location">US-MD-Baltimore</span>
				<a class="iCIMS_JobsTable_Link" href="https://careers-stifel.icims.com/jobs/1/analyst/job">Research Analyst</a>
				<span class="iCIMS_JobsTable_Location">US-MO-St. Louis</span>
				</body></html>`)
		default:
			fmt.Fprint(w, `<html><body><p>No jobs</p></body></html>`)
		}
	}))
	defer srv.Close()

	postings, err := NewStifelAdapter(testOptions(srv)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 3 {
		t.Errorf("expected 3 pages (stop on empty), got %v", pages)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d: %+v", len(postings), postings)
	}
	if postings[1].Link != "https://careers-stifel.icims.com/jobs/4/analyst/job" {
		t.Errorf("expected relative href resolved, got %s", postings[1].Link)
	}
	if postings[0].Location != "US-MO-St. Louis" {
		t.Errorf("unexpected location %q", postings[0].Location)
	}
}

func TestStifelFetch_CapsAtTenPages(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprintf(w, `<div class="iCIMS_PagingControl" data-total-pages="40"></div>
			<a class="iCIMS_JobsTable_Link" href="/jobs/%d/job">Analyst</a>
			<span class="iCIMS_JobsTable_Location">US-NY-New York</span>`, calls)
	}))
	defer srv.Close()

	postings, err := NewStifelAdapter(testOptions(srv)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != icimsMaxPages || len(postings) != icimsMaxPages {
		t.Errorf("expected %d calls and postings, got %d calls, %d postings", icimsMaxPages, calls, len(postings))
	}
}
