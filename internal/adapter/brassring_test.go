package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amishk599/bankradar/internal/model"
)

func brassRingJobJSON(link, title, loc string) string {
	return fmt.Sprintf(`{"Link": %q, "Questions": [{"QuestionName": "jobtitle", "Value": %q}, {"QuestionName": "formtext23", "Value": %q}]}`, link, title, loc)
}

func TestUBSFetch(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/TGnewUI/Search/Home/Home":
			http.SetCookie(w, &http.Cookie{Name: "sess", Value: "abc"})
			fmt.Fprintf(w, `<form><input name="__RequestVerificationToken" type="hidden" value="tok-%s"/>
				<input type="hidden" id="CookieValue" value="enc"/></form>`, r.URL.Query().Get("siteid"))
			return
		}

		if r.Header.Get("Cookie") != "sess=abc" {
			t.Errorf("expected session cookie, got %q", r.Header.Get("Cookie"))
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		site := body["siteId"]
		if r.Header.Get("RFT") != "tok-"+site.(string) {
			t.Errorf("unexpected RFT header %q", r.Header.Get("RFT"))
		}

		switch {
		case site == "5012" && r.URL.Path == "/TgNewUI/Search/Ajax/PowerSearchJobs":
			if body["EncryptedSessionValue"] != "enc" {
				t.Errorf("missing session value")
			}
			fmt.Fprintf(w, `{"JobsCount": 60, "Jobs": {"Job": [%s, %s]}}`,
				brassRingJobJSON("https://jobs.ubs.com/1", "Analyst, Wealth Management", "United States - New York"),
				brassRingJobJSON("https://jobs.ubs.com/2", "Analyst", "Switzerland - Zurich"))
		case site == "5012":
			if body["pageNumber"] != float64(2) {
				t.Errorf("unexpected page %v", body["pageNumber"])
			}
			fmt.Fprintf(w, `{"Jobs": {"Job": [%s]}}`,
				brassRingJobJSON("https://jobs.ubs.com/3", "Risk Analyst", "United States"))
		default:
			fmt.Fprintf(w, `{"JobsCount": 1, "Jobs": {"Job": [%s]}}`,
				brassRingJobJSON("https://jobs.ubs.com/1", "Analyst, Wealth Management", "United States - New York"))
		}
	}))
	defer srv.Close()

	postings, err := NewUBSAdapter(testOptions(srv)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantPaths := []string{
		"/TGnewUI/Search/Home/Home",
		"/TgNewUI/Search/Ajax/PowerSearchJobs",
		"/TgNewUI/Search/Ajax/ProcessSortAndShowMoreJobs",
		"/TGnewUI/Search/Home/Home",
		"/TgNewUI/Search/Ajax/PowerSearchJobs",
	}
	if fmt.Sprint(paths) != fmt.Sprint(wantPaths) {
		t.Errorf("paths = %v, want %v", paths, wantPaths)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d: %+v", len(postings), postings)
	}
	if postings[0].Location != "New York" || postings[0].Category != "Wealth Management" {
		t.Errorf("unexpected first posting %+v", postings[0])
	}
	if postings[1].Location != "" || postings[1].Link != "https://jobs.ubs.com/3" {
		t.Errorf("unexpected second posting %+v", postings[1])
	}
}

func TestUBSFetch_MissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>maintenance</body></html>`)
	}))
	defer srv.Close()

	_, err := NewUBSAdapter(testOptions(srv)).Fetch(context.Background())
	if !errors.Is(err, model.ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
}
