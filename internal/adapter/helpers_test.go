package adapter

import (
	"net/http"
	"net/http/httptest"
	"time"
)

var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// testOptions returns adapter options whose client sends every request,
// whatever its host, to srv.
func testOptions(srv *httptest.Server) Options {
	return Options{
		Client: &http.Client{
			Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
				// Rewrite the URL to hit the test server instead.
				req.URL.Scheme = "http"
				req.URL.Host = srv.Listener.Addr().String()
				return http.DefaultTransport.RoundTrip(req)
			}),
		},
		Now: func() time.Time { return testNow },
	}
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
