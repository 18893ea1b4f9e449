package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/bankradar/internal/model"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// request describes one outbound call to a career site.
type request struct {
	method  string
	url     string
	headers map[string]string
	body    any // JSON-encoded when non-nil
}

// do sends the request and returns the response when the status is 2xx.
// The caller owns the body. Non-2xx responses become *model.HTTPError.
func do(ctx context.Context, client *http.Client, r request) (*http.Response, error) {
	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	method := r.method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("%s %s: unexpected status %d", method, req.URL.Host, resp.StatusCode),
		}
	}
	return resp, nil
}

// doJSON sends the request and decodes a JSON response into out.
func doJSON(ctx context.Context, client *http.Client, r request, out any) error {
	resp, err := do(ctx, client, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w: %v", model.ErrMalformedRecord, err)
	}
	return nil
}

// doDocument sends the request and parses the HTML response.
func doDocument(ctx context.Context, client *http.Client, r request) (*goquery.Document, error) {
	resp, err := do(ctx, client, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return goqueryDocument(resp)
}

func goqueryDocument(resp *http.Response) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// inputValue returns the value of the form input with the given id or name.
func inputValue(doc *goquery.Document, name string) string {
	sel := fmt.Sprintf("input#%s, input[name='%s']", name, name)
	return strings.TrimSpace(doc.Find(sel).First().AttrOr("value", ""))
}

// parseFragment parses an HTML fragment embedded in a JSON payload.
func parseFragment(fragment string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(fragment))
	if err != nil {
		return nil, fmt.Errorf("parse html fragment: %w", err)
	}
	return doc, nil
}
