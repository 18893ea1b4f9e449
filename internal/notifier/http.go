package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/amishk599/bankradar/internal/model"
)

// send executes req and turns a non-2xx response into *model.HTTPError
// carrying the start of the response body.
func send(ctx context.Context, client *http.Client, req *http.Request) error {
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(snippet))),
		}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
