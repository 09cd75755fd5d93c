// Package fetch downloads remote image originals with a bounded timeout.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds a single download end to end.
const DefaultTimeout = 10 * time.Second

const maxImageBytes = 32 * 1024 * 1024 // 32 MB

// Error describes a failed download.
type Error struct {
	URL    string
	Status int // non-zero when the server answered with a non-200
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher downloads remote images. Concurrent requests for the same URL
// share one in-flight download.
type Fetcher struct {
	client *http.Client
	group  singleflight.Group
}

// New returns a fetcher with the given timeout; non-positive means
// DefaultTimeout.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch returns the body bytes at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	v, err, _ := f.group.Do(url, func() (any, error) {
		return f.fetchOnce(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{URL: url, Status: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	return data, nil
}
