// Package webclient is the HTTP capability every source talks through.
// Sources depend on the small Client interface, so tests can swap in a stub
// that records which URLs were hit.
package webclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client issues the two kinds of request a source needs: a metadata-only
// HEAD for the image precondition, and a GET for the search itself.
type Client interface {
	// Head never fails on a non-2xx status; callers inspect the headers.
	Head(ctx context.Context, rawURL string, headers http.Header) (*Response, error)

	// Get returns a *StatusError for any non-2xx status.
	Get(ctx context.Context, req *Request) (*Response, error)
}

// Request describes a GET. Query is merged into any query string already
// present on URL. A zero Timeout means the client-wide timeout only.
type Request struct {
	URL     string
	Query   url.Values
	Headers http.Header
	Timeout time.Duration
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// ContentType is a shortcut for the Content-Type header.
func (r *Response) ContentType() string {
	return r.Headers.Get("Content-Type")
}

// StatusError is returned by Get when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// BuildURL merges q into the query string of rawURL.
func BuildURL(rawURL string, q url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	if len(q) == 0 {
		return u.String(), nil
	}
	merged := u.Query()
	for k, vs := range q {
		for _, v := range vs {
			merged.Add(k, v)
		}
	}
	u.RawQuery = merged.Encode()
	return u.String(), nil
}
