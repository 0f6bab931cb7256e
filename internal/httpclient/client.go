// Package httpclient wraps net/http with the small slice of CalDAV the
// sync engine needs: conditional PUT and DELETE of calendar objects and a
// depth-0 PROPFIND for etag recovery.
package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// HttpClientWrapper wraps http.Client with CalDAV-specific functionality
type HttpClientWrapper interface {
	DoPUT(ctx context.Context, url string, etag string, data []byte) (newEtag string, err error)
	DoDELETE(ctx context.Context, url string, etag string) error
	DoGetEtag(ctx context.Context, url string) (etag string, err error)
}

type httpClientWrapper struct {
	client  *http.Client
	baseURL url.URL
	logger  *slog.Logger
}

// NewHttpClientWrapper creates a new client wrapper. The logger is
// mandatory; pass a discarding handler to silence it.
func NewHttpClientWrapper(client *http.Client, baseURL url.URL, logger *slog.Logger) (HttpClientWrapper, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &httpClientWrapper{client: client, baseURL: baseURL, logger: logger}, nil
}

// resolveURL resolves a URL string against the base URL
func (c *httpClientWrapper) resolveURL(urlStr string) (*url.URL, error) {
	ref, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", urlStr, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}

// NewObjectURL mints a fresh object URL inside the given collection,
// named by a random UUID with the .ics suffix.
func NewObjectURL(collectionURL string) (string, error) {
	base, err := url.Parse(collectionURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse collection URL: %w", err)
	}
	ref, err := url.Parse(uuid.New().String() + ".ics")
	if err != nil {
		return "", fmt.Errorf("failed to parse object URL: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

// StatusError is returned for responses outside the success range. The
// status code lets callers separate retryable server trouble from
// permanent rejection.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// Temporary reports whether the failure is worth retrying: server-side
// errors are, 4xx rejections are not.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500
}
