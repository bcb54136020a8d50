package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	efaTimeout = 10 * time.Second
	ntaTimeout = 15 * time.Second
)

// client performs GET requests with a per-attempt deadline and the shared
// retry policy.
type client struct {
	http      *http.Client
	userAgent string
	retry     RetryPolicy
	logger    *slog.Logger
}

func newClient(cfg Config) *client {
	return &client{
		http:      cfg.HTTPClient,
		userAgent: cfg.UserAgent,
		retry:     cfg.Retry,
		logger:    cfg.Logger,
	}
}

// get fetches rawURL, retrying transient failures, and returns the body of
// the first 200 response.
func (c *client) get(ctx context.Context, rawURL string, timeout time.Duration, header http.Header) ([]byte, error) {
	var body []byte
	err := c.retry.Do(ctx, c.logger, func() error {
		var err error
		body, err = c.getOnce(ctx, rawURL, timeout, header)
		return err
	})
	return body, err
}

func (c *client) getOnce(ctx context.Context, rawURL string, timeout time.Duration, header http.Header) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, statusError(resp.StatusCode, rawURL))
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %w", ErrNotFound, statusError(resp.StatusCode, rawURL))
	default:
		return nil, statusError(resp.StatusCode, rawURL)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}

func statusError(code int, rawURL string) *StatusError {
	if u, err := url.Parse(rawURL); err == nil {
		u.RawQuery = ""
		rawURL = u.String()
	}
	return &StatusError{Code: code, URL: rawURL}
}
