// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP plumbing shared by the web and
// conversion tiers: a configured client, request construction with the
// pipeline's user agent, and backoff on throttling responses.
package httputil

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/okrent/forage/pkg/types"
)

// RetryBaseDelay is the base duration for exponential backoff on
// HTTP 429 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// NewClient builds the pipeline's HTTP client. Redirects follow the
// default policy; the timeout covers the whole exchange.
func NewClient(cfg types.HTTPConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// NewRequest builds a GET request carrying the pipeline user agent.
func NewRequest(ctx context.Context, url, userAgent string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,*/*;q=0.8")
	return req, nil
}

// DoWithRetry executes a request, retrying HTTP 429 with exponential
// backoff starting at RetryBaseDelay. When maxRetries is 0 the default
// (3) applies. The body of each throttled response is drained before
// the wait; a context cancelled mid-wait returns ctx.Err(). After the
// final attempt the 429 response is returned as-is so the caller can
// map it into its error taxonomy.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	backoff := RetryBaseDelay
	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
