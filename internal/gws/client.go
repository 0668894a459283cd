// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gws implements the fetch collaborators against the Workspace
// REST APIs. One Session per worker; sessions carry their own HTTP
// client and are not shared.
package gws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/okrent/forage/internal/fetcherr"
	"github.com/okrent/forage/internal/httputil"
	"github.com/okrent/forage/pkg/types"
)

// Base URLs as package variables so tests can point a session at a
// local server.
var (
	driveBaseURL  = "https://www.googleapis.com/drive/v3"
	uploadBaseURL = "https://www.googleapis.com/upload/drive/v3"
	docsBaseURL   = "https://docs.googleapis.com/v1"
	sheetsBaseURL = "https://sheets.googleapis.com/v4"
	slidesBaseURL = "https://slides.googleapis.com/v1"
	gmailBaseURL  = "https://gmail.googleapis.com/gmail/v1"
)

// Session is an authenticated connection to the Workspace APIs.
type Session struct {
	http  *http.Client
	token string
	ua    string
}

// NewSession builds a session from a bearer token.
func NewSession(cfg types.HTTPConfig, token string) *Session {
	return &Session{
		http:  httputil.NewClient(cfg),
		token: token,
		ua:    cfg.UserAgent,
	}
}

// get performs an authenticated GET and returns the body. Failure
// statuses map into the error taxonomy; 429 is retried with backoff
// first.
func (s *Session) get(ctx context.Context, url, subject string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fetcherr.Wrap(fetcherr.InvalidInput, err, "building request for %s", subject)
	}
	return s.do(ctx, req, subject)
}

// getJSON performs an authenticated GET and decodes the JSON response.
func (s *Session) getJSON(ctx context.Context, url, subject string, out any) error {
	body, err := s.get(ctx, url, subject)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fetcherr.Wrap(fetcherr.ExtractionFailed, err, "decoding response for %s", subject)
	}
	return nil
}

func (s *Session) do(ctx context.Context, req *http.Request, subject string) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+s.token)
	if s.ua != "" {
		req.Header.Set("User-Agent", s.ua)
	}

	resp, err := httputil.DoWithRetry(ctx, s.http, req, 0)
	if err != nil {
		return nil, fetcherr.Normalize(err, subject)
	}
	defer resp.Body.Close()

	if fe := fetcherr.FromHTTPStatus(resp.StatusCode, subject); fe != nil {
		// Responses carry a JSON error body worth keeping in the cause.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		fe.Cause = fmt.Errorf("response body: %s", snippet)
		return nil, fe
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fetcherr.Normalize(err, subject)
	}
	return body, nil
}
