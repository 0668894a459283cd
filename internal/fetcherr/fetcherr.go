// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetcherr defines the closed error taxonomy surfaced by the
// fetch pipeline. Every failure leaving the pipeline is one of the
// codes below; raw transport errors never reach callers.
package fetcherr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
)

// Code is a stable machine-readable failure category.
type Code string

const (
	// AuthExpired means credentials are present but no longer valid.
	AuthExpired Code = "AUTH_EXPIRED"

	// NotFound means the referenced content does not exist or is not
	// visible to the caller.
	NotFound Code = "NOT_FOUND"

	// PermissionDenied means the content exists but access is refused,
	// including paywalls and bot challenges.
	PermissionDenied Code = "PERMISSION_DENIED"

	// RateLimited means the upstream throttled the request. Retryable.
	RateLimited Code = "RATE_LIMITED"

	// NetworkError means a transport-level failure or timeout. Retryable.
	NetworkError Code = "NETWORK_ERROR"

	// InvalidInput means the reference could not be understood.
	InvalidInput Code = "INVALID_INPUT"

	// ExtractionFailed means every tier was exhausted without producing
	// acceptable content.
	ExtractionFailed Code = "EXTRACTION_FAILED"
)

// Retryable reports whether a failure with this code is worth retrying
// without any change on the caller's side.
func (c Code) Retryable() bool {
	return c == RateLimited || c == NetworkError
}

// Error is the caller-facing failure shape.
type Error struct {
	Code    Code
	Message string

	// Trail lists the tiers attempted and why each fell through, set for
	// ExtractionFailed so the failure is diagnosable.
	Trail []string

	// Cause is the underlying error, kept for logs but never required
	// for programmatic handling.
	Cause error
}

func (e *Error) Error() string {
	if len(e.Trail) > 0 {
		return fmt.Sprintf("%s: %s (tried: %s)", e.Code, e.Message, strings.Join(e.Trail, "; "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a taxonomy error.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a taxonomy error around a cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Exhausted builds an ExtractionFailed error carrying the tier trail.
func Exhausted(message string, trail []string) *Error {
	return &Error{Code: ExtractionFailed, Message: message, Trail: trail}
}

// CodeOf extracts the taxonomy code from any error, returning ok=false
// for errors that have not been normalized.
func CodeOf(err error) (Code, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code, true
	}
	return "", false
}

// FromHTTPStatus maps an HTTP response status to a taxonomy error, or
// nil for success statuses.
func FromHTTPStatus(status int, subject string) *Error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return New(AuthExpired, "credentials rejected fetching %s", subject)
	case status == http.StatusForbidden:
		return New(PermissionDenied, "access denied fetching %s", subject)
	case status == http.StatusNotFound || status == http.StatusGone:
		return New(NotFound, "%s not found", subject)
	case status == http.StatusTooManyRequests:
		return New(RateLimited, "rate limited fetching %s", subject)
	case status >= 500:
		return New(NetworkError, "upstream error %d fetching %s", status, subject)
	default:
		return New(ExtractionFailed, "unexpected status %d fetching %s", status, subject)
	}
}

// Normalize maps an arbitrary error into the taxonomy. Already
// normalized errors pass through unchanged; transport timeouts and
// cancellations become NetworkError; everything else becomes
// ExtractionFailed so the closed set holds.
func Normalize(err error, subject string) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Wrap(NetworkError, err, "timed out fetching %s", subject)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return Wrap(NetworkError, err, "network failure fetching %s", subject)
	}
	if errors.Is(err, os.ErrNotExist) {
		return Wrap(NotFound, err, "%s not found", subject)
	}
	if errors.Is(err, os.ErrPermission) {
		return Wrap(PermissionDenied, err, "access denied for %s", subject)
	}
	return Wrap(ExtractionFailed, err, "extraction failed for %s", subject)
}
