// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ref classifies opaque content references into a kind and a
// normalized identifier. Classification is a pure function: no network,
// no side effects, and a reference is never reclassified mid-pipeline.
package ref

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Kind is the classified content kind of a reference.
type Kind int

const (
	KindUnknown Kind = iota
	KindDriveFile
	KindGmailThread
	KindWebURL
	KindAttachment
)

func (k Kind) String() string {
	switch k {
	case KindDriveFile:
		return "drive_file"
	case KindGmailThread:
		return "gmail_thread"
	case KindWebURL:
		return "web_url"
	case KindAttachment:
		return "attachment_ref"
	default:
		return "unknown"
	}
}

// Sentinel errors interpreted by the router. The classifier never
// constructs a caller-facing error shape itself.
var (
	// ErrInvalidInput marks empty or unparseable references.
	ErrInvalidInput = errors.New("invalid reference")

	// ErrNotConvertible marks mail web tokens in the self-sent
	// (thread-a) sub-format, which has no algorithmic mapping to an
	// API thread ID.
	ErrNotConvertible = errors.New("web token format not convertible")
)

// Document-service hosts whose URLs embed a drive file ID.
var driveHosts = []string{
	"docs.google.com",
	"sheets.google.com",
	"slides.google.com",
	"drive.google.com",
}

var (
	// drivePathPattern matches /d/{id} and /folders/{id} URL segments.
	drivePathPattern = regexp.MustCompile(`/(?:d|folders)/([a-zA-Z0-9_-]+)`)

	// driveQueryPattern matches the ?id={id} query form.
	driveQueryPattern = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)

	// driveIDPattern matches a bare drive file ID.
	driveIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// mailAPIIDPattern matches an API thread ID: 16 lowercase hex chars.
	mailAPIIDPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

	// mailURLPattern captures the token segment of a mail web URL.
	mailURLPattern = regexp.MustCompile(`https?://mail\.google\.com/mail/.*#[^/]+/([a-zA-Z0-9_-]+)`)

	// attachmentPattern matches "{threadID}:{filename}" attachment
	// pointers.
	attachmentPattern = regexp.MustCompile(`^([0-9a-f]{16}):(.+)$`)
)

// mailWebIDPrefixes are the known prefixes of mail web UI tokens.
var mailWebIDPrefixes = []string{"FM", "KtbxL", "QgrcJHs", "CLL", "Gtj"}

// Reference is a classified content reference. Immutable once built.
type Reference struct {
	Raw  string
	Kind Kind

	// ID is the normalized identifier: drive file ID, 16-hex thread ID,
	// the URL itself, or "{threadID}:{filename}" for attachments.
	ID string
}

// Classify determines the reference kind and normalizes the identifier.
// It returns ErrInvalidInput for empty or ambiguous input and
// ErrNotConvertible for mail web tokens in the non-convertible
// sub-format; it never guesses.
func Classify(raw string) (Reference, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Reference{}, fmt.Errorf("empty reference: %w", ErrInvalidInput)
	}

	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return classifyURL(raw, trimmed)
	}

	// API thread ID as-is.
	if mailAPIIDPattern.MatchString(trimmed) {
		return Reference{Raw: raw, Kind: KindGmailThread, ID: trimmed}, nil
	}

	// Attachment pointer: {threadID}:{filename}.
	if m := attachmentPattern.FindStringSubmatch(trimmed); m != nil {
		return Reference{Raw: raw, Kind: KindAttachment, ID: trimmed}, nil
	}

	// Mail web token — requires conversion, which only the thread-f
	// sub-format supports.
	if hasMailWebPrefix(trimmed) {
		id, err := ConvertWebToken(trimmed)
		if err != nil {
			return Reference{}, err
		}
		return Reference{Raw: raw, Kind: KindGmailThread, ID: id}, nil
	}

	// Anything in the drive ID alphabet is an opaque drive file ID.
	if driveIDPattern.MatchString(trimmed) {
		return Reference{Raw: raw, Kind: KindDriveFile, ID: trimmed}, nil
	}

	return Reference{}, fmt.Errorf("unrecognized reference %q: %w", trimmed, ErrInvalidInput)
}

func classifyURL(raw, trimmed string) (Reference, error) {
	u, err := url.Parse(trimmed)
	if err != nil {
		return Reference{}, fmt.Errorf("unparseable URL %q: %w", trimmed, ErrInvalidInput)
	}
	host := strings.ToLower(u.Hostname())

	if host == "mail.google.com" {
		m := mailURLPattern.FindStringSubmatch(trimmed)
		if m == nil {
			return Reference{}, fmt.Errorf("no token in mail URL %q: %w", trimmed, ErrInvalidInput)
		}
		id, err := ConvertWebToken(m[1])
		if err != nil {
			return Reference{}, err
		}
		return Reference{Raw: raw, Kind: KindGmailThread, ID: id}, nil
	}

	for _, h := range driveHosts {
		if host != h {
			continue
		}
		if m := drivePathPattern.FindStringSubmatch(trimmed); m != nil {
			return Reference{Raw: raw, Kind: KindDriveFile, ID: m[1]}, nil
		}
		if m := driveQueryPattern.FindStringSubmatch(trimmed); m != nil {
			return Reference{Raw: raw, Kind: KindDriveFile, ID: m[1]}, nil
		}
		return Reference{}, fmt.Errorf("no file ID in document URL %q: %w", trimmed, ErrInvalidInput)
	}

	return Reference{Raw: raw, Kind: KindWebURL, ID: trimmed}, nil
}

func hasMailWebPrefix(s string) bool {
	for _, p := range mailWebIDPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// SplitAttachment splits a classified attachment reference into its
// thread ID and attachment filename.
func SplitAttachment(id string) (threadID, filename string, err error) {
	m := attachmentPattern.FindStringSubmatch(id)
	if m == nil {
		return "", "", fmt.Errorf("malformed attachment reference %q: %w", id, ErrInvalidInput)
	}
	return m[1], m[2], nil
}
