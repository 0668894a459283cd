// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch routes classified references to type-specific
// extraction strategies, applies the quality-gated tier fallback, and
// deposits the normalized output.
package fetch

import (
	"context"
	"net/http"

	"github.com/okrent/forage/pkg/types"
)

// FileService exposes file metadata and raw media access on the
// backing document service.
type FileService interface {
	// Metadata fetches minimal file metadata without content.
	Metadata(ctx context.Context, fileID string) (types.FileMetadata, error)

	// Download fetches the raw bytes of a binary file.
	Download(ctx context.Context, fileID string) ([]byte, error)

	// Export exports a service-native file in the given MIME type.
	Export(ctx context.Context, fileID, mime string) ([]byte, error)

	// Delete removes a file. Used to clean up temporary conversion
	// copies.
	Delete(ctx context.Context, fileID string) error
}

// DocService exposes structured document access.
type DocService interface {
	Document(ctx context.Context, documentID string) (types.DocData, error)

	// Comments lists open comments; best-effort enrichment, failures
	// degrade to a warning.
	Comments(ctx context.Context, fileID string) ([]types.Comment, error)
}

// SheetService exposes structured spreadsheet access.
type SheetService interface {
	Spreadsheet(ctx context.Context, spreadsheetID string) (types.SheetData, error)
}

// SlidesService exposes structured presentation access.
type SlidesService interface {
	Presentation(ctx context.Context, presentationID string) (types.DeckData, error)

	// Thumbnail renders one slide to an image.
	Thumbnail(ctx context.Context, presentationID, objectID string) ([]byte, error)
}

// MailService exposes thread and attachment access on the mail
// backend.
type MailService interface {
	Thread(ctx context.Context, threadID string) (types.ThreadData, error)
	AttachmentData(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// Converter performs remote format conversion: upload as a
// service-native type, export, delete the temporary copy.
type Converter interface {
	Convert(ctx context.Context, req types.ConvertRequest) ([]byte, error)
}

// PageRenderer renders a URL through a real browser engine and returns
// the hydrated DOM.
type PageRenderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Services bundles the collaborators one worker uses. A Services value
// is owned by exactly one worker at a time; the underlying sessions
// are not safe for sharing.
type Services struct {
	Files   FileService
	Docs    DocService
	Sheets  SheetService
	Slides  SlidesService
	Mail    MailService
	Convert Converter
	HTTP    *http.Client
	Browser PageRenderer

	// Fork mints an independent Services for a concurrent sub-fetch
	// (attachments, thumbnails), so no session is ever driven from two
	// goroutines. Nil means sub-fetches run sequentially on this value.
	Fork Factory
}

// Close releases per-worker resources. Safe on a Services built
// without a browser.
func (s *Services) Close() {
	if c, ok := s.Browser.(interface{ Close() }); ok {
		c.Close()
	}
}

// Factory builds a fresh Services per worker.
type Factory func(ctx context.Context) (*Services, error)
