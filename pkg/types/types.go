// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the contracts between pipeline layers: service
// adapters produce these structures from API responses, extraction
// strategies consume them and return content, and the deposit layer
// persists the result.
package types

import "time"

// Format identifies the primary content format of an extraction.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatPlain    Format = "plain"
)

// FileMetadata is the minimal metadata returned by the metadata-fetch
// collaborator before any content is retrieved.
type FileMetadata struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`

	// WebViewLink is the human-facing URL, when the backing service
	// provides one.
	WebViewLink string `json:"web_view_link,omitempty"`
}

// ExtractionResult is the normalized output of one extraction strategy.
// Warnings are append-only while the result is being built and frozen
// once the strategy returns.
type ExtractionResult struct {
	Content string
	Format  Format

	// Method names the tier that produced the content ("textlayer",
	// "conversion", "http", "browser", ...).
	Method string

	// CharCount is len of the trimmed content, recorded for the manifest.
	CharCount int

	Warnings []string

	// Notes are informational cue lines the strategy wants surfaced
	// alongside the warnings: participants of a thread, its date range.
	Notes []string

	// RawBytes carries the original binary when the caller may want it
	// (web-fetched PDFs, image attachments).
	RawBytes []byte

	// Auxiliary maps deposit filenames to extra payloads: per-tab CSVs,
	// slide thumbnails, extracted attachments.
	Auxiliary map[string][]byte
}

// Paragraph is one block of a document tab. Style follows the source
// service's paragraph style names (NORMAL_TEXT, HEADING_1..HEADING_6).
type Paragraph struct {
	Style   string
	Text    string
	Bullet  bool
	Nesting int
}

// DocTab is a single tab of a document. Legacy single-tab documents are
// normalized to a one-element tab list by the adapter.
type DocTab struct {
	Title      string
	Index      int
	Paragraphs []Paragraph
}

// DocData is the typed document structure consumed by the doc strategy.
type DocData struct {
	Title      string
	DocumentID string
	Tabs       []DocTab
}

// SheetTab is one tab of a spreadsheet, values already formatted as
// display strings.
type SheetTab struct {
	Name   string
	Values [][]string
}

// SheetData is the typed spreadsheet structure consumed by the sheet
// strategy.
type SheetData struct {
	Title         string
	SpreadsheetID string
	Tabs          []SheetTab
}

// SlideTable is a table placed on a slide.
type SlideTable struct {
	Rows [][]string
}

// Slide is a single slide of a presentation.
type Slide struct {
	ObjectID string
	Index    int
	Title    string
	Texts    []string
	Tables   []SlideTable
	Notes    string

	// NeedsThumbnail marks slides whose visual content is not captured
	// by the text extraction (charts, diagrams, fragmented text).
	NeedsThumbnail  bool
	ThumbnailReason string
}

// DeckData is the typed presentation structure consumed by the slides
// strategy.
type DeckData struct {
	Title          string
	PresentationID string
	Slides         []Slide
}

// Attachment describes an attachment on a mail message. Content is nil
// until fetched through the blob capability.
type Attachment struct {
	Filename     string
	MIMEType     string
	Size         int64
	AttachmentID string
	MessageID    string
}

// Message is a single mail message within a thread.
type Message struct {
	MessageID   string
	From        string
	To          []string
	Cc          []string
	Subject     string
	Date        time.Time
	BodyText    string
	Attachments []Attachment
}

// ThreadData is the typed mail thread structure consumed by the thread
// strategy.
type ThreadData struct {
	ThreadID string
	Subject  string
	Messages []Message
}

// Comment is an open comment on a document, fetched as best-effort
// enrichment.
type Comment struct {
	Author     string
	Content    string
	QuotedText string
	Resolved   bool
	CreatedAt  time.Time
}

// ConvertRequest describes one remote conversion: upload the payload as
// SourceMIME, convert to TargetType, export as ExportMIME, delete the
// temporary copy.
type ConvertRequest struct {
	Payload    []byte
	SourceMIME string

	// TargetType is the intermediate service-native format: "doc",
	// "sheet", or "slides".
	TargetType string

	// ExportMIME is the final export format ("text/markdown",
	// "text/csv", "text/plain").
	ExportMIME string

	// NameHint is used for naming the temporary remote copy so orphans
	// are attributable.
	NameHint string
}
