// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okrent/forage/internal/deposit"
	"github.com/okrent/forage/internal/fetcherr"
	"github.com/okrent/forage/pkg/types"
)

func testRouter(t *testing.T, cfg types.FetchConfig) (*Router, *deposit.Manager) {
	t.Helper()
	m := deposit.NewManager(t.TempDir())
	return NewRouter(cfg, m, nil), m
}

func TestFetchDoc(t *testing.T) {
	r, _ := testRouter(t, types.FetchConfig{})
	svc := testServices()
	svc.Docs = &fakeDocs{
		docs: map[string]types.DocData{
			"1DocId": {
				Title: "Project Plan",
				Tabs: []types.DocTab{{
					Title: "Main",
					Paragraphs: []types.Paragraph{
						{Style: "HEADING_1", Text: "Goals"},
						{Style: "NORMAL_TEXT", Text: "Ship by October."},
						{Style: "NORMAL_TEXT", Text: "Item one", Bullet: true},
						{Style: "NORMAL_TEXT", Text: "Sub item", Bullet: true, Nesting: 1},
					},
				}},
			},
		},
	}
	svc.Files.(*fakeFiles).meta["1DocId"] = types.FileMetadata{
		ID: "1DocId", Title: "Project Plan", MIMEType: mimeDoc,
	}

	res, err := r.Fetch(context.Background(), svc, "1DocId")
	if err != nil {
		t.Fatal(err)
	}
	if res.Key != "drive_file--project-plan--1docid" {
		t.Errorf("key = %q", res.Key)
	}
	content, readErr := os.ReadFile(filepath.Join(res.Dir, "content.md"))
	if readErr != nil {
		t.Fatal(readErr)
	}
	text := string(content)
	for _, want := range []string{"# Project Plan", "# Goals", "- Item one", "  - Sub item"} {
		if !strings.Contains(text, want) {
			t.Errorf("content missing %q:\n%s", want, text)
		}
	}
	if res.Manifest.Method != "api" {
		t.Errorf("method = %q", res.Manifest.Method)
	}
}

func TestFetchManifestMatchesDeposit(t *testing.T) {
	r, m := testRouter(t, types.FetchConfig{})
	svc := testServices()
	svc.Docs = &fakeDocs{docs: map[string]types.DocData{
		"1DocId": {Title: "Status", Tabs: []types.DocTab{{
			Title:      "Main",
			Paragraphs: []types.Paragraph{{Style: "NORMAL_TEXT", Text: "All green."}},
		}}},
	}}
	svc.Files.(*fakeFiles).meta["1DocId"] = types.FileMetadata{
		ID: "1DocId", Title: "Status", MIMEType: mimeDoc,
	}

	res, err := r.Fetch(context.Background(), svc, "1DocId")
	if err != nil {
		t.Fatal(err)
	}
	if res.Manifest.FetchedAt.IsZero() {
		t.Error("returned manifest has zero fetch time")
	}

	onDisk, err := m.ReadManifest(res.Key)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Manifest.FetchedAt.Equal(onDisk.FetchedAt) {
		t.Errorf("fetch time %v differs from deposited %v", res.Manifest.FetchedAt, onDisk.FetchedAt)
	}
	if len(res.Manifest.Files) == 0 || len(res.Manifest.Files) != len(onDisk.Files) {
		t.Errorf("file list %v differs from deposited %v", res.Manifest.Files, onDisk.Files)
	}
}

func TestFetchSheetLargeTabGoesToCSV(t *testing.T) {
	r, _ := testRouter(t, types.FetchConfig{})
	svc := testServices()

	big := make([][]string, 300)
	for i := range big {
		big[i] = []string{"a", "b", "c"}
	}
	svc.Sheets = &fakeSheets{sheets: map[string]types.SheetData{
		"1SheetId": {
			Title: "Numbers",
			Tabs: []types.SheetTab{
				{Name: "Small", Values: [][]string{{"h1", "h2"}, {"1", "2"}}},
				{Name: "Big Tab", Values: big},
			},
		},
	}}
	svc.Files.(*fakeFiles).meta["1SheetId"] = types.FileMetadata{
		ID: "1SheetId", Title: "Numbers", MIMEType: mimeSheet,
	}

	res, err := r.Fetch(context.Background(), svc, "1SheetId")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(res.Dir, "tab-big-tab.csv")); err != nil {
		t.Errorf("CSV sidecar missing: %v", err)
	}
	found := false
	for _, w := range res.Manifest.Warnings {
		if strings.Contains(w, "too large for inline rendering") {
			found = true
		}
	}
	if !found {
		t.Errorf("no CSV warning in %v", res.Manifest.Warnings)
	}
}

func TestFetchPDFEscalatesToConversion(t *testing.T) {
	r, _ := testRouter(t, types.FetchConfig{})
	svc := testServices()
	conv := &fakeConverter{output: []byte(strings.Repeat("Converted paragraph with plenty of words in it. ", 20))}
	svc.Convert = conv
	svc.Files.(*fakeFiles).meta["1PdfId"] = types.FileMetadata{
		ID: "1PdfId", Title: "Scanned Report", MIMEType: "application/pdf",
	}
	// Not a parseable PDF: the text layer tier reports insufficient and
	// the ladder escalates.
	svc.Files.(*fakeFiles).data["1PdfId"] = []byte("%PDF-not really")

	res, err := r.Fetch(context.Background(), svc, "1PdfId")
	if err != nil {
		t.Fatal(err)
	}
	if conv.calls != 1 {
		t.Errorf("converter calls = %d, want 1", conv.calls)
	}
	if res.Manifest.Method != "conversion" {
		t.Errorf("method = %q, want conversion", res.Manifest.Method)
	}
	if _, err := os.Stat(filepath.Join(res.Dir, "original.pdf")); err != nil {
		t.Errorf("original bytes not deposited: %v", err)
	}
}

func TestFetchOfficeUsesSingleConversionTier(t *testing.T) {
	r, _ := testRouter(t, types.FetchConfig{})
	svc := testServices()
	conv := &fakeConverter{output: []byte("# Converted\n\nbody")}
	svc.Convert = conv
	svc.Files.(*fakeFiles).meta["1DocxId"] = types.FileMetadata{
		ID: "1DocxId", Title: "Old Memo",
		MIMEType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
	svc.Files.(*fakeFiles).data["1DocxId"] = []byte("fake docx")

	res, err := r.Fetch(context.Background(), svc, "1DocxId")
	if err != nil {
		t.Fatal(err)
	}
	if conv.calls != 1 {
		t.Errorf("converter calls = %d, want 1", conv.calls)
	}
	if res.Manifest.Format != "markdown" {
		t.Errorf("format = %q", res.Manifest.Format)
	}
}

func TestFetchThreadWithAttachments(t *testing.T) {
	r, _ := testRouter(t, types.FetchConfig{})
	svc := testServices()
	svc.Mail = &fakeMail{
		threads: map[string]types.ThreadData{
			"19b0e7fe6f653f69": {
				ThreadID: "19b0e7fe6f653f69",
				Subject:  "Budget review",
				Messages: []types.Message{{
					MessageID: "m1",
					From:      "a@example.com",
					To:        []string{"b@example.com"},
					BodyText:  "See attached.",
					Attachments: []types.Attachment{{
						Filename: "budget.csv", MIMEType: "text/csv",
						Size: 10, AttachmentID: "att1", MessageID: "m1",
					}},
				}},
			},
		},
		attachments: map[string][]byte{"att1": []byte("a,b\n1,2\n")},
	}

	res, err := r.Fetch(context.Background(), svc, "19b0e7fe6f653f69")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(res.Key, "gmail_thread--budget-review--") {
		t.Errorf("key = %q", res.Key)
	}
	if _, err := os.Stat(filepath.Join(res.Dir, "attachment-budget.csv")); err != nil {
		t.Errorf("attachment sidecar missing: %v", err)
	}
	foundNote := false
	for _, c := range res.Cues {
		if strings.Contains(c, "a@example.com") {
			foundNote = true
		}
	}
	if !foundNote {
		t.Errorf("no participant cue in %v", res.Cues)
	}
}

func TestFetchAttachmentReference(t *testing.T) {
	r, _ := testRouter(t, types.FetchConfig{})
	svc := testServices()
	svc.Mail = &fakeMail{
		threads: map[string]types.ThreadData{
			"19b0e7fe6f653f69": {
				Subject: "Notes",
				Messages: []types.Message{{
					MessageID: "m1",
					Attachments: []types.Attachment{{
						Filename: "notes.txt", MIMEType: "text/plain",
						AttachmentID: "att1", MessageID: "m1",
					}},
				}},
			},
		},
		attachments: map[string][]byte{"att1": []byte("plain text body")},
	}

	res, err := r.Fetch(context.Background(), svc, "19b0e7fe6f653f69:notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if res.Manifest.Kind != "attachment_ref" {
		t.Errorf("kind = %q", res.Manifest.Kind)
	}
	if res.Manifest.Format != "plain" {
		t.Errorf("format = %q", res.Manifest.Format)
	}
}

func TestFetchNotFoundMapsCleanly(t *testing.T) {
	r, _ := testRouter(t, types.FetchConfig{})
	svc := testServices()

	_, err := r.Fetch(context.Background(), svc, "1MissingFileId")
	if err == nil {
		t.Fatal("expected error")
	}
	if code, ok := fetcherr.CodeOf(err); !ok || code != fetcherr.NotFound {
		t.Errorf("code = %v, want NOT_FOUND", err)
	}
}

func TestFetchInvalidReference(t *testing.T) {
	r, _ := testRouter(t, types.FetchConfig{})
	_, err := r.Fetch(context.Background(), testServices(), "not a reference")
	if code, ok := fetcherr.CodeOf(err); !ok || code != fetcherr.InvalidInput {
		t.Errorf("code = %v, want INVALID_INPUT", err)
	}
}

func TestFetchFolderRejected(t *testing.T) {
	r, _ := testRouter(t, types.FetchConfig{})
	svc := testServices()
	svc.Files.(*fakeFiles).meta["1FolderId"] = types.FileMetadata{
		ID: "1FolderId", Title: "Shared stuff", MIMEType: mimeFolder,
	}
	_, err := r.Fetch(context.Background(), svc, "1FolderId")
	if code, ok := fetcherr.CodeOf(err); !ok || code != fetcherr.InvalidInput {
		t.Errorf("code = %v, want INVALID_INPUT", err)
	}
}

func TestFetchSlidesThumbnails(t *testing.T) {
	r, _ := testRouter(t, types.FetchConfig{})
	svc := testServices()
	svc.Slides = &fakeSlides{
		decks: map[string]types.DeckData{
			"1DeckId": {
				Title:          "Roadmap",
				PresentationID: "1DeckId",
				Slides: []types.Slide{
					{ObjectID: "p1", Index: 0, Title: "Intro", Texts: []string{"Welcome"}},
					{ObjectID: "p2", Index: 1, Title: "Chart", NeedsThumbnail: true, ThumbnailReason: "chart without extractable text"},
				},
			},
		},
		thumbs: map[string][]byte{"p2": []byte("png-bytes")},
	}
	svc.Files.(*fakeFiles).meta["1DeckId"] = types.FileMetadata{
		ID: "1DeckId", Title: "Roadmap", MIMEType: mimeSlides,
	}

	res, err := r.Fetch(context.Background(), svc, "1DeckId")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(res.Dir, "slide-002.png")); err != nil {
		t.Errorf("thumbnail missing: %v", err)
	}
	foundCue := false
	for _, c := range res.Cues {
		if strings.Contains(c, "thumbnail image") {
			foundCue = true
		}
	}
	if !foundCue {
		t.Errorf("no thumbnail cue in %v", res.Cues)
	}
}
