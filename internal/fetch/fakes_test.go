// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okrent/forage/internal/fetcherr"
	"github.com/okrent/forage/pkg/types"
)

type fakeFiles struct {
	meta    map[string]types.FileMetadata
	data    map[string][]byte
	metaErr error
}

func (f *fakeFiles) Metadata(_ context.Context, id string) (types.FileMetadata, error) {
	if f.metaErr != nil {
		return types.FileMetadata{}, f.metaErr
	}
	m, ok := f.meta[id]
	if !ok {
		return types.FileMetadata{}, fetcherr.New(fetcherr.NotFound, "file %s not found", id)
	}
	return m, nil
}

func (f *fakeFiles) Download(_ context.Context, id string) ([]byte, error) {
	d, ok := f.data[id]
	if !ok {
		return nil, fetcherr.New(fetcherr.NotFound, "media for %s not found", id)
	}
	return d, nil
}

func (f *fakeFiles) Export(_ context.Context, id, mime string) ([]byte, error) {
	return nil, fmt.Errorf("export not stubbed")
}

func (f *fakeFiles) Delete(_ context.Context, id string) error { return nil }

type fakeDocs struct {
	docs        map[string]types.DocData
	comments    map[string][]types.Comment
	commentsErr error
}

func (f *fakeDocs) Document(_ context.Context, id string) (types.DocData, error) {
	d, ok := f.docs[id]
	if !ok {
		return types.DocData{}, fetcherr.New(fetcherr.NotFound, "document %s not found", id)
	}
	return d, nil
}

func (f *fakeDocs) Comments(_ context.Context, id string) ([]types.Comment, error) {
	if f.commentsErr != nil {
		return nil, f.commentsErr
	}
	return f.comments[id], nil
}

type fakeSheets struct {
	sheets map[string]types.SheetData
}

func (f *fakeSheets) Spreadsheet(_ context.Context, id string) (types.SheetData, error) {
	s, ok := f.sheets[id]
	if !ok {
		return types.SheetData{}, fetcherr.New(fetcherr.NotFound, "spreadsheet %s not found", id)
	}
	return s, nil
}

type fakeSlides struct {
	decks    map[string]types.DeckData
	thumbs   map[string][]byte
	thumbErr error
}

func (f *fakeSlides) Presentation(_ context.Context, id string) (types.DeckData, error) {
	d, ok := f.decks[id]
	if !ok {
		return types.DeckData{}, fetcherr.New(fetcherr.NotFound, "presentation %s not found", id)
	}
	return d, nil
}

func (f *fakeSlides) Thumbnail(_ context.Context, _, objectID string) ([]byte, error) {
	if f.thumbErr != nil {
		return nil, f.thumbErr
	}
	return f.thumbs[objectID], nil
}

type fakeMail struct {
	threads     map[string]types.ThreadData
	attachments map[string][]byte
}

func (f *fakeMail) Thread(_ context.Context, id string) (types.ThreadData, error) {
	t, ok := f.threads[id]
	if !ok {
		return types.ThreadData{}, fetcherr.New(fetcherr.NotFound, "thread %s not found", id)
	}
	return t, nil
}

func (f *fakeMail) AttachmentData(_ context.Context, _, attachmentID string) ([]byte, error) {
	d, ok := f.attachments[attachmentID]
	if !ok {
		return nil, fmt.Errorf("attachment %s missing", attachmentID)
	}
	return d, nil
}

type fakeConverter struct {
	output []byte
	err    error
	calls  int
}

func (f *fakeConverter) Convert(_ context.Context, req types.ConvertRequest) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

type fakeBrowser struct {
	html   string
	err    error
	calls  int
	closed bool
}

func (f *fakeBrowser) Render(_ context.Context, url string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.html, nil
}

func (f *fakeBrowser) Close() { f.closed = true }

func testServices() *Services {
	return &Services{
		Files:   &fakeFiles{meta: map[string]types.FileMetadata{}, data: map[string][]byte{}},
		Docs:    &fakeDocs{docs: map[string]types.DocData{}},
		Sheets:  &fakeSheets{sheets: map[string]types.SheetData{}},
		Slides:  &fakeSlides{decks: map[string]types.DeckData{}},
		Mail:    &fakeMail{threads: map[string]types.ThreadData{}},
		Convert: &fakeConverter{},
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}
