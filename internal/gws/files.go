// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gws

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/okrent/forage/internal/fetcherr"
	"github.com/okrent/forage/pkg/types"
)

// FileService implements drive file access on a session.
type FileService struct {
	s *Session
}

// NewFileService wraps a session.
func NewFileService(s *Session) *FileService {
	return &FileService{s: s}
}

type fileResource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MIMEType    string `json:"mimeType"`
	Size        string `json:"size"`
	WebViewLink string `json:"webViewLink"`
}

// Metadata fetches minimal file metadata.
func (f *FileService) Metadata(ctx context.Context, fileID string) (types.FileMetadata, error) {
	u := fmt.Sprintf("%s/files/%s?fields=id,name,mimeType,size,webViewLink&supportsAllDrives=true",
		driveBaseURL, url.PathEscape(fileID))
	var res fileResource
	if err := f.s.getJSON(ctx, u, "file "+fileID, &res); err != nil {
		return types.FileMetadata{}, err
	}
	// The API reports size as a decimal string, absent for native docs.
	size, _ := strconv.ParseInt(res.Size, 10, 64)
	return types.FileMetadata{
		ID:          res.ID,
		Title:       res.Name,
		MIMEType:    res.MIMEType,
		Size:        size,
		WebViewLink: res.WebViewLink,
	}, nil
}

// Download fetches the raw bytes of a binary file.
func (f *FileService) Download(ctx context.Context, fileID string) ([]byte, error) {
	u := fmt.Sprintf("%s/files/%s?alt=media&supportsAllDrives=true", driveBaseURL, url.PathEscape(fileID))
	return f.s.get(ctx, u, "media for "+fileID)
}

// Export exports a native document in the given MIME type.
func (f *FileService) Export(ctx context.Context, fileID, mime string) ([]byte, error) {
	u := fmt.Sprintf("%s/files/%s/export?mimeType=%s", driveBaseURL, url.PathEscape(fileID), url.QueryEscape(mime))
	return f.s.get(ctx, u, "export of "+fileID)
}

// Delete removes a file, used for temporary conversion copies.
func (f *FileService) Delete(ctx context.Context, fileID string) error {
	u := fmt.Sprintf("%s/files/%s?supportsAllDrives=true", driveBaseURL, url.PathEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fetcherr.Wrap(fetcherr.InvalidInput, err, "building delete for %s", fileID)
	}
	_, err = f.s.do(ctx, req, "delete of "+fileID)
	return err
}

// Upload creates a file with content, converting it to the target
// native MIME type when convertTo is set. Returns the new file ID.
func (f *FileService) Upload(ctx context.Context, name string, payload []byte, sourceMIME, convertTo string) (string, error) {
	meta := map[string]string{"name": name}
	if convertTo != "" {
		meta["mimeType"] = convertTo
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fetcherr.Wrap(fetcherr.InvalidInput, err, "encoding upload metadata for %s", name)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	part, err := w.CreatePart(metaHeader)
	if err != nil {
		return "", fetcherr.Wrap(fetcherr.ExtractionFailed, err, "building upload for %s", name)
	}
	part.Write(metaJSON)

	dataHeader := textproto.MIMEHeader{}
	dataHeader.Set("Content-Type", sourceMIME)
	part, err = w.CreatePart(dataHeader)
	if err != nil {
		return "", fetcherr.Wrap(fetcherr.ExtractionFailed, err, "building upload for %s", name)
	}
	part.Write(payload)
	w.Close()

	u := uploadBaseURL + "/files?uploadType=multipart&supportsAllDrives=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return "", fetcherr.Wrap(fetcherr.InvalidInput, err, "building upload for %s", name)
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+w.Boundary())

	respBody, err := f.s.do(ctx, req, "upload of "+name)
	if err != nil {
		return "", err
	}
	var res fileResource
	if err := json.Unmarshal(respBody, &res); err != nil {
		return "", fetcherr.Wrap(fetcherr.ExtractionFailed, err, "decoding upload response for %s", name)
	}
	return res.ID, nil
}
