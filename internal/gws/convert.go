// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gws

import (
	"context"
	"fmt"

	"github.com/okrent/forage/pkg/types"
)

// Native MIME types the converter targets.
var nativeMIMEs = map[string]string{
	"doc":    "application/vnd.google-apps.document",
	"sheet":  "application/vnd.google-apps.spreadsheet",
	"slides": "application/vnd.google-apps.presentation",
}

// ConvertService performs remote conversion through the drive import
// pipeline: upload-as-native, export, delete.
type ConvertService struct {
	files *FileService
}

// NewConvertService wraps a file service.
func NewConvertService(files *FileService) *ConvertService {
	return &ConvertService{files: files}
}

// Convert uploads the payload for conversion and exports it in the
// requested format. The temporary copy is deleted best-effort; an
// orphan is findable by its name prefix.
func (c *ConvertService) Convert(ctx context.Context, req types.ConvertRequest) ([]byte, error) {
	native, ok := nativeMIMEs[req.TargetType]
	if !ok {
		return nil, fmt.Errorf("unknown conversion target %q", req.TargetType)
	}

	name := "forage-tmp-" + req.NameHint
	fileID, err := c.files.Upload(ctx, name, req.Payload, req.SourceMIME, native)
	if err != nil {
		return nil, fmt.Errorf("uploading for conversion: %w", err)
	}
	defer c.files.Delete(context.WithoutCancel(ctx), fileID)

	out, err := c.files.Export(ctx, fileID, req.ExportMIME)
	if err != nil {
		return nil, fmt.Errorf("exporting converted copy: %w", err)
	}
	return out, nil
}
