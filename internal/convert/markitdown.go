// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert implements the local conversion backend: documents
// piped through the markitdown container image. It is an offline
// alternative to the remote upload-export converter, selected through
// configuration.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"mime"

	"github.com/okrent/forage/internal/container"
	"github.com/okrent/forage/pkg/types"
)

const imageMarkitdown = "markitdown:latest"

// MarkitdownConverter converts binary documents by piping them through
// the markitdown container image. It depends on a container.Runtime
// (docker or podman) injected at construction time.
type MarkitdownConverter struct {
	runtime container.Runtime
}

// NewMarkitdownConverter creates a converter over the given container
// runtime. It verifies that the markitdown image exists locally before
// returning.
func NewMarkitdownConverter(rt container.Runtime) (*MarkitdownConverter, error) {
	if err := rt.ImageExists(imageMarkitdown); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownConverter{runtime: rt}, nil
}

// Convert pipes the payload through the markitdown container and
// returns the markdown output. The export MIME type is ignored:
// markitdown always emits markdown, which every caller of the local
// backend accepts.
func (m *MarkitdownConverter) Convert(ctx context.Context, req types.ConvertRequest) ([]byte, error) {
	args := []string{"--mime-type", req.SourceMIME}
	if exts, err := mime.ExtensionsByType(req.SourceMIME); err == nil && len(exts) > 0 {
		args = []string{"--extension", exts[0]}
	}

	var out bytes.Buffer
	if err := m.runtime.Run(imageMarkitdown, args, bytes.NewReader(req.Payload), &out); err != nil {
		return nil, fmt.Errorf("converting %s with markitdown: %w", req.NameHint, err)
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("markitdown produced empty output for %s", req.NameHint)
	}
	return out.Bytes(), nil
}
