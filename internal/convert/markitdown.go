// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/doc2md/internal/container"
	"github.com/pdiddy/doc2md/pkg/types"
)

// MarkitdownConverter converts documents by piping them through the
// markitdown container image. It depends on a container.Runtime (docker or
// podman) injected at construction time.
type MarkitdownConverter struct {
	runtime container.Runtime
	image   string
}

// NewMarkitdownConverter creates a converter that runs image through rt. It
// verifies that the image exists locally before returning.
func NewMarkitdownConverter(ctx context.Context, rt container.Runtime, image string) (*MarkitdownConverter, error) {
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownConverter{runtime: rt, image: image}, nil
}

// Convert streams the file at path into the container and returns what it
// prints. Empty output is a valid, empty conversion.
func (m *MarkitdownConverter) Convert(ctx context.Context, path string) (types.Result, error) {
	if err := checkInput(path); err != nil {
		return types.Result{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return types.Result{}, fail(path, fmt.Errorf("opening file: %w", err))
	}
	defer f.Close()

	var out bytes.Buffer
	if err := m.runtime.Run(ctx, m.image, extensionHint(path), f, &out); err != nil {
		return types.Result{}, fail(path, fmt.Errorf("markitdown: %w", err))
	}
	return types.Result{Markdown: out.String()}, nil
}

// extensionHint tells markitdown the input type, which it cannot see on stdin.
func extensionHint(path string) []string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return nil
	}
	return []string{"-x", ext}
}
