// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pdiddy/doc2md/pkg/types"
)

// format names a document family the native converter understands.
type format string

const (
	formatText format = "text"
	formatHTML format = "html"
	formatCSV  format = "csv"
	formatTSV  format = "tsv"
	formatPDF  format = "pdf"
	formatDOCX format = "docx"
)

const mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var extFormats = map[string]format{
	".txt":      formatText,
	".text":     formatText,
	".md":       formatText,
	".markdown": formatText,
	".rst":      formatText,
	".log":      formatText,
	".json":     formatText,
	".jsonl":    formatText,
	".xml":      formatText,
	".yaml":     formatText,
	".yml":      formatText,
	".toml":     formatText,
	".ini":      formatText,
	".html":     formatHTML,
	".htm":      formatHTML,
	".xhtml":    formatHTML,
	".csv":      formatCSV,
	".tsv":      formatTSV,
	".pdf":      formatPDF,
	".docx":     formatDOCX,
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NativeConverter converts documents in-process. It needs no external tools.
type NativeConverter struct {
	handlers map[format]func(path string) (types.Result, error)
}

// NewNativeConverter returns a converter for text, HTML, CSV/TSV, PDF and
// DOCX documents.
func NewNativeConverter() *NativeConverter {
	return &NativeConverter{
		handlers: map[format]func(string) (types.Result, error){
			formatText: convertText,
			formatHTML: convertHTML,
			formatCSV:  func(p string) (types.Result, error) { return convertDelimited(p, ',') },
			formatTSV:  func(p string) (types.Result, error) { return convertDelimited(p, '\t') },
			formatPDF:  convertPDF,
			formatDOCX: convertDOCX,
		},
	}
}

// Convert detects the document format from its extension, falling back to
// content sniffing, and converts it.
func (n *NativeConverter) Convert(ctx context.Context, path string) (types.Result, error) {
	if err := checkInput(path); err != nil {
		return types.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return types.Result{}, fail(path, err)
	}

	f, err := detectFormat(path)
	if err != nil {
		return types.Result{}, fail(path, err)
	}

	res, err := n.handlers[f](path)
	if err != nil {
		return types.Result{}, fail(path, err)
	}
	return res, nil
}

// detectFormat trusts a known extension and sniffs the content otherwise.
func detectFormat(path string) (format, error) {
	if f, ok := extFormats[strings.ToLower(filepath.Ext(path))]; ok {
		return f, nil
	}

	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detecting format: %w", err)
	}
	switch {
	case mime.Is("application/pdf"):
		return formatPDF, nil
	case mime.Is(mimeDOCX):
		return formatDOCX, nil
	case mime.Is("text/html"):
		return formatHTML, nil
	case mime.Is("text/csv"):
		return formatCSV, nil
	case mime.Is("text/tab-separated-values"):
		return formatTSV, nil
	}
	for m := mime; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return formatText, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, mime.String())
}

// convertText returns the file contents verbatim, minus a UTF-8 byte order
// mark.
func convertText(path string) (types.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Result{}, fmt.Errorf("reading file: %w", err)
	}
	return types.Result{Markdown: string(bytes.TrimPrefix(data, utf8BOM))}, nil
}
