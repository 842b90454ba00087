// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/doc2md/pkg/types"
)

// convertPDF extracts the plain text of every page. Pages are separated by a
// blank line; pages without text are skipped.
func convertPDF(path string) (res types.Result, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			res, err = types.Result{}, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return types.Result{}, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return types.Result{}, fmt.Errorf("reading page %d: %w", i, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}

	return types.Result{Markdown: strings.Join(pages, "\n\n")}, nil
}
