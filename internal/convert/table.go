// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdiddy/doc2md/pkg/types"
)

// convertDelimited renders a CSV or TSV file as a Markdown table whose first
// row is the header. Short rows are padded to the widest row.
func convertDelimited(path string, comma rune) (types.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Result{}, fmt.Errorf("reading file: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	width := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return types.Result{}, fmt.Errorf("parsing table: %w", err)
		}
		if len(rec) > width {
			width = len(rec)
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return types.Result{}, nil
	}

	var b strings.Builder
	writeRow(&b, rows[0], width)
	b.WriteString("|")
	for i := 0; i < width; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows[1:] {
		writeRow(&b, row, width)
	}
	return types.Result{Markdown: strings.TrimSuffix(b.String(), "\n")}, nil
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

func writeRow(b *strings.Builder, row []string, width int) {
	b.WriteString("|")
	for i := 0; i < width; i++ {
		cell := ""
		if i < len(row) {
			cell = cellEscaper.Replace(strings.TrimSpace(row[i]))
		}
		b.WriteString(" ")
		b.WriteString(cell)
		b.WriteString(" |")
	}
	b.WriteString("\n")
}
