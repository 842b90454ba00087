// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/pdiddy/doc2md/pkg/types"
)

// convertDOCX walks word/document.xml. Paragraphs become blocks separated by
// a blank line, Title and HeadingN styles become ATX headings, and list
// paragraphs become bullets.
func convertDOCX(path string) (types.Result, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return types.Result{}, fmt.Errorf("opening DOCX: %w", err)
	}
	defer r.Close()

	return renderDocumentXML(r.Editable().GetContent())
}

type docxParagraph struct {
	style string
	text  strings.Builder
}

func renderDocumentXML(content string) (types.Result, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	dec.Strict = false

	var (
		blocks []string
		title  string
		para   *docxParagraph
		inText bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return types.Result{}, fmt.Errorf("parsing document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para = &docxParagraph{}
			case "pStyle":
				if para != nil {
					para.style = attr(t, "val")
				}
			case "t":
				inText = true
			case "tab":
				if para != nil {
					para.text.WriteString("\t")
				}
			case "br", "cr":
				if para != nil {
					para.text.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if para == nil {
					continue
				}
				text := strings.TrimSpace(para.text.String())
				if text != "" {
					level := headingLevel(para.style)
					if title == "" && level == 1 {
						title = text
					}
					blocks = append(blocks, formatParagraph(para.style, level, text))
				}
				para = nil
			}
		case xml.CharData:
			if inText && para != nil {
				para.text.Write(t)
			}
		}
	}

	return types.Result{Markdown: strings.Join(blocks, "\n\n"), Title: title}, nil
}

// headingLevel maps a paragraph style id to a heading level, 0 for body text.
func headingLevel(style string) int {
	if style == "Title" {
		return 1
	}
	if n, ok := strings.CutPrefix(style, "Heading"); ok {
		if lvl, err := strconv.Atoi(n); err == nil && lvl >= 1 && lvl <= 6 {
			return lvl
		}
	}
	return 0
}

func formatParagraph(style string, level int, text string) string {
	switch {
	case level > 0:
		return strings.Repeat("#", level) + " " + strings.Join(strings.Fields(text), " ")
	case style == "ListParagraph" || strings.HasPrefix(style, "ListBullet"):
		return "- " + text
	}
	return text
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
