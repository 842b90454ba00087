// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"

	"github.com/pdiddy/doc2md/pkg/types"
)

// convertHTML renders the document body as GitHub flavoured Markdown. The
// <head> is dropped; its <title> is reported separately.
func convertHTML(path string) (types.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Result{}, fmt.Errorf("reading file: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	conv.Remove("head", "script", "style", "noscript")

	markdown, err := conv.ConvertString(string(data))
	if err != nil {
		return types.Result{}, fmt.Errorf("converting HTML: %w", err)
	}
	return types.Result{Markdown: markdown, Title: htmlTitle(data)}, nil
}

// htmlTitle returns the trimmed text of the first <title> element.
func htmlTitle(data []byte) string {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	var find func(*html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			return strings.Join(strings.Fields(sb.String()), " ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := find(c); t != "" {
				return t
			}
		}
		return ""
	}
	return find(doc)
}
