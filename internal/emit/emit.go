// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package emit writes the single-line JSON documents doc2md prints:
// {"markdown": "..."} on success and {"error": "..."} on failure.
//
// Each document is one line terminated by a newline, with a space after the
// colon, HTML characters left unescaped and non-ASCII text kept as UTF-8.
// The whole line is written with one Write call.
package emit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// fallbackError replaces an empty error message.
const fallbackError = "conversion failed"

// Markdown writes {"markdown": content}.
func Markdown(w io.Writer, content string) error {
	return write(w, "markdown", content)
}

// Error writes {"error": err.Error()}.
func Error(w io.Writer, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = fallbackError
	}
	return write(w, "error", msg)
}

func write(w io.Writer, key, value string) error {
	var buf bytes.Buffer
	buf.WriteString(`{"`)
	buf.WriteString(key)
	buf.WriteString(`": `)

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	// Encode terminates the value with a newline; close the object before it.
	buf.Truncate(buf.Len() - 1)
	buf.WriteString("}\n")

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}
