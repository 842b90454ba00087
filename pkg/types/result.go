// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared by the doc2md CLI, its
// converter backends and the upload server.
package types

// Result is the outcome of converting one document.
type Result struct {
	// Markdown is the converted text content. It may be empty.
	Markdown string `json:"markdown"`

	// Title is the document title when the backend can determine one. It is
	// never part of the CLI payload.
	Title string `json:"-"`
}

// ErrorResponse is the payload emitted when a conversion fails.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by the server health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`
	Backend ConversionBackend `json:"backend"`
	Version string            `json:"version"`
}
