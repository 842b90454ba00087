// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/doc2md/internal/httputil"
	"github.com/pdiddy/doc2md/pkg/types"
)

func newServiceConverter(t *testing.T, srv *httptest.Server, token string) *ServiceConverter {
	t.Helper()
	conv, err := NewServiceConverter(types.ServiceConfig{URL: srv.URL + "/", MaxRetries: 2}, token, srv.Client())
	require.NoError(t, err)
	return conv
}

func TestServiceConverter_Success(t *testing.T) {
	var gotPath, gotAuth, gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		gotName = hdr.Filename
		data, _ := io.ReadAll(f)
		gotBody = string(data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"markdown": "# Hi"}`)
	}))
	defer srv.Close()

	path := writeTemp(t, "notes.docx", []byte("docx bytes"))
	res, err := newServiceConverter(t, srv, "s3cret").Convert(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "# Hi", res.Markdown)
	assert.Equal(t, "/api/convert", gotPath)
	assert.Equal(t, "Bearer s3cret", gotAuth)
	assert.Equal(t, "notes.docx", gotName)
	assert.Equal(t, "docx bytes", gotBody)
}

func TestServiceConverter_EmptyMarkdownIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"markdown": ""}`)
	}))
	defer srv.Close()

	res, err := newServiceConverter(t, srv, "").Convert(context.Background(), writeTemp(t, "e.txt", nil))
	require.NoError(t, err)
	assert.Empty(t, res.Markdown)
}

func TestServiceConverter_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "json error", status: http.StatusInternalServerError, body: `{"error":"Failed to convert file: bad zip"}`, wantMsg: "conversion service returned 500: Failed to convert file: bad zip"},
		{name: "text error", status: http.StatusBadRequest, body: "No file uploaded\n", wantMsg: "conversion service returned 400: No file uploaded"},
		{name: "empty error body", status: http.StatusUnauthorized, body: "", wantMsg: "returned 401: empty response"},
		{name: "missing markdown field", status: http.StatusOK, body: `{"text":"x"}`, wantMsg: "no markdown field"},
		{name: "error field on 200", status: http.StatusOK, body: `{"error":"nope"}`, wantMsg: "conversion service: nope"},
		{name: "invalid json", status: http.StatusOK, body: `<html>`, wantMsg: "decoding service response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			path := writeTemp(t, "a.pdf", []byte("x"))
			_, err := newServiceConverter(t, srv, "").Convert(context.Background(), path)
			require.Error(t, err)

			var ce *Error
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, path, ce.Path)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestServiceConverter_RetriesUnavailable(t *testing.T) {
	orig := httputil.RetryBaseDelay
	httputil.RetryBaseDelay = time.Millisecond
	defer func() { httputil.RetryBaseDelay = orig }()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		_, _ = io.WriteString(w, `{"markdown": "`+string(data)+`"}`)
	}))
	defer srv.Close()

	res, err := newServiceConverter(t, srv, "").Convert(context.Background(), writeTemp(t, "a.txt", []byte("replayed")))
	require.NoError(t, err)
	assert.Equal(t, "replayed", res.Markdown)
	assert.Equal(t, int32(2), calls.Load())
}

func TestServiceConverter_MissingFileSkipsRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls.Add(1) }))
	defer srv.Close()

	_, err := newServiceConverter(t, srv, "").Convert(context.Background(), "/no/such.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, calls.Load())
}

func TestNewServiceConverter_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:5000", "ftp://host", "http://", "://bad"} {
		_, err := NewServiceConverter(types.ServiceConfig{URL: raw}, "", http.DefaultClient)
		assert.Error(t, err, "url %q", raw)
	}
}
