// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/doc2md/internal/convert"
	"github.com/pdiddy/doc2md/pkg/types"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// recordingConverter captures the path and content it was asked to convert.
type recordingConverter struct {
	result  types.Result
	err     error
	gotPath string
	gotData string
}

func (r *recordingConverter) Convert(_ context.Context, path string) (types.Result, error) {
	r.gotPath = path
	data, _ := os.ReadFile(path)
	r.gotData = string(data)
	if r.err != nil {
		return types.Result{}, r.err
	}
	return r.result, nil
}

func testConfig(t *testing.T) types.Config {
	t.Helper()
	return types.Config{
		Backend: types.BackendNative,
		Server: types.ServerConfig{
			Addr:          "127.0.0.1:0",
			MaxUploadMB:   1,
			MaxConcurrent: 2,
			TempDir:       t.TempDir(),
		},
	}
}

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/convert", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var er types.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er), rec.Body.String())
	return er.Error
}

func TestConvert_NativeRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	s := New(convert.NewNativeConverter(), cfg, "", nil, "test")

	rec := serve(s, uploadRequest(t, "file", "sample.txt", []byte("Hello <b>&</b>")))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `{"markdown":"Hello <b>&</b>"}`, strings.TrimSpace(rec.Body.String()))

	left, err := os.ReadDir(cfg.Server.TempDir)
	require.NoError(t, err)
	assert.Empty(t, left, "temporary upload should be removed")
}

func TestConvert_TempFileKeepsExtension(t *testing.T) {
	cfg := testConfig(t)
	conv := &recordingConverter{result: types.Result{Markdown: "# ok"}}
	s := New(conv, cfg, "", nil, "test")

	rec := serve(s, uploadRequest(t, "file", "../../Report.DOCX", []byte("payload")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cfg.Server.TempDir, filepath.Dir(conv.gotPath))
	assert.Equal(t, ".docx", filepath.Ext(conv.gotPath))
	assert.NotContains(t, filepath.Base(conv.gotPath), "Report")
	assert.Equal(t, "payload", conv.gotData)
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name       string
		convErr    error
		request    func(t *testing.T) *http.Request
		wantStatus int
		wantError  string
	}{
		{
			name: "no file field",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "document", "a.txt", []byte("x"))
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "No file uploaded",
		},
		{
			name: "not multipart",
			request: func(*testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(`{"file":"a"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "No file uploaded",
		},
		{
			name: "too large",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "big.txt", bytes.Repeat([]byte("a"), 2<<20))
			},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantError:  "File exceeds the 1 MB upload limit",
		},
		{
			name:    "conversion failure",
			convErr: &convert.Error{Path: "/tmp/x.pdf", Err: errors.New("malformed PDF: bad xref")},
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "x.pdf", []byte("x"))
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to convert file: malformed PDF: bad xref",
		},
		{
			name:    "unsupported format",
			convErr: &convert.Error{Path: "/tmp/x.bin", Err: fmt.Errorf("%w: application/octet-stream", convert.ErrUnsupported)},
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "x.bin", []byte{0, 1})
			},
			wantStatus: http.StatusUnsupportedMediaType,
			wantError:  "Failed to convert file: unsupported format: application/octet-stream",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			s := New(&recordingConverter{err: tt.convErr}, cfg, "", nil, "test")

			rec := serve(s, tt.request(t))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, decodeError(t, rec))

			left, err := os.ReadDir(cfg.Server.TempDir)
			require.NoError(t, err)
			assert.Empty(t, left)
		})
	}
}

func TestConvert_BearerToken(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "Basic s3cret", http.StatusUnauthorized},
		{"correct", "Bearer s3cret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&recordingConverter{result: types.Result{Markdown: "ok"}}, testConfig(t), "s3cret", nil, "test")
			req := uploadRequest(t, "file", "a.txt", []byte("a"))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := serve(s, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestConvert_BusyWhenSaturated(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MaxConcurrent = 1
	s := New(&recordingConverter{}, cfg, "", nil, "test")
	require.NoError(t, s.sem.Acquire(context.Background(), 1))
	defer s.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	rec := serve(s, uploadRequest(t, "file", "a.txt", []byte("a")).WithContext(ctx))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Server busy, try again later", decodeError(t, rec))
}

func TestHealth(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend = ""
	s := New(&recordingConverter{}, cfg, "s3cret", nil, "v1.2.3")

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got types.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, types.HealthResponse{Status: "ok", Backend: types.BackendNative, Version: "v1.2.3"}, got)
}

func TestRequestID(t *testing.T) {
	s := New(&recordingConverter{}, testConfig(t), "", nil, "test")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	assert.Equal(t, "abc-123", serve(s, req).Header().Get("X-Request-ID"))

	generated := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Header().Get("X-Request-ID")
	assert.Len(t, generated, 36)
}

func TestNotFound(t *testing.T) {
	s := New(&recordingConverter{}, testConfig(t), "", nil, "test")
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decodeError(t, rec))
}

func TestServe_GracefulShutdown(t *testing.T) {
	s := New(&recordingConverter{result: types.Result{Markdown: "ok"}}, testConfig(t), "", nil, "test")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
