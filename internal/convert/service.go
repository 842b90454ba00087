// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/doc2md/internal/httputil"
	"github.com/pdiddy/doc2md/pkg/types"
)

const (
	convertRoute = "/api/convert"
	uploadField  = "file"

	// maxServiceResponse bounds the response body read from the service.
	maxServiceResponse = 256 << 20
)

// ServiceConverter uploads documents to a remote conversion service that
// speaks the /api/convert protocol served by doc2md-server.
type ServiceConverter struct {
	client     *http.Client
	endpoint   string
	token      string
	maxRetries int
}

// NewServiceConverter validates cfg.URL and returns a converter posting to
// cfg.URL + "/api/convert". token, when non-empty, is sent as a bearer token.
func NewServiceConverter(cfg types.ServiceConfig, token string, client *http.Client) (*ServiceConverter, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing service url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("service url %q must be an absolute http(s) URL", cfg.URL)
	}
	return &ServiceConverter{
		client:     client,
		endpoint:   strings.TrimSuffix(u.String(), "/") + convertRoute,
		token:      token,
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Convert uploads the file at path and decodes the service reply.
func (s *ServiceConverter) Convert(ctx context.Context, path string) (types.Result, error) {
	if err := checkInput(path); err != nil {
		return types.Result{}, err
	}

	body, contentType, err := multipartBody(path)
	if err != nil {
		return types.Result{}, fail(path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return types.Result{}, fail(path, fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, s.maxRetries)
	if err != nil {
		return types.Result{}, fail(path, fmt.Errorf("calling conversion service: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxServiceResponse))
	if err != nil {
		return types.Result{}, fail(path, fmt.Errorf("reading service response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return types.Result{}, fail(path, fmt.Errorf("conversion service returned %d: %s", resp.StatusCode, serviceError(data)))
	}

	var payload struct {
		Markdown *string `json:"markdown"`
		Error    string  `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return types.Result{}, fail(path, fmt.Errorf("decoding service response: %w", err))
	}
	if payload.Markdown == nil {
		if payload.Error != "" {
			return types.Result{}, fail(path, fmt.Errorf("conversion service: %s", payload.Error))
		}
		return types.Result{}, fail(path, errors.New("service response has no markdown field"))
	}
	return types.Result{Markdown: *payload.Markdown}, nil
}

// multipartBody builds an in-memory upload so the request can be replayed on
// retry.
func multipartBody(path string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(uploadField, filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("reading file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("building upload: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// serviceError extracts a message from an error body, which is either an
// ErrorResponse or plain text.
func serviceError(data []byte) string {
	var er types.ErrorResponse
	if err := json.Unmarshal(data, &er); err == nil && er.Error != "" {
		return er.Error
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		return "empty response"
	}
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	return msg
}
