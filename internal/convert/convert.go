// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns documents into Markdown through pluggable backends:
// an in-process native converter, the markitdown container image, a local
// markitdown binary, or a remote conversion service.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/doc2md/internal/cache"
	"github.com/pdiddy/doc2md/internal/container"
	"github.com/pdiddy/doc2md/internal/secrets"
	"github.com/pdiddy/doc2md/pkg/types"
)

// Converter transforms the document at path into Markdown.
type Converter interface {
	Convert(ctx context.Context, path string) (types.Result, error)
}

// Sentinel causes carried by *Error.
var (
	ErrNoInput     = errors.New("no input file given (usage: doc2md <path>)")
	ErrNotFound    = errors.New("file not found")
	ErrIsDirectory = errors.New("path is a directory")
	ErrUnsupported = errors.New("unsupported format")
)

// Error is the single failure type of a conversion. Path is empty when no
// input was supplied at all.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("converting %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// fail wraps err as an *Error for path unless it already is one.
func fail(path string, err error) error {
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Path: path, Err: err}
}

// checkInput verifies that path names an existing regular file.
func checkInput(path string) error {
	if path == "" {
		return &Error{Err: ErrNoInput}
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Error{Path: path, Err: ErrNotFound}
		}
		return &Error{Path: path, Err: err}
	}
	if info.IsDir() {
		return &Error{Path: path, Err: ErrIsDirectory}
	}
	return nil
}

type options struct {
	log        *zap.Logger
	secrets    secrets.Secrets
	httpClient *http.Client
	runtime    container.Runtime
}

// Option customises New and Build.
type Option func(*options)

// WithLogger sets the logger used by backends and the cache.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithSecrets supplies credentials, used for the service token.
func WithSecrets(s secrets.Secrets) Option {
	return func(o *options) { o.secrets = s }
}

// WithHTTPClient replaces the HTTP client of the service backend.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithRuntime injects a container runtime instead of detecting one.
func WithRuntime(rt container.Runtime) Option {
	return func(o *options) { o.runtime = rt }
}

func newOptions(opts []Option) options {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns the backend selected by cfg.Backend.
func New(ctx context.Context, cfg types.Config, opts ...Option) (Converter, error) {
	o := newOptions(opts)

	switch cfg.Backend {
	case types.BackendNative, "":
		return NewNativeConverter(), nil

	case types.BackendMarkitdown:
		rt := o.runtime
		if rt == nil {
			var err error
			rt, err = container.DetectRuntime(ctx, cfg.Markitdown.Runtime)
			if err != nil {
				return nil, err
			}
		}
		o.log.Debug("container runtime selected", zap.String("runtime", rt.Name()))
		return NewMarkitdownConverter(ctx, rt, cfg.Markitdown.Image)

	case types.BackendMarkitdownCLI:
		return NewCommandConverter(cfg.Markitdown.Binary)

	case types.BackendService:
		client := o.httpClient
		if client == nil {
			client = &http.Client{Timeout: cfg.Service.Timeout}
		}
		token := o.secrets.Or(cfg.Service.Token, secrets.ServiceToken)
		return NewServiceConverter(cfg.Service, token, client)
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// Build returns the configured backend, wrapped with the SQLite conversion
// cache when cfg.Cache.Enabled. The returned close function must be called
// once the converter is no longer used.
func Build(ctx context.Context, cfg types.Config, opts ...Option) (Converter, func() error, error) {
	o := newOptions(opts)

	conv, err := New(ctx, cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Cache.Enabled {
		return conv, func() error { return nil }, nil
	}

	store, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return nil, nil, err
	}
	o.log.Debug("conversion cache enabled", zap.String("path", cfg.Cache.Path))

	if cfg.Cache.MaxAge > 0 {
		n, err := store.Prune(ctx, time.Now().Add(-cfg.Cache.MaxAge))
		if err != nil {
			o.log.Warn("cache prune failed", zap.Error(err))
		} else if n > 0 {
			o.log.Debug("cache pruned", zap.Int64("entries", n))
		}
	}
	return WithCache(conv, store, cacheNamespace(cfg), o.log), store.Close, nil
}
