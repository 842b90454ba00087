// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes a Converter over HTTP. Clients upload a document as
// the multipart field "file" to POST /api/convert and receive the same
// {"markdown": ...} or {"error": ...} payloads the CLI prints.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/doc2md/internal/convert"
	"github.com/pdiddy/doc2md/pkg/types"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server serves conversions over HTTP.
type Server struct {
	conv    convert.Converter
	cfg     types.ServerConfig
	backend types.ConversionBackend
	token   string
	version string
	log     *zap.Logger
	sem     *semaphore.Weighted
	engine  *gin.Engine
}

// New builds a Server around conv. token, when non-empty, is required as a
// bearer token on /api routes.
func New(conv convert.Converter, cfg types.Config, token string, log *zap.Logger, version string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	backend := cfg.Backend
	if backend == "" {
		backend = types.BackendNative
	}
	s := &Server{
		conv:    conv,
		cfg:     cfg.Server,
		backend: backend,
		token:   token,
		version: version,
		log:     log,
		sem:     semaphore.NewWeighted(max(cfg.Server.MaxConcurrent, 1)),
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler, for mounting or testing.
func (s *Server) Handler() http.Handler { return s.engine }

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", ln.Addr().String()), zap.String("backend", string(s.backend)))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.log), corsMiddleware())

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	api.Use(bearerAuth(s.token))
	api.POST("/convert", s.handleConvert)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "Not found"})
	})
	return r
}
