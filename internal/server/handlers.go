// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/doc2md/internal/convert"
	"github.com/pdiddy/doc2md/pkg/types"
)

const uploadField = "file"

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{Status: "ok", Backend: s.backend, Version: s.version})
}

// handleConvert stores the upload in a temporary file named after a fresh
// uuid, keeping the original extension so format detection still works, and
// converts it. The temporary file is always removed.
func (s *Server) handleConvert(c *gin.Context) {
	limit := s.cfg.MaxUploadMB << 20
	if c.Request.ContentLength > limit {
		s.tooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fh, err := c.FormFile(uploadField)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
			s.tooLarge(c)
			return
		}
		s.fail(c, http.StatusBadRequest, "No file uploaded", err)
		return
	}

	if err := s.sem.Acquire(c.Request.Context(), 1); err != nil {
		s.fail(c, http.StatusServiceUnavailable, "Server busy, try again later", err)
		return
	}
	defer s.sem.Release(1)

	dir := s.cfg.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	tmp := filepath.Join(dir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
	if err := c.SaveUploadedFile(fh, tmp); err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to store upload", err)
		return
	}
	defer func() {
		if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("removing upload", zap.String("path", tmp), zap.Error(err))
		}
	}()

	res, err := s.conv.Convert(c.Request.Context(), tmp)
	if err != nil {
		// The temporary path means nothing to the client; report the cause.
		cause := err
		var ce *convert.Error
		if errors.As(err, &ce) {
			cause = ce.Err
		}
		status := http.StatusInternalServerError
		if errors.Is(err, convert.ErrUnsupported) {
			status = http.StatusUnsupportedMediaType
		}
		s.fail(c, status, "Failed to convert file: "+cause.Error(), err)
		return
	}

	s.log.Debug("converted upload",
		zap.String("filename", fh.Filename),
		zap.Int64("size", fh.Size),
		zap.Int("markdown_bytes", len(res.Markdown)),
	)
	c.PureJSON(http.StatusOK, res)
}

func (s *Server) tooLarge(c *gin.Context) {
	msg := fmt.Sprintf("File exceeds the %d MB upload limit", s.cfg.MaxUploadMB)
	s.fail(c, http.StatusRequestEntityTooLarge, msg, nil)
}

func (s *Server) fail(c *gin.Context, status int, msg string, err error) {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("request_id", c.GetString(ctxRequestID)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.log.Warn(msg, fields...)
	c.AbortWithStatusJSON(status, types.ErrorResponse{Error: msg})
}
