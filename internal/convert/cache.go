// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/doc2md/pkg/types"
)

// Cache stores conversion results by content key.
type Cache interface {
	Get(ctx context.Context, key string) (types.Result, bool, error)
	Put(ctx context.Context, key string, res types.Result) error
}

// cachedConverter serves repeated conversions of identical bytes from a
// Cache. Cache failures are logged and never fail a conversion.
type cachedConverter struct {
	next      Converter
	cache     Cache
	namespace string
	log       *zap.Logger
}

// WithCache decorates next with c. namespace separates entries produced by
// different backends or backend settings.
func WithCache(next Converter, c Cache, namespace string, log *zap.Logger) Converter {
	if log == nil {
		log = zap.NewNop()
	}
	return &cachedConverter{next: next, cache: c, namespace: namespace, log: log}
}

func (cc *cachedConverter) Convert(ctx context.Context, path string) (types.Result, error) {
	if err := checkInput(path); err != nil {
		return types.Result{}, err
	}

	key, err := contentKey(cc.namespace, path)
	if err != nil {
		// Let the backend report the read failure in its own terms.
		return cc.next.Convert(ctx, path)
	}

	if res, ok, err := cc.cache.Get(ctx, key); err != nil {
		cc.log.Warn("cache lookup failed", zap.String("path", path), zap.Error(err))
	} else if ok {
		cc.log.Debug("cache hit", zap.String("path", path), zap.String("key", key))
		return res, nil
	}

	res, err := cc.next.Convert(ctx, path)
	if err != nil {
		return types.Result{}, err
	}
	if err := cc.cache.Put(ctx, key, res); err != nil {
		cc.log.Warn("cache store failed", zap.String("path", path), zap.Error(err))
	}
	return res, nil
}

// contentKey hashes namespace, the lowercased file extension and the file
// contents. Backends pick the format from the extension, so identical bytes
// under different extensions get separate entries.
func contentKey(namespace, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(filepath.Ext(path))))
	h.Write([]byte{0})
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// cacheNamespace identifies the output-affecting backend settings.
func cacheNamespace(cfg types.Config) string {
	switch cfg.Backend {
	case types.BackendMarkitdown:
		return string(cfg.Backend) + ":" + cfg.Markitdown.Image
	case types.BackendMarkitdownCLI:
		return string(cfg.Backend) + ":" + cfg.Markitdown.Binary
	case types.BackendService:
		return string(cfg.Backend) + ":" + cfg.Service.URL
	}
	return string(types.BackendNative)
}
