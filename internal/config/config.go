// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves doc2md settings from defaults, an optional YAML file
// and DOC2MD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/doc2md/pkg/types"
)

const (
	envPrefix  = "DOC2MD"
	configName = "doc2md"
	appDir     = "doc2md"
)

// Defaults used when nothing else sets a key.
const (
	DefaultImage         = "markitdown:latest"
	DefaultBinary        = "markitdown"
	DefaultSecretsDir    = ".secrets"
	DefaultTimeout       = 60 * time.Second
	DefaultMaxRetries    = 3
	DefaultAddr          = ":5000"
	DefaultMaxUploadMB   = 50
	DefaultMaxConcurrent = 4
)

// SetDefaults registers every key with its default so that environment
// variables bind even when no config file mentions the key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", string(types.BackendNative))
	v.SetDefault("secrets_dir", DefaultSecretsDir)

	v.SetDefault("markitdown.image", DefaultImage)
	v.SetDefault("markitdown.runtime", "")
	v.SetDefault("markitdown.binary", DefaultBinary)

	v.SetDefault("service.url", "")
	v.SetDefault("service.timeout", DefaultTimeout)
	v.SetDefault("service.max_retries", DefaultMaxRetries)
	v.SetDefault("service.token", "")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", defaultCachePath())
	v.SetDefault("cache.max_age", time.Duration(0))

	v.SetDefault("log.level", "")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("server.max_upload_mb", DefaultMaxUploadMB)
	v.SetDefault("server.max_concurrent", DefaultMaxConcurrent)
	v.SetDefault("server.temp_dir", "")
	v.SetDefault("server.token", "")
}

// Load reads configuration into a types.Config. When file is empty the
// working directory and ~/.config/doc2md are searched for doc2md.yaml; a
// missing file is not an error. An explicitly named file must exist.
func Load(v *viper.Viper, file string) (types.Config, error) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", appDir))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can act on.
func Validate(cfg types.Config) error {
	if !cfg.Backend.Valid() {
		return fmt.Errorf("unknown backend %q (want one of %s)", cfg.Backend, backendList())
	}
	if cfg.Backend == types.BackendService && cfg.Service.URL == "" {
		return fmt.Errorf("backend %q requires service.url", cfg.Backend)
	}
	switch cfg.Markitdown.Runtime {
	case "", "docker", "podman":
	default:
		return fmt.Errorf("unknown container runtime %q (want docker or podman)", cfg.Markitdown.Runtime)
	}
	if cfg.Service.MaxRetries < 0 {
		return fmt.Errorf("service.max_retries must not be negative, got %d", cfg.Service.MaxRetries)
	}
	if cfg.Cache.MaxAge < 0 {
		return fmt.Errorf("cache.max_age must not be negative, got %s", cfg.Cache.MaxAge)
	}
	if cfg.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive, got %d", cfg.Server.MaxUploadMB)
	}
	if cfg.Server.MaxConcurrent <= 0 {
		return fmt.Errorf("server.max_concurrent must be positive, got %d", cfg.Server.MaxConcurrent)
	}
	return nil
}

func backendList() string {
	names := make([]string, len(types.Backends))
	for i, b := range types.Backends {
		names[i] = string(b)
	}
	return strings.Join(names, ", ")
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, appDir, "cache.db")
}
