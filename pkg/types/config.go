// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConversionBackend identifies the tool that turns a document into Markdown.
type ConversionBackend string

const (
	// BackendNative converts in-process with Go parsing libraries.
	BackendNative ConversionBackend = "native"
	// BackendMarkitdown pipes the document through the markitdown container image.
	BackendMarkitdown ConversionBackend = "markitdown"
	// BackendMarkitdownCLI runs a locally installed markitdown binary.
	BackendMarkitdownCLI ConversionBackend = "markitdown-cli"
	// BackendService uploads the document to a remote conversion service.
	BackendService ConversionBackend = "service"
)

// Backends lists every supported backend in documentation order.
var Backends = []ConversionBackend{
	BackendNative,
	BackendMarkitdown,
	BackendMarkitdownCLI,
	BackendService,
}

// Valid reports whether b names a supported backend.
func (b ConversionBackend) Valid() bool {
	for _, known := range Backends {
		if b == known {
			return true
		}
	}
	return false
}

// MarkitdownConfig holds settings for the markitdown backends.
type MarkitdownConfig struct {
	// Image is the container image used by the markitdown backend.
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	// Runtime forces a container runtime ("docker" or "podman"). Empty means
	// detect, preferring docker.
	Runtime string `json:"runtime" yaml:"runtime" mapstructure:"runtime"`

	// Binary is the executable used by the markitdown-cli backend.
	Binary string `json:"binary" yaml:"binary" mapstructure:"binary"`
}

// ServiceConfig holds settings for the remote conversion service backend.
type ServiceConfig struct {
	// URL is the base URL of the service; requests go to URL + "/api/convert".
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// Timeout bounds a single HTTP request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries is the number of retries on throttling or gateway errors.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Token is sent as a bearer token when non-empty. Falls back to the
	// doc2md-service-token secret.
	Token string `json:"token,omitempty" yaml:"token,omitempty" mapstructure:"token"`
}

// CacheConfig controls the SQLite conversion cache.
type CacheConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" yaml:"path" mapstructure:"path"`

	// MaxAge drops entries older than this when the cache is opened. Zero
	// keeps entries forever.
	MaxAge time.Duration `json:"max_age" yaml:"max_age" mapstructure:"max_age"`
}

// LogConfig controls structured logging. An empty or "off" level disables
// logging entirely.
type LogConfig struct {
	Level    string `json:"level" yaml:"level" mapstructure:"level"`
	Encoding string `json:"encoding" yaml:"encoding" mapstructure:"encoding"`

	// File, when set, receives log output through a rotating writer instead
	// of stderr.
	File string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
}

// ServerConfig holds settings for the upload server.
type ServerConfig struct {
	Addr          string `json:"addr" yaml:"addr" mapstructure:"addr"`
	MaxUploadMB   int64  `json:"max_upload_mb" yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	MaxConcurrent int64  `json:"max_concurrent" yaml:"max_concurrent" mapstructure:"max_concurrent"`
	TempDir       string `json:"temp_dir,omitempty" yaml:"temp_dir,omitempty" mapstructure:"temp_dir"`

	// Token, when set, is required as a bearer token on /api routes.
	Token string `json:"token,omitempty" yaml:"token,omitempty" mapstructure:"token"`
}

// Config groups every setting of the CLI and the server.
type Config struct {
	Backend    ConversionBackend `json:"backend" yaml:"backend" mapstructure:"backend"`
	SecretsDir string            `json:"secrets_dir" yaml:"secrets_dir" mapstructure:"secrets_dir"`
	Markitdown MarkitdownConfig  `json:"markitdown" yaml:"markitdown" mapstructure:"markitdown"`
	Service    ServiceConfig     `json:"service" yaml:"service" mapstructure:"service"`
	Cache      CacheConfig       `json:"cache" yaml:"cache" mapstructure:"cache"`
	Log        LogConfig         `json:"log" yaml:"log" mapstructure:"log"`
	Server     ServerConfig      `json:"server" yaml:"server" mapstructure:"server"`
}
