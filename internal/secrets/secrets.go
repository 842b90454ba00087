// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file is one secret: the filename is the key and the trimmed contents
// are the value.
//
// Known keys: doc2md-service-token (sent by the service backend) and
// doc2md-server-token (required by the upload server).
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// ServiceToken authenticates the CLI against a remote conversion service.
	ServiceToken = "doc2md-service-token"
	// ServerToken protects the upload server's /api routes.
	ServerToken = "doc2md-server-token"
)

// Secrets is a read-only set of loaded credentials.
type Secrets map[string]string

// Load reads all regular, non-hidden files in dir. A missing directory is not
// an error and yields an empty set. Unreadable files are reported through
// warn, when non-nil, and skipped.
func Load(dir string, warn func(name string, err error)) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if warn != nil {
				warn(name, err)
			}
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			s[name] = value
		}
	}
	return s, nil
}

// Get returns the secret for key, or "" when absent.
func (s Secrets) Get(key string) string {
	return s[key]
}

// Or returns value when non-empty and the secret for key otherwise, so that
// explicit configuration wins over files on disk.
func (s Secrets) Or(value, key string) string {
	if value != "" {
		return value
	}
	return s[key]
}

// Keys returns the loaded key names in sorted order. Values are never exposed
// so the result is safe to log.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
