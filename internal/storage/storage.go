// Package storage persists chat attachments on local disk or in an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// WebPrefix is the path prefix stored attachments are served under.
const WebPrefix = "/uploads/"

// ErrNotFound is returned by Open for unknown keys.
var ErrNotFound = errors.New("file not found")

// Storage defines the file operations chat uploads need.
type Storage interface {
	// Save stores r under key and returns the web path the file is served at.
	// size is -1 when unknown.
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)

	// Open returns the content stored under key. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Config selects and configures a driver.
type Config struct {
	Driver    string // local, s3
	LocalPath string
	S3        S3Config
}

// New creates the driver named by cfg.Driver.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStorage(cfg.LocalPath)
	case "s3":
		return NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// CleanKey normalizes key to a relative slash path and rejects keys that
// would escape the storage root.
func CleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return cleaned, nil
}

// WebPath returns the path a key is served at by the upload route.
func WebPath(key string) string {
	return WebPrefix + key
}
