// Package blobstore persists opaque byte blobs under slash-separated keys.
// Every backend is create-only: writing an existing key fails with ErrExists.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/hugh/lexvault/pkg/config"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrExists     = errors.New("blob already exists")
	ErrInvalidKey = errors.New("invalid blob key")
)

type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg *config.StorageConfig, google *config.GoogleConfig) (Store, error) {
	switch cfg.Backend {
	case "local":
		return NewLocal(cfg.Root)
	case "s3":
		return NewS3(ctx, cfg)
	case "gcs":
		return NewGCS(ctx, cfg, google.CredentialsFile)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// cleanKey rejects keys that could escape the store root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned != key || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

func joinPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}
