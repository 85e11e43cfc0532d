// Package storage keeps uploaded media (product previews, product images, avatars) in a
// local directory or an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidKey is returned for empty keys or keys escaping the storage root.
var ErrInvalidKey = errors.New("storage: invalid object key")

// Storage stores and serves uploaded files by key.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// Config selects and configures a backend.
type Config struct {
	Driver string

	LocalRoot string
	BaseURL   string

	S3 S3Config
}

// New builds the backend named by cfg.Driver (local by default).
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "local":
		return NewLocalStorage(cfg.LocalRoot, cfg.BaseURL)
	case "s3":
		return NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", cfg.Driver)
	}
}

// ProductPreviewKey is where a product's preview image lives.
func ProductPreviewKey(productID uint, filename string) string {
	return fmt.Sprintf("products/product_%d/preview/%s", productID, uniqueName(filename))
}

// ProductImageKey is where an additional product image lives.
func ProductImageKey(productID uint, filename string) string {
	return fmt.Sprintf("products/product_%d/images/image_%s", productID, uniqueName(filename))
}

// AvatarKey is where a user's avatar lives.
func AvatarKey(userID, filename string) string {
	return fmt.Sprintf("users/user_%s/avatar/%s", userID, uniqueName(filename))
}

func uniqueName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return uuid.NewString()[:8] + "_" + base
}

func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}
