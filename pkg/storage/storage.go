// Package storage persists uploaded file content under opaque keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no object exists for a key.
	ErrNotFound = errors.New("stored object not found")
	// ErrInvalidKey rejects keys that would escape the storage root.
	ErrInvalidKey = errors.New("invalid storage key")
)

// Store is the contract shared by the local and S3 backends.
type Store interface {
	// Save writes r under key. size may be -1 when unknown.
	Save(ctx context.Context, key string, r io.Reader, size int64) error
	// Open returns the content and its size. Missing keys yield ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// NewKey builds a collision free key "<category>/<yyyy>/<mm>/<uuid><ext>".
func NewKey(category, ext string, now time.Time) string {
	if category == "" {
		category = "other"
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	now = now.UTC()
	return path.Join(category, fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())), uuid.NewString()+ext)
}

// ThumbnailKey derives the preview key for an original.
func ThumbnailKey(key string) string {
	return key + ".thumb.jpg"
}

// BaseName is the attachment filename for a key.
func BaseName(key string) string {
	return path.Base(key)
}

func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
