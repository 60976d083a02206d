// Package storage provides access to the object store holding original
// photos and generated thumbnails.
package storage

import (
	"context"
	"path"
	"strings"
	"time"
)

// Object describes a stored file returned by List.
type Object struct {
	Key       string
	Name      string
	SizeBytes int64
	MimeType  string
}

// Store is the object-store gateway used by the ingestion pipeline and
// the web layer. Implementations must be safe for concurrent use.
type Store interface {
	// List enumerates objects under a folder prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
	// SignedURL returns a time-limited download URL for an object.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// SignedUploadURL returns a time-limited upload URL for a key.
	SignedUploadURL(ctx context.Context, key string) (string, error)
	// Upload stores an object.
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	// Download fetches an object's bytes.
	Download(ctx context.Context, key string) ([]byte, error)
	// Exists reports whether an object is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// ThumbnailKey derives the deterministic thumbnail location for an
// original object. Deriving instead of generating lets crashed runs
// reuse thumbnails that already exist.
func ThumbnailKey(thumbnailsDir, objectKey string) string {
	base := strings.TrimSuffix(objectKey, path.Ext(objectKey))
	return path.Join(thumbnailsDir, base+"_thumbnail.jpg")
}
