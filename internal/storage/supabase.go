package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/RishabhDotasara/Photoflow/internal/config"
	supabase "github.com/supabase-community/storage-go"
)

// SupabaseStore is the Supabase Storage implementation of Store.
type SupabaseStore struct {
	client *supabase.Client
	bucket string
}

// NewSupabaseStore creates a storage gateway from configuration.
func NewSupabaseStore(cfg *config.StorageConfig) (*SupabaseStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("storage URL is required")
	}

	baseURL := strings.TrimSuffix(cfg.URL, "/")
	client := supabase.NewClient(baseURL+"/storage/v1", cfg.ServiceKey, nil)

	return &SupabaseStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// listPageSize is the page size for folder listings. The storage API
// caps each response, so listings page until a short page comes back.
const listPageSize = 1000

// listAllFiles pages through every object under a prefix.
func (s *SupabaseStore) listAllFiles(prefix string) ([]supabase.FileObject, error) {
	var files []supabase.FileObject
	for offset := 0; ; offset += listPageSize {
		page, err := s.client.ListFiles(s.bucket, prefix, supabase.FileSearchOptions{
			Limit:  listPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}
		files = append(files, page...)
		if len(page) < listPageSize {
			return files, nil
		}
	}
}

// List enumerates objects under a folder prefix.
func (s *SupabaseStore) List(ctx context.Context, prefix string) ([]Object, error) {
	files, err := s.listAllFiles(prefix)
	if err != nil {
		return nil, fmt.Errorf("list objects under %q: %w", prefix, err)
	}

	objects := make([]Object, 0, len(files))
	for _, f := range files {
		// Folder placeholders come back without an ID.
		if f.Id == "" {
			continue
		}
		obj := Object{
			Key:  path.Join(prefix, f.Name),
			Name: f.Name,
		}
		if meta, ok := f.Metadata.(map[string]any); ok {
			if size, ok := meta["size"].(float64); ok {
				obj.SizeBytes = int64(size)
			}
			if mime, ok := meta["mimetype"].(string); ok {
				obj.MimeType = mime
			}
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// SignedURL returns a time-limited download URL for an object.
func (s *SupabaseStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	resp, err := s.client.CreateSignedUrl(s.bucket, key, int(ttl.Seconds()))
	if err != nil {
		return "", fmt.Errorf("sign URL for %q: %w", key, err)
	}
	return resp.SignedURL, nil
}

// SignedUploadURL returns a time-limited upload URL for a key.
func (s *SupabaseStore) SignedUploadURL(ctx context.Context, key string) (string, error) {
	resp, err := s.client.CreateSignedUploadUrl(s.bucket, key)
	if err != nil {
		return "", fmt.Errorf("sign upload URL for %q: %w", key, err)
	}
	return resp.Url, nil
}

// Upload stores an object, replacing any previous content at the key.
func (s *SupabaseStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	upsert := true
	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), supabase.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("upload %q: %w", key, err)
	}
	return nil
}

// Download fetches an object's bytes.
func (s *SupabaseStore) Download(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.DownloadFile(s.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("download %q: %w", key, err)
	}
	return data, nil
}

// Exists reports whether an object is present by listing its parent folder.
func (s *SupabaseStore) Exists(ctx context.Context, key string) (bool, error) {
	dir := path.Dir(key)
	if dir == "." {
		dir = ""
	}
	name := path.Base(key)

	files, err := s.listAllFiles(dir)
	if err != nil {
		return false, fmt.Errorf("check %q exists: %w", key, err)
	}
	for _, f := range files {
		if f.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Verify interface compliance.
var _ Store = (*SupabaseStore)(nil)
