package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	mimes   map[string]string

	// Track calls
	UploadCalls   []string
	DownloadCalls []string

	// Error injection
	ListError     error
	SignError     error
	UploadError   error
	DownloadError error
	ExistsError   error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		mimes:   make(map[string]string),
	}
}

// Put seeds an object directly, for test setup.
func (m *MemoryStore) Put(key string, data []byte, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.mimes[key] = contentType
}

// Remove deletes an object directly, for test setup.
func (m *MemoryStore) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.mimes, key)
}

// List enumerates objects under a folder prefix, sorted by key.
func (m *MemoryStore) List(ctx context.Context, prefix string) ([]Object, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	dir := prefix
	if dir != "" && !strings.HasSuffix(dir, "/") {
		dir += "/"
	}

	var objects []Object
	for key, data := range m.objects {
		if !strings.HasPrefix(key, dir) {
			continue
		}
		rest := strings.TrimPrefix(key, dir)
		if strings.Contains(rest, "/") {
			continue // not a direct child
		}
		objects = append(objects, Object{
			Key:       key,
			Name:      rest,
			SizeBytes: int64(len(data)),
			MimeType:  m.mimes[key],
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// SignedURL returns a fake URL embedding the key.
func (m *MemoryStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.SignError != nil {
		return "", m.SignError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[key]; !ok {
		return "", fmt.Errorf("object %q not found", key)
	}
	return "memory://" + key, nil
}

// SignedUploadURL returns a fake upload URL embedding the key.
func (m *MemoryStore) SignedUploadURL(ctx context.Context, key string) (string, error) {
	if m.SignError != nil {
		return "", m.SignError
	}
	return "memory://upload/" + key, nil
}

// Upload stores an object.
func (m *MemoryStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if m.UploadError != nil {
		return m.UploadError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UploadCalls = append(m.UploadCalls, key)
	m.objects[key] = data
	m.mimes[key] = contentType
	return nil
}

// Download fetches an object's bytes.
func (m *MemoryStore) Download(ctx context.Context, key string) ([]byte, error) {
	if m.DownloadError != nil {
		return nil, m.DownloadError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DownloadCalls = append(m.DownloadCalls, key)
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return data, nil
}

// Exists reports whether an object is present.
func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.ExistsError != nil {
		return false, m.ExistsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
