package storage

import (
	"context"
	"errors"
	"testing"
)

func TestThumbnailKey(t *testing.T) {
	tests := []struct {
		name      string
		objectKey string
		want      string
	}{
		{"plain jpeg", "wedding/photo.jpg", "thumbnails/wedding/photo_thumbnail.jpg"},
		{"nested folder", "events/2026/day1/img.png", "thumbnails/events/2026/day1/img_thumbnail.jpg"},
		{"raw file", "wedding/IMG_0001.CR2", "thumbnails/wedding/IMG_0001_thumbnail.jpg"},
		{"no extension", "wedding/photo", "thumbnails/wedding/photo_thumbnail.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ThumbnailKey("thumbnails", tt.objectKey); got != tt.want {
				t.Errorf("ThumbnailKey(%q) = %q; want %q", tt.objectKey, got, tt.want)
			}
		})
	}
}

func TestMemoryStoreListDirectChildren(t *testing.T) {
	s := NewMemoryStore()
	s.Put("wedding/a.jpg", []byte("a"), "image/jpeg")
	s.Put("wedding/b.jpg", []byte("b"), "image/jpeg")
	s.Put("wedding/sub/c.jpg", []byte("c"), "image/jpeg")
	s.Put("other/d.jpg", []byte("d"), "image/jpeg")

	objects, err := s.List(context.Background(), "wedding")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("listed %d objects; want 2 direct children", len(objects))
	}
	if objects[0].Key != "wedding/a.jpg" || objects[1].Key != "wedding/b.jpg" {
		t.Errorf("keys = [%s, %s]; want sorted direct children", objects[0].Key, objects[1].Key)
	}
	if objects[0].Name != "a.jpg" {
		t.Errorf("name = %q; want bare file name", objects[0].Name)
	}
}

func TestMemoryStoreDownloadMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Download(context.Background(), "nope.jpg"); err == nil {
		t.Error("expected error for missing object")
	}
}

func TestMemoryStoreErrorInjection(t *testing.T) {
	s := NewMemoryStore()
	s.Put("a.jpg", []byte("a"), "image/jpeg")
	s.ListError = errors.New("boom")

	if _, err := s.List(context.Background(), ""); err == nil {
		t.Error("expected injected list error")
	}
}
