package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RishabhDotasara/Photoflow/internal/config"
)

// fakeStorageAPI serves the object listing endpoint for a fixed set of
// object names, honoring the limit and offset of each request.
type fakeStorageAPI struct {
	names    []string
	requests []listRequest
}

type listRequest struct {
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Prefix string `json:"prefix"`
}

func (f *fakeStorageAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/storage/v1/object/list/photos" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var req listRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding list request: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.requests = append(f.requests, req)

		start := req.Offset
		if start > len(f.names) {
			start = len(f.names)
		}
		end := start + req.Limit
		if end > len(f.names) {
			end = len(f.names)
		}

		page := make([]map[string]any, 0, end-start)
		for _, name := range f.names[start:end] {
			page = append(page, map[string]any{
				"name":     name,
				"id":       "id-" + name,
				"metadata": map[string]any{"size": 1024, "mimetype": "image/jpeg"},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(page); err != nil {
			t.Errorf("encoding list response: %v", err)
		}
	}
}

func newSupabaseFixture(t *testing.T, objectCount int) (*SupabaseStore, *fakeStorageAPI) {
	t.Helper()
	api := &fakeStorageAPI{}
	for i := range objectCount {
		api.names = append(api.names, fmt.Sprintf("IMG_%04d.jpg", i))
	}
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)

	store, err := NewSupabaseStore(&config.StorageConfig{
		URL:        server.URL,
		ServiceKey: "test-key",
		Bucket:     "photos",
	})
	if err != nil {
		t.Fatalf("NewSupabaseStore failed: %v", err)
	}
	return store, api
}

func TestSupabaseListPaginatesPastPageSize(t *testing.T) {
	const total = listPageSize + 500
	store, api := newSupabaseFixture(t, total)

	objects, err := store.List(context.Background(), "wedding")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(objects) != total {
		t.Fatalf("got %d objects; want %d across pages", len(objects), total)
	}
	if objects[0].Key != "wedding/IMG_0000.jpg" {
		t.Errorf("first key = %q; want wedding/IMG_0000.jpg", objects[0].Key)
	}
	last := objects[len(objects)-1]
	if last.Name != fmt.Sprintf("IMG_%04d.jpg", total-1) {
		t.Errorf("last object = %q; second page was dropped", last.Name)
	}

	if len(api.requests) != 2 {
		t.Fatalf("server saw %d list requests; want 2 pages", len(api.requests))
	}
	if api.requests[0].Offset != 0 || api.requests[1].Offset != listPageSize {
		t.Errorf("page offsets = [%d, %d]; want [0, %d]",
			api.requests[0].Offset, api.requests[1].Offset, listPageSize)
	}
}

func TestSupabaseListStopsOnShortPage(t *testing.T) {
	store, api := newSupabaseFixture(t, 3)

	objects, err := store.List(context.Background(), "wedding")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(objects) != 3 {
		t.Fatalf("got %d objects; want 3", len(objects))
	}
	if len(api.requests) != 1 {
		t.Errorf("server saw %d list requests; want 1 for a short page", len(api.requests))
	}
}

func TestSupabaseExistsFindsObjectOnLaterPage(t *testing.T) {
	const total = listPageSize + 50
	store, _ := newSupabaseFixture(t, total)

	key := fmt.Sprintf("wedding/IMG_%04d.jpg", total-1)
	ok, err := store.Exists(context.Background(), key)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !ok {
		t.Errorf("Exists(%q) = false; object sits past the first page", key)
	}

	ok, err = store.Exists(context.Background(), "wedding/missing.jpg")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Error("Exists reported a missing object as present")
	}
}
