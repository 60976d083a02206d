package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/RishabhDotasara/Photoflow/internal/config"
	"github.com/RishabhDotasara/Photoflow/internal/database/mock"
	"github.com/RishabhDotasara/Photoflow/internal/storage"
)

// testConfig creates a minimal config for testing.
func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Formats.Image = []string{".jpg", ".jpeg", ".png"}
	cfg.Formats.Raw = []string{".cr2"}
	cfg.Storage.SignedURLTTL = time.Hour
	return cfg
}

// fixtures bundles the mock stores handlers are tested against.
type fixtures struct {
	projects *mock.MockProjectStore
	images   *mock.MockImageStore
	faces    *mock.MockFaceStore
	tasks    *mock.MockTaskStore
	counters *mock.MockCounterStore
	store    *storage.MemoryStore
}

func newFixtures() *fixtures {
	images := mock.NewMockImageStore()
	return &fixtures{
		projects: mock.NewMockProjectStore(),
		images:   images,
		faces:    mock.NewMockFaceStore(images),
		tasks:    mock.NewMockTaskStore(),
		counters: mock.NewMockCounterStore(),
		store:    storage.NewMemoryStore(),
	}
}

// jsonRequest creates a request with a JSON body and the test user header.
func jsonRequest(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(userIDHeader, "user-1")
	return req
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, want int) {
	t.Helper()
	if recorder.Code != want {
		t.Errorf("status = %d; want %d (body: %s)", recorder.Code, want, recorder.Body.String())
	}
}

func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), v); err != nil {
		t.Fatalf("parsing response %q: %v", recorder.Body.String(), err)
	}
}
