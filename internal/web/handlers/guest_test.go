package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RishabhDotasara/Photoflow/internal/database"
	"github.com/RishabhDotasara/Photoflow/internal/detector"
	"github.com/RishabhDotasara/Photoflow/internal/search"
)

// stubFaceDetector returns a fixed response for every call.
type stubFaceDetector struct {
	resp *detector.FaceResponse
	err  error
}

func (s *stubFaceDetector) DetectFaces(ctx context.Context, imageData []byte) (*detector.FaceResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func selfieRequest(t *testing.T, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("selfie", "selfie.jpg")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/guest/selfie", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func guestEmbedding(fill float32) []float32 {
	v := make([]float32, database.FaceEmbeddingDim)
	v[0] = fill
	v[1] = 1
	return v
}

func TestGuestHandler_Selfie_ReturnsSignedMatches(t *testing.T) {
	f := newFixtures()
	f.projects.AddProject(database.Project{ID: "p1", UserID: "user-1", Name: "Wedding"})
	f.images.AddImage(database.Image{
		ID: "img-1", ProjectID: "p1", ObjectKey: "wedding/a.jpg", Name: "a.jpg",
		ThumbnailKey: "thumbnails/wedding/a_thumbnail.jpg",
	})
	f.store.Put("wedding/a.jpg", []byte("original"), "image/jpeg")
	f.store.Put("thumbnails/wedding/a_thumbnail.jpg", []byte("thumb"), "image/jpeg")

	query := guestEmbedding(0.5)
	if err := f.faces.SaveDetections(context.Background(), "img-1", []database.StoredFace{
		{FaceIndex: 0, Embedding: query},
	}); err != nil {
		t.Fatalf("seeding faces: %v", err)
	}

	det := &stubFaceDetector{resp: &detector.FaceResponse{
		FacesCount: 1,
		Faces:      []detector.FaceDetection{{FaceIndex: 0, Embedding: query}},
	}}
	engine := search.NewEngine(f.faces, f.images)
	handler := NewGuestHandler(testConfig(), det, engine, f.store)

	recorder := httptest.NewRecorder()
	handler.Selfie(recorder, selfieRequest(t, []byte("jpeg bytes")))

	assertStatusCode(t, recorder, http.StatusOK)

	var resp SelfieResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.FacesFound != 1 {
		t.Errorf("faces_found = %d; want 1", resp.FacesFound)
	}
	if len(resp.Matches) != 1 {
		t.Fatalf("got %d matches; want 1", len(resp.Matches))
	}
	m := resp.Matches[0]
	if m.ImageID != "img-1" || m.URL == "" || m.ThumbnailURL == "" {
		t.Errorf("match = %+v; want img-1 with signed URLs", m)
	}
	if m.Distance > 1e-6 {
		t.Errorf("distance = %f; want ~0 for an identical embedding", m.Distance)
	}
}

func TestGuestHandler_Selfie_NoFacesIsEmptyResult(t *testing.T) {
	f := newFixtures()
	det := &stubFaceDetector{resp: &detector.FaceResponse{}}
	engine := search.NewEngine(f.faces, f.images)
	handler := NewGuestHandler(testConfig(), det, engine, f.store)

	recorder := httptest.NewRecorder()
	handler.Selfie(recorder, selfieRequest(t, []byte("crowd shot")))

	assertStatusCode(t, recorder, http.StatusOK)

	var resp SelfieResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.FacesFound != 0 || len(resp.Matches) != 0 {
		t.Errorf("response = %+v; want empty result", resp)
	}
}

func TestGuestHandler_Selfie_UndecodableImage(t *testing.T) {
	f := newFixtures()
	det := &stubFaceDetector{err: detector.ErrDecode}
	engine := search.NewEngine(f.faces, f.images)
	handler := NewGuestHandler(testConfig(), det, engine, f.store)

	recorder := httptest.NewRecorder()
	handler.Selfie(recorder, selfieRequest(t, []byte("not an image")))

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
}

func TestGuestHandler_Selfie_MissingFile(t *testing.T) {
	f := newFixtures()
	det := &stubFaceDetector{resp: &detector.FaceResponse{}}
	engine := search.NewEngine(f.faces, f.images)
	handler := NewGuestHandler(testConfig(), det, engine, f.store)

	req := httptest.NewRequest("POST", "/api/v1/guest/selfie", nil)
	recorder := httptest.NewRecorder()
	handler.Selfie(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}
