package detector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect/faces" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart form: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		if got := header.Header.Get("Content-Type"); got != "image/jpeg" {
			t.Errorf("part Content-Type = %q; want image/jpeg", got)
		}

		resp := FaceResponse{
			FacesCount: 2,
			Model:      "buffalo_l",
			Faces: []FaceDetection{
				{FaceIndex: 0, Dim: 512, Embedding: []float32{0.1, 0.2}, BBox: []float64{1, 2, 3, 4}, DetScore: 0.99},
				{FaceIndex: 1, Dim: 512, Embedding: []float32{0.3, 0.4}, BBox: []float64{5, 6, 7, 8}, DetScore: 0.87},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.DetectFaces(context.Background(), jpegMagic())
	if err != nil {
		t.Fatalf("DetectFaces failed: %v", err)
	}

	if result.FacesCount != 2 {
		t.Errorf("FacesCount = %d; want 2", result.FacesCount)
	}
	if len(result.Faces) != 2 {
		t.Fatalf("len(Faces) = %d; want 2", len(result.Faces))
	}
	if result.Faces[0].FaceIndex != 0 || result.Faces[1].FaceIndex != 1 {
		t.Errorf("face indices = %d, %d; want 0, 1", result.Faces[0].FaceIndex, result.Faces[1].FaceIndex)
	}
	if result.Faces[1].DetScore != 0.87 {
		t.Errorf("DetScore = %f; want 0.87", result.Faces[1].DetScore)
	}
}

func TestDetectFacesNoFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"faces_count": 0, "faces": [], "model": "buffalo_l"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.DetectFaces(context.Background(), jpegMagic())
	if err != nil {
		t.Fatalf("zero faces should not be an error, got: %v", err)
	}
	if result.FacesCount != 0 || len(result.Faces) != 0 {
		t.Errorf("expected empty result, got count=%d faces=%d", result.FacesCount, len(result.Faces))
	}
}

func TestDetectFacesDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "cannot decode image"}`, http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.DetectFaces(context.Background(), []byte("not an image"))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got: %v", err)
	}
}

func TestDetectFacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.DetectFaces(context.Background(), jpegMagic())
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if errors.Is(err, ErrDecode) {
		t.Error("500 should not map to ErrDecode")
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", jpegMagic(), "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x00, 0x00}, "image/gif"},
		{"webp", []byte{0x52, 0x49, 0x46, 0x46, 0, 0, 0, 0, 0x57, 0x45, 0x42, 0x50}, "image/webp"},
		{"unknown", []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}, "application/octet-stream"},
		{"too short", []byte{0xFF}, "application/octet-stream"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectMIMEType(tc.data); got != tc.expected {
				t.Errorf("DetectMIMEType = %q; want %q", got, tc.expected)
			}
		})
	}
}

func jpegMagic() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}
}
