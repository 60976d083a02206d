package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/RishabhDotasara/Photoflow/internal/config"
	"github.com/RishabhDotasara/Photoflow/internal/detector"
	"github.com/RishabhDotasara/Photoflow/internal/pipeline"
	"github.com/RishabhDotasara/Photoflow/internal/search"
	"github.com/RishabhDotasara/Photoflow/internal/storage"
)

// maxSelfieBytes caps guest selfie uploads.
const maxSelfieBytes = 20 << 20

// GuestHandler matches guest selfies against stored face embeddings.
type GuestHandler struct {
	config   *config.Config
	detector pipeline.FaceDetector
	engine   *search.Engine
	store    storage.Store
}

// NewGuestHandler creates a new guest handler.
func NewGuestHandler(cfg *config.Config, det pipeline.FaceDetector, engine *search.Engine, store storage.Store) *GuestHandler {
	return &GuestHandler{
		config:   cfg,
		detector: det,
		engine:   engine,
		store:    store,
	}
}

// MatchResponse is one matched image with short-lived signed URLs.
type MatchResponse struct {
	ImageID      string  `json:"image_id"`
	Name         string  `json:"name"`
	Distance     float64 `json:"distance"`
	URL          string  `json:"url"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
}

// SelfieResponse is the result of a guest selfie match.
type SelfieResponse struct {
	FacesFound int             `json:"faces_found"`
	Matches    []MatchResponse `json:"matches"`
}

// Selfie accepts a multipart selfie upload, extracts the first detected
// face and returns the closest stored images. A selfie without a
// detectable face is an empty result, not an error.
func (h *GuestHandler) Selfie(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSelfieBytes)
	file, _, err := r.FormFile("selfie")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing selfie file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read selfie")
		return
	}

	resp, err := h.detector.DetectFaces(r.Context(), data)
	if err != nil {
		if errors.Is(err, detector.ErrDecode) {
			respondError(w, http.StatusUnprocessableEntity, "selfie is not a decodable image")
			return
		}
		log.Printf("detecting selfie faces: %v", err)
		respondError(w, http.StatusBadGateway, "face detection unavailable")
		return
	}
	if len(resp.Faces) == 0 {
		respondJSON(w, http.StatusOK, SelfieResponse{FacesFound: 0, Matches: []MatchResponse{}})
		return
	}

	opts := search.Options{ProjectID: r.URL.Query().Get("project_id")}
	if v, err := strconv.ParseFloat(r.URL.Query().Get("threshold"), 64); err == nil && v > 0 {
		opts.Threshold = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		opts.Limit = v
	}

	matches, err := h.engine.FindSimilarImages(r.Context(), resp.Faces[0].Embedding, opts)
	if err != nil {
		log.Printf("searching similar images: %v", err)
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	out := make([]MatchResponse, 0, len(matches))
	for _, m := range matches {
		signed, err := h.store.SignedURL(r.Context(), m.Image.ObjectKey, h.config.Storage.SignedURLTTL)
		if err != nil {
			log.Printf("signing %s: %v", sanitizeForLog(m.Image.ObjectKey), err)
			continue
		}
		match := MatchResponse{
			ImageID:  m.Image.ID,
			Name:     m.Image.Name,
			Distance: m.Distance,
			URL:      signed,
		}
		if m.Image.ThumbnailKey != "" {
			if thumb, err := h.store.SignedURL(r.Context(), m.Image.ThumbnailKey, h.config.Storage.SignedURLTTL); err == nil {
				match.ThumbnailURL = thumb
			}
		}
		out = append(out, match)
	}

	respondJSON(w, http.StatusOK, SelfieResponse{
		FacesFound: len(resp.Faces),
		Matches:    out,
	})
}
