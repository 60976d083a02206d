package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/RishabhDotasara/Photoflow/internal/config"
	"github.com/RishabhDotasara/Photoflow/internal/database"
	"github.com/RishabhDotasara/Photoflow/internal/storage"
)

// ProjectsHandler handles project CRUD and folder binding.
type ProjectsHandler struct {
	config   *config.Config
	projects database.ProjectStore
	images   database.ImageStore
	store    storage.Store
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(cfg *config.Config, projects database.ProjectStore, images database.ImageStore, store storage.Store) *ProjectsHandler {
	return &ProjectsHandler{
		config:   cfg,
		projects: projects,
		images:   images,
		store:    store,
	}
}

// ProjectResponse represents a project in API responses.
type ProjectResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	StoragePrefix string `json:"storage_prefix"`
	Status        string `json:"status"`
	ImageCount    int    `json:"image_count"`
	OutOfSync     *bool  `json:"out_of_sync,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func projectToResponse(p *database.Project, imageCount int, outOfSync *bool) ProjectResponse {
	return ProjectResponse{
		ID:            p.ID,
		Name:          p.Name,
		StoragePrefix: p.StoragePrefix,
		Status:        string(p.Status),
		ImageCount:    imageCount,
		OutOfSync:     outOfSync,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateProjectRequest represents a create project request.
type CreateProjectRequest struct {
	Name          string `json:"name"`
	StoragePrefix string `json:"storage_prefix"`
}

// Create creates a new project in the waiting state.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "missing project name")
		return
	}

	exists, err := h.projects.ExistsByName(r.Context(), userID, req.Name)
	if err != nil {
		log.Printf("checking project name: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create project")
		return
	}
	if exists {
		respondError(w, http.StatusConflict, "project name already in use")
		return
	}

	project := &database.Project{
		UserID:        userID,
		Name:          req.Name,
		StoragePrefix: req.StoragePrefix,
	}
	if err := h.projects.Create(r.Context(), project); err != nil {
		if errors.Is(err, database.ErrConflict) {
			respondError(w, http.StatusConflict, "project name already in use")
			return
		}
		log.Printf("creating project: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	respondJSON(w, http.StatusCreated, projectToResponse(project, 0, nil))
}

// List returns all projects owned by the caller.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	projects, err := h.projects.ListByUser(r.Context(), userID)
	if err != nil {
		log.Printf("listing projects: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}

	response := make([]ProjectResponse, len(projects))
	for i := range projects {
		count, err := h.images.Count(r.Context(), projects[i].ID)
		if err != nil {
			log.Printf("counting images for %s: %v", sanitizeForLog(projects[i].ID), err)
		}
		response[i] = projectToResponse(&projects[i], count, nil)
	}

	respondJSON(w, http.StatusOK, response)
}

// Get returns a single project with its image count and an out-of-sync
// indicator comparing the storage folder against ingested rows.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing project ID")
		return
	}

	project, err := h.projects.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "project not found")
			return
		}
		log.Printf("loading project %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to load project")
		return
	}

	imageCount, err := h.images.Count(r.Context(), id)
	if err != nil {
		log.Printf("counting images for %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to load project")
		return
	}

	// Best effort; a storage hiccup hides the indicator instead of
	// failing the whole request.
	var outOfSync *bool
	if project.StoragePrefix != "" {
		if objects, err := h.store.List(r.Context(), project.StoragePrefix); err == nil {
			ingestable := 0
			for _, obj := range objects {
				if h.config.Formats.IsImage(obj.Name) {
					ingestable++
				}
			}
			v := ingestable != imageCount
			outOfSync = &v
		} else {
			log.Printf("listing storage for %s: %v", sanitizeForLog(id), err)
		}
	}

	respondJSON(w, http.StatusOK, projectToResponse(project, imageCount, outOfSync))
}

// SetFolderRequest represents a folder binding request.
type SetFolderRequest struct {
	StoragePrefix string `json:"storage_prefix"`
}

// SetFolder points the project at a storage folder. Images ingested
// from a previous folder are cleared so the next analyze starts clean.
func (h *ProjectsHandler) SetFolder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing project ID")
		return
	}

	var req SetFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.StoragePrefix == "" {
		respondError(w, http.StatusBadRequest, "missing storage_prefix")
		return
	}

	if err := h.projects.SetStoragePrefix(r.Context(), id, req.StoragePrefix); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "project not found")
			return
		}
		log.Printf("setting folder for %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to set folder")
		return
	}
	if err := h.images.ClearByProject(r.Context(), id); err != nil {
		log.Printf("clearing images for %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to clear previous images")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"id":             id,
		"storage_prefix": req.StoragePrefix,
	})
}
