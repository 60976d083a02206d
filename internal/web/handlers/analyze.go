package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/RishabhDotasara/Photoflow/internal/database"
	"github.com/RishabhDotasara/Photoflow/internal/pipeline"
	"github.com/RishabhDotasara/Photoflow/internal/progress"
)

// AnalyzeHandler starts and observes pipeline runs for a project.
type AnalyzeHandler struct {
	projects database.ProjectStore
	tasks    database.TaskStore
	worker   *pipeline.Worker
	tracker  *progress.Tracker
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(projects database.ProjectStore, tasks database.TaskStore, worker *pipeline.Worker, tracker *progress.Tracker) *AnalyzeHandler {
	return &AnalyzeHandler{
		projects: projects,
		tasks:    tasks,
		worker:   worker,
		tracker:  tracker,
	}
}

// Start enqueues a folder job for the project. Re-running on the same
// folder is safe; already ingested images are skipped and unfinished
// ones are picked back up, so the same handler backs both the analyze
// and resync endpoints.
func (h *AnalyzeHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}
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
		respondError(w, http.StatusInternalServerError, "failed to start analysis")
		return
	}
	if project.StoragePrefix == "" {
		respondError(w, http.StatusBadRequest, "project has no storage folder configured")
		return
	}

	taskID, err := h.worker.EnqueueFolderJob(r.Context(), id, userID)
	if err != nil {
		log.Printf("enqueueing folder job for %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to start analysis")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"task_id":    taskID,
		"project_id": id,
	})
}

// ProgressResponse reports the advisory pipeline counters.
type ProgressResponse struct {
	TotalImages         int64   `json:"total_images"`
	ProcessedImages     int64   `json:"processed_images"`
	ThumbnailsGenerated int64   `json:"thumbnails_generated"`
	PercentComplete     float64 `json:"percent_complete"`
	ThumbnailsProgress  float64 `json:"thumbnails_progress"`
}

// Progress returns the current pipeline counters for a project.
func (h *AnalyzeHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing project ID")
		return
	}

	if _, err := h.projects.Get(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "project not found")
			return
		}
		log.Printf("loading project %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to read progress")
		return
	}

	p, err := h.tracker.Read(r.Context(), id)
	if err != nil {
		log.Printf("reading progress for %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to read progress")
		return
	}

	respondJSON(w, http.StatusOK, ProgressResponse{
		TotalImages:         p.Total,
		ProcessedImages:     p.Processed,
		ThumbnailsGenerated: p.ThumbnailsDone,
		PercentComplete:     p.PercentComplete(),
		ThumbnailsProgress:  p.PercentThumbnails(),
	})
}

// TaskResponse represents a task audit record in API responses.
type TaskResponse struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"project_id"`
	Kind      string          `json:"kind"`
	Status    string          `json:"status"`
	Progress  int             `json:"progress"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

// GetTask returns a task audit record.
func (h *AnalyzeHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing task ID")
		return
	}

	task, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task not found")
			return
		}
		log.Printf("loading task %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to load task")
		return
	}

	respondJSON(w, http.StatusOK, TaskResponse{
		ID:        task.ID,
		ProjectID: task.ProjectID,
		Kind:      task.Kind,
		Status:    string(task.Status),
		Progress:  task.Progress,
		Result:    json.RawMessage(task.Result),
		CreatedAt: task.CreatedAt.Format(time.RFC3339),
		UpdatedAt: task.UpdatedAt.Format(time.RFC3339),
	})
}
