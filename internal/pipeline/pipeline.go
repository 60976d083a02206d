// Package pipeline implements the ingestion pipeline: folder enumeration
// fanning out per-image thumbnail and face-embedding work over the two
// queue lanes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/RishabhDotasara/Photoflow/internal/config"
	"github.com/RishabhDotasara/Photoflow/internal/database"
	"github.com/RishabhDotasara/Photoflow/internal/detector"
	"github.com/RishabhDotasara/Photoflow/internal/progress"
	"github.com/RishabhDotasara/Photoflow/internal/queue"
	"github.com/RishabhDotasara/Photoflow/internal/storage"
)

// ErrFolderNotConfigured reports that a project has no storage prefix yet.
var ErrFolderNotConfigured = errors.New("project has no storage folder configured")

// FaceDetector extracts face embeddings from image bytes.
type FaceDetector interface {
	DetectFaces(ctx context.Context, imageData []byte) (*detector.FaceResponse, error)
}

// Worker executes units of work from both lanes.
type Worker struct {
	projects   database.ProjectStore
	images     database.ImageStore
	faces      database.FaceStore
	tasks      database.TaskStore
	store      storage.Store
	detector   FaceDetector
	dispatcher queue.Dispatcher
	tracker    *progress.Tracker
	formats    *config.FormatsConfig
	pipeline   *config.PipelineConfig
	thumbsDir  string
}

// Deps bundles the collaborators of a Worker.
type Deps struct {
	Projects   database.ProjectStore
	Images     database.ImageStore
	Faces      database.FaceStore
	Tasks      database.TaskStore
	Store      storage.Store
	Detector   FaceDetector
	Dispatcher queue.Dispatcher
	Tracker    *progress.Tracker
	Formats    *config.FormatsConfig
	Pipeline   *config.PipelineConfig
	ThumbsDir  string
}

// NewWorker creates a pipeline worker. The detector is constructed once at
// process start and shared.
func NewWorker(deps Deps) *Worker {
	return &Worker{
		projects:   deps.Projects,
		images:     deps.Images,
		faces:      deps.Faces,
		tasks:      deps.Tasks,
		store:      deps.Store,
		detector:   deps.Detector,
		dispatcher: deps.Dispatcher,
		tracker:    deps.Tracker,
		formats:    deps.Formats,
		pipeline:   deps.Pipeline,
		thumbsDir:  deps.ThumbsDir,
	}
}

// Handle routes a queue envelope to its stage.
func (w *Worker) Handle(ctx context.Context, env *queue.Envelope) error {
	switch env.Task {
	case queue.StageFolder:
		var job queue.FolderJob
		if err := env.Decode(&job); err != nil {
			return err
		}
		return w.runTask(ctx, env.TaskID, func() error {
			return w.RunFolderJob(ctx, job.ProjectID, job.UserID)
		})
	case queue.StageThumbnail:
		var job queue.ThumbnailJob
		if err := env.Decode(&job); err != nil {
			return err
		}
		return w.runTask(ctx, env.TaskID, func() error {
			return w.GenerateThumbnail(ctx, job)
		})
	case queue.StageFaces:
		var job queue.FaceJob
		if err := env.Decode(&job); err != nil {
			return err
		}
		return w.runTask(ctx, env.TaskID, func() error {
			return w.ProcessFaces(ctx, job)
		})
	default:
		return fmt.Errorf("unknown task %q", env.Task)
	}
}

// runTask wraps a unit of work with audit record updates. Audit writes are
// best-effort; they never fail the work itself.
func (w *Worker) runTask(ctx context.Context, taskID string, fn func() error) error {
	w.updateTask(ctx, taskID, database.TaskStatusProcessing, 10, nil)

	if err := fn(); err != nil {
		w.updateTask(ctx, taskID, database.TaskStatusFailed, 100, []byte(fmt.Sprintf(`{"error": %q}`, err.Error())))
		return err
	}

	w.updateTask(ctx, taskID, database.TaskStatusDone, 100, nil)
	return nil
}

func (w *Worker) updateTask(ctx context.Context, taskID string, status database.TaskStatus, prog int, result []byte) {
	if w.tasks == nil || taskID == "" {
		return
	}
	if err := w.tasks.UpdateStatus(ctx, taskID, status, prog, result); err != nil {
		log.Printf("pipeline: updating task %s: %v", taskID, err)
	}
}

// enqueue wraps a payload and records its audit row before dispatch, so a
// task lookup never misses a message already on the wire.
func (w *Worker) enqueue(ctx context.Context, stage queue.Stage, projectID, userID, imageID string, payload any) (string, error) {
	env, err := queue.NewEnvelope(stage, "", payload)
	if err != nil {
		return "", err
	}

	if w.tasks != nil {
		record := &database.TaskRecord{
			ID:        env.TaskID,
			ProjectID: projectID,
			UserID:    userID,
			ImageID:   imageID,
			Kind:      string(stage),
		}
		if err := w.tasks.Create(ctx, record); err != nil {
			return "", fmt.Errorf("record task: %w", err)
		}
	}

	if err := w.dispatcher.Dispatch(ctx, env); err != nil {
		w.updateTask(ctx, env.TaskID, database.TaskStatusFailed, 0, []byte(`{"error": "dispatch failed"}`))
		return "", err
	}
	return env.TaskID, nil
}

// EnqueueFolderJob dispatches a folder enumeration run and returns the
// task handle. Used by the analyze and resync endpoints.
func (w *Worker) EnqueueFolderJob(ctx context.Context, projectID, userID string) (string, error) {
	return w.enqueue(ctx, queue.StageFolder, projectID, userID, "", queue.FolderJob{
		ProjectID: projectID,
		UserID:    userID,
	})
}
