package database

import (
	"context"
)

// ProjectStore provides access to projects.
type ProjectStore interface {
	// Create inserts a new project in the waiting state.
	Create(ctx context.Context, p *Project) error
	// Get retrieves a project by ID, ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Project, error)
	// ListByUser returns all projects owned by a user.
	ListByUser(ctx context.Context, userID string) ([]Project, error)
	// ExistsByName reports whether the user already has a project with that name.
	ExistsByName(ctx context.Context, userID, name string) (bool, error)
	// SetStoragePrefix points the project at a storage folder.
	SetStoragePrefix(ctx context.Context, id, prefix string) error
	// UpdateStatus sets the project status unconditionally.
	UpdateStatus(ctx context.Context, id string, status ProjectStatus) error
	// CompleteIfNotCompleted transitions the project to completed only if it
	// is not completed already. Returns whether this call fired the
	// transition, so racing workers detect the double-fire harmlessly.
	CompleteIfNotCompleted(ctx context.Context, id string) (bool, error)
}

// ImageStore provides access to ingested images.
type ImageStore interface {
	// Create inserts an image row. Returns ErrConflict when the
	// (project, object key) pair already exists.
	Create(ctx context.Context, img *Image) error
	// Get retrieves an image by ID, ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Image, error)
	// ByIDs retrieves images for the given IDs, in insertion order.
	ByIDs(ctx context.Context, ids []string) ([]Image, error)
	// ObjectKeys returns the object keys already recorded for a project.
	ObjectKeys(ctx context.Context, projectID string) ([]string, error)
	// Unprocessed returns the authoritative set of images still awaiting
	// face processing, in insertion order.
	Unprocessed(ctx context.Context, projectID string) ([]Image, error)
	// CountUnprocessed returns how many images of the project still have
	// processed = false. This is the durable completion signal.
	CountUnprocessed(ctx context.Context, projectID string) (int, error)
	// Count returns the number of images recorded for a project.
	Count(ctx context.Context, projectID string) (int, error)
	// SetThumbnailKey records the derived thumbnail object key.
	SetThumbnailKey(ctx context.Context, imageID, key string) error
	// ClearByProject removes all images (and cascaded faces) of a project.
	ClearByProject(ctx context.Context, projectID string) error
}

// FaceStore provides access to face embeddings.
type FaceStore interface {
	// SaveDetections inserts the detected faces of an image and marks the
	// image processed in a single transaction, so a partial write (faces
	// inserted but flag unset, or vice versa) cannot occur. An empty
	// detections slice still marks the image processed.
	SaveDetections(ctx context.Context, imageID string, faces []StoredFace) error
	// AllFaces returns stored faces, restricted to one project when
	// projectID is non-empty. Ordered by face ID.
	AllFaces(ctx context.Context, projectID string) ([]StoredFace, error)
	// CountByProject returns the number of faces stored for a project.
	CountByProject(ctx context.Context, projectID string) (int, error)
	// FindSimilarImages returns images whose closest face is within
	// threshold of the query embedding, ascending by that minimum
	// distance, truncated to limit. projectID == "" searches everything.
	FindSimilarImages(ctx context.Context, embedding []float32, threshold float64, limit int, projectID string) ([]ImageMatch, error)
}

// TaskStore records audit rows for dispatched units of work.
type TaskStore interface {
	Create(ctx context.Context, t *TaskRecord) error
	Get(ctx context.Context, id string) (*TaskRecord, error)
	// UpdateStatus sets the task status, progress and optional result payload.
	UpdateStatus(ctx context.Context, id string, status TaskStatus, progress int, result []byte) error
}

// CounterStore is the shared counter backend used by the progress
// tracker. Increments must be atomic under concurrent callers; reads
// are advisory and must never be the sole completion signal.
type CounterStore interface {
	// Set stores a counter value, creating the counter if needed.
	Set(ctx context.Context, projectID, name string, value int64) error
	// Increment atomically adds one and returns the new value.
	Increment(ctx context.Context, projectID, name string) (int64, error)
	// Get returns the counter value, zero when the counter does not exist.
	Get(ctx context.Context, projectID, name string) (int64, error)
}
