package database

import (
	"time"
)

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

// Project lifecycle states. Transitions only move forward, except that
// a resync may re-enter "processing" while already processing.
const (
	ProjectStatusWaiting    ProjectStatus = "waiting"
	ProjectStatusProcessing ProjectStatus = "processing"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusFailed     ProjectStatus = "failed"
)

// TaskStatus represents the state of an audit task record.
type TaskStatus string

// Task audit states.
const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusFailed     TaskStatus = "failed"
)

// Project groups the images under one storage prefix for one user.
type Project struct {
	ID            string
	UserID        string
	Name          string
	StoragePrefix string
	Config        []byte // opaque JSON configuration
	Status        ProjectStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Image is one ingested storage object. The (ProjectID, ObjectKey) pair
// is unique per project and acts as the dedup key during enumeration.
type Image struct {
	ID           string
	ProjectID    string
	ObjectKey    string
	Name         string
	MimeType     string
	SizeBytes    int64
	Processed    bool
	ThumbnailKey string
	CreatedAt    time.Time
}

// StoredFace is one detected face belonging to an image: its bounding
// box in raw pixel coordinates and a fixed-dimension embedding vector.
type StoredFace struct {
	ID        int64
	ImageID   string
	FaceIndex int
	Embedding []float32
	BBox      []float64 // [x1, y1, x2, y2]
	DetScore  float64
	CreatedAt time.Time
}

// TaskRecord is an audit row for a dispatched unit of work. It is not
// required for pipeline correctness (the progress counters and the
// Image.Processed flag are), it exists for observability.
type TaskRecord struct {
	ID        string
	ProjectID string
	UserID    string
	ImageID   string
	Kind      string
	Status    TaskStatus
	Progress  int // 0-100
	Result    []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ImageMatch is one similarity search result: an image and the minimum
// cosine distance across its detected faces.
type ImageMatch struct {
	Image    Image
	Distance float64
}
