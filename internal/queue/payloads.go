// Package queue defines the two work lanes of the ingestion pipeline and
// their payloads. Folder enumeration travels on the folder lane; per-image
// thumbnail and face work travels on the image lane, so a slow folder scan
// never starves image workers.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Lane identifies a queue lane.
type Lane string

const (
	LaneFolder Lane = "folder"
	LaneImage  Lane = "image"
)

// Stage identifies a pipeline stage. Each image flows thumbnail → faces;
// Next makes the chain explicit instead of scattering string task names
// through the workers.
type Stage string

const (
	StageFolder    Stage = "process_folder"
	StageThumbnail Stage = "generate_thumbnail"
	StageFaces     Stage = "extract_faces"
)

// Next returns the stage that follows in the per-image chain, or false
// when the stage is terminal.
func (s Stage) Next() (Stage, bool) {
	switch s {
	case StageThumbnail:
		return StageFaces, true
	default:
		return "", false
	}
}

// Lane returns the lane a stage's jobs are dispatched on.
func (s Stage) Lane() Lane {
	if s == StageFolder {
		return LaneFolder
	}
	return LaneImage
}

// FolderJob asks a worker to enumerate a project's storage folder and fan
// out per-image work.
type FolderJob struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
}

// ThumbnailJob asks a worker to generate a thumbnail for one image.
type ThumbnailJob struct {
	ImageID       string `json:"image_id"`
	ObjectKey     string `json:"object_key"`
	StoragePrefix string `json:"storage_prefix"`
	ProjectID     string `json:"project_id"`
}

// FaceJob asks a worker to run face detection for one image.
type FaceJob struct {
	ImageID   string `json:"image_id"`
	ObjectKey string `json:"object_key"`
	ProjectID string `json:"project_id"`
}

// Envelope is the wire format of a queued job. TaskID links the message
// to its audit row.
type Envelope struct {
	Task    Stage           `json:"task"`
	TaskID  string          `json:"task_id"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope wraps a payload for dispatch, generating a task ID when the
// caller has none.
func NewEnvelope(stage Stage, taskID string, payload any) (*Envelope, error) {
	if taskID == "" {
		taskID = uuid.NewString()
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", stage, err)
	}
	return &Envelope{Task: stage, TaskID: taskID, Payload: raw}, nil
}

// Decode unmarshals the payload into dst and validates the envelope names
// a known stage.
func (e *Envelope) Decode(dst any) error {
	switch e.Task {
	case StageFolder, StageThumbnail, StageFaces:
	default:
		return fmt.Errorf("unknown task %q", e.Task)
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", e.Task, err)
	}
	return nil
}
