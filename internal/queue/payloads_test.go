package queue

import (
	"encoding/json"
	"testing"
)

func TestStageNext(t *testing.T) {
	tests := []struct {
		name     string
		stage    Stage
		next     Stage
		hasNext  bool
	}{
		{"thumbnail chains to faces", StageThumbnail, StageFaces, true},
		{"faces is terminal", StageFaces, "", false},
		{"folder is terminal", StageFolder, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, ok := tc.stage.Next()
			if ok != tc.hasNext {
				t.Fatalf("Next() ok = %v; want %v", ok, tc.hasNext)
			}
			if next != tc.next {
				t.Errorf("Next() = %q; want %q", next, tc.next)
			}
		})
	}
}

func TestStageLane(t *testing.T) {
	if StageFolder.Lane() != LaneFolder {
		t.Error("folder stage should use the folder lane")
	}
	if StageThumbnail.Lane() != LaneImage {
		t.Error("thumbnail stage should use the image lane")
	}
	if StageFaces.Lane() != LaneImage {
		t.Error("faces stage should use the image lane")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := NewEnvelope(StageThumbnail, "task-1", ThumbnailJob{
		ImageID:       "img-1",
		ObjectKey:     "wedding/IMG_001.jpg",
		StoragePrefix: "wedding",
		ProjectID:     "project-1",
	})
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}

	wire, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(wire, &decoded); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if decoded.Task != StageThumbnail || decoded.TaskID != "task-1" {
		t.Errorf("envelope header = %q/%q; want %q/task-1", decoded.Task, decoded.TaskID, StageThumbnail)
	}

	var job ThumbnailJob
	if err := decoded.Decode(&job); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if job.ImageID != "img-1" || job.ObjectKey != "wedding/IMG_001.jpg" {
		t.Errorf("unexpected payload: %+v", job)
	}
}

func TestEnvelopeGeneratesTaskID(t *testing.T) {
	env, err := NewEnvelope(StageFolder, "", FolderJob{ProjectID: "p", UserID: "u"})
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}
	if env.TaskID == "" {
		t.Error("expected generated task ID")
	}
}

func TestEnvelopeDecodeUnknownStage(t *testing.T) {
	env := &Envelope{Task: "reticulate_splines", Payload: []byte(`{}`)}
	var job FolderJob
	if err := env.Decode(&job); err == nil {
		t.Error("expected error for unknown task")
	}
}
