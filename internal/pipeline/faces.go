package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/RishabhDotasara/Photoflow/internal/database"
	"github.com/RishabhDotasara/Photoflow/internal/queue"
)

// ProcessFaces runs face detection for one image, persists the embeddings
// and marks the image processed in a single transaction. On failure the
// image stays unprocessed and the counter untouched, leaving recovery to
// a resync. Zero detected faces is a success.
func (w *Worker) ProcessFaces(ctx context.Context, job queue.FaceJob) error {
	data, err := w.store.Download(ctx, job.ObjectKey)
	if err != nil {
		return fmt.Errorf("download original: %w", err)
	}

	decodable, err := w.decodableBytes(job.ObjectKey, data)
	if err != nil {
		return err
	}

	resp, err := w.detector.DetectFaces(ctx, decodable)
	if err != nil {
		return fmt.Errorf("detect faces for %s: %w", job.ImageID, err)
	}

	faces := make([]database.StoredFace, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		faces = append(faces, database.StoredFace{
			FaceIndex: f.FaceIndex,
			Embedding: f.Embedding,
			BBox:      f.BBox,
			DetScore:  f.DetScore,
		})
	}

	if err := w.faces.SaveDetections(ctx, job.ImageID, faces); err != nil {
		return err
	}

	processed, err := w.tracker.IncrementProcessed(ctx, job.ProjectID)
	if err != nil {
		return err
	}
	snapshot, err := w.tracker.Read(ctx, job.ProjectID)
	if err != nil {
		return err
	}
	if processed > snapshot.Total {
		log.Printf("pipeline: %v: project %s processed counter %d exceeds total %d",
			database.ErrInvariant, job.ProjectID, processed, snapshot.Total)
	}

	if snapshot.Total > 0 && processed >= snapshot.Total {
		return w.maybeComplete(ctx, job.ProjectID)
	}
	return nil
}

// maybeComplete fires the completion transition. The counters are a fast
// path; the durable unprocessed-flag tally must agree before the status
// changes, and the transition itself is a compare-and-set so two workers
// racing at the last image double-fire harmlessly.
func (w *Worker) maybeComplete(ctx context.Context, projectID string) error {
	remaining, err := w.images.CountUnprocessed(ctx, projectID)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}

	fired, err := w.projects.CompleteIfNotCompleted(ctx, projectID)
	if err != nil {
		return err
	}
	if fired {
		log.Printf("pipeline: project %s completed", projectID)
	}
	return nil
}
