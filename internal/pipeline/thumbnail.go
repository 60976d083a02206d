package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/RishabhDotasara/Photoflow/internal/queue"
	"github.com/RishabhDotasara/Photoflow/internal/storage"
	"github.com/disintegration/imaging"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// GenerateThumbnail downloads the original, derives a bounded JPEG
// thumbnail at the deterministic key and chains the face-processing job.
// Any failure leaves the image unprocessed for a later resync; the face
// job is only enqueued on success, so a partial failure cannot silently
// mark the image complete.
func (w *Worker) GenerateThumbnail(ctx context.Context, job queue.ThumbnailJob) error {
	data, err := w.store.Download(ctx, job.ObjectKey)
	if err != nil {
		return fmt.Errorf("download original: %w", err)
	}

	decodable, err := w.decodableBytes(job.ObjectKey, data)
	if err != nil {
		return err
	}

	src, err := imaging.Decode(bytes.NewReader(decodable))
	if err != nil {
		return fmt.Errorf("decode %s: %w", job.ObjectKey, err)
	}

	maxSize := w.pipeline.ThumbnailMaxSize
	thumb := imaging.Fit(src, maxSize, maxSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(w.pipeline.ThumbnailQuality)); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}

	// The key is derived, not generated, so a crashed run's thumbnail is
	// found and reused instead of re-uploaded.
	key := storage.ThumbnailKey(w.thumbsDir, job.ObjectKey)
	exists, err := w.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check thumbnail exists: %w", err)
	}
	if !exists {
		if err := w.store.Upload(ctx, key, buf.Bytes(), "image/jpeg"); err != nil {
			return fmt.Errorf("upload thumbnail: %w", err)
		}
	}

	if err := w.images.SetThumbnailKey(ctx, job.ImageID, key); err != nil {
		return err
	}

	if _, err := w.tracker.IncrementThumbnails(ctx, job.ProjectID); err != nil {
		return err
	}

	_, err = w.enqueue(ctx, queue.StageFaces, job.ProjectID, "", job.ImageID, queue.FaceJob{
		ImageID:   job.ImageID,
		ObjectKey: job.ObjectKey,
		ProjectID: job.ProjectID,
	})
	if err != nil {
		return fmt.Errorf("enqueue face job for %s: %w", job.ImageID, err)
	}
	return nil
}

// decodableBytes converts raw camera files into something the image
// decoder understands; standard formats pass through untouched.
func (w *Worker) decodableBytes(objectKey string, data []byte) ([]byte, error) {
	if !w.formats.IsRaw(objectKey) {
		return data, nil
	}
	preview, err := ExtractEmbeddedPreview(data)
	if err != nil {
		return nil, fmt.Errorf("raw preview for %s: %w", objectKey, err)
	}
	return preview, nil
}
