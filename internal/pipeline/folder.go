package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/RishabhDotasara/Photoflow/internal/database"
	"github.com/RishabhDotasara/Photoflow/internal/queue"
)

// RunFolderJob enumerates a project's storage folder, records new images
// and fans out thumbnail work for every image still unprocessed. Safe to
// re-run: inserts are deduplicated by the (project, object key) constraint
// and the fan-out set comes from an authoritative requery, so a resync
// also picks up images left over from a prior failed run.
func (w *Worker) RunFolderJob(ctx context.Context, projectID, userID string) error {
	project, err := w.projects.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if project.StoragePrefix == "" {
		return fmt.Errorf("project %s: %w", projectID, ErrFolderNotConfigured)
	}

	// Idempotent; re-entering while already processing is fine.
	if err := w.projects.UpdateStatus(ctx, projectID, database.ProjectStatusProcessing); err != nil {
		return err
	}

	// A listing failure aborts the whole run. Rows from earlier runs
	// remain; a later resync recovers.
	objects, err := w.store.List(ctx, project.StoragePrefix)
	if err != nil {
		return fmt.Errorf("list storage folder: %w", err)
	}

	known, err := w.images.ObjectKeys(ctx, projectID)
	if err != nil {
		return err
	}
	knownSet := make(map[string]struct{}, len(known))
	for _, key := range known {
		knownSet[key] = struct{}{}
	}

	inserted := 0
	for _, obj := range objects {
		if !w.formats.IsImage(obj.Name) {
			continue
		}
		if _, ok := knownSet[obj.Key]; ok {
			continue
		}
		img := &database.Image{
			ProjectID: projectID,
			ObjectKey: obj.Key,
			Name:      obj.Name,
			MimeType:  obj.MimeType,
			SizeBytes: obj.SizeBytes,
		}
		if err := w.images.Create(ctx, img); err != nil {
			// A concurrent run inserted the same key first.
			if errors.Is(err, database.ErrConflict) {
				continue
			}
			return err
		}
		inserted++
	}

	// Authoritative unprocessed set, not merely the newly inserted rows.
	unprocessed, err := w.images.Unprocessed(ctx, projectID)
	if err != nil {
		return err
	}

	if err := w.tracker.Reset(ctx, projectID, int64(len(unprocessed))); err != nil {
		return err
	}

	// A resync of a fully processed project has nothing to fan out; restore
	// the completed status instead of leaving the project in processing.
	if len(unprocessed) == 0 {
		total, err := w.images.Count(ctx, projectID)
		if err != nil {
			return err
		}
		if total > 0 {
			if _, err := w.projects.CompleteIfNotCompleted(ctx, projectID); err != nil {
				return err
			}
		}
		log.Printf("pipeline: project %s already fully processed (%d images)", projectID, total)
		return nil
	}

	for _, img := range unprocessed {
		_, err := w.enqueue(ctx, queue.StageThumbnail, projectID, userID, img.ID, queue.ThumbnailJob{
			ImageID:       img.ID,
			ObjectKey:     img.ObjectKey,
			StoragePrefix: project.StoragePrefix,
			ProjectID:     projectID,
		})
		if err != nil {
			return fmt.Errorf("enqueue thumbnail for %s: %w", img.ID, err)
		}
	}

	log.Printf("pipeline: project %s enumerated, %d new, %d to process", projectID, inserted, len(unprocessed))
	return nil
}
