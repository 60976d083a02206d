package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RishabhDotasara/Photoflow/internal/database"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ImageRepository provides PostgreSQL-backed image storage.
type ImageRepository struct {
	pool *Pool
}

// NewImageRepository creates a new PostgreSQL image repository.
func NewImageRepository(pool *Pool) *ImageRepository {
	return &ImageRepository{pool: pool}
}

const imageColumns = "id, project_id, object_key, name, mime_type, size_bytes, processed, thumbnail_key, created_at"

// Create inserts an image row. The UNIQUE(project_id, object_key)
// constraint turns duplicate enumeration into ErrConflict, which the
// ingestion flow swallows.
func (r *ImageRepository) Create(ctx context.Context, img *database.Image) error {
	if img.ID == "" {
		img.ID = uuid.NewString()
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO images (id, project_id, object_key, name, mime_type, size_bytes, processed, thumbnail_key)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, '')
		RETURNING created_at
	`,
		img.ID,
		img.ProjectID,
		img.ObjectKey,
		img.Name,
		img.MimeType,
		img.SizeBytes,
	).Scan(&img.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("image %q in project %s: %w", img.ObjectKey, img.ProjectID, database.ErrConflict)
		}
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

// Get retrieves an image by ID. Returns ErrNotFound when missing.
func (r *ImageRepository) Get(ctx context.Context, id string) (*database.Image, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+imageColumns+" FROM images WHERE id = $1", id)

	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("image %s: %w", id, database.ErrNotFound)
		}
		return nil, err
	}
	return img, nil
}

// ByIDs retrieves images for the given IDs, in insertion order.
func (r *ImageRepository) ByIDs(ctx context.Context, ids []string) ([]database.Image, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		"SELECT "+imageColumns+" FROM images WHERE id = ANY($1) ORDER BY created_at, id", pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query images by IDs: %w", err)
	}
	defer rows.Close()

	return scanImages(rows)
}

// ObjectKeys returns the object keys already recorded for a project.
func (r *ImageRepository) ObjectKeys(ctx context.Context, projectID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT object_key FROM images WHERE project_id = $1", projectID)
	if err != nil {
		return nil, fmt.Errorf("query object keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan object key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate object keys: %w", err)
	}
	return keys, nil
}

// Unprocessed returns images still awaiting face processing, in insertion order.
func (r *ImageRepository) Unprocessed(ctx context.Context, projectID string) ([]database.Image, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+imageColumns+" FROM images WHERE project_id = $1 AND NOT processed ORDER BY created_at, id",
		projectID)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed images: %w", err)
	}
	defer rows.Close()

	return scanImages(rows)
}

// CountUnprocessed returns how many images of the project are still unprocessed.
func (r *ImageRepository) CountUnprocessed(ctx context.Context, projectID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM images WHERE project_id = $1 AND NOT processed", projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unprocessed images: %w", err)
	}
	return count, nil
}

// Count returns the number of images recorded for a project.
func (r *ImageRepository) Count(ctx context.Context, projectID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM images WHERE project_id = $1", projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return count, nil
}

// SetThumbnailKey records the derived thumbnail object key.
func (r *ImageRepository) SetThumbnailKey(ctx context.Context, imageID, key string) error {
	result, err := r.pool.Exec(ctx, "UPDATE images SET thumbnail_key = $1 WHERE id = $2", key, imageID)
	if err != nil {
		return fmt.Errorf("update thumbnail key: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("image %s: %w", imageID, database.ErrNotFound)
	}
	return nil
}

// ClearByProject removes all images of a project. Faces cascade via FK.
func (r *ImageRepository) ClearByProject(ctx context.Context, projectID string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM images WHERE project_id = $1", projectID); err != nil {
		return fmt.Errorf("clear images: %w", err)
	}
	return nil
}

func scanImage(scanner interface{ Scan(...any) error }) (*database.Image, error) {
	var img database.Image
	err := scanner.Scan(
		&img.ID,
		&img.ProjectID,
		&img.ObjectKey,
		&img.Name,
		&img.MimeType,
		&img.SizeBytes,
		&img.Processed,
		&img.ThumbnailKey,
		&img.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan image: %w", err)
	}
	return &img, nil
}

func scanImages(rows *sql.Rows) ([]database.Image, error) {
	var images []database.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}
	return images, nil
}

// Verify interface compliance.
var _ database.ImageStore = (*ImageRepository)(nil)
