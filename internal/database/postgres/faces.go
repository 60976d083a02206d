package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/RishabhDotasara/Photoflow/internal/database"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// FaceRepository provides PostgreSQL-backed face embedding storage.
type FaceRepository struct {
	pool *Pool
}

// NewFaceRepository creates a new PostgreSQL face repository.
func NewFaceRepository(pool *Pool) *FaceRepository {
	return &FaceRepository{pool: pool}
}

// SaveDetections inserts the detected faces of an image and marks the image
// processed in a single transaction. An empty detections slice still marks
// the image processed, so a photo with no faces does not stall completion.
func (r *FaceRepository) SaveDetections(ctx context.Context, imageID string, faces []database.StoredFace) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Re-detection replaces earlier results.
	if _, err := tx.ExecContext(ctx, "DELETE FROM faces WHERE image_id = $1", imageID); err != nil {
		return fmt.Errorf("delete existing faces: %w", err)
	}

	for i := range faces {
		face := &faces[i]
		vec := pgvector.NewVector(face.Embedding)
		bbox := pq.Array(face.BBox)

		err := tx.QueryRowContext(ctx, `
			INSERT INTO faces (image_id, face_index, embedding, bbox, det_score)
			VALUES ($1, $2, $3::vector, $4, $5)
			RETURNING id
		`, imageID, face.FaceIndex, vec, bbox, face.DetScore).Scan(&face.ID)
		if err != nil {
			return fmt.Errorf("insert face %d: %w", face.FaceIndex, err)
		}
		face.ImageID = imageID
	}

	result, err := tx.ExecContext(ctx, "UPDATE images SET processed = TRUE WHERE id = $1", imageID)
	if err != nil {
		return fmt.Errorf("mark image processed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("image %s: %w", imageID, database.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AllFaces returns stored faces ordered by ID, restricted to one project
// when projectID is non-empty.
func (r *FaceRepository) AllFaces(ctx context.Context, projectID string) ([]database.StoredFace, error) {
	query := `
		SELECT f.id, f.image_id, f.face_index, f.embedding, f.bbox, f.det_score, f.created_at
		FROM faces f
	`
	var args []any
	if projectID != "" {
		query += " JOIN images i ON i.id = f.image_id WHERE i.project_id = $1"
		args = append(args, projectID)
	}
	query += " ORDER BY f.id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	return scanStoredFaces(rows)
}

// CountByProject returns the number of faces stored for a project.
func (r *FaceRepository) CountByProject(ctx context.Context, projectID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM faces f
		JOIN images i ON i.id = f.image_id
		WHERE i.project_id = $1
	`, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// FindSimilarImages returns images whose closest face lies within threshold
// of the query embedding, ascending by that minimum distance. An image with
// several matching faces appears once, scored by its best face.
func (r *FaceRepository) FindSimilarImages(
	ctx context.Context, embedding []float32, threshold float64, limit int, projectID string,
) ([]database.ImageMatch, error) {
	// Use transaction to raise ef_search for better recall.
	tx, err := r.pool.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", database.HNSWEfSearch)); err != nil {
		return nil, fmt.Errorf("set ef_search: %w", err)
	}

	query := `
		SELECT i.id, i.project_id, i.object_key, i.name, i.mime_type, i.size_bytes,
		       i.processed, i.thumbnail_key, i.created_at,
		       MIN(f.embedding <=> $1::vector) AS distance
		FROM faces f
		JOIN images i ON i.id = f.image_id
	`
	vec := pgvector.NewVector(embedding)
	args := []any{vec, threshold, limit}
	if projectID != "" {
		query += " WHERE i.project_id = $4"
		args = append(args, projectID)
	}
	query += `
		GROUP BY i.id
		HAVING MIN(f.embedding <=> $1::vector) <= $2
		ORDER BY distance, i.created_at, i.id
		LIMIT $3
	`

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query similar images: %w", err)
	}
	defer rows.Close()

	var matches []database.ImageMatch
	for rows.Next() {
		var m database.ImageMatch
		err := rows.Scan(
			&m.Image.ID,
			&m.Image.ProjectID,
			&m.Image.ObjectKey,
			&m.Image.Name,
			&m.Image.MimeType,
			&m.Image.SizeBytes,
			&m.Image.Processed,
			&m.Image.ThumbnailKey,
			&m.Image.CreatedAt,
			&m.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("scan image match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate image matches: %w", err)
	}
	return matches, nil
}

func scanStoredFaces(rows *sql.Rows) ([]database.StoredFace, error) {
	var faces []database.StoredFace
	for rows.Next() {
		var face database.StoredFace
		var vec pgvector.Vector
		var bbox pq.Float64Array

		err := rows.Scan(
			&face.ID,
			&face.ImageID,
			&face.FaceIndex,
			&vec,
			&bbox,
			&face.DetScore,
			&face.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}

		face.Embedding = vec.Slice()
		face.BBox = []float64(bbox)
		faces = append(faces, face)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

// Verify interface compliance.
var _ database.FaceStore = (*FaceRepository)(nil)
